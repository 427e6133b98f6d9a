package pipeline

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shouni/go-jaundice/internal/config"
	"github.com/shouni/go-jaundice/pkg/charged"
	"github.com/shouni/go-jaundice/pkg/extract"
	"github.com/shouni/go-jaundice/pkg/feed"
	"github.com/shouni/go-jaundice/pkg/types"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()
	chargedDir := filepath.Join(dir, "charged_dict")
	require.NoError(t, os.Mkdir(chargedDir, 0o755))
	writeFile(t, filepath.Join(chargedDir, "negative_words.txt"), "аутсайдер\nбанкротство\n")

	lemmaFile := filepath.Join(dir, "lemmas.tsv")
	writeFile(t, lemmaFile, "# form\tlemma\nбанкротстве\tбанкротство\n")

	cfg := config.Default()
	cfg.ChargedDictDir = chargedDir
	cfg.LemmaFile = lemmaFile
	cfg.HTTP.MaxRetries = 0
	return cfg
}

func TestBuild_ProcessArticles(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "Аутсайдер заявил о банкротстве")
	}))
	defer srv.Close()

	p, err := Build(testConfig(t), discardLogger())
	require.NoError(t, err)

	results, err := p.Processor.ProcessArticles(context.Background(), []string{srv.URL + "/news.txt"})
	require.NoError(t, err)
	require.Len(t, results, 1)

	// аутсайдер заявил банкротство
	assert.Equal(t, types.StatusOK, results[0].Status)
	assert.Equal(t, 66.67, *results[0].Score)
	assert.Equal(t, 3, *results[0].WordsCount)
}

func TestNewFeedClient_FetchesFeed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/rss+xml")
		fmt.Fprint(w, `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0"><channel><title>ИноСМИ</title>
<item><title>Первая</title><link>https://inosmi.ru/20211116/250914886.html</link></item>
<item><title>Вторая</title><link>https://inosmi.ru/20211116/250914887.html</link></item>
</channel></rss>`)
	}))
	defer srv.Close()

	client := NewFeedClient(testConfig(t))
	assert.Equal(t, uint64(0), client.RetryConfig.MaxRetries)

	urls, err := feed.NewParser(client).FetchArticleURLs(context.Background(), srv.URL+"/rss.xml", 1)
	require.NoError(t, err)
	assert.Equal(t, []string{"https://inosmi.ru/20211116/250914886.html"}, urls)
}

func TestBuild_UnknownFamily(t *testing.T) {
	cfg := testConfig(t)
	cfg.SourceFamily = "site_a"

	_, err := Build(cfg, discardLogger())
	require.Error(t, err)
	assert.ErrorIs(t, err, extract.ErrUnknownFamily)
}

func TestResources_LoadedOnce(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "charged_dict")
	r := NewResources(missing, "", discardLogger())

	_, err := r.Resources()
	require.Error(t, err)
	var notFound *charged.DirectoryNotFoundError
	assert.ErrorAs(t, err, &notFound)

	// 読み込みは一度だけ行われ、後からディレクトリを作っても結果は変わらない
	require.NoError(t, os.Mkdir(missing, 0o755))
	_, err = r.Resources()
	assert.ErrorAs(t, err, &notFound)

	_, err = r.Store()
	assert.Error(t, err)
}

func TestResources_SnapshotFollowsReload(t *testing.T) {
	cfg := testConfig(t)
	r := NewResources(cfg.ChargedDictDir, "", discardLogger())

	first, err := r.Resources()
	require.NoError(t, err)
	assert.Equal(t, 2, first.Charged.Len())
	assert.Equal(t, "все", first.Normalizer.Lemma("Все"))

	writeFile(t, filepath.Join(cfg.ChargedDictDir, "more.txt"), "побег")
	store, err := r.Store()
	require.NoError(t, err)
	require.NoError(t, store.Reload())

	second, err := r.Resources()
	require.NoError(t, err)
	assert.Equal(t, 3, second.Charged.Len())
	// 取得済みのスナップショットは変わらない
	assert.Equal(t, 2, first.Charged.Len())
}

func TestResources_ShippedDictionaries(t *testing.T) {
	r := NewResources(filepath.Join("..", "..", config.DefaultChargedDir), filepath.Join("..", "..", "lemma_dict", "lemmas.tsv"), discardLogger())

	res, err := r.Resources()
	require.NoError(t, err)
	assert.True(t, res.Charged.Contains("аутсайдер"))
	assert.True(t, res.Charged.Contains("банкротство"))
	assert.True(t, res.Charged.Contains("сенсация"))
	assert.Equal(t, "банкротство", res.Normalizer.Lemma("Банкротстве"))
	assert.Equal(t, "объявить", res.Normalizer.Lemma("объявил"))
}

func TestResources_BadLemmaFile(t *testing.T) {
	cfg := testConfig(t)
	r := NewResources(cfg.ChargedDictDir, filepath.Join(t.TempDir(), "nope.tsv"), discardLogger())

	_, err := r.Resources()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "レンマ辞書の読み込みに失敗しました")
}
