package cmd

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	clibase "github.com/shouni/go-cli-base"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shouni/go-jaundice/internal/config"
	"github.com/shouni/go-jaundice/pkg/types"
)

func TestEnsureScheme(t *testing.T) {
	tests := []struct {
		input    string
		expected string
		wantErr  bool
	}{
		{input: "https://inosmi.ru/a.html", expected: "https://inosmi.ru/a.html"},
		{input: "http://example.com", expected: "http://example.com"},
		{input: "  inosmi.ru/export/rss2/index.xml ", expected: "https://inosmi.ru/export/rss2/index.xml"},
		{input: "ftp://example.com/file", wantErr: true},
		{input: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ensureScheme(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestCollectURLs(t *testing.T) {
	t.Run("flag and args", func(t *testing.T) {
		urls, err := collectURLs("a, b,,a", []string{"c"}, strings.NewReader("ignored"))
		require.NoError(t, err)
		assert.Equal(t, []string{"a", "b", "a", "c"}, urls)
	})
	t.Run("stdin", func(t *testing.T) {
		urls, err := collectURLs("", nil, strings.NewReader("a\n\n  b  \n"))
		require.NoError(t, err)
		assert.Equal(t, []string{"a", "b"}, urls)
	})
	t.Run("nothing", func(t *testing.T) {
		urls, err := collectURLs("", nil, strings.NewReader(""))
		require.NoError(t, err)
		assert.Empty(t, urls)
	})
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer

	l, err := newLogger(&buf, LogFormatJSON, true)
	require.NoError(t, err)
	l.Debug("hello", "url", "https://example.com")
	assert.Contains(t, buf.String(), `"msg":"hello"`)

	buf.Reset()
	l, err = newLogger(&buf, LogFormatText, false)
	require.NoError(t, err)
	l.Debug("hidden")
	assert.Empty(t, buf.String())

	_, err = newLogger(&buf, "xml", false)
	assert.Error(t, err)
}

func TestWriteReport(t *testing.T) {
	var buf bytes.Buffer
	writeReport(&buf, []types.ArticleResult{
		types.NewOKResult("https://dvmn.org/a.txt", 33.33, 3),
		types.NewFailedResult("https://lenta.ru/b", types.StatusParsingError),
	})

	out := buf.String()
	assert.Contains(t, out, "Статус: OK")
	assert.Contains(t, out, "Рейтинг: 33.33")
	assert.Contains(t, out, "Слов в статье: 3")
	assert.Contains(t, out, "Статус: PARSING_ERROR")
	assert.Contains(t, out, "Рейтинг: None")
	assert.Contains(t, out, "成功 1 件, 失敗 1 件")
}

func TestScoreCommand_JSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/missing.txt" {
			http.NotFound(w, r)
			return
		}
		fmt.Fprint(w, "Все аутсайдер побег")
	}))
	defer srv.Close()

	chargedDir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(chargedDir, "negative.txt"), []byte("аутсайдер банкротство"), 0o644))
	t.Setenv(config.EnvChargedDir, chargedDir)

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&bytes.Buffer{})
	rootCmd.SetArgs([]string{"score", "--json", "--max-retries", "0",
		"--urls", srv.URL + "/a.txt," + srv.URL + "/missing.txt"})
	t.Cleanup(func() { rootCmd.SetArgs(nil) })

	require.NoError(t, rootCmd.Execute())

	var results []types.ArticleResult
	require.NoError(t, json.Unmarshal(out.Bytes(), &results))
	require.Len(t, results, 2)
	assert.Equal(t, types.StatusOK, results[0].Status)
	assert.Equal(t, 33.33, *results[0].Score)
	assert.Equal(t, 3, *results[0].WordsCount)
	assert.Equal(t, types.StatusFetchError, results[1].Status)
	assert.Nil(t, results[1].Score)
}

func TestRootCmd_CommonFlagsFromCLIBase(t *testing.T) {
	configFlag := rootCmd.PersistentFlags().Lookup("config")
	require.NotNil(t, configFlag)
	assert.Equal(t, "C", configFlag.Shorthand)
	verbose := rootCmd.PersistentFlags().Lookup("verbose")
	require.NotNil(t, verbose)
	assert.Equal(t, "V", verbose.Shorthand)
	assert.NotNil(t, rootCmd.PersistentFlags().Lookup("log-format"))
	assert.Contains(t, rootCmd.Long, "charged_dict/")
}

func TestScoreCommand_ConfigFileAndVerbose(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "Все аутсайдер побег")
	}))
	defer srv.Close()

	dir := t.TempDir()
	chargedDir := filepath.Join(dir, "dict")
	require.NoError(t, os.Mkdir(chargedDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(chargedDir, "negative.txt"), []byte("аутсайдер"), 0o644))
	configPath := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(configPath, []byte("charged_dict_dir: "+chargedDir+"\nhttp:\n  max_retries: 0\n"), 0o644))

	var out, errOut bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&errOut)
	rootCmd.SetArgs([]string{"-C", configPath, "-V", "score", "--json", "--urls", srv.URL + "/a.txt"})
	t.Cleanup(func() {
		rootCmd.SetArgs(nil)
		clibase.Flags = clibase.GlobalFlags{}
	})

	require.NoError(t, rootCmd.Execute())

	assert.Equal(t, configPath, clibase.Flags.ConfigFile)
	assert.True(t, clibase.Flags.Verbose)
	assert.Equal(t, chargedDir, appConfig.ChargedDictDir)
	assert.Contains(t, errOut.String(), "設定を読み込みました")

	var results []types.ArticleResult
	require.NoError(t, json.Unmarshal(out.Bytes(), &results))
	require.Len(t, results, 1)
	assert.Equal(t, types.StatusOK, results[0].Status)
	assert.Equal(t, 33.33, *results[0].Score)
}
