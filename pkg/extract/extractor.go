package extract

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	textUtils "github.com/shouni/go-utils/text"
)

// PlaintextSuffix は、抽出を行わずに本文として扱うURLの拡張子です。
const PlaintextSuffix = ".txt"

// Extractor は、Fetcher と抽出関数を使ってURLから本文テキストを取り出します。
type Extractor struct {
	fetcher Fetcher
	extract Func
}

// NewExtractor は、新しい Extractor のインスタンスを生成します。
func NewExtractor(fetcher Fetcher, fn Func) (*Extractor, error) {
	if fetcher == nil {
		return nil, fmt.Errorf("extract.NewExtractor: Fetcher cannot be nil")
	}
	if fn == nil {
		return nil, fmt.Errorf("extract.NewExtractor: Func cannot be nil")
	}
	return &Extractor{
		fetcher: fetcher,
		extract: fn,
	}, nil
}

// IsPlaintextURL は、URLのパスがプレーンテキストの拡張子で終わるかを判定します。
func IsPlaintextURL(rawURL string) bool {
	if parsed, err := url.Parse(rawURL); err == nil && parsed.Path != "" {
		return strings.HasSuffix(strings.ToLower(parsed.Path), PlaintextSuffix)
	}
	return strings.HasSuffix(strings.ToLower(rawURL), PlaintextSuffix)
}

// FetchAndExtractText は、URLからページを取得し、本文のプレーンテキストを返します。
// プレーンテキストのURLは抽出を行わずにそのまま返します。
// 取得エラーはそのまま返し、抽出の失敗は *ExtractionError として返します。
func (e *Extractor) FetchAndExtractText(ctx context.Context, rawURL string) (string, error) {
	// 1. Fetcherからページを取得 (通信の責務)
	body, err := e.fetcher.FetchText(ctx, rawURL)
	if err != nil {
		return "", err
	}

	// 2. プレーンテキストはそのまま本文とする
	if IsPlaintextURL(rawURL) {
		return body, nil
	}

	// 3. サイト系統ごとの抽出 (解析の責務)
	pageURL, _ := url.Parse(rawURL)
	text, err := e.extract(body, pageURL)
	if err != nil {
		return "", &ExtractionError{URL: rawURL, Err: err}
	}
	return text, nil
}

// ----------------------------------------------------------------------
// 汎用ヒューリスティック抽出
// ----------------------------------------------------------------------

const (
	MinParagraphLength   = 20
	MinHeadingLength     = 3
	mainContentSelectors = "article, main, div[role='main'], #main, #content, .post-content, .article-body, .entry-content"
	noiseSelectors       = ".related-posts, .social-share, .comments, .ad-banner, .advertisement, script, style, noscript"

	// textExtractionTags は本文抽出に使用するHTMLタグを定義します。
	textExtractionTags = "p, h1, h2, h3, h4, h5, h6, li, blockquote"
)

// ExtractHeuristic は、一般的な記事コンテナを探して段落・見出し・表の本文を抽出します。
// 本文となる要素が見つからない場合（タイトルだけのページを含む）は ErrArticleNotFound を返します。
func ExtractHeuristic(rawHTML string, _ *url.URL) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(rawHTML))
	if err != nil {
		return "", fmt.Errorf("HTML解析に失敗しました: %w", err)
	}

	// 1. メインコンテンツの特定とノイズ要素の除去
	mainContent := findMainContent(doc)
	mainContent.Find(noiseSelectors).Remove()

	// 2. 本文要素を DOM の出現順に走査する
	var parts []string
	mainContent.Find(textExtractionTags + ", table").Each(func(i int, s *goquery.Selection) {
		// 入れ子の要素は親要素のテキストに含まれるため二重に数えない
		if s.ParentsFiltered(textExtractionTags).Length() > 0 {
			return
		}

		var content string
		if s.Is("table") {
			content = processTable(s)
		} else {
			content = processGeneralElement(s)
		}
		if content != "" {
			parts = append(parts, content)
		}
	})

	// 3. 抽出結果の検証
	if len(parts) == 0 {
		return "", ErrArticleNotFound
	}
	return strings.Join(parts, "\n\n"), nil
}

// findMainContent はメインコンテンツを取得します。見つからない場合は body 全体を対象にします。
func findMainContent(doc *goquery.Document) *goquery.Selection {
	mainContent := doc.Find(mainContentSelectors).First()
	if mainContent.Length() == 0 {
		mainContent = doc.Find("body")
		mainContent.Find("header, footer, nav, aside, .sidebar, form").Remove()
	}
	return mainContent
}

// processGeneralElement は段落・見出し・リスト要素のテキストを返します。短すぎるものは除外します。
func processGeneralElement(s *goquery.Selection) string {
	tempSelection := s.Clone()
	tempSelection.Find("pre, table").Remove()

	text := textUtils.NormalizeText(tempSelection.Text())
	if text == "" {
		return ""
	}

	length := len([]rune(text))
	switch {
	case s.Is("h1, h2, h3, h4, h5, h6"):
		if length > MinHeadingLength {
			return text
		}
	case s.Is("li"), length > MinParagraphLength:
		return text
	}
	return ""
}

// processTable は表のキャプションとセルのテキストを行ごとに連結します。
func processTable(s *goquery.Selection) string {
	var rows []string
	if caption := textUtils.NormalizeText(s.Find("caption").First().Text()); caption != "" {
		rows = append(rows, caption)
	}
	s.Find("tr").Each(func(_ int, row *goquery.Selection) {
		var cells []string
		row.Find("th, td").Each(func(_ int, cell *goquery.Selection) {
			if text := textUtils.NormalizeText(cell.Text()); text != "" {
				cells = append(cells, text)
			}
		})
		if len(cells) > 0 {
			rows = append(rows, strings.Join(cells, " "))
		}
	})
	return strings.Join(rows, "\n")
}
