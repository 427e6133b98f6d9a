package extract

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	textUtils "github.com/shouni/go-utils/text"
)

const (
	// inosmiArticleSelectors は、inosmi.ru の記事本文コンテナです（新旧のマークアップ）。
	inosmiArticleSelectors = "article.article, div.layout-article"

	// inosmiNoiseSelectors は、本文コンテナ内で記事の一部ではない要素です。
	inosmiNoiseSelectors = "aside, footer, figure, img, picture, video, iframe, script, style, noscript, " +
		".article-disclaimer, .article-metadata, .article__info, .article__announce, .article__aside, " +
		".media, .banner, .share, .tags, .article__tags"

	inosmiBlockSelectors = "h1, h2, h3, h4, p, li, blockquote"
)

// SanitizeInosmi は、inosmi.ru の記事ページから本文のプレーンテキストを抽出します。
// 記事コンテナがちょうど1つ見つからない場合は ErrArticleNotFound を返します。
func SanitizeInosmi(rawHTML string, _ *url.URL) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(rawHTML))
	if err != nil {
		return "", fmt.Errorf("HTML解析に失敗しました: %w", err)
	}

	// 1. 記事コンテナの特定
	article := doc.Find(inosmiArticleSelectors)
	if article.Length() != 1 {
		return "", ErrArticleNotFound
	}

	// 2. ノイズ要素の除去
	article.Find(inosmiNoiseSelectors).Remove()

	// 3. ブロック要素ごとにテキストを取り出す
	var blocks []string
	article.Find(inosmiBlockSelectors).Each(func(_ int, s *goquery.Selection) {
		if s.ParentsFiltered(inosmiBlockSelectors).Length() > 0 {
			return
		}
		if text := textUtils.NormalizeText(s.Text()); text != "" {
			blocks = append(blocks, text)
		}
	})

	// ブロック要素のないマークアップはコンテナ全体のテキストを使う
	if len(blocks) == 0 {
		if text := textUtils.NormalizeText(article.Text()); text != "" {
			blocks = append(blocks, text)
		}
	}
	if len(blocks) == 0 {
		return "", ErrArticleNotFound
	}
	return strings.Join(blocks, "\n"), nil
}
