package extract

import (
	"fmt"
	"net/url"
	"strings"

	readability "github.com/go-shiori/go-readability"
	textUtils "github.com/shouni/go-utils/text"
)

// ExtractReadable は、go-readability でページの主要部分を推定し、そのテキストを返します。
// サイト固有のマークアップに依存しないため、未知のサイトの既定として使えます。
func ExtractReadable(rawHTML string, pageURL *url.URL) (string, error) {
	if pageURL == nil {
		pageURL = &url.URL{}
	}

	parser := readability.NewParser()
	article, err := parser.Parse(strings.NewReader(rawHTML), pageURL)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrArticleNotFound, err)
	}

	text := textUtils.NormalizeText(article.TextContent)
	if text == "" {
		return "", ErrArticleNotFound
	}
	return text, nil
}
