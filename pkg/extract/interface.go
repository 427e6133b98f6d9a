package extract

import (
	"context"
	"errors"
	"fmt"
	"net/url"
)

// ----------------------------------------------------------------------
// 依存性とエラーの定義 (DIP)
// ----------------------------------------------------------------------

// Fetcher は、ページ本文（UTF-8にデコード済みの文字列）を取得する機能のインターフェースです。
// Extractor は、この抽象に依存します。
type Fetcher interface {
	FetchText(ctx context.Context, url string) (string, error)
}

// Func は、特定のサイト系統（source family）向けの本文抽出関数です。
// 生のHTMLからプレーンテキストを返し、記事本文が見つからない場合は ErrArticleNotFound を返します。
// pageURL は相対リンクの解決などに使われ、nil の場合もあります。
type Func func(rawHTML string, pageURL *url.URL) (string, error)

var (
	// ErrArticleNotFound は、ページ内に認識できる記事本文がないことを示します。
	ErrArticleNotFound = errors.New("記事本文が見つかりませんでした")

	// ErrUnknownFamily は、登録されていないサイト系統が指定されたことを示します（設定エラー）。
	ErrUnknownFamily = errors.New("未登録のサイト系統です")
)

// ExtractionError は、ページの取得には成功したが本文の抽出に失敗したことを示します。
// 取得エラーと区別するために使います。
type ExtractionError struct {
	URL string
	Err error
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("本文の抽出に失敗しました (URL: %s): %v", e.URL, e.Err)
}

func (e *ExtractionError) Unwrap() error {
	return e.Err
}

// IsExtractionError は、エラーが ExtractionError 型であるかを判定します。
func IsExtractionError(err error) bool {
	var extractionErr *ExtractionError
	return errors.As(err, &extractionErr)
}
