package types

// Status は、1つの記事URLに対する処理結果の種別です。
// 値の集合は閉じており、各URLにつき必ずいずれか1つが割り当てられます。
type Status string

const (
	StatusOK           Status = "OK"
	StatusFetchError   Status = "FETCH_ERROR"
	StatusParsingError Status = "PARSING_ERROR"
	StatusTimeout      Status = "TIMEOUT"
	StatusInvalidURL   Status = "INVALID_URL"
)

// Statuses は、定義済みのすべての Status を返します。
func Statuses() []Status {
	return []Status{StatusOK, StatusFetchError, StatusParsingError, StatusTimeout, StatusInvalidURL}
}

// ArticleResult は、特定のURLの「黄色度」評価結果を保持します。
// Score と WordsCount は Status が OK の場合にのみ非nilになります。
// これは、Processorの出力、HTTPレスポンス・CLI出力の入力として利用されます。
type ArticleResult struct {
	Status     Status   `json:"status"`
	URL        string   `json:"url"`
	Score      *float64 `json:"score"`
	WordsCount *int     `json:"words_count"`
}

// NewOKResult は、評価に成功した結果を生成します。
func NewOKResult(url string, score float64, wordsCount int) ArticleResult {
	return ArticleResult{
		Status:     StatusOK,
		URL:        url,
		Score:      &score,
		WordsCount: &wordsCount,
	}
}

// NewFailedResult は、失敗した結果を生成します。Score と WordsCount は常に nil です。
func NewFailedResult(url string, status Status) ArticleResult {
	return ArticleResult{
		Status: status,
		URL:    url,
	}
}

// OK は、結果が成功かどうかを返します。
func (r ArticleResult) OK() bool {
	return r.Status == StatusOK
}
