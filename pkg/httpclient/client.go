package httpclient

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"
	"unicode/utf8"

	"golang.org/x/net/html/charset"
	"golang.org/x/time/rate"

	"github.com/shouni/go-jaundice/pkg/retry"
)

const (
	// HTTPクライアント関連の定数
	DefaultHTTPTimeout = 10 * time.Second
	MaxBodySize        = int64(10 * 1024 * 1024) // 10MB: レスポンスボディの最大読み込みサイズ

	// エラーメッセージに含めるボディの最大長
	maxErrorBodyLength = 1024

	// サイトからのブロックを避けるためのUser-Agent
	UserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/118.0.0.0 Safari/537.36"
)

// ----------------------------------------------------------------------
// エラー型
// ----------------------------------------------------------------------

// NonRetryableHTTPError はHTTP 4xx系のステータスコードエラーを示すカスタムエラー型です。
type NonRetryableHTTPError struct {
	StatusCode int
	Body       []byte
}

func (e *NonRetryableHTTPError) Error() string {
	body := strings.TrimSpace(string(e.Body))
	if body == "" {
		return fmt.Sprintf("HTTPクライアントエラー (非リトライ対象): ステータスコード %d, ボディなし", e.StatusCode)
	}
	if len(body) > maxErrorBodyLength {
		body = body[:maxErrorBodyLength] + "..."
	}
	return fmt.Sprintf("HTTPクライアントエラー (非リトライ対象): ステータスコード %d, ボディ: %s", e.StatusCode, body)
}

// BodyTooLargeError は、レスポンスボディが読み込み上限を超えたことを示すエラーです。
// 再試行しても結果は変わらないため、リトライ対象外です。
type BodyTooLargeError struct {
	URL   string
	Limit int64
}

func (e *BodyTooLargeError) Error() string {
	return fmt.Sprintf("レスポンスボディが上限 (%dバイト) を超えました: %s", e.Limit, e.URL)
}

// InvalidURLError は、URLの構文が不正でリクエストを送信できないことを示すエラーです。
// ネットワークエラーとは区別され、呼び出し元で INVALID_URL として扱われます。
type InvalidURLError struct {
	URL string
	Err error
}

func (e *InvalidURLError) Error() string {
	return fmt.Sprintf("無効なURLです (%q): %v", e.URL, e.Err)
}

func (e *InvalidURLError) Unwrap() error {
	return e.Err
}

// IsNonRetryableError は与えられたエラーが非リトライ対象のHTTPエラーであるかを判断します。
func IsNonRetryableError(err error) bool {
	var nonRetryable *NonRetryableHTTPError
	return errors.As(err, &nonRetryable)
}

// IsInvalidURLError は与えられたエラーがURL構文エラーであるかを判断します。
func IsInvalidURLError(err error) bool {
	var invalid *InvalidURLError
	return errors.As(err, &invalid)
}

// ValidateURL は、URLが http/https の絶対URLであることを確認します。
func ValidateURL(rawURL string) (*url.URL, error) {
	parsed, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return nil, &InvalidURLError{URL: rawURL, Err: err}
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return nil, &InvalidURLError{URL: rawURL, Err: fmt.Errorf("スキームはhttpまたはhttpsである必要があります: %q", parsed.Scheme)}
	}
	if parsed.Host == "" {
		return nil, &InvalidURLError{URL: rawURL, Err: errors.New("ホストがありません")}
	}
	return parsed, nil
}

// ----------------------------------------------------------------------
// クライアント
// ----------------------------------------------------------------------

// Doer は、標準の *http.Client.Do() と互換性のあるHTTPクライアントのインターフェースです。
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Client はHTTPリクエストと指数バックオフを用いたリトライロジックを管理します。
// 1つの Client（とその接続プール）をバッチ内のすべてのワーカーで共有します。
type Client struct {
	httpClient  Doer
	retryConfig retry.Config
	limiter     *rate.Limiter
	maxBodySize int64
	logger      *slog.Logger
}

// Option は Client の設定を行うための関数型です。
type Option func(*Client)

// WithHTTPClient はカスタムの Doer を設定します。
func WithHTTPClient(doer Doer) Option {
	return func(c *Client) {
		c.httpClient = doer
	}
}

// WithMaxRetries は最大リトライ回数を設定します。
func WithMaxRetries(max uint64) Option {
	return func(c *Client) {
		c.retryConfig.MaxRetries = max
	}
}

// WithRetryConfig はリトライ設定全体を置き換えます。
func WithRetryConfig(cfg retry.Config) Option {
	return func(c *Client) {
		c.retryConfig = cfg
	}
}

// WithRateLimit は、送信リクエストの秒間上限を設定します。0以下の場合は無制限です。
func WithRateLimit(perSecond float64, burst int) Option {
	return func(c *Client) {
		if perSecond <= 0 {
			c.limiter = nil
			return
		}
		if burst <= 0 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(perSecond), burst)
	}
}

// WithMaxBodySize は、レスポンスボディの読み込み上限を設定します。0以下の場合は MaxBodySize です。
func WithMaxBodySize(n int64) Option {
	return func(c *Client) {
		if n <= 0 {
			n = MaxBodySize
		}
		c.maxBodySize = n
	}
}

// WithLogger はロガーを設定します。
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// New は新しい Client を生成します。timeout は1リクエストあたりのタイムアウトです。
func New(timeout time.Duration, options ...Option) *Client {
	if timeout <= 0 {
		timeout = DefaultHTTPTimeout
	}

	c := &Client{
		httpClient:  &http.Client{Timeout: timeout},
		retryConfig: retry.DefaultConfig(),
		maxBodySize: MaxBodySize,
		logger:      slog.Default(),
	}
	for _, opt := range options {
		opt(c)
	}
	return c
}

// FetchText は URL からコンテンツを取得し、ページの文字コードからUTF-8に変換した文字列を返します。
func (c *Client) FetchText(ctx context.Context, rawURL string) (string, error) {
	body, err := c.fetch(ctx, rawURL, true)
	if err != nil {
		return "", err
	}
	return string(body), nil
}

// FetchBytes は URL からコンテンツを取得し、生のバイト配列として返します。
func (c *Client) FetchBytes(ctx context.Context, rawURL string) ([]byte, error) {
	return c.fetch(ctx, rawURL, false)
}

func (c *Client) fetch(ctx context.Context, rawURL string, decode bool) ([]byte, error) {
	if _, err := ValidateURL(rawURL); err != nil {
		return nil, err
	}

	var body []byte
	op := func() error {
		var fetchErr error
		body, fetchErr = c.doFetch(ctx, rawURL, decode)
		return fetchErr
	}

	err := retry.Do(ctx, c.retryConfig, fmt.Sprintf("URL(%s)のフェッチ", rawURL), op, isHTTPRetryableError)
	if err != nil {
		return nil, err
	}
	return body, nil
}

// doFetch は実際の一度のHTTP GETリクエストを実行します。
func (c *Client) doFetch(ctx context.Context, rawURL string, decode bool) ([]byte, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("レートリミッターの待機に失敗しました: %w", err)
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, &InvalidURLError{URL: rawURL, Err: err}
	}
	req.Header.Set("User-Agent", UserAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("HTTPリクエストに失敗しました (ネットワーク/接続エラー): %w", err)
	}
	defer resp.Body.Close()

	if err := checkResponseStatus(resp); err != nil {
		return nil, err
	}

	// 上限 +1 バイトまで読み、超過を切り詰めではなくエラーとして検出する
	body, err := io.ReadAll(io.LimitReader(resp.Body, c.maxBodySize+1))
	if err != nil {
		return nil, fmt.Errorf("レスポンスボディの読み込みに失敗しました: %w", err)
	}
	if int64(len(body)) > c.maxBodySize {
		return nil, &BodyTooLargeError{URL: rawURL, Limit: c.maxBodySize}
	}

	if decode {
		body, err = decodeBody(body, resp.Header.Get("Content-Type"))
		if err != nil {
			return nil, err
		}
	}
	c.logger.Debug("ページを取得しました", "url", rawURL, "status", resp.StatusCode, "bytes", len(body))
	return body, nil
}

// decodeBody は、ボディ全体を見て文字コードを判定し UTF-8 に変換します。
// 有効な UTF-8 はそのまま返すため、先頭が ASCII のみの長い UTF-8 本文も壊れません。
func decodeBody(body []byte, contentType string) ([]byte, error) {
	if utf8.Valid(body) {
		return body, nil
	}
	enc, name, _ := charset.DetermineEncoding(body, contentType)
	decoded, err := enc.NewDecoder().Bytes(body)
	if err != nil {
		return nil, fmt.Errorf("文字コード (%s) の変換に失敗しました: %w", name, err)
	}
	return decoded, nil
}

// checkResponseStatus はステータスコードを評価し、2xx 以外をエラーとして返します。
// 呼び出し元が resp.Body.Close() を実行する必要があります。
func checkResponseStatus(resp *http.Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode <= 299 {
		return nil
	}

	bodyBytes, readErr := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyLength+1))

	// 5xx 系と 429: リトライ対象
	if resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests {
		return fmt.Errorf("HTTPステータスコードエラー (リトライ対象): %d", resp.StatusCode)
	}

	// その他 (4xx, 3xx の未解決リダイレクト): 非リトライ対象
	if readErr != nil {
		return &NonRetryableHTTPError{StatusCode: resp.StatusCode}
	}
	return &NonRetryableHTTPError{StatusCode: resp.StatusCode, Body: bodyBytes}
}

// isHTTPRetryableError はエラーがリトライ対象かどうかを判定します。
// retry.ShouldRetryFunc のシグネチャを満たします。
func isHTTPRetryableError(err error) bool {
	if err == nil {
		return false
	}
	// 1. キャンセルはリトライしない（タイムアウトは一時的な障害として扱う）
	if errors.Is(err, context.Canceled) {
		return false
	}
	// 2. 4xx と URL 構文エラー、上限超過のボディはリトライしない
	var tooLarge *BodyTooLargeError
	if IsNonRetryableError(err) || IsInvalidURLError(err) || errors.As(err, &tooLarge) {
		return false
	}
	// 3. 5xx やネットワークエラーはリトライ対象
	return true
}
