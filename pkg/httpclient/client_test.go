package httpclient

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/encoding/charmap"

	"github.com/shouni/go-jaundice/pkg/retry"
)

// MockHTTPClient は Doer インターフェースを満たすモックです。
type MockHTTPClient struct {
	mock.Mock
}

func (m *MockHTTPClient) Do(req *http.Request) (*http.Response, error) {
	args := m.Called(req)
	err := args.Error(1)
	if args.Get(0) != nil {
		return args.Get(0).(*http.Response), err
	}
	return nil, err
}

var fastRetry = retry.Config{MaxRetries: 2, InitialInterval: time.Millisecond, MaxInterval: 2 * time.Millisecond}

func newResponse(status int, body string) *http.Response {
	return &http.Response{
		StatusCode: status,
		Header:     http.Header{"Content-Type": []string{"text/plain; charset=utf-8"}},
		Body:       io.NopCloser(strings.NewReader(body)),
	}
}

func TestNew(t *testing.T) {
	t.Run("default timeout", func(t *testing.T) {
		client := New(0)
		assert.Equal(t, DefaultHTTPTimeout, client.httpClient.(*http.Client).Timeout)
	})
	t.Run("custom timeout", func(t *testing.T) {
		client := New(30 * time.Second)
		assert.Equal(t, 30*time.Second, client.httpClient.(*http.Client).Timeout)
	})
	t.Run("with options", func(t *testing.T) {
		mockClient := new(MockHTTPClient)
		client := New(time.Second, WithHTTPClient(mockClient), WithMaxRetries(5), WithRateLimit(2, 0))
		assert.Equal(t, mockClient, client.httpClient)
		assert.Equal(t, uint64(5), client.retryConfig.MaxRetries)
		require.NotNil(t, client.limiter)
		assert.Equal(t, 1, client.limiter.Burst())
	})
	t.Run("max body size", func(t *testing.T) {
		assert.Equal(t, MaxBodySize, New(time.Second).maxBodySize)
		assert.Equal(t, int64(64), New(time.Second, WithMaxBodySize(64)).maxBodySize)
		assert.Equal(t, MaxBodySize, New(time.Second, WithMaxBodySize(0)).maxBodySize)
	})
	t.Run("zero rate limit disables limiter", func(t *testing.T) {
		client := New(time.Second, WithRateLimit(0, 10))
		assert.Nil(t, client.limiter)
	})
}

func TestNonRetryableHTTPError_Error(t *testing.T) {
	tests := []struct {
		name     string
		body     []byte
		expected string
	}{
		{"non-empty body", []byte("error body"), "HTTPクライアントエラー (非リトライ対象): ステータスコード 404, ボディ: error body"},
		{"empty body", nil, "HTTPクライアントエラー (非リトライ対象): ステータスコード 404, ボディなし"},
		{"truncated body", []byte(strings.Repeat("a", 1025)), "HTTPクライアントエラー (非リトライ対象): ステータスコード 404, ボディ: " + strings.Repeat("a", 1024) + "..."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := &NonRetryableHTTPError{StatusCode: 404, Body: tt.body}
			assert.Equal(t, tt.expected, err.Error())
		})
	}
}

func TestValidateURL(t *testing.T) {
	tests := []struct {
		name    string
		url     string
		wantErr bool
	}{
		{"https", "https://inosmi.ru/20211116/250914886.html", false},
		{"http", "http://example.com/a.txt", false},
		{"no scheme", "inosmi.ru/not/exist.html", true},
		{"ftp scheme", "ftp://example.com/file.txt", true},
		{"no host", "https:///path", true},
		{"garbage", "http://[::1", true},
		{"empty", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ValidateURL(tt.url)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, IsInvalidURLError(err))
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestFetchText_Success(t *testing.T) {
	mockClient := new(MockHTTPClient)
	mockClient.On("Do", mock.Anything).Return(newResponse(http.StatusOK, "Привет, мир"), nil).Once()

	client := New(time.Second, WithHTTPClient(mockClient), WithRetryConfig(fastRetry))
	text, err := client.FetchText(context.Background(), "https://example.com/a.txt")

	require.NoError(t, err)
	assert.Equal(t, "Привет, мир", text)
	mockClient.AssertExpectations(t)
}

func TestFetchText_SetsUserAgent(t *testing.T) {
	mockClient := new(MockHTTPClient)
	mockClient.On("Do", mock.MatchedBy(func(req *http.Request) bool {
		return req.Header.Get("User-Agent") == UserAgent && req.Method == http.MethodGet
	})).Return(newResponse(http.StatusOK, "ok"), nil).Once()

	client := New(time.Second, WithHTTPClient(mockClient))
	_, err := client.FetchText(context.Background(), "https://example.com/")
	require.NoError(t, err)
	mockClient.AssertExpectations(t)
}

func TestFetchText_NotFoundIsNotRetried(t *testing.T) {
	mockClient := new(MockHTTPClient)
	mockClient.On("Do", mock.Anything).Return(newResponse(http.StatusNotFound, "not found"), nil).Once()

	client := New(time.Second, WithHTTPClient(mockClient), WithRetryConfig(fastRetry))
	_, err := client.FetchText(context.Background(), "https://inosmi.ru/not/exist.html")

	require.Error(t, err)
	var httpErr *NonRetryableHTTPError
	require.True(t, errors.As(err, &httpErr))
	assert.Equal(t, http.StatusNotFound, httpErr.StatusCode)
	mockClient.AssertNumberOfCalls(t, "Do", 1)
}

func TestFetchText_ServerErrorIsRetried(t *testing.T) {
	mockClient := new(MockHTTPClient)
	mockClient.On("Do", mock.Anything).Return(newResponse(http.StatusBadGateway, "bad gateway"), nil).Twice()
	mockClient.On("Do", mock.Anything).Return(newResponse(http.StatusOK, "восстановлено"), nil).Once()

	client := New(time.Second, WithHTTPClient(mockClient), WithRetryConfig(fastRetry))
	text, err := client.FetchText(context.Background(), "https://example.com/flaky")

	require.NoError(t, err)
	assert.Equal(t, "восстановлено", text)
	mockClient.AssertNumberOfCalls(t, "Do", 3)
}

func TestFetchText_NetworkErrorExhaustsRetries(t *testing.T) {
	mockClient := new(MockHTTPClient)
	mockClient.On("Do", mock.Anything).Return(nil, errors.New("connection refused"))

	client := New(time.Second, WithHTTPClient(mockClient), WithRetryConfig(fastRetry))
	_, err := client.FetchText(context.Background(), "https://example.com/down")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "最大リトライ回数")
	assert.False(t, IsNonRetryableError(err))
	mockClient.AssertNumberOfCalls(t, "Do", int(fastRetry.MaxRetries)+1)
}

func TestFetchText_InvalidURLDoesNotHitNetwork(t *testing.T) {
	mockClient := new(MockHTTPClient)

	client := New(time.Second, WithHTTPClient(mockClient))
	_, err := client.FetchText(context.Background(), "not a url")

	require.Error(t, err)
	assert.True(t, IsInvalidURLError(err))
	mockClient.AssertNotCalled(t, "Do", mock.Anything)
}

func TestFetchText_DecodesCharset(t *testing.T) {
	encoded, err := charmap.Windows1251.NewEncoder().String("Заряженные слова")
	require.NoError(t, err)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=windows-1251")
		_, _ = io.WriteString(w, encoded)
	}))
	defer server.Close()

	client := New(time.Second)
	text, err := client.FetchText(context.Background(), server.URL+"/article.txt")
	require.NoError(t, err)
	assert.Equal(t, "Заряженные слова", text)

	raw, err := client.FetchBytes(context.Background(), server.URL+"/article.txt")
	require.NoError(t, err)
	assert.Equal(t, []byte(encoded), raw)
}

func TestFetchText_LongASCIIPrefixUTF8(t *testing.T) {
	// 先頭 2400 バイトが ASCII のみで、Content-Type に charset がない UTF-8 本文
	body := strings.Repeat("a ", 1200) + "аутсайдер банкротство"

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		_, _ = io.WriteString(w, body)
	}))
	defer server.Close()

	text, err := New(time.Second).FetchText(context.Background(), server.URL+"/article.txt")
	require.NoError(t, err)
	assert.Equal(t, body, text)
}

func TestFetchText_BodyTooLarge(t *testing.T) {
	mockClient := new(MockHTTPClient)
	mockClient.On("Do", mock.Anything).Return(newResponse(http.StatusOK, strings.Repeat("х", 40)), nil).Once()

	client := New(time.Second, WithHTTPClient(mockClient), WithRetryConfig(fastRetry), WithMaxBodySize(64))
	_, err := client.FetchText(context.Background(), "https://example.com/huge.txt")

	require.Error(t, err)
	var tooLarge *BodyTooLargeError
	require.True(t, errors.As(err, &tooLarge))
	assert.Equal(t, int64(64), tooLarge.Limit)
	assert.Contains(t, err.Error(), "https://example.com/huge.txt")
	mockClient.AssertNumberOfCalls(t, "Do", 1)
}

func TestFetchText_BodyAtLimit(t *testing.T) {
	body := strings.Repeat("x", 64)
	mockClient := new(MockHTTPClient)
	mockClient.On("Do", mock.Anything).Return(newResponse(http.StatusOK, body), nil).Once()

	client := New(time.Second, WithHTTPClient(mockClient), WithRetryConfig(fastRetry), WithMaxBodySize(64))
	text, err := client.FetchText(context.Background(), "https://example.com/exact.txt")

	require.NoError(t, err)
	assert.Equal(t, body, text)
}

func TestFetchText_RateLimit(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		_, _ = io.WriteString(w, "ok")
	}))
	defer server.Close()

	client := New(time.Second, WithRateLimit(20, 1))

	start := time.Now()
	for i := 0; i < 3; i++ {
		_, err := client.FetchText(context.Background(), server.URL)
		require.NoError(t, err)
	}
	// バースト1・秒間20件なので、3件目までに少なくとも約100msかかる
	assert.GreaterOrEqual(t, time.Since(start), 90*time.Millisecond)
	assert.Equal(t, int32(3), hits.Load())
}

func TestIsHTTPRetryableError(t *testing.T) {
	assert.False(t, isHTTPRetryableError(nil))
	assert.False(t, isHTTPRetryableError(context.Canceled))
	assert.False(t, isHTTPRetryableError(&NonRetryableHTTPError{StatusCode: 404}))
	assert.False(t, isHTTPRetryableError(&InvalidURLError{URL: "x", Err: errors.New("bad")}))
	assert.False(t, isHTTPRetryableError(&BodyTooLargeError{URL: "x", Limit: 1}))
	assert.True(t, isHTTPRetryableError(context.DeadlineExceeded))
	assert.True(t, isHTTPRetryableError(errors.New("connection reset")))
}
