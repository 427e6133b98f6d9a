package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/shouni/go-jaundice/internal/config"
	"github.com/shouni/go-jaundice/pkg/types"
)

// RequestIDHeader は、リクエストごとに付与する識別子のヘッダー名です。
const RequestIDHeader = "X-Request-ID"

const shutdownTimeout = 10 * time.Second

// BatchProcessor は、URLのバッチを処理する機能のインターフェースです。
// *scraper.Processor はこのインターフェースを満たします。
type BatchProcessor interface {
	ProcessArticles(ctx context.Context, urls []string) ([]types.ArticleResult, error)
}

type errorResponse struct {
	Error string `json:"error"`
}

// Handler は、記事のスコアリングを行う HTTP エンドポイントです。
type Handler struct {
	processor BatchProcessor
	maxURLs   int
	logger    *slog.Logger
	mux       *http.ServeMux
}

// New は、ルートを登録した Handler を生成します。maxURLs が0以下の場合は既定値を使います。
func New(processor BatchProcessor, maxURLs int, logger *slog.Logger) *Handler {
	if maxURLs <= 0 {
		maxURLs = config.DefaultMaxURLs
	}
	if logger == nil {
		logger = slog.Default()
	}
	h := &Handler{
		processor: processor,
		maxURLs:   maxURLs,
		logger:    logger,
		mux:       http.NewServeMux(),
	}

	h.mux.HandleFunc("/", h.score)
	h.mux.HandleFunc("/healthz", h.health)
	return h
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	requestID := r.Header.Get(RequestIDHeader)
	if requestID == "" {
		requestID = uuid.NewString()
	}
	w.Header().Set(RequestIDHeader, requestID)
	h.mux.ServeHTTP(w, r)
}

// --- route handlers ---------------------------------------------------------

// score は GET /?urls=u1,u2 を処理し、URLごとの結果をJSON配列で返します。
func (h *Handler) score(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		jsonErr(w, http.StatusNotFound, "not found")
		return
	}
	if r.Method != http.MethodGet {
		jsonErr(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	urls := ParseURLs(r.URL.Query()["urls"]...)
	if len(urls) > h.maxURLs {
		jsonErr(w, http.StatusBadRequest, fmt.Sprintf("too many urls in request, should be %d or less", h.maxURLs))
		return
	}

	logger := h.logger.With("request_id", w.Header().Get(RequestIDHeader))
	results, err := h.processor.ProcessArticles(r.Context(), urls)
	if err != nil {
		logger.Error("バッチ処理に失敗しました", "err", err)
		jsonErr(w, http.StatusInternalServerError, "internal server error")
		return
	}
	logger.Info("リクエストを処理しました", "urls", len(urls))
	jsonResp(w, http.StatusOK, results)
}

func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	jsonResp(w, http.StatusOK, map[string]string{"status": "ok"})
}

// ParseURLs は、カンマまたは空白で区切られたURLのリストを分割します。空の要素は除きます。
func ParseURLs(values ...string) []string {
	urls := []string{}
	for _, v := range values {
		fields := strings.FieldsFunc(v, func(r rune) bool {
			return r == ',' || r == ' ' || r == '\t' || r == '\n' || r == '\r'
		})
		urls = append(urls, fields...)
	}
	return urls
}

func jsonResp(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v) //nolint:errcheck
}

func jsonErr(w http.ResponseWriter, code int, msg string) {
	jsonResp(w, code, errorResponse{Error: msg})
}

// ListenAndServe は ctx がキャンセルされるまでサーバーを実行し、その後グレースフルに停止します。
func ListenAndServe(ctx context.Context, addr string, handler http.Handler, logger *slog.Logger) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("HTTPサーバーを起動します", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("HTTPサーバーの起動に失敗しました: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("HTTPサーバーを停止します")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
