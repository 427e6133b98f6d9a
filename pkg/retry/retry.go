package retry

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"
)

const (
	// DefaultMaxRetries は、記事取得の既定の最大リトライ回数です。
	DefaultMaxRetries = 2

	// バックオフの既定値。バッチ全体の所要時間を抑えるため短めにしています。
	InitialBackoffInterval = 200 * time.Millisecond
	MaxBackoffInterval     = 2 * time.Second
)

// Operation はリトライ可能な処理を表す関数です。成功時は nil を返します。
type Operation func() error

// ShouldRetryFunc はエラーがリトライ可能かどうかを判定する関数です。
type ShouldRetryFunc func(error) bool

// Config はリトライ動作の設定です。
type Config struct {
	MaxRetries      uint64
	InitialInterval time.Duration
	MaxInterval     time.Duration
}

// DefaultConfig は既定の設定を返します。
func DefaultConfig() Config {
	return Config{
		MaxRetries:      DefaultMaxRetries,
		InitialInterval: InitialBackoffInterval,
		MaxInterval:     MaxBackoffInterval,
	}
}

// newBackOffPolicy は Config から ctx に紐づいた指数バックオフを生成します。
func newBackOffPolicy(ctx context.Context, cfg Config) backoff.BackOffContext {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = cfg.InitialInterval
	b.MaxInterval = cfg.MaxInterval
	// 経過時間による打ち切りは行わず、回数と ctx で制御する
	b.MaxElapsedTime = 0

	return backoff.WithContext(backoff.WithMaxRetries(b, cfg.MaxRetries), ctx)
}

// Do は指数バックオフで op をリトライします。
// shouldRetryFn が false を返したエラーは即座に返され、それ以上リトライしません。
func Do(ctx context.Context, cfg Config, operationName string, op Operation, shouldRetryFn ShouldRetryFunc) error {
	var (
		lastErr   error
		permanent bool
	)

	retryableOp := func() error {
		err := op()
		if err == nil {
			return nil
		}
		lastErr = err

		if shouldRetryFn(err) {
			return err
		}
		permanent = true
		return backoff.Permanent(err)
	}

	notify := func(err error, wait time.Duration) {
		slog.Debug("一時的なエラーのためリトライします", "operation", operationName, "wait", wait, "err", err)
	}

	err := backoff.RetryNotify(retryableOp, newBackOffPolicy(ctx, cfg), notify)
	if err == nil {
		return nil
	}

	// 1. 致命的なエラーはラップせずにそのまま返す（呼び出し元で errors.As による分類を行うため）
	if permanent {
		return lastErr
	}

	// 2. コンテキストのキャンセル/タイムアウト
	if ctxErr := ctx.Err(); ctxErr != nil {
		if lastErr != nil {
			return fmt.Errorf("%sに失敗しました: コンテキストタイムアウト/キャンセル: %w (最終エラー: %v)", operationName, ctxErr, lastErr)
		}
		return fmt.Errorf("%sに失敗しました: コンテキストタイムアウト/キャンセル: %w", operationName, ctxErr)
	}

	// 3. リトライ上限に到達
	return fmt.Errorf("%sに失敗しました: 最大リトライ回数 (%d回) に到達。最終エラー: %w", operationName, cfg.MaxRetries, lastErr)
}
