package text

import (
	"context"
	"log/slog"
	"runtime"
	"strings"
	"time"

	"github.com/shouni/go-jaundice/pkg/morph"
)

const (
	// DefaultTimeout は、1記事の単語分割に許される既定の処理時間です。
	DefaultTimeout = 3 * time.Second

	// CheckEvery は、経過時間の確認と譲歩（yield）を行うトークン間隔です。
	// 毎トークンで時計を読むと正規化よりも計測のコストが支配的になるため、間引いて確認します。
	CheckEvery = 2000
)

// Split は SplitByWords の結果です。
// TimedOut が true の場合、Words は空で、処理は制限時間を超えて打ち切られています。
type Split struct {
	Words    []string
	TimedOut bool
	Elapsed  time.Duration
}

// Tokenizer は、本文を正規化された単語リストに変換します。
// Normalizer を共有するだけで内部状態を持たないため、並行利用が可能です。
type Tokenizer struct {
	normalizer morph.Normalizer
	timeout    time.Duration
	now        func() time.Time
	logger     *slog.Logger
}

// Option は Tokenizer の設定を行うための関数型です。
type Option func(*Tokenizer)

// WithTimeout は、単語分割の制限時間を設定します。0以下の場合は DefaultTimeout を使います。
func WithTimeout(timeout time.Duration) Option {
	return func(t *Tokenizer) {
		if timeout > 0 {
			t.timeout = timeout
		}
	}
}

// WithClock は、経過時間の計測に使う時計を差し替えます（テスト用）。
func WithClock(now func() time.Time) Option {
	return func(t *Tokenizer) {
		t.now = now
	}
}

// WithLogger は、ロガーを設定します。
func WithLogger(logger *slog.Logger) Option {
	return func(t *Tokenizer) {
		t.logger = logger
	}
}

// NewTokenizer は、Normalizer を受け取って Tokenizer を初期化します。
func NewTokenizer(normalizer morph.Normalizer, options ...Option) *Tokenizer {
	if normalizer == nil {
		normalizer = morph.Lowercase{}
	}
	t := &Tokenizer{
		normalizer: normalizer,
		timeout:    DefaultTimeout,
		now:        time.Now,
		logger:     slog.Default(),
	}
	for _, opt := range options {
		opt(t)
	}
	return t
}

// Timeout は、設定されている制限時間を返します。
func (t *Tokenizer) Timeout() time.Duration {
	return t.timeout
}

// SplitByWords は、本文を空白で分割し、記号の除去・正規化・短い単語の除外を行います。
// 経過時間は CheckEvery トークンごとにのみ確認され、その都度ほかのゴルーチンに実行を譲ります。
// 制限時間の超過は error ではなく Split.TimedOut で返します。
// error を返すのは ctx がキャンセルされた場合のみです。
func (t *Tokenizer) SplitByWords(ctx context.Context, text string) (Split, error) {
	var (
		words   []string
		elapsed time.Duration
		index   int
	)
	start := t.now()

	for token := range strings.FieldsSeq(text) {
		lemma := t.normalizer.Lemma(CleanWord(token))
		if keepLemma(lemma) {
			words = append(words, lemma)
		}

		if index%CheckEvery == 0 {
			elapsed += t.now().Sub(start)
			if elapsed > t.timeout {
				t.logger.Debug("単語分割が制限時間を超えました", "elapsed", elapsed, "timeout", t.timeout, "tokens", index+1)
				return Split{TimedOut: true, Elapsed: elapsed}, nil
			}

			// 1. 他のワーカー（I/O待ちなど）に実行を譲る
			runtime.Gosched()
			// 2. 呼び出し元のキャンセルを確認
			if err := ctx.Err(); err != nil {
				return Split{Elapsed: elapsed}, err
			}
			// 譲っていた時間は計測に含めない
			start = t.now()
		}
		index++
	}

	elapsed += t.now().Sub(start)
	t.logger.Debug("分析が完了しました", "elapsed", elapsed, "tokens", index, "words", len(words))

	if words == nil {
		words = []string{}
	}
	return Split{Words: words, Elapsed: elapsed}, nil
}
