package scraper

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/shouni/go-jaundice/pkg/charged"
	"github.com/shouni/go-jaundice/pkg/morph"
	"github.com/shouni/go-jaundice/pkg/text"
	"github.com/shouni/go-jaundice/pkg/types"
)

// DefaultMaxConcurrency は、同時に処理する記事数の既定の上限です。0 は上限なしを意味します。
const DefaultMaxConcurrency = 0

// TextSource は、URLから本文テキストを取得する機能のインターフェースです。
// *extract.Extractor はこのインターフェースを満たします。
type TextSource interface {
	FetchAndExtractText(ctx context.Context, url string) (string, error)
}

// Resources は、バッチ内のすべてのワーカーが読み取り専用で共有するリソースです。
type Resources struct {
	Normalizer morph.Normalizer
	Charged    charged.Set
}

// ResourceProvider は、バッチ開始時に共有リソースを提供します。
// エラーは設定の不備を意味し、バッチ全体が失敗します。
type ResourceProvider interface {
	Resources() (Resources, error)
}

// StaticResources は、生成済みのリソースをそのまま返す ResourceProvider です。
type StaticResources Resources

// Resources は ResourceProvider インターフェースを満たします。
func (r StaticResources) Resources() (Resources, error) {
	return Resources(r), nil
}

// Processor は、記事URLのバッチを並列に取得・解析・スコアリングします。
type Processor struct {
	source           TextSource
	resources        ResourceProvider
	maxConcurrency   int
	tokenizeTimeout  time.Duration
	tokenizerOptions []text.Option
	logger           *slog.Logger
}

// Option は Processor の設定を行うための関数です。
type Option func(*Processor)

// WithMaxConcurrency は、同時に処理する記事数の上限を設定します。0 以下は上限なしです。
func WithMaxConcurrency(n int) Option {
	return func(p *Processor) {
		if n < 0 {
			n = 0
		}
		p.maxConcurrency = n
	}
}

// WithTokenizeTimeout は、記事ごとの単語分割の制限時間を設定します。
func WithTokenizeTimeout(timeout time.Duration) Option {
	return func(p *Processor) {
		if timeout > 0 {
			p.tokenizeTimeout = timeout
		}
	}
}

// WithTokenizerOptions は、記事ごとに生成する Tokenizer に追加のオプションを渡します。
func WithTokenizerOptions(options ...text.Option) Option {
	return func(p *Processor) {
		p.tokenizerOptions = append(p.tokenizerOptions, options...)
	}
}

// WithLogger は、ログ出力先を設定します。
func WithLogger(logger *slog.Logger) Option {
	return func(p *Processor) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// NewProcessor は Processor を初期化します。
func NewProcessor(source TextSource, resources ResourceProvider, options ...Option) (*Processor, error) {
	if source == nil {
		return nil, errors.New("scraper.NewProcessor: TextSource cannot be nil")
	}
	if resources == nil {
		return nil, errors.New("scraper.NewProcessor: ResourceProvider cannot be nil")
	}

	p := &Processor{
		source:          source,
		resources:       resources,
		maxConcurrency:  DefaultMaxConcurrency,
		tokenizeTimeout: text.DefaultTimeout,
		logger:          slog.Default(),
	}
	for _, opt := range options {
		opt(p)
	}
	return p, nil
}

// ProcessArticles は、すべてのURLを並列に処理し、入力と同じ順序・同じ件数の結果を返します。
// 個々のURLの失敗は結果のステータスで表され、error を返すのは共有リソースの初期化に失敗した場合のみです。
func (p *Processor) ProcessArticles(ctx context.Context, urls []string) ([]types.ArticleResult, error) {
	// 1. 共有リソースの取得（ワーカーの起動前）
	res, err := p.resources.Resources()
	if err != nil {
		return nil, fmt.Errorf("共有リソースの初期化に失敗しました: %w", err)
	}

	batchID := uuid.NewString()
	logger := p.logger.With("batch_id", batchID)
	logger.Info("バッチ処理を開始します", "urls", len(urls), "charged_words", res.Charged.Len(), "max_concurrency", p.maxConcurrency)
	start := time.Now()

	// 2. URLごとにワーカーを起動。各ワーカーは自分の添字の要素にだけ書き込む
	results := make([]types.ArticleResult, len(urls))

	var semaphore chan struct{}
	if p.maxConcurrency > 0 {
		semaphore = make(chan struct{}, p.maxConcurrency)
	}

	var wg sync.WaitGroup
	for i, rawURL := range urls {
		wg.Add(1)
		go func() {
			defer wg.Done()

			if semaphore != nil {
				select {
				case semaphore <- struct{}{}:
					defer func() { <-semaphore }()
				case <-ctx.Done():
					results[i] = types.NewFailedResult(rawURL, types.StatusTimeout)
					return
				}
			}

			results[i] = p.processArticle(ctx, logger, res, rawURL)
		}()
	}

	// 3. すべてのワーカーの完了を待つ
	wg.Wait()

	logger.Info("バッチ処理が完了しました", "urls", len(urls), "ok", countOK(results), "elapsed", time.Since(start))
	return results, nil
}

func countOK(results []types.ArticleResult) int {
	n := 0
	for _, r := range results {
		if r.OK() {
			n++
		}
	}
	return n
}
