package pipeline

import (
	"fmt"
	"log/slog"

	"github.com/shouni/go-http-kit/pkg/httpkit"

	"github.com/shouni/go-jaundice/internal/config"
	"github.com/shouni/go-jaundice/pkg/extract"
	"github.com/shouni/go-jaundice/pkg/httpclient"
	"github.com/shouni/go-jaundice/pkg/scraper"
)

// Pipeline は、設定から組み立てたバッチ処理の構成要素です。
type Pipeline struct {
	Client    *httpclient.Client
	Extractor *extract.Extractor
	Processor *scraper.Processor
	Resources *Resources
}

// NewClient は、設定に従って記事取得用の HTTP クライアントを生成します。
func NewClient(cfg *config.Config, logger *slog.Logger) *httpclient.Client {
	options := []httpclient.Option{
		httpclient.WithMaxRetries(cfg.HTTP.MaxRetries),
		httpclient.WithLogger(logger),
	}
	if cfg.HTTP.RateLimit > 0 {
		options = append(options, httpclient.WithRateLimit(cfg.HTTP.RateLimit, cfg.HTTP.RateBurst))
	}
	return httpclient.New(cfg.HTTP.Timeout, options...)
}

// NewFeedClient は、フィード取得用のクライアントを生成します。
// フィードは XML のバイト列をそのまま gofeed に渡すため、文字コードの変換やレート制限は行いません。
func NewFeedClient(cfg *config.Config) *httpkit.Client {
	return httpkit.New(cfg.HTTP.Timeout, httpkit.WithMaxRetries(cfg.HTTP.MaxRetries))
}

// Build は、設定から Pipeline を組み立てます。
// 辞書ファイルはここでは読まず、最初のバッチの開始時に読み込まれます。
func Build(cfg *config.Config, logger *slog.Logger) (*Pipeline, error) {
	if logger == nil {
		logger = slog.Default()
	}

	// 1. サイト系統に対応する抽出関数
	fn, err := extract.DefaultRegistry().Get(cfg.SourceFamily)
	if err != nil {
		return nil, fmt.Errorf("抽出関数の取得に失敗しました: %w", err)
	}

	// 2. Fetcher と Extractor (DI)
	client := NewClient(cfg, logger)
	extractor, err := extract.NewExtractor(client, fn)
	if err != nil {
		return nil, fmt.Errorf("Extractorの初期化エラー: %w", err)
	}

	// 3. 共有リソースと Processor
	resources := NewResources(cfg.ChargedDictDir, cfg.LemmaFile, logger)
	processor, err := scraper.NewProcessor(extractor, resources,
		scraper.WithMaxConcurrency(cfg.MaxConcurrency),
		scraper.WithTokenizeTimeout(cfg.TokenizeTimeout),
		scraper.WithLogger(logger),
	)
	if err != nil {
		return nil, fmt.Errorf("Processorの初期化エラー: %w", err)
	}

	return &Pipeline{
		Client:    client,
		Extractor: extractor,
		Processor: processor,
		Resources: resources,
	}, nil
}
