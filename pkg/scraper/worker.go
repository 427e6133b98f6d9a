package scraper

import (
	"context"
	"log/slog"
	"time"

	"github.com/shouni/go-jaundice/pkg/extract"
	"github.com/shouni/go-jaundice/pkg/httpclient"
	"github.com/shouni/go-jaundice/pkg/morph"
	"github.com/shouni/go-jaundice/pkg/text"
	"github.com/shouni/go-jaundice/pkg/types"
)

// ProcessArticle は、1つのURLを取得・解析・スコアリングします。
// 失敗はすべて結果のステータスとして返し、error や panic にはしません。
func (p *Processor) ProcessArticle(ctx context.Context, res Resources, rawURL string) types.ArticleResult {
	return p.processArticle(ctx, p.logger, res, rawURL)
}

func (p *Processor) processArticle(ctx context.Context, logger *slog.Logger, res Resources, rawURL string) types.ArticleResult {
	start := time.Now()
	result, err := p.analyze(ctx, res, rawURL)

	attrs := []any{"url", rawURL, "status", result.Status, "duration", time.Since(start)}
	if err != nil {
		logger.Warn("記事の処理に失敗しました", append(attrs, "err", err)...)
		return result
	}
	logger.Info("記事を処理しました", append(attrs, "score", *result.Score, "words_count", *result.WordsCount)...)
	return result
}

// analyze は記事の処理本体です。返す error はログ出力のためだけに使います。
func (p *Processor) analyze(ctx context.Context, res Resources, rawURL string) (types.ArticleResult, error) {
	// 1. URLの検証
	if _, err := httpclient.ValidateURL(rawURL); err != nil {
		return types.NewFailedResult(rawURL, types.StatusInvalidURL), err
	}

	// 2. 取得と本文抽出
	body, err := p.source.FetchAndExtractText(ctx, rawURL)
	if err != nil {
		return types.NewFailedResult(rawURL, classifyError(ctx, err)), err
	}

	// 3. 単語分割（制限時間付き）
	split, err := p.newTokenizer(res.Normalizer).SplitByWords(ctx, body)
	if err != nil {
		return types.NewFailedResult(rawURL, types.StatusTimeout), err
	}
	if split.TimedOut {
		return types.NewFailedResult(rawURL, types.StatusTimeout), context.DeadlineExceeded
	}

	// 4. スコアリング
	score := text.CalculateJaundiceRate(split.Words, res.Charged)
	return types.NewOKResult(rawURL, score, len(split.Words)), nil
}

// classifyError は、取得・抽出のエラーを結果のステータスに変換します。
func classifyError(ctx context.Context, err error) types.Status {
	switch {
	case httpclient.IsInvalidURLError(err):
		return types.StatusInvalidURL
	case extract.IsExtractionError(err):
		return types.StatusParsingError
	case ctx.Err() != nil:
		// 呼び出し元のキャンセル・期限切れ
		return types.StatusTimeout
	default:
		return types.StatusFetchError
	}
}

func (p *Processor) newTokenizer(normalizer morph.Normalizer) *text.Tokenizer {
	options := []text.Option{text.WithTimeout(p.tokenizeTimeout), text.WithLogger(p.logger)}
	options = append(options, p.tokenizerOptions...)
	return text.NewTokenizer(normalizer, options...)
}
