package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/shouni/go-jaundice/internal/pipeline"
	"github.com/shouni/go-jaundice/pkg/feed"
)

// フィードURLを保持するフラグ変数
var (
	feedURL   string
	feedLimit int
	feedList  bool
)

var feedCmd = &cobra.Command{
	Use:   "feed",
	Short: "RSS/Atomフィードの記事を取得し、黄色度を評価します",
	Long: `指定されたURLからRSSまたはAtomフィードを取得し、各記事のリンクをバッチとして評価します。
--list を指定した場合は評価を行わず、記事の一覧のみを表示します。`,
	Args: cobra.NoArgs,

	RunE: func(cmd *cobra.Command, args []string) error {
		processedURL, err := ensureScheme(feedURL)
		if err != nil {
			return fmt.Errorf("URLスキームの処理エラー: %w", err)
		}
		logger.Info("フィードを取得します", "url", processedURL, "limit", feedLimit)

		// 1. 依存性の初期化
		parser := feed.NewParser(pipeline.NewFeedClient(appConfig))
		w := cmd.OutOrStdout()

		// 2. 一覧表示のみ
		if feedList {
			parsedFeed, err := parser.FetchAndParse(cmd.Context(), processedURL)
			if err != nil {
				return err
			}
			fmt.Fprintln(w, "--- フィード解析結果 ---")
			fmt.Fprintf(w, "フィードタイトル: %s\n", parsedFeed.Title)
			fmt.Fprintf(w, "合計記事数: %d\n", len(parsedFeed.Items))
			fmt.Fprintln(w, "-----------------------")
			for i, link := range feed.GetAllLinks(feed.NewFeedAdapter(parsedFeed)) {
				fmt.Fprintf(w, "[%d] %s\n", i+1, link)
			}
			return nil
		}

		// 3. 記事URLの評価
		urls, err := parser.FetchArticleURLs(cmd.Context(), processedURL, feedLimit)
		if err != nil {
			return err
		}
		if len(urls) == 0 {
			return fmt.Errorf("フィードに記事のリンクがありません: %s", processedURL)
		}

		p, err := pipeline.Build(appConfig, logger)
		if err != nil {
			return err
		}
		results, err := p.Processor.ProcessArticles(cmd.Context(), urls)
		if err != nil {
			return err
		}

		if jsonOutput {
			return writeJSON(w, results)
		}
		writeReport(w, results)
		return nil
	},
}

func init() {
	feedCmd.Flags().StringVarP(&feedURL, "url", "u", "", "解析対象のフィード (RSS/Atom) URL")
	feedCmd.Flags().IntVarP(&feedLimit, "limit", "n", 10, "評価する記事数の上限 (0 はすべて)")
	feedCmd.Flags().BoolVar(&feedList, "list", false, "評価せずに記事の一覧のみを表示する")
	feedCmd.Flags().BoolVar(&jsonOutput, "json", false, "結果をJSON配列で出力する")
	feedCmd.MarkFlagRequired("url")
}
