package cmd

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/shouni/go-jaundice/internal/pipeline"
	"github.com/shouni/go-jaundice/pkg/types"
)

// コマンドラインフラグ変数を定義
var (
	inputURLs   string // --urls フラグで受け取るカンマ区切りのURLリスト
	concurrency int    // --concurrency フラグで受け取る並列実行数
	jsonOutput  bool   // --json フラグ
)

var scoreCmd = &cobra.Command{
	Use:   "score [URL...]",
	Short: "複数の記事URLを並列に評価し、黄色度スコアを出力します",
	Long: `--urls フラグのカンマ区切りリスト、位置引数、または標準入力（1行1URL）からURLを受け取り、
記事ごとのステータス、スコア、単語数を出力します。`,

	RunE: func(cmd *cobra.Command, args []string) error {
		// 1. 処理対象URLのリストを決定
		urls, err := collectURLs(inputURLs, args, cmd.InOrStdin())
		if err != nil {
			return err
		}
		if len(urls) == 0 {
			return fmt.Errorf("処理対象のURLが一つも指定されていません")
		}

		// 2. 依存性の初期化
		if cmd.Flags().Changed("concurrency") {
			appConfig.MaxConcurrency = concurrency
		}
		p, err := pipeline.Build(appConfig, logger)
		if err != nil {
			return err
		}

		// 3. メインロジックの実行
		results, err := p.Processor.ProcessArticles(cmd.Context(), urls)
		if err != nil {
			return err
		}

		// 4. 結果の出力
		if jsonOutput {
			return writeJSON(cmd.OutOrStdout(), results)
		}
		writeReport(cmd.OutOrStdout(), results)
		return nil
	},
}

// collectURLs は、フラグ、位置引数、標準入力の順に処理対象のURLを決定します。
// 重複したURLもそのまま残します。
func collectURLs(flagValue string, args []string, stdin io.Reader) ([]string, error) {
	var urls []string
	for _, u := range strings.Split(flagValue, ",") {
		if u = strings.TrimSpace(u); u != "" {
			urls = append(urls, u)
		}
	}
	for _, u := range args {
		if u = strings.TrimSpace(u); u != "" {
			urls = append(urls, u)
		}
	}
	if len(urls) > 0 {
		return urls, nil
	}

	logger.Info("URLが指定されていないため、標準入力からURLを読み込みます (Ctrl+DまたはEOFで終了)")
	scanner := bufio.NewScanner(stdin)
	for scanner.Scan() {
		if u := strings.TrimSpace(scanner.Text()); u != "" {
			urls = append(urls, u)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("標準入力の読み取りエラー: %w", err)
	}
	return urls, nil
}

func writeJSON(w io.Writer, results []types.ArticleResult) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(results)
}

// writeReport は、評価結果を人が読む形式で出力します。
func writeReport(w io.Writer, results []types.ArticleResult) {
	fmt.Fprintln(w, "--- 黄色度の評価結果 ---")

	okCount := 0
	for i, res := range results {
		fmt.Fprintf(w, "[%d] URL: %s\n", i+1, res.URL)
		fmt.Fprintf(w, "    Статус: %s\n", res.Status)
		if res.OK() {
			okCount++
			fmt.Fprintf(w, "    Рейтинг: %.2f\n", *res.Score)
			fmt.Fprintf(w, "    Слов в статье: %d\n", *res.WordsCount)
		} else {
			fmt.Fprintln(w, "    Рейтинг: None")
			fmt.Fprintln(w, "    Слов в статье: None")
		}
	}

	fmt.Fprintln(w, "-------------------------------")
	fmt.Fprintf(w, "完了: 成功 %d 件, 失敗 %d 件\n", okCount, len(results)-okCount)
}

func init() {
	scoreCmd.Flags().StringVarP(&inputURLs, "urls", "u", "",
		"評価対象のカンマ区切りURLリスト (例: url1,url2,url3)")
	scoreCmd.Flags().IntVarP(&concurrency, "concurrency", "c", 0,
		"最大並列実行数 (0 は上限なし)")
	scoreCmd.Flags().BoolVar(&jsonOutput, "json", false, "結果をJSON配列で出力する")
}
