package cmd

import (
	"bufio"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/shouni/go-jaundice/internal/pipeline"
)

var rawURL string

var extractCmd = &cobra.Command{
	Use:   "extract",
	Short: "指定されたURLまたは標準入力から記事本文のテキストを抽出します",
	Long:  `設定されたサイト系統の抽出関数で記事本文を取り出して表示します。抽出結果の確認に使います。`,
	Args:  cobra.NoArgs,

	RunE: func(cmd *cobra.Command, args []string) error {
		// 1. 処理対象URLの決定 (フラグ優先)
		urlToProcess := rawURL
		if urlToProcess == "" {
			logger.Info("URLが指定されていないため、標準入力からURLを読み込みます")
			scanner := bufio.NewScanner(cmd.InOrStdin())
			if !scanner.Scan() {
				if err := scanner.Err(); err != nil {
					return fmt.Errorf("標準入力の読み取りエラー: %w", err)
				}
				return fmt.Errorf("URLが入力されていません")
			}
			urlToProcess = strings.TrimSpace(scanner.Text())
		}

		// 2. URLのスキーム補完とバリデーション
		processedURL, err := ensureScheme(urlToProcess)
		if err != nil {
			return fmt.Errorf("URLスキームの処理エラー: %w", err)
		}
		logger.Info("本文を抽出します", "url", processedURL, "family", appConfig.SourceFamily)

		// 3. 依存性の初期化
		p, err := pipeline.Build(appConfig, logger)
		if err != nil {
			return err
		}

		// 4. メインロジックの実行
		text, err := p.Extractor.FetchAndExtractText(cmd.Context(), processedURL)
		if err != nil {
			return fmt.Errorf("コンテンツ抽出エラー (URL: %s): %w", processedURL, err)
		}

		// 5. 結果の出力
		w := cmd.OutOrStdout()
		fmt.Fprintln(w, "--- 抽出された本文 ---")
		fmt.Fprintln(w, text)
		fmt.Fprintln(w, "-----------------------")
		return nil
	},
}

func init() {
	extractCmd.Flags().StringVarP(&rawURL, "url", "u", "", "抽出対象のURL")
}
