package cmd

import (
	"github.com/spf13/cobra"

	"github.com/shouni/go-jaundice/internal/pipeline"
	"github.com/shouni/go-jaundice/internal/server"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "記事を評価するHTTPエンドポイントを起動します",
	Long: `GET /?urls=url1,url2 を受け付け、記事ごとの評価結果をJSON配列で返します。
設定 watch_dictionary が有効な場合、扇情語辞書ディレクトリの変更を監視して再読み込みします。`,
	Args: cobra.NoArgs,

	RunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Flags().Changed("addr") {
			appConfig.Server.Addr = serveAddr
		}

		p, err := pipeline.Build(appConfig, logger)
		if err != nil {
			return err
		}

		// 辞書の読み込みエラーは起動時に検出する
		if _, err := p.Resources.Resources(); err != nil {
			return err
		}

		ctx := cmd.Context()
		if appConfig.WatchDictionary {
			store, err := p.Resources.Store()
			if err != nil {
				return err
			}
			go func() {
				if err := store.Watch(ctx, logger); err != nil {
					logger.Error("辞書ディレクトリの監視を終了しました", "err", err)
				}
			}()
		}

		handler := server.New(p.Processor, appConfig.Server.MaxURLs, logger)
		return server.ListenAndServe(ctx, appConfig.Server.Addr, handler, logger)
	},
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "待ち受けアドレス (例: :8080)")
}
