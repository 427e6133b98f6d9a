package cmd

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	clibase "github.com/shouni/go-cli-base"
	"github.com/spf13/cobra"

	"github.com/shouni/go-jaundice/internal/config"
)

// --- グローバル定数 ---

const appName = "jaundice"

// ログ出力形式
const (
	LogFormatText = "text"
	LogFormatJSON = "json"
)

// --- グローバル変数とフラグ構造体 ---

// AppFlags はこのアプリケーション固有の永続フラグを保持
// --config と --verbose は clibase.Flags が保持します。
type AppFlags struct {
	Timeout    time.Duration // --timeout HTTPリクエストのタイムアウト
	MaxRetries uint64        // --max-retries リトライ回数
	Family     string        // --family 本文抽出のサイト系統
	LogFormat  string        // --log-format text|json
}

var Flags AppFlags

var (
	appConfig *config.Config
	logger    = slog.Default()
)

// rootCmd は clibase が生成し、共通フラグ (--config, --verbose) と PersistentPreRunE のチェーンを持ちます。
var rootCmd = newRootCmd()

const rootLong = `記事のURLを並列に取得し、本文を抽出して単語に分割し、扇情的な語の割合をスコアとして出力します。
score（バッチ評価）、serve（HTTPエンドポイント）、feed（RSS/Atomフィードの記事を評価）、extract（本文の抽出確認）を実行します。

辞書の配置:
  charged_dict/        扇情的な語の辞書ディレクトリ (既定値、JAUNDICE_CHARGED_DIR で変更可)
    negative_words.txt UTF-8、空白または改行区切りの語。ディレクトリ内のすべてのファイルの和集合が辞書になります
    positive_words.txt
  lemma_dict/lemmas.tsv  レンマ辞書 (任意、JAUNDICE_LEMMA_FILE で指定)
                       1行に「語形<TAB>レンマ」。# で始まる行は無視されます

リポジトリには charged_dict/ と lemma_dict/ にサンプル辞書が含まれています。`

func newRootCmd() *cobra.Command {
	cmd := clibase.NewRootCmd(appName, addAppPersistentFlags, initAppPreRunE)
	cmd.Short = "ニュース記事の「黄色度」（扇情的な語の割合）を評価するツール"
	cmd.Long = rootLong
	cmd.SilenceUsage = true
	cmd.AddCommand(scoreCmd, serveCmd, feedCmd, extractCmd)
	return cmd
}

// --- 初期化とロジック ---

func addAppPersistentFlags(rootCmd *cobra.Command) {
	rootCmd.PersistentFlags().DurationVar(&Flags.Timeout, "timeout", 0, "HTTPリクエストのタイムアウト (例: 10s)")
	rootCmd.PersistentFlags().Uint64Var(&Flags.MaxRetries, "max-retries", 0, "HTTPリクエストのリトライ最大回数")
	rootCmd.PersistentFlags().StringVar(&Flags.Family, "family", "", "本文抽出のサイト系統 (inosmi_ru, readability, heuristic)")
	rootCmd.PersistentFlags().StringVar(&Flags.LogFormat, "log-format", LogFormatText, "ログの出力形式 (text, json)")
}

// initAppPreRunE は、clibase 共通処理の後に実行され、ロガーの初期化と設定の読み込みを行います。
// フラグは明示的に指定された場合のみ設定ファイルの値を上書きします。
func initAppPreRunE(cmd *cobra.Command, args []string) error {
	l, err := newLogger(cmd.ErrOrStderr(), Flags.LogFormat, clibase.Flags.Verbose)
	if err != nil {
		return err
	}
	logger = l
	slog.SetDefault(logger)

	cfg, err := config.Load(clibase.Flags.ConfigFile)
	if err != nil {
		return err
	}

	flags := cmd.Flags()
	if flags.Changed("timeout") {
		cfg.HTTP.Timeout = Flags.Timeout
	}
	if flags.Changed("max-retries") {
		cfg.HTTP.MaxRetries = Flags.MaxRetries
	}
	if flags.Changed("family") {
		cfg.SourceFamily = Flags.Family
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("設定が不正です: %w", err)
	}

	logger.Debug("設定を読み込みました",
		"config", clibase.Flags.ConfigFile,
		"charged_dict_dir", cfg.ChargedDictDir,
		"source_family", cfg.SourceFamily,
		"http_timeout", cfg.HTTP.Timeout,
		"max_retries", cfg.HTTP.MaxRetries,
	)
	appConfig = cfg
	return nil
}

// newLogger は、形式とレベルを指定して slog.Logger を生成します。
func newLogger(w io.Writer, format string, verbose bool) (*slog.Logger, error) {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	opts := &slog.HandlerOptions{Level: level}

	switch format {
	case LogFormatText, "":
		return slog.New(slog.NewTextHandler(w, opts)), nil
	case LogFormatJSON:
		return slog.New(slog.NewJSONHandler(w, opts)), nil
	default:
		return nil, fmt.Errorf("不明なログ出力形式です: %q (text または json を指定してください)", format)
	}
}

// --- エントリポイント ---

// Execute は、rootCmd を実行するメイン関数です。
// SIGINT / SIGTERM を受け取ると、実行中の処理のコンテキストがキャンセルされます。
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		os.Exit(1)
	}
}
