package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/shouni/go-jaundice/pkg/extract"
	"github.com/shouni/go-jaundice/pkg/httpclient"
	"github.com/shouni/go-jaundice/pkg/retry"
	"github.com/shouni/go-jaundice/pkg/text"
)

// 環境変数による上書き
const (
	EnvChargedDir = "JAUNDICE_CHARGED_DIR"
	EnvLemmaFile  = "JAUNDICE_LEMMA_FILE"
	EnvAddr       = "JAUNDICE_ADDR"
)

// 既定値
const (
	DefaultChargedDir = "charged_dict"
	DefaultAddr       = ":8080"
	DefaultMaxURLs    = 10
	DefaultRateBurst  = 1
)

// Config は、アプリケーション全体の設定です。
type Config struct {
	// ChargedDictDir は、扇情的な語のリストを置いたディレクトリです。
	ChargedDictDir string `yaml:"charged_dict_dir"`

	// LemmaFile は、「語形<TAB>レンマ」形式の辞書ファイルです。空の場合は小文字化のみを行います。
	LemmaFile string `yaml:"lemma_file"`

	// SourceFamily は、本文抽出に使うサイト系統です（inosmi_ru, readability, heuristic）。
	SourceFamily string `yaml:"source_family"`

	// TokenizeTimeout は、1記事あたりの単語分割の制限時間です。
	TokenizeTimeout time.Duration `yaml:"tokenize_timeout"`

	// MaxConcurrency は、同時に処理する記事数の上限です。0 は上限なしです。
	MaxConcurrency int `yaml:"max_concurrency"`

	// WatchDictionary が true の場合、serve コマンドは辞書ディレクトリの変更を監視して再読み込みします。
	WatchDictionary bool `yaml:"watch_dictionary"`

	HTTP   HTTPConfig   `yaml:"http"`
	Server ServerConfig `yaml:"server"`
}

// HTTPConfig は、記事の取得に関する設定です。
type HTTPConfig struct {
	// Timeout は、1リクエストあたりのタイムアウトです。
	Timeout time.Duration `yaml:"timeout"`

	// MaxRetries は、5xx やネットワークエラー時の最大リトライ回数です。
	MaxRetries uint64 `yaml:"max_retries"`

	// RateLimit は、1秒あたりのリクエスト数の上限です。0 は無制限です。
	RateLimit float64 `yaml:"rate_limit"`

	// RateBurst は、レートリミットのバースト数です。
	RateBurst int `yaml:"rate_burst"`
}

// ServerConfig は、HTTPエンドポイントの設定です。
type ServerConfig struct {
	Addr string `yaml:"addr"`

	// MaxURLs は、1リクエストで受け付けるURL数の上限です。
	MaxURLs int `yaml:"max_urls"`
}

// Default は、既定値で埋めた Config を返します。
func Default() *Config {
	return &Config{
		ChargedDictDir:  DefaultChargedDir,
		SourceFamily:    extract.DefaultFamily,
		TokenizeTimeout: text.DefaultTimeout,
		MaxConcurrency:  0,
		HTTP: HTTPConfig{
			Timeout:    httpclient.DefaultHTTPTimeout,
			MaxRetries: retry.DefaultMaxRetries,
			RateBurst:  DefaultRateBurst,
		},
		Server: ServerConfig{
			Addr:    DefaultAddr,
			MaxURLs: DefaultMaxURLs,
		},
	}
}

// Load は、既定値に設定ファイルと環境変数を順に重ねて Config を返します。
// path が空の場合は設定ファイルを読みません。
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("設定ファイルの読み込みに失敗しました %q: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("設定ファイルのパースに失敗しました %q: %w", path, err)
		}
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("設定が不正です: %w", err)
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv(EnvChargedDir); v != "" {
		c.ChargedDictDir = v
	}
	if v := os.Getenv(EnvLemmaFile); v != "" {
		c.LemmaFile = v
	}
	if v := os.Getenv(EnvAddr); v != "" {
		c.Server.Addr = v
	}
}

// Validate は、設定値の整合性を確認します。
func (c *Config) Validate() error {
	var errs []error
	if c.ChargedDictDir == "" {
		errs = append(errs, errors.New("charged_dict_dir は必須です"))
	}
	if _, err := extract.DefaultRegistry().Get(c.SourceFamily); err != nil {
		errs = append(errs, fmt.Errorf("source_family: %w", err))
	}
	if c.TokenizeTimeout <= 0 {
		errs = append(errs, errors.New("tokenize_timeout は正の値である必要があります"))
	}
	if c.MaxConcurrency < 0 {
		errs = append(errs, errors.New("max_concurrency は0以上である必要があります"))
	}
	if c.HTTP.Timeout <= 0 {
		errs = append(errs, errors.New("http.timeout は正の値である必要があります"))
	}
	if c.HTTP.RateLimit < 0 {
		errs = append(errs, errors.New("http.rate_limit は0以上である必要があります"))
	}
	if c.HTTP.RateLimit > 0 && c.HTTP.RateBurst < 1 {
		errs = append(errs, errors.New("http.rate_burst は1以上である必要があります"))
	}
	if c.Server.MaxURLs < 1 {
		errs = append(errs, errors.New("server.max_urls は1以上である必要があります"))
	}
	return errors.Join(errs...)
}
