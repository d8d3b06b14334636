// Package config は環境変数から設定を読み込み、アプリケーション全体で使用する設定を提供します。
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// セッションストアの種別
const (
	SessionStoreMemory = "memory"
	SessionStoreRedis  = "redis"
)

// Config はアプリケーションの設定を保持する構造体です。
type Config struct {
	// サーバー設定
	Port    string // APIサーバーのポート番号
	GinMode string // Ginの実行モード (debug, release, test)
	BaseURL string // サイトのベースURL（起動時に一度だけ解決する）

	// CORS設定
	CORSAllowedOrigins string // CORS許可オリジン（カンマ区切り）

	// ログ設定
	LogLevel  string // trace, debug, info, warn, error
	LogFormat string // text, json

	// セッション設定
	SessionSecret      string // クッキー署名用の秘密鍵
	SessionCookieName  string
	SessionStore       string // memory, redis
	SessionRedisURL    string // SessionStore=redis の接続先
	SessionRotateAfter time.Duration
	SessionIdleTimeout time.Duration
	TrustProxyHeaders  bool // X-Forwarded-Proto / X-Forwarded-Ssl を信頼するか

	// データベース設定
	DatabaseDSN string // MySQL DSN

	// ジョブ/キュー設定
	QueueRedisURL string        // Asynq用Redis接続URL（空なら同期実行）
	JobRecordTTL  time.Duration // ジョブ状態の保持期間

	// 一覧設定
	NewsletterPageSize int
}

// Load は環境変数から設定を読み込みます。
// .env.local ファイルが存在する場合はそこから読み込みます。
func Load() (*Config, error) {
	// .env.local ファイルを読み込む（存在しない場合はスキップ）
	loadEnvFile()

	v := viper.New()
	v.AutomaticEnv()
	setDefaults(v)

	config := &Config{
		Port:    v.GetString("PORT"),
		GinMode: v.GetString("GIN_MODE"),
		BaseURL: strings.TrimRight(v.GetString("BASE_URL"), "/"),

		CORSAllowedOrigins: v.GetString("CORS_ALLOWED_ORIGINS"),

		LogLevel:  v.GetString("LOG_LEVEL"),
		LogFormat: v.GetString("LOG_FORMAT"),

		SessionSecret:      v.GetString("SESSION_SECRET"),
		SessionCookieName:  v.GetString("SESSION_COOKIE_NAME"),
		SessionStore:       strings.ToLower(v.GetString("SESSION_STORE")),
		SessionRedisURL:    v.GetString("SESSION_REDIS_URL"),
		SessionRotateAfter: time.Duration(v.GetInt("SESSION_ROTATE_SECONDS")) * time.Second,
		SessionIdleTimeout: time.Duration(v.GetInt("SESSION_IDLE_MINUTES")) * time.Minute,
		TrustProxyHeaders:  v.GetBool("TRUST_PROXY_HEADERS"),

		DatabaseDSN: v.GetString("DATABASE_DSN"),

		QueueRedisURL: v.GetString("QUEUE_REDIS_URL"),
		JobRecordTTL:  time.Duration(v.GetInt("JOB_RECORD_TTL_MINUTES")) * time.Minute,

		NewsletterPageSize: v.GetInt("NEWSLETTER_PAGE_SIZE"),
	}

	// 必須設定のバリデーション
	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("PORT", "8080")
	v.SetDefault("GIN_MODE", "debug")
	v.SetDefault("BASE_URL", "http://localhost:8080")
	v.SetDefault("CORS_ALLOWED_ORIGINS", "http://localhost:8080")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "text")
	v.SetDefault("SESSION_COOKIE_NAME", "pp_session")
	v.SetDefault("SESSION_STORE", SessionStoreMemory)
	v.SetDefault("SESSION_REDIS_URL", "redis://127.0.0.1:6379/1")
	v.SetDefault("SESSION_ROTATE_SECONDS", 1800)
	v.SetDefault("SESSION_IDLE_MINUTES", 30)
	v.SetDefault("TRUST_PROXY_HEADERS", true)
	v.SetDefault("DATABASE_DSN", "")
	v.SetDefault("QUEUE_REDIS_URL", "")
	v.SetDefault("JOB_RECORD_TTL_MINUTES", 1440)
	v.SetDefault("NEWSLETTER_PAGE_SIZE", 25)
}

func loadEnvFile() {
	if err := godotenv.Load(".env.local"); err == nil {
		return
	}

	cwd, err := os.Getwd()
	if err != nil {
		return
	}

	parent := filepath.Dir(cwd)
	if parent == "" || parent == cwd {
		return
	}

	_ = godotenv.Load(filepath.Join(parent, ".env.local"))
}

// Validate は設定の妥当性を検証します。
func (c *Config) Validate() error {
	switch c.SessionStore {
	case SessionStoreMemory:
	case SessionStoreRedis:
		if c.SessionRedisURL == "" {
			return fmt.Errorf("SESSION_REDIS_URL is required when SESSION_STORE=redis")
		}
	default:
		return fmt.Errorf("unknown SESSION_STORE: %q", c.SessionStore)
	}

	if c.SessionRotateAfter <= 0 {
		return fmt.Errorf("SESSION_ROTATE_SECONDS must be positive")
	}
	if c.SessionIdleTimeout <= 0 {
		return fmt.Errorf("SESSION_IDLE_MINUTES must be positive")
	}
	if c.JobRecordTTL <= 0 {
		c.JobRecordTTL = 24 * time.Hour
	}
	if c.NewsletterPageSize <= 0 {
		c.NewsletterPageSize = 25
	}

	// ローカル開発では秘密鍵とDBは任意
	// 本番環境では厳格にチェックする
	if c.GinMode == "release" {
		if c.SessionSecret == "" {
			return fmt.Errorf("SESSION_SECRET is required in release mode")
		}
		if len(c.SessionSecret) < 32 {
			return fmt.Errorf("SESSION_SECRET must be at least 32 bytes in release mode")
		}
		if c.DatabaseDSN == "" {
			return fmt.Errorf("DATABASE_DSN is required in release mode")
		}
	}

	return nil
}

// AllowedOrigins は CORS 許可オリジンを配列で返します。
func (c *Config) AllowedOrigins() []string {
	var origins []string
	for _, o := range strings.Split(c.CORSAllowedOrigins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			origins = append(origins, o)
		}
	}
	if len(origins) == 0 && c.BaseURL != "" {
		origins = append(origins, c.BaseURL)
	}
	return origins
}
