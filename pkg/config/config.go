// Package config はプロセス起動時の設定を環境変数から読み込みます。
// APIキーはここで必須チェックし、下流の紛らわしい認証エラーを防ぎます。
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// 既定値。環境変数で上書きできます。
const (
	DefaultModel          = "gemini-2.5-flash-image-preview"
	DefaultListenAddr     = ":8080"
	DefaultRequestTimeout = 60 * time.Second
	DefaultFetchRetries   = 2
	DefaultCacheTTL       = 10 * time.Minute
	DefaultSessionTTL     = 30 * time.Minute
)

// Config はアプリケーション全体の設定です。
type Config struct {
	// APIKey は Gemini API の認証キー。必須。ソースにもログにも出しません。
	APIKey string
	// BaseURL は省略可能なカスタムエンドポイントです。
	BaseURL string
	// Model は画像生成に使うモデル名です。
	Model string

	ListenAddr     string
	RequestTimeout time.Duration
	// FetchRetries は参照画像ダウンロードの再試行回数です。
	// 生成リクエスト自体は再試行しません。
	FetchRetries uint64
	CacheTTL     time.Duration
	SessionTTL   time.Duration
}

// Load は .env（あれば）と環境変数から設定を読み込みます。
// GEMINI_API_KEY が無い場合はここで失敗させます。
func Load() (*Config, error) {
	// .env が無いのは正常系（環境変数のみで動く）
	_ = godotenv.Load()

	cfg := &Config{
		APIKey:         os.Getenv("GEMINI_API_KEY"),
		BaseURL:        os.Getenv("GEMINI_BASE_URL"),
		Model:          getEnv("BLEND_MODEL", DefaultModel),
		ListenAddr:     getEnv("BLEND_LISTEN_ADDR", DefaultListenAddr),
		RequestTimeout: getEnvDuration("BLEND_REQUEST_TIMEOUT", DefaultRequestTimeout),
		FetchRetries:   getEnvUint("BLEND_FETCH_RETRIES", DefaultFetchRetries),
		CacheTTL:       getEnvDuration("BLEND_CACHE_TTL", DefaultCacheTTL),
		SessionTTL:     getEnvDuration("BLEND_SESSION_TTL", DefaultSessionTTL),
	}

	if cfg.APIKey == "" {
		return nil, fmt.Errorf("GEMINI_API_KEY is not set: the Gemini API key must be provided via the environment")
	}

	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return defaultValue
	}
	return d
}

func getEnvUint(key string, defaultValue uint64) uint64 {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	n, err := strconv.ParseUint(value, 10, 64)
	if err != nil {
		return defaultValue
	}
	return n
}
