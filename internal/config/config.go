package config

import (
	"os"
	"strconv"
	"strings"
)

// Config はアプリケーション全体の設定を保持する。
// 環境変数から起動時に1回読み込み、イミュータブルとして扱う。
type Config struct {
	// Storage
	DataDir     string // CSVストレージのデータディレクトリ
	DatabaseURL string // 設定されている場合はPostgreSQLストレージを使用する

	// Session
	SessionMaxAge int // 秒

	// Rate Limit（req/min）
	RateLimitGeneral int
	RateLimitLogin   int

	// Server
	ServerPort string
	BaseURL    string

	// Cookie
	CookieSecure bool
	CookieDomain string
}

// Load は環境変数からConfigを読み込む。
// 全ての項目にデフォルト値があり、必須環境変数はない。
// DATABASE_URLが未設定の場合はDATA_DIR配下のCSVファイルに永続化する。
func Load() (*Config, error) {
	cfg := &Config{}

	cfg.DataDir = getEnvString("DATA_DIR", "study_data")
	cfg.DatabaseURL = os.Getenv("DATABASE_URL")

	cfg.SessionMaxAge = getEnvInt("SESSION_MAX_AGE", 86400)
	cfg.RateLimitGeneral = getEnvInt("RATE_LIMIT_GENERAL", 120)
	cfg.RateLimitLogin = getEnvInt("RATE_LIMIT_LOGIN", 10)

	cfg.ServerPort = getEnvString("SERVER_PORT", "8080")
	cfg.BaseURL = getEnvString("BASE_URL", "http://localhost:"+cfg.ServerPort)
	cfg.CookieSecure = strings.HasPrefix(cfg.BaseURL, "https://")
	cfg.CookieDomain = getEnvString("COOKIE_DOMAIN", "")

	return cfg, nil
}

// UsePostgres はPostgreSQLストレージ構成かどうかを返す。
func (c *Config) UsePostgres() bool {
	return c.DatabaseURL != ""
}

func getEnvString(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return defaultVal
	}
	return i
}
