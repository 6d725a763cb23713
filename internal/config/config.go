package config

import (
	"errors"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

type Config struct {
	Port                  string
	DatabaseDSN           string
	JWTSecret             string
	Env                   string
	AccessTokenTTLMinutes int
	RefreshTokenTTLDays   int
	ReviewMaxLen          int
}

func getenv(key, def string) string {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	return v
}

func getenvInt(key string, def int) int {
	v, err := strconv.Atoi(getenv(key, ""))
	if err != nil || v <= 0 {
		return def
	}
	return v
}

// Load 读取 .env（若存在）与环境变量，缺省值面向本地开发。
func Load() Config {
	_ = godotenv.Load()
	return Config{
		Port:                  getenv("APP_PORT", "8080"),
		DatabaseDSN:           getenv("DATABASE_DSN", "host=localhost user=postgres password=postgres dbname=bookstore port=5432 sslmode=disable TimeZone=UTC"),
		JWTSecret:             getenv("JWT_SECRET", "dev-secret-change-me"),
		Env:                   getenv("APP_ENV", "dev"),
		AccessTokenTTLMinutes: getenvInt("ACCESS_TOKEN_TTL_MINUTES", 15),
		RefreshTokenTTLDays:   getenvInt("REFRESH_TOKEN_TTL_DAYS", 7),
		ReviewMaxLen:          getenvInt("REVIEW_MAX_LEN", 500),
	}
}

// Validate 在启动时拦截明显不可用的配置，生产环境禁止默认密钥。
func Validate(cfg Config) error {
	if cfg.Port == "" {
		return errors.New("config: empty port")
	}
	if cfg.DatabaseDSN == "" {
		return errors.New("config: empty database dsn")
	}
	if cfg.Env != "dev" && cfg.JWTSecret == "dev-secret-change-me" {
		return errors.New("config: default JWT secret outside dev")
	}
	return nil
}
