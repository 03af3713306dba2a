// Package config loads runtime settings from the environment (and an optional
// .env file) and holds the lifecycle constants shared across the service.
package config

import (
	"fmt"
	"log"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"github.com/lib/pq"
)

// Config is the full set of environment-driven settings.
type Config struct {
	Port        string `envconfig:"PORT" default:"3000"`
	FrontendURL string `envconfig:"FRONTEND_URL" default:"http://localhost:8080"`
	Production  bool   `envconfig:"PRODUCTION" default:"false"`

	// DatabaseURL takes precedence over the discrete DB_* settings.
	DatabaseURL string `envconfig:"DATABASE_URL"`
	DBHost      string `envconfig:"DB_HOST" default:"localhost"`
	DBPort      string `envconfig:"DB_PORT" default:"5432"`
	DBUser      string `envconfig:"DB_USER" default:"user"`
	DBPassword  string `envconfig:"DB_PASSWORD" default:"password"`
	DBName      string `envconfig:"DB_NAME" default:"samparkdb"`

	JWTSecret string `envconfig:"JWT_SECRET" default:"secret"`

	// An empty RedisAddr leaves the cache unconfigured.
	RedisAddr     string        `envconfig:"REDIS_ADDR"`
	RedisPassword string        `envconfig:"REDIS_PASSWORD"`
	RedisDB       int           `envconfig:"REDIS_DB" default:"0"`
	CacheTTL      time.Duration `envconfig:"CACHE_TTL" default:"24h"`
	CacheTimeout  time.Duration `envconfig:"CACHE_TIMEOUT" default:"2s"`

	MinioEndpoint  string `envconfig:"MINIO_ENDPOINT"`
	MinioAccessKey string `envconfig:"MINIO_ACCESS_KEY"`
	MinioSecretKey string `envconfig:"MINIO_SECRET_KEY"`
	MinioBucket    string `envconfig:"MINIO_BUCKET" default:"grievance-images"`
	MinioUseSSL    bool   `envconfig:"MINIO_USE_SSL" default:"false"`
	MinioPublicURL string `envconfig:"MINIO_PUBLIC_URL"`

	TelegramBotToken string `envconfig:"TELEGRAM_BOT_TOKEN"`
	TelegramChatID   int64  `envconfig:"TELEGRAM_CHAT_ID"`
	TelegramLang     string `envconfig:"TELEGRAM_LANG" default:"en"`
}

// Load reads .env (if present) and then the process environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("WARNING: no .env file found, using environment variables")
	}

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to read config from environment: %w", err)
	}
	return &cfg, nil
}

// DSN returns the PostgreSQL connection string.
func (c *Config) DSN() (string, error) {
	if c.DatabaseURL != "" {
		dsn, err := pq.ParseURL(c.DatabaseURL)
		if err != nil {
			return "", fmt.Errorf("invalid DATABASE_URL: %w", err)
		}
		return dsn, nil
	}
	return fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=disable",
		c.DBHost, c.DBUser, c.DBPassword, c.DBName, c.DBPort), nil
}

// CacheConfigured reports whether a redis address was provided.
func (c *Config) CacheConfigured() bool {
	return c.RedisAddr != ""
}

// ImageStoreConfigured reports whether MinIO credentials were provided.
func (c *Config) ImageStoreConfigured() bool {
	return c.MinioEndpoint != "" && c.MinioAccessKey != "" && c.MinioSecretKey != ""
}
