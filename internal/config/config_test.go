package config_test

import (
	"testing"
	"time"

	"sampark/backend/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("PORT", "")
	t.Setenv("REDIS_ADDR", "")

	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, 24*time.Hour, cfg.CacheTTL)
	assert.Equal(t, 2*time.Second, cfg.CacheTimeout)
	assert.Equal(t, "en", cfg.TelegramLang)
	assert.False(t, cfg.CacheConfigured())
	assert.False(t, cfg.ImageStoreConfigured())
}

func TestLoad_FromEnvironment(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("REDIS_ADDR", "localhost:6379")
	t.Setenv("CACHE_TTL", "1h")
	t.Setenv("TELEGRAM_CHAT_ID", "-100123")

	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.Port)
	assert.True(t, cfg.CacheConfigured())
	assert.Equal(t, time.Hour, cfg.CacheTTL)
	assert.Equal(t, int64(-100123), cfg.TelegramChatID)
}

func TestDSN(t *testing.T) {
	cfg := &config.Config{DBHost: "db", DBPort: "5432", DBUser: "u", DBPassword: "p", DBName: "sampark"}
	dsn, err := cfg.DSN()
	require.NoError(t, err)
	assert.Equal(t, "host=db user=u password=p dbname=sampark port=5432 sslmode=disable", dsn)

	cfg.DatabaseURL = "postgres://u:p@db:5432/sampark?sslmode=require"
	dsn, err = cfg.DSN()
	require.NoError(t, err)
	assert.Contains(t, dsn, "host=db")
	assert.Contains(t, dsn, "dbname=sampark")
	assert.Contains(t, dsn, "sslmode=require")

	cfg.DatabaseURL = "mysql://nope"
	_, err = cfg.DSN()
	assert.Error(t, err)
}
