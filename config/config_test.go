package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("JWT_SECRET", "s3cret")
	t.Setenv("STORE_DRIVER", "memory")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "development", cfg.Env)
	assert.False(t, cfg.Production())
	assert.Equal(t, DriverMemory, cfg.StoreDriver)
	assert.Equal(t, 20, cfg.IssueDailyLimit)
	assert.Equal(t, 72*time.Hour, cfg.TokenTTL)
	assert.Equal(t, 10*time.Second, cfg.RequestTimeout)
	assert.Equal(t, []string{"*"}, cfg.CORSOrigins)
	assert.Equal(t, "civic-images", cfg.Minio.Bucket)
	assert.Equal(t, "civic:events", cfg.RedisEventsChannel)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("JWT_SECRET", "s3cret")
	t.Setenv("STORE_DRIVER", "Postgres")
	t.Setenv("DATABASE_URL", "postgres://localhost/civic")
	t.Setenv("GO_ENV", "production")
	t.Setenv("ISSUE_DAILY_LIMIT", "5")
	t.Setenv("TOKEN_TTL", "1h")
	t.Setenv("CORS_ORIGINS", "https://a.example.com, https://b.example.com,")
	t.Setenv("MINIO_USE_SSL", "true")

	cfg, err := Load()
	require.NoError(t, err)
	assert.True(t, cfg.Production())
	assert.Equal(t, DriverPostgres, cfg.StoreDriver)
	assert.Equal(t, 5, cfg.IssueDailyLimit)
	assert.Equal(t, time.Hour, cfg.TokenTTL)
	assert.Equal(t, []string{"https://a.example.com", "https://b.example.com"}, cfg.CORSOrigins)
	assert.True(t, cfg.Minio.UseSSL)
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	t.Setenv("JWT_SECRET", "")
	t.Setenv("STORE_DRIVER", "mongo")
	t.Setenv("MONGODB_URI", "")
	t.Setenv("ISSUE_DAILY_LIMIT", "lots")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "JWT_SECRET is required")
	assert.Contains(t, err.Error(), "MONGODB_URI")
	assert.Contains(t, err.Error(), "ISSUE_DAILY_LIMIT")

	t.Setenv("JWT_SECRET", "s3cret")
	t.Setenv("STORE_DRIVER", "sqlite")
	t.Setenv("ISSUE_DAILY_LIMIT", "")
	_, err = Load()
	assert.ErrorContains(t, err, "sqlite")
}
