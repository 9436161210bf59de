package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromEnv_Defaults(t *testing.T) {
	t.Setenv("APP_ENV", "development")

	cfg, err := FromEnv()
	require.NoError(t, err)

	assert.Equal(t, StoreDriverPostgres, cfg.StoreDriver)
	assert.Equal(t, 60, cfg.ThresholdPercent)
	assert.Equal(t, 8, cfg.MaxAttempts)
	assert.Equal(t, 2*time.Second, cfg.BackoffInitial)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.NotEmpty(t, cfg.OperatorJWTSecret)
}

func TestFromEnv_ProductionRequiresSecret(t *testing.T) {
	t.Setenv("APP_ENV", "production")
	t.Setenv("OPERATOR_JWT_SECRET", "short")

	_, err := FromEnv()
	assert.Error(t, err)
}

func TestFromEnv_ProductionRejectsMemoryStore(t *testing.T) {
	t.Setenv("APP_ENV", "production")
	t.Setenv("OPERATOR_JWT_SECRET", "0123456789abcdef0123456789abcdef")
	t.Setenv("STORE_DRIVER", StoreDriverMemory)

	_, err := FromEnv()
	assert.Error(t, err)
}

func TestFromEnv_InvalidDuration(t *testing.T) {
	t.Setenv("INDEXER_POLL_INTERVAL", "soon")

	_, err := FromEnv()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "INDEXER_POLL_INTERVAL")
}

func TestFromEnv_ThresholdRange(t *testing.T) {
	t.Setenv("DISPUTE_THRESHOLD_PERCENT", "101")

	_, err := FromEnv()
	assert.Error(t, err)
}

func TestGetDatabaseURL_FromParts(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	t.Setenv("POSTGRESQL_HOST", "db")
	t.Setenv("POSTGRESQL_USER", "indexer")
	t.Setenv("POSTGRESQL_PASSWORD", "p@ss")
	t.Setenv("POSTGRESQL_DBNAME", "bounties")

	assert.Equal(t, "postgres://indexer:p%40ss@db:5432/bounties?sslmode=disable", getDatabaseURL())
}
