package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var allKeys = []string{
	"SHOPADMIN_ADDR", "SHOPADMIN_DB_DRIVER", "SHOPADMIN_DB_PATH", "DATABASE_URL",
	"JWT_ACCESS_TOKEN_SECRET", "JWT_ACCESS_TOKEN_TTL", "KAFKA_BROKERS", "KAFKA_TOPIC",
	"OUTBOX_INTERVAL", "OUTBOX_BATCH_SIZE", "REQUEST_TIMEOUT", "IDEMPOTENCY_CACHE_SIZE",
	"MCP_ACTOR_ID", "MCP_ACTOR_EMAIL",
}

// clearEnv blanks every key for the duration of the test
func clearEnv(t *testing.T) {
	for _, k := range allKeys {
		t.Setenv(k, "")
	}
}

func TestFromEnv_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := FromEnv()
	require.NoError(t, err)
	assert.Equal(t, DefaultAddr, cfg.Addr)
	assert.Equal(t, "sqlite", cfg.DBDriver)
	assert.Equal(t, DefaultDBPath, cfg.DSN())
	assert.Equal(t, time.Hour, cfg.JWTTTL)
	assert.Equal(t, DefaultOutboxBatch, cfg.OutboxBatch)
	assert.Empty(t, cfg.KafkaBrokers)
	assert.Error(t, cfg.RequireJWTSecret())
}

func TestFromEnv_Overrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("SHOPADMIN_DB_DRIVER", "Postgres")
	t.Setenv("DATABASE_URL", "postgres://u:p@localhost/shop")
	t.Setenv("JWT_ACCESS_TOKEN_SECRET", "s3cret")
	t.Setenv("JWT_ACCESS_TOKEN_TTL", "15m")
	t.Setenv("KAFKA_BROKERS", "k1:9092, k2:9092")
	t.Setenv("OUTBOX_BATCH_SIZE", "7")

	cfg, err := FromEnv()
	require.NoError(t, err)
	assert.Equal(t, "postgres", cfg.DBDriver)
	assert.Equal(t, "postgres://u:p@localhost/shop", cfg.DSN())
	assert.Equal(t, 15*time.Minute, cfg.JWTTTL)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, 7, cfg.OutboxBatch)
	assert.NoError(t, cfg.RequireJWTSecret())
}

func TestFromEnv_Invalid(t *testing.T) {
	tests := map[string]map[string]string{
		"bad duration":      {"OUTBOX_INTERVAL": "soon"},
		"bad int":           {"OUTBOX_BATCH_SIZE": "many"},
		"zero batch":        {"OUTBOX_BATCH_SIZE": "0"},
		"unknown driver":    {"SHOPADMIN_DB_DRIVER": "mysql"},
		"postgres no dsn":   {"SHOPADMIN_DB_DRIVER": "postgres"},
		"negative interval": {"OUTBOX_INTERVAL": "-1s"},
	}

	for name, env := range tests {
		t.Run(name, func(t *testing.T) {
			clearEnv(t)
			for k, v := range env {
				t.Setenv(k, v)
			}
			_, err := FromEnv()
			assert.Error(t, err)
		})
	}
}

func TestLoad_DotEnv(t *testing.T) {
	clearEnv(t)
	require.NoError(t, os.Unsetenv("SHOPADMIN_ADDR"))
	require.NoError(t, os.Unsetenv("KAFKA_TOPIC"))

	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("SHOPADMIN_ADDR=:9999\nKAFKA_TOPIC=orders.v2\n"), 0o600))
	t.Cleanup(func() {
		_ = os.Unsetenv("SHOPADMIN_ADDR")
		_ = os.Unsetenv("KAFKA_TOPIC")
	})

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, ":9999", cfg.Addr)
	assert.Equal(t, "orders.v2", cfg.KafkaTopic)
}

func TestLoad_MissingFileIsFine(t *testing.T) {
	clearEnv(t)
	_, err := Load(filepath.Join(t.TempDir(), "nope.env"))
	assert.NoError(t, err)
}
