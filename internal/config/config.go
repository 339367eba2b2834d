// Package config loads service settings from the environment, optionally
// seeded from a .env file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cast"
)

// Config holds every runtime setting
type Config struct {
	Addr           string
	DBDriver       string // sqlite or postgres
	DBPath         string // SQLite file
	DatabaseURL    string // PostgreSQL DSN
	JWTSecret      string
	JWTTTL         time.Duration
	KafkaBrokers   []string
	KafkaTopic     string
	OutboxInterval time.Duration
	OutboxBatch    int
	RequestTimeout time.Duration
	IdemCacheSize  int
	MCPActorID     string
	MCPActorEmail  string
}

// Defaults
const (
	DefaultAddr           = ":8080"
	DefaultDBDriver       = "sqlite"
	DefaultDBPath         = "shopadmin.db"
	DefaultKafkaTopic     = "shopadmin.orders"
	DefaultJWTTTL         = time.Hour
	DefaultOutboxInterval = 2 * time.Second
	DefaultOutboxBatch    = 50
	DefaultRequestTimeout = 10 * time.Second
	DefaultIdemCacheSize  = 1024
)

// Load reads envFile when it exists and then the process environment.
// Variables already set in the environment take precedence over the file.
func Load(envFile string) (*Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("failed to load %s: %w", envFile, err)
		}
	}
	return FromEnv()
}

// FromEnv builds a Config from the process environment
func FromEnv() (*Config, error) {
	var err error
	cfg := &Config{
		Addr:          getString("SHOPADMIN_ADDR", DefaultAddr),
		DBDriver:      strings.ToLower(getString("SHOPADMIN_DB_DRIVER", DefaultDBDriver)),
		DBPath:        getString("SHOPADMIN_DB_PATH", DefaultDBPath),
		DatabaseURL:   os.Getenv("DATABASE_URL"),
		JWTSecret:     os.Getenv("JWT_ACCESS_TOKEN_SECRET"),
		KafkaBrokers:  splitList(os.Getenv("KAFKA_BROKERS")),
		KafkaTopic:    getString("KAFKA_TOPIC", DefaultKafkaTopic),
		MCPActorID:    getString("MCP_ACTOR_ID", "mcp-service"),
		MCPActorEmail: getString("MCP_ACTOR_EMAIL", "mcp@shopadmin.local"),
	}

	if cfg.JWTTTL, err = getDuration("JWT_ACCESS_TOKEN_TTL", DefaultJWTTTL); err != nil {
		return nil, err
	}
	if cfg.OutboxInterval, err = getDuration("OUTBOX_INTERVAL", DefaultOutboxInterval); err != nil {
		return nil, err
	}
	if cfg.RequestTimeout, err = getDuration("REQUEST_TIMEOUT", DefaultRequestTimeout); err != nil {
		return nil, err
	}
	if cfg.OutboxBatch, err = getInt("OUTBOX_BATCH_SIZE", DefaultOutboxBatch); err != nil {
		return nil, err
	}
	if cfg.IdemCacheSize, err = getInt("IDEMPOTENCY_CACHE_SIZE", DefaultIdemCacheSize); err != nil {
		return nil, err
	}

	return cfg, cfg.Validate()
}

// Validate checks cross-field requirements
func (c *Config) Validate() error {
	switch c.DBDriver {
	case "sqlite":
	case "postgres", "postgresql":
		if c.DatabaseURL == "" {
			return errors.New("config: DATABASE_URL is required for the postgres driver")
		}
	default:
		return fmt.Errorf("config: unsupported SHOPADMIN_DB_DRIVER %q", c.DBDriver)
	}
	if c.OutboxBatch <= 0 {
		return errors.New("config: OUTBOX_BATCH_SIZE must be positive")
	}
	if c.OutboxInterval <= 0 {
		return errors.New("config: OUTBOX_INTERVAL must be positive")
	}
	return nil
}

// RequireJWTSecret reports a missing signing secret; only the HTTP server and token issuer need one
func (c *Config) RequireJWTSecret() error {
	if c.JWTSecret == "" {
		return errors.New("config: JWT_ACCESS_TOKEN_SECRET is required")
	}
	return nil
}

// DSN returns the connection string for the configured driver
func (c *Config) DSN() string {
	if c.DBDriver == "sqlite" {
		return c.DBPath
	}
	return c.DatabaseURL
}

func getString(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func getDuration(key string, def time.Duration) (time.Duration, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def, nil
	}
	d, err := cast.ToDurationE(v)
	if err != nil {
		return 0, fmt.Errorf("config: invalid %s %q: %w", key, v, err)
	}
	return d, nil
}

func getInt(key string, def int) (int, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def, nil
	}
	n, err := cast.ToIntE(v)
	if err != nil {
		return 0, fmt.Errorf("config: invalid %s %q: %w", key, v, err)
	}
	return n, nil
}

func splitList(csv string) []string {
	var out []string
	for _, p := range strings.Split(csv, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
