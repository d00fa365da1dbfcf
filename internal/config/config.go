// Package config loads runtime configuration from environment variables,
// optionally seeded from a .env file in the working directory.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"

	CacheMemory = "memory"
	CacheRedis  = "redis"
)

// Config holds all runtime configuration values.
type Config struct {
	AppEnv string

	DBDriver    string // postgres or sqlite
	DatabaseURL string // postgres DSN
	SQLitePath  string

	StoreTimeout time.Duration // per-operation deadline applied by the CLI

	CacheBackend string
	CacheTTL     time.Duration
	RedisAddr    string
	RedisPass    string

	MetricsAddr string // empty disables the /metrics listener
}

// Load reads a .env file when present and then the process environment.
func Load() (*Config, error) {
	// A missing .env is normal outside local development.
	_ = godotenv.Load()

	storeTimeout, err := durationEnv("STORE_TIMEOUT", 30*time.Second)
	if err != nil {
		return nil, err
	}
	cacheTTL, err := durationEnv("CACHE_TTL", 5*time.Minute)
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		AppEnv:       envOr("APP_ENV", "development"),
		DBDriver:     envOr("DB_DRIVER", DriverPostgres),
		DatabaseURL:  os.Getenv("DATABASE_URL"),
		SQLitePath:   envOr("SQLITE_PATH", "catalog.db"),
		StoreTimeout: storeTimeout,
		CacheBackend: envOr("CACHE_BACKEND", CacheMemory),
		CacheTTL:     cacheTTL,
		RedisAddr:    fmt.Sprintf("%s:%s", envOr("REDIS_HOST", "localhost"), envOr("REDIS_PORT", "6379")),
		RedisPass:    os.Getenv("REDIS_PASSWORD"),
		MetricsAddr:  os.Getenv("METRICS_ADDR"),
	}

	if cfg.DatabaseURL == "" && cfg.DBDriver == DriverPostgres {
		cfg.DatabaseURL = fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable",
			os.Getenv("PG_USER"),
			os.Getenv("PG_PASSWORD"),
			envOr("PG_HOST", "localhost"),
			envOr("PG_PORT", "5432"),
			os.Getenv("PG_DB"),
		)
	}

	return cfg, cfg.Validate()
}

// Validate rejects unknown drivers and cache backends.
func (c *Config) Validate() error {
	switch c.DBDriver {
	case DriverPostgres, DriverSQLite:
	default:
		return fmt.Errorf("unsupported DB_DRIVER %q", c.DBDriver)
	}
	switch c.CacheBackend {
	case CacheMemory, CacheRedis:
	default:
		return fmt.Errorf("unsupported CACHE_BACKEND %q", c.CacheBackend)
	}
	if c.StoreTimeout <= 0 {
		return fmt.Errorf("STORE_TIMEOUT must be positive, got %s", c.StoreTimeout)
	}
	return nil
}

func envOr(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func durationEnv(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	if d, err := time.ParseDuration(v); err == nil {
		return d, nil
	}
	// Bare integers are read as seconds.
	secs, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid duration for %s: %q", key, v)
	}
	return time.Duration(secs) * time.Second, nil
}
