package config

import (
	"fmt"
	"os"
	"strconv"
)

// Config holds all ledger configuration
type Config struct {
	// Database configuration
	DBType string // sqlite or postgres
	DBPath string // sqlite database file path (":memory:" allowed)
	DBDSN  string // postgres DSN, required when DBType is postgres

	// Connection discipline
	ReadPool    int // size of the read-only handle pool
	BusyRetries int // attempts before a busy error surfaces as transient

	// Domain limits
	MaxPrice int // inclusive upper bound for a task price

	// Audit log queue
	LogQueue   int // buffered queue capacity for non-financial entries
	LogBatch   int // flush when this many entries are buffered
	LogFlushMS int // flush at least this often, milliseconds
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	cfg := &Config{
		DBType:      getEnv("LEDGER_DB_TYPE", "sqlite"),
		DBPath:      getEnv("LEDGER_DB_PATH", "taskledger.db"),
		DBDSN:       getEnv("LEDGER_DB_DSN", ""),
		ReadPool:    getEnvAsInt("LEDGER_READ_POOL", 4),
		BusyRetries: getEnvAsInt("LEDGER_BUSY_RETRIES", 5),
		MaxPrice:    getEnvAsInt("LEDGER_MAX_PRICE", 10000),
		LogQueue:    getEnvAsInt("LEDGER_LOG_QUEUE", 256),
		LogBatch:    getEnvAsInt("LEDGER_LOG_BATCH", 32),
		LogFlushMS:  getEnvAsInt("LEDGER_LOG_FLUSH_MS", 200),
	}

	// Validate required fields
	switch cfg.DBType {
	case "sqlite":
		if cfg.DBPath == "" {
			return nil, fmt.Errorf("LEDGER_DB_PATH is required for sqlite")
		}
	case "postgres", "postgresql":
		if cfg.DBDSN == "" {
			return nil, fmt.Errorf("LEDGER_DB_DSN is required for postgres")
		}
	default:
		return nil, fmt.Errorf("unsupported database type: %s", cfg.DBType)
	}
	if cfg.ReadPool < 1 {
		return nil, fmt.Errorf("LEDGER_READ_POOL must be at least 1")
	}
	if cfg.BusyRetries < 1 {
		return nil, fmt.Errorf("LEDGER_BUSY_RETRIES must be at least 1")
	}
	if cfg.MaxPrice < 1 {
		return nil, fmt.Errorf("LEDGER_MAX_PRICE must be at least 1")
	}
	if cfg.LogQueue < 1 || cfg.LogBatch < 1 || cfg.LogFlushMS < 1 {
		return nil, fmt.Errorf("audit queue settings must be at least 1")
	}

	return cfg, nil
}

// Default returns the configuration used when no environment is present,
// suitable for tests and embedders that configure programmatically.
func Default() *Config {
	return &Config{
		DBType:      "sqlite",
		DBPath:      ":memory:",
		ReadPool:    4,
		BusyRetries: 5,
		MaxPrice:    10000,
		LogQueue:    256,
		LogBatch:    32,
		LogFlushMS:  200,
	}
}

// getEnv gets an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt gets an environment variable as an integer or returns a default value
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}
