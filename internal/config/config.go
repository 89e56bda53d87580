package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"
)

var (
	// ErrMissingDatabaseURL is returned when no database connection string is configured.
	ErrMissingDatabaseURL = errors.New("DATABASE_URL is required")
	// ErrInvalidBulkMode is returned for a bulk_mode other than best-effort or atomic.
	ErrInvalidBulkMode = errors.New("bulk mode must be best-effort or atomic")
)

// BulkMode controls how multi-statement actions (bulkUpsert, reorder) commit.
type BulkMode string

const (
	// BulkBestEffort commits every statement on its own; a failure leaves earlier statements applied.
	BulkBestEffort BulkMode = "best-effort"
	// BulkAtomic runs all statements of one request in a single transaction.
	BulkAtomic BulkMode = "atomic"
)

// ParseBulkMode parses a bulk mode name. Empty means best-effort.
func ParseBulkMode(s string) (BulkMode, error) {
	switch BulkMode(s) {
	case "", BulkBestEffort:
		return BulkBestEffort, nil
	case BulkAtomic:
		return BulkAtomic, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidBulkMode, s)
}

// Config holds application configuration.
type Config struct {
	DatabaseURL    string
	ServerPort     string
	RedisURL       string
	BulkMode       BulkMode
	MigrateOnStart bool
	LogLevel       string
	LogFormat      string
	UserAgent      string
	Timeout        time.Duration
	ChangeHistory  int64
}

func defaults() *Config {
	return &Config{
		ServerPort:     "8080",
		BulkMode:       BulkBestEffort,
		MigrateOnStart: true,
		LogLevel:       "info",
		LogFormat:      "text",
		UserAgent:      "ChannelVault/1.0",
		Timeout:        30 * time.Second,
		ChangeHistory:  100,
	}
}

// Load builds config from environment variables.
// If DATABASE_URL is not set, Load tries to load .env.local and .env from the current directory.
// DATABASE_URL is required; everything else has a default.
func Load() (*Config, error) {
	if os.Getenv("DATABASE_URL") == "" {
		loadEnvFiles()
	}
	c := defaults()
	c.DatabaseURL = os.Getenv("DATABASE_URL")
	c.RedisURL = os.Getenv("REDIS_URL")

	if v := os.Getenv("SERVER_PORT"); v != "" {
		c.ServerPort = v
	} else if v := os.Getenv("PORT"); v != "" {
		c.ServerPort = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		c.LogLevel = v
	}
	if v := os.Getenv("LOG_FORMAT"); v != "" {
		c.LogFormat = v
	}
	if v := os.Getenv("FETCHER_USER_AGENT"); v != "" {
		c.UserAgent = v
	}
	if v := os.Getenv("FETCHER_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			c.Timeout = d
		}
	}
	if v := os.Getenv("MIGRATE_ON_START"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return nil, fmt.Errorf("MIGRATE_ON_START: %w", err)
		}
		c.MigrateOnStart = b
	}
	if v := os.Getenv("CHANGE_HISTORY"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("CHANGE_HISTORY: %w", err)
		}
		c.ChangeHistory = n
	}
	mode, err := ParseBulkMode(os.Getenv("BULK_MODE"))
	if err != nil {
		return nil, err
	}
	c.BulkMode = mode

	if c.DatabaseURL == "" {
		return nil, ErrMissingDatabaseURL
	}
	return c, nil
}
