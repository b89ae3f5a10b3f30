package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/multierr"
)

type Config struct {
	Addr            string
	DatabaseURL     string // empty disables the remote store
	SnapshotDir     string
	SyncDebounce    time.Duration
	SyncTimeout     time.Duration
	ShutdownTimeout time.Duration
	LogFormat       string // "json" or "console"
}

// Load reads .env if present, then the process environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}
	return FromEnv(os.Getenv)
}

// FromEnv builds a Config from a lookup function. Every bad value is
// reported, not just the first.
func FromEnv(getenv func(string) string) (*Config, error) {
	cfg := &Config{
		Addr:        valueOr(getenv("ADDR"), ":8080"),
		DatabaseURL: getenv("DATABASE_URL"),
		SnapshotDir: valueOr(getenv("SNAPSHOT_DIR"), "data/snapshots"),
		LogFormat:   valueOr(getenv("LOG_FORMAT"), "json"),
	}

	var err error
	cfg.SyncDebounce, err = duration(getenv, "SYNC_DEBOUNCE", time.Second, err)
	cfg.SyncTimeout, err = duration(getenv, "SYNC_TIMEOUT", 5*time.Second, err)
	cfg.ShutdownTimeout, err = duration(getenv, "SHUTDOWN_TIMEOUT", 10*time.Second, err)

	if cfg.LogFormat != "json" && cfg.LogFormat != "console" {
		err = multierr.Append(err, fmt.Errorf("LOG_FORMAT: want json or console, got %q", cfg.LogFormat))
	}
	if err != nil {
		return nil, err
	}
	return cfg, nil
}

func duration(getenv func(string) string, key string, def time.Duration, errs error) (time.Duration, error) {
	raw := getenv(key)
	if raw == "" {
		return def, errs
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return def, multierr.Append(errs, fmt.Errorf("%s: %w", key, err))
	}
	if d < 0 {
		return def, multierr.Append(errs, fmt.Errorf("%s: must not be negative", key))
	}
	return d, errs
}

func valueOr(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
