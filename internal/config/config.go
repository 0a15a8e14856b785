// Package config loads trailguard's environment configuration.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
)

// Config holds all recognized settings. Values come from the environment,
// with a best-effort .env load for local development.
type Config struct {
	// StateDir is the base path for all chain storage. Empty selects
	// ~/.trailguard.
	StateDir string `env:"STATE_DIR"`

	// RetentionDays controls how long archived chain files are kept.
	RetentionDays int `env:"LOG_RETENTION_DAYS" envDefault:"30"`

	// Timezone is the IANA zone used for day-file naming and the
	// rotation cutoff. Empty selects the host's local zone.
	Timezone string `env:"LOG_TIMEZONE"`

	// RotateInterval is the period of the daemon's rotation timer.
	RotateInterval time.Duration `env:"ROTATE_INTERVAL" envDefault:"1h"`

	// Per-channel webhook URLs. A YAML route file, when provided, takes
	// precedence for the channels it names.
	WebhookCommands string `env:"WEBHOOK_COMMANDS"`
	WebhookAlerts   string `env:"WEBHOOK_ALERTS"`
	WebhookChain    string `env:"WEBHOOK_CHAIN"`

	// RoutesFile is an optional YAML file with per-channel routes and
	// headers.
	RoutesFile string `env:"WEBHOOK_ROUTES_FILE"`
}

// Load reads configuration from the environment.
func Load() (*Config, error) {
	// Local development convenience; absence of a .env file is fine.
	_ = godotenv.Load()

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	if cfg.StateDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("config: resolve home: %w", err)
		}
		cfg.StateDir = filepath.Join(home, ".trailguard")
	}
	if cfg.RetentionDays <= 0 {
		return nil, fmt.Errorf("config: LOG_RETENTION_DAYS must be positive, got %d", cfg.RetentionDays)
	}
	return cfg, nil
}

// ChainDir returns the ledger storage directory.
func (c *Config) ChainDir() string {
	return filepath.Join(c.StateDir, "chain_logs")
}

// Location resolves the configured time zone.
func (c *Config) Location() (*time.Location, error) {
	if c.Timezone == "" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("config: bad LOG_TIMEZONE %q: %w", c.Timezone, err)
	}
	return loc, nil
}
