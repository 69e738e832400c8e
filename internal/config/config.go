// Package config loads server settings from environment variables.
package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
)

// Config holds everything the server reads from the environment.
type Config struct {
	// DBPath is the SQLite database file.
	DBPath string `env:"DB_PATH" envDefault:"taxforms.db"`
	// Port the HTTP server listens on.
	Port string `env:"PORT" envDefault:"8080"`
	// DefaultTaxYear overrides the "prior calendar year" default. Zero
	// keeps the default.
	DefaultTaxYear int `env:"DEFAULT_TAX_YEAR"`
	// Strict1099Threshold makes the below-$600 warning block single-form
	// generation.
	Strict1099Threshold bool `env:"STRICT_1099_THRESHOLD"`
	// BulkWorkers bounds bulk-run concurrency. Zero means 4.
	BulkWorkers int `env:"BULK_WORKERS"`
}

// Load parses the environment into a Config.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	return cfg, nil
}
