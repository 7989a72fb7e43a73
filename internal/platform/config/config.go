// Copyright (c) 2026 Shelfmark. All rights reserved.

/*
Package config handles application-wide settings and environment parsing.

It leverages 'caarlos0/env' to map OS environment variables into a strongly-typed
Go struct, providing early validation and default values.

Usage:

	cfg, err := config.Load()
	if err != nil {
	    log.Fatal(err)
	}

Architecture:

  - Immutability: Once loaded, configuration is read-only.
  - DI-Friendly: Passed to core components (database, cache, notifier) via constructors.
  - Zero Hidden State: No global variables are used to store config.

This ensures the application is Twelve-Factor compliant by storing config in the env.
*/
package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"

	"github.com/LaMia-3/shelfmark/pkg/query"
)

// # Configuration Schema

// Config holds all runtime configuration for the Shelfmark API server.
type Config struct {

	// Server settings
	ServerPort  string `env:"SERVER_PORT"  envDefault:"8080"`
	Environment string `env:"ENVIRONMENT"  envDefault:"development"`
	Debug       bool   `env:"DEBUG"        envDefault:"false"`

	// Embedded database. The default keeps everything under ./data so a
	// plain `shelfmark` invocation works with no setup.
	DatabasePath string `env:"DATABASE_PATH" envDefault:"./data/shelfmark.db"`

	// FallbackDir is where per-collection JSON snapshots are written. They
	// serve read-only results while the database is unavailable.
	FallbackDir string `env:"FALLBACK_DIR" envDefault:"./data/fallback"`

	// Collection cache
	CacheTTL time.Duration `env:"CACHE_TTL" envDefault:"5m"`

	// Upcoming-release scanning
	ReleaseCheckInterval time.Duration `env:"RELEASE_CHECK_INTERVAL" envDefault:"6h"`
	ReleaseWindowDays    int           `env:"RELEASE_WINDOW_DAYS"    envDefault:"30"`

	// Authentication. AuthPasswordHash is a bcrypt hash of the owner
	// password; when empty the instance runs open (no login required).
	SessionSecret    string `env:"SESSION_SECRET,required"`
	AuthPasswordHash string `env:"AUTH_PASSWORD_HASH"`

	// Rate limiting (requests per second per client IP)
	RateLimitRPS float64 `env:"RATE_LIMIT_RPS" envDefault:"100"`

	// Cross-Origin Resource Sharing
	ExtraOrigins string `env:"EXTRA_ORIGINS"`
}

// # Configuration Loading

// Load parses environment variables into a [Config] struct.
func Load() (*Config, error) {

	// Initialize an empty config struct
	cfg := &Config{}

	// Use the 'env' package to map environment variables to struct fields.
	// This will fail if any field marked with 'required' is missing.
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("config: failed to parse environment variables: %w", err)
	}

	return cfg, nil
}

// AuthEnabled reports whether login is required for mutating endpoints.
func (c *Config) AuthEnabled() bool {
	return c.AuthPasswordHash != ""
}

// AllowedOrigins returns the parsed EXTRA_ORIGINS list for CORS checks.
func (c *Config) AllowedOrigins() []string {
	return query.StringSlice(c.ExtraOrigins)
}

// IsDevelopment reports whether the server is running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

// IsProduction reports whether the server is running in production mode.
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}
