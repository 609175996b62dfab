// Package config loads runtime settings from the environment.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config holds settings shared by the CLI and the API server. Command-line
// flags override these values.
type Config struct {
	Port           int           `env:"COMPUTOR_PORT"            envDefault:"8080"`
	HistoryDB      string        `env:"COMPUTOR_HISTORY_DB"`
	CacheTTL       time.Duration `env:"COMPUTOR_CACHE_TTL"       envDefault:"10m"`
	CacheSize      int           `env:"COMPUTOR_CACHE_SIZE"      envDefault:"1024"`
	Workers        int           `env:"COMPUTOR_WORKERS"         envDefault:"4"`
	LogLevel       string        `env:"COMPUTOR_LOG_LEVEL"       envDefault:"info"`
	LogFormat      string        `env:"COMPUTOR_LOG_FORMAT"      envDefault:"auto"`
	AllowedOrigins []string      `env:"COMPUTOR_ALLOWED_ORIGINS" envSeparator:","`
}

// Load reads Config from the process environment.
func Load() (Config, error) {
	return parse(env.Options{})
}

// LoadFrom reads Config from the given variables instead of the process
// environment.
func LoadFrom(vars map[string]string) (Config, error) {
	return parse(env.Options{Environment: vars})
}

func parse(opts env.Options) (Config, error) {
	var cfg Config
	if err := env.ParseWithOptions(&cfg, opts); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if cfg.HistoryDB == "" {
		cfg.HistoryDB = DefaultHistoryPath()
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks value ranges.
func (c Config) Validate() error {
	if c.Port < 0 || c.Port > 65535 {
		return fmt.Errorf("COMPUTOR_PORT %d out of range", c.Port)
	}
	if c.Workers < 1 {
		return fmt.Errorf("COMPUTOR_WORKERS must be at least 1, got %d", c.Workers)
	}
	if c.CacheSize < 0 {
		return fmt.Errorf("COMPUTOR_CACHE_SIZE must not be negative, got %d", c.CacheSize)
	}
	if c.CacheTTL < 0 {
		return fmt.Errorf("COMPUTOR_CACHE_TTL must not be negative, got %s", c.CacheTTL)
	}
	return nil
}

// DefaultHistoryPath is history.db under the user config directory, or in
// the working directory when that is unknown.
func DefaultHistoryPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "computor-history.db"
	}
	return filepath.Join(dir, "computor", "history.db")
}
