package api

import "time"

// Config holds server configuration.
type Config struct {
	Port           int
	Version        string
	AllowedOrigins []string      // CORS and websocket origins (empty = allow all)
	CacheTTL       time.Duration // 0 = entries never expire
	CacheSize      int           // 0 = unbounded
	Workers        int           // batch job worker count
	MaxBodyBytes   int64
	MaxJobSize     int // equations per job
}

const (
	defaultMaxBodyBytes = 1 << 20
	defaultMaxJobSize   = 10000
	defaultWorkers      = 4
)

func (c Config) withDefaults() Config {
	if c.MaxBodyBytes <= 0 {
		c.MaxBodyBytes = defaultMaxBodyBytes
	}
	if c.MaxJobSize <= 0 {
		c.MaxJobSize = defaultMaxJobSize
	}
	if c.Workers <= 0 {
		c.Workers = defaultWorkers
	}
	if c.Version == "" {
		c.Version = "dev"
	}
	return c
}
