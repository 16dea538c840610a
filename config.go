package gajni

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config holds the client configuration.
// Environment variables are parsed from the GAJNI_ prefix, e.g.
// GAJNI_SUPABASE_URL, GAJNI_SUPABASE_ANON_KEY.
type Config struct {
	// Supabase project endpoint and public (anon) API key. When either is
	// missing the backend is considered not configured: authentication is
	// disabled and the client runs local-only, without erroring.
	SupabaseURL     string `envconfig:"SUPABASE_URL" default:""`
	SupabaseAnonKey string `envconfig:"SUPABASE_ANON_KEY" default:""`

	// CachePath is the SQLite file backing the local durable cache.
	// Defaults to <user cache dir>/gajni/cache.db.
	CachePath string `envconfig:"CACHE_PATH" default:""`

	// HTTPTimeout bounds each remote request.
	HTTPTimeout time.Duration `envconfig:"HTTP_TIMEOUT" default:"30s"`
}

// Configured reports whether the hosted backend can be reached at all.
func (c *Config) Configured() bool {
	return c.SupabaseURL != "" && c.SupabaseAnonKey != ""
}

// ResolveDefaults fills derived values that envconfig defaults cannot
// express.
func (c *Config) ResolveDefaults() error {
	if c.CachePath == "" {
		dir, err := os.UserCacheDir()
		if err != nil {
			return fmt.Errorf("resolve cache path: %w", err)
		}
		c.CachePath = filepath.Join(dir, "gajni", "cache.db")
	}
	if c.HTTPTimeout <= 0 {
		c.HTTPTimeout = 30 * time.Second
	}
	return nil
}

// NewConfig parses the environment into a Config.
func NewConfig() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("GAJNI", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process environment variables: %w", err)
	}
	if err := cfg.ResolveDefaults(); err != nil {
		return nil, err
	}
	return &cfg, nil
}
