package gajni

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewConfig_FromEnvironment(t *testing.T) {
	t.Setenv("GAJNI_SUPABASE_URL", "https://proj.supabase.co")
	t.Setenv("GAJNI_SUPABASE_ANON_KEY", "anon")
	t.Setenv("GAJNI_CACHE_PATH", "/tmp/gajni-test/cache.db")
	t.Setenv("GAJNI_HTTP_TIMEOUT", "5s")

	cfg, err := NewConfig()
	require.NoError(t, err)
	assert.True(t, cfg.Configured())
	assert.Equal(t, "https://proj.supabase.co", cfg.SupabaseURL)
	assert.Equal(t, "/tmp/gajni-test/cache.db", cfg.CachePath)
	assert.Equal(t, 5*time.Second, cfg.HTTPTimeout)
}

func TestConfig_NotConfiguredWithoutBothValues(t *testing.T) {
	assert.False(t, (&Config{}).Configured())
	assert.False(t, (&Config{SupabaseURL: "https://x"}).Configured())
	assert.False(t, (&Config{SupabaseAnonKey: "k"}).Configured())
	assert.True(t, (&Config{SupabaseURL: "https://x", SupabaseAnonKey: "k"}).Configured())
}

func TestConfig_ResolveDefaults(t *testing.T) {
	cfg := Config{}
	require.NoError(t, cfg.ResolveDefaults())
	assert.NotEmpty(t, cfg.CachePath)
	assert.Equal(t, 30*time.Second, cfg.HTTPTimeout)
}
