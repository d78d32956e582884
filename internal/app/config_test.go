package app

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_Defaults(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("THREADCRAFT_DATABASE_URL", "postgres://localhost/threadcraft")
	t.Setenv("PORT", "")

	cfg, err := loadConfig([]string{})
	require.NoError(t, err)
	assert.Equal(t, defaultAddr, cfg.Addr)
	assert.Equal(t, "postgres://localhost/threadcraft", cfg.DatabaseURL)
	assert.Equal(t, "threadcraft.orders", cfg.Events.Exchange)
	assert.Equal(t, int64(500), cfg.Pricing.ShippingFlat)
	assert.Equal(t, 100, cfg.RateLimit.Max)
	assert.Equal(t, time.Minute, cfg.RateLimit.Window)
	assert.Equal(t, 15*time.Second, cfg.Graceful.ShutdownTimeout)

	rate, err := cfg.Pricing.Rate()
	require.NoError(t, err)
	assert.Equal(t, "1", rate.String())
}

func TestLoadConfig_PlatformDefaults(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("THREADCRAFT_DATABASE_URL", "")
	t.Setenv("DATABASE_URL", "postgres://railway/db")
	t.Setenv("PORT", "9000")

	cfg, err := loadConfig([]string{})
	require.NoError(t, err)
	assert.Equal(t, "postgres://railway/db", cfg.DatabaseURL)
	assert.Equal(t, "0.0.0.0:9000", cfg.Addr)
}

func TestLoadConfig_MissingDatabase(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("THREADCRAFT_DATABASE_URL", "")
	t.Setenv("DATABASE_URL", "")

	_, err := loadConfig([]string{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "database URL is required")
}

func TestConfig_Validate(t *testing.T) {
	valid := func() Config {
		return Config{
			DatabaseURL: "postgres://x",
			Pricing:     PricingConfig{ShippingFlat: 500, DisplayRate: "1"},
			RateLimit:   RateLimitConfig{Max: 10, Window: time.Second},
		}
	}
	for _, tt := range []struct {
		name   string
		mutate func(*Config)
	}{
		{"bad rate", func(c *Config) { c.Pricing.DisplayRate = "abc" }},
		{"zero rate", func(c *Config) { c.Pricing.DisplayRate = "0" }},
		{"negative shipping", func(c *Config) { c.Pricing.ShippingFlat = -1 }},
		{"no rate limit", func(c *Config) { c.RateLimit.Max = 0 }},
	} {
		t.Run(tt.name, func(t *testing.T) {
			c := valid()
			tt.mutate(&c)
			require.Error(t, c.validate())
		})
	}

	c := valid()
	require.NoError(t, c.validate())
}
