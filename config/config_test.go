package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoader_Defaults(t *testing.T) {
	cfg, err := NewLoader().Load()
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.HTTPPort)
	assert.Equal(t, 9090, cfg.Server.MetricsPort)
	assert.Equal(t, "memory", cfg.Store.Backend)
	assert.Equal(t, 24*time.Hour, cfg.Store.TTL)
	assert.Equal(t, "quick", cfg.Council.RatingMode)
	assert.False(t, cfg.Council.BatchAnalysis)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.False(t, cfg.Telemetry.Enabled)
}

func TestLoader_YAMLOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
server:
  http_port: 9999
store:
  backend: redis
  ttl: 1h
council:
  batch_analysis: true
  rating_mode: analysis
redis:
  addr: redis.internal:6379
  key_prefix: cf-test
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	cfg, err := NewLoader().WithConfigPath(path).Load()
	require.NoError(t, err)

	assert.Equal(t, 9999, cfg.Server.HTTPPort)
	assert.Equal(t, "redis", cfg.Store.Backend)
	assert.Equal(t, time.Hour, cfg.Store.TTL)
	assert.True(t, cfg.Council.BatchAnalysis)
	assert.Equal(t, "analysis", cfg.Council.RatingMode)
	assert.Equal(t, "redis.internal:6379", cfg.Redis.Addr)
	assert.Equal(t, "cf-test", cfg.Redis.KeyPrefix)

	// Untouched sections keep their defaults.
	assert.Equal(t, 9090, cfg.Server.MetricsPort)
	assert.Equal(t, "info", cfg.Log.Level)
}

func TestLoader_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := NewLoader().WithConfigPath("/nonexistent/config.yaml").Load()
	require.NoError(t, err)
	assert.Equal(t, 8080, cfg.Server.HTTPPort)
}

func TestLoader_EnvOverridesEverything(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server:\n  http_port: 9999\n"), 0o600))

	t.Setenv("COUNCILFLOW_SERVER_HTTP_PORT", "7777")
	t.Setenv("COUNCILFLOW_STORE_TTL", "30m")
	t.Setenv("COUNCILFLOW_COUNCIL_RATING_MODE", "analysis")
	t.Setenv("COUNCILFLOW_COUNCIL_SEED", "42")
	t.Setenv("COUNCILFLOW_TELEMETRY_ENABLED", "true")
	t.Setenv("COUNCILFLOW_LOG_OUTPUT_PATHS", "stdout, /var/log/cf.log")

	cfg, err := NewLoader().WithConfigPath(path).Load()
	require.NoError(t, err)

	assert.Equal(t, 7777, cfg.Server.HTTPPort, "env beats YAML")
	assert.Equal(t, 30*time.Minute, cfg.Store.TTL)
	assert.Equal(t, "analysis", cfg.Council.RatingMode)
	assert.Equal(t, int64(42), cfg.Council.Seed)
	assert.True(t, cfg.Telemetry.Enabled)
	assert.Equal(t, []string{"stdout", "/var/log/cf.log"}, cfg.Log.OutputPaths)
}

func TestLoader_CustomEnvPrefix(t *testing.T) {
	t.Setenv("CF_SERVER_HTTP_PORT", "6060")

	cfg, err := NewLoader().WithEnvPrefix("CF").Load()
	require.NoError(t, err)
	assert.Equal(t, 6060, cfg.Server.HTTPPort)
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		errMsg string
	}{
		{
			name:   "valid defaults",
			mutate: func(c *Config) {},
		},
		{
			name:   "bad port",
			mutate: func(c *Config) { c.Server.HTTPPort = 0 },
			errMsg: "invalid HTTP port",
		},
		{
			name:   "bad backend",
			mutate: func(c *Config) { c.Store.Backend = "postgres" },
			errMsg: "unknown store backend",
		},
		{
			name:   "bad rating mode",
			mutate: func(c *Config) { c.Council.RatingMode = "turbo" },
			errMsg: "unknown rating mode",
		},
		{
			name:   "bad rate limit",
			mutate: func(c *Config) { c.Server.RateLimitRPS = 0 },
			errMsg: "rate_limit_rps must be positive",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.errMsg == "" {
				assert.NoError(t, err)
			} else {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errMsg)
			}
		})
	}
}

func TestLoader_InvalidEnvValue(t *testing.T) {
	t.Setenv("COUNCILFLOW_SERVER_HTTP_PORT", "not-a-number")

	_, err := NewLoader().Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "COUNCILFLOW_SERVER_HTTP_PORT")
}
