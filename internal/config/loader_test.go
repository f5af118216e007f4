package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func prepared(t *testing.T, file string) *viper.Viper {
	t.Helper()
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	v := viper.New()
	Prepare(context.Background(), v, file)
	return v
}

func TestLoad(t *testing.T) {
	ctx := context.Background()

	t.Run("LoadDefaults", func(t *testing.T) {
		v := prepared(t, "")
		used, err := ReadFile(v)
		require.NoError(t, err)
		assert.Empty(t, used)

		cfg, err := Load(ctx, v)
		require.NoError(t, err)
		require.NotNil(t, cfg)

		assert.Equal(t, "http://localhost:8000", cfg.API.BaseURL)
		assert.Equal(t, 30*time.Second, cfg.API.DefaultTimeout)
		assert.Equal(t, 50*time.Minute, cfg.API.CSRFTokenTTL)
		assert.Equal(t, "/api/csrf-token", cfg.API.CSRFTokenPath)
		assert.Equal(t, 5*time.Minute, cfg.Refresh.Interval)
		assert.Equal(t, "localhost", cfg.Server.Host)
		assert.Equal(t, 8080, cfg.Server.Port)
		assert.Equal(t, 10*time.Second, cfg.Server.ShutdownTimeout)
		assert.Equal(t, "info", cfg.Logging.Level)
		assert.True(t, cfg.Metrics.Enabled)
		assert.Equal(t, 9090, cfg.Metrics.Port)
		assert.Same(t, cfg, GetConfig())
	})

	t.Run("EnvironmentOverrides", func(t *testing.T) {
		t.Setenv("YUKYU_API_BASE_URL", "https://leave.example.com")
		t.Setenv("YUKYU_API_DEFAULT_TIMEOUT", "5s")
		t.Setenv("YUKYU_API_RATE_LIMIT_RPS", "2.5")
		t.Setenv("YUKYU_SERVER_PORT", "9000")
		t.Setenv("YUKYU_REFRESH_YEAR", "2025")

		cfg, err := Load(ctx, prepared(t, ""))
		require.NoError(t, err)

		assert.Equal(t, "https://leave.example.com", cfg.API.BaseURL)
		assert.Equal(t, 5*time.Second, cfg.API.DefaultTimeout)
		assert.InDelta(t, 2.5, cfg.API.RateLimit.RPS, 0.0001)
		assert.Equal(t, 9000, cfg.Server.Port)
		assert.Equal(t, 2025, cfg.Refresh.Year)
	})

	t.Run("ExplicitFile", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "yukyu.yaml")
		require.NoError(t, os.WriteFile(path, []byte(`
api:
  base_url: https://hr.internal:8443
  csrf_token_ttl: 10m
  tracing: true
refresh:
  interval: 30s
logging:
  level: debug
`), 0o600))

		v := prepared(t, path)
		used, err := ReadFile(v)
		require.NoError(t, err)
		assert.Equal(t, path, used)

		cfg, err := Load(ctx, v)
		require.NoError(t, err)
		assert.Equal(t, "https://hr.internal:8443", cfg.API.BaseURL)
		assert.Equal(t, 10*time.Minute, cfg.API.CSRFTokenTTL)
		assert.True(t, cfg.API.Tracing)
		assert.Equal(t, 30*time.Second, cfg.Refresh.Interval)
		assert.Equal(t, "debug", cfg.Logging.Level)
		// untouched keys keep their defaults
		assert.Equal(t, 30*time.Second, cfg.API.DefaultTimeout)
	})

	t.Run("MissingExplicitFile", func(t *testing.T) {
		v := prepared(t, filepath.Join(t.TempDir(), "absent.yaml"))
		_, err := ReadFile(v)
		require.Error(t, err)
	})

	t.Run("InvalidValuesRejected", func(t *testing.T) {
		t.Setenv("YUKYU_API_DEFAULT_TIMEOUT", "0s")
		_, err := Load(ctx, prepared(t, ""))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "api.default_timeout")
	})
}

func TestValidate(t *testing.T) {
	valid := Config{API: APIConfig{
		BaseURL:        "http://localhost:8000",
		DefaultTimeout: time.Second,
		CSRFTokenTTL:   time.Minute,
	}}
	require.NoError(t, valid.Validate())

	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"EmptyBaseURL", func(c *Config) { c.API.BaseURL = " " }, "api.base_url is required"},
		{"RelativeBaseURL", func(c *Config) { c.API.BaseURL = "/api" }, "absolute URL"},
		{"NegativeTimeout", func(c *Config) { c.API.DefaultTimeout = -time.Second }, "api.default_timeout"},
		{"ZeroTTL", func(c *Config) { c.API.CSRFTokenTTL = 0 }, "api.csrf_token_ttl"},
		{"NegativeRPS", func(c *Config) { c.API.RateLimit.RPS = -1 }, "api.rate_limit.rps"},
		{"PortRange", func(c *Config) { c.Server.Port = 70000 }, "server.port"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid
			tt.mutate(&cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}

	var nilConfig *Config
	require.Error(t, nilConfig.Validate())
}

func TestConfigFileExists(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	assert.False(t, ConfigFileExists(path))
	require.NoError(t, os.WriteFile(path, []byte("api: {}\n"), 0o600))
	assert.True(t, ConfigFileExists(path))
	assert.False(t, ConfigFileExists(""))
	assert.NotEmpty(t, DefaultConfigPath(context.Background()))
}
