package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"
)

// Config is the complete application configuration.
type Config struct {
	API     APIConfig     `mapstructure:"api"`
	Refresh RefreshConfig `mapstructure:"refresh"`
	Server  ServerConfig  `mapstructure:"server"`
	Logging LoggingConfig `mapstructure:"logging"`
	Metrics MetricsConfig `mapstructure:"metrics"`
	Health  HealthConfig  `mapstructure:"health"`
	Debug   DebugConfig   `mapstructure:"debug"`
}

// APIConfig describes the backend the dashboard talks to.
type APIConfig struct {
	// BaseURL is prefixed to relative request paths.
	BaseURL string `mapstructure:"base_url"`

	// DefaultTimeout bounds one logical request, CSRF refresh and retry included.
	DefaultTimeout time.Duration `mapstructure:"default_timeout"`

	// CSRFTokenTTL is how long a fetched token is reused. Keep it below the
	// backend's own token lifetime.
	CSRFTokenTTL  time.Duration `mapstructure:"csrf_token_ttl"`
	CSRFTokenPath string        `mapstructure:"csrf_token_path"`

	UserAgent string          `mapstructure:"user_agent"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`

	// Tracing wraps the HTTP transport with OpenTelemetry instrumentation.
	Tracing bool `mapstructure:"tracing"`
}

// RateLimitConfig throttles outbound requests. Zero RPS disables it.
type RateLimitConfig struct {
	RPS   float64 `mapstructure:"rps"`
	Burst int     `mapstructure:"burst"`
}

// RefreshConfig controls the dashboard refresher used by serve.
type RefreshConfig struct {
	Interval time.Duration `mapstructure:"interval"`
	Year     int           `mapstructure:"year"`
}

// ServerConfig contains HTTP server configuration
type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	// Level controls the minimum log level
	// Valid values: trace, debug, info, warn, error
	Level string `mapstructure:"level"`

	// Profile selects the logging complexity level
	// Valid values: SIMPLE, STRUCTURED, ENTERPRISE
	Profile string `mapstructure:"profile"`
}

// MetricsConfig contains Prometheus metrics configuration
type MetricsConfig struct {
	Enabled bool `mapstructure:"enabled"`
	Port    int  `mapstructure:"port"`
}

// HealthConfig contains health check configuration
type HealthConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

// DebugConfig contains debug configuration
type DebugConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

// Validate reports every problem found in c.
func (c *Config) Validate() error {
	if c == nil {
		return errors.New("config is nil")
	}

	var errs []error
	base := strings.TrimSpace(c.API.BaseURL)
	if base == "" {
		errs = append(errs, errors.New("api.base_url is required"))
	} else if u, err := url.Parse(base); err != nil || u.Scheme == "" || u.Host == "" {
		errs = append(errs, fmt.Errorf("api.base_url must be an absolute URL, got %q", base))
	}
	if c.API.DefaultTimeout <= 0 {
		errs = append(errs, fmt.Errorf("api.default_timeout must be positive, got %s", c.API.DefaultTimeout))
	}
	if c.API.CSRFTokenTTL <= 0 {
		errs = append(errs, fmt.Errorf("api.csrf_token_ttl must be positive, got %s", c.API.CSRFTokenTTL))
	}
	if c.API.RateLimit.RPS < 0 {
		errs = append(errs, errors.New("api.rate_limit.rps must not be negative"))
	}
	if c.Refresh.Interval < 0 {
		errs = append(errs, errors.New("refresh.interval must not be negative"))
	}
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server.port out of range: %d", c.Server.Port))
	}
	return errors.Join(errs...)
}
