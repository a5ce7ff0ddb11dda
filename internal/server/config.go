package server

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/rs/zerolog"
)

// Config contains the server configuration.
type Config struct {
	// Addr is the TCP address to listen on.
	Addr string

	// Session configuration
	SessionTimeout  time.Duration
	CleanupInterval time.Duration
	RequireSession  bool

	// Logging configuration
	LogLevel  string
	LogFormat string

	MetricsInterval time.Duration
	ShutdownTimeout time.Duration
}

// DefaultConfig returns the default server configuration.
func DefaultConfig() Config {
	return Config{
		Addr:            ":3000",
		SessionTimeout:  time.Hour,
		CleanupInterval: 5 * time.Minute,
		RequireSession:  true,
		LogLevel:        "info",
		LogFormat:       "console",
		MetricsInterval: 15 * time.Second,
		ShutdownTimeout: 30 * time.Second,
	}
}

// LoadConfigFromEnv starts from DefaultConfig and applies any MCP_* variables
// set in the environment.
func LoadConfigFromEnv() (Config, error) {
	cfg := DefaultConfig()

	if v := os.Getenv("MCP_ADDR"); v != "" {
		cfg.Addr = v
	}
	if v := os.Getenv("MCP_LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	if v := os.Getenv("MCP_LOG_FORMAT"); v != "" {
		cfg.LogFormat = v
	}
	if v := os.Getenv("MCP_REQUIRE_SESSION"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid MCP_REQUIRE_SESSION %q: %w", v, err)
		}
		cfg.RequireSession = b
	}

	durations := []struct {
		env string
		dst *time.Duration
	}{
		{"MCP_SESSION_TIMEOUT", &cfg.SessionTimeout},
		{"MCP_CLEANUP_INTERVAL", &cfg.CleanupInterval},
		{"MCP_METRICS_INTERVAL", &cfg.MetricsInterval},
		{"MCP_SHUTDOWN_TIMEOUT", &cfg.ShutdownTimeout},
	}
	for _, d := range durations {
		v := os.Getenv(d.env)
		if v == "" {
			continue
		}
		parsed, err := time.ParseDuration(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid %s %q: %w", d.env, v, err)
		}
		*d.dst = parsed
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate reports configuration values the server cannot run with.
func (c Config) Validate() error {
	if c.Addr == "" {
		return fmt.Errorf("listen address must not be empty")
	}
	if c.SessionTimeout <= 0 {
		return fmt.Errorf("session timeout must be positive, got %v", c.SessionTimeout)
	}
	if c.CleanupInterval <= 0 {
		return fmt.Errorf("cleanup interval must be positive, got %v", c.CleanupInterval)
	}
	if c.MetricsInterval <= 0 {
		return fmt.Errorf("metrics interval must be positive, got %v", c.MetricsInterval)
	}
	if c.ShutdownTimeout <= 0 {
		return fmt.Errorf("shutdown timeout must be positive, got %v", c.ShutdownTimeout)
	}
	if _, err := zerolog.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("invalid log level %q: %w", c.LogLevel, err)
	}
	if c.LogFormat != "console" && c.LogFormat != "json" {
		return fmt.Errorf("log format must be console or json, got %q", c.LogFormat)
	}
	return nil
}
