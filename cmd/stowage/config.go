package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/artpar/stowage/internal/core/domain"
	"github.com/artpar/stowage/internal/core/validation"
	"github.com/artpar/stowage/internal/shell/session"
	"github.com/artpar/stowage/internal/shell/workers"
)

// =============================================================================
// Config Types
// =============================================================================

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	DataDir   string          `mapstructure:"data_dir"`
	Log       LogConfig       `mapstructure:"log"`
	Rules     RulesConfig     `mapstructure:"rules"`
	Cost      CostConfig      `mapstructure:"cost"`
	Metrics   MetricsConfig   `mapstructure:"metrics"`
	Integrity IntegrityConfig `mapstructure:"integrity"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// Address returns the server address in host:port format.
func (c ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// DatabaseConfig holds database configuration.
// An empty DSN is derived from the data directory.
type DatabaseConfig struct {
	DSN string `mapstructure:"dsn"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// RulesConfig selects validator behaviour.
type RulesConfig struct {
	// CumulativeColumnWeight checks the summed column weight against the row
	// ceiling instead of each occupant alone.
	CumulativeColumnWeight bool `mapstructure:"cumulative_column_weight"`
}

// CostConfig prices moves and re-stows.
type CostConfig struct {
	PerMove   float64 `mapstructure:"per_move"`
	PerReStow float64 `mapstructure:"per_restow"`
}

// MetricsConfig controls the Prometheus endpoint.
type MetricsConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

// IntegrityConfig controls the background invariant checker.
type IntegrityConfig struct {
	Enabled       bool          `mapstructure:"enabled"`
	Interval      time.Duration `mapstructure:"interval"`
	MaxConcurrent int           `mapstructure:"max_concurrent"`
}

// =============================================================================
// Config Loading
// =============================================================================

// LoadConfig loads configuration from file and environment.
func LoadConfig(configPath string) (*Config, error) {
	v := viper.New()

	// Set defaults
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "30s")
	v.SetDefault("server.shutdown_timeout", "30s")
	v.SetDefault("data_dir", "./data")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("rules.cumulative_column_weight", false)
	v.SetDefault("cost.per_move", 1.0)
	v.SetDefault("cost.per_restow", 10.0)
	v.SetDefault("metrics.enabled", true)
	v.SetDefault("integrity.enabled", true)
	v.SetDefault("integrity.interval", "60s")
	v.SetDefault("integrity.max_concurrent", 4)

	// No default so an unset DSN can fall back to data_dir.
	if err := v.BindEnv("database.dsn"); err != nil {
		return nil, fmt.Errorf("failed to bind database.dsn: %w", err)
	}

	// Load from file if provided
	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			// A missing file falls back to defaults; a broken one is an error.
			var parseErr viper.ConfigParseError
			if errors.As(err, &parseErr) {
				return nil, fmt.Errorf("failed to parse config file: %w", err)
			}
		}
	}

	// Enable environment variable overrides
	v.SetEnvPrefix("STOWAGE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if cfg.Database.DSN == "" {
		cfg.Database.DSN = filepath.Join(cfg.DataDir, "stowage.db")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects settings the server cannot run with.
func (c *Config) Validate() error {
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port %d out of range", c.Server.Port)
	}
	if c.Cost.PerMove < 0 || c.Cost.PerReStow < 0 {
		return fmt.Errorf("cost.per_move and cost.per_restow must not be negative")
	}
	if c.Integrity.Enabled && c.Integrity.Interval <= 0 {
		return fmt.Errorf("integrity.interval must be positive")
	}
	if c.Integrity.MaxConcurrent < 0 {
		return fmt.Errorf("integrity.max_concurrent must not be negative")
	}
	switch strings.ToLower(c.Log.Format) {
	case "json", "text":
	default:
		return fmt.Errorf("log.format %q must be json or text", c.Log.Format)
	}
	return nil
}

// SessionConfig returns the rule and cost settings for plan sessions.
func (c *Config) SessionConfig() session.Config {
	return session.Config{
		Validation: validation.Options{CumulativeColumnWeight: c.Rules.CumulativeColumnWeight},
		Cost:       domain.CostModel{PerMove: c.Cost.PerMove, PerReStow: c.Cost.PerReStow},
	}
}

// IntegrityCheckerConfig returns the worker settings.
func (c *Config) IntegrityCheckerConfig() workers.IntegrityCheckerConfig {
	return workers.IntegrityCheckerConfig{
		Interval:      c.Integrity.Interval,
		MaxConcurrent: c.Integrity.MaxConcurrent,
	}
}

// =============================================================================
// Logger Setup
// =============================================================================

// SetupLogger creates a logger with the configured level and format.
func SetupLogger(cfg *Config) *slog.Logger {
	var level slog.Level
	switch strings.ToLower(cfg.Log.Level) {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn", "warning":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{
		Level: level,
	}

	var handler slog.Handler
	if strings.ToLower(cfg.Log.Format) == "text" {
		handler = slog.NewTextHandler(os.Stdout, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}

	return slog.New(handler)
}
