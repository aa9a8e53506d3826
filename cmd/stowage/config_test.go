package main

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/artpar/stowage/internal/core/domain"
)

// =============================================================================
// Config Loading Tests
// =============================================================================

func TestLoadConfig_DefaultValues(t *testing.T) {
	clearEnv(t)

	cfg, err := LoadConfig("")
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0", cfg.Server.Host)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 30*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, 30*time.Second, cfg.Server.WriteTimeout)
	assert.Equal(t, 30*time.Second, cfg.Server.ShutdownTimeout)
	assert.Equal(t, "data/stowage.db", cfg.Database.DSN)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.False(t, cfg.Rules.CumulativeColumnWeight)
	assert.Equal(t, 1.0, cfg.Cost.PerMove)
	assert.Equal(t, 10.0, cfg.Cost.PerReStow)
	assert.True(t, cfg.Metrics.Enabled)
	assert.True(t, cfg.Integrity.Enabled)
	assert.Equal(t, 60*time.Second, cfg.Integrity.Interval)
	assert.Equal(t, 4, cfg.Integrity.MaxConcurrent)
}

func TestLoadConfig_FromFile(t *testing.T) {
	clearEnv(t)

	configContent := `
server:
  host: "127.0.0.1"
  port: 9000
  read_timeout: 60s
  write_timeout: 60s
  shutdown_timeout: 15s

database:
  dsn: "/tmp/test.db"

log:
  level: "debug"
  format: "text"

rules:
  cumulative_column_weight: true

cost:
  per_move: 2
  per_restow: 25.5

metrics:
  enabled: false

integrity:
  enabled: true
  interval: 5m
  max_concurrent: 8
`
	tmpFile := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(tmpFile, []byte(configContent), 0644))

	cfg, err := LoadConfig(tmpFile)
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1", cfg.Server.Host)
	assert.Equal(t, 9000, cfg.Server.Port)
	assert.Equal(t, 60*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, 60*time.Second, cfg.Server.WriteTimeout)
	assert.Equal(t, 15*time.Second, cfg.Server.ShutdownTimeout)
	assert.Equal(t, "/tmp/test.db", cfg.Database.DSN)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "text", cfg.Log.Format)
	assert.True(t, cfg.Rules.CumulativeColumnWeight)
	assert.Equal(t, 2.0, cfg.Cost.PerMove)
	assert.Equal(t, 25.5, cfg.Cost.PerReStow)
	assert.False(t, cfg.Metrics.Enabled)
	assert.Equal(t, 5*time.Minute, cfg.Integrity.Interval)
	assert.Equal(t, 8, cfg.Integrity.MaxConcurrent)
}

func TestLoadConfig_EnvironmentOverride(t *testing.T) {
	clearEnv(t)

	t.Setenv("STOWAGE_SERVER_HOST", "192.168.1.1")
	t.Setenv("STOWAGE_SERVER_PORT", "3000")
	t.Setenv("STOWAGE_DATABASE_DSN", "/custom/path.db")
	t.Setenv("STOWAGE_LOG_LEVEL", "warn")
	t.Setenv("STOWAGE_LOG_FORMAT", "text")
	t.Setenv("STOWAGE_RULES_CUMULATIVE_COLUMN_WEIGHT", "true")
	t.Setenv("STOWAGE_COST_PER_RESTOW", "4")

	cfg, err := LoadConfig("")
	require.NoError(t, err)

	assert.Equal(t, "192.168.1.1", cfg.Server.Host)
	assert.Equal(t, 3000, cfg.Server.Port)
	assert.Equal(t, "/custom/path.db", cfg.Database.DSN)
	assert.Equal(t, "warn", cfg.Log.Level)
	assert.Equal(t, "text", cfg.Log.Format)
	assert.True(t, cfg.Rules.CumulativeColumnWeight)
	assert.Equal(t, 4.0, cfg.Cost.PerReStow)
}

func TestLoadConfig_DataDirDerivesDSN(t *testing.T) {
	clearEnv(t)

	t.Setenv("STOWAGE_DATA_DIR", "/var/lib/stowage")

	cfg, err := LoadConfig("")
	require.NoError(t, err)

	assert.Equal(t, "/var/lib/stowage/stowage.db", cfg.Database.DSN)
}

func TestLoadConfig_ExplicitDSNOverridesDataDir(t *testing.T) {
	clearEnv(t)

	t.Setenv("STOWAGE_DATA_DIR", "/var/lib/stowage")
	t.Setenv("STOWAGE_DATABASE_DSN", "/custom/path.db")

	cfg, err := LoadConfig("")
	require.NoError(t, err)

	assert.Equal(t, "/custom/path.db", cfg.Database.DSN)
}

func TestLoadConfig_FileNotFound_UsesDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := LoadConfig("/nonexistent/path/config.yaml")
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0", cfg.Server.Host)
	assert.Equal(t, 8080, cfg.Server.Port)
}

func TestLoadConfig_InvalidFile(t *testing.T) {
	clearEnv(t)

	tmpFile := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(tmpFile, []byte("invalid: yaml: content: [[["), 0644))

	_, err := LoadConfig(tmpFile)
	assert.Error(t, err)
}

func TestLoadConfig_InvalidValues(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{"port too large", map[string]string{"STOWAGE_SERVER_PORT": "70000"}},
		{"negative move cost", map[string]string{"STOWAGE_COST_PER_MOVE": "-1"}},
		{"negative restow cost", map[string]string{"STOWAGE_COST_PER_RESTOW": "-0.5"}},
		{"unknown log format", map[string]string{"STOWAGE_LOG_FORMAT": "xml"}},
		{"zero integrity interval", map[string]string{"STOWAGE_INTEGRITY_INTERVAL": "0s"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := LoadConfig("")
			assert.Error(t, err)
		})
	}
}

func TestConfig_SessionConfig(t *testing.T) {
	cfg := &Config{
		Rules: RulesConfig{CumulativeColumnWeight: true},
		Cost:  CostConfig{PerMove: 3, PerReStow: 7},
	}

	sc := cfg.SessionConfig()
	assert.True(t, sc.Validation.CumulativeColumnWeight)
	assert.Equal(t, domain.CostModel{PerMove: 3, PerReStow: 7}, sc.Cost)
}

func TestConfig_IntegrityCheckerConfig(t *testing.T) {
	cfg := &Config{Integrity: IntegrityConfig{Enabled: true, Interval: time.Minute, MaxConcurrent: 2}}

	wc := cfg.IntegrityCheckerConfig()
	assert.Equal(t, time.Minute, wc.Interval)
	assert.Equal(t, 2, wc.MaxConcurrent)
}

// =============================================================================
// Logger Setup Tests
// =============================================================================

func TestSetupLogger(t *testing.T) {
	tests := []struct {
		level  string
		format string
	}{
		{"info", "json"},
		{"info", "text"},
		{"invalid", "json"},
		{"debug", "json"},
		{"warn", "json"},
		{"error", "text"},
	}

	for _, tt := range tests {
		t.Run(tt.level+"/"+tt.format, func(t *testing.T) {
			logger := SetupLogger(&Config{Log: LogConfig{Level: tt.level, Format: tt.format}})
			assert.NotNil(t, logger)
		})
	}
}

func TestConfig_Address(t *testing.T) {
	cfg := &Config{
		Server: ServerConfig{
			Host: "localhost",
			Port: 8080,
		},
	}

	assert.Equal(t, "localhost:8080", cfg.Server.Address())
}

// =============================================================================
// Test Helpers
// =============================================================================

func clearEnv(t *testing.T) {
	t.Helper()
	envVars := []string{
		"STOWAGE_SERVER_HOST",
		"STOWAGE_SERVER_PORT",
		"STOWAGE_DATABASE_DSN",
		"STOWAGE_DATA_DIR",
		"STOWAGE_LOG_LEVEL",
		"STOWAGE_LOG_FORMAT",
		"STOWAGE_RULES_CUMULATIVE_COLUMN_WEIGHT",
		"STOWAGE_COST_PER_MOVE",
		"STOWAGE_COST_PER_RESTOW",
		"STOWAGE_METRICS_ENABLED",
		"STOWAGE_INTEGRITY_ENABLED",
		"STOWAGE_INTEGRITY_INTERVAL",
		"STOWAGE_INTEGRITY_MAX_CONCURRENT",
	}
	for _, v := range envVars {
		os.Unsetenv(v)
	}
}
