// Package config tests for client configuration loading.
package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

var envVars = []string{
	"REDISGRAPH_HOST", "REDISGRAPH_PORT", "REDISGRAPH_USERNAME", "REDISGRAPH_PASSWORD",
	"REDISGRAPH_DB", "REDISGRAPH_MODE", "REDISGRAPH_CLUSTER_ADDRS", "REDISGRAPH_POOL_SIZE",
	"REDISGRAPH_POOL_MIN_IDLE", "REDISGRAPH_POOL_TIMEOUT", "REDISGRAPH_DIAL_TIMEOUT",
	"REDISGRAPH_READ_TIMEOUT", "REDISGRAPH_WRITE_TIMEOUT", "REDISGRAPH_LOG_LEVEL",
	"REDISGRAPH_LOG_FORMAT", "REDISGRAPH_METRICS_ENABLED", "REDISGRAPH_METRICS_ADDRESS",
}

// clearEnvVars blanks every REDISGRAPH_* variable for the test's duration.
func clearEnvVars(t *testing.T) {
	t.Helper()
	for _, k := range envVars {
		t.Setenv(k, "")
	}
}

// TestLoadFromEnv_Defaults tests default values are loaded correctly.
func TestLoadFromEnv_Defaults(t *testing.T) {
	clearEnvVars(t)

	cfg := LoadFromEnv()

	if cfg.Server.Host != "localhost" {
		t.Errorf("expected host 'localhost', got %q", cfg.Server.Host)
	}
	if cfg.Server.Port != 6379 {
		t.Errorf("expected port 6379, got %d", cfg.Server.Port)
	}
	if cfg.Mode != ModePool {
		t.Errorf("expected mode %q, got %q", ModePool, cfg.Mode)
	}
	if cfg.Pool.Size != 10 {
		t.Errorf("expected pool size 10, got %d", cfg.Pool.Size)
	}
	if cfg.Pool.Timeout != 4*time.Second {
		t.Errorf("expected pool timeout 4s, got %v", cfg.Pool.Timeout)
	}
	if cfg.Logging.Level != "INFO" {
		t.Errorf("expected log level INFO, got %q", cfg.Logging.Level)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("defaults should validate: %v", err)
	}
}

// TestLoadFromEnv_Overrides tests REDISGRAPH_* variables win over defaults.
func TestLoadFromEnv_Overrides(t *testing.T) {
	clearEnvVars(t)
	t.Setenv("REDISGRAPH_HOST", "graph.internal")
	t.Setenv("REDISGRAPH_PORT", "7000")
	t.Setenv("REDISGRAPH_MODE", "CLUSTER")
	t.Setenv("REDISGRAPH_CLUSTER_ADDRS", "a:7000, b:7001 ,")
	t.Setenv("REDISGRAPH_POOL_SIZE", "3")
	t.Setenv("REDISGRAPH_READ_TIMEOUT", "15")
	t.Setenv("REDISGRAPH_LOG_FORMAT", "JSON")
	t.Setenv("REDISGRAPH_METRICS_ENABLED", "yes")

	cfg := LoadFromEnv()

	if cfg.Server.Addr() != "graph.internal:7000" {
		t.Errorf("unexpected addr %q", cfg.Server.Addr())
	}
	if cfg.Mode != ModeCluster {
		t.Errorf("expected cluster mode, got %q", cfg.Mode)
	}
	if len(cfg.Cluster.Addrs) != 2 || cfg.Cluster.Addrs[1] != "b:7001" {
		t.Errorf("unexpected cluster addrs %v", cfg.Cluster.Addrs)
	}
	if cfg.Pool.Size != 3 {
		t.Errorf("expected pool size 3, got %d", cfg.Pool.Size)
	}
	if cfg.Timeouts.Read != 15*time.Second {
		t.Errorf("expected read timeout 15s, got %v", cfg.Timeouts.Read)
	}
	if cfg.Logging.Format != "json" {
		t.Errorf("expected json format, got %q", cfg.Logging.Format)
	}
	if !cfg.Metrics.Enabled {
		t.Error("expected metrics enabled")
	}
}

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "redisgraph.yaml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

// TestLoadFromFile tests YAML values and env precedence over them.
func TestLoadFromFile(t *testing.T) {
	clearEnvVars(t)
	path := writeConfig(t, `
server:
  address: graph.internal:6380
  password: secret
  db: 2
mode: single
pool:
  size: 20
  timeout: 2s
timeouts:
  read: -1s
logging:
  level: debug
`)
	t.Setenv("REDISGRAPH_PORT", "6390")

	cfg, err := LoadFromFile(path)
	if err != nil {
		t.Fatalf("LoadFromFile: %v", err)
	}

	if cfg.Server.Host != "graph.internal" {
		t.Errorf("expected host from address, got %q", cfg.Server.Host)
	}
	if cfg.Server.Port != 6390 {
		t.Errorf("expected env port to win, got %d", cfg.Server.Port)
	}
	if cfg.Server.DB != 2 {
		t.Errorf("expected db 2, got %d", cfg.Server.DB)
	}
	if cfg.Mode != ModeSingle {
		t.Errorf("expected single mode, got %q", cfg.Mode)
	}
	if cfg.Pool.Size != 20 || cfg.Pool.Timeout != 2*time.Second {
		t.Errorf("unexpected pool config %+v", cfg.Pool)
	}
	if cfg.Timeouts.Read != -time.Second {
		t.Errorf("expected negative read timeout, got %v", cfg.Timeouts.Read)
	}
	if cfg.Logging.Level != "DEBUG" {
		t.Errorf("expected DEBUG, got %q", cfg.Logging.Level)
	}
	if strings.Contains(cfg.String(), "secret") {
		t.Errorf("String leaked the password: %s", cfg)
	}
}

// TestLoadFromFile_Missing tests a missing file falls back to defaults.
func TestLoadFromFile_Missing(t *testing.T) {
	clearEnvVars(t)

	cfg, err := LoadFromFile(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("missing file should not fail: %v", err)
	}
	if cfg.Server.Port != 6379 {
		t.Errorf("expected default port, got %d", cfg.Server.Port)
	}
}

// TestLoadFromFile_Invalid tests parse errors surface.
func TestLoadFromFile_Invalid(t *testing.T) {
	clearEnvVars(t)

	if _, err := LoadFromFile(writeConfig(t, "server: [")); err == nil {
		t.Error("expected YAML parse error")
	}
	if _, err := LoadFromFile(writeConfig(t, "pool:\n  timeout: soon\n")); err == nil {
		t.Error("expected duration parse error")
	}
	if _, err := LoadFromFile(writeConfig(t, "server:\n  address: nohostport\n")); err == nil {
		t.Error("expected address parse error")
	}
}

// TestValidate tests rejection of inconsistent configs.
func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"bad mode", func(c *Config) { c.Mode = "sentinel" }},
		{"no host", func(c *Config) { c.Server.Host = "" }},
		{"bad port", func(c *Config) { c.Server.Port = 70000 }},
		{"cluster without addrs", func(c *Config) { c.Mode = ModeCluster }},
		{"negative pool", func(c *Config) { c.Pool.Size = -1 }},
		{"min idle over size", func(c *Config) { c.Pool.MinIdle = 11 }},
		{"bad log format", func(c *Config) { c.Logging.Format = "xml" }},
		{"bad log level", func(c *Config) { c.Logging.Level = "TRACE" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := LoadDefaults()
			tt.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Errorf("expected validation error")
			}
		})
	}

	cfg := LoadDefaults()
	cfg.Mode = ModeCluster
	cfg.Cluster.Addrs = []string{"a:7000"}
	if err := cfg.Validate(); err != nil {
		t.Errorf("cluster config should validate: %v", err)
	}
	if !strings.Contains(cfg.String(), "a:7000") {
		t.Errorf("String should show cluster addrs: %s", cfg)
	}
}
