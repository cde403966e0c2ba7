// Package config handles RedisGraph client configuration via YAML files and
// environment variables.
//
// Configuration Precedence (highest to lowest):
//  1. Command-line flags (--host, --port, --mode, etc.)
//  2. Environment variables (REDISGRAPH_*)
//  3. Config file (redisgraph.yaml)
//  4. Built-in defaults
//
// Example Usage:
//
//	cfg, err := config.LoadFromFile(config.FindConfigFile())
//	if err != nil {
//		log.Fatalf("Invalid config: %v", err)
//	}
//	client, err := redisgraph.Dial(cfg)
//
// Environment Variables (all use REDISGRAPH_ prefix):
//
// Server:
//   - REDISGRAPH_HOST="localhost"
//   - REDISGRAPH_PORT=6379
//   - REDISGRAPH_USERNAME, REDISGRAPH_PASSWORD
//   - REDISGRAPH_DB=0
//
// Topology:
//   - REDISGRAPH_MODE="pool" | "single" | "cluster"
//   - REDISGRAPH_CLUSTER_ADDRS="10.0.0.1:6379,10.0.0.2:6379"
//   - REDISGRAPH_POOL_SIZE=10
//   - REDISGRAPH_POOL_MIN_IDLE=0
//   - REDISGRAPH_POOL_TIMEOUT=4s
//
// Timeouts:
//   - REDISGRAPH_DIAL_TIMEOUT=5s
//   - REDISGRAPH_READ_TIMEOUT=3s
//   - REDISGRAPH_WRITE_TIMEOUT=3s
//
// Logging:
//   - REDISGRAPH_LOG_LEVEL="INFO"
//   - REDISGRAPH_LOG_FORMAT="text" | "json"
package config

import (
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Topology modes.
const (
	ModePool    = "pool"
	ModeSingle  = "single"
	ModeCluster = "cluster"
)

// Config holds all client configuration.
//
// Configuration is organized into logical sections:
//   - Server: where the server lives and how to authenticate
//   - Mode/Cluster/Pool: which connection topology to build
//   - Timeouts: socket-level deadlines
//   - Logging, Metrics: ambient concerns
type Config struct {
	Server ServerConfig

	// Mode selects the topology: ModePool (default), ModeSingle or ModeCluster.
	Mode string

	Cluster  ClusterConfig
	Pool     PoolConfig
	Timeouts TimeoutConfig
	Logging  LoggingConfig
	Metrics  MetricsConfig
}

// ServerConfig identifies a single server.
type ServerConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	DB       int
}

// Addr is host:port.
func (s ServerConfig) Addr() string {
	return net.JoinHostPort(s.Host, strconv.Itoa(s.Port))
}

// ClusterConfig holds the seed nodes of a cluster.
type ClusterConfig struct {
	Addrs []string
}

// PoolConfig sizes the connection pool.
type PoolConfig struct {
	// Size is the maximum number of pooled connections (0 = go-redis default).
	Size int
	// MinIdle connections kept open.
	MinIdle int
	// Timeout waiting for a free connection when the pool is exhausted.
	Timeout time.Duration
}

// TimeoutConfig holds socket deadlines. Zero keeps the driver default;
// a negative read timeout disables read deadlines (needed for long blocking
// commands).
type TimeoutConfig struct {
	Dial  time.Duration
	Read  time.Duration
	Write time.Duration
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	// Level: DEBUG, INFO, WARN, ERROR
	Level string
	// Format: text or json
	Format string
}

// MetricsConfig holds metrics exposure settings.
type MetricsConfig struct {
	Enabled bool
	// Address serves /metrics when Enabled, e.g. ":9121".
	Address string
}

// LoadDefaults returns a Config with built-in defaults: a pooled client
// against localhost:6379.
func LoadDefaults() *Config {
	config := &Config{}

	config.Server.Host = "localhost"
	config.Server.Port = 6379
	config.Server.DB = 0

	config.Mode = ModePool

	config.Pool.Size = 10
	config.Pool.MinIdle = 0
	config.Pool.Timeout = 4 * time.Second

	config.Timeouts.Dial = 5 * time.Second
	config.Timeouts.Read = 3 * time.Second
	config.Timeouts.Write = 3 * time.Second

	config.Logging.Level = "INFO"
	config.Logging.Format = "text"

	config.Metrics.Enabled = false
	config.Metrics.Address = ":9121"

	return config
}

// LoadFromEnv returns defaults overridden by REDISGRAPH_* variables.
func LoadFromEnv() *Config {
	config := LoadDefaults()
	applyEnvVars(config)
	return config
}

// applyEnvVars applies environment variable overrides to an existing config.
// Environment variables take precedence over config file values.
func applyEnvVars(config *Config) {
	if v := getEnv("REDISGRAPH_HOST", ""); v != "" {
		config.Server.Host = v
	}
	if v := getEnvInt("REDISGRAPH_PORT", 0); v > 0 {
		config.Server.Port = v
	}
	if v := getEnv("REDISGRAPH_USERNAME", ""); v != "" {
		config.Server.Username = v
	}
	if v := getEnv("REDISGRAPH_PASSWORD", ""); v != "" {
		config.Server.Password = v
	}
	config.Server.DB = getEnvInt("REDISGRAPH_DB", config.Server.DB)

	if v := getEnv("REDISGRAPH_MODE", ""); v != "" {
		config.Mode = strings.ToLower(v)
	}
	config.Cluster.Addrs = getEnvStringSlice("REDISGRAPH_CLUSTER_ADDRS", config.Cluster.Addrs)

	if v := getEnvInt("REDISGRAPH_POOL_SIZE", 0); v > 0 {
		config.Pool.Size = v
	}
	config.Pool.MinIdle = getEnvInt("REDISGRAPH_POOL_MIN_IDLE", config.Pool.MinIdle)
	config.Pool.Timeout = getEnvDuration("REDISGRAPH_POOL_TIMEOUT", config.Pool.Timeout)

	config.Timeouts.Dial = getEnvDuration("REDISGRAPH_DIAL_TIMEOUT", config.Timeouts.Dial)
	config.Timeouts.Read = getEnvDuration("REDISGRAPH_READ_TIMEOUT", config.Timeouts.Read)
	config.Timeouts.Write = getEnvDuration("REDISGRAPH_WRITE_TIMEOUT", config.Timeouts.Write)

	if v := getEnv("REDISGRAPH_LOG_LEVEL", ""); v != "" {
		config.Logging.Level = strings.ToUpper(v)
	}
	if v := getEnv("REDISGRAPH_LOG_FORMAT", ""); v != "" {
		config.Logging.Format = strings.ToLower(v)
	}

	config.Metrics.Enabled = getEnvBool("REDISGRAPH_METRICS_ENABLED", config.Metrics.Enabled)
	if v := getEnv("REDISGRAPH_METRICS_ADDRESS", ""); v != "" {
		config.Metrics.Address = v
	}
}

// YAMLConfig represents the YAML configuration file structure.
// All fields mirror the environment variable configuration options.
type YAMLConfig struct {
	Server struct {
		Host     string `yaml:"host"`
		Port     int    `yaml:"port"`
		Address  string `yaml:"address"` // host:port, alternative to host+port
		Username string `yaml:"username"`
		Password string `yaml:"password"`
		DB       *int   `yaml:"db"`
	} `yaml:"server"`

	Mode string `yaml:"mode"`

	Cluster struct {
		Addrs []string `yaml:"addrs"`
	} `yaml:"cluster"`

	Pool struct {
		Size    int    `yaml:"size"`
		MinIdle int    `yaml:"min_idle"`
		Timeout string `yaml:"timeout"`
	} `yaml:"pool"`

	Timeouts struct {
		Dial  string `yaml:"dial"`
		Read  string `yaml:"read"`
		Write string `yaml:"write"`
	} `yaml:"timeouts"`

	Logging struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
	} `yaml:"logging"`

	Metrics struct {
		Enabled bool   `yaml:"enabled"`
		Address string `yaml:"address"`
	} `yaml:"metrics"`
}

// LoadFromFile loads configuration with the full precedence chain:
// defaults, then the YAML file at configPath, then environment variables.
// A missing file is not an error.
//
// Example YAML:
//
//	server:
//	  host: graph.internal
//	  port: 6379
//	mode: pool
//	pool:
//	  size: 20
//	  timeout: 2s
//	logging:
//	  level: DEBUG
//	  format: json
func LoadFromFile(configPath string) (*Config, error) {
	config := LoadDefaults()

	if configPath == "" {
		applyEnvVars(config)
		return config, nil
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		if os.IsNotExist(err) {
			applyEnvVars(config)
			return config, nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var yamlCfg YAMLConfig
	if err := yaml.Unmarshal(data, &yamlCfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	// === Server Settings ===
	if yamlCfg.Server.Address != "" {
		host, port, err := net.SplitHostPort(yamlCfg.Server.Address)
		if err != nil {
			return nil, fmt.Errorf("invalid server address %q: %w", yamlCfg.Server.Address, err)
		}
		config.Server.Host = host
		if p, err := strconv.Atoi(port); err == nil {
			config.Server.Port = p
		}
	}
	if yamlCfg.Server.Host != "" {
		config.Server.Host = yamlCfg.Server.Host
	}
	if yamlCfg.Server.Port > 0 {
		config.Server.Port = yamlCfg.Server.Port
	}
	if yamlCfg.Server.Username != "" {
		config.Server.Username = yamlCfg.Server.Username
	}
	if yamlCfg.Server.Password != "" {
		config.Server.Password = yamlCfg.Server.Password
	}
	if yamlCfg.Server.DB != nil {
		config.Server.DB = *yamlCfg.Server.DB
	}

	// === Topology ===
	if yamlCfg.Mode != "" {
		config.Mode = strings.ToLower(yamlCfg.Mode)
	}
	if len(yamlCfg.Cluster.Addrs) > 0 {
		config.Cluster.Addrs = yamlCfg.Cluster.Addrs
	}
	if yamlCfg.Pool.Size > 0 {
		config.Pool.Size = yamlCfg.Pool.Size
	}
	if yamlCfg.Pool.MinIdle > 0 {
		config.Pool.MinIdle = yamlCfg.Pool.MinIdle
	}
	if err := parseDuration(yamlCfg.Pool.Timeout, &config.Pool.Timeout); err != nil {
		return nil, fmt.Errorf("invalid pool.timeout: %w", err)
	}

	// === Timeouts ===
	if err := parseDuration(yamlCfg.Timeouts.Dial, &config.Timeouts.Dial); err != nil {
		return nil, fmt.Errorf("invalid timeouts.dial: %w", err)
	}
	if err := parseDuration(yamlCfg.Timeouts.Read, &config.Timeouts.Read); err != nil {
		return nil, fmt.Errorf("invalid timeouts.read: %w", err)
	}
	if err := parseDuration(yamlCfg.Timeouts.Write, &config.Timeouts.Write); err != nil {
		return nil, fmt.Errorf("invalid timeouts.write: %w", err)
	}

	// === Logging & Metrics ===
	if yamlCfg.Logging.Level != "" {
		config.Logging.Level = strings.ToUpper(yamlCfg.Logging.Level)
	}
	if yamlCfg.Logging.Format != "" {
		config.Logging.Format = strings.ToLower(yamlCfg.Logging.Format)
	}
	if yamlCfg.Metrics.Enabled {
		config.Metrics.Enabled = true
	}
	if yamlCfg.Metrics.Address != "" {
		config.Metrics.Address = yamlCfg.Metrics.Address
	}

	applyEnvVars(config)
	return config, nil
}

// Validate checks the configuration for errors.
//
// Returns nil if configuration is valid, or an error describing the problem.
func (c *Config) Validate() error {
	switch c.Mode {
	case ModePool, ModeSingle:
		if c.Server.Host == "" {
			return fmt.Errorf("server host is required in %s mode", c.Mode)
		}
		if c.Server.Port <= 0 || c.Server.Port > 65535 {
			return fmt.Errorf("invalid server port: %d", c.Server.Port)
		}
	case ModeCluster:
		if len(c.Cluster.Addrs) == 0 {
			return fmt.Errorf("cluster mode requires at least one address")
		}
	default:
		return fmt.Errorf("invalid mode %q (want %s, %s or %s)", c.Mode, ModePool, ModeSingle, ModeCluster)
	}

	if c.Pool.Size < 0 {
		return fmt.Errorf("invalid pool size: %d", c.Pool.Size)
	}
	if c.Pool.MinIdle < 0 || (c.Pool.Size > 0 && c.Pool.MinIdle > c.Pool.Size) {
		return fmt.Errorf("invalid pool min idle: %d", c.Pool.MinIdle)
	}

	switch c.Logging.Format {
	case "text", "json":
	default:
		return fmt.Errorf("invalid log format %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "DEBUG", "INFO", "WARN", "ERROR":
	default:
		return fmt.Errorf("invalid log level %q", c.Logging.Level)
	}

	return nil
}

// String returns a safe string representation of the Config.
//
// Credentials are NOT included in the output, making this safe for logging.
func (c *Config) String() string {
	target := c.Server.Addr()
	if c.Mode == ModeCluster {
		target = strings.Join(c.Cluster.Addrs, ",")
	}
	return fmt.Sprintf(
		"Config{Mode: %s, Target: %s, Auth: %v, PoolSize: %d}",
		c.Mode, target, c.Server.Password != "", c.Pool.Size,
	)
}

// FindConfigFile searches for config file in standard locations.
// Returns the path to the first config file found, or empty string if none found.
// Search order:
//  1. ~/.redisgraph/config.yaml
//  2. Current working directory (redisgraph.yaml)
//  3. ~/.config/redisgraph/config.yaml (XDG)
func FindConfigFile() string {
	var candidates []string

	if home, err := os.UserHomeDir(); err == nil {
		candidates = append(candidates, filepath.Join(home, ".redisgraph", "config.yaml"))
	}

	candidates = append(candidates, "redisgraph.yaml")

	if home, err := os.UserHomeDir(); err == nil {
		candidates = append(candidates, filepath.Join(home, ".config", "redisgraph", "config.yaml"))
	}

	for _, path := range candidates {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}

	return ""
}

func parseDuration(s string, dst *time.Duration) error {
	if s == "" {
		return nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	*dst = d
	return nil
}

// Helper functions for environment variable parsing

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return defaultVal
}

func getEnvBool(key string, defaultVal bool) bool {
	if val := os.Getenv(key); val != "" {
		val = strings.ToLower(val)
		return val == "true" || val == "1" || val == "yes" || val == "on"
	}
	return defaultVal
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			return d
		}
		// Try parsing as seconds
		if secs, err := strconv.Atoi(val); err == nil {
			return time.Duration(secs) * time.Second
		}
	}
	return defaultVal
}

func getEnvStringSlice(key string, defaultVal []string) []string {
	if val := os.Getenv(key); val != "" {
		parts := strings.Split(val, ",")
		result := make([]string, 0, len(parts))
		for _, p := range parts {
			if trimmed := strings.TrimSpace(p); trimmed != "" {
				result = append(result, trimmed)
			}
		}
		if len(result) > 0 {
			return result
		}
	}
	return defaultVal
}
