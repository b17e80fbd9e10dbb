// Package config provides configuration loading and validation.
package config

import (
	"bytes"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "SHAPEWIRE_"

// Config is the root configuration structure.
type Config struct {
	Endpoint    EndpointConfig    `yaml:"endpoint" toml:"endpoint"`
	Client      ClientConfig      `yaml:"client" toml:"client"`
	Compression CompressionConfig `yaml:"compression" toml:"compression"`
	Protocol    ProtocolConfig    `yaml:"protocol" toml:"protocol"`
	Logging     LoggingConfig     `yaml:"logging" toml:"logging"`
	Metrics     MetricsConfig     `yaml:"metrics" toml:"metrics"`
}

// EndpointConfig is the resolved service endpoint.
type EndpointConfig struct {
	URL string `yaml:"url" toml:"url"`
}

// ClientConfig configures the HTTP transport.
type ClientConfig struct {
	Timeout         time.Duration `yaml:"timeout" toml:"timeout"`
	MaxIdleConns    int           `yaml:"max_idle_conns" toml:"max_idle_conns"`
	IdleConnTimeout time.Duration `yaml:"idle_conn_timeout" toml:"idle_conn_timeout"`
}

// CompressionConfig configures request compression.
type CompressionConfig struct {
	Disabled     bool `yaml:"disabled" toml:"disabled"`
	MinSizeBytes int  `yaml:"min_size_bytes" toml:"min_size_bytes"`
}

// ProtocolConfig configures the HTTP binding protocol.
type ProtocolConfig struct {
	PreserveHeaderValues  bool   `yaml:"preserve_header_values" toml:"preserve_header_values"` // skip lower-casing header values
	IdempotencySeed       string `yaml:"idempotency_seed,omitempty" toml:"idempotency_seed"` // reproducible tokens when set
}

// LoggingConfig configures logging.
type LoggingConfig struct {
	Level  string `yaml:"level" toml:"level"`   // "debug", "info", "warn", "error"
	Format string `yaml:"format" toml:"format"` // "json" or "console"
}

// MetricsConfig configures Prometheus metrics.
type MetricsConfig struct {
	Enabled   bool   `yaml:"enabled" toml:"enabled"`
	Namespace string `yaml:"namespace" toml:"namespace"`
	Textfile  string `yaml:"textfile,omitempty" toml:"textfile"` // written after each CLI invocation
}

// Load reads configuration from a YAML or TOML file, chosen by extension.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	// Expand environment variables
	data = []byte(os.ExpandEnv(string(data)))

	cfg, err := parse(path, data)
	if err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	applyEnvOverrides(cfg)
	setDefaults(cfg)

	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return cfg, nil
}

func parse(path string, data []byte) (*Config, error) {
	var cfg Config
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		if _, err := toml.NewDecoder(bytes.NewReader(data)).Decode(&cfg); err != nil {
			return nil, err
		}
	default:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, err
		}
	}
	return &cfg, nil
}

// LoadFromEnv creates configuration entirely from environment variables.
//
// Environment variables:
//
//	SHAPEWIRE_ENDPOINT_URL              - Service endpoint URL
//	SHAPEWIRE_CLIENT_TIMEOUT            - Request timeout (default: 30s)
//	SHAPEWIRE_CLIENT_MAX_IDLE_CONNS     - Idle connection pool size (default: 100)
//	SHAPEWIRE_COMPRESSION_DISABLED      - Disable request compression
//	SHAPEWIRE_COMPRESSION_MIN_SIZE      - Smallest compressed body (default: 10240)
//	SHAPEWIRE_IDEMPOTENCY_SEED          - Seed for reproducible idempotency tokens
//	SHAPEWIRE_LOG_LEVEL                 - Log level: debug, info, warn, error (default: info)
//	SHAPEWIRE_LOG_FORMAT                - Log format: json or console (default: console)
//	SHAPEWIRE_METRICS_ENABLED           - Enable metrics collection
//	SHAPEWIRE_METRICS_TEXTFILE          - Write metrics to this file after an invocation
func LoadFromEnv() (*Config, error) {
	var cfg Config

	applyEnvOverrides(&cfg)
	setDefaults(&cfg)

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return &cfg, nil
}

// LoadWithFallback loads path when it exists and falls back to the
// environment otherwise.
func LoadWithFallback(path string) (*Config, error) {
	if path != "" {
		if _, err := os.Stat(path); err == nil {
			return Load(path)
		}
	}
	return LoadFromEnv()
}

// HasEnvConfig returns true if the endpoint is configured by environment.
func HasEnvConfig() bool {
	return os.Getenv(EnvPrefix+"ENDPOINT_URL") != ""
}

// applyEnvOverrides applies SHAPEWIRE_* environment variables to the config.
// Environment variables always override file-based configuration.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv(EnvPrefix + "ENDPOINT_URL"); v != "" {
		cfg.Endpoint.URL = v
	}

	// Client configuration
	if v := os.Getenv(EnvPrefix + "CLIENT_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Client.Timeout = d
		}
	}
	if v := os.Getenv(EnvPrefix + "CLIENT_MAX_IDLE_CONNS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Client.MaxIdleConns = n
		}
	}
	if v := os.Getenv(EnvPrefix + "CLIENT_IDLE_CONN_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Client.IdleConnTimeout = d
		}
	}

	// Compression configuration
	if v := os.Getenv(EnvPrefix + "COMPRESSION_DISABLED"); v != "" {
		cfg.Compression.Disabled = parseBool(v)
	}
	if v := os.Getenv(EnvPrefix + "COMPRESSION_MIN_SIZE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Compression.MinSizeBytes = n
		}
	}

	if v := os.Getenv(EnvPrefix + "IDEMPOTENCY_SEED"); v != "" {
		cfg.Protocol.IdempotencySeed = v
	}

	// Logging configuration
	if v := os.Getenv(EnvPrefix + "LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv(EnvPrefix + "LOG_FORMAT"); v != "" {
		cfg.Logging.Format = v
	}

	// Metrics configuration
	if v := os.Getenv(EnvPrefix + "METRICS_ENABLED"); v != "" {
		cfg.Metrics.Enabled = parseBool(v)
	}
	if v := os.Getenv(EnvPrefix + "METRICS_TEXTFILE"); v != "" {
		cfg.Metrics.Textfile = v
	}
}

// parseBool parses a boolean from common string values.
func parseBool(v string) bool {
	v = strings.ToLower(strings.TrimSpace(v))
	return v == "true" || v == "1" || v == "yes" || v == "on"
}

func setDefaults(cfg *Config) {
	if cfg.Client.Timeout == 0 {
		cfg.Client.Timeout = 30 * time.Second
	}
	if cfg.Client.MaxIdleConns == 0 {
		cfg.Client.MaxIdleConns = 100
	}
	if cfg.Client.IdleConnTimeout == 0 {
		cfg.Client.IdleConnTimeout = 90 * time.Second
	}

	if cfg.Compression.MinSizeBytes == 0 {
		cfg.Compression.MinSizeBytes = 10240
	}

	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "console"
	}

	if cfg.Metrics.Namespace == "" {
		cfg.Metrics.Namespace = "shapewire"
	}
}

func validate(cfg *Config) error {
	if cfg.Endpoint.URL != "" {
		u, err := url.Parse(cfg.Endpoint.URL)
		if err != nil {
			return fmt.Errorf("endpoint.url: %w", err)
		}
		if u.Scheme != "http" && u.Scheme != "https" {
			return fmt.Errorf("endpoint.url must be an http or https URL, got %q", cfg.Endpoint.URL)
		}
		if u.Host == "" {
			return fmt.Errorf("endpoint.url has no host: %q", cfg.Endpoint.URL)
		}
	}

	if cfg.Client.Timeout < 0 {
		return fmt.Errorf("client.timeout must not be negative")
	}
	if cfg.Compression.MinSizeBytes < 0 {
		return fmt.Errorf("compression.min_size_bytes must not be negative")
	}
	if cfg.Compression.MinSizeBytes > 10485760 {
		return fmt.Errorf("compression.min_size_bytes must be at most 10485760, got %d", cfg.Compression.MinSizeBytes)
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[cfg.Logging.Level] {
		return fmt.Errorf("logging.level must be one of: debug, info, warn, error")
	}
	validFormats := map[string]bool{"json": true, "console": true}
	if !validFormats[cfg.Logging.Format] {
		return fmt.Errorf("logging.format must be 'json' or 'console', got %q", cfg.Logging.Format)
	}
	return nil
}
