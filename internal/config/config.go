// Copyright (c) 2026 VeilForms, Inc.
//
// This file is part of veilkey.
//
// veilkey is dual-licensed:
//
// 1. GNU Affero General Public License v3.0 (AGPL-3.0)
//    See LICENSE file or visit https://www.gnu.org/licenses/agpl-3.0.html
//
// 2. Commercial License
//    Contact licensing@veilforms.com for commercial licensing options.

package config

import (
	"encoding/base64"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the complete server configuration
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Logging    LoggingConfig    `yaml:"logging"`
	Metrics    MetricsConfig    `yaml:"metrics"`
	Health     HealthConfig     `yaml:"health"`
	Storage    StorageConfig    `yaml:"storage"`
	Disclosure DisclosureConfig `yaml:"disclosure"`
	RateLimit  RateLimitConfig  `yaml:"ratelimit"`
}

// RateLimitConfig controls per-client request rate limiting
type RateLimitConfig struct {
	Enabled        bool `yaml:"enabled"`
	RequestsPerMin int  `yaml:"requests_per_min"`
	Burst          int  `yaml:"burst"`
}

// ServerConfig contains server-level settings
type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`

	// BaseURL is the externally visible URL prefix used when building
	// download links (e.g. "https://forms.example.com").
	BaseURL string `yaml:"base_url"`
}

// LoggingConfig controls logging behavior
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// MetricsConfig controls the metrics endpoint
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// HealthConfig controls the health check endpoint
type HealthConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// StorageConfig selects the store backing the keyring and the disclosure
// token store
type StorageConfig struct {
	// Backend is "memory" or "badger".
	Backend string `yaml:"backend"`

	// Path is the Badger database directory. Ignored for memory.
	Path string `yaml:"path"`
}

// DisclosureConfig controls the one-time key disclosure window
type DisclosureConfig struct {
	TTL Duration `yaml:"ttl"`

	// SealingKey is the base64 AES-256 key sealing token payloads at
	// rest. Empty means an ephemeral per-process key, which invalidates
	// outstanding download links on restart.
	SealingKey string `yaml:"sealing_key"`
}

// Duration wraps time.Duration so YAML values like "15m" parse.
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var raw string
	if err := value.Decode(&raw); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", raw, err)
	}
	*d = Duration(parsed)
	return nil
}

// MarshalYAML implements yaml.Marshaler.
func (d Duration) MarshalYAML() (interface{}, error) {
	return time.Duration(d).String(), nil
}

// AsDuration returns the underlying time.Duration.
func (d Duration) AsDuration() time.Duration {
	return time.Duration(d)
}

// Default returns the configuration used when no config file is given.
func Default() *Config {
	cfg := &Config{
		Server: ServerConfig{
			Host:    "0.0.0.0",
			Port:    8443,
			BaseURL: "http://localhost:8443",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Path:    "/metrics",
		},
		Health: HealthConfig{
			Enabled: true,
			Path:    "/health",
		},
		Storage: StorageConfig{
			Backend: "memory",
		},
		Disclosure: DisclosureConfig{
			TTL: Duration(15 * time.Minute),
		},
		RateLimit: RateLimitConfig{
			Enabled:        false,
			RequestsPerMin: 300,
		},
	}
	applyEnvOverrides(cfg)
	return cfg
}

// Load reads configuration from a YAML file and applies environment
// variable overrides
func Load(path string) (*Config, error) {
	// #nosec G304 - Config file path is provided by admin/user
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// applyEnvOverrides applies environment variable overrides to the configuration
func applyEnvOverrides(cfg *Config) {
	if host := os.Getenv("VEILKEY_HOST"); host != "" {
		cfg.Server.Host = host
	}
	if portStr := os.Getenv("VEILKEY_PORT"); portStr != "" {
		port, err := strconv.Atoi(portStr)
		if err != nil {
			log.Printf("Warning: invalid VEILKEY_PORT value %q, using default %d: %v",
				portStr, cfg.Server.Port, err)
		} else if port < 1 || port > 65535 {
			log.Printf("Warning: invalid VEILKEY_PORT value %q (out of range 1-65535), using default %d",
				portStr, cfg.Server.Port)
		} else {
			cfg.Server.Port = port
		}
	}
	if baseURL := os.Getenv("VEILKEY_BASE_URL"); baseURL != "" {
		cfg.Server.BaseURL = baseURL
	}

	if level := os.Getenv("VEILKEY_LOG_LEVEL"); level != "" {
		cfg.Logging.Level = level
	}
	if format := os.Getenv("VEILKEY_LOG_FORMAT"); format != "" {
		cfg.Logging.Format = format
	}

	if dataDir := os.Getenv("VEILKEY_DATA_DIR"); dataDir != "" {
		cfg.Storage.Path = dataDir
	}
	if backend := os.Getenv("VEILKEY_STORAGE_BACKEND"); backend != "" {
		cfg.Storage.Backend = backend
	}

	if ttlStr := os.Getenv("VEILKEY_DISCLOSURE_TTL"); ttlStr != "" {
		ttl, err := time.ParseDuration(ttlStr)
		if err != nil {
			log.Printf("Warning: invalid VEILKEY_DISCLOSURE_TTL value %q, using default %s: %v",
				ttlStr, cfg.Disclosure.TTL.AsDuration(), err)
		} else {
			cfg.Disclosure.TTL = Duration(ttl)
		}
	}

	if key := os.Getenv("VEILKEY_DISCLOSURE_SEALING_KEY"); key != "" {
		cfg.Disclosure.SealingKey = key
	}
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}
	if c.Server.BaseURL == "" {
		return fmt.Errorf("server base_url must be specified")
	}

	validLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true,
	}
	if !validLevels[strings.ToLower(c.Logging.Level)] {
		return fmt.Errorf("invalid log level: %s (must be debug, info, warn, or error)", c.Logging.Level)
	}

	validFormats := map[string]bool{
		"json": true, "text": true,
	}
	if !validFormats[strings.ToLower(c.Logging.Format)] {
		return fmt.Errorf("invalid log format: %s (must be json or text)", c.Logging.Format)
	}

	switch c.Storage.Backend {
	case "memory":
	case "badger":
		if c.Storage.Path == "" {
			return fmt.Errorf("storage path is required for the badger backend")
		}
	default:
		return fmt.Errorf("invalid storage backend: %s (must be memory or badger)", c.Storage.Backend)
	}

	if c.Disclosure.TTL <= 0 {
		return fmt.Errorf("disclosure ttl must be positive")
	}

	if c.Disclosure.SealingKey != "" {
		if _, err := c.DecodeSealingKey(); err != nil {
			return err
		}
	}

	return nil
}

// DecodeSealingKey decodes the configured sealing key. Returns nil with
// no error when the key is unset.
func (c *Config) DecodeSealingKey() ([]byte, error) {
	if c.Disclosure.SealingKey == "" {
		return nil, nil
	}
	key, err := base64.StdEncoding.DecodeString(c.Disclosure.SealingKey)
	if err != nil {
		return nil, fmt.Errorf("invalid disclosure sealing key: %w", err)
	}
	if len(key) != 32 {
		return nil, fmt.Errorf("invalid disclosure sealing key: need 32 bytes, got %d", len(key))
	}
	return key, nil
}
