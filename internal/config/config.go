// Package config loads the service configuration from YAML with environment
// overrides and can watch the file for changes.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all service settings.
type Config struct {
	CompanyName string        `yaml:"company_name" json:"company_name"`
	Server      ServerConfig  `yaml:"server" json:"server"`
	Store       StoreConfig   `yaml:"store" json:"store"`
	Drafts      DraftConfig   `yaml:"drafts" json:"drafts"`
	Insight     InsightConfig `yaml:"insight" json:"insight"`
	Logging     LoggingConfig `yaml:"logging" json:"logging"`
}

type ServerConfig struct {
	Port int `yaml:"port" json:"port"`
	// RateLimit is the number of requests per minute per client IP.
	RateLimit       int    `yaml:"rate_limit" json:"rate_limit"`
	ShutdownTimeout string `yaml:"shutdown_timeout" json:"shutdown_timeout"`
}

type StoreConfig struct {
	// DBPath enables the SQLite snapshot when non-empty.
	DBPath string `yaml:"db_path" json:"db_path"`
	Seed   bool   `yaml:"seed" json:"seed"`
}

type DraftConfig struct {
	Capacity int    `yaml:"capacity" json:"capacity"`
	TTL      string `yaml:"ttl" json:"ttl"`
}

type InsightConfig struct {
	APIKey     string `yaml:"api_key" json:"-"`
	TextModel  string `yaml:"text_model" json:"text_model"`
	ImageModel string `yaml:"image_model" json:"image_model"`
	Timeout    string `yaml:"timeout" json:"timeout"`
}

type LoggingConfig struct {
	Level string `yaml:"level" json:"level"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		CompanyName: "PCBA Factory",
		Server: ServerConfig{
			Port:            9000,
			RateLimit:       600,
			ShutdownTimeout: "10s",
		},
		Store: StoreConfig{Seed: true},
		Drafts: DraftConfig{
			Capacity: 1024,
			TTL:      "30m",
		},
		Insight: InsightConfig{
			TextModel:  "gemini-3-flash-preview",
			ImageModel: "gemini-2.5-flash-image",
			Timeout:    "15s",
		},
		Logging: LoggingConfig{Level: "info"},
	}
}

// Load reads path over the defaults and applies environment overrides. A
// missing file is not an error; an empty path skips the file.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
		case err != nil:
			return nil, fmt.Errorf("failed to read config: %w", err)
		default:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("failed to parse config: %w", err)
			}
		}
	}
	cfg.applyEnvOverrides()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes the configuration as YAML.
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("PCBA_COMPANY_NAME"); v != "" {
		c.CompanyName = v
	}
	if v := os.Getenv("PCBA_PORT"); v != "" {
		if p, err := strconv.Atoi(v); err == nil {
			c.Server.Port = p
		}
	}
	if v := os.Getenv("PCBA_DB"); v != "" {
		c.Store.DBPath = v
	}
	if v := os.Getenv("API_KEY"); v != "" {
		c.Insight.APIKey = v
	}
	if v := os.Getenv("GEMINI_API_KEY"); v != "" {
		c.Insight.APIKey = v
	}
	if v := os.Getenv("PCBA_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
}

// Validate checks ranges and duration syntax.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server.port %d", c.Server.Port)
	}
	if c.Server.RateLimit < 0 {
		return fmt.Errorf("invalid server.rate_limit %d", c.Server.RateLimit)
	}
	if c.Drafts.Capacity <= 0 {
		return fmt.Errorf("invalid drafts.capacity %d", c.Drafts.Capacity)
	}
	for name, v := range map[string]string{
		"server.shutdown_timeout": c.Server.ShutdownTimeout,
		"drafts.ttl":              c.Drafts.TTL,
		"insight.timeout":         c.Insight.Timeout,
	} {
		if _, err := time.ParseDuration(v); err != nil {
			return fmt.Errorf("invalid %s %q: %w", name, v, err)
		}
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid logging.level %q", c.Logging.Level)
	}
	return nil
}

func duration(s string, def time.Duration) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil {
		return def
	}
	return d
}

// DraftTTL returns how long an untouched draft stays open.
func (c *Config) DraftTTL() time.Duration { return duration(c.Drafts.TTL, 30*time.Minute) }

// InsightTimeout returns the deadline for one AI call.
func (c *Config) InsightTimeout() time.Duration { return duration(c.Insight.Timeout, 15*time.Second) }

// ShutdownTimeout returns the graceful shutdown budget.
func (c *Config) ShutdownTimeout() time.Duration {
	return duration(c.Server.ShutdownTimeout, 10*time.Second)
}

// Addr returns the listen address.
func (c *Config) Addr() string { return fmt.Sprintf(":%d", c.Server.Port) }

// InsightConfigured reports whether an AI API key is set.
func (c *Config) InsightConfigured() bool { return c.Insight.APIKey != "" }
