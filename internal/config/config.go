// Package config provides YAML-based configuration loading for Sightline.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the top-level Sightline configuration, loaded from sightline.yaml.
type Config struct {
	Database  DatabaseConfig   `yaml:"database"`
	Server    ServerConfig     `yaml:"server"`
	Replay    ReplayConfig     `yaml:"replay"`
	Log       LogConfig        `yaml:"log"`
	Providers []ProviderConfig `yaml:"providers"`
	Models    []ModelConfig    `yaml:"models"`
}

// DatabaseConfig holds connection settings for the request store.
type DatabaseConfig struct {
	Driver      string `yaml:"driver"` // mysql or sqlite
	Host        string `yaml:"host"`
	Port        int    `yaml:"port"`
	User        string `yaml:"user"`
	PasswordEnv string `yaml:"password_env"`
	Name        string `yaml:"name"`
	Path        string `yaml:"path"` // sqlite only
}

// Password resolves the database password from the configured env variable.
func (d DatabaseConfig) Password() string {
	if d.PasswordEnv == "" {
		return ""
	}
	return os.Getenv(d.PasswordEnv)
}

// ServerConfig holds HTTP API settings.
type ServerConfig struct {
	Port int `yaml:"port"`
}

// ReplayConfig tunes the replay engine.
type ReplayConfig struct {
	Timeout    time.Duration `yaml:"timeout"`
	RetryDelay time.Duration `yaml:"retry_delay"` // pause between attempts when max_attempts > 1
}

// LogConfig selects the logrus level and formatter.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // text or json
}

// ProviderConfig describes an upstream OpenAI-compatible provider.
type ProviderConfig struct {
	ID          string `yaml:"id"`
	Type        string `yaml:"type"`
	BaseURL     string `yaml:"base_url"`
	APIKeyEnv   string `yaml:"api_key_env"`
	MaxAttempts int    `yaml:"max_attempts"`
}

// APIKey resolves the provider credential from the configured env variable.
func (p ProviderConfig) APIKey() string {
	if p.APIKeyEnv == "" {
		return ""
	}
	return os.Getenv(p.APIKeyEnv)
}

// ModelConfig describes a priced model served by one provider.
type ModelConfig struct {
	ID                    string  `yaml:"id"`
	Provider              string  `yaml:"provider"`
	InputPricePerMillion  float64 `yaml:"input_price_per_million"`
	OutputPricePerMillion float64 `yaml:"output_price_per_million"`
	Active                *bool   `yaml:"active"`
}

// IsActive reports whether the model is active; unset means active.
func (m ModelConfig) IsActive() bool {
	return m.Active == nil || *m.Active
}

// Load reads a YAML config file from path and returns a validated Config.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	return Parse(data)
}

// Parse unmarshals YAML bytes into a validated Config.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config: parse: %w", err)
	}
	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// applyDefaults fills in derived and default values.
func (c *Config) applyDefaults() {
	if c.Database.Driver == "" {
		c.Database.Driver = "mysql"
	}
	if c.Database.Host == "" {
		c.Database.Host = "127.0.0.1"
	}
	if c.Database.Port == 0 {
		c.Database.Port = 3306
	}
	if c.Database.User == "" {
		c.Database.User = "root"
	}
	if c.Database.Name == "" {
		c.Database.Name = "sightline"
	}
	if c.Database.Driver == "sqlite" && c.Database.Path == "" {
		c.Database.Path = "sightline.db"
	}
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Replay.Timeout == 0 {
		c.Replay.Timeout = 60 * time.Second
	}
	if c.Replay.RetryDelay == 0 {
		c.Replay.RetryDelay = 200 * time.Millisecond
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "text"
	}
	for i := range c.Providers {
		if c.Providers[i].Type == "" {
			c.Providers[i].Type = "openai"
		}
		if c.Providers[i].MaxAttempts == 0 {
			c.Providers[i].MaxAttempts = 1
		}
	}
}

// validate checks that all required fields are present and consistent.
func (c *Config) validate() error {
	var errs []string
	switch c.Database.Driver {
	case "mysql", "sqlite":
	default:
		errs = append(errs, fmt.Sprintf("database.driver %q is not supported (mysql, sqlite)", c.Database.Driver))
	}
	if c.Replay.Timeout < 0 {
		errs = append(errs, "replay.timeout must not be negative")
	}
	if c.Replay.RetryDelay < 0 {
		errs = append(errs, "replay.retry_delay must not be negative")
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		errs = append(errs, fmt.Sprintf("log.format %q is not supported (text, json)", c.Log.Format))
	}

	providers := make(map[string]bool, len(c.Providers))
	for i, p := range c.Providers {
		if p.ID == "" {
			errs = append(errs, fmt.Sprintf("providers[%d].id is required", i))
		} else if providers[p.ID] {
			errs = append(errs, fmt.Sprintf("providers[%d].id %q is duplicated", i, p.ID))
		}
		providers[p.ID] = true
		if p.BaseURL == "" {
			errs = append(errs, fmt.Sprintf("providers[%d].base_url is required", i))
		}
		if p.MaxAttempts < 1 {
			errs = append(errs, fmt.Sprintf("providers[%d].max_attempts must be at least 1", i))
		}
	}
	for i, m := range c.Models {
		if m.ID == "" {
			errs = append(errs, fmt.Sprintf("models[%d].id is required", i))
		}
		if m.Provider == "" {
			errs = append(errs, fmt.Sprintf("models[%d].provider is required", i))
		} else if !providers[m.Provider] {
			errs = append(errs, fmt.Sprintf("models[%d].provider %q is not declared", i, m.Provider))
		}
		if m.InputPricePerMillion < 0 || m.OutputPricePerMillion < 0 {
			errs = append(errs, fmt.Sprintf("models[%d] prices must not be negative", i))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("config: validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}
