// Package config provides configuration loading from YAML files.
package config

import (
	"os"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Config represents the application configuration.
type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Storage StorageConfig `yaml:"storage"`
	Queue   QueueConfig   `yaml:"queue"`
	Catalog CatalogConfig `yaml:"catalog"`
}

// ServerConfig represents server configuration.
type ServerConfig struct {
	Addr                string      `yaml:"addr" default:":8080"`
	Token               string      `yaml:"token"` // Required in X-Hibiki-Token when set
	ReadHeaderTimeoutMs int         `yaml:"read_header_timeout_ms" default:"5000" validate:"gte=0,lte=60000"`
	Hooks               HooksConfig `yaml:"hooks"`
}

// HooksConfig lists shell commands run around the server lifetime.
type HooksConfig struct {
	OnStarted []string `yaml:"on_started"`
	OnStopped []string `yaml:"on_stopped"`
}

// StorageConfig represents where the queue snapshot is kept.
type StorageConfig struct {
	Backend       string `yaml:"backend" default:"file" validate:"oneof=memory file sqlite"`
	Path          string `yaml:"path" default:"data"` // directory for file, database file for sqlite
	SaveTimeoutMs int    `yaml:"save_timeout_ms" default:"2000" validate:"gte=1,lte=30000"`
}

// QueueConfig represents queue behaviour configuration.
type QueueConfig struct {
	VolumeStep float64 `yaml:"volume_step" default:"0.1" validate:"gt=0,lte=1"`
}

// CatalogConfig selects and configures the track source.
type CatalogConfig struct {
	Provider string         `yaml:"provider" default:"dab" validate:"oneof=dab spotify"`
	Settings map[string]any `yaml:"settings"`
}

// Load loads configuration from a YAML file.
// Environment variables take precedence over file values for sensitive fields.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read config file")
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, errors.Wrap(err, "failed to parse config file")
	}

	return finish(&cfg)
}

// Default returns the configuration used when no file is given.
func Default() (*Config, error) {
	return finish(&Config{})
}

func finish(cfg *Config) (*Config, error) {
	// Override with environment variables
	cfg.overrideFromEnv()

	// Set defaults using creasty/defaults
	if err := defaults.Set(cfg); err != nil {
		return nil, errors.Wrap(err, "failed to set defaults")
	}

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "config validation failed")
	}

	return cfg, nil
}

// overrideFromEnv overrides config values with environment variables.
func (c *Config) overrideFromEnv() {
	if v := os.Getenv("HIBIKI_TOKEN"); v != "" {
		c.Server.Token = v
	}
	if v := os.Getenv("HIBIKI_STORAGE_PATH"); v != "" {
		c.Storage.Path = v
	}

	secrets := map[string]string{
		"SPOTIFY_CLIENT_ID":     "client_id",
		"SPOTIFY_CLIENT_SECRET": "client_secret",
		"SPOTIFY_REFRESH_TOKEN": "refresh_token",
	}
	if c.Catalog.Provider != "spotify" {
		return
	}
	for env, key := range secrets {
		if v := os.Getenv(env); v != "" {
			if c.Catalog.Settings == nil {
				c.Catalog.Settings = make(map[string]any)
			}
			c.Catalog.Settings[key] = v
		}
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	validate := validator.New()
	if err := validate.Struct(c); err != nil {
		return errors.Wrap(err, "struct validation failed")
	}

	if c.Storage.Backend != "memory" && c.Storage.Path == "" {
		return errors.Newf("storage.path is required for the %s backend", c.Storage.Backend)
	}

	return nil
}

// SaveTimeout returns the snapshot save timeout.
func (c *Config) SaveTimeout() time.Duration {
	return time.Duration(c.Storage.SaveTimeoutMs) * time.Millisecond
}

// ReadHeaderTimeout returns the HTTP read header timeout.
func (c *Config) ReadHeaderTimeout() time.Duration {
	return time.Duration(c.Server.ReadHeaderTimeoutMs) * time.Millisecond
}
