package config

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the top-level application configuration.
type Config struct {
	// Listen is the HTTP listen address for the JSON API.
	Listen string `yaml:"listen"`

	// DBPath is the SQLite database file path.
	DBPath string `yaml:"db_path"`

	// Timezone is the IANA zone attached to naive timestamps (e.g.
	// "America/Chicago"). Empty means the system zone.
	Timezone string `yaml:"timezone"`

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `yaml:"log_level"`

	// HorizonDays bounds default upcoming-period listings.
	HorizonDays int `yaml:"horizon_days"`
}

func Default() *Config {
	return &Config{
		Listen:      "127.0.0.1:8080",
		DBPath:      "almanac.db",
		LogLevel:    "info",
		HorizonDays: 30,
	}
}

// Normalize fills missing values so partially-filled configs from older
// versions still behave.
func (c *Config) Normalize() {
	if c.Listen == "" {
		c.Listen = "127.0.0.1:8080"
	}
	if c.DBPath == "" {
		c.DBPath = "almanac.db"
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.HorizonDays <= 0 {
		c.HorizonDays = 30
	}
}

// Location resolves the configured timezone. Empty config means the system
// local zone.
func (c *Config) Location() (*time.Location, error) {
	if c.Timezone == "" {
		return time.Local, nil
	}
	return time.LoadLocation(c.Timezone)
}

// Load reads the YAML config at path. A missing file is a first run: the
// defaults are written there (0600) and returned.
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, errors.New("config path is empty")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			cfg := Default()
			if err := Save(path, cfg); err != nil {
				return cfg, err
			}
			return cfg, nil
		}
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	cfg.Normalize()
	return &cfg, nil
}

// Save writes cfg to path as YAML, creating the parent directory if needed.
func Save(path string, cfg *Config) error {
	if cfg == nil {
		return errors.New("config is nil")
	}
	cfg.Normalize()

	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}
