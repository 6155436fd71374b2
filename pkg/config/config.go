// Package config loads the ollamaman TOML configuration file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
)

const (
	DefaultListen          = ":8080"
	DefaultUpstreamHost    = "localhost"
	DefaultUpstreamPort    = 11434
	DefaultConnectTimeout  = 5 * time.Second
	DefaultRequestTimeout  = 1800 * time.Second
	DefaultKeepAlive       = "5m"
	DefaultRetentionDays   = 30
	DefaultJanitorInterval = time.Hour
)

// Config is the on-disk configuration. Values here are the fallback used when
// the settings table has no override.
type Config struct {
	Listen   string         `toml:"listen"`
	Debug    bool           `toml:"debug"`
	Upstream UpstreamConfig `toml:"upstream"`
	Storage  StorageConfig  `toml:"storage"`
	History  HistoryConfig  `toml:"history"`
}

// UpstreamConfig points at the inference server.
type UpstreamConfig struct {
	Host           string        `toml:"host"`
	Port           int           `toml:"port"`
	ConnectTimeout time.Duration `toml:"connect_timeout"`
	RequestTimeout time.Duration `toml:"request_timeout"`
	KeepAlive      string        `toml:"keep_alive"`
}

type StorageConfig struct {
	// DBPath is the SQLite file. Empty means the default location.
	DBPath string `toml:"db_path"`
}

type HistoryConfig struct {
	// RetentionDays: 0 disables history, negative keeps forever.
	RetentionDays   int           `toml:"retention_days"`
	JanitorInterval time.Duration `toml:"janitor_interval"`
}

// Default returns a Config populated with the built-in defaults.
func Default() *Config {
	return &Config{
		Listen: DefaultListen,
		Upstream: UpstreamConfig{
			Host:           DefaultUpstreamHost,
			Port:           DefaultUpstreamPort,
			ConnectTimeout: DefaultConnectTimeout,
			RequestTimeout: DefaultRequestTimeout,
			KeepAlive:      DefaultKeepAlive,
		},
		History: HistoryConfig{
			RetentionDays:   DefaultRetentionDays,
			JanitorInterval: DefaultJanitorInterval,
		},
	}
}

// Dir returns ~/.ollamaman.
func Dir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not determine home directory: %w", err)
	}
	return filepath.Join(home, ".ollamaman"), nil
}

// DefaultPath returns ~/.ollamaman/config.toml.
func DefaultPath() (string, error) {
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// Load reads the file at path on top of the defaults. A missing file is not an
// error and yields the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	if _, err := toml.DecodeFile(path, cfg); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return cfg, nil
		}
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}

	cfg.fillDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

// fillDefaults replaces zero values that have no meaning of their own.
// History.RetentionDays is left alone since 0 disables history.
func (c *Config) fillDefaults() {
	d := Default()
	if c.Listen == "" {
		c.Listen = d.Listen
	}
	if c.Upstream.Host == "" {
		c.Upstream.Host = d.Upstream.Host
	}
	if c.Upstream.Port == 0 {
		c.Upstream.Port = d.Upstream.Port
	}
	if c.Upstream.ConnectTimeout == 0 {
		c.Upstream.ConnectTimeout = d.Upstream.ConnectTimeout
	}
	if c.Upstream.RequestTimeout == 0 {
		c.Upstream.RequestTimeout = d.Upstream.RequestTimeout
	}
	if c.History.JanitorInterval == 0 {
		c.History.JanitorInterval = d.History.JanitorInterval
	}
}

// Validate reports values that cannot be used.
func (c *Config) Validate() error {
	var errs []error
	if c.Upstream.Port < 0 || c.Upstream.Port > 65535 {
		errs = append(errs, fmt.Errorf("upstream.port %d out of range", c.Upstream.Port))
	}
	if c.Upstream.ConnectTimeout < 0 {
		errs = append(errs, errors.New("upstream.connect_timeout must not be negative"))
	}
	if c.Upstream.RequestTimeout < 0 {
		errs = append(errs, errors.New("upstream.request_timeout must not be negative"))
	}
	if c.History.JanitorInterval < 0 {
		errs = append(errs, errors.New("history.janitor_interval must not be negative"))
	}
	return errors.Join(errs...)
}
