// Package config loads the equilibria runtime settings from YAML and the
// environment.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"equilibria/internal/logging"
	"equilibria/internal/storage"
)

// Config holds the settings shared by the CLI and the client API.
type Config struct {
	// Workers is the number of concurrently executing iterations.
	Workers int `json:"workers" yaml:"workers"`

	// Seed is the base seed used when a run request does not carry one.
	Seed uint64 `json:"seed" yaml:"seed"`

	Logging LoggingConfig `json:"logging" yaml:"logging"`
	Store   StoreConfig   `json:"store" yaml:"store"`
}

type LoggingConfig struct {
	// Level is one of debug, info, warn or error.
	Level string `json:"level" yaml:"level"`
	// Format is one of text, json or logfmt.
	Format string `json:"format" yaml:"format"`
}

type StoreConfig struct {
	// Kind is "memory" or "sqlite".
	Kind string `json:"kind" yaml:"kind"`
	// Path is the sqlite database file. Supports ${VAR} expansion.
	Path string `json:"path,omitempty" yaml:"path,omitempty"`
}

func Default() *Config {
	return &Config{
		Workers: 4,
		Seed:    1,
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
		Store: StoreConfig{
			Kind: "memory",
			Path: "equilibria.db",
		},
	}
}

// Load reads path over the defaults and applies environment overrides.
// An empty path or a missing file yields the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		fileConfig, err := LoadFromFile(path)
		switch {
		case err == nil:
			cfg = fileConfig
		case errors.Is(err, fs.ErrNotExist):
		default:
			return nil, err
		}
	}
	applyEnvOverrides(cfg)
	cfg.Store.Path = expandEnvVars(cfg.Store.Path)
	return cfg, nil
}

func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	if c.Workers < 1 {
		return fmt.Errorf("workers must be positive, got %d", c.Workers)
	}
	if _, err := logging.ParseLevel(c.Logging.Level); err != nil {
		return err
	}
	if _, err := logging.ParseFormat(c.Logging.Format); err != nil {
		return err
	}
	switch c.Store.Kind {
	case "", storage.BackendMemory:
	case storage.BackendSQLite:
		if c.Store.Path == "" {
			return errors.New("sqlite store requires a path")
		}
	default:
		return fmt.Errorf("invalid store kind: %s (valid: %s)", c.Store.Kind, strings.Join(storage.Backends(), ", "))
	}
	return nil
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("EQUILIBRIA_WORKERS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Workers = n
		}
	}
	if v := os.Getenv("EQUILIBRIA_SEED"); v != "" {
		if n, err := strconv.ParseUint(v, 10, 64); err == nil {
			cfg.Seed = n
		}
	}
	if v := os.Getenv("EQUILIBRIA_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("EQUILIBRIA_LOG_FORMAT"); v != "" {
		cfg.Logging.Format = v
	}
	if v := os.Getenv("EQUILIBRIA_STORE"); v != "" {
		cfg.Store.Kind = v
	}
	if v := os.Getenv("EQUILIBRIA_DB_PATH"); v != "" {
		cfg.Store.Path = v
	}
}

func expandEnvVars(s string) string {
	if !strings.Contains(s, "${") {
		return s
	}
	return os.Expand(s, os.Getenv)
}
