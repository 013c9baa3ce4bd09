// Package config loads and saves the user configuration file.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/pelletier/go-toml"
)

// Config is the persisted user configuration
type Config struct {
	PackageManager string `toml:"package_manager"`
	MaxDepth       int    `toml:"max_depth"`
	SecurityAudit  bool   `toml:"security_audit"`
	InstallTimeout int    `toml:"install_timeout_seconds"`
}

// Default returns the configuration used when no file exists
func Default() *Config {
	return &Config{
		PackageManager: "npm",
		MaxDepth:       2,
		SecurityAudit:  true,
		InstallTimeout: 120,
	}
}

// Path returns the location of the config file
func Path() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory: %w", err)
	}
	return filepath.Join(home, ".prevet", "config.toml"), nil
}

// Load reads the config file, returning defaults when it is missing
func Load() (*Config, error) {
	path, err := Path()
	if err != nil {
		return nil, err
	}
	return LoadFrom(path)
}

// LoadFrom reads a config file from an explicit path
func LoadFrom(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return Default(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	cfg := Default()
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if cfg.MaxDepth < 0 {
		cfg.MaxDepth = 0
	}
	if cfg.InstallTimeout <= 0 {
		cfg.InstallTimeout = Default().InstallTimeout
	}
	return cfg, nil
}

// Save writes the config to the default location
func (c *Config) Save() error {
	path, err := Path()
	if err != nil {
		return err
	}
	return c.SaveTo(path)
}

// SaveTo writes the config to an explicit path
func (c *Config) SaveTo(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	data, err := toml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}
