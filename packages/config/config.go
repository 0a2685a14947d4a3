// Package config loads CLI defaults from a YAML configuration file.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds the httpfetch CLI defaults. Pointer booleans distinguish
// "unset" from an explicit false.
type Config struct {
	Timeout          int               `yaml:"timeout,omitempty"`          // milliseconds
	FollowRedirects  *bool             `yaml:"followRedirects,omitempty"`
	MaxRedirects     int               `yaml:"maxRedirects,omitempty"`
	LowSpeedLimit    int64             `yaml:"lowSpeedLimit,omitempty"`    // bytes
	LowSpeedWindow   int               `yaml:"lowSpeedWindow,omitempty"`   // milliseconds
	Headers          map[string]string `yaml:"headers,omitempty"`          // default headers for all requests
	RateLimit        float64           `yaml:"rateLimit,omitempty"`        // transfers per second, 0 = unlimited
	HistoryPath      string            `yaml:"historyPath,omitempty"`      // SQLite transfer log
	NoColor          *bool             `yaml:"noColor,omitempty"`
	Verbose          *bool             `yaml:"verbose,omitempty"`
}

// ConfigFilenames contains the config file names searched in order.
var ConfigFilenames = []string{
	".httpfetch.yaml",
	"httpfetch.yaml",
	".httpfetchrc.yaml",
}

func getBool(b *bool, defaultVal bool) bool {
	if b == nil {
		return defaultVal
	}
	return *b
}

// GetFollowRedirects returns the redirect setting, defaulting to true.
func (c *Config) GetFollowRedirects() bool {
	return getBool(c.FollowRedirects, true)
}

// GetNoColor returns the no color setting, defaulting to false.
func (c *Config) GetNoColor() bool {
	return getBool(c.NoColor, false)
}

// GetVerbose returns the verbose setting, defaulting to false.
func (c *Config) GetVerbose() bool {
	return getBool(c.Verbose, false)
}

// GetTimeout returns the timeout as a duration; zero means disabled.
func (c *Config) GetTimeout() time.Duration {
	return time.Duration(c.Timeout) * time.Millisecond
}

// GetLowSpeedWindow returns the low-speed window as a duration.
func (c *Config) GetLowSpeedWindow() time.Duration {
	return time.Duration(c.LowSpeedWindow) * time.Millisecond
}

// DefaultConfig returns a config with everything unset.
func DefaultConfig() *Config {
	return &Config{Headers: make(map[string]string)}
}

// Load loads configuration from the given path, or searches the current
// directory for one of ConfigFilenames when path is empty. A missing
// config file is not an error; defaults are returned.
func Load(path string) (*Config, error) {
	if path != "" {
		return loadFile(path)
	}
	return FindAndLoad(".")
}

// FindAndLoad searches dir for a config file.
func FindAndLoad(dir string) (*Config, error) {
	for _, filename := range ConfigFilenames {
		configPath := filepath.Join(dir, filename)
		if _, err := os.Stat(configPath); err == nil {
			return loadFile(configPath)
		}
	}
	return DefaultConfig(), nil
}

func loadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}
