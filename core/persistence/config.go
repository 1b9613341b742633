package persistence

import (
	"fmt"
	"os"
	"sync"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds the process-wide fallbacks used when Options leave a setting
// unset.
type Config struct {
	CommandTimeout    time.Duration `yaml:"command_timeout"`
	SchemaVersion     int           `yaml:"schema_version"`
	QuotedIdentifiers *bool         `yaml:"quoted_identifiers,omitempty"`
	IgnoreRowCount    bool          `yaml:"ignore_row_count"`
	Driver            string        `yaml:"driver,omitempty"` // dialect name used when none can be detected
}

var (
	configMu      sync.RWMutex
	defaultConfig = Config{
		CommandTimeout: 30 * time.Second,
		SchemaVersion:  1,
	}
)

// DefaultConfig returns a copy of the process-wide configuration.
func DefaultConfig() Config {
	configMu.RLock()
	defer configMu.RUnlock()
	return defaultConfig
}

// SetDefaultConfig replaces the process-wide configuration. Adapters read it
// when they are created.
func SetDefaultConfig(cfg Config) {
	configMu.Lock()
	defer configMu.Unlock()
	defaultConfig = cfg
}

// ParseConfig reads a YAML document over the current defaults.
func ParseConfig(data []byte) (Config, error) {
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parsing persistence config: %w", err)
	}
	if cfg.CommandTimeout < 0 {
		return Config{}, fmt.Errorf("parsing persistence config: negative command_timeout %s", cfg.CommandTimeout)
	}
	return cfg, nil
}

// LoadConfig reads a YAML configuration file.
func LoadConfig(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("reading persistence config: %w", err)
	}
	return ParseConfig(data)
}
