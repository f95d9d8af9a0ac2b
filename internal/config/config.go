// Package config handles configuration file loading and parsing.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/pelletier/go-toml/v2"

	"github.com/jmylchreest/entrykit/internal/model"
)

// Default configuration values.
const (
	DefaultPrecedence   = "enqueue"
	DefaultPriority     = "normal"
	DefaultFormat       = "plain"
	DefaultHistoryLimit = 50
)

// Config represents the entrykit client configuration.
type Config struct {
	Display DisplayDefaults `toml:"display"`
	Output  OutputConfig    `toml:"output"`
	History HistoryConfig   `toml:"history"`
}

// DisplayDefaults holds defaults for `entrykit display`.
type DisplayDefaults struct {
	Precedence   string   `toml:"precedence"`    // "enqueue" or "override"
	Priority     string   `toml:"priority"`      // name or number, empty for none
	DropEnqueued bool     `toml:"drop_enqueued"` // Only used with override
	Duration     Duration `toml:"duration"`      // 0 uses the daemon's band default
}

// OutputConfig holds output format settings.
type OutputConfig struct {
	Format string `toml:"format"` // plain, json, yaml
}

// HistoryConfig holds `entrykit history` defaults.
type HistoryConfig struct {
	Limit int `toml:"limit"` // 0 = unlimited
}

// ValidFormats lists the output formats understood by the CLI.
func ValidFormats() []string {
	return []string{"plain", "json", "yaml"}
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() *Config {
	return &Config{
		Display: DisplayDefaults{
			Precedence: DefaultPrecedence,
			Priority:   DefaultPriority,
		},
		Output: OutputConfig{
			Format: DefaultFormat,
		},
		History: HistoryConfig{
			Limit: DefaultHistoryLimit,
		},
	}
}

func configHome() string {
	configHome := os.Getenv("XDG_CONFIG_HOME")
	if configHome == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return ""
		}
		configHome = filepath.Join(home, ".config")
	}
	return configHome
}

// ConfigPath returns the path to the config file.
// Uses XDG_CONFIG_HOME if set, otherwise ~/.config.
func ConfigPath() string {
	return filepath.Join(configHome(), "entrykit", "config.toml")
}

// DataPath returns the path to the data directory.
// Uses XDG_DATA_HOME if set, otherwise ~/.local/share.
func DataPath() string {
	dataHome := os.Getenv("XDG_DATA_HOME")
	if dataHome == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return ""
		}
		dataHome = filepath.Join(home, ".local", "share")
	}
	return filepath.Join(dataHome, "entrykit")
}

// JournalPath returns the default path of the lifecycle journal.
func JournalPath() string {
	return filepath.Join(DataPath(), "journal.jsonl")
}

// LoadConfig loads configuration from the specified path.
// If path is empty, uses the default config path.
// Returns default config if file doesn't exist.
func LoadConfig(path string) (*Config, error) {
	if path == "" {
		path = ConfigPath()
	}

	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return nil, err
	}

	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate checks the client configuration.
func (c *Config) Validate() error {
	switch c.Display.Precedence {
	case "enqueue", "override":
	default:
		return fmt.Errorf("invalid precedence %q, must be enqueue or override", c.Display.Precedence)
	}
	if c.Display.Priority != "" {
		if _, err := model.ParsePriority(c.Display.Priority); err != nil {
			return err
		}
	}

	valid := false
	for _, f := range ValidFormats() {
		if c.Output.Format == f {
			valid = true
			break
		}
	}
	if !valid {
		return fmt.Errorf("invalid format %q, must be one of: %v", c.Output.Format, ValidFormats())
	}

	if c.History.Limit < 0 {
		return fmt.Errorf("history limit cannot be negative, got %d", c.History.Limit)
	}
	return nil
}

// Save writes the configuration to the specified path.
// Creates parent directories if needed.
func (c *Config) Save(path string) error {
	if path == "" {
		path = ConfigPath()
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	data, err := toml.Marshal(c)
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}

// EnsureDataDir creates the data directory if it doesn't exist.
func EnsureDataDir() error {
	path := DataPath()
	if path == "" {
		return errors.New("unable to determine data directory")
	}
	return os.MkdirAll(path, 0755)
}
