// ABOUTME: Configuration loading and parsing for templatekit
// ABOUTME: Supports YAML or TOML files with environment variable expansion and defaults

package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// Config represents the complete templatekit configuration
type Config struct {
	Database DatabaseConfig `yaml:"database" toml:"database"`
	Logging  LoggingConfig  `yaml:"logging" toml:"logging"`
	Import   ImportConfig   `yaml:"import" toml:"import"`
	Export   ExportConfig   `yaml:"export" toml:"export"`
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Path string `yaml:"path" toml:"path"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level" toml:"level"`
	Format string `yaml:"format" toml:"format"`
}

// ImportConfig holds pack import defaults
type ImportConfig struct {
	Strategy         string  `yaml:"strategy" toml:"strategy"`
	Concurrency      int     `yaml:"concurrency" toml:"concurrency"`
	MaxPackTemplates int     `yaml:"max_pack_templates" toml:"max_pack_templates"`
	MinMeanKeywords  float64 `yaml:"min_mean_keywords" toml:"min_mean_keywords"`
}

// ExportConfig holds pack export defaults
type ExportConfig struct {
	RemoveInternalFields bool `yaml:"remove_internal_fields" toml:"remove_internal_fields"`
	ExcludePrebuilt      bool `yaml:"exclude_prebuilt" toml:"exclude_prebuilt"`
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	return &Config{
		Database: DatabaseConfig{Path: filepath.Join(DataDir(), "library.db")},
		Logging:  LoggingConfig{Level: "info", Format: "text"},
		Import: ImportConfig{
			Strategy:         "merge",
			Concurrency:      4,
			MaxPackTemplates: 500,
			MinMeanKeywords:  3,
		},
		Export: ExportConfig{RemoveInternalFields: true},
	}
}

// Load reads a configuration file from the given path and returns a parsed Config.
// Files ending in .toml are decoded as TOML, everything else as YAML.
// Environment variables in the format ${VAR_NAME} are expanded. Keys missing
// from the file keep their Default values.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	// Expand environment variables in the raw content
	expanded := expandEnvVars(string(data))

	cfg := Default()
	if strings.EqualFold(filepath.Ext(path), ".toml") {
		if _, err := toml.Decode(expanded, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	} else if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// LoadOrDefault loads path when it exists and falls back to Default otherwise.
func LoadOrDefault(path string) (*Config, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return Default(), nil
	}
	return Load(path)
}

// expandEnvVars replaces ${VAR_NAME} patterns with the corresponding environment variable values.
// If the environment variable is not set, it is replaced with an empty string.
func expandEnvVars(s string) string {
	re := regexp.MustCompile(`\$\{([^}]+)\}`)

	return re.ReplaceAllStringFunc(s, func(match string) string {
		varName := re.FindStringSubmatch(match)[1]
		return os.Getenv(varName)
	})
}

// Validate checks that all required configuration fields are present and valid.
// Returns an error describing the first validation failure encountered.
func (c *Config) Validate() error {
	if c.Database.Path == "" {
		return fmt.Errorf("database.path is required")
	}

	switch strings.ToLower(c.Logging.Level) {
	case "", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level must be one of debug, info, warn, error (got %q)", c.Logging.Level)
	}
	switch strings.ToLower(c.Logging.Format) {
	case "", "text", "json":
	default:
		return fmt.Errorf("logging.format must be text or json (got %q)", c.Logging.Format)
	}

	switch strings.ToLower(c.Import.Strategy) {
	case "", "merge", "replace":
	default:
		return fmt.Errorf("import.strategy must be merge or replace (got %q)", c.Import.Strategy)
	}
	if c.Import.Concurrency < 1 || c.Import.Concurrency > 64 {
		return fmt.Errorf("import.concurrency must be between 1 and 64 (got %d)", c.Import.Concurrency)
	}
	if c.Import.MaxPackTemplates < 0 {
		return fmt.Errorf("import.max_pack_templates must not be negative")
	}
	if c.Import.MinMeanKeywords < 0 {
		return fmt.Errorf("import.min_mean_keywords must not be negative")
	}

	return nil
}

// Path returns the configuration file location.
// Priority: TEMPLATEKIT_CONFIG env var > XDG_CONFIG_HOME/templatekit/config.yaml > ~/.config/templatekit/config.yaml
func Path() string {
	if envPath := os.Getenv("TEMPLATEKIT_CONFIG"); envPath != "" {
		return envPath
	}

	configDir := os.Getenv("XDG_CONFIG_HOME")
	if configDir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "config.yaml" // fallback
		}
		configDir = filepath.Join(homeDir, ".config")
	}

	return filepath.Join(configDir, "templatekit", "config.yaml")
}

// DataDir returns the directory holding the library database.
// Priority: XDG_DATA_HOME/templatekit > ~/.local/share/templatekit
func DataDir() string {
	dataDir := os.Getenv("XDG_DATA_HOME")
	if dataDir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "data" // fallback
		}
		dataDir = filepath.Join(homeDir, ".local", "share")
	}

	return filepath.Join(dataDir, "templatekit")
}
