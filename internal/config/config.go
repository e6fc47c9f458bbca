package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/simonhull/crucible/internal/logger"
)

// FileName is the config file name searched for, without extension
const FileName = "crucible"

// EnvPrefix prefixes environment overrides, e.g. CRUCIBLE_STRICT=true
const EnvPrefix = "CRUCIBLE"

// Config represents crucible.yaml configuration
type Config struct {
	Strict     bool             `mapstructure:"strict" yaml:"strict"`
	Format     string           `mapstructure:"format" yaml:"format"`
	Color      bool             `mapstructure:"color" yaml:"color"`
	Modules    ModulesConfig    `mapstructure:"modules" yaml:"modules"`
	Compliance ComplianceConfig `mapstructure:"compliance" yaml:"compliance"`
	Log        LogConfig        `mapstructure:"log" yaml:"log"`
	Metrics    MetricsConfig    `mapstructure:"metrics" yaml:"metrics"`
	Watch      WatchConfig      `mapstructure:"watch" yaml:"watch"`

	// File is the config file that was read; empty when only defaults apply
	File string `mapstructure:"-" yaml:"-"`
}

// ModulesConfig controls module discovery
type ModulesConfig struct {
	Patterns []string `mapstructure:"patterns" yaml:"patterns"`
}

// ComplianceConfig selects compliance frameworks
type ComplianceConfig struct {
	Frameworks []string `mapstructure:"frameworks" yaml:"frameworks"` // Empty runs every framework found
}

// LogConfig holds logging settings
type LogConfig struct {
	Level string `mapstructure:"level" yaml:"level"`
}

// MetricsConfig holds run metrics settings
type MetricsConfig struct {
	Textfile string `mapstructure:"textfile" yaml:"textfile"` // Empty disables the textfile export
}

// WatchConfig holds watch mode settings
type WatchConfig struct {
	Debounce time.Duration `mapstructure:"debounce" yaml:"debounce"`
}

// MarshalYAML writes the debounce as a duration string
func (w WatchConfig) MarshalYAML() (any, error) {
	return map[string]string{"debounce": w.Debounce.String()}, nil
}

// DefaultConfig returns a config with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Format: "text",
		Color:  true,
		Modules: ModulesConfig{
			Patterns: []string{
				"modules/**/*.json",
				"modules/**/*.yaml",
				"modules/**/*.yml",
			},
		},
		Log: LogConfig{
			Level: "warn",
		},
		Watch: WatchConfig{
			Debounce: 500 * time.Millisecond,
		},
	}
}

// Load reads crucible.yaml from dir, falling back to the working directory.
// A missing file is not an error: defaults and environment overrides apply.
func Load(dir string) (*Config, error) {
	v := newViper()
	v.SetConfigName(FileName)
	v.SetConfigType("yaml")
	if dir != "" {
		v.AddConfigPath(dir)
	}
	v.AddConfigPath(".")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	}
	return decode(v)
}

// LoadFile reads an explicit config file. Unlike Load, the file must exist.
func LoadFile(path string) (*Config, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	v := newViper()
	v.SetConfigFile(path)
	if ext := strings.TrimPrefix(filepath.Ext(path), "."); ext == "" {
		v.SetConfigType("yaml")
	}
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}
	return decode(v)
}

func newViper() *viper.Viper {
	v := viper.New()

	defaults := DefaultConfig()
	v.SetDefault("strict", defaults.Strict)
	v.SetDefault("format", defaults.Format)
	v.SetDefault("color", defaults.Color)
	v.SetDefault("modules.patterns", defaults.Modules.Patterns)
	v.SetDefault("compliance.frameworks", []string{})
	v.SetDefault("log.level", defaults.Log.Level)
	v.SetDefault("metrics.textfile", defaults.Metrics.Textfile)
	v.SetDefault("watch.debounce", defaults.Watch.Debounce)

	// Enable environment variable overrides
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	return v
}

func decode(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}
	cfg.File = v.ConfigFileUsed()

	if err := cfg.Validate(); err != nil {
		if cfg.File != "" {
			return nil, fmt.Errorf("%s: %w", cfg.File, err)
		}
		return nil, err
	}
	return &cfg, nil
}

// Validate checks values that decoding alone cannot catch
func (c *Config) Validate() error {
	switch c.Format {
	case "text", "json":
	default:
		return fmt.Errorf("invalid format %q (must be text or json)", c.Format)
	}

	if _, err := logger.ParseLevel(c.Log.Level); err != nil {
		return err
	}

	for _, pattern := range c.Modules.Patterns {
		if !doublestar.ValidatePattern(pattern) {
			return fmt.Errorf("invalid module pattern %q", pattern)
		}
	}

	for _, id := range c.Compliance.Frameworks {
		if strings.TrimSpace(id) == "" {
			return errors.New("compliance.frameworks contains an empty id")
		}
	}

	if c.Watch.Debounce < 0 {
		return fmt.Errorf("watch.debounce must not be negative, got %s", c.Watch.Debounce)
	}
	return nil
}

// Save writes configuration to a YAML file
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}

	return os.WriteFile(path, data, 0644)
}
