// Package config provides configuration types and defaults for vellum.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration options for vellum.
type Config struct {
	// Root is the directory under which project repositories live.
	Root string `mapstructure:"root"`
	// DBPath is the sqlite index database file.
	DBPath string `mapstructure:"db_path"`
	// GitBin is the git binary to execute. Resolved via PATH when bare.
	GitBin string `mapstructure:"git_bin"`

	Compile CompileConfig `mapstructure:"compile"`
	Log     LogConfig     `mapstructure:"log"`

	// Watch enables the repository ref watcher.
	Watch bool `mapstructure:"watch"`
}

// CompileConfig holds compilation scheduler options.
type CompileConfig struct {
	// DefaultEngine is used when neither the request nor the manifest
	// names one. Valid values: "pdflatex", "xelatex", "lualatex", "latex".
	DefaultEngine string `mapstructure:"default_engine"`
	// Timeout is how long a job may run before the caller should force
	// a timeout. Zero disables caller-side enforcement.
	Timeout time.Duration `mapstructure:"timeout"`
}

// LogConfig holds logging options.
type LogConfig struct {
	// Level is one of "debug", "info", "warn", "error".
	Level string `mapstructure:"level"`
	// Dir receives the daily log file. Empty disables file logging.
	Dir string `mapstructure:"dir"`
}

// Defaults returns a Config with sensible default values.
func Defaults() Config {
	return Config{
		Root:   "./data",
		DBPath: "./data/vellum.db",
		GitBin: "git",
		Compile: CompileConfig{
			DefaultEngine: "pdflatex",
			Timeout:       5 * time.Minute,
		},
		Log: LogConfig{
			Level: "info",
		},
		Watch: false,
	}
}

// Load reads configuration from the given file, layered over Defaults().
// An empty path searches "vellum.yaml" in the working directory and
// $HOME/.config/vellum/; a missing file is not an error.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("vellum")
		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".config", "vellum"))
		}
	}
	v.SetEnvPrefix("VELLUM")
	v.AutomaticEnv()

	cfg := Defaults()
	if err := v.ReadInConfig(); err != nil {
		if path != "" {
			return Config{}, fmt.Errorf("failed to read config %s: %w", path, err)
		}
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("failed to read config: %w", err)
		}
	}
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks the configuration for errors.
func (c Config) Validate() error {
	if c.Root == "" {
		return fmt.Errorf("root is required")
	}
	if c.DBPath == "" {
		return fmt.Errorf("db_path is required")
	}
	switch c.Log.Level {
	case "", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid log level %q", c.Log.Level)
	}
	if c.Compile.Timeout < 0 {
		return fmt.Errorf("compile timeout must not be negative")
	}
	return nil
}

// DefaultConfigTemplate returns the default config as a YAML string with comments.
func DefaultConfigTemplate() string {
	return `# Vellum Configuration

# Directory holding project repositories
root: ./data

# Sqlite index database
db_path: ./data/vellum.db

# Git binary (resolved via PATH when bare)
git_bin: git

compile:
  # Engine used when neither the request nor the project manifest names one.
  # Valid values: pdflatex, xelatex, lualatex, latex
  default_engine: pdflatex
  # How long a compile may run before it is forced into timeout
  timeout: 5m

log:
  # debug, info, warn, error
  level: info
  # Directory for the daily log file; empty logs to stderr only
  # dir: /var/log/vellum

# Watch repository refs for external mutation
watch: false
`
}
