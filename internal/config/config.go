// Package config loads process-wide settings (remote name, lock path
// override, default editor identity override) from environment variables
// and an optional .sterna.toml file (spec.md §4, Config row).
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
)

// Config holds settings that apply across a whole sterna invocation.
type Config struct {
	// Remote is the git remote name used by Pull/Push when the caller does
	// not specify one explicitly.
	Remote string `mapstructure:"remote"`

	// LockPath overrides the advisory lock file location. Empty means the
	// engine derives it from the repository's metadata directory.
	LockPath string `mapstructure:"lock_path"`

	// Editor overrides the identity resolved via internal/identity, for
	// environments where git user.email is not configured (CI runners).
	Editor string `mapstructure:"editor"`
}

// Default returns the settings used when neither environment nor config
// file supplies a value.
func Default() Config {
	return Config{
		Remote: "origin",
	}
}

// Load reads settings from, in increasing precedence: built-in defaults,
// an optional TOML file at path (searched as .sterna.toml in the current
// directory, then the home directory, when path is empty), then
// STERNA_-prefixed environment variables.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetConfigType("toml")

	defaults := Default()
	v.SetDefault("remote", defaults.Remote)
	v.SetDefault("lock_path", defaults.LockPath)
	v.SetDefault("editor", defaults.Editor)

	v.SetEnvPrefix("STERNA")
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName(".sterna")
		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(home)
		}
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return Config{}, fmt.Errorf("sterna: read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("sterna: unmarshal config: %w", err)
	}

	if cfg.LockPath != "" {
		cfg.LockPath = expandPath(cfg.LockPath)
	}

	return cfg, nil
}

func expandPath(path string) string {
	if len(path) == 0 || path[0] != '~' {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, path[1:])
}
