// Package config loads maxxcode's TOML configuration.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

// Storage backends.
const (
	BackendSQLite = "sqlite"
	BackendFile   = "file"
	BackendMemory = "memory"
)

// Config holds all configuration.
type Config struct {
	Storage StorageConfig `toml:"storage"`
	Rewards RewardsConfig `toml:"rewards"`
	Server  ServerConfig  `toml:"server"`
	Log     LogConfig     `toml:"log"`
	Admin   AdminConfig   `toml:"admin"`
	Clock   ClockConfig   `toml:"clock"`
}

// StorageConfig selects where the progress record lives.
type StorageConfig struct {
	Backend string `toml:"backend"`
	// Path is the database file for sqlite and the directory for file.
	// Empty means the platform default.
	Path string `toml:"path"`
	// PreserveUnknown keeps record fields this version does not understand.
	PreserveUnknown bool `toml:"preserve_unknown"`
}

// RewardsConfig sets the xp used when a catalog entry has none.
type RewardsConfig struct {
	LessonXP  int `toml:"lesson_xp"`
	ProblemXP int `toml:"problem_xp"`
}

// ServerConfig controls the HTTP API.
type ServerConfig struct {
	Addr string `toml:"addr"`
}

// LogConfig controls logging behavior.
type LogConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"` // text or json
}

// AdminConfig holds the developer-mode unlock.
type AdminConfig struct {
	Password string `toml:"password"`
}

// ClockConfig pins the calendar used for streaks. Empty means the local zone.
type ClockConfig struct {
	Timezone string `toml:"timezone"`
}

// DefaultConfig returns the configuration used when no file exists.
func DefaultConfig() Config {
	return Config{
		Storage: StorageConfig{Backend: BackendSQLite},
		Rewards: RewardsConfig{LessonXP: 25, ProblemXP: 40},
		Server:  ServerConfig{Addr: "127.0.0.1:8787"},
		Log:     LogConfig{Level: "info", Format: "text"},
		Admin:   AdminConfig{Password: "hc1"},
	}
}

// Load reads path over DefaultConfig. A missing file yields the defaults.
// MAXXCODE_DB, when set, overrides storage.path.
func Load(path string) (Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		_, err := toml.DecodeFile(path, &cfg)
		switch {
		case errors.Is(err, os.ErrNotExist):
			// No config file yet; use defaults.
		case err != nil:
			return cfg, fmt.Errorf("parse config: %w", err)
		}
	}

	if p := os.Getenv("MAXXCODE_DB"); p != "" {
		cfg.Storage.Path = p
	}

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Validate checks enumerated and numeric fields.
func (c Config) Validate() error {
	var errs []string
	if !slices.Contains([]string{BackendSQLite, BackendFile, BackendMemory}, c.Storage.Backend) {
		errs = append(errs, fmt.Sprintf("storage.backend: unknown backend %q", c.Storage.Backend))
	}
	if c.Rewards.LessonXP < 0 {
		errs = append(errs, "rewards.lesson_xp must not be negative")
	}
	if c.Rewards.ProblemXP < 0 {
		errs = append(errs, "rewards.problem_xp must not be negative")
	}
	if c.Log.Format != "text" && c.Log.Format != "json" {
		errs = append(errs, fmt.Sprintf("log.format: want text or json, got %q", c.Log.Format))
	}
	if _, err := c.Location(); err != nil {
		errs = append(errs, err.Error())
	}
	if len(errs) > 0 {
		return fmt.Errorf("invalid config:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}

// Location returns the configured streak timezone.
func (c Config) Location() (*time.Location, error) {
	if c.Clock.Timezone == "" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.Clock.Timezone)
	if err != nil {
		return nil, fmt.Errorf("clock.timezone: %w", err)
	}
	return loc, nil
}

// DefaultPath resolves the config file path in priority order:
// 1. MAXXCODE_CONFIG environment variable
// 2. $XDG_CONFIG_HOME/maxxcode/config.toml
// 3. ~/.config/maxxcode/config.toml
func DefaultPath() (string, error) {
	if p := os.Getenv("MAXXCODE_CONFIG"); p != "" {
		return p, nil
	}

	configHome := os.Getenv("XDG_CONFIG_HOME")
	if configHome == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home dir: %w", err)
		}
		configHome = filepath.Join(home, ".config")
	}
	return filepath.Join(configHome, "maxxcode", "config.toml"), nil
}

// Save writes cfg to path, creating the directory if needed.
func Save(path string, cfg Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return err
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	return toml.NewEncoder(f).Encode(cfg)
}
