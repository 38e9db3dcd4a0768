package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Default config file path.
const DefaultConfigPath = "~/.config/playmark/config.yaml"

// Environment variables that override values from the config file.
const (
	EnvConfigPath = "PLAYMARK_CONFIG"
	EnvDBPath     = "PLAYMARK_DB_PATH"
	EnvLogLevel   = "PLAYMARK_LOG_LEVEL"
	EnvDebounceMS = "PLAYMARK_DEBOUNCE_MS"
)

// Config holds all playmark configuration.
type Config struct {
	Storage  StorageConfig  `yaml:"storage"`
	Tracking TrackingConfig `yaml:"tracking"`
	Logging  LoggingConfig  `yaml:"logging"`
}

type StorageConfig struct {
	Path              string `yaml:"path"`
	SQLiteFile        string `yaml:"sqlite_file"`
	SQLiteJournalMode string `yaml:"sqlite_journal_mode"`

	// DBPath, when set, replaces Path/SQLiteFile entirely.
	DBPath string `yaml:"db_path,omitempty"`
}

type TrackingConfig struct {
	DebounceMS         int    `yaml:"debounce_ms"`
	MinPositionSeconds int    `yaml:"min_position_seconds"`
	HistoryLimit       int    `yaml:"history_limit"`
	WatchIntervalMS    int    `yaml:"watch_interval_ms"`
	FrameFallbackTitle string `yaml:"frame_fallback_title"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Debounce returns the debounce window as a duration.
func (t TrackingConfig) Debounce() time.Duration {
	return time.Duration(t.DebounceMS) * time.Millisecond
}

// WatchInterval returns the cross-process watch poll interval.
func (t TrackingConfig) WatchInterval() time.Duration {
	return time.Duration(t.WatchIntervalMS) * time.Millisecond
}

// Load reads a YAML config file at path and merges it with defaults.
// Returns an error if the file cannot be read or contains invalid YAML.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	cfg.Validate()
	return cfg, nil
}

// Validate replaces out-of-range values with their defaults.
func (c *Config) Validate() {
	def := DefaultConfig()
	if c.Tracking.DebounceMS <= 0 {
		c.Tracking.DebounceMS = def.Tracking.DebounceMS
	}
	if c.Tracking.MinPositionSeconds < 0 {
		c.Tracking.MinPositionSeconds = def.Tracking.MinPositionSeconds
	}
	if c.Tracking.HistoryLimit <= 0 {
		c.Tracking.HistoryLimit = def.Tracking.HistoryLimit
	}
	if c.Tracking.WatchIntervalMS <= 0 {
		c.Tracking.WatchIntervalMS = def.Tracking.WatchIntervalMS
	}
	if c.Tracking.FrameFallbackTitle == "" {
		c.Tracking.FrameFallbackTitle = def.Tracking.FrameFallbackTitle
	}
	if c.Storage.SQLiteFile == "" {
		c.Storage.SQLiteFile = def.Storage.SQLiteFile
	}
}

// ApplyEnv overlays environment overrides onto the config. The caller is
// expected to have loaded any .env file beforehand.
func (c *Config) ApplyEnv() {
	if v := os.Getenv(EnvDBPath); v != "" {
		c.Storage.DBPath = v
	}
	if v := os.Getenv(EnvLogLevel); v != "" {
		c.Logging.Level = v
	}
	if v := os.Getenv(EnvDebounceMS); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.Tracking.DebounceMS = n
		}
	}
}

// DatabasePath resolves the SQLite file location, expanding a leading ~.
func (c *Config) DatabasePath() (string, error) {
	if c.Storage.DBPath != "" {
		return expandPath(c.Storage.DBPath)
	}
	dir, err := expandPath(c.Storage.Path)
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, c.Storage.SQLiteFile), nil
}

// expandPath replaces a leading ~ with the user's home directory.
func expandPath(path string) (string, error) {
	if len(path) > 0 && path[0] == '~' {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolving home directory: %w", err)
		}
		return filepath.Join(home, path[1:]), nil
	}
	return path, nil
}

// LoadOrCreate loads the config from $PLAYMARK_CONFIG or the default path.
// If the file does not exist, it creates the directory structure and writes
// defaults.
func LoadOrCreate() (*Config, error) {
	path := os.Getenv(EnvConfigPath)
	if path == "" {
		path = DefaultConfigPath
	}
	path, err := expandPath(path)
	if err != nil {
		return nil, err
	}
	return LoadOrCreateAt(path)
}

// LoadOrCreateAt loads the config from the given path. If the file does
// not exist, it creates the directory structure and writes defaults.
func LoadOrCreateAt(path string) (*Config, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		cfg := DefaultConfig()

		dir := filepath.Dir(path)
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("creating config directory: %w", err)
		}

		data, err := yaml.Marshal(cfg)
		if err != nil {
			return nil, fmt.Errorf("marshaling default config: %w", err)
		}

		if err := os.WriteFile(path, data, 0644); err != nil {
			return nil, fmt.Errorf("writing default config: %w", err)
		}

		return cfg, nil
	}

	return Load(path)
}
