package config

// DefaultConfig returns a Config populated with all default values.
func DefaultConfig() *Config {
	return &Config{
		Storage: StorageConfig{
			Path:              "~/.config/playmark",
			SQLiteFile:        "playmark.db",
			SQLiteJournalMode: "wal",
		},
		Tracking: TrackingConfig{
			DebounceMS:         1000,
			MinPositionSeconds: 2,
			HistoryLimit:       100,
			WatchIntervalMS:    500,
			FrameFallbackTitle: "Video",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}
