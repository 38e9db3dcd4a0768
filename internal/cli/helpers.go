package cli

import (
	"database/sql"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/runnerr0/playmark/internal/config"
	"github.com/runnerr0/playmark/internal/manage"
	"github.com/runnerr0/playmark/internal/storage"
)

// env is everything a command needs once flags are parsed.
type env struct {
	cfg     *config.Config
	db      *sql.DB
	dbPath  string
	store   *storage.SQLiteStore
	manager *manage.Manager
	logger  *slog.Logger
}

func (e *env) Close() {
	e.store.Close()
	e.db.Close()
}

// loadConfig resolves configuration.
// Priority: --db-path flag > environment > config file > defaults.
func loadConfig(globals *GlobalFlags) *config.Config {
	var cfg *config.Config
	var err error

	if globals.Config != "" {
		cfg, err = config.Load(globals.Config)
	} else {
		cfg, err = config.LoadOrCreate()
	}
	if err != nil {
		// An unreadable config is not fatal; fall back to defaults.
		cfg = config.DefaultConfig()
	}

	cfg.ApplyEnv()
	if globals.DBPath != "" {
		cfg.Storage.DBPath = globals.DBPath
	}
	return cfg
}

// newLogger builds the process logger. Logs go to w so they never mix with
// command output on stdout.
func newLogger(cfg config.LoggingConfig, verbose bool, w io.Writer) *slog.Logger {
	level := slog.LevelInfo
	switch strings.ToLower(cfg.Level) {
	case "debug":
		level = slog.LevelDebug
	case "warn", "warning":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}
	if verbose {
		level = slog.LevelDebug
	}

	opts := &slog.HandlerOptions{Level: level}
	if strings.EqualFold(cfg.Format, "json") {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// openEnv loads config, opens and migrates the database, and wires the
// management surface.
func openEnv(globals *GlobalFlags) (*env, error) {
	cfg := loadConfig(globals)
	logger := newLogger(cfg.Logging, globals.Verbose, os.Stderr)

	dbPath, err := cfg.DatabasePath()
	if err != nil {
		return nil, fmt.Errorf("resolve db path: %w", err)
	}
	return newEnv(cfg, dbPath, logger)
}

// newEnv opens the store at dbPath. Tests call it directly with a temp path.
func newEnv(cfg *config.Config, dbPath string, logger *slog.Logger) (*env, error) {
	db, err := storage.OpenDB(dbPath, cfg.Storage.SQLiteJournalMode)
	if err != nil {
		return nil, err
	}

	store, err := storage.NewSQLiteStore(db)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("create store: %w", err)
	}

	return &env{
		cfg:     cfg,
		db:      db,
		dbPath:  dbPath,
		store:   store,
		manager: manage.New(store, nil, logger).WithHistoryLimit(cfg.Tracking.HistoryLimit),
		logger:  logger,
	}, nil
}
