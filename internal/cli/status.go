package cli

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/runnerr0/playmark/internal/manage"
)

// statusJSON is the JSON output structure for the status command.
type statusJSON struct {
	Version           string `json:"version"`
	DatabasePath      string `json:"database_path"`
	DatabaseSizeBytes int64  `json:"database_size_bytes"`
	HistoryEntries    int    `json:"history_entries"`
	HistoryLimit      int    `json:"history_limit"`
	TrackedURLs       int    `json:"tracked_urls"`
	LastWrite         string `json:"last_write,omitempty"`
	DebounceMS        int    `json:"debounce_ms"`
}

// Execute implements the go-flags Commander interface for StatusCommand.
func (c *StatusCommand) Execute(args []string) error {
	e, err := openEnv(c.globals)
	if err != nil {
		return err
	}
	defer e.Close()

	return c.executeWithEnv(context.Background(), e)
}

// executeWithEnv runs status against a provided env (for testing).
func (c *StatusCommand) executeWithEnv(ctx context.Context, e *env) error {
	history, err := e.manager.List(ctx)
	if err != nil {
		return fmt.Errorf("list history: %w", err)
	}
	tracked, err := e.manager.Tracked(ctx)
	if err != nil {
		return fmt.Errorf("list tracked: %w", err)
	}

	out := statusJSON{
		Version:           c.version,
		DatabasePath:      e.dbPath,
		DatabaseSizeBytes: getDatabaseSize(e.db, e.dbPath),
		HistoryEntries:    len(history),
		HistoryLimit:      e.cfg.Tracking.HistoryLimit,
		TrackedURLs:       len(tracked),
		DebounceMS:        e.cfg.Tracking.DebounceMS,
	}

	var lastWrite time.Time
	for _, r := range history {
		if t := r.WrittenAt(); t.After(lastWrite) {
			lastWrite = t
		}
	}
	if !lastWrite.IsZero() {
		out.LastWrite = lastWrite.UTC().Format(time.RFC3339)
	}

	if c.globals != nil && c.globals.JSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	}

	fmt.Println("playmark Status")
	fmt.Println("===============")
	fmt.Printf("Version:       %s\n", out.Version)
	fmt.Printf("Database:      %s (%s)\n", out.DatabasePath, humanize.Bytes(uint64(out.DatabaseSizeBytes)))
	fmt.Printf("History:       %s / %s entries\n", humanize.Comma(int64(out.HistoryEntries)), humanize.Comma(int64(out.HistoryLimit)))
	fmt.Printf("Tracked pages: %s\n", humanize.Comma(int64(out.TrackedURLs)))
	if !lastWrite.IsZero() {
		fmt.Printf("Last write:    %s\n", manage.RelativeTime(lastWrite, time.Now()))
	}
	fmt.Printf("Debounce:      %dms\n", out.DebounceMS)
	return nil
}

// getDatabaseSize returns the database file size in bytes.
// For on-disk databases, it uses os.Stat. Otherwise it queries
// page_count * page_size.
func getDatabaseSize(db *sql.DB, dbPath string) int64 {
	if info, err := os.Stat(dbPath); err == nil {
		return info.Size()
	}

	var pageCount, pageSize int64
	if err := db.QueryRow("PRAGMA page_count").Scan(&pageCount); err != nil {
		return 0
	}
	if err := db.QueryRow("PRAGMA page_size").Scan(&pageSize); err != nil {
		return 0
	}
	return pageCount * pageSize
}
