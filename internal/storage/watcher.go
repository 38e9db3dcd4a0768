package storage

import (
	"context"
	"log/slog"
	"time"
)

// Watcher delivers changes committed by any process sharing the database
// file. It compares per-key versions on every tick and emits a Change for
// each key whose version advanced.
type Watcher struct {
	store    Store
	interval time.Duration
	logger   *slog.Logger
}

// NewWatcher creates a Watcher polling store every interval. A nil logger
// uses slog.Default().
func NewWatcher(store Store, interval time.Duration, logger *slog.Logger) *Watcher {
	if logger == nil {
		logger = slog.Default()
	}
	if interval <= 0 {
		interval = 500 * time.Millisecond
	}
	return &Watcher{
		store:    store,
		interval: interval,
		logger:   logger.With(slog.String("component", "watcher")),
	}
}

// Run blocks until ctx is done, calling fn for every observed change.
// Versions present when Run starts are the baseline and are not reported.
func (w *Watcher) Run(ctx context.Context, fn Listener) error {
	seen, err := w.store.Versions(ctx)
	if err != nil {
		return err
	}

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}

		current, err := w.store.Versions(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			w.logger.Warn("poll versions failed", slog.String("error", err.Error()))
			continue
		}

		for _, key := range []string{KeyTrackedURLs, KeyVideoHistory} {
			v, ok := current[key]
			if !ok || v <= seen[key] {
				continue
			}
			vals, err := w.store.Get(ctx, key)
			if err != nil {
				w.logger.Warn("read changed key failed",
					slog.String("key", key),
					slog.String("error", err.Error()),
				)
				continue
			}
			seen[key] = v
			fn(Change{Key: key, Value: vals[key], Version: v})
		}
	}
}
