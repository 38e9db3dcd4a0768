package tracker

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/runnerr0/playmark/internal/storage"
)

// Gate caches whether a page URL is tracked and recomputes the answer on
// every change notification for either persisted key.
type Gate struct {
	url    string
	logger *slog.Logger

	mu      sync.RWMutex
	tracked []string
	history []storage.HistoryRecord
	open    bool

	unsubscribe func()
}

// NewGate loads the current state for url and subscribes to store changes.
func NewGate(ctx context.Context, store storage.Store, url string, logger *slog.Logger) (*Gate, error) {
	if logger == nil {
		logger = slog.Default()
	}
	g := &Gate{
		url:    url,
		logger: logger.With(slog.String("component", "gate")),
	}

	vals, err := store.Get(ctx, storage.KeyTrackedURLs, storage.KeyVideoHistory)
	if err != nil {
		return nil, fmt.Errorf("load tracking state: %w", err)
	}
	st, err := storage.DecodeState(vals)
	if err != nil {
		return nil, fmt.Errorf("load tracking state: %w", err)
	}

	g.mu.Lock()
	g.tracked = st.TrackedURLs
	g.history = st.History
	g.recompute()
	g.mu.Unlock()

	g.unsubscribe = store.Subscribe(g.Apply)
	return g, nil
}

// URL returns the page URL the gate decides for.
func (g *Gate) URL() string {
	return g.url
}

// Open reports whether observations for the page should be persisted.
func (g *Gate) Open() bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.open
}

// Apply folds a change into the cached state. It is registered with the
// store and can also be fed from a storage.Watcher.
func (g *Gate) Apply(c storage.Change) {
	st, err := storage.DecodeState(storage.Values{c.Key: c.Value})
	if err != nil {
		g.logger.Warn("ignoring undecodable change",
			slog.String("key", c.Key),
			slog.String("error", err.Error()),
		)
		return
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	switch c.Key {
	case storage.KeyTrackedURLs:
		g.tracked = st.TrackedURLs
	case storage.KeyVideoHistory:
		g.history = st.History
	default:
		return
	}
	g.recompute()
}

// recompute must be called with mu held.
func (g *Gate) recompute() {
	was := g.open
	g.open = IsTracked(g.url, g.tracked, g.history)
	if was != g.open {
		g.logger.Info("tracking status changed",
			slog.String("url", g.url),
			slog.Bool("tracked", g.open),
		)
	}
}

// Close stops receiving change notifications.
func (g *Gate) Close() {
	if g.unsubscribe != nil {
		g.unsubscribe()
		g.unsubscribe = nil
	}
}
