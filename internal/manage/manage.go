// Package manage implements the user-facing operations over tracked pages:
// listing history, opting a page in, removing entries and clearing
// everything.
package manage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/runnerr0/playmark/internal/storage"
	"github.com/runnerr0/playmark/internal/tracker"
)

var (
	// ErrIndexOutOfRange is returned by Remove for an index outside the history.
	ErrIndexOutOfRange = errors.New("history index out of range")
	// ErrNoURL is returned when an operation needs a page URL and none was given.
	ErrNoURL = errors.New("page URL is required")
)

// Page is the active page a user asks to start tracking.
type Page struct {
	URL   string
	Title string
}

// Manager runs management operations against a store.
type Manager struct {
	store  storage.Store
	limit  int
	now    func() time.Time
	logger *slog.Logger
}

// New creates a Manager. A nil now uses time.Now and a nil logger uses
// slog.Default().
func New(store storage.Store, now func() time.Time, logger *slog.Logger) *Manager {
	if now == nil {
		now = time.Now
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		store:  store,
		limit:  tracker.DefaultHistoryLimit,
		now:    now,
		logger: logger.With(slog.String("component", "manage")),
	}
}

// WithHistoryLimit overrides the history cap applied when seeding records.
func (m *Manager) WithHistoryLimit(n int) *Manager {
	if n > 0 {
		m.limit = n
	}
	return m
}

// List returns the stored history, most recent first.
func (m *Manager) List(ctx context.Context) ([]storage.HistoryRecord, error) {
	st, err := m.state(ctx)
	if err != nil {
		return nil, err
	}
	return st.History, nil
}

// Tracked returns the explicit tracked set.
func (m *Manager) Tracked(ctx context.Context) ([]string, error) {
	st, err := m.state(ctx)
	if err != nil {
		return nil, err
	}
	return st.TrackedURLs, nil
}

func (m *Manager) state(ctx context.Context) (storage.State, error) {
	vals, err := m.store.Get(ctx, storage.KeyTrackedURLs, storage.KeyVideoHistory)
	if err != nil {
		return storage.State{}, fmt.Errorf("read state: %w", err)
	}
	return storage.DecodeState(vals)
}

// StartTracking adds page to the tracked set and seeds a zero-progress
// record so the page shows up before any playback is observed. It is a
// no-op, returning false, when the page is already in the tracked set.
func (m *Manager) StartTracking(ctx context.Context, page Page) (bool, error) {
	if page.URL == "" {
		return false, ErrNoURL
	}

	var started bool
	err := m.store.Update(ctx, []string{storage.KeyTrackedURLs, storage.KeyVideoHistory}, func(cur storage.Values) (storage.Values, error) {
		st, err := storage.DecodeState(cur)
		if err != nil {
			return nil, err
		}
		for _, u := range st.TrackedURLs {
			if u == page.URL {
				return nil, nil
			}
		}

		tracked, err := storage.EncodeTrackedURLs(append(st.TrackedURLs, page.URL))
		if err != nil {
			return nil, err
		}
		started = true

		// A page with history is already tracked implicitly; keep its progress.
		for _, r := range st.History {
			if r.URL == page.URL {
				return storage.Values{storage.KeyTrackedURLs: tracked}, nil
			}
		}

		host := tracker.Hostname(page.URL)
		title := page.Title
		if title == "" {
			title = host
		}
		seed := storage.HistoryRecord{
			URL:           page.URL,
			Title:         title,
			CurrentTime:   0,
			Duration:      0,
			FormattedTime: tracker.FormatTime(0),
			Timestamp:     m.now().UnixMilli(),
			Hostname:      host,
		}

		history, err := storage.EncodeHistory(tracker.Upsert(st.History, seed, m.limit))
		if err != nil {
			return nil, err
		}
		return storage.Values{
			storage.KeyTrackedURLs:  tracked,
			storage.KeyVideoHistory: history,
		}, nil
	})
	if err != nil {
		return false, fmt.Errorf("start tracking %s: %w", page.URL, err)
	}

	if started {
		m.logger.Info("tracking started", slog.String("url", page.URL))
	}
	return started, nil
}

// Remove deletes the history entry at index and drops its URL from the
// tracked set, which stops future observation of that page.
func (m *Manager) Remove(ctx context.Context, index int) (storage.HistoryRecord, error) {
	var removed storage.HistoryRecord
	err := m.store.Update(ctx, []string{storage.KeyTrackedURLs, storage.KeyVideoHistory}, func(cur storage.Values) (storage.Values, error) {
		st, err := storage.DecodeState(cur)
		if err != nil {
			return nil, err
		}
		if index < 0 || index >= len(st.History) {
			return nil, fmt.Errorf("%w: %d (have %d)", ErrIndexOutOfRange, index, len(st.History))
		}

		removed = st.History[index]
		history := append(st.History[:index:index], st.History[index+1:]...)

		rawHistory, err := storage.EncodeHistory(history)
		if err != nil {
			return nil, err
		}
		rawTracked, err := storage.EncodeTrackedURLs(tracker.WithoutURL(st.TrackedURLs, removed.URL))
		if err != nil {
			return nil, err
		}
		return storage.Values{
			storage.KeyTrackedURLs:  rawTracked,
			storage.KeyVideoHistory: rawHistory,
		}, nil
	})
	if err != nil {
		return storage.HistoryRecord{}, fmt.Errorf("remove entry: %w", err)
	}

	m.logger.Info("entry removed", slog.String("url", removed.URL), slog.Int("index", index))
	return removed, nil
}

// ClearAll empties both the tracked set and the history.
func (m *Manager) ClearAll(ctx context.Context) error {
	tracked, err := storage.EncodeTrackedURLs(nil)
	if err != nil {
		return err
	}
	history, err := storage.EncodeHistory(nil)
	if err != nil {
		return err
	}
	if err := m.store.Set(ctx, storage.Values{
		storage.KeyTrackedURLs:  tracked,
		storage.KeyVideoHistory: history,
	}); err != nil {
		return fmt.Errorf("clear all: %w", err)
	}

	m.logger.Info("history cleared")
	return nil
}

// IsTracked reports whether url would pass the tracking gate right now.
func (m *Manager) IsTracked(ctx context.Context, url string) (bool, error) {
	st, err := m.state(ctx)
	if err != nil {
		return false, err
	}
	return tracker.IsTracked(url, st.TrackedURLs, st.History), nil
}

// Open hands url to the host opener.
func (m *Manager) Open(ctx context.Context, opener Opener, url string) error {
	if url == "" {
		return ErrNoURL
	}
	if err := opener.Open(ctx, url); err != nil {
		return fmt.Errorf("open %s: %w", url, err)
	}
	return nil
}
