package tracker

import (
	"context"
	"encoding/json"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/runnerr0/playmark/internal/storage"
)

// openTestStore creates a migrated SQLite store in a temp dir.
func openTestStore(t *testing.T) *storage.SQLiteStore {
	t.Helper()
	db, err := storage.OpenDB(filepath.Join(t.TempDir(), "tracker.db"), "wal")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	store, err := storage.NewSQLiteStore(db)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func loadState(t *testing.T, store storage.Store) storage.State {
	t.Helper()
	vals, err := store.Get(context.Background(), storage.KeyTrackedURLs, storage.KeyVideoHistory)
	require.NoError(t, err)
	st, err := storage.DecodeState(vals)
	require.NoError(t, err)
	return st
}

func seedState(t *testing.T, store storage.Store, tracked []string, history []storage.HistoryRecord) {
	t.Helper()
	rawTracked, err := storage.EncodeTrackedURLs(tracked)
	require.NoError(t, err)
	rawHistory, err := storage.EncodeHistory(history)
	require.NoError(t, err)
	require.NoError(t, store.Set(context.Background(), storage.Values{
		storage.KeyTrackedURLs:  rawTracked,
		storage.KeyVideoHistory: rawHistory,
	}))
}

// historyWrites counts committed videoHistory writes.
type historyWrites struct {
	mu sync.Mutex
	n  int
}

func countHistoryWrites(store storage.Store) *historyWrites {
	w := &historyWrites{}
	store.Subscribe(func(c storage.Change) {
		if c.Key == storage.KeyVideoHistory {
			w.mu.Lock()
			w.n++
			w.mu.Unlock()
		}
	})
	return w
}

func (w *historyWrites) count() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.n
}

type fakeVideo struct {
	id string

	mu sync.Mutex
	pb Playback
}

func newFakeVideo(id string, current, duration float64) *fakeVideo {
	return &fakeVideo{id: id, pb: Playback{CurrentTime: current, Duration: duration}}
}

func (v *fakeVideo) ID() string { return v.id }

func (v *fakeVideo) Playback() Playback {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.pb
}

func (v *fakeVideo) seek(current float64) {
	v.mu.Lock()
	v.pb.CurrentTime = current
	v.mu.Unlock()
}

func fixedClock(ts time.Time) func() time.Time {
	return func() time.Time { return ts }
}

func mustJSON(t *testing.T, v interface{}) json.RawMessage {
	t.Helper()
	raw, err := json.Marshal(v)
	require.NoError(t, err)
	return raw
}
