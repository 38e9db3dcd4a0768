package tracker

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/runnerr0/playmark/internal/storage"
)

const watchURL = "https://x.test/watch"

func newTestSession(t *testing.T, store storage.Store, page Page, debounce time.Duration) *Session {
	t.Helper()
	s, err := NewSession(context.Background(), store, page, Options{
		Debounce: debounce,
		Now:      fixedClock(testNow),
	})
	require.NoError(t, err)
	t.Cleanup(s.Close)
	return s
}

func TestSession_ObserveIsIdempotent(t *testing.T) {
	store := openTestStore(t)
	s := newTestSession(t, store, Page{URL: watchURL}, time.Second)

	v := newFakeVideo("v1", 0, 0)
	assert.True(t, s.Observe(v))
	assert.False(t, s.Observe(v))
	assert.Len(t, s.Elements(), 1)
	assert.NotEmpty(t, s.ID())
}

func TestSession_UntrackedPageNeverWrites(t *testing.T) {
	store := openTestStore(t)
	writes := countHistoryWrites(store)
	s := newTestSession(t, store, Page{URL: watchURL}, 50*time.Millisecond)

	v := newFakeVideo("v1", 30, 600)
	s.PositionAdvanced(v)
	s.Paused(v)
	s.Seeked(v)
	s.VisibilityLost()
	s.Unload()

	time.Sleep(150 * time.Millisecond)
	assert.Zero(t, writes.count())
}

func TestSession_DebouncedPositionSignals(t *testing.T) {
	store := openTestStore(t)
	seedState(t, store, []string{watchURL}, nil)
	writes := countHistoryWrites(store)
	s := newTestSession(t, store, Page{URL: watchURL, Title: "Watch"}, 300*time.Millisecond)

	v := newFakeVideo("v1", 10, 600)
	for i := 0; i < 5; i++ {
		v.seek(float64(10 + i))
		s.PositionAdvanced(v)
		time.Sleep(20 * time.Millisecond)
	}

	time.Sleep(600 * time.Millisecond)
	assert.Equal(t, 1, writes.count())

	st := loadState(t, store)
	require.Len(t, st.History, 1)
	assert.Equal(t, int64(14), st.History[0].CurrentTime, "position read when the save fires")
}

func TestSession_PauseForcesImmediateWrite(t *testing.T) {
	store := openTestStore(t)
	seedState(t, store, []string{watchURL}, nil)
	writes := countHistoryWrites(store)
	s := newTestSession(t, store, Page{URL: watchURL, Title: "Watch"}, 300*time.Millisecond)

	v := newFakeVideo("v1", 10, 600)
	for i := 0; i < 5; i++ {
		s.PositionAdvanced(v)
		time.Sleep(10 * time.Millisecond)
	}
	time.Sleep(100 * time.Millisecond)

	v.seek(42)
	s.Paused(v)
	assert.Equal(t, 1, writes.count(), "pause writes synchronously")

	time.Sleep(500 * time.Millisecond)
	assert.Equal(t, 1, writes.count(), "pending debounced save was superseded")
	assert.Equal(t, int64(42), loadState(t, store).History[0].CurrentTime)
}

func TestSession_ZeroPositionDoesNotSchedule(t *testing.T) {
	store := openTestStore(t)
	seedState(t, store, []string{watchURL}, nil)
	s := newTestSession(t, store, Page{URL: watchURL}, time.Second)

	s.PositionAdvanced(newFakeVideo("v1", 0, 600))
	assert.False(t, s.sched.Pending())
}

func TestSession_UnloadFlushesStartedElements(t *testing.T) {
	store := openTestStore(t)
	seedState(t, store, []string{watchURL}, nil)
	writes := countHistoryWrites(store)
	s := newTestSession(t, store, Page{URL: watchURL}, time.Second)

	s.Observe(newFakeVideo("idle", 0, 600))
	s.Observe(newFakeVideo("playing", 95, 600))

	s.Unload()
	assert.Equal(t, 1, writes.count())
	assert.Equal(t, "1:35", loadState(t, store).History[0].FormattedTime)
}

func TestSession_VisibilityLostFlushes(t *testing.T) {
	store := openTestStore(t)
	seedState(t, store, []string{watchURL}, nil)
	writes := countHistoryWrites(store)
	s := newTestSession(t, store, Page{URL: watchURL}, time.Second)

	v := newFakeVideo("v1", 61, 600)
	s.PositionAdvanced(v)
	require.True(t, s.sched.Pending())

	s.VisibilityLost()
	assert.Equal(t, 1, writes.count())
	assert.False(t, s.sched.Pending())
}

func TestSession_GateFollowsTrackedSet(t *testing.T) {
	store := openTestStore(t)
	s := newTestSession(t, store, Page{URL: watchURL}, time.Second)
	v := newFakeVideo("v1", 30, 600)

	s.Paused(v)
	assert.Empty(t, loadState(t, store).History)

	seedState(t, store, []string{watchURL}, nil)
	require.True(t, s.Gate().Open())

	s.Paused(v)
	assert.Len(t, loadState(t, store).History, 1)

	seedState(t, store, nil, nil)
	assert.False(t, s.Gate().Open())
	v.seek(90)
	s.Paused(v)
	assert.Empty(t, loadState(t, store).History, "dropped after removal")
}

func TestSession_EmbeddedFrameRecordsEnclosingPage(t *testing.T) {
	store := openTestStore(t)
	seedState(t, store, []string{"https://blog.test/post/7"}, nil)
	s := newTestSession(t, store, Page{
		URL:      "https://player.cdn.test/embed/42",
		Embedded: true,
		Referrer: "https://blog.test/post/7",
	}, time.Second)

	assert.Equal(t, "https://blog.test/post/7", s.Identity().URL)
	s.Seeked(newFakeVideo("v1", 300, 900))

	st := loadState(t, store)
	require.Len(t, st.History, 1)
	assert.Equal(t, "https://blog.test/post/7", st.History[0].URL)
	assert.Equal(t, "blog.test", st.History[0].Title)
	assert.Equal(t, "5:00", st.History[0].FormattedTime)
}

// openSharedStores opens two stores on one database file, standing in for
// two playmark processes.
func openSharedStores(t *testing.T) (*storage.SQLiteStore, *storage.SQLiteStore) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "shared.db")
	open := func() *storage.SQLiteStore {
		db, err := storage.OpenDB(path, "wal")
		require.NoError(t, err)
		t.Cleanup(func() { db.Close() })
		store, err := storage.NewSQLiteStore(db)
		require.NoError(t, err)
		t.Cleanup(func() { store.Close() })
		return store
	}
	return open(), open()
}

func followOtherProcesses(t *testing.T, store storage.Store, s *Session) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = storage.NewWatcher(store, 10*time.Millisecond, nil).Run(ctx, s.Gate().Apply)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
}

func TestSession_ClearFromAnotherProcessStopsWrites(t *testing.T) {
	local, other := openSharedStores(t)
	seedState(t, other, []string{watchURL}, nil)

	s := newTestSession(t, local, Page{URL: watchURL}, time.Second)
	require.True(t, s.Gate().Open())
	followOtherProcesses(t, local, s)
	time.Sleep(50 * time.Millisecond)

	seedState(t, other, nil, nil)
	assert.Eventually(t, func() bool { return !s.Gate().Open() }, 2*time.Second, 10*time.Millisecond)

	s.Paused(newFakeVideo("v1", 30, 600))
	assert.Empty(t, loadState(t, other).History)
}

func TestSession_ClearFromAnotherProcessBeforeRefresh(t *testing.T) {
	local, other := openSharedStores(t)
	seedState(t, other, []string{watchURL}, nil)

	s := newTestSession(t, local, Page{URL: watchURL}, time.Second)
	require.True(t, s.Gate().Open())

	// No watcher: the cached gate is stale and still open.
	seedState(t, other, nil, nil)
	require.True(t, s.Gate().Open())

	s.Paused(newFakeVideo("v1", 30, 600))
	assert.Empty(t, loadState(t, other).History)
}

func TestSession_TrackFromAnotherProcessOpensGate(t *testing.T) {
	local, other := openSharedStores(t)

	s := newTestSession(t, local, Page{URL: watchURL}, time.Second)
	require.False(t, s.Gate().Open())
	followOtherProcesses(t, local, s)
	time.Sleep(50 * time.Millisecond)

	seedState(t, other, []string{watchURL}, nil)
	assert.Eventually(t, s.Gate().Open, 2*time.Second, 10*time.Millisecond)

	s.Paused(newFakeVideo("v1", 30, 600))
	st := loadState(t, other)
	require.Len(t, st.History, 1)
	assert.Equal(t, "0:30", st.History[0].FormattedTime)
}
