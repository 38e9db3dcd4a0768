package tracker

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fireLog struct {
	mu  sync.Mutex
	ids []string
}

func (f *fireLog) fire(el Element) {
	f.mu.Lock()
	f.ids = append(f.ids, el.ID())
	f.mu.Unlock()
}

func (f *fireLog) snapshot() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.ids...)
}

func TestScheduler_CoalescesSignals(t *testing.T) {
	var log fireLog
	s := NewScheduler(100*time.Millisecond, log.fire)
	v := newFakeVideo("v1", 10, 100)

	for i := 0; i < 5; i++ {
		s.Signal(v)
		time.Sleep(10 * time.Millisecond)
	}
	assert.Empty(t, log.snapshot(), "nothing fires while signals keep arriving")

	time.Sleep(300 * time.Millisecond)
	assert.Equal(t, []string{"v1"}, log.snapshot())
	assert.False(t, s.Pending())
}

func TestScheduler_SingleTimerAcrossElements(t *testing.T) {
	var log fireLog
	s := NewScheduler(80*time.Millisecond, log.fire)

	s.Signal(newFakeVideo("a", 10, 100))
	s.Signal(newFakeVideo("b", 10, 100))

	time.Sleep(250 * time.Millisecond)
	assert.Equal(t, []string{"b"}, log.snapshot(), "latest signal supersedes")
}

func TestScheduler_FlushNowCancelsPending(t *testing.T) {
	var log fireLog
	s := NewScheduler(100*time.Millisecond, log.fire)
	v := newFakeVideo("v1", 10, 100)

	s.Signal(v)
	require.True(t, s.Pending())

	s.FlushNow(v)
	assert.Equal(t, []string{"v1"}, log.snapshot(), "flush fires synchronously")
	assert.False(t, s.Pending())

	time.Sleep(250 * time.Millisecond)
	assert.Equal(t, []string{"v1"}, log.snapshot(), "cancelled timer never fires")
}

func TestScheduler_StopDropsPending(t *testing.T) {
	var log fireLog
	s := NewScheduler(50*time.Millisecond, log.fire)

	s.Signal(newFakeVideo("v1", 10, 100))
	s.Stop()

	time.Sleep(150 * time.Millisecond)
	assert.Empty(t, log.snapshot())
}

func TestScheduler_DefaultWindow(t *testing.T) {
	s := NewScheduler(0, func(Element) {})
	assert.Equal(t, DefaultDebounce, s.window)
}
