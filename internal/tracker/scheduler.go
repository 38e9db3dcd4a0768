package tracker

import (
	"sync"
	"time"
)

// DefaultDebounce is the quiet period before a debounced save fires.
const DefaultDebounce = time.Second

// Element is an observed media element. Playback is read when a save
// fires, not when the signal arrives.
type Element interface {
	ID() string
	Playback() Playback
}

// Scheduler coalesces position signals into at most one save per quiet
// window, using a single timer shared by every element in a session.
// FlushNow saves immediately and supersedes any pending debounced save.
type Scheduler struct {
	window time.Duration
	fire   func(Element)

	mu      sync.Mutex
	timer   *time.Timer
	pending Element
	gen     uint64
}

// NewScheduler creates a Scheduler calling fire after window of quiet.
func NewScheduler(window time.Duration, fire func(Element)) *Scheduler {
	if window <= 0 {
		window = DefaultDebounce
	}
	return &Scheduler{window: window, fire: fire}
}

// Signal records that el's position changed and restarts the window.
func (s *Scheduler) Signal(el Element) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.cancelLocked()
	s.pending = el
	gen := s.gen
	s.timer = time.AfterFunc(s.window, func() { s.expire(gen) })
}

func (s *Scheduler) expire(gen uint64) {
	s.mu.Lock()
	if gen != s.gen || s.pending == nil {
		s.mu.Unlock()
		return
	}
	el := s.pending
	s.pending = nil
	s.timer = nil
	s.gen++
	s.mu.Unlock()

	s.fire(el)
}

// FlushNow cancels any pending save and saves el on the caller's goroutine.
func (s *Scheduler) FlushNow(el Element) {
	s.mu.Lock()
	s.cancelLocked()
	s.mu.Unlock()

	s.fire(el)
}

// Pending reports whether a debounced save is waiting to fire.
func (s *Scheduler) Pending() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pending != nil
}

// Stop cancels any pending save without firing it.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	s.cancelLocked()
	s.mu.Unlock()
}

// cancelLocked must be called with mu held. Bumping gen invalidates a timer
// callback that already started and is waiting on mu.
func (s *Scheduler) cancelLocked() {
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	s.pending = nil
	s.gen++
}
