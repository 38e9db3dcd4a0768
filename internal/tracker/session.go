package tracker

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/runnerr0/playmark/internal/storage"
)

// Options configures a Session. Zero values take the package defaults.
type Options struct {
	Debounce      time.Duration
	Policy        Policy
	FallbackTitle string
	Now           func() time.Time
	Logger        *slog.Logger
}

// Session is the observation context for one page: the registry of
// observed elements plus the gate, scheduler and reconciler serving them.
type Session struct {
	id       string
	identity Identity
	gate     *Gate
	sched    *Scheduler
	rec      *Reconciler
	logger   *slog.Logger

	mu       sync.Mutex
	order    []string
	elements map[string]Element
}

// NewSession resolves the page identity, opens the gate for it and wires
// the scheduler to the reconciler.
func NewSession(ctx context.Context, store storage.Store, page Page, opts Options) (*Session, error) {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.FallbackTitle == "" {
		opts.FallbackTitle = "Video"
	}
	if opts.Policy == (Policy{}) {
		opts.Policy = DefaultPolicy()
	}

	id := uuid.NewString()
	logger := opts.Logger.With(slog.String("session", id))
	identity := ResolveIdentity(page, opts.FallbackTitle)

	gate, err := NewGate(ctx, store, identity.URL, logger)
	if err != nil {
		return nil, fmt.Errorf("new session: %w", err)
	}

	s := &Session{
		id:       id,
		identity: identity,
		gate:     gate,
		rec:      NewReconciler(store, opts.Policy, opts.Now, logger),
		logger:   logger.With(slog.String("component", "session")),
		elements: make(map[string]Element),
	}
	s.sched = NewScheduler(opts.Debounce, s.save)

	s.logger.Info("session started",
		slog.String("url", identity.URL),
		slog.Bool("tracked", gate.Open()),
	)
	return s, nil
}

// ID returns the session's correlation id.
func (s *Session) ID() string { return s.id }

// Identity returns the resolved page identity.
func (s *Session) Identity() Identity { return s.identity }

// Gate returns the session's tracking gate.
func (s *Session) Gate() *Gate { return s.gate }

// Observe registers el. It reports false if el was already observed.
func (s *Session) Observe(el Element) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.elements[el.ID()]; ok {
		return false
	}
	s.elements[el.ID()] = el
	s.order = append(s.order, el.ID())
	s.logger.Debug("monitoring element", slog.String("element", el.ID()))
	return true
}

// Elements returns the observed elements in discovery order.
func (s *Session) Elements() []Element {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Element, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.elements[id])
	}
	return out
}

// PositionAdvanced schedules a debounced save for el.
func (s *Session) PositionAdvanced(el Element) {
	s.Observe(el)
	if el.Playback().CurrentTime > 0 && s.gate.Open() {
		s.sched.Signal(el)
	}
}

// Paused saves el immediately.
func (s *Session) Paused(el Element) {
	s.Observe(el)
	if s.gate.Open() {
		s.sched.FlushNow(el)
	}
}

// Seeked saves el immediately.
func (s *Session) Seeked(el Element) {
	s.Observe(el)
	if s.gate.Open() {
		s.sched.FlushNow(el)
	}
}

// VisibilityLost saves every element that has started playing.
func (s *Session) VisibilityLost() {
	s.flushAll("visibility_lost")
}

// Unload saves every element that has started playing.
func (s *Session) Unload() {
	s.flushAll("unload")
}

func (s *Session) flushAll(reason string) {
	if !s.gate.Open() {
		return
	}
	s.logger.Debug("flushing elements", slog.String("reason", reason))
	for _, el := range s.Elements() {
		if el.Playback().CurrentTime > 0 {
			s.sched.FlushNow(el)
		}
	}
}

// save is the scheduler's fire function. Storage failures are logged and
// dropped; the next signal retries naturally.
func (s *Session) save(el Element) {
	obs := Observation{Identity: s.identity, Playback: el.Playback()}
	if _, err := s.rec.Persist(context.Background(), obs, s.gate.Open()); err != nil {
		s.logger.Warn("save failed",
			slog.String("element", el.ID()),
			slog.String("error", err.Error()),
		)
	}
}

// Close cancels any pending save and detaches the gate from the store.
func (s *Session) Close() {
	s.sched.Stop()
	s.gate.Close()
}
