package tracker

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/runnerr0/playmark/internal/storage"
)

// DefaultMinPosition is the playback position, in seconds, below which an
// observation never overwrites history. A freshly loading player reports a
// position near zero and must not clobber a session that already advanced.
const DefaultMinPosition = 2.0

// Playback is a point-in-time reading of a media element.
type Playback struct {
	CurrentTime float64
	Duration    float64
}

// Observation is a playback reading attributed to a page identity.
type Observation struct {
	Identity
	Playback
}

// Skip explains why an observation was not written.
type Skip int

const (
	SkipNone Skip = iota
	SkipGateClosed
	SkipNotReady
	SkipBelowThreshold
)

func (s Skip) String() string {
	switch s {
	case SkipNone:
		return "none"
	case SkipGateClosed:
		return "gate_closed"
	case SkipNotReady:
		return "not_ready"
	case SkipBelowThreshold:
		return "below_threshold"
	default:
		return fmt.Sprintf("skip(%d)", int(s))
	}
}

// Policy holds the reconciliation limits.
type Policy struct {
	MinPosition  float64
	HistoryLimit int
}

// DefaultPolicy returns the standard two-second threshold and 100-entry cap.
func DefaultPolicy() Policy {
	return Policy{MinPosition: DefaultMinPosition, HistoryLimit: DefaultHistoryLimit}
}

// Check applies the write guards in order.
func (p Policy) Check(obs Observation, gateOpen bool) Skip {
	if !gateOpen {
		return SkipGateClosed
	}
	ct, d := obs.CurrentTime, obs.Duration
	if d == 0 || math.IsNaN(d) || d < 0 || math.IsNaN(ct) || math.IsInf(ct, 0) {
		return SkipNotReady
	}
	if ct < p.MinPosition {
		return SkipBelowThreshold
	}
	return SkipNone
}

// NewRecord builds the candidate record for obs stamped at now.
func NewRecord(obs Observation, now time.Time) storage.HistoryRecord {
	ct := truncSeconds(obs.CurrentTime)
	return storage.HistoryRecord{
		URL:           obs.URL,
		Title:         obs.Title,
		CurrentTime:   ct,
		Duration:      truncSeconds(obs.Duration),
		FormattedTime: FormatTime(ct),
		Timestamp:     now.UnixMilli(),
		Hostname:      obs.Hostname,
	}
}

// Reconcile returns the history that results from obs, or the reason the
// observation is dropped. history is not modified.
func Reconcile(history []storage.HistoryRecord, obs Observation, gateOpen bool, p Policy, now time.Time) ([]storage.HistoryRecord, Skip) {
	if skip := p.Check(obs, gateOpen); skip != SkipNone {
		return history, skip
	}
	return Upsert(history, NewRecord(obs, now), p.HistoryLimit), SkipNone
}

// Reconciler persists observations through a storage.Store.
type Reconciler struct {
	store  storage.Store
	policy Policy
	now    func() time.Time
	logger *slog.Logger
}

// NewReconciler creates a Reconciler. A nil now uses time.Now and a nil
// logger uses slog.Default().
func NewReconciler(store storage.Store, policy Policy, now func() time.Time, logger *slog.Logger) *Reconciler {
	if now == nil {
		now = time.Now
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Reconciler{
		store:  store,
		policy: policy,
		now:    now,
		logger: logger.With(slog.String("component", "reconciler")),
	}
}

// Persist reconciles obs against the stored history and writes the whole
// list back in one transaction. It reports whether a write happened.
// gateOpen is the caller's cached answer; the tracked state read inside the
// transaction has the final say, so a page untracked by another process
// since the last refresh is not written.
func (r *Reconciler) Persist(ctx context.Context, obs Observation, gateOpen bool) (bool, error) {
	if skip := r.policy.Check(obs, gateOpen); skip != SkipNone {
		r.logger.Debug("observation skipped",
			slog.String("url", obs.URL),
			slog.String("reason", skip.String()),
		)
		return false, nil
	}

	var written bool
	skip := SkipNone
	keys := []string{storage.KeyTrackedURLs, storage.KeyVideoHistory}
	err := r.store.Update(ctx, keys, func(cur storage.Values) (storage.Values, error) {
		st, err := storage.DecodeState(cur)
		if err != nil {
			return nil, err
		}
		tracked := IsTracked(obs.URL, st.TrackedURLs, st.History)
		var next []storage.HistoryRecord
		next, skip = Reconcile(st.History, obs, tracked, r.policy, r.now())
		if skip != SkipNone {
			return nil, nil
		}
		raw, err := storage.EncodeHistory(next)
		if err != nil {
			return nil, err
		}
		written = true
		return storage.Values{storage.KeyVideoHistory: raw}, nil
	})
	if err != nil {
		return false, fmt.Errorf("persist playback for %s: %w", obs.URL, err)
	}

	if skip != SkipNone {
		r.logger.Debug("observation skipped",
			slog.String("url", obs.URL),
			slog.String("reason", skip.String()),
		)
	}
	if written {
		r.logger.Debug("playback saved",
			slog.String("url", obs.URL),
			slog.Int64("current_time", truncSeconds(obs.CurrentTime)),
			slog.Int64("duration", truncSeconds(obs.Duration)),
		)
	}
	return written, nil
}
