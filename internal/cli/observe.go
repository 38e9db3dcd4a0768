package cli

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"math"
	"os"
	"sync"

	"github.com/runnerr0/playmark/internal/storage"
	"github.com/runnerr0/playmark/internal/tracker"
)

// Event types accepted on stdin by the observe command.
const (
	eventDiscovered = "discovered"
	eventTimeUpdate = "timeupdate"
	eventPause      = "pause"
	eventSeeked     = "seeked"
	eventHidden     = "hidden"
	eventUnload     = "unload"
)

// playbackEvent is one NDJSON line read by observe. A null or missing
// duration means the player has not loaded metadata yet.
type playbackEvent struct {
	Type        string   `json:"type"`
	Element     string   `json:"element"`
	CurrentTime *float64 `json:"currentTime"`
	Duration    *float64 `json:"duration"`
}

// observedVideo is the last reported state of one player element.
type observedVideo struct {
	id string

	mu sync.Mutex
	pb tracker.Playback
}

func (v *observedVideo) ID() string { return v.id }

func (v *observedVideo) Playback() tracker.Playback {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.pb
}

func (v *observedVideo) update(ev playbackEvent) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if ev.CurrentTime != nil {
		v.pb.CurrentTime = *ev.CurrentTime
	}
	if ev.Duration != nil {
		v.pb.Duration = *ev.Duration
	} else if v.pb.Duration == 0 {
		v.pb.Duration = math.NaN()
	}
}

// Execute implements the go-flags Commander interface for ObserveCommand.
func (c *ObserveCommand) Execute(args []string) error {
	if c.URL == "" {
		return fmt.Errorf("--url is required for observe command")
	}

	e, err := openEnv(c.globals)
	if err != nil {
		return err
	}
	defer e.Close()

	return c.executeWithEnv(context.Background(), e)
}

// executeWithEnv runs an observation session against a provided env (used by tests).
func (c *ObserveCommand) executeWithEnv(ctx context.Context, e *env) error {
	page := tracker.Page{
		URL:      c.URL,
		Title:    c.Title,
		Embedded: c.Frame,
		Referrer: c.Referrer,
	}
	sess, err := tracker.NewSession(ctx, e.store, page, tracker.Options{
		Debounce: e.cfg.Tracking.Debounce(),
		Policy: tracker.Policy{
			MinPosition:  float64(e.cfg.Tracking.MinPositionSeconds),
			HistoryLimit: e.cfg.Tracking.HistoryLimit,
		},
		FallbackTitle: e.cfg.Tracking.FrameFallbackTitle,
		Logger:        e.logger,
	})
	if err != nil {
		return err
	}
	defer sess.Close()

	// Writes from other playmark processes reach the gate through the
	// watcher. It must stop before the session closes.
	watchCtx, stopWatch := context.WithCancel(ctx)
	watchDone := make(chan struct{})
	go func() {
		defer close(watchDone)
		w := storage.NewWatcher(e.store, e.cfg.Tracking.WatchInterval(), e.logger)
		if err := w.Run(watchCtx, sess.Gate().Apply); err != nil {
			e.logger.Warn("cross-process watch stopped", slog.String("error", err.Error()))
		}
	}()
	defer func() {
		stopWatch()
		<-watchDone
	}()

	var in io.Reader = os.Stdin
	if c.in != nil {
		in = c.in
	}

	videos := make(map[string]*observedVideo)
	video := func(id string) *observedVideo {
		v, ok := videos[id]
		if !ok {
			v = &observedVideo{id: id}
			videos[id] = v
		}
		return v
	}

	var events, skipped int
	unloaded := false
	scanner := bufio.NewScanner(in)
	for !unloaded && scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var ev playbackEvent
		if err := json.Unmarshal(line, &ev); err != nil {
			skipped++
			e.logger.Warn("skipping malformed event", slog.String("error", err.Error()))
			continue
		}
		events++

		switch ev.Type {
		case eventDiscovered:
			v := video(ev.Element)
			v.update(ev)
			sess.Observe(v)
		case eventTimeUpdate:
			v := video(ev.Element)
			v.update(ev)
			sess.PositionAdvanced(v)
		case eventPause:
			v := video(ev.Element)
			v.update(ev)
			sess.Paused(v)
		case eventSeeked:
			v := video(ev.Element)
			v.update(ev)
			sess.Seeked(v)
		case eventHidden:
			sess.VisibilityLost()
		case eventUnload:
			sess.Unload()
			unloaded = true
		default:
			events--
			skipped++
			e.logger.Warn("skipping unknown event type", slog.String("type", ev.Type))
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("read events: %w", err)
	}

	// End of input is the page going away.
	if !unloaded {
		sess.Unload()
	}

	tracked := "no"
	if sess.Gate().Open() {
		tracked = "yes"
	}

	if c.globals.JSON {
		out := map[string]interface{}{
			"session":  sess.ID(),
			"url":      sess.Identity().URL,
			"events":   events,
			"skipped":  skipped,
			"elements": len(sess.Elements()),
			"tracked":  sess.Gate().Open(),
		}
		return json.NewEncoder(os.Stdout).Encode(out)
	}

	fmt.Printf("Observed %d events from %d element(s) for %s\n", events, len(sess.Elements()), sess.Identity().URL)
	fmt.Printf("  Tracked: %s\n", tracked)
	if skipped > 0 {
		fmt.Printf("  Skipped: %d\n", skipped)
	}
	return nil
}
