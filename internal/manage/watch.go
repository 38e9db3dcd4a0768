package manage

import (
	"context"
	"log/slog"

	"github.com/runnerr0/playmark/internal/storage"
)

// RenderFunc receives the full history whenever it changes.
type RenderFunc func(history []storage.HistoryRecord)

// Watch renders the current history once, then again on every committed
// change to it, until ctx is done. In-process writes arrive through the
// store subscription; writes from other processes arrive through w, which
// may be nil.
func (m *Manager) Watch(ctx context.Context, w *storage.Watcher, render RenderFunc) error {
	changes := make(chan storage.Change, 16)
	forward := func(c storage.Change) {
		if c.Key != storage.KeyVideoHistory {
			return
		}
		select {
		case changes <- c:
		case <-ctx.Done():
		}
	}

	unsubscribe := m.store.Subscribe(forward)
	defer unsubscribe()

	history, err := m.List(ctx)
	if err != nil {
		return err
	}
	render(history)

	errc := make(chan error, 1)
	if w != nil {
		go func() { errc <- w.Run(ctx, forward) }()
	}

	for {
		select {
		case <-ctx.Done():
			if w != nil {
				return <-errc
			}
			return nil
		case err := <-errc:
			return err
		case c := <-changes:
			history, err := storage.DecodeHistory(c.Value)
			if err != nil {
				m.logger.Warn("skipping undecodable history", slog.String("error", err.Error()))
				continue
			}
			render(history)
		}
	}
}
