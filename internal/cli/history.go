package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/runnerr0/playmark/internal/manage"
	"github.com/runnerr0/playmark/internal/storage"
)

var (
	headerStyle   = lipgloss.NewStyle().Bold(true)
	hostnameStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	titleStyle    = lipgloss.NewStyle().Bold(true)
	indexStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("6"))
)

// historyItemJSON is the JSON output structure for one history entry.
type historyItemJSON struct {
	Index         int    `json:"index"`
	URL           string `json:"url"`
	Title         string `json:"title"`
	Hostname      string `json:"hostname"`
	CurrentTime   int64  `json:"current_time"`
	Duration      int64  `json:"duration"`
	FormattedTime string `json:"formatted_time"`
	WrittenAt     string `json:"written_at"`
}

// Execute implements the go-flags Commander interface for HistoryCommand.
func (c *HistoryCommand) Execute(args []string) error {
	e, err := openEnv(c.globals)
	if err != nil {
		return err
	}
	defer e.Close()

	if !c.Watch {
		return c.executeWithEnv(context.Background(), e)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return c.watch(ctx, e)
}

// executeWithEnv prints the history once (used by tests).
func (c *HistoryCommand) executeWithEnv(ctx context.Context, e *env) error {
	history, err := e.manager.List(ctx)
	if err != nil {
		return fmt.Errorf("list history: %w", err)
	}
	return c.render(history, time.Now())
}

func (c *HistoryCommand) watch(ctx context.Context, e *env) error {
	w := storage.NewWatcher(e.store, e.cfg.Tracking.WatchInterval(), e.logger)
	var renderErr error
	err := e.manager.Watch(ctx, w, func(history []storage.HistoryRecord) {
		if renderErr == nil {
			renderErr = c.render(history, time.Now())
		}
	})
	if err != nil {
		return err
	}
	return renderErr
}

func (c *HistoryCommand) render(history []storage.HistoryRecord, now time.Time) error {
	if c.globals != nil && c.globals.JSON {
		items := make([]historyItemJSON, len(history))
		for i, r := range history {
			items[i] = historyItemJSON{
				Index:         i,
				URL:           r.URL,
				Title:         r.Title,
				Hostname:      r.Hostname,
				CurrentTime:   r.CurrentTime,
				Duration:      r.Duration,
				FormattedTime: r.FormattedTime,
				WrittenAt:     r.WrittenAt().UTC().Format(time.RFC3339),
			}
		}
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(items)
	}

	fmt.Println(headerStyle.Render(manage.CountLabel(len(history))))
	if len(history) == 0 {
		fmt.Println()
		fmt.Println("No videos tracked yet.")
		fmt.Println(`Run "playmark track --url <page>" to begin!`)
		return nil
	}

	for i, r := range history {
		host := r.Hostname
		if host == "" {
			host = "-"
		}
		fmt.Println()
		fmt.Printf("%s %s\n", indexStyle.Render(fmt.Sprintf("[%d]", i)), hostnameStyle.Render(host))
		fmt.Printf("    %s\n", titleStyle.Render(r.Title))
		fmt.Printf("    %s  ·  %s\n", r.FormattedTime, manage.RelativeTime(r.WrittenAt(), now))
		fmt.Printf("    %s\n", r.URL)
	}
	return nil
}
