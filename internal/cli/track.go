package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"os"

	"github.com/runnerr0/playmark/internal/manage"
)

// Execute implements the go-flags Commander interface for TrackCommand.
func (c *TrackCommand) Execute(args []string) error {
	if c.URL == "" {
		return fmt.Errorf("--url is required for track command")
	}

	e, err := openEnv(c.globals)
	if err != nil {
		return err
	}
	defer e.Close()

	return c.executeWithEnv(context.Background(), e)
}

// executeWithEnv runs the track logic against a provided env (used by tests).
func (c *TrackCommand) executeWithEnv(ctx context.Context, e *env) error {
	parsed, err := url.ParseRequestURI(c.URL)
	if err != nil || parsed.Host == "" {
		return fmt.Errorf("invalid URL: %s", c.URL)
	}

	started, err := e.manager.StartTracking(ctx, manage.Page{URL: c.URL, Title: c.Title})
	if err != nil {
		return err
	}

	if c.globals.JSON {
		out := map[string]interface{}{
			"url":     c.URL,
			"started": started,
		}
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	}

	if started {
		fmt.Printf("Tracking started: %s\n", c.URL)
	} else {
		fmt.Printf("Already tracking: %s\n", c.URL)
	}
	return nil
}
