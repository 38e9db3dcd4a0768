package cli

import (
	"context"
	"fmt"

	"github.com/runnerr0/playmark/internal/manage"
)

// Execute implements the go-flags Commander interface for OpenCommand.
func (c *OpenCommand) Execute(args []string) error {
	if c.Index < 0 && c.URL == "" {
		return fmt.Errorf("--index or --url is required for open command")
	}

	e, err := openEnv(c.globals)
	if err != nil {
		return err
	}
	defer e.Close()

	return c.executeWithEnv(context.Background(), e)
}

// executeWithEnv resolves the target URL and hands it to the opener (used by tests).
func (c *OpenCommand) executeWithEnv(ctx context.Context, e *env) error {
	target := c.URL
	if target == "" {
		history, err := e.manager.List(ctx)
		if err != nil {
			return fmt.Errorf("list history: %w", err)
		}
		if c.Index >= len(history) {
			return fmt.Errorf("%w: %d (have %d)", manage.ErrIndexOutOfRange, c.Index, len(history))
		}
		target = history[c.Index].URL
	}

	var opener manage.Opener = manage.BrowserOpener{}
	if c.opener != nil {
		opener = c.opener
	}
	if err := e.manager.Open(ctx, opener, target); err != nil {
		return err
	}

	fmt.Printf("Opened %s\n", target)
	return nil
}
