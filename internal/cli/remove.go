package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
)

// Execute implements the go-flags Commander interface for RemoveCommand.
func (c *RemoveCommand) Execute(args []string) error {
	if c.Index < 0 {
		return fmt.Errorf("--index is required for remove command")
	}

	e, err := openEnv(c.globals)
	if err != nil {
		return err
	}
	defer e.Close()

	return c.executeWithEnv(context.Background(), e)
}

// executeWithEnv runs the remove logic against a provided env (used by tests).
func (c *RemoveCommand) executeWithEnv(ctx context.Context, e *env) error {
	removed, err := e.manager.Remove(ctx, c.Index)
	if err != nil {
		return err
	}

	if c.globals.JSON {
		out := map[string]interface{}{
			"removed": true,
			"index":   c.Index,
			"url":     removed.URL,
		}
		return json.NewEncoder(os.Stdout).Encode(out)
	}

	fmt.Printf("Removed [%d] %s\n", c.Index, removed.URL)
	fmt.Println("  Tracking stopped for this page.")
	return nil
}
