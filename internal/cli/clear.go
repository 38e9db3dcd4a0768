package cli

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
)

// Execute implements the go-flags Commander interface for ClearCommand.
func (c *ClearCommand) Execute(args []string) error {
	if !c.All {
		return fmt.Errorf("clear requires --all flag for safety")
	}
	if err := c.confirm(); err != nil {
		return err
	}

	e, err := openEnv(c.globals)
	if err != nil {
		return err
	}
	defer e.Close()

	return c.executeWithEnv(context.Background(), e)
}

// confirm prompts for the confirmation word unless --force is set.
func (c *ClearCommand) confirm() error {
	if c.Force {
		return nil
	}

	fmt.Println("⚠ WARNING: This will permanently delete ALL playmark data.")
	fmt.Println("  - All video history")
	fmt.Println("  - All tracked pages (tracking stops everywhere)")
	fmt.Println()
	fmt.Println("This action cannot be undone.")
	fmt.Println()
	fmt.Print(`Type "CLEAR" to confirm: `)

	var in io.Reader = os.Stdin
	if c.in != nil {
		in = c.in
	}
	scanner := bufio.NewScanner(in)
	if !scanner.Scan() {
		return fmt.Errorf("aborted: no input received")
	}
	if strings.TrimSpace(scanner.Text()) != "CLEAR" {
		return fmt.Errorf("aborted: confirmation text did not match")
	}
	return nil
}

// executeWithEnv clears everything in the provided env (used by tests).
func (c *ClearCommand) executeWithEnv(ctx context.Context, e *env) error {
	if err := e.manager.ClearAll(ctx); err != nil {
		return err
	}

	if c.globals.JSON {
		out := map[string]interface{}{
			"cleared": true,
			"message": "all history and tracked pages deleted",
		}
		return json.NewEncoder(os.Stdout).Encode(out)
	}

	fmt.Println("Cleared all history. No pages are tracked.")
	return nil
}
