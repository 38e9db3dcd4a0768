package manage

import (
	"context"
	"fmt"
	"os/exec"
	"runtime"
)

// Opener asks the host to open a URL, typically in a new browser tab.
type Opener interface {
	Open(ctx context.Context, url string) error
}

// OpenerFunc adapts a function to Opener.
type OpenerFunc func(ctx context.Context, url string) error

func (f OpenerFunc) Open(ctx context.Context, url string) error { return f(ctx, url) }

// BrowserOpener launches the platform's default URL handler.
type BrowserOpener struct {
	// GOOS overrides runtime.GOOS; used by tests.
	GOOS string
}

func (b BrowserOpener) command(url string) (string, []string, error) {
	goos := b.GOOS
	if goos == "" {
		goos = runtime.GOOS
	}
	switch goos {
	case "darwin":
		return "open", []string{url}, nil
	case "windows":
		return "rundll32", []string{"url.dll,FileProtocolHandler", url}, nil
	case "linux", "freebsd", "openbsd", "netbsd":
		return "xdg-open", []string{url}, nil
	default:
		return "", nil, fmt.Errorf("no browser launcher for %s", goos)
	}
}

// Open starts the launcher and does not wait for the browser to exit.
func (b BrowserOpener) Open(ctx context.Context, url string) error {
	name, args, err := b.command(url)
	if err != nil {
		return err
	}
	cmd := exec.CommandContext(ctx, name, args...)
	if err := cmd.Start(); err != nil {
		return err
	}
	go cmd.Wait() //nolint:errcheck
	return nil
}
