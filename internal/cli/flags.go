package cli

import (
	"io"

	"github.com/runnerr0/playmark/internal/manage"
)

// GlobalFlags holds flags available to all subcommands.
type GlobalFlags struct {
	Config  string `long:"config" description:"Path to config file" default:""`
	DBPath  string `long:"db-path" description:"Override the SQLite database path"`
	JSON    bool   `long:"json" description:"Output in JSON format"`
	Verbose bool   `long:"verbose" description:"Enable debug logging"`
	Version bool   `long:"version" description:"Show version and exit"`
}

// HistoryCommand lists tracked videos, most recent first.
type HistoryCommand struct {
	Watch bool `long:"watch" description:"Keep running and re-render on every change"`

	globals *GlobalFlags
	version string
}

// TrackCommand starts tracking a page.
type TrackCommand struct {
	URL   string `long:"url" description:"Page URL to track (required)"`
	Title string `long:"title" description:"Page title shown in history"`

	globals *GlobalFlags
	version string
}

// RemoveCommand deletes one history entry and stops tracking its page.
type RemoveCommand struct {
	Index int `long:"index" description:"Zero-based history index (required)" default:"-1"`

	globals *GlobalFlags
	version string
}

// ClearCommand deletes ALL history and tracked pages with safety confirmation.
type ClearCommand struct {
	All   bool `long:"all" description:"Required flag to confirm clear intent"`
	Force bool `long:"force" description:"Skip safety confirmation prompt"`

	globals *GlobalFlags
	version string
	in      io.Reader // injectable for testing; nil means os.Stdin
}

// OpenCommand opens a history entry in the browser.
type OpenCommand struct {
	Index int    `long:"index" description:"Zero-based history index" default:"-1"`
	URL   string `long:"url" description:"URL to open directly"`

	globals *GlobalFlags
	version string
	opener  manage.Opener // injectable for testing; nil means the platform browser
}

// StatusCommand shows database and tracking summary.
type StatusCommand struct {
	globals *GlobalFlags
	version string
}

// ObserveCommand feeds playback events from stdin into a tracking session.
type ObserveCommand struct {
	URL      string `long:"url" description:"URL of the page hosting the player (required)"`
	Title    string `long:"title" description:"Title of the page hosting the player"`
	Frame    bool   `long:"frame" description:"The player runs inside an embedded frame"`
	Referrer string `long:"referrer" description:"Enclosing page URL when running in a frame"`

	globals *GlobalFlags
	version string
	in      io.Reader // injectable for testing; nil means os.Stdin
}
