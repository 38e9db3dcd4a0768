package cli

import (
	"fmt"
	"os"

	goflags "github.com/jessevdk/go-flags"
)

// commands holds references to all subcommand structs for inspection/testing.
type commands struct {
	History *HistoryCommand
	Track   *TrackCommand
	Remove  *RemoveCommand
	Clear   *ClearCommand
	Open    *OpenCommand
	Status  *StatusCommand
	Observe *ObserveCommand
}

// buildParser constructs the go-flags parser with all subcommands registered.
func buildParser(version string) (*goflags.Parser, *GlobalFlags, *commands) {
	var globals GlobalFlags

	parser := goflags.NewParser(&globals, goflags.Default)
	parser.Name = "playmark"
	parser.LongDescription = "Remember where you stopped watching: per-page video playback history."

	cmds := &commands{
		History: &HistoryCommand{globals: &globals, version: version},
		Track:   &TrackCommand{globals: &globals, version: version},
		Remove:  &RemoveCommand{globals: &globals, version: version},
		Clear:   &ClearCommand{globals: &globals, version: version},
		Open:    &OpenCommand{globals: &globals, version: version},
		Status:  &StatusCommand{globals: &globals, version: version},
		Observe: &ObserveCommand{globals: &globals, version: version},
	}

	parser.AddCommand("history", "List tracked videos", "List tracked videos with their last position, most recent first.", cmds.History)
	parser.AddCommand("track", "Start tracking a page", "Start tracking video playback on a page.", cmds.Track)
	parser.AddCommand("remove", "Remove one history entry", "Remove one history entry and stop tracking its page.", cmds.Remove)
	parser.AddCommand("clear", "Delete ALL history", "Delete all history and tracked pages. Destructive operation with safety prompt.", cmds.Clear)
	parser.AddCommand("open", "Open a history entry", "Open a history entry in the default browser.", cmds.Open)
	parser.AddCommand("status", "Show tracking statistics", "Show database location, size and tracking statistics.", cmds.Status)
	parser.AddCommand("observe", "Record playback events from stdin", "Read newline-delimited playback events from stdin and record progress for a page.", cmds.Observe)

	return parser, &globals, cmds
}

// Run is the main entry point for the playmark CLI using os.Args.
func Run(version string) error {
	return RunWithArgs(version, nil)
}

// RunWithArgs parses the given args (or os.Args if nil) and executes the matched subcommand.
func RunWithArgs(version string, args []string) error {
	// Handle --version before parser (go-flags requires a subcommand, but
	// --version is valid without one).
	checkArgs := args
	if checkArgs == nil {
		checkArgs = os.Args[1:]
	}
	for _, arg := range checkArgs {
		if arg == "--version" {
			fmt.Printf("playmark %s\n", version)
			return nil
		}
		if arg == "--" {
			break
		}
	}

	parser, _, _ := buildParser(version)

	var err error
	if args != nil {
		_, err = parser.ParseArgs(args)
	} else {
		_, err = parser.Parse()
	}

	if err != nil {
		if flagsErr, ok := err.(*goflags.Error); ok {
			if flagsErr.Type == goflags.ErrHelp {
				return nil
			}
		}
		return err
	}

	return nil
}
