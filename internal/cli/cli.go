package cli

import (
	"fmt"
	"os"

	goflags "github.com/jessevdk/go-flags"

	"github.com/runnerr0/aka/internal/tracker"
)

// Options carries optional collaborators for commands that need them.
type Options struct {
	// Roster is the live transport session used by who/process. Nil when
	// no transport is attached.
	Roster tracker.Roster
}

// commands holds references to all subcommand structs for inspection/testing.
type commands struct {
	All       *AllCommand
	History   *HistoryCommand
	Users     *UsersCommand
	Channels  *ChannelsCommand
	Seen      *SeenCommand
	Geo       *GeoCommand
	Who       *WhoCommand
	Process   *ProcessCommand
	RawQuery  *RawQueryCommand
	Stats     *StatsCommand
	Purge     *PurgeCommand
	Config    *ConfigCommand
	GetConfig *GetConfigCommand
	Offenses  *OffensesCommand
	About     *AboutCommand
}

// buildParser constructs the go-flags parser with all subcommands registered.
func buildParser(version string, opts Options) (*goflags.Parser, *GlobalFlags, *commands) {
	var globals GlobalFlags

	parser := goflags.NewParser(&globals, goflags.Default)
	parser.Name = "aka"
	parser.LongDescription = "Tracks users across chat networks, allowing tracing and history viewing of nicks, hosts, and channels."

	sh := shared{globals: &globals, version: version, roster: opts.Roster}
	cmds := &commands{
		All:       &AllCommand{shared: sh},
		History:   &HistoryCommand{shared: sh},
		Users:     &UsersCommand{shared: sh},
		Channels:  &ChannelsCommand{shared: sh},
		Seen:      &SeenCommand{shared: sh},
		Geo:       &GeoCommand{shared: sh},
		Who:       &WhoCommand{shared: sh},
		Process:   &ProcessCommand{shared: sh},
		RawQuery:  &RawQueryCommand{shared: sh},
		Stats:     &StatsCommand{shared: sh},
		Purge:     &PurgeCommand{shared: sh},
		Config:    &ConfigCommand{shared: sh},
		GetConfig: &GetConfigCommand{shared: sh},
		Offenses:  &OffensesCommand{shared: sh},
		About:     &AboutCommand{shared: sh},
	}

	parser.AddCommand("all", "Get all information on a user", "Run history, channels, seen, and geo for one user (nick, ident, or host).", cmds.All)
	parser.AddCommand("history", "Show history for a user", "Expand a user token into the full set of associated nicks, idents, and hosts.", cmds.History)
	parser.AddCommand("users", "Show common users between channels", "Show the users common to a list of channels.", cmds.Users)
	parser.AddCommand("channels", "Show common channels between users", "Show the channels common to a list of users (nicks, idents, or hosts, including mixed).", cmds.Channels)
	parser.AddCommand("seen", "Display last time a user was seen speaking", "Display the last time a user was seen speaking, optionally in one channel.", cmds.Seen)
	parser.AddCommand("geo", "Geolocate a user", "Geolocate a user (nick, ident, host, IP, or domain).", cmds.Geo)
	parser.AddCommand("who", "Trigger roster updates for a scope", "Ask the network to re-send roster data for a scope (#channel, network, or all).", cmds.Who)
	parser.AddCommand("process", "Record all current users in a scope", "Add all current users in a scope (#channel, network, or all) to the database.", cmds.Process)
	parser.AddCommand("rawquery", "Run a raw SQL query", "Run a raw SQL query against the store and print the results.", cmds.RawQuery)
	parser.AddCommand("stats", "Print data stats for the current network", "Print record statistics for the current network.", cmds.Stats)
	parser.AddCommand("purge", "Delete old records for a network", "Delete records whose last activity is older than N days. Requires ENABLE_PURGE.", cmds.Purge)
	parser.AddCommand("config", "Set a boolean setting", "Set one boolean setting (key value).", cmds.Config)
	parser.AddCommand("getconfig", "List all settings", "List every setting and its current value.", cmds.GetConfig)
	parser.AddCommand("offenses", "Show moderation history", "Show the moderation history for a nick or host, optionally within one channel.", cmds.Offenses)
	parser.AddCommand("about", "Display information about aka", "Display version and project information.", cmds.About)

	return parser, &globals, cmds
}

// Run is the main entry point for the aka CLI using os.Args.
func Run(version string) error {
	return RunWithOptions(version, nil, Options{})
}

// RunWithArgs parses the given args (or os.Args if nil) and executes the
// matched subcommand.
func RunWithArgs(version string, args []string) error {
	return RunWithOptions(version, args, Options{})
}

// RunWithOptions is RunWithArgs with injectable collaborators.
func RunWithOptions(version string, args []string, opts Options) error {
	// Handle --version and help before the parser (go-flags requires a
	// subcommand, but both are valid without one).
	checkArgs := args
	if checkArgs == nil {
		checkArgs = os.Args[1:]
	}
	for _, arg := range checkArgs {
		if arg == "--version" {
			fmt.Printf("aka %s\n", version)
			return nil
		}
		if arg == "--" {
			break
		}
	}

	parser, _, _ := buildParser(version, opts)

	if len(checkArgs) > 0 && checkArgs[0] == "help" {
		parser.WriteHelp(os.Stdout)
		return nil
	}

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
