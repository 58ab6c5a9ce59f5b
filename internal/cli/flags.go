package cli

import (
	"database/sql"

	"github.com/runnerr0/aka/internal/storage"
	"github.com/runnerr0/aka/internal/tracker"
)

// GlobalFlags holds flags available to all subcommands.
type GlobalFlags struct {
	Config  string `long:"config" description:"Path to config file" default:""`
	DB      string `long:"db" description:"Path to database file (overrides config)" default:""`
	Network string `long:"network" short:"n" description:"Network scope for queries"`
	JSON    bool   `long:"json" description:"Output in JSON format"`
	Verbose bool   `long:"verbose" description:"Enable verbose output"`
	Version bool   `long:"version" description:"Show version and exit"`
}

// shared holds injectable dependencies and state common to all commands.
type shared struct {
	globals *GlobalFlags
	version string

	db     *sql.DB               // injectable for testing; nil means open default DB
	store  *storage.SQLiteStore  // set alongside db in tests
	roster tracker.Roster        // transport collaborator, may be nil
}

// AllCommand — run history, channels, seen, and geo for one user.
type AllCommand struct {
	Type string `long:"type" description:"Restrict matching to one field: nick, ident, or host"`

	shared
}

// HistoryCommand — expand a user token into its alias sets.
type HistoryCommand struct {
	Type string `long:"type" description:"Restrict matching to one field: nick, ident, or host"`
	Deep bool   `long:"deep" description:"Perform one additional expansion hop"`

	shared
}

// UsersCommand — show common users between a list of channels.
type UsersCommand struct {
	shared
}

// ChannelsCommand — show common channels between a list of users.
type ChannelsCommand struct {
	Type string `long:"type" description:"Restrict matching to one field: nick, ident, or host"`

	shared
}

// SeenCommand — display the last time a user was seen speaking.
type SeenCommand struct {
	Type string `long:"type" description:"Restrict matching to one field: nick, ident, or host"`

	shared
}

// GeoCommand — geolocate a user, host, or IP.
type GeoCommand struct {
	Type string `long:"type" description:"Restrict matching to one field: nick, ident, or host"`

	shared
}

// WhoCommand — trigger a roster refresh for a scope on the transport side.
type WhoCommand struct {
	shared
}

// ProcessCommand — add all current users in a scope to the database.
type ProcessCommand struct {
	shared
}

// RawQueryCommand — run a raw SQL query and print the results.
type RawQueryCommand struct {
	shared
}

// StatsCommand — print record statistics for the current network.
type StatsCommand struct {
	shared
}

// PurgeCommand — delete records older than N days for one network.
type PurgeCommand struct {
	shared
}

// ConfigCommand — set one boolean setting.
type ConfigCommand struct {
	shared
}

// GetConfigCommand — list all settings.
type GetConfigCommand struct {
	shared
}

// OffensesCommand — show moderation history for a nick or host.
type OffensesCommand struct {
	shared
}

// AboutCommand — display module information.
type AboutCommand struct {
	shared
}
