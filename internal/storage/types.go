package storage

import (
	"strings"
	"time"
)

// Event names stored in the users table. These are the wire-level names
// used by the IRC side, not display strings.
const (
	EventJoin    = "join"
	EventPart    = "part"
	EventQuit    = "quit"
	EventNick    = "nick"   // row under the new nickname
	EventNicked  = "nicked" // row under the old nickname
	EventPrivmsg = "privmsg"
	EventNotice  = "notice"
	EventKicked  = "kicked"
	EventWho     = "who"
	EventWhois   = "whois"
	EventWhowas  = "whowas"
)

// Sentinel channel names for rows that did not happen in a real channel.
const (
	ChannelQuery  = "query"
	ChannelWhois  = "whois"
	ChannelWhowas = "whowas"
)

// Moderation action kinds.
const (
	ActionBan    = "ban"
	ActionQuiet  = "quiet"
	ActionKick   = "kick"
	ActionRemove = "remove"
)

// Identity-field names accepted by token matching.
const (
	FieldNick  = "nick"
	FieldIdent = "ident"
	FieldHost  = "host"
)

// UserKey is the unique identity tuple of one users row. All fields are
// case-folded to lowercase before storage or comparison.
type UserKey struct {
	Network string
	Nick    string
	Ident   string
	Host    string
	Channel string
}

// Counters are the per-row activity counters. Values are always >= 0.
type Counters struct {
	Texts int64
	Joins int64
	Parts int64
	Quits int64
	Kicks int64
}

// UpsertOp describes a single atomic insert-or-update against the users
// table. Nil pointer fields are preserved on existing rows; non-nil fields
// overwrite. Init counters seed a newly created row, Delta counters are
// added to an existing one.
type UpsertOp struct {
	Key     UserKey
	Event   *string
	Message *string
	Account *string
	Gecos   *string
	IsDM    bool
	Init    Counters
	Delta   Counters
	Seen    time.Time // zero means now
}

// UserRecord is one row of the users table.
type UserRecord struct {
	UserKey
	Event     string
	Message   string
	FirstSeen time.Time
	LastSeen  time.Time
	Counters
	IsDM    bool
	Account string
	Gecos   string
}

// UserTriple is a distinct (nick, ident, host) combination.
type UserTriple struct {
	Nick  string
	Ident string
	Host  string
}

// ModerationRecord is one append-only moderation log entry.
type ModerationRecord struct {
	ID          int64
	Network     string
	Channel     string
	OpNick      string
	OpIdent     string
	OpHost      string
	Action      string
	Engaged     bool // action set (banned/quieted) vs lifted
	Reason      string
	TargetNick  string
	TargetIdent string
	TargetHost  string
	Time        time.Time
}

// NetworkStats holds per-network aggregate counts.
type NetworkStats struct {
	Nicks     int64
	Idents    int64
	Hosts     int64
	Channels  int64
	Records   int64
	SizeBytes int64
}

// Match selects rows by a glob token against one identity field, or
// against nick OR ident OR host when Field is empty. The token may contain
// * and ? wildcards and is matched case-insensitively.
type Match struct {
	Field string
	Token string
}

// clause renders the match as a parameterized WHERE fragment.
func (m Match) clause() (string, []interface{}) {
	pat := EscapeGlob(strings.ToLower(m.Token))
	switch m.Field {
	case FieldNick, FieldIdent, FieldHost:
		return m.Field + " GLOB ?", []interface{}{pat}
	default:
		return "(nick GLOB ? OR ident GLOB ? OR host GLOB ?)",
			[]interface{}{pat, pat, pat}
	}
}
