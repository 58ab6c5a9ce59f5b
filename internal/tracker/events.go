package tracker

// Kind discriminates inbound events delivered by the transport layer.
type Kind int

const (
	KindJoin Kind = iota
	KindPart
	KindQuit
	KindNick
	KindMessage // channel or private text
	KindNotice  // channel or private notice
	KindKick
	KindRoster     // one WHO roster reply line
	KindModeration // ban/quiet/remove toggle
)

// Event is a normalized transport event. Field use varies by kind:
//
//   - Join/Part/Quit/Message/Notice/Roster: Nick/Ident/Host identify the
//     subject. Channel is empty for private messages and notices. Quit
//     carries Channels, the rooms the subject shared with us. Self marks a
//     join by the operator themself.
//   - Nick: Nick is the old nickname, NewNick the new one, Channels the
//     shared rooms.
//   - Kick: Nick/Ident/Host are the acting operator, Target* the kicked
//     participant (Target ident/host may be unknown).
//   - Moderation: Nick/Ident/Host are the operator, Target* the subject,
//     Action one of ban/quiet/remove, Engaged whether it was set or lifted.
type Event struct {
	Kind    Kind
	Network string

	Nick  string
	Ident string
	Host  string

	Channel  string
	Channels []string
	Self     bool

	NewNick string
	Account string
	Gecos   string

	Text   string
	Action bool // "/me" style action text

	TargetNick  string
	TargetIdent string
	TargetHost  string
	ModAction   string
	Engaged     bool
	Reason      string
}

// Roster is the transport collaborator that can enumerate and refresh live
// channel rosters. Scope is a channel name, "network", or "all".
type Roster interface {
	// RequestWho asks the network to re-send roster data for scope.
	RequestWho(network, scope string) error
	// Snapshot returns the currently known roster rows for scope as
	// KindRoster events.
	Snapshot(network, scope string) ([]Event, error)
}
