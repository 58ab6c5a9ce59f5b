// Package tracker folds transport events into record-store upserts. Each
// event kind maps to exactly one upsert shape: which counters it bumps,
// which fields it overwrites, and which it leaves alone.
package tracker

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/runnerr0/aka/internal/storage"
)

// Tracker is the event normalizer. It owns no row state; every write goes
// through the store's atomic upsert.
type Tracker struct {
	store  *storage.SQLiteStore
	roster Roster
	log    zerolog.Logger

	whois *whoisTracker
}

// New creates a Tracker. roster may be nil when no live transport is
// attached; WHO_ON_JOIN refreshes are then skipped.
func New(store *storage.SQLiteStore, roster Roster, log zerolog.Logger) *Tracker {
	return &Tracker{
		store:  store,
		roster: roster,
		log:    log.With().Str("component", "tracker").Logger(),
		whois:  newWhoisTracker(),
	}
}

func strptr(s string) *string { return &s }

// HandleEvent applies one event. A storage failure is fatal to this event
// only; the caller keeps feeding subsequent events.
func (t *Tracker) HandleEvent(ctx context.Context, ev Event) error {
	switch ev.Kind {
	case KindJoin:
		return t.handleJoin(ctx, ev)
	case KindPart:
		return t.handlePart(ctx, ev)
	case KindQuit:
		return t.handleQuit(ctx, ev)
	case KindNick:
		return t.handleNick(ctx, ev)
	case KindMessage:
		return t.handleText(ctx, ev, storage.EventPrivmsg)
	case KindNotice:
		return t.handleText(ctx, ev, storage.EventNotice)
	case KindKick:
		return t.handleKick(ctx, ev)
	case KindRoster:
		return t.handleRoster(ctx, ev)
	case KindModeration:
		return t.handleModeration(ctx, ev)
	default:
		return fmt.Errorf("unknown event kind %d", ev.Kind)
	}
}

func (t *Tracker) handleJoin(ctx context.Context, ev Event) error {
	err := t.store.UpsertUser(ctx, storage.UpsertOp{
		Key:     t.key(ev, ev.Channel),
		Event:   strptr(storage.EventJoin),
		Message: strptr(""), // a join clears the last message
		Account: strptr(ev.Account),
		Gecos:   strptr(ev.Gecos),
		Init:    storage.Counters{Joins: 1},
		Delta:   storage.Counters{Joins: 1},
	})
	if err != nil {
		return err
	}

	// Only our own arrival warrants a roster refresh; firing WHO for every
	// participant's join would flood a busy channel.
	if ev.Self && t.roster != nil {
		if on, serr := t.store.SettingBool(ctx, storage.SettingWhoOnJoin); serr == nil && on {
			if werr := t.roster.RequestWho(ev.Network, ev.Channel); werr != nil {
				t.log.Warn().Err(werr).Str("channel", ev.Channel).Msg("who-on-join request failed")
			}
		}
	}
	return nil
}

func (t *Tracker) handlePart(ctx context.Context, ev Event) error {
	return t.store.UpsertUser(ctx, storage.UpsertOp{
		Key:     t.key(ev, ev.Channel),
		Event:   strptr(storage.EventPart),
		Message: strptr(ev.Reason),
		Init:    storage.Counters{Joins: 1, Parts: 1},
		Delta:   storage.Counters{Parts: 1},
	})
}

// handleQuit records the quit once per room the subject shared with us.
func (t *Tracker) handleQuit(ctx context.Context, ev Event) error {
	for _, ch := range ev.Channels {
		err := t.store.UpsertUser(ctx, storage.UpsertOp{
			Key:     t.key(ev, ch),
			Event:   strptr(storage.EventQuit),
			Message: strptr(ev.Reason),
			Init:    storage.Counters{Joins: 1, Quits: 1},
			Delta:   storage.Counters{Quits: 1},
		})
		if err != nil {
			return err
		}
	}
	return nil
}

// handleNick touches two rows per shared room: the old nickname's row
// points at the new name, the new nickname's row points back at the old.
// The counterpart nicknames land in message and are folded like any other
// identity value so they stay joinable against the nick column.
func (t *Tracker) handleNick(ctx context.Context, ev Event) error {
	for _, ch := range ev.Channels {
		oldKey := t.key(ev, ch)
		oldKey.Nick = ev.Nick
		if err := t.store.UpsertUser(ctx, storage.UpsertOp{
			Key:     oldKey,
			Event:   strptr(storage.EventNicked),
			Message: strptr(strings.ToLower(ev.NewNick)),
		}); err != nil {
			return err
		}

		newKey := t.key(ev, ch)
		newKey.Nick = ev.NewNick
		if err := t.store.UpsertUser(ctx, storage.UpsertOp{
			Key:     newKey,
			Event:   strptr(storage.EventNick),
			Message: strptr(strings.ToLower(ev.Nick)),
		}); err != nil {
			return err
		}
	}
	return nil
}

func (t *Tracker) handleText(ctx context.Context, ev Event, event string) error {
	channel := ev.Channel
	isDM := false
	if channel == "" {
		// Server-originated notices have no ident; drop them.
		if event == storage.EventNotice && ev.Ident == "" {
			t.log.Debug().Str("nick", ev.Nick).Msg("dropping server notice")
			return nil
		}
		channel = storage.ChannelQuery
		isDM = true
	}

	text := ev.Text
	if ev.Action {
		text = "* " + text
	}

	return t.store.UpsertUser(ctx, storage.UpsertOp{
		Key:     t.key(ev, channel),
		Event:   strptr(event),
		Message: strptr(text),
		IsDM:    isDM,
		Init:    storage.Counters{Texts: 1, Joins: 1},
		Delta:   storage.Counters{Texts: 1},
	})
}

// handleKick bumps the kicked identity's row. A target never seen before
// produces a row with empty ident/host; that is permitted. The moderation
// mirror is gated by RECORD_KICK.
func (t *Tracker) handleKick(ctx context.Context, ev Event) error {
	err := t.store.UpsertUser(ctx, storage.UpsertOp{
		Key: storage.UserKey{
			Network: ev.Network,
			Nick:    ev.TargetNick,
			Ident:   ev.TargetIdent,
			Host:    ev.TargetHost,
			Channel: ev.Channel,
		},
		Event:   strptr(storage.EventKicked),
		Message: strptr(ev.Reason),
		Init:    storage.Counters{Kicks: 1},
		Delta:   storage.Counters{Kicks: 1},
	})
	if err != nil {
		return err
	}

	record, err := t.store.SettingBool(ctx, storage.SettingRecordKick)
	if err != nil || !record {
		return err
	}
	return t.store.AppendModeration(ctx, &storage.ModerationRecord{
		Network:     ev.Network,
		Channel:     ev.Channel,
		OpNick:      ev.Nick,
		OpIdent:     ev.Ident,
		OpHost:      ev.Host,
		Action:      storage.ActionKick,
		Engaged:     true,
		Reason:      ev.Reason,
		TargetNick:  ev.TargetNick,
		TargetIdent: ev.TargetIdent,
		TargetHost:  ev.TargetHost,
	})
}

// handleRoster refreshes one row from a WHO reply. A newly discovered
// tuple counts one join; a known one only advances lastseen.
func (t *Tracker) handleRoster(ctx context.Context, ev Event) error {
	op := storage.UpsertOp{
		Key:   t.key(ev, ev.Channel),
		Event: strptr(storage.EventWho),
		Init:  storage.Counters{Joins: 1},
	}
	if ev.Account != "" {
		op.Account = strptr(ev.Account)
	}
	if ev.Gecos != "" {
		op.Gecos = strptr(ev.Gecos)
	}
	return t.store.UpsertUser(ctx, op)
}

// handleModeration appends a ban/quiet/remove toggle to the moderation
// log, gated by RECORD_MODERATION. It never touches the users table.
func (t *Tracker) handleModeration(ctx context.Context, ev Event) error {
	record, err := t.store.SettingBool(ctx, storage.SettingRecordModeration)
	if err != nil || !record {
		return err
	}
	return t.store.AppendModeration(ctx, &storage.ModerationRecord{
		Network:     ev.Network,
		Channel:     ev.Channel,
		OpNick:      ev.Nick,
		OpIdent:     ev.Ident,
		OpHost:      ev.Host,
		Action:      ev.ModAction,
		Engaged:     ev.Engaged,
		Reason:      ev.Reason,
		TargetNick:  ev.TargetNick,
		TargetIdent: ev.TargetIdent,
		TargetHost:  ev.TargetHost,
	})
}

// ProcessScope inserts the current roster rows for scope into the store.
func (t *Tracker) ProcessScope(ctx context.Context, network, scope string) (int, error) {
	if t.roster == nil {
		return 0, fmt.Errorf("no transport session attached")
	}
	events, err := t.roster.Snapshot(network, scope)
	if err != nil {
		return 0, fmt.Errorf("roster snapshot: %w", err)
	}
	for i, ev := range events {
		if err := t.HandleEvent(ctx, ev); err != nil {
			return i, err
		}
	}
	return len(events), nil
}

// RequestWho triggers a roster refresh for scope on the transport side.
func (t *Tracker) RequestWho(network, scope string) error {
	if t.roster == nil {
		return fmt.Errorf("no transport session attached")
	}
	return t.roster.RequestWho(network, scope)
}

func (t *Tracker) key(ev Event, channel string) storage.UserKey {
	return storage.UserKey{
		Network: ev.Network,
		Nick:    ev.Nick,
		Ident:   ev.Ident,
		Host:    ev.Host,
		Channel: channel,
	}
}
