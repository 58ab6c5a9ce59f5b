// Package query layers the read-only aggregate operations (seen, stats,
// shared channels/users, moderation history) on top of the record store.
package query

import (
	"context"
	"sort"
	"strings"

	"github.com/runnerr0/aka/internal/resolver"
	"github.com/runnerr0/aka/internal/storage"
)

// Engine answers aggregate queries. All operations tolerate zero matching
// rows: they return empty results, never errors.
type Engine struct {
	store    *storage.SQLiteStore
	resolver *resolver.Resolver
}

// New creates an Engine.
func New(store *storage.SQLiteStore, res *resolver.Resolver) *Engine {
	return &Engine{store: store, resolver: res}
}

// Seen returns the most recent message-bearing row for the token, or nil
// when the user has never been seen speaking (in the channel, if given).
func (e *Engine) Seen(ctx context.Context, network string, m storage.Match, channel string) (*storage.UserRecord, error) {
	return e.store.LastSpoke(ctx, network, m, channel)
}

// Stats returns per-network aggregate counts.
func (e *Engine) Stats(ctx context.Context, network string) (*storage.NetworkStats, error) {
	return e.store.Stats(ctx, network)
}

// SharedChannels intersects the channel sets of every token. Each token's
// set comes from the field-scoped query, not full alias expansion.
func (e *Engine) SharedChannels(ctx context.Context, network string, matches []storage.Match) ([]string, error) {
	if len(matches) == 0 {
		return nil, nil
	}

	shared := make(map[string]struct{})
	for i, m := range matches {
		chans, err := e.resolver.Channels(ctx, network, m)
		if err != nil {
			return nil, err
		}
		set := make(map[string]struct{}, len(chans))
		for _, ch := range chans {
			set[ch] = struct{}{}
		}
		if i == 0 {
			shared = set
			continue
		}
		for ch := range shared {
			if _, ok := set[ch]; !ok {
				delete(shared, ch)
			}
		}
	}

	out := make([]string, 0, len(shared))
	for ch := range shared {
		out = append(out, ch)
	}
	sort.Strings(out)
	return out, nil
}

// SharedUsers intersects, independently, the nick, ident, and host sets of
// every channel. The three intersections are separate: a nick shared by
// two rooms counts even when its ident/host rows differ.
func (e *Engine) SharedUsers(ctx context.Context, network string, channels []string) (*resolver.Expansion, error) {
	if len(channels) == 0 {
		return &resolver.Expansion{}, nil
	}

	var nicks, idents, hosts map[string]struct{}
	for i, ch := range channels {
		triples, err := e.store.TriplesByChannel(ctx, network, ch)
		if err != nil {
			return nil, err
		}
		n := make(map[string]struct{})
		id := make(map[string]struct{})
		h := make(map[string]struct{})
		for _, t := range triples {
			n[t.Nick] = struct{}{}
			id[t.Ident] = struct{}{}
			h[t.Host] = struct{}{}
		}
		if i == 0 {
			nicks, idents, hosts = n, id, h
			continue
		}
		intersect(nicks, n)
		intersect(idents, id)
		intersect(hosts, h)
	}

	return &resolver.Expansion{
		Nicks:  sortedKeys(nicks),
		Idents: sortedKeys(idents),
		Hosts:  sortedKeys(hosts),
	}, nil
}

// Offense subject types.
const (
	SubjectNick = "nick"
	SubjectHost = "host"
)

// Offenses returns the moderation history touching a subject, ordered by
// time. Nick-scoped queries first resolve every host the nickname has been
// seen under, then match the offender nick (plain, "nick!"-mask, and
// "nick"-prefixed mask forms, so wildcard bans like "nick*!*@*" are found)
// or any resolved host. Host-scoped queries match the offender host
// directly.
func (e *Engine) Offenses(ctx context.Context, network, subjectType, subject, channel string) ([]storage.ModerationRecord, error) {
	subject = strings.ToLower(subject)
	q := storage.ModerationQuery{Network: network, Channel: channel}

	switch subjectType {
	case SubjectHost:
		q.TargetHosts = []string{subject}
	default:
		lit := storage.EscapeGlob(subject)
		q.TargetNickGlobs = []string{lit, lit + "!*", lit + "*"}
		hosts, err := e.store.HostsForNick(ctx, network, subject)
		if err != nil {
			return nil, err
		}
		q.TargetHosts = hosts
	}

	return e.store.SearchModeration(ctx, q)
}

// Describe renders a moderation entry's action for display: ban/quiet
// toggles become banned/unbanned/quieted/unquieted, kicks and removes
// carry their reason.
func Describe(rec storage.ModerationRecord) string {
	switch rec.Action {
	case storage.ActionBan:
		if rec.Engaged {
			return "banned"
		}
		return "unbanned"
	case storage.ActionQuiet:
		if rec.Engaged {
			return "quieted"
		}
		return "unquieted"
	default:
		if rec.Reason != "" {
			return rec.Action + " (" + rec.Reason + ")"
		}
		return rec.Action
	}
}

func intersect(dst, src map[string]struct{}) {
	for k := range dst {
		if _, ok := src[k]; !ok {
			delete(dst, k)
		}
	}
}

func sortedKeys(m map[string]struct{}) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
