// Package resolver implements the bounded multi-hop alias expansion that
// maps one search token to the full set of nicknames, idents, and hosts
// believed to belong to the same person.
package resolver

import (
	"context"
	"sort"
	"strings"

	"github.com/runnerr0/aka/internal/storage"
)

// Expansion holds the deduplicated, sorted alias sets for one token.
type Expansion struct {
	Nicks  []string
	Idents []string
	Hosts  []string
}

// Empty reports whether the expansion found nothing.
func (e *Expansion) Empty() bool {
	return len(e.Nicks) == 0 && len(e.Idents) == 0 && len(e.Hosts) == 0
}

// Resolver answers alias-expansion queries against the record store.
type Resolver struct {
	store *storage.SQLiteStore
}

// New creates a Resolver over the given store.
func New(store *storage.SQLiteStore) *Resolver {
	return &Resolver{store: store}
}

// Expand runs the bounded expansion:
//
//	hop 1: glob-match the token to distinct (nick, host) pairs;
//	hop 2: re-query for the full triples whose nick or host equals any
//	       literal found in hop 1;
//	hop 3 (deep only): one further glob query per hop-2 triple, matching
//	       each field against its own column, folded into the result.
//
// Hop 3 is a single extra hop, not a closure: a triple first discovered by
// hop 3 is never itself re-expanded. The hops may observe slightly
// different store states; alias sets only grow, so that is safe.
func (r *Resolver) Expand(ctx context.Context, network string, m storage.Match, deep bool) (*Expansion, error) {
	pairs, err := r.store.DistinctNickHosts(ctx, network, m)
	if err != nil {
		return nil, err
	}
	if len(pairs) == 0 {
		return &Expansion{}, nil
	}

	nickSet := make(map[string]struct{})
	hostSet := make(map[string]struct{})
	for _, p := range pairs {
		nickSet[p.Nick] = struct{}{}
		if p.Host != "" {
			hostSet[p.Host] = struct{}{}
		}
	}

	triples, err := r.store.TriplesByLiterals(ctx, network, keys(nickSet), keys(hostSet))
	if err != nil {
		return nil, err
	}

	nicks := make(map[string]struct{})
	idents := make(map[string]struct{})
	hosts := make(map[string]struct{})
	accumulate := func(t storage.UserTriple) {
		nicks[t.Nick] = struct{}{}
		idents[t.Ident] = struct{}{}
		hosts[t.Host] = struct{}{}
	}

	for _, t := range triples {
		accumulate(t)
		if !deep {
			continue
		}
		// Stored literals may carry glob metacharacters; escape before
		// re-embedding them as patterns.
		inner, err := r.store.TriplesByGlob(ctx, network,
			storage.EscapeGlob(t.Nick),
			storage.EscapeGlob(t.Ident),
			storage.EscapeGlob(t.Host))
		if err != nil {
			return nil, err
		}
		for _, it := range inner {
			accumulate(it)
		}
	}

	return &Expansion{
		Nicks:  sorted(nicks),
		Idents: sorted(idents),
		Hosts:  sorted(hosts),
	}, nil
}

// Channels returns the distinct channel set for a token using the
// field-scoped hop-1 query only, no alias expansion. Sentinel rooms are
// filtered out.
func (r *Resolver) Channels(ctx context.Context, network string, m storage.Match) ([]string, error) {
	chans, err := r.store.DistinctChannels(ctx, network, m)
	if err != nil {
		return nil, err
	}
	out := chans[:0]
	for _, ch := range chans {
		if strings.HasPrefix(ch, "#") {
			out = append(out, ch)
		}
	}
	sort.Strings(out)
	return out, nil
}

func keys(m map[string]struct{}) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}

func sorted(m map[string]struct{}) []string {
	out := keys(m)
	sort.Strings(out)
	return out
}

// chunkSize is how many items go on one display line.
const chunkSize = 100

// ChunkJoin renders a long set as comma-joined lines of at most chunkSize
// items each. Purely presentational.
func ChunkJoin(items []string) []string {
	var lines []string
	for start := 0; start < len(items); start += chunkSize {
		end := start + chunkSize
		if end > len(items) {
			end = len(items)
		}
		lines = append(lines, strings.Join(items[start:end], ", "))
	}
	return lines
}
