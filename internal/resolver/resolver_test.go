package resolver

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"testing"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/runnerr0/aka/internal/storage"
)

func newTestResolver(t *testing.T) (*Resolver, *storage.SQLiteStore) {
	t.Helper()
	db, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })

	require.NoError(t, storage.NewMigrationRunner(db).Run())
	store, err := storage.NewSQLiteStore(db, "")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	require.NoError(t, store.SeedSettings(context.Background()))

	return New(store), store
}

func seed(t *testing.T, store *storage.SQLiteStore, nick, ident, host, channel string) {
	t.Helper()
	event := storage.EventJoin
	require.NoError(t, store.UpsertUser(context.Background(), storage.UpsertOp{
		Key:   storage.UserKey{Network: "x", Nick: nick, Ident: ident, Host: host, Channel: channel},
		Event: &event,
		Init:  storage.Counters{Joins: 1},
		Delta: storage.Counters{Joins: 1},
	}))
}

func TestExpand_LinksAliasesThroughSharedHost(t *testing.T) {
	r, store := newTestResolver(t)
	seed(t, store, "alice", "a", "h1", "#go")
	seed(t, store, "alice_away", "a2", "h1", "#go") // same host, different nick
	seed(t, store, "bob", "b", "h9", "#go")         // unrelated

	exp, err := r.Expand(context.Background(), "x", storage.Match{Field: storage.FieldNick, Token: "alice"}, false)
	require.NoError(t, err)
	assert.Equal(t, []string{"alice", "alice_away"}, exp.Nicks)
	assert.Equal(t, []string{"a", "a2"}, exp.Idents)
	assert.Equal(t, []string{"h1"}, exp.Hosts)
}

func TestExpand_CaseInsensitive(t *testing.T) {
	r, store := newTestResolver(t)
	seed(t, store, "Alice", "a", "H1", "#go")

	lower, err := r.Expand(context.Background(), "x", storage.Match{Field: storage.FieldNick, Token: "alice"}, false)
	require.NoError(t, err)
	upper, err := r.Expand(context.Background(), "X", storage.Match{Field: storage.FieldNick, Token: "ALICE"}, false)
	require.NoError(t, err)
	assert.Equal(t, lower, upper)
	assert.Equal(t, []string{"alice"}, lower.Nicks)
}

func TestExpand_EmptyResultIsNotAnError(t *testing.T) {
	r, _ := newTestResolver(t)

	exp, err := r.Expand(context.Background(), "x", storage.Match{Token: "nobody"}, false)
	require.NoError(t, err)
	assert.True(t, exp.Empty())
}

func TestExpand_GlobToken(t *testing.T) {
	r, store := newTestResolver(t)
	seed(t, store, "alice", "a", "h1", "#go")
	seed(t, store, "alicia", "a", "h2", "#go")
	seed(t, store, "bob", "b", "h3", "#go")

	exp, err := r.Expand(context.Background(), "x", storage.Match{Field: storage.FieldNick, Token: "ali*"}, false)
	require.NoError(t, err)
	assert.Equal(t, []string{"alice", "alicia"}, exp.Nicks)
}

func TestExpand_BoundedNotTransitive(t *testing.T) {
	r, store := newTestResolver(t)
	// a chain: alice shares h1 with middle, middle shares h2 with far.
	seed(t, store, "alice", "a", "h1", "#go")
	seed(t, store, "middle", "m", "h1", "#go")
	seed(t, store, "middle", "m", "h2", "#go")
	seed(t, store, "far", "f", "h2", "#go")

	exp, err := r.Expand(context.Background(), "x", storage.Match{Field: storage.FieldNick, Token: "alice"}, false)
	require.NoError(t, err)
	assert.Equal(t, []string{"alice", "middle"}, exp.Nicks,
		"shallow expansion stops after the literal hop")

	// Deep adds one glob hop per discovered triple: it finds middle's
	// other host, but rows reachable only through that host stay out.
	deep, err := r.Expand(context.Background(), "x", storage.Match{Field: storage.FieldNick, Token: "alice"}, true)
	require.NoError(t, err)
	assert.Contains(t, deep.Hosts, "h2")
	assert.NotContains(t, deep.Nicks, "far")
}

func TestExpand_DeepEscapesStoredMetacharacters(t *testing.T) {
	r, store := newTestResolver(t)
	seed(t, store, "odd", "o", "we[ird]host", "#go")
	seed(t, store, "victim", "v", "weihost", "#go") // would match the unescaped class

	exp, err := r.Expand(context.Background(), "x", storage.Match{Field: storage.FieldNick, Token: "odd"}, true)
	require.NoError(t, err)
	assert.Equal(t, []string{"odd"}, exp.Nicks)
	assert.NotContains(t, exp.Hosts, "weihost")
}

func TestChannels_FiltersSentinelRooms(t *testing.T) {
	r, store := newTestResolver(t)
	seed(t, store, "alice", "a", "h1", "#go")
	seed(t, store, "alice", "a", "h1", "#rust")
	seed(t, store, "alice", "a", "h1", storage.ChannelQuery)
	seed(t, store, "alice", "a", "h1", storage.ChannelWhois)

	chans, err := r.Channels(context.Background(), "x", storage.Match{Field: storage.FieldNick, Token: "alice"})
	require.NoError(t, err)
	assert.Equal(t, []string{"#go", "#rust"}, chans)
}

func TestChunkJoin(t *testing.T) {
	items := make([]string, 250)
	for i := range items {
		items[i] = fmt.Sprintf("n%03d", i)
	}

	lines := ChunkJoin(items)
	require.Len(t, lines, 3)
	assert.Equal(t, 100, strings.Count(lines[0], ",")+1)
	assert.Equal(t, 50, strings.Count(lines[2], ",")+1)

	assert.Empty(t, ChunkJoin(nil))
	assert.Equal(t, []string{"only"}, ChunkJoin([]string{"only"}))
}
