package storage

import (
	"context"
	"database/sql"
	"path/filepath"
	"sync"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// openTestStore creates a migrated in-memory store for testing.
func openTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	db, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1) // each :memory: connection is its own database
	t.Cleanup(func() { db.Close() })

	runner := NewMigrationRunner(db)
	require.NoError(t, runner.Run())

	store, err := NewSQLiteStore(db, "")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	require.NoError(t, store.SeedSettings(context.Background()))
	return store
}

func strptr(s string) *string { return &s }

func joinOp(nick, channel string) UpsertOp {
	return UpsertOp{
		Key:     UserKey{Network: "libera", Nick: nick, Ident: "u", Host: "host.example", Channel: channel},
		Event:   strptr(EventJoin),
		Message: strptr(""),
		Init:    Counters{Joins: 1},
		Delta:   Counters{Joins: 1},
	}
}

func TestUpsertUser_CreatesRow(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.UpsertUser(ctx, joinOp("bob", "#go")))

	rec, err := store.GetUser(ctx, UserKey{Network: "libera", Nick: "bob", Ident: "u", Host: "host.example", Channel: "#go"})
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, EventJoin, rec.Event)
	assert.Equal(t, int64(1), rec.Joins)
	assert.Equal(t, int64(0), rec.Texts)
	assert.Equal(t, rec.FirstSeen, rec.LastSeen, "new row has firstseen == lastseen")
}

func TestUpsertUser_UpdateKeepsFirstSeen(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	early := time.Now().Add(-time.Hour)
	op := joinOp("bob", "#go")
	op.Seen = early
	require.NoError(t, store.UpsertUser(ctx, op))

	later := joinOp("bob", "#go")
	later.Seen = time.Now()
	require.NoError(t, store.UpsertUser(ctx, later))

	rec, err := store.GetUser(ctx, op.Key)
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, early.Unix(), rec.FirstSeen.Unix(), "firstseen is immutable")
	assert.True(t, rec.LastSeen.After(rec.FirstSeen), "lastseen advances")
	assert.Equal(t, int64(2), rec.Joins)
}

func TestUpsertUser_NeverDuplicatesKey(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		require.NoError(t, store.UpsertUser(ctx, joinOp("bob", "#go")))
	}

	var count int
	require.NoError(t, store.db.QueryRow(
		"SELECT COUNT(*) FROM users WHERE network = 'libera' AND nick = 'bob'",
	).Scan(&count))
	assert.Equal(t, 1, count)
}

func TestUpsertUser_CaseFoldsKey(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	op := joinOp("Bob", "#Go")
	op.Key.Host = "Host.Example"
	require.NoError(t, store.UpsertUser(ctx, op))
	require.NoError(t, store.UpsertUser(ctx, joinOp("bob", "#go")))

	var count int
	require.NoError(t, store.db.QueryRow("SELECT COUNT(*) FROM users").Scan(&count))
	assert.Equal(t, 1, count, "differently-cased keys collapse to one row")
}

func TestUpsertUser_CounterSums(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	for i := 0; i < 7; i++ {
		require.NoError(t, store.UpsertUser(ctx, UpsertOp{
			Key:     UserKey{Network: "libera", Nick: "bob", Ident: "u", Host: "h", Channel: "#go"},
			Event:   strptr(EventPrivmsg),
			Message: strptr("hi"),
			Init:    Counters{Texts: 1, Joins: 1},
			Delta:   Counters{Texts: 1},
		}))
	}

	rec, err := store.GetUser(ctx, UserKey{Network: "libera", Nick: "bob", Ident: "u", Host: "h", Channel: "#go"})
	require.NoError(t, err)
	assert.Equal(t, int64(7), rec.Texts)
	assert.Equal(t, int64(1), rec.Joins, "join counted once on creation only")
}

func TestUpsertUser_ConcurrentWritersLoseNoCounts(t *testing.T) {
	// Shared-cache in-memory stores serialize on one connection, so this
	// needs a real file to race on.
	path := filepath.Join(t.TempDir(), "concurrent.db")
	store, db, err := Open(path)
	require.NoError(t, err)
	t.Cleanup(func() {
		store.Close()
		db.Close()
	})

	const writers = 8
	const perWriter = 25

	op := UpsertOp{
		Key:     UserKey{Network: "libera", Nick: "bob", Ident: "u", Host: "h", Channel: "#go"},
		Event:   strptr(EventPrivmsg),
		Message: strptr("hi"),
		Init:    Counters{Texts: 1, Joins: 1},
		Delta:   Counters{Texts: 1},
	}

	errs := make(chan error, writers)
	var wg sync.WaitGroup
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < perWriter; j++ {
				if err := store.UpsertUser(context.Background(), op); err != nil {
					errs <- err
					return
				}
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	rec, err := store.GetUser(context.Background(), op.Key)
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, int64(writers*perWriter), rec.Texts, "no interleaved update may drop a count")
	assert.Equal(t, int64(1), rec.Joins)

	var count int
	require.NoError(t, store.db.QueryRow("SELECT COUNT(*) FROM users").Scan(&count))
	assert.Equal(t, 1, count)
}

func TestUpsertUser_PreservesUnsetFields(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	key := UserKey{Network: "libera", Nick: "bob", Ident: "u", Host: "h", Channel: "#go"}

	require.NoError(t, store.UpsertUser(ctx, UpsertOp{
		Key: key, Event: strptr(EventJoin), Message: strptr(""),
		Account: strptr("BobAcct"), Gecos: strptr("Bob Smith"),
		Init: Counters{Joins: 1}, Delta: Counters{Joins: 1},
	}))

	// A part supplies event/message only; account and gecos survive.
	require.NoError(t, store.UpsertUser(ctx, UpsertOp{
		Key: key, Event: strptr(EventPart), Message: strptr("bye"),
		Init: Counters{Joins: 1, Parts: 1}, Delta: Counters{Parts: 1},
	}))

	rec, err := store.GetUser(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, EventPart, rec.Event)
	assert.Equal(t, "bye", rec.Message)
	assert.Equal(t, "bobacct", rec.Account, "account preserved, case-folded")
	assert.Equal(t, "Bob Smith", rec.Gecos)
}

func TestUpsertUser_MessageClearedOnJoin(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	key := UserKey{Network: "libera", Nick: "bob", Ident: "u", Host: "h", Channel: "#go"}

	require.NoError(t, store.UpsertUser(ctx, UpsertOp{
		Key: key, Event: strptr(EventPart), Message: strptr("bye"),
		Init: Counters{Parts: 1}, Delta: Counters{Parts: 1},
	}))
	require.NoError(t, store.UpsertUser(ctx, joinOp("bob", "#go")))

	rec, err := store.GetUser(ctx, joinOp("bob", "#go").Key)
	require.NoError(t, err)
	assert.Equal(t, "", rec.Message, "rejoin clears the stored message")
}

func TestEscapeGlob(t *testing.T) {
	cases := []struct {
		in, want string
	}{
		{"plain.host", "plain.host"},
		{"we[ird]host", "we[[]ird[]]host"},
		{"a*b?c", "a*b?c"}, // wildcards keep their meaning
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, EscapeGlob(tc.in), "escape %q", tc.in)
	}
}

func TestAppendModeration_AllowsDuplicates(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	rec := &ModerationRecord{
		Network: "libera", Channel: "#go",
		OpNick: "op", OpIdent: "o", OpHost: "ops.example",
		Action: ActionBan, Engaged: true,
		TargetNick: "bob!*@*",
	}
	require.NoError(t, store.AppendModeration(ctx, rec))
	first := rec.ID
	require.NoError(t, store.AppendModeration(ctx, rec))
	assert.NotEqual(t, first, rec.ID, "second insert gets its own id")

	entries, err := store.SearchModeration(ctx, ModerationQuery{Network: "libera"})
	require.NoError(t, err)
	assert.Len(t, entries, 2)
}

func TestPurge_DisabledByDefault(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	old := joinOp("bob", "#go")
	old.Seen = time.Now().AddDate(0, 0, -60)
	require.NoError(t, store.UpsertUser(ctx, old))

	_, err := store.Purge(ctx, "libera", 30)
	require.ErrorIs(t, err, ErrPurgeDisabled)

	rec, err := store.GetUser(ctx, old.Key)
	require.NoError(t, err)
	assert.NotNil(t, rec, "nothing deleted while disabled")
}

func TestPurge_DeletesOnlyOldRowsForNetwork(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	require.NoError(t, store.SetSetting(ctx, SettingEnablePurge, "true"))

	old := joinOp("stale", "#go")
	old.Seen = time.Now().AddDate(0, 0, -60)
	require.NoError(t, store.UpsertUser(ctx, old))

	otherNet := joinOp("stale", "#go")
	otherNet.Key.Network = "oftc"
	otherNet.Seen = time.Now().AddDate(0, 0, -60)
	require.NoError(t, store.UpsertUser(ctx, otherNet))

	require.NoError(t, store.UpsertUser(ctx, joinOp("fresh", "#go")))

	deleted, err := store.Purge(ctx, "libera", 30)
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)

	rec, err := store.GetUser(ctx, otherNet.Key)
	require.NoError(t, err)
	assert.NotNil(t, rec, "other networks untouched")
}

func TestStats(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.UpsertUser(ctx, joinOp("bob", "#go")))
	require.NoError(t, store.UpsertUser(ctx, joinOp("bob", "#rust")))
	require.NoError(t, store.UpsertUser(ctx, joinOp("alice", "#go")))

	stats, err := store.Stats(ctx, "libera")
	require.NoError(t, err)
	assert.Equal(t, int64(2), stats.Nicks)
	assert.Equal(t, int64(2), stats.Channels)
	assert.Equal(t, int64(3), stats.Records)
	assert.Greater(t, stats.SizeBytes, int64(0))
}

func TestStats_EmptyNetwork(t *testing.T) {
	store := openTestStore(t)

	stats, err := store.Stats(context.Background(), "nowhere")
	require.NoError(t, err)
	assert.Equal(t, int64(0), stats.Records)
}

func TestRawQuery(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.UpsertUser(ctx, joinOp("bob", "#go")))

	rows, err := store.RawQuery(ctx, "SELECT nick, channel FROM users")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "bob|#go", rows[0])

	_, err = store.RawQuery(ctx, "SELECT FROM nowhere")
	assert.Error(t, err, "malformed query surfaces its engine error")
}

func TestLastSpoke(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	key := UserKey{Network: "x", Nick: "bob", Ident: "b", Host: "h1", Channel: "#a"}

	// join then part: a part reason is not "speaking".
	require.NoError(t, store.UpsertUser(ctx, UpsertOp{
		Key: key, Event: strptr(EventJoin), Message: strptr(""),
		Init: Counters{Joins: 1}, Delta: Counters{Joins: 1},
	}))
	require.NoError(t, store.UpsertUser(ctx, UpsertOp{
		Key: key, Event: strptr(EventPart), Message: strptr("bye"),
		Init: Counters{Parts: 1}, Delta: Counters{Parts: 1},
	}))

	rec, err := store.LastSpoke(ctx, "x", Match{Token: "bob"}, "")
	require.NoError(t, err)
	assert.Nil(t, rec, "no message-bearing event yet")

	require.NoError(t, store.UpsertUser(ctx, UpsertOp{
		Key: key, Event: strptr(EventPrivmsg), Message: strptr("hello"),
		Init: Counters{Texts: 1}, Delta: Counters{Texts: 1},
	}))

	rec, err = store.LastSpoke(ctx, "x", Match{Token: "bob"}, "")
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, "#a", rec.Channel)
	assert.Equal(t, EventPrivmsg, rec.Event)
	assert.Equal(t, "hello", rec.Message)

	rec, err = store.LastSpoke(ctx, "x", Match{Token: "bob"}, "#other")
	require.NoError(t, err)
	assert.Nil(t, rec, "channel restriction excludes the row")
}
