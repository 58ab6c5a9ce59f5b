package cli

import (
	"context"
	"database/sql"
	"io"
	"os"
	"testing"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/require"

	"github.com/runnerr0/aka/internal/storage"
)

// newCLIStore builds a migrated in-memory store plus the shared command
// state wired to it and a network scope.
func newCLIStore(t *testing.T) (*storage.SQLiteStore, shared) {
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

	sh := shared{globals: &GlobalFlags{Network: "x"}}
	sh.setStore(store, db)
	return store, sh
}

func seedUser(t *testing.T, store *storage.SQLiteStore, nick, ident, host, channel string) {
	t.Helper()
	event := storage.EventJoin
	require.NoError(t, store.UpsertUser(context.Background(), storage.UpsertOp{
		Key:   storage.UserKey{Network: "x", Nick: nick, Ident: ident, Host: host, Channel: channel},
		Event: &event,
		Init:  storage.Counters{Joins: 1},
		Delta: storage.Counters{Joins: 1},
	}))
}

func seedMessage(t *testing.T, store *storage.SQLiteStore, nick, ident, host, channel, text string) {
	t.Helper()
	event := storage.EventPrivmsg
	require.NoError(t, store.UpsertUser(context.Background(), storage.UpsertOp{
		Key:     storage.UserKey{Network: "x", Nick: nick, Ident: ident, Host: host, Channel: channel},
		Event:   &event,
		Message: &text,
		Init:    storage.Counters{Texts: 1, Joins: 1},
		Delta:   storage.Counters{Texts: 1},
	}))
}

// captureOutput redirects stdout around fn and returns what was printed.
func captureOutput(t *testing.T, fn func()) string {
	t.Helper()
	old := os.Stdout
	r, w, err := os.Pipe()
	require.NoError(t, err)
	os.Stdout = w

	fn()

	w.Close()
	os.Stdout = old
	out, err := io.ReadAll(r)
	require.NoError(t, err)
	return string(out)
}
