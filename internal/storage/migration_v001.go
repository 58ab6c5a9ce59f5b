package storage

import "database/sql"

// migrateV001 creates the original users schema as it shipped before
// account tracking, kick counters, and the moderation log existed. Stores
// created by early builds carry exactly this shape, so the initial
// migration reproduces it and v002 upgrades it.
func migrateV001(tx *sql.Tx) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS users (
			id        INTEGER PRIMARY KEY,
			network   TEXT NOT NULL,
			nick      TEXT NOT NULL,
			ident     TEXT NOT NULL DEFAULT '',
			host      TEXT NOT NULL DEFAULT '',
			channel   TEXT NOT NULL,
			event     TEXT NOT NULL DEFAULT '',
			message   TEXT,
			firstseen INTEGER NOT NULL,
			lastseen  INTEGER NOT NULL,
			texts     INTEGER NOT NULL DEFAULT 0,
			joins     INTEGER NOT NULL DEFAULT 0,
			parts     INTEGER NOT NULL DEFAULT 0,
			quits     INTEGER NOT NULL DEFAULT 0,
			UNIQUE (network, nick, ident, host, channel)
		)`,

		`CREATE INDEX IF NOT EXISTS idx_users_network ON users(network)`,
		`CREATE INDEX IF NOT EXISTS idx_users_nick    ON users(nick)`,
	}

	for _, stmt := range stmts {
		if _, err := tx.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}
