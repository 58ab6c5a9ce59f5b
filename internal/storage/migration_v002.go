package storage

import "database/sql"

// migrateV002 brings a v001 store up to the current shape:
//
//   - adds kicks, is_dm, account, and gecos columns to users, zeroed for
//     existing rows;
//   - relabels the old "privmsg" sentinel room to "query" so direct-message
//     rows use one consistent name;
//   - creates the moderation log and settings tables.
//
// Column adds are guarded with a table_info probe so the step is idempotent
// even on stores that were hand-upgraded before version tracking.
func migrateV002(tx *sql.Tx) error {
	adds := []struct {
		column string
		ddl    string
	}{
		{"kicks", `ALTER TABLE users ADD COLUMN kicks INTEGER NOT NULL DEFAULT 0`},
		{"is_dm", `ALTER TABLE users ADD COLUMN is_dm BOOLEAN NOT NULL DEFAULT 0`},
		{"account", `ALTER TABLE users ADD COLUMN account TEXT NOT NULL DEFAULT ''`},
		{"gecos", `ALTER TABLE users ADD COLUMN gecos TEXT NOT NULL DEFAULT ''`},
	}
	for _, a := range adds {
		present, err := hasColumn(tx, "users", a.column)
		if err != nil {
			return err
		}
		if present {
			continue
		}
		if _, err := tx.Exec(a.ddl); err != nil {
			return err
		}
	}

	stmts := []string{
		`UPDATE users SET channel = 'query' WHERE channel = 'privmsg'`,

		`CREATE TABLE IF NOT EXISTS moderation (
			id           INTEGER PRIMARY KEY AUTOINCREMENT,
			network      TEXT NOT NULL,
			channel      TEXT NOT NULL DEFAULT '',
			op_nick      TEXT NOT NULL DEFAULT '',
			op_ident     TEXT NOT NULL DEFAULT '',
			op_host      TEXT NOT NULL DEFAULT '',
			action       TEXT NOT NULL,
			engaged      BOOLEAN NOT NULL DEFAULT 1,
			reason       TEXT NOT NULL DEFAULT '',
			target_nick  TEXT NOT NULL DEFAULT '',
			target_ident TEXT NOT NULL DEFAULT '',
			target_host  TEXT NOT NULL DEFAULT '',
			ts           INTEGER NOT NULL
		)`,

		`CREATE INDEX IF NOT EXISTS idx_moderation_network ON moderation(network)`,
		`CREATE INDEX IF NOT EXISTS idx_moderation_ts      ON moderation(ts)`,

		`CREATE TABLE IF NOT EXISTS settings (
			key   TEXT PRIMARY KEY,
			value TEXT NOT NULL
		)`,
	}
	for _, stmt := range stmts {
		if _, err := tx.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}
