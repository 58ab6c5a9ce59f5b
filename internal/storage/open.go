package storage

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"
)

// Open opens (creating if needed) the database at path, applies pending
// migrations, seeds missing settings, and optionally vacuums per the
// VACUUM_ON_LOAD setting. The returned *sql.DB must be closed by the
// caller after the store.
func Open(path string) (*SQLiteStore, *sql.DB, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, nil, fmt.Errorf("create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path+"?_foreign_keys=on&_busy_timeout=5000")
	if err != nil {
		return nil, nil, fmt.Errorf("open database: %w", err)
	}

	runner := NewMigrationRunner(db)
	if err := runner.Run(); err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("run migrations: %w", err)
	}

	store, err := NewSQLiteStore(db, path)
	if err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("init store: %w", err)
	}

	ctx := context.Background()
	if err := store.SeedSettings(ctx); err != nil {
		store.Close()
		db.Close()
		return nil, nil, err
	}

	if vacuum, err := store.SettingBool(ctx, SettingVacuumOnLoad); err == nil && vacuum {
		if err := store.Vacuum(ctx); err != nil {
			store.Close()
			db.Close()
			return nil, nil, err
		}
	}

	return store, db, nil
}
