package cli

import (
	"database/sql"
	"fmt"

	"github.com/runnerr0/aka/internal/config"
	"github.com/runnerr0/aka/internal/storage"
)

// errInvalidType is the user-visible rejection for a bad --type value. It
// halts further processing of the command line.
var errInvalidType = fmt.Errorf("valid types are nick, ident, and host")

// matchFor builds the store match for a token under an optional field
// restriction.
func matchFor(typeFlag, token string) (storage.Match, error) {
	switch typeFlag {
	case "":
		return storage.Match{Token: token}, nil
	case storage.FieldNick, storage.FieldIdent, storage.FieldHost:
		return storage.Match{Field: typeFlag, Token: token}, nil
	default:
		return storage.Match{}, errInvalidType
	}
}

// network returns the operator's network scope or a one-line error.
func (s *shared) network() (string, error) {
	if s.globals == nil || s.globals.Network == "" {
		return "", fmt.Errorf("you must specify a network (--network)")
	}
	return s.globals.Network, nil
}

// openStore opens the configured store, honoring the --db override, or
// returns the injected test store. done closes whatever was opened.
func (s *shared) openStore() (store *storage.SQLiteStore, done func(), err error) {
	if s.store != nil {
		return s.store, func() {}, nil
	}

	path := ""
	if s.globals != nil {
		path = s.globals.DB
	}
	if path == "" {
		var cfg *config.Config
		if s.globals != nil && s.globals.Config != "" {
			cfg, err = config.Load(s.globals.Config)
		} else {
			cfg, err = config.LoadOrCreate()
		}
		if err != nil {
			return nil, nil, err
		}
		path, err = cfg.DatabasePath()
		if err != nil {
			return nil, nil, err
		}
	}

	var db *sql.DB
	store, db, err = storage.Open(path)
	if err != nil {
		return nil, nil, err
	}
	return store, func() {
		store.Close()
		db.Close()
	}, nil
}

// setStore injects a ready store for testing.
func (s *shared) setStore(store *storage.SQLiteStore, db *sql.DB) {
	s.store = store
	s.db = db
}
