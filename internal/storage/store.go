package storage

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"strings"
	"time"
)

// Store defines the interface for record-store operations.
type Store interface {
	UpsertUser(ctx context.Context, op UpsertOp) error
	GetUser(ctx context.Context, key UserKey) (*UserRecord, error)
	AppendModeration(ctx context.Context, rec *ModerationRecord) error
	Purge(ctx context.Context, network string, olderThanDays int) (int64, error)
	Stats(ctx context.Context, network string) (*NetworkStats, error)
	Close() error
}

// ErrPurgeDisabled is returned by Purge when the ENABLE_PURGE setting is off.
var ErrPurgeDisabled = fmt.Errorf("purge is disabled (set ENABLE_PURGE TRUE to enable)")

// SQLiteStore implements Store backed by a SQLite database.
type SQLiteStore struct {
	db   *sql.DB
	path string // database file path, "" for in-memory

	// Prepared statements
	upsertUser *sql.Stmt
	getUser    *sql.Stmt
	insertMod  *sql.Stmt
}

// NewSQLiteStore creates a SQLiteStore from an already-opened and migrated
// database. path is the on-disk database file, used only for size reporting.
func NewSQLiteStore(db *sql.DB, path string) (*SQLiteStore, error) {
	s := &SQLiteStore{db: db, path: path}
	if err := s.prepareStatements(); err != nil {
		return nil, fmt.Errorf("prepare statements: %w", err)
	}
	return s, nil
}

// The upsert is a single conditional insert-or-update so that concurrent
// writers to the same key can never interleave a read-modify-write.
// Parameters:
//
//	?1..?5  key (network, nick, ident, host, channel)
//	?6..?9  event, message, account, gecos (NULL preserves)
//	?10     is_dm
//	?11     seen (unix seconds)
//	?12..?16 initial counters for a new row
//	?17..?21 counter deltas for an existing row
const upsertUserSQL = `
	INSERT INTO users (
		network, nick, ident, host, channel,
		event, message, account, gecos, is_dm,
		firstseen, lastseen,
		texts, joins, parts, quits, kicks
	) VALUES (
		?1, ?2, ?3, ?4, ?5,
		COALESCE(?6, ''), ?7, COALESCE(?8, ''), COALESCE(?9, ''), ?10,
		?11, ?11,
		?12, ?13, ?14, ?15, ?16
	)
	ON CONFLICT (network, nick, ident, host, channel) DO UPDATE SET
		event    = COALESCE(?6, event),
		message  = COALESCE(?7, message),
		account  = COALESCE(?8, account),
		gecos    = COALESCE(?9, gecos),
		is_dm    = MAX(is_dm, ?10),
		lastseen = MAX(lastseen, ?11),
		texts    = texts + ?17,
		joins    = joins + ?18,
		parts    = parts + ?19,
		quits    = quits + ?20,
		kicks    = kicks + ?21
`

func (s *SQLiteStore) prepareStatements() error {
	var err error

	s.upsertUser, err = s.db.Prepare(upsertUserSQL)
	if err != nil {
		return err
	}

	s.getUser, err = s.db.Prepare(`
		SELECT network, nick, ident, host, channel, event, message,
		       firstseen, lastseen, texts, joins, parts, quits, kicks,
		       is_dm, account, gecos
		FROM users
		WHERE network = ? AND nick = ? AND ident = ? AND host = ? AND channel = ?
	`)
	if err != nil {
		return err
	}

	s.insertMod, err = s.db.Prepare(`
		INSERT INTO moderation (
			network, channel, op_nick, op_ident, op_host,
			action, engaged, reason,
			target_nick, target_ident, target_host, ts
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	return err
}

// fold lowercases every identity field of a key.
func (k UserKey) fold() UserKey {
	return UserKey{
		Network: strings.ToLower(k.Network),
		Nick:    strings.ToLower(k.Nick),
		Ident:   strings.ToLower(k.Ident),
		Host:    strings.ToLower(k.Host),
		Channel: strings.ToLower(k.Channel),
	}
}

// EscapeGlob neutralizes [ and ] in a literal so it can be embedded in a
// GLOB pattern without being read as a character class. * and ? are left
// alone; stored wildcards keep their meaning, as in token input.
func EscapeGlob(s string) string {
	var b strings.Builder
	for _, r := range s {
		switch r {
		case '[':
			b.WriteString("[[]")
		case ']':
			b.WriteString("[]]")
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}

// lowerPtr folds an optional text field.
func lowerPtr(p *string) *string {
	if p == nil {
		return nil
	}
	v := strings.ToLower(*p)
	return &v
}

// UpsertUser applies a single atomic insert-or-update. A missing row is
// created with firstseen = lastseen = op.Seen and the Init counters;
// an existing row gets the Delta counters added, lastseen advanced, and
// only the non-nil fields overwritten.
func (s *SQLiteStore) UpsertUser(ctx context.Context, op UpsertOp) error {
	key := op.Key.fold()
	seen := op.Seen
	if seen.IsZero() {
		seen = time.Now()
	}

	_, err := s.upsertUser.ExecContext(ctx,
		key.Network, key.Nick, key.Ident, key.Host, key.Channel,
		op.Event, op.Message, lowerPtr(op.Account), op.Gecos, op.IsDM,
		seen.Unix(),
		op.Init.Texts, op.Init.Joins, op.Init.Parts, op.Init.Quits, op.Init.Kicks,
		op.Delta.Texts, op.Delta.Joins, op.Delta.Parts, op.Delta.Quits, op.Delta.Kicks,
	)
	if err != nil {
		return fmt.Errorf("upsert user %s!%s@%s in %s: %w",
			key.Nick, key.Ident, key.Host, key.Channel, err)
	}
	return nil
}

// GetUser fetches one row by its exact key, or nil when absent.
func (s *SQLiteStore) GetUser(ctx context.Context, key UserKey) (*UserRecord, error) {
	key = key.fold()
	rec, err := scanUser(s.getUser.QueryRowContext(ctx,
		key.Network, key.Nick, key.Ident, key.Host, key.Channel))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	return rec, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanUser(row rowScanner) (*UserRecord, error) {
	var rec UserRecord
	var msg sql.NullString
	var first, last int64
	err := row.Scan(
		&rec.Network, &rec.Nick, &rec.Ident, &rec.Host, &rec.Channel,
		&rec.Event, &msg, &first, &last,
		&rec.Texts, &rec.Joins, &rec.Parts, &rec.Quits, &rec.Kicks,
		&rec.IsDM, &rec.Account, &rec.Gecos,
	)
	if err != nil {
		return nil, err
	}
	rec.Message = msg.String
	rec.FirstSeen = time.Unix(first, 0)
	rec.LastSeen = time.Unix(last, 0)
	return &rec, nil
}

// AppendModeration inserts one moderation log entry. The log has no natural
// key; duplicates are allowed.
func (s *SQLiteStore) AppendModeration(ctx context.Context, rec *ModerationRecord) error {
	ts := rec.Time
	if ts.IsZero() {
		ts = time.Now()
	}
	res, err := s.insertMod.ExecContext(ctx,
		strings.ToLower(rec.Network), strings.ToLower(rec.Channel),
		strings.ToLower(rec.OpNick), strings.ToLower(rec.OpIdent), strings.ToLower(rec.OpHost),
		rec.Action, rec.Engaged, rec.Reason,
		strings.ToLower(rec.TargetNick), strings.ToLower(rec.TargetIdent), strings.ToLower(rec.TargetHost),
		ts.Unix(),
	)
	if err != nil {
		return fmt.Errorf("append moderation: %w", err)
	}
	rec.ID, _ = res.LastInsertId()
	return nil
}

// Purge deletes users rows for network whose lastseen predates the cutoff.
// It refuses to run unless the ENABLE_PURGE setting is on.
func (s *SQLiteStore) Purge(ctx context.Context, network string, olderThanDays int) (int64, error) {
	enabled, err := s.SettingBool(ctx, SettingEnablePurge)
	if err != nil {
		return 0, err
	}
	if !enabled {
		return 0, ErrPurgeDisabled
	}

	cutoff := time.Now().Add(-time.Duration(olderThanDays) * 24 * time.Hour).Unix()
	res, err := s.db.ExecContext(ctx,
		"DELETE FROM users WHERE network = ? AND lastseen < ?",
		strings.ToLower(network), cutoff,
	)
	if err != nil {
		return 0, fmt.Errorf("purge %s: %w", network, err)
	}
	return res.RowsAffected()
}

// Stats returns distinct identity counts and total rows for one network,
// plus the on-disk store size.
func (s *SQLiteStore) Stats(ctx context.Context, network string) (*NetworkStats, error) {
	stats := &NetworkStats{}
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(DISTINCT nick), COUNT(DISTINCT ident),
		       COUNT(DISTINCT host), COUNT(DISTINCT channel), COUNT(*)
		FROM users WHERE network = ?
	`, strings.ToLower(network)).Scan(
		&stats.Nicks, &stats.Idents, &stats.Hosts, &stats.Channels, &stats.Records,
	)
	if err != nil {
		return nil, fmt.Errorf("network stats: %w", err)
	}
	stats.SizeBytes = s.databaseSize()
	return stats, nil
}

// databaseSize reports the store's on-disk size, falling back to
// page_count * page_size for in-memory databases.
func (s *SQLiteStore) databaseSize() int64 {
	if s.path != "" {
		if info, err := os.Stat(s.path); err == nil {
			return info.Size()
		}
	}
	var pageCount, pageSize int64
	if err := s.db.QueryRow("PRAGMA page_count").Scan(&pageCount); err != nil {
		return 0
	}
	if err := s.db.QueryRow("PRAGMA page_size").Scan(&pageSize); err != nil {
		return 0
	}
	return pageCount * pageSize
}

// Vacuum rewrites the database file to reclaim free pages.
func (s *SQLiteStore) Vacuum(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, "VACUUM"); err != nil {
		return fmt.Errorf("vacuum: %w", err)
	}
	return nil
}

// RawQuery runs an ad-hoc SQL statement and returns each result row
// rendered as a single line, or the affected-row count for writes. Errors
// are returned to the caller verbatim; they never abort the process.
func (s *SQLiteStore) RawQuery(ctx context.Context, query string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	var out []string
	vals := make([]interface{}, len(cols))
	ptrs := make([]interface{}, len(cols))
	for i := range vals {
		ptrs[i] = &vals[i]
	}
	for rows.Next() {
		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}
		parts := make([]string, len(cols))
		for i, v := range vals {
			switch t := v.(type) {
			case nil:
				parts[i] = "NULL"
			case []byte:
				parts[i] = string(t)
			default:
				parts[i] = fmt.Sprintf("%v", t)
			}
		}
		out = append(out, strings.Join(parts, "|"))
	}
	return out, rows.Err()
}

// Close releases the prepared statements. The underlying *sql.DB is not
// closed; that is the caller's responsibility.
func (s *SQLiteStore) Close() error {
	for _, stmt := range []*sql.Stmt{s.upsertUser, s.getUser, s.insertMod} {
		if stmt != nil {
			stmt.Close()
		}
	}
	return nil
}
