package storage

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"
)

// NickHost is a distinct (nick, host) pair from the first expansion hop.
type NickHost struct {
	Nick string
	Host string
}

// DistinctNickHosts returns the distinct (nick, host) pairs matching a
// token within one network.
func (s *SQLiteStore) DistinctNickHosts(ctx context.Context, network string, m Match) ([]NickHost, error) {
	clause, args := m.clause()
	query := "SELECT DISTINCT nick, host FROM users WHERE network = ? AND " + clause
	args = append([]interface{}{strings.ToLower(network)}, args...)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("distinct nick/host: %w", err)
	}
	defer rows.Close()

	var out []NickHost
	for rows.Next() {
		var nh NickHost
		if err := rows.Scan(&nh.Nick, &nh.Host); err != nil {
			return nil, err
		}
		out = append(out, nh)
	}
	return out, rows.Err()
}

// inPlaceholders renders "?, ?, ..." for n parameters.
func inPlaceholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}

// TriplesByLiterals returns the distinct (nick, ident, host) triples whose
// nick or host equals any of the supplied literals. This is the second
// expansion hop: equality on literals, no glob interpretation.
func (s *SQLiteStore) TriplesByLiterals(ctx context.Context, network string, nicks, hosts []string) ([]UserTriple, error) {
	if len(nicks) == 0 && len(hosts) == 0 {
		return nil, nil
	}

	var parts []string
	args := []interface{}{strings.ToLower(network)}
	if len(nicks) > 0 {
		parts = append(parts, "nick IN ("+inPlaceholders(len(nicks))+")")
		for _, n := range nicks {
			args = append(args, strings.ToLower(n))
		}
	}
	if len(hosts) > 0 {
		parts = append(parts, "host IN ("+inPlaceholders(len(hosts))+")")
		for _, h := range hosts {
			args = append(args, strings.ToLower(h))
		}
	}

	query := "SELECT DISTINCT nick, ident, host FROM users WHERE network = ? AND (" +
		strings.Join(parts, " OR ") + ")"
	return s.scanTriples(ctx, query, args...)
}

// TriplesByGlob returns the distinct triples where any identity field
// matches its corresponding pattern. Literals drawn from stored rows must
// be passed through EscapeGlob first.
func (s *SQLiteStore) TriplesByGlob(ctx context.Context, network, nickPat, identPat, hostPat string) ([]UserTriple, error) {
	query := `SELECT DISTINCT nick, ident, host FROM users
		WHERE network = ? AND (nick GLOB ? OR ident GLOB ? OR host GLOB ?)`
	return s.scanTriples(ctx, query,
		strings.ToLower(network),
		strings.ToLower(nickPat), strings.ToLower(identPat), strings.ToLower(hostPat))
}

// TriplesByChannel returns the distinct triples ever seen in one channel.
func (s *SQLiteStore) TriplesByChannel(ctx context.Context, network, channel string) ([]UserTriple, error) {
	query := "SELECT DISTINCT nick, ident, host FROM users WHERE network = ? AND channel = ?"
	return s.scanTriples(ctx, query, strings.ToLower(network), strings.ToLower(channel))
}

func (s *SQLiteStore) scanTriples(ctx context.Context, query string, args ...interface{}) ([]UserTriple, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("distinct triples: %w", err)
	}
	defer rows.Close()

	var out []UserTriple
	for rows.Next() {
		var t UserTriple
		if err := rows.Scan(&t.Nick, &t.Ident, &t.Host); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// DistinctChannels returns the distinct channels in which rows matching the
// token appear. Sentinel rooms are included; callers that want only real
// channels filter on the '#' prefix.
func (s *SQLiteStore) DistinctChannels(ctx context.Context, network string, m Match) ([]string, error) {
	clause, args := m.clause()
	query := "SELECT DISTINCT channel FROM users WHERE network = ? AND " + clause
	args = append([]interface{}{strings.ToLower(network)}, args...)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("distinct channels: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var ch string
		if err := rows.Scan(&ch); err != nil {
			return nil, err
		}
		out = append(out, ch)
	}
	return out, rows.Err()
}

// LastSpoke returns the message-bearing row with the greatest lastseen
// among rows matching the token, optionally restricted to one channel.
// Returns nil when the user has never been seen speaking.
func (s *SQLiteStore) LastSpoke(ctx context.Context, network string, m Match, channel string) (*UserRecord, error) {
	clause, args := m.clause()
	query := `
		SELECT network, nick, ident, host, channel, event, message,
		       firstseen, lastseen, texts, joins, parts, quits, kicks,
		       is_dm, account, gecos
		FROM users
		WHERE network = ? AND message IS NOT NULL AND message != ''
		  AND event IN (?, ?) AND ` + clause
	qargs := []interface{}{strings.ToLower(network), EventPrivmsg, EventNotice}
	qargs = append(qargs, args...)

	if channel != "" {
		query += " AND channel = ?"
		qargs = append(qargs, strings.ToLower(channel))
	}
	query += " ORDER BY lastseen DESC LIMIT 1"

	rec, err := scanUser(s.db.QueryRowContext(ctx, query, qargs...))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("last spoke: %w", err)
	}
	return rec, nil
}

// HostCandidates returns (host, nick, ident) rows matching the token,
// newest first. Used to pick a geolocatable host.
func (s *SQLiteStore) HostCandidates(ctx context.Context, network string, m Match) ([]UserTriple, error) {
	clause, args := m.clause()
	query := "SELECT DISTINCT host, nick, ident FROM users WHERE network = ? AND " +
		clause + " ORDER BY lastseen DESC"
	args = append([]interface{}{strings.ToLower(network)}, args...)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("host candidates: %w", err)
	}
	defer rows.Close()

	var out []UserTriple
	for rows.Next() {
		var t UserTriple
		if err := rows.Scan(&t.Host, &t.Nick, &t.Ident); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// HostsForNick returns every distinct host a nickname has been seen under.
func (s *SQLiteStore) HostsForNick(ctx context.Context, network, nick string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT DISTINCT host FROM users WHERE network = ? AND nick = ? AND host != ''",
		strings.ToLower(network), strings.ToLower(nick))
	if err != nil {
		return nil, fmt.Errorf("hosts for nick: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var h string
		if err := rows.Scan(&h); err != nil {
			return nil, err
		}
		out = append(out, h)
	}
	return out, rows.Err()
}

// ModerationQuery selects moderation log entries. Zero-valued filters are
// ignored. TargetNickGlobs are OR-ed GLOB patterns against the offender
// nick column (ban masks are stored verbatim, so a plain nickname must
// also match its "nick!*"-style mask forms); TargetHosts are exact.
type ModerationQuery struct {
	Network         string
	Channel         string
	TargetNickGlobs []string
	TargetHosts     []string
}

// SearchModeration returns matching moderation entries ordered by time.
func (s *SQLiteStore) SearchModeration(ctx context.Context, q ModerationQuery) ([]ModerationRecord, error) {
	query := `
		SELECT id, network, channel, op_nick, op_ident, op_host,
		       action, engaged, reason, target_nick, target_ident, target_host, ts
		FROM moderation WHERE network = ?`
	args := []interface{}{strings.ToLower(q.Network)}

	if q.Channel != "" {
		query += " AND channel = ?"
		args = append(args, strings.ToLower(q.Channel))
	}

	var alts []string
	for _, n := range q.TargetNickGlobs {
		alts = append(alts, "target_nick GLOB ?")
		args = append(args, strings.ToLower(n))
	}
	for _, h := range q.TargetHosts {
		alts = append(alts, "target_host = ?")
		args = append(args, strings.ToLower(h))
	}
	if len(alts) > 0 {
		query += " AND (" + strings.Join(alts, " OR ") + ")"
	}
	query += " ORDER BY ts"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("search moderation: %w", err)
	}
	defer rows.Close()

	var out []ModerationRecord
	for rows.Next() {
		var rec ModerationRecord
		var ts int64
		if err := rows.Scan(
			&rec.ID, &rec.Network, &rec.Channel,
			&rec.OpNick, &rec.OpIdent, &rec.OpHost,
			&rec.Action, &rec.Engaged, &rec.Reason,
			&rec.TargetNick, &rec.TargetIdent, &rec.TargetHost, &ts,
		); err != nil {
			return nil, err
		}
		rec.Time = time.Unix(ts, 0)
		out = append(out, rec)
	}
	return out, rows.Err()
}
