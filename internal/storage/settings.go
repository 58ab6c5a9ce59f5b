package storage

import (
	"context"
	"fmt"
	"sort"
	"strings"
)

// Setting keys. Keys and values are stored uppercase; values are the
// strings "TRUE" and "FALSE".
const (
	SettingRecordKick       = "RECORD_KICK"
	SettingRecordModeration = "RECORD_MODERATION"
	SettingRecordWhois      = "RECORD_WHOIS"
	SettingRecordWhowas     = "RECORD_WHOWAS"
	SettingWhoOnJoin        = "WHO_ON_JOIN"
	SettingEnablePurge      = "ENABLE_PURGE"
	SettingVacuumOnLoad     = "VACUUM_ON_LOAD"
)

// defaultSettings are seeded on first run; keys added by later versions
// are filled in on subsequent runs without touching existing values.
var defaultSettings = map[string]bool{
	SettingRecordKick:       true,
	SettingRecordModeration: true,
	SettingRecordWhois:      true,
	SettingRecordWhowas:     true,
	SettingWhoOnJoin:        true,
	SettingEnablePurge:      false,
	SettingVacuumOnLoad:     false,
}

func boolValue(v bool) string {
	if v {
		return "TRUE"
	}
	return "FALSE"
}

// SeedSettings inserts any missing setting with its default value.
func (s *SQLiteStore) SeedSettings(ctx context.Context) error {
	for key, val := range defaultSettings {
		_, err := s.db.ExecContext(ctx,
			"INSERT OR IGNORE INTO settings (key, value) VALUES (?, ?)",
			key, boolValue(val))
		if err != nil {
			return fmt.Errorf("seed setting %s: %w", key, err)
		}
	}
	return nil
}

// SetSetting stores a boolean setting. The key must be one of the known
// keys; key and value are case-normalized to uppercase.
func (s *SQLiteStore) SetSetting(ctx context.Context, key, value string) error {
	key = strings.ToUpper(strings.TrimSpace(key))
	if _, ok := defaultSettings[key]; !ok {
		return fmt.Errorf("unknown setting %q", key)
	}
	value = strings.ToUpper(strings.TrimSpace(value))
	if value != "TRUE" && value != "FALSE" {
		return fmt.Errorf("setting %s: value must be TRUE or FALSE, got %q", key, value)
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO settings (key, value) VALUES (?, ?)
		 ON CONFLICT (key) DO UPDATE SET value = excluded.value`,
		key, value)
	if err != nil {
		return fmt.Errorf("set setting %s: %w", key, err)
	}
	return nil
}

// SettingBool reads one boolean setting, falling back to its default when
// the row is missing.
func (s *SQLiteStore) SettingBool(ctx context.Context, key string) (bool, error) {
	key = strings.ToUpper(key)
	var value string
	err := s.db.QueryRowContext(ctx,
		"SELECT value FROM settings WHERE key = ?", key).Scan(&value)
	if err != nil {
		if def, ok := defaultSettings[key]; ok {
			return def, nil
		}
		return false, fmt.Errorf("read setting %s: %w", key, err)
	}
	return value == "TRUE", nil
}

// AllSettings returns every setting as key=value pairs, sorted by key.
func (s *SQLiteStore) AllSettings(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT key, value FROM settings")
	if err != nil {
		return nil, fmt.Errorf("list settings: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			return nil, err
		}
		out = append(out, k+" = "+v)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	sort.Strings(out)
	return out, nil
}
