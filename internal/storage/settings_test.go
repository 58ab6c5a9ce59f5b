package storage

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSeedSettings_Defaults(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	on, err := store.SettingBool(ctx, SettingRecordKick)
	require.NoError(t, err)
	assert.True(t, on)

	on, err = store.SettingBool(ctx, SettingEnablePurge)
	require.NoError(t, err)
	assert.False(t, on, "purge starts disabled")
}

func TestSeedSettings_FillsMissingKeysOnly(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.SetSetting(ctx, SettingRecordKick, "FALSE"))
	_, err := store.db.ExecContext(ctx, "DELETE FROM settings WHERE key = ?", SettingWhoOnJoin)
	require.NoError(t, err)

	require.NoError(t, store.SeedSettings(ctx))

	on, err := store.SettingBool(ctx, SettingRecordKick)
	require.NoError(t, err)
	assert.False(t, on, "explicit value survives reseeding")

	on, err = store.SettingBool(ctx, SettingWhoOnJoin)
	require.NoError(t, err)
	assert.True(t, on, "missing key refilled with its default")
}

func TestSetSetting_NormalizesCase(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.SetSetting(ctx, "enable_purge", "true"))

	on, err := store.SettingBool(ctx, SettingEnablePurge)
	require.NoError(t, err)
	assert.True(t, on)

	var value string
	require.NoError(t, store.db.QueryRowContext(ctx,
		"SELECT value FROM settings WHERE key = ?", SettingEnablePurge).Scan(&value))
	assert.Equal(t, "TRUE", value, "value stored uppercase")
}

func TestSetSetting_RejectsBadInput(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	assert.Error(t, store.SetSetting(ctx, "NO_SUCH_KEY", "TRUE"))
	assert.Error(t, store.SetSetting(ctx, SettingRecordKick, "yes"))
}

func TestSettingBool_DefaultWhenRowMissing(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	_, err := store.db.ExecContext(ctx, "DELETE FROM settings")
	require.NoError(t, err)

	on, err := store.SettingBool(ctx, SettingRecordWhois)
	require.NoError(t, err)
	assert.True(t, on)
}

func TestAllSettings_SortedPairs(t *testing.T) {
	store := openTestStore(t)

	lines, err := store.AllSettings(context.Background())
	require.NoError(t, err)
	require.Len(t, lines, len(defaultSettings))
	assert.Equal(t, "ENABLE_PURGE = FALSE", lines[0])
	assert.Contains(t, lines, "RECORD_KICK = TRUE")
}
