package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestAutosaveConfigDefaultsWithoutFile(t *testing.T) {
	dir := t.TempDir()
	holder, err := NewAutosaveConfigHolder(Config{
		AutosaveConfigPath: filepath.Join(dir, "missing.yml"),
		AutosaveDelay:      3 * time.Second,
	}, zap.NewNop())
	require.NoError(t, err)
	assert.True(t, holder.Get().Enabled)
	assert.Equal(t, 3*time.Second, holder.Get().Delay)
}

func TestAutosaveConfigFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "quotedesk.yml")
	require.NoError(t, os.WriteFile(path, []byte("autosave:\n  enabled: false\n  delay: 1500ms\n"), 0o600))

	holder, err := NewAutosaveConfigHolder(Config{AutosaveConfigPath: path}, zap.NewNop())
	require.NoError(t, err)

	cfg := holder.Get()
	assert.False(t, cfg.Enabled)
	assert.Equal(t, 1500*time.Millisecond, cfg.Delay)
}

func TestAutosaveConfigRejectsOutOfRangeDelay(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "quotedesk.yml")
	require.NoError(t, os.WriteFile(path, []byte("autosave:\n  delay: 10ms\n"), 0o600))

	_, err := NewAutosaveConfigHolder(Config{AutosaveConfigPath: path}, zap.NewNop())
	assert.Error(t, err)
}

// replaceFile swaps content in with a rename so watchers never see a truncated file.
func replaceFile(t *testing.T, path, content string) {
	t.Helper()
	tmp := path + ".tmp"
	require.NoError(t, os.WriteFile(tmp, []byte(content), 0o600))
	require.NoError(t, os.Rename(tmp, path))
}

func TestAutosaveConfigReloadsOnChange(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "quotedesk.yml")
	require.NoError(t, os.WriteFile(path, []byte("autosave:\n  delay: 1s\n"), 0o600))

	holder, err := NewAutosaveConfigHolder(Config{AutosaveConfigPath: path}, zap.NewNop())
	require.NoError(t, err)
	require.Equal(t, time.Second, holder.Get().Delay)

	replaceFile(t, path, "autosave:\n  delay: 4s\n")
	require.Eventually(t, func() bool {
		return holder.Get().Delay == 4*time.Second
	}, 5*time.Second, 20*time.Millisecond)

	// invalid values keep the last good config
	replaceFile(t, path, "autosave:\n  delay: 10ms\n")
	time.Sleep(200 * time.Millisecond)
	assert.Equal(t, 4*time.Second, holder.Get().Delay)
}

func TestNormalizeDraftStore(t *testing.T) {
	assert.Equal(t, DraftStoreRedis, normalizeDraftStore(" Redis "))
	assert.Equal(t, DraftStoreDB, normalizeDraftStore("memcached"))
}
