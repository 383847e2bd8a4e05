package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func TestSyncConfigDefaultsWithoutFile(t *testing.T) {
	holder, err := loadSyncConfigHolder(zaptest.NewLogger(t), t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, DefaultSyncConfig(), holder.Get())
}

func TestSyncConfigFromFile(t *testing.T) {
	dir := t.TempDir()
	body := []byte(`sync:
  horizonDays: 30
  workers: 8
  externalTimeout: 5s
  activeStatuses: ["active", "trialing", "past_due"]
`)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "sync.yml"), body, 0o600))

	holder, err := loadSyncConfigHolder(zaptest.NewLogger(t), dir)
	require.NoError(t, err)

	cfg := holder.Get()
	assert.Equal(t, 30, cfg.HorizonDays)
	assert.Equal(t, 8, cfg.Workers)
	assert.Equal(t, 5*time.Second, cfg.ExternalTimeout)
	assert.Equal(t, []string{"active", "trialing", "past_due"}, cfg.ActiveStatuses)
	assert.Equal(t, 120, cfg.StartupHorizonDays)
}

func TestSyncConfigPartialFileKeepsDefaults(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "sync.yml"), []byte("sync:\n  horizonDays: 45\n"), 0o600))

	holder, err := loadSyncConfigHolder(zaptest.NewLogger(t), dir)
	require.NoError(t, err)

	want := DefaultSyncConfig()
	want.HorizonDays = 45
	assert.Equal(t, want, holder.Get())
}

func TestSyncConfigEnvAliasOverridesFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "sync.yml"), []byte("sync:\n  workers: 8\n"), 0o600))
	t.Setenv("SYNC_WORKERS", "3")
	t.Setenv("SYNC_RUN_INTERVAL", "15m")

	holder, err := loadSyncConfigHolder(zaptest.NewLogger(t), dir)
	require.NoError(t, err)

	cfg := holder.Get()
	assert.Equal(t, 3, cfg.Workers)
	assert.Equal(t, 15*time.Minute, cfg.RunInterval)
	assert.Equal(t, 2*time.Minute, cfg.LockTTL)
}

func TestSyncConfigEnvAlias(t *testing.T) {
	t.Setenv("SYNC_WORKERS", "2")
	t.Setenv("SYNC_ACTIVE_STATUSES", "active, past_due")

	holder, err := loadSyncConfigHolder(zaptest.NewLogger(t), t.TempDir())
	require.NoError(t, err)

	cfg := holder.Get()
	assert.Equal(t, 2, cfg.Workers)
	assert.Equal(t, []string{"active", "past_due"}, cfg.ActiveStatuses)
}

func TestSyncConfigRejectsInvalidValues(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "sync.yml"), []byte("sync:\n  workers: 0\n"), 0o600))

	_, err := loadSyncConfigHolder(zaptest.NewLogger(t), dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "sync.workers")
}

func TestLocationFallsBackToUTC(t *testing.T) {
	assert.Equal(t, time.UTC, Config{Timezone: "Nowhere/Invalid"}.Location())
	assert.Equal(t, "America/New_York", Config{Timezone: "America/New_York"}.Location().String())
}
