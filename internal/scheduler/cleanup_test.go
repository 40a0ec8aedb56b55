package scheduler

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/robfig/cron/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmylchreest/dashgate/internal/config"
)

type fakeLister struct {
	active []string
}

func (f *fakeLister) ListActive() []string { return f.active }

type fakeCatalog struct {
	channels []config.ChannelDescriptor
}

func (f *fakeCatalog) Channels() []config.ChannelDescriptor { return f.channels }

func mkStreamDir(t *testing.T, base, id string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Join(base, id), 0o755))
}

func TestCleanupScheduler_RemovesOrphanedDirs(t *testing.T) {
	base := t.TempDir()
	mkStreamDir(t, base, "orphan")
	mkStreamDir(t, base, "active-no-channel")
	mkStreamDir(t, base, "known-channel")

	lister := &fakeLister{active: []string{"active-no-channel"}}
	catalog := &fakeCatalog{channels: []config.ChannelDescriptor{{ID: "known-channel"}}}
	s := NewCleanupScheduler(CleanupConfig{OutputBaseDir: base}, lister, catalog, nil)

	s.sweepOnce()

	_, err := os.Stat(filepath.Join(base, "orphan"))
	assert.True(t, os.IsNotExist(err), "orphaned directory should be removed")

	_, err = os.Stat(filepath.Join(base, "active-no-channel"))
	assert.NoError(t, err, "active pipeline's directory must survive even if not in the channel catalog")

	_, err = os.Stat(filepath.Join(base, "known-channel"))
	assert.NoError(t, err, "known channel's directory must survive even if currently idle")
}

func TestCleanupScheduler_MissingBaseDirIsNotAnError(t *testing.T) {
	cfg := CleanupConfig{OutputBaseDir: filepath.Join(t.TempDir(), "does-not-exist")}
	s := NewCleanupScheduler(cfg, &fakeLister{}, &fakeCatalog{}, nil)

	assert.NotPanics(t, func() { s.sweepOnce() })
}

func TestCleanupScheduler_StartWithEmptyScheduleRegistersNoEntry(t *testing.T) {
	cfg := CleanupConfig{OutputBaseDir: t.TempDir(), CronSchedule: ""}
	s := NewCleanupScheduler(cfg, &fakeLister{}, &fakeCatalog{}, nil)

	require.NoError(t, s.Start())
	defer s.Stop()

	assert.Equal(t, cron.EntryID(0), s.entryID)
}

func TestDefaultCleanupConfig(t *testing.T) {
	cfg := DefaultCleanupConfig("/var/lib/dashgate/streams")
	assert.Equal(t, "/var/lib/dashgate/streams", cfg.OutputBaseDir)
	assert.Equal(t, DefaultCleanupSchedule, cfg.CronSchedule)
}
