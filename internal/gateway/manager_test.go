package gateway

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmylchreest/dashgate/internal/config"
)

func newTestManager(t *testing.T) *Manager {
	t.Helper()
	channels := []config.ChannelDescriptor{
		{ID: "chan1", Name: "Channel One", URL: "https://example.com/manifest.mpd"},
	}
	m := NewManager(channels, ManagerConfig{OutputBaseDir: t.TempDir()}, nil, nil, nil)
	t.Cleanup(m.Close)
	return m
}

func TestManager_ActivateUnknownChannel(t *testing.T) {
	m := newTestManager(t)

	_, err := m.Activate(context.Background(), "does-not-exist")
	require.ErrorIs(t, err, ErrChannelNotFound)
}

func TestManager_DetailsUnknownChannel(t *testing.T) {
	m := newTestManager(t)

	_, err := m.Details("does-not-exist")
	require.ErrorIs(t, err, ErrChannelNotFound)
}

func TestManager_ListActiveEmptyInitially(t *testing.T) {
	m := newTestManager(t)

	assert.Empty(t, m.ListActive())
}

func TestManager_ChannelsReturnsCatalog(t *testing.T) {
	m := newTestManager(t)

	channels := m.Channels()
	require.Len(t, channels, 1)
	assert.Equal(t, "chan1", channels[0].ID)
}

func TestManager_TouchUnknownStreamReturnsFalse(t *testing.T) {
	m := newTestManager(t)

	assert.False(t, m.Touch("does-not-exist"))
}

func TestDefaultManagerConfig(t *testing.T) {
	cfg := DefaultManagerConfig()
	assert.Equal(t, int64(120), int64(cfg.IdleTimeout.Seconds()))
	assert.Equal(t, int64(15), int64(cfg.SweepInterval.Seconds()))
}
