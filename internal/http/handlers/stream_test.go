package handlers

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmylchreest/dashgate/internal/config"
	"github.com/jmylchreest/dashgate/internal/gateway"
)

func newTestStreamHandler(t *testing.T) *StreamHandler {
	t.Helper()
	channels := []config.ChannelDescriptor{
		{ID: "chan1", Name: "Channel One", URL: "https://example.test/manifest.mpd"},
	}
	manager := gateway.NewManager(channels, gateway.ManagerConfig{OutputBaseDir: t.TempDir()}, nil, nil, nil)
	t.Cleanup(manager.Close)
	return NewStreamHandler(manager, nil, nil)
}

func TestStreamHandler_ChannelsReturnsCatalogWithoutSecrets(t *testing.T) {
	h := newTestStreamHandler(t)

	out, err := h.Channels(context.Background(), &ChannelsInput{})
	require.NoError(t, err)
	require.Len(t, out.Body, 1)
	assert.Equal(t, "chan1", out.Body[0].ID)
	assert.Equal(t, "Channel One", out.Body[0].Name)
}

func TestStreamHandler_StatusEmptyInitially(t *testing.T) {
	h := newTestStreamHandler(t)

	out, err := h.Status(context.Background(), &StatusInput{})
	require.NoError(t, err)
	assert.Empty(t, out.Body)
}

func TestStreamHandler_InitUnknownChannelReturns404(t *testing.T) {
	h := newTestStreamHandler(t)

	_, err := h.Init(context.Background(), &InitInput{StreamID: "missing"})
	require.Error(t, err)
}

func TestStreamHandler_DetailsUnknownChannelReturns404(t *testing.T) {
	h := newTestStreamHandler(t)

	_, err := h.Details(context.Background(), &DetailsInput{StreamID: "missing"})
	require.Error(t, err)
}

func TestStreamHandler_DetailsKnownChannelInactive(t *testing.T) {
	h := newTestStreamHandler(t)

	out, err := h.Details(context.Background(), &DetailsInput{StreamID: "chan1"})
	require.NoError(t, err)
	assert.Equal(t, "chan1", out.Body.ID)
	assert.False(t, out.Body.Active)
}

func TestStreamFileContentType(t *testing.T) {
	cases := map[string]struct {
		contentType string
		ok          bool
	}{
		"master.m3u8":  {"application/vnd.apple.mpegurl", true},
		"segment_1.ts": {"video/mp2t", true},
		"init.m4s":     {"video/mp2t", true},
		"readme.txt":   {"", false},
		"noextension":  {"", false},
	}
	for path, want := range cases {
		ct, ok := streamFileContentType(path)
		assert.Equal(t, want.ok, ok, path)
		assert.Equal(t, want.contentType, ct, path)
	}
}
