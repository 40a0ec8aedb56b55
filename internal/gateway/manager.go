package gateway

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/jmylchreest/dashgate/internal/config"
	"github.com/jmylchreest/dashgate/internal/httpclient"
)

// ErrChannelNotFound is returned when a stream ID does not match any
// configured channel.
var ErrChannelNotFound = fmt.Errorf("channel not found")

// ManagerConfig controls the stream manager's lifecycle behavior.
type ManagerConfig struct {
	Gateway       config.GatewayConfig
	FFmpegPath    string
	OutputBaseDir string
	IdleTimeout   time.Duration
	SweepInterval time.Duration
}

// DefaultManagerConfig returns the idle/sweep defaults used when none are
// configured: a 120s idle timeout checked by a 15s sweep.
func DefaultManagerConfig() ManagerConfig {
	return ManagerConfig{
		IdleTimeout:   120 * time.Second,
		SweepInterval: 15 * time.Second,
	}
}

// StreamDetails is the manager's externally-observable view of one active
// stream, surfaced by the HTTP details endpoint.
type StreamDetails struct {
	StreamID     string    `json:"stream_id"`
	ChannelName  string    `json:"channel_name"`
	Active       bool      `json:"active"`
	LastAccess   time.Time `json:"last_access"`
	PlaylistPath string    `json:"playlist_path"`
}

// Manager owns every active channel's Pipeline and HLSWriter, activating
// them on first request and evicting them after a period of inactivity.
type Manager struct {
	channels map[string]config.ChannelDescriptor
	cfg      ManagerConfig
	client   *httpclient.Client
	decrypt  *Decryptor
	mux      *Muxer
	activity ActivityRecorder
	logger   *slog.Logger

	mu      sync.Mutex
	handles map[string]*PipelineHandle
	wg      sync.WaitGroup
	ctx     context.Context
	cancel  context.CancelFunc
}

// NewManager creates a Manager for the given channel catalog.
func NewManager(channels []config.ChannelDescriptor, cfg ManagerConfig, client *httpclient.Client, activity ActivityRecorder, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.IdleTimeout <= 0 {
		cfg.IdleTimeout = DefaultManagerConfig().IdleTimeout
	}
	if cfg.SweepInterval <= 0 {
		cfg.SweepInterval = DefaultManagerConfig().SweepInterval
	}

	byID := make(map[string]config.ChannelDescriptor, len(channels))
	for _, ch := range channels {
		byID[ch.ID] = ch
	}

	ctx, cancel := context.WithCancel(context.Background())

	m := &Manager{
		channels: byID,
		cfg:      cfg,
		client:   client,
		decrypt:  NewDecryptor(cfg.FFmpegPath, logger, activity),
		mux:      NewMuxer(cfg.FFmpegPath),
		activity: activity,
		logger:   logger,
		handles:  make(map[string]*PipelineHandle),
		ctx:      ctx,
		cancel:   cancel,
	}

	m.wg.Add(1)
	go m.sweepLoop()

	return m
}

// Activate returns the running pipeline handle for streamID, starting one
// if it is not already active, and records an activation ActivityEvent on
// first start.
func (m *Manager) Activate(ctx context.Context, streamID string) (*PipelineHandle, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if handle, ok := m.handles[streamID]; ok && handle.IsActive() {
		handle.Touch()
		return handle, nil
	}

	channel, ok := m.channels[streamID]
	if !ok {
		return nil, ErrChannelNotFound
	}

	dir := StreamDir(m.cfg.OutputBaseDir, streamID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating stream output dir: %w", err)
	}

	pipelineCtx, cancel := context.WithCancel(m.ctx)

	writerCfg := DefaultHLSWriterConfig()
	if m.cfg.Gateway.SegmentDuration > 0 {
		writerCfg.SegmentSeconds = int(m.cfg.Gateway.SegmentDuration.Seconds())
	}
	if m.cfg.Gateway.MaxSegments > 0 {
		writerCfg.PlaylistSize = m.cfg.Gateway.MaxSegments
	}

	writer, err := NewHLSWriter(pipelineCtx, m.cfg.FFmpegPath, streamID, dir, writerCfg, m.logger)
	if err != nil {
		cancel()
		return nil, err
	}

	pipeline := NewPipeline(channel, m.cfg.Gateway, m.client, m.decrypt, m.mux, writer, m.logger)

	handle := &PipelineHandle{Channel: channel}
	handle.setActive(true)
	handle.Touch()
	handle.cancel = cancel
	handle.writer = writer

	m.handles[streamID] = handle

	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		defer writer.Close()
		defer handle.setActive(false)

		if err := pipeline.Run(pipelineCtx); err != nil && pipelineCtx.Err() == nil {
			m.logger.Error("pipeline exited with error",
				slog.String("stream_id", streamID),
				slog.Any("error", err),
			)
			if m.activity != nil {
				m.activity.Record(ctx, streamID, "pipeline_error", err.Error())
			}
		}
	}()

	if m.activity != nil {
		m.activity.Record(ctx, streamID, "activated", fmt.Sprintf("pipeline started for channel %s", channel.Name))
	}

	return handle, nil
}

// Touch refreshes the last-access timestamp for an already-active stream,
// keeping it alive against the idle sweep. Returns false if the stream is
// not currently active.
func (m *Manager) Touch(streamID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	handle, ok := m.handles[streamID]
	if !ok || !handle.IsActive() {
		return false
	}
	handle.Touch()
	return true
}

// ListActive returns the stream IDs of every currently active pipeline.
func (m *Manager) ListActive() []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	ids := make([]string, 0, len(m.handles))
	for id, handle := range m.handles {
		if handle.IsActive() {
			ids = append(ids, id)
		}
	}
	return ids
}

// Details returns the current state of a stream, active or not, for any
// known channel ID.
func (m *Manager) Details(streamID string) (StreamDetails, error) {
	channel, ok := m.channels[streamID]
	if !ok {
		return StreamDetails{}, ErrChannelNotFound
	}

	m.mu.Lock()
	handle := m.handles[streamID]
	m.mu.Unlock()

	details := StreamDetails{StreamID: streamID, ChannelName: channel.Name}
	if handle != nil {
		details.Active = handle.IsActive()
		details.LastAccess = handle.LastAccess()
		details.PlaylistPath = handle.writer.PlaylistPath()
	}
	return details, nil
}

// Channels returns every configured channel descriptor.
func (m *Manager) Channels() []config.ChannelDescriptor {
	out := make([]config.ChannelDescriptor, 0, len(m.channels))
	for _, ch := range m.channels {
		out = append(out, ch)
	}
	return out
}

// Close stops every active pipeline and waits for their goroutines to
// finish.
func (m *Manager) Close() {
	m.cancel()
	m.wg.Wait()
}

// sweepLoop periodically evicts streams that have gone untouched longer
// than the configured idle timeout.
func (m *Manager) sweepLoop() {
	defer m.wg.Done()

	ticker := time.NewTicker(m.cfg.SweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-m.ctx.Done():
			return
		case <-ticker.C:
			m.evictIdle()
		}
	}
}

// evictIdle stops and removes every handle whose last access exceeds the
// idle timeout: stop pipeline, remove from the active map, then let the
// pipeline's own deferred writer.Close() remove the on-disk directory.
func (m *Manager) evictIdle() {
	m.mu.Lock()
	var toEvict []string
	for id, handle := range m.handles {
		if handle.IsActive() && time.Since(handle.LastAccess()) > m.cfg.IdleTimeout {
			toEvict = append(toEvict, id)
		}
	}
	for _, id := range toEvict {
		handle := m.handles[id]
		handle.cancel()
		delete(m.handles, id)
	}
	m.mu.Unlock()

	for _, id := range toEvict {
		m.logger.Info("evicting idle stream", slog.String("stream_id", id))
		if m.activity != nil {
			m.activity.Record(m.ctx, id, "evicted", "idle timeout exceeded")
		}
	}
}
