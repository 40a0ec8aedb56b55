package gateway

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/jmylchreest/dashgate/internal/ffmpeg"
)

// HLSWriter owns a long-lived ffmpeg subprocess that consumes a stream of
// MPEG-TS bytes on stdin and maintains a rolling HLS playlist and segment
// window on disk: one ffmpeg per active channel, not one per segment.
type HLSWriter struct {
	streamID string
	dir      string
	logger   *slog.Logger

	mu     sync.Mutex
	cmd    *ffmpeg.Command
	proc   *ffmpeg.PipedProcess
	closed bool
}

// HLSWriterConfig controls the playlist window the writer maintains.
type HLSWriterConfig struct {
	SegmentSeconds int // target segment duration, default 4
	PlaylistSize   int // number of segments kept in master.m3u8, default 6
}

// DefaultHLSWriterConfig returns the window sizing used when a channel does
// not override it.
func DefaultHLSWriterConfig() HLSWriterConfig {
	return HLSWriterConfig{SegmentSeconds: 4, PlaylistSize: 6}
}

// NewHLSWriter starts the ffmpeg subprocess writing playlist and segment
// files under dir (one directory per active stream). dir must already
// exist.
func NewHLSWriter(ctx context.Context, ffmpegPath, streamID, dir string, cfg HLSWriterConfig, logger *slog.Logger) (*HLSWriter, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.SegmentSeconds <= 0 {
		cfg.SegmentSeconds = DefaultHLSWriterConfig().SegmentSeconds
	}
	if cfg.PlaylistSize <= 0 {
		cfg.PlaylistSize = DefaultHLSWriterConfig().PlaylistSize
	}

	playlistPath := filepath.Join(dir, "master.m3u8")
	segmentPattern := filepath.Join(dir, "segment_%03d.ts")

	cmd := ffmpeg.NewCommandBuilder(ffmpegPath).
		HideBanner().
		Overwrite().
		Input("pipe:0").
		VideoCodec("copy").
		AudioCodec("aac").
		AudioChannels(2).
		OutputArgs("-channel_layout", "stereo", "-b:a", "128k", "-ar", "48000").
		HLSArgs(cfg.SegmentSeconds, cfg.PlaylistSize).
		OutputArgs("-hls_segment_type", "mpegts", "-hls_segment_filename", segmentPattern).
		Output(playlistPath).
		Build()

	proc, err := cmd.StartWithStdin(ctx)
	if err != nil {
		return nil, &WriterBrokenPipe{StreamID: streamID, Err: fmt.Errorf("starting hls writer: %w", err)}
	}

	w := &HLSWriter{streamID: streamID, dir: dir, logger: logger, cmd: cmd, proc: proc}

	go w.drainStderr()

	return w, nil
}

// drainStderr waits for the subprocess to exit and logs non-zero exits;
// ffmpeg's own stderr capture is handled internally by Command.
func (w *HLSWriter) drainStderr() {
	if err := w.proc.Wait(); err != nil {
		w.mu.Lock()
		alreadyClosed := w.closed
		w.mu.Unlock()
		if !alreadyClosed {
			lines := w.cmd.GetStderrLines()
			w.logger.Error("hls writer process exited unexpectedly",
				slog.String("stream_id", w.streamID),
				slog.Any("error", err),
				slog.Any("stderr_tail", lines),
			)
		}
	}
}

// Write sends a muxed MPEG-TS buffer to the writer's ffmpeg stdin.
func (w *HLSWriter) Write(data []byte) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return &WriterBrokenPipe{StreamID: w.streamID, Err: fmt.Errorf("writer already closed")}
	}

	if _, err := w.proc.Stdin.Write(data); err != nil {
		return &WriterBrokenPipe{StreamID: w.streamID, Err: err}
	}
	return nil
}

// PlaylistPath returns the path to the master playlist this writer
// maintains.
func (w *HLSWriter) PlaylistPath() string {
	return filepath.Join(w.dir, "master.m3u8")
}

// Close stops accepting writes, closes ffmpeg's stdin so it can flush and
// exit cleanly, and removes the stream's on-disk segment directory.
func (w *HLSWriter) Close() error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return nil
	}
	w.closed = true
	w.mu.Unlock()

	closeErr := w.proc.Stdin.Close()
	_ = w.cmd.Kill()
	_ = os.RemoveAll(w.dir)
	return closeErr
}
