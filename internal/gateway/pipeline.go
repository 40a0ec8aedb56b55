package gateway

import (
	"context"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/jmylchreest/dashgate/internal/codec"
	"github.com/jmylchreest/dashgate/internal/config"
	"github.com/jmylchreest/dashgate/internal/dash"
	"github.com/jmylchreest/dashgate/internal/httpclient"
)

// pollRetryInterval is the sleep between iterations, and the sleep before
// retrying after a failed iteration.
const pollRetryInterval = 1 * time.Second

// Pipeline drives one channel's ingest loop: fetch the live manifest,
// select representations, download and decrypt new segments, mux them,
// and feed the result to the channel's HLS writer. One Pipeline runs for
// the lifetime of a PipelineHandle.
type Pipeline struct {
	channel config.ChannelDescriptor
	cfg     config.GatewayConfig
	client  *httpclient.Client
	state   *StreamState
	decrypt *Decryptor
	mux     *Muxer
	writer  *HLSWriter
	logger  *slog.Logger

	loggedVideoCodec string
	loggedAudioCodec string
}

// NewPipeline assembles a Pipeline for channel, feeding its muxed output to
// writer.
func NewPipeline(channel config.ChannelDescriptor, cfg config.GatewayConfig, client *httpclient.Client, decrypt *Decryptor, mux *Muxer, writer *HLSWriter, logger *slog.Logger) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{
		channel: channel,
		cfg:     cfg,
		client:  client,
		state:   NewStreamState(channel),
		decrypt: decrypt,
		mux:     mux,
		writer:  writer,
		logger:  logger.With(slog.String("stream_id", channel.ID)),
	}
}

// StreamDir returns the on-disk directory name this channel's HLS writer
// should use, relative to a storage base directory.
func StreamDir(base, streamID string) string {
	return filepath.Join(base, streamID)
}

// Run executes the fetch-select-download-decrypt-mux-write loop until ctx
// is canceled, polling the manifest at cfg.ManifestPollInterval and falling
// back to pollRetryInterval between iterations that fail.
func (p *Pipeline) Run(ctx context.Context) error {
	interval := p.cfg.ManifestPollInterval
	if interval <= 0 {
		interval = pollRetryInterval
	}

	for {
		wait := interval
		if err := p.tick(ctx); err != nil {
			p.logger.Error("pipeline iteration failed", slog.Any("error", err))
			wait = pollRetryInterval
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}
	}
}

// tick runs a single fetch-to-write iteration. Any segment pair failure
// aborts the whole iteration without recording progress, so the next tick
// retries the same URLs instead of skipping over them.
func (p *Pipeline) tick(ctx context.Context) error {
	mpd, err := dash.Fetch(ctx, p.client, p.channel.URL)
	if err != nil {
		return &ManifestFetchError{URL: p.channel.URL, Err: err}
	}

	videoIdx := p.channel.PreferredVideoIndex
	if videoIdx == 0 {
		videoIdx = p.cfg.PreferredVideoIndex
	}
	audioIdx := p.channel.PreferredAudioIndex
	if audioIdx == 0 {
		audioIdx = p.cfg.PreferredAudioIndex
	}

	video, audio, err := Select(mpd, p.channel.URL, videoIdx, audioIdx)
	if err != nil {
		return err
	}

	p.logCodecChange(video.Codecs, audio.Codecs)

	if p.state.HasProcessed(video.SegmentURLs, audio.SegmentURLs) {
		return nil
	}

	if err := DownloadInitSegment(ctx, p.client, p.state, video.InitURL, "video"); err != nil {
		return err
	}
	if err := DownloadInitSegment(ctx, p.client, p.state, audio.InitURL, "audio"); err != nil {
		return err
	}

	n := len(video.SegmentURLs)
	if len(audio.SegmentURLs) < n {
		n = len(audio.SegmentURLs)
	}

	for i := 0; i < n; i++ {
		if err := p.processPair(ctx, video.SegmentURLs[i], audio.SegmentURLs[i]); err != nil {
			return err
		}
	}

	p.state.RecordProcessed(video.SegmentURLs, audio.SegmentURLs)
	return nil
}

// processPair downloads, decrypts, muxes, and writes one video/audio
// segment pair.
func (p *Pipeline) processPair(ctx context.Context, videoURL, audioURL string) error {
	videoData, err := DownloadSegment(ctx, p.client, p.state, videoURL, "video")
	if err != nil {
		return err
	}
	audioData, err := DownloadSegment(ctx, p.client, p.state, audioURL, "audio")
	if err != nil {
		return err
	}

	videoData, err = p.decrypt.Decrypt(ctx, p.channel.ID, videoURL, videoData, p.channel.Key)
	if err != nil {
		return err
	}
	audioData, err = p.decrypt.Decrypt(ctx, p.channel.ID, audioURL, audioData, p.channel.Key)
	if err != nil {
		return err
	}

	tsData, err := p.mux.Mux(ctx, videoData, audioData)
	if err != nil {
		return err
	}

	p.state.NextSequence()

	return p.writer.Write(tsData)
}

// logCodecChange normalizes a manifest's raw codec strings and logs them
// once per distinct video/audio pair, so a mid-stream representation
// switch is visible without logging on every tick.
func (p *Pipeline) logCodecChange(videoCodecs, audioCodecs string) {
	video := codec.NormalizeHLSCodec(videoCodecs)
	audio := codec.NormalizeHLSCodec(audioCodecs)
	if video == p.loggedVideoCodec && audio == p.loggedAudioCodec {
		return
	}
	p.loggedVideoCodec = video
	p.loggedAudioCodec = audio
	p.logger.Info("selected representation codecs",
		slog.String("video_codec", video),
		slog.String("audio_codec", audio),
		slog.Bool("video_fmp4_only", codec.VideoRequiresFMP4(video)),
		slog.Bool("audio_fmp4_only", codec.AudioRequiresFMP4(audio)),
	)
}
