package gateway

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/jmylchreest/dashgate/internal/ffmpeg"
)

// Muxer combines one video and one audio segment into a single MPEG-TS
// buffer ready for the HLS writer's stdin, via one ffmpeg invocation per
// segment pair.
type Muxer struct {
	ffmpegPath string
}

// NewMuxer creates a Muxer that invokes the given ffmpeg binary.
func NewMuxer(ffmpegPath string) *Muxer {
	return &Muxer{ffmpegPath: ffmpegPath}
}

// Mux writes video and audio to temporary files (ffmpeg needs seekable
// inputs to mux two elementary streams together) and returns the combined
// MPEG-TS bytes, re-encoding audio to AAC while copying video untouched.
func (m *Muxer) Mux(ctx context.Context, video, audio []byte) ([]byte, error) {
	videoFile, err := writeTempSegment("dashgate-mux-video-*.mp4", video)
	if err != nil {
		return nil, &MuxError{Err: fmt.Errorf("writing video temp file: %w", err)}
	}
	defer os.Remove(videoFile)

	audioFile, err := writeTempSegment("dashgate-mux-audio-*.mp4", audio)
	if err != nil {
		return nil, &MuxError{Err: fmt.Errorf("writing audio temp file: %w", err)}
	}
	defer os.Remove(audioFile)

	cmd := ffmpeg.NewCommandBuilder(m.ffmpegPath).
		HideBanner().
		Overwrite().
		Input(videoFile).
		AddInput(audioFile).
		StreamMap("0:v:0").
		StreamMap("1:a:0").
		VideoCodec("copy").
		AudioCodec("aac").
		MpegtsArgs().
		Output("pipe:1").
		Build()

	proc, err := cmd.StartWithStdin(ctx)
	if err != nil {
		return nil, &MuxError{Err: fmt.Errorf("starting ffmpeg mux: %w", err)}
	}
	proc.Stdin.Close()

	out, readErr := io.ReadAll(proc.Stdout)
	waitErr := proc.Wait()

	if waitErr != nil {
		stderr := ""
		if stderrLines := cmd.GetStderrLines(); len(stderrLines) > 0 {
			stderr = stderrLines[len(stderrLines)-1]
		}
		return nil, &MuxError{Stderr: stderr, Err: waitErr}
	}
	if readErr != nil {
		return nil, &MuxError{Err: fmt.Errorf("reading muxed output: %w", readErr)}
	}

	return out, nil
}

func writeTempSegment(pattern string, data []byte) (string, error) {
	f, err := os.CreateTemp("", pattern)
	if err != nil {
		return "", err
	}
	defer f.Close()

	if _, err := f.Write(data); err != nil {
		os.Remove(f.Name())
		return "", err
	}

	return f.Name(), nil
}
