package gateway

import (
	"bytes"
	"context"
	"crypto/aes"
	"crypto/cipher"
	"encoding/hex"
	"fmt"
	"io"
	"log/slog"

	mp4 "github.com/abema/go-mp4"

	"github.com/jmylchreest/dashgate/internal/ffmpeg"
)

// ActivityRecorder is the narrow interface the Decryptor uses to record a
// pipeline_error event when it falls through to the permissive passthrough
// tier. Satisfied by *repository.ActivityRepository.
type ActivityRecorder interface {
	Record(ctx context.Context, streamID, kind, detail string)
}

// Decryptor removes CENC-style encryption from a combined
// init-segment+media-segment buffer using a per-channel hex content key.
// It tries, in order: in-process CENC box parsing and AES-CTR decryption,
// an ffmpeg subprocess given the key via -decryption_key, and finally a
// permissive passthrough that returns the ciphertext unchanged, made
// observable here via structured logging and an ActivityEvent rather
// than failing the segment outright.
type Decryptor struct {
	ffmpegPath string
	logger     *slog.Logger
	activity   ActivityRecorder
}

// NewDecryptor creates a Decryptor that falls back to the given ffmpeg
// binary path, logging with logger and optionally recording passthrough
// events through activity (nil disables recording).
func NewDecryptor(ffmpegPath string, logger *slog.Logger, activity ActivityRecorder) *Decryptor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Decryptor{ffmpegPath: ffmpegPath, logger: logger, activity: activity}
}

// Decrypt decrypts data for the given stream using key (hex-encoded CENC
// content key). An empty key means the content is unencrypted and data is
// returned unchanged.
func (d *Decryptor) Decrypt(ctx context.Context, streamID, url string, data []byte, key string) ([]byte, error) {
	if key == "" {
		return data, nil
	}

	keyBytes, err := hex.DecodeString(key)
	if err != nil {
		return nil, &DecryptError{StreamID: streamID, Err: fmt.Errorf("invalid content key: %w", err)}
	}

	if out, err := decryptCENC(data, keyBytes); err == nil {
		return out, nil
	} else {
		d.logger.Debug("in-process CENC decrypt failed, falling back to ffmpeg",
			slog.String("stream_id", streamID),
			slog.String("error", err.Error()),
		)
	}

	if out, err := d.decryptWithFFmpeg(ctx, key, data); err == nil {
		return out, nil
	} else {
		d.logger.Warn("ffmpeg decrypt fallback failed, passing ciphertext through unmodified",
			slog.String("stream_id", streamID),
			slog.String("url", url),
			slog.String("error", err.Error()),
		)
	}

	if d.activity != nil {
		d.activity.Record(ctx, streamID, "pipeline_error", fmt.Sprintf("decrypt fallback exhausted for %s, passing through ciphertext", url))
	}

	return data, nil
}

// decryptCENC parses the moof/traf/senc box to recover per-sample
// initialization vectors and decrypts each sample in the mdat payload with
// AES-CTR, assuming whole-sample (not subsample) encryption, the common
// case for CENC 'cenc' scheme audio and video tracks.
func decryptCENC(data []byte, key []byte) ([]byte, error) {
	ivs, sampleSizes, mdatOffset, err := parseCENCLayout(data)
	if err != nil {
		return nil, err
	}
	if len(ivs) == 0 {
		return nil, fmt.Errorf("no senc box found")
	}
	if len(ivs) != len(sampleSizes) {
		return nil, fmt.Errorf("senc entry count %d does not match trun sample count %d", len(ivs), len(sampleSizes))
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("building AES cipher: %w", err)
	}

	out := make([]byte, len(data))
	copy(out, data)

	offset := mdatOffset
	for i, size := range sampleSizes {
		if offset+int(size) > len(out) {
			return nil, fmt.Errorf("sample %d exceeds buffer bounds", i)
		}
		iv := make([]byte, 16)
		copy(iv, ivs[i])
		stream := cipher.NewCTR(block, iv)
		stream.XORKeyStream(out[offset:offset+int(size)], out[offset:offset+int(size)])
		offset += int(size)
	}

	return out, nil
}

// parseCENCLayout walks the fragment's box tree collecting senc
// initialization vectors, trun sample sizes, and the byte offset of the
// mdat payload.
func parseCENCLayout(data []byte) (ivs [][]byte, sampleSizes []uint32, mdatOffset int, err error) {
	r := bytes.NewReader(data)

	_, err = mp4.ReadBoxStructure(r, func(h *mp4.BoxInfo) (interface{}, error) {
		switch h.Type {
		case mp4.BoxTypeSenc():
			box, _, decErr := h.ReadPayload()
			if decErr != nil {
				return nil, decErr
			}
			senc, ok := box.(*mp4.Senc)
			if !ok {
				return h.Expand()
			}
			for _, entry := range senc.Entries {
				ivs = append(ivs, entry.InitializationVector[:])
			}
			return nil, nil

		case mp4.BoxTypeTrun():
			box, _, decErr := h.ReadPayload()
			if decErr != nil {
				return nil, decErr
			}
			trun, ok := box.(*mp4.Trun)
			if !ok {
				return h.Expand()
			}
			for _, entry := range trun.Entries {
				sampleSizes = append(sampleSizes, entry.SampleSize)
			}
			return nil, nil

		case mp4.BoxTypeMdat():
			mdatOffset = int(h.Offset) + 8
			return nil, nil

		case mp4.BoxTypeMoof(), mp4.BoxTypeTraf():
			return h.Expand()

		default:
			return nil, nil
		}
	})
	if err != nil {
		return nil, nil, 0, fmt.Errorf("walking mp4 box structure: %w", err)
	}
	if mdatOffset == 0 {
		return nil, nil, 0, fmt.Errorf("no mdat box found")
	}

	return ivs, sampleSizes, mdatOffset, nil
}

// decryptWithFFmpeg shells out to ffmpeg with -decryption_key as a fallback
// when in-process CENC parsing fails (e.g. subsample encryption or an
// unexpected box layout), mirroring the original source's subprocess
// fallback.
func (d *Decryptor) decryptWithFFmpeg(ctx context.Context, key string, data []byte) ([]byte, error) {
	cmd := ffmpeg.NewCommandBuilder(d.ffmpegPath).
		HideBanner().
		Overwrite().
		DecryptionKey(key).
		Input("pipe:0").
		OutputArgs("-c", "copy", "-f", "mp4", "-movflags", "frag_keyframe+empty_moov").
		Output("pipe:1").
		Build()

	proc, err := cmd.StartWithStdin(ctx)
	if err != nil {
		return nil, fmt.Errorf("starting ffmpeg decrypt: %w", err)
	}

	writeErrCh := make(chan error, 1)
	go func() {
		_, werr := proc.Stdin.Write(data)
		writeErrCh <- werr
		proc.Stdin.Close()
	}()

	out, readErr := io.ReadAll(proc.Stdout)
	writeErr := <-writeErrCh
	waitErr := proc.Wait()

	if waitErr != nil {
		return nil, fmt.Errorf("ffmpeg decrypt exited with error: %w", waitErr)
	}
	if writeErr != nil {
		return nil, fmt.Errorf("writing to ffmpeg stdin: %w", writeErr)
	}
	if readErr != nil {
		return nil, fmt.Errorf("reading ffmpeg stdout: %w", readErr)
	}

	return out, nil
}
