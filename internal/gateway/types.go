// Package gateway implements the DASH-to-HLS ingest pipeline: manifest
// fetch, representation selection, segment download/decrypt, MPEG-TS mux,
// and the rolling HLS writer, plus the stream manager that owns their
// lifecycles.
package gateway

import (
	"sync"
	"time"

	"github.com/jmylchreest/dashgate/internal/config"
)

// StreamState tracks the mutable per-channel state carried between pipeline
// iterations: cached init segments and the last-emitted segment URL pairs,
// used to detect that a manifest refresh produced no new work.
type StreamState struct {
	Channel config.ChannelDescriptor

	mu               sync.Mutex
	initSegments     map[string][]byte // keyed by "video"/"audio"
	sequenceNumber   uint32
	lastVideoURLs    []string
	lastAudioURLs    []string
}

// NewStreamState creates an empty StreamState for the given channel.
func NewStreamState(channel config.ChannelDescriptor) *StreamState {
	return &StreamState{
		Channel:      channel,
		initSegments: make(map[string][]byte),
	}
}

// InitSegment returns the cached init segment bytes for kind ("video" or
// "audio"), or nil if none has been downloaded yet.
func (s *StreamState) InitSegment(kind string) []byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.initSegments[kind]
}

// SetInitSegment caches the init segment bytes for kind.
func (s *StreamState) SetInitSegment(kind string, data []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.initSegments[kind] = data
}

// NextSequence returns the next monotonically increasing sequence number.
// The pipeline advances it once per muxed segment pair.
func (s *StreamState) NextSequence() uint32 {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := s.sequenceNumber
	s.sequenceNumber++
	return n
}

// HasProcessed reports whether the given video/audio URL lists equal the
// ones last stored by RecordProcessed. It does not store anything itself.
func (s *StreamState) HasProcessed(videoURLs, audioURLs []string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return equalStringSlices(s.lastVideoURLs, videoURLs) && equalStringSlices(s.lastAudioURLs, audioURLs)
}

// RecordProcessed stores videoURLs/audioURLs as the most recently emitted
// segment set.
func (s *StreamState) RecordProcessed(videoURLs, audioURLs []string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastVideoURLs = videoURLs
	s.lastAudioURLs = audioURLs
}

func equalStringSlices(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// RepresentationChoice is the selector's output for one media kind: the
// resolved init segment URL (if any) and the ordered list of segment URLs
// to fetch this iteration.
type RepresentationChoice struct {
	InitURL     string
	SegmentURLs []string
	Bandwidth   int64
	Codecs      string
}

// PipelineHandle is the object the stream manager holds per active channel:
// cancellation, liveness, and a reference to the underlying HLS writer.
type PipelineHandle struct {
	Channel config.ChannelDescriptor

	mu         sync.RWMutex
	active     bool
	lastAccess time.Time
	cancel     func()
	writer     *HLSWriter
}

// Touch updates the last-access timestamp, keeping the pipeline alive
// against the stream manager's idle eviction sweep.
func (h *PipelineHandle) Touch() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.lastAccess = time.Now()
}

// LastAccess returns the last time this pipeline was touched.
func (h *PipelineHandle) LastAccess() time.Time {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.lastAccess
}

// IsActive reports whether the pipeline is still running.
func (h *PipelineHandle) IsActive() bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.active
}

func (h *PipelineHandle) setActive(active bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.active = active
}
