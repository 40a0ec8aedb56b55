package gateway

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/jmylchreest/dashgate/internal/config"
)

func TestStreamState_InitSegmentRoundTrip(t *testing.T) {
	s := NewStreamState(config.ChannelDescriptor{ID: "chan1"})

	assert.Nil(t, s.InitSegment("video"))

	s.SetInitSegment("video", []byte("init-bytes"))
	assert.Equal(t, []byte("init-bytes"), s.InitSegment("video"))
	assert.Nil(t, s.InitSegment("audio"))
}

func TestStreamState_NextSequenceIncrements(t *testing.T) {
	s := NewStreamState(config.ChannelDescriptor{ID: "chan1"})

	assert.Equal(t, uint32(0), s.NextSequence())
	assert.Equal(t, uint32(1), s.NextSequence())
	assert.Equal(t, uint32(2), s.NextSequence())
}

func TestStreamState_HasProcessedDedup(t *testing.T) {
	s := NewStreamState(config.ChannelDescriptor{ID: "chan1"})

	video := []string{"v1.m4s", "v2.m4s"}
	audio := []string{"a1.m4s", "a2.m4s"}

	assert.False(t, s.HasProcessed(video, audio))
	s.RecordProcessed(video, audio)
	assert.True(t, s.HasProcessed(video, audio))

	assert.False(t, s.HasProcessed([]string{"v3.m4s"}, audio))
}

func TestPipelineHandle_TouchAndActive(t *testing.T) {
	h := &PipelineHandle{Channel: config.ChannelDescriptor{ID: "chan1"}}

	assert.False(t, h.IsActive())
	h.setActive(true)
	assert.True(t, h.IsActive())

	before := h.LastAccess()
	h.Touch()
	assert.False(t, h.LastAccess().Before(before))
}
