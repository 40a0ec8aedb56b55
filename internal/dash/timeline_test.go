package dash

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func ptr[T any](v T) *T { return &v }

func TestComputeSegmentTimes(t *testing.T) {
	tests := []struct {
		name     string
		timeline *SegmentTimeline
		want     []int64
	}{
		{
			name:     "nil timeline",
			timeline: nil,
			want:     nil,
		},
		{
			name:     "empty timeline",
			timeline: &SegmentTimeline{},
			want:     nil,
		},
		{
			name: "repeat expands to r+1 entries",
			timeline: &SegmentTimeline{
				Segments: []S{
					{T: ptr(int64(5000)), D: 1000, R: ptr(int64(3))},
				},
			},
			want: []int64{5000, 6000, 7000, 8000},
		},
		{
			name: "multiple entries chain from running clock",
			timeline: &SegmentTimeline{
				Segments: []S{
					{T: ptr(int64(0)), D: 2000},
					{D: 1000, R: ptr(int64(1))},
				},
			},
			want: []int64{0, 2000, 3000},
		},
		{
			name: "missing t defaults to zero",
			timeline: &SegmentTimeline{
				Segments: []S{{D: 500}},
			},
			want: []int64{0},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ComputeSegmentTimes(tt.timeline))
		})
	}
}

func TestClampLiveWindow(t *testing.T) {
	assert.Equal(t, 20, ClampLiveWindow(35, true))
	assert.Equal(t, 10, ClampLiveWindow(10, true))
	assert.Equal(t, 35, ClampLiveWindow(35, false))
}

func TestTrimToLiveWindow(t *testing.T) {
	segments := make([]string, 25)
	for i := range segments {
		segments[i] = string(rune('a' + i%26))
	}

	trimmed := TrimToLiveWindow(segments, true)
	assert.Len(t, trimmed, 20)
	assert.Equal(t, segments[5:], trimmed)

	untrimmed := TrimToLiveWindow(segments, false)
	assert.Equal(t, segments, untrimmed)
}

func TestGenerateSegmentTimesByCount(t *testing.T) {
	times := GenerateSegmentTimesByCount(4, 2)
	assert.Equal(t, []int64{0, 2, 4, 6}, times)
}

func TestEstimateSegmentCount(t *testing.T) {
	assert.Equal(t, 60, EstimateSegmentCount(60, 1, 1))
	assert.Equal(t, 30, EstimateSegmentCount(60, 2, 1))
	// Defaults applied when inputs are zero/negative.
	assert.Equal(t, 60, EstimateSegmentCount(0, 0, 0))
}
