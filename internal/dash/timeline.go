package dash

// liveWindowSegments caps the number of segments considered for a dynamic
// (live) manifest.
const liveWindowSegments = 20

// ComputeSegmentTimes expands a SegmentTimeline's (t, d, r) entries into the
// absolute start time of every segment. The first entry's t, if present,
// seeds the running clock; otherwise it starts at zero.
func ComputeSegmentTimes(timeline *SegmentTimeline) []int64 {
	if timeline == nil || len(timeline.Segments) == 0 {
		return nil
	}

	var times []int64
	var current int64
	if t := timeline.Segments[0].T; t != nil {
		current = *t
	}

	for _, item := range timeline.Segments {
		repeat := int64(0)
		if item.R != nil {
			repeat = *item.R
		}
		for i := int64(0); i <= repeat; i++ {
			times = append(times, current)
			current += item.D
		}
	}

	return times
}

// EstimateSegmentCount derives a segment count from the period duration and
// segment template when no explicit SegmentTimeline is present.
func EstimateSegmentCount(periodDurationSeconds float64, duration float64, timescale int64) int {
	if duration <= 0 {
		duration = 1
	}
	if timescale <= 0 {
		timescale = 1
	}
	if periodDurationSeconds <= 0 {
		periodDurationSeconds = 60
	}
	return int((periodDurationSeconds * float64(timescale)) / duration)
}

// GenerateSegmentTimesByCount produces evenly spaced segment start times
// when a manifest gives only a count and a fixed duration, with no timeline.
func GenerateSegmentTimesByCount(count int, duration float64) []int64 {
	times := make([]int64, count)
	for i := range times {
		times[i] = int64(i) * int64(duration)
	}
	return times
}

// ClampLiveWindow caps n to the live-window segment limit for dynamic
// manifests; static manifests are returned unchanged.
func ClampLiveWindow(n int, isDynamic bool) int {
	if isDynamic && n > liveWindowSegments {
		return liveWindowSegments
	}
	return n
}

// TrimToLiveWindow keeps only the last liveWindowSegments entries of a
// dynamic manifest's segment list, discarding the oldest.
func TrimToLiveWindow[T any](segments []T, isDynamic bool) []T {
	if !isDynamic || len(segments) <= liveWindowSegments {
		return segments
	}
	return segments[len(segments)-liveWindowSegments:]
}
