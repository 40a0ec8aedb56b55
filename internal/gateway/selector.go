package gateway

import (
	"github.com/jmylchreest/dashgate/internal/dash"
)

// defaultPreferredVideoIndex and defaultPreferredAudioIndex match the
// indices the original single-origin deployment observed empirically for
// its source manifests; GatewayConfig/ChannelDescriptor let an operator
// override them per deployment or per channel.
const (
	defaultPreferredVideoIndex = 6
	defaultPreferredAudioIndex = 9
)

// Select walks the manifest and returns the chosen video and audio
// representations, resolved to their segment URLs. It first tries the
// representation at preferredVideoIndex/preferredAudioIndex (counting
// representations across all adaptation sets in period order); if either
// index is missing it falls back to the highest-bandwidth video
// representation and the first available audio representation.
func Select(mpd *dash.MPD, manifestURL string, preferredVideoIndex, preferredAudioIndex int) (video, audio *RepresentationChoice, err error) {
	if preferredVideoIndex <= 0 {
		preferredVideoIndex = defaultPreferredVideoIndex
	}
	if preferredAudioIndex <= 0 {
		preferredAudioIndex = defaultPreferredAudioIndex
	}

	videoFound, audioFound := false, false

	for pi := range mpd.Periods {
		period := &mpd.Periods[pi]
		repIndex := 0
		for ai := range period.AdaptationSets {
			aset := &period.AdaptationSets[ai]
			for ri := range aset.Representations {
				rep := &aset.Representations[ri]

				switch {
				case aset.IsVideo() && repIndex == preferredVideoIndex:
					video = extractSegments(mpd, period, aset, rep, manifestURL)
					videoFound = true
				case aset.IsAudio() && repIndex == preferredAudioIndex:
					audio = extractSegments(mpd, period, aset, rep, manifestURL)
					audioFound = true
				}
				repIndex++
			}
		}
	}

	if !videoFound || !audioFound {
		for pi := range mpd.Periods {
			period := &mpd.Periods[pi]
			for ai := range period.AdaptationSets {
				aset := &period.AdaptationSets[ai]

				if aset.IsVideo() && !videoFound {
					if rep := bestBandwidth(aset.Representations); rep != nil {
						video = extractSegments(mpd, period, aset, rep, manifestURL)
						videoFound = true
					}
				} else if aset.IsAudio() && !audioFound {
					if len(aset.Representations) > 0 {
						audio = extractSegments(mpd, period, aset, &aset.Representations[0], manifestURL)
						audioFound = true
					}
				}
			}
		}
	}

	if !videoFound {
		return nil, nil, &RepresentationUnsupported{Kind: "video"}
	}
	if !audioFound {
		return nil, nil, &RepresentationUnsupported{Kind: "audio"}
	}

	return video, audio, nil
}

func bestBandwidth(reps []dash.Representation) *dash.Representation {
	var best *dash.Representation
	for i := range reps {
		if best == nil || reps[i].Bandwidth > best.Bandwidth {
			best = &reps[i]
		}
	}
	return best
}

// extractSegments resolves a single representation's init segment URL and
// ordered media segment URLs, following SegmentTemplate (with or without an
// explicit SegmentTimeline), SegmentList, or a bare single-segment
// BaseURL, in that priority order.
func extractSegments(mpd *dash.MPD, period *dash.Period, aset *dash.AdaptationSet, rep *dash.Representation, manifestURL string) *RepresentationChoice {
	base := dash.ResolveBaseURL(manifestURL, period.BaseURL, rep.BaseURL)
	choice := &RepresentationChoice{Bandwidth: rep.Bandwidth, Codecs: rep.Codecs}

	template := rep.SegmentTemplate
	if template == nil {
		template = aset.SegmentTemplate
	}

	switch {
	case template != nil:
		if template.Initialization != "" {
			choice.InitURL = dash.ResolveSegmentURL(base, template.Initialization, rep.ID, 0)
		}

		isDynamic := mpd.IsDynamic()
		var times []int64
		if template.Timeline != nil {
			times = dash.ComputeSegmentTimes(template.Timeline)
		} else {
			periodSeconds := parseISODurationSeconds(period.Duration)
			count := dash.EstimateSegmentCount(periodSeconds, template.Duration, template.Timescale)
			count = dash.ClampLiveWindow(count, isDynamic)
			times = dash.GenerateSegmentTimesByCount(count, template.Duration)
		}
		times = dash.TrimToLiveWindow(times, isDynamic)

		if template.Media != "" {
			urls := make([]string, 0, len(times))
			for _, t := range times {
				urls = append(urls, dash.ResolveSegmentURL(base, template.Media, rep.ID, t))
			}
			choice.SegmentURLs = urls
		}

	case rep.SegmentList != nil:
		urls := make([]string, 0, len(rep.SegmentList.SegmentURLs))
		for _, s := range rep.SegmentList.SegmentURLs {
			if s.Media == "" {
				continue
			}
			urls = append(urls, dash.ResolveListedURL(base, s.Media))
		}
		choice.SegmentURLs = dash.TrimToLiveWindow(urls, mpd.IsDynamic())

	case len(rep.BaseURL) > 0:
		choice.SegmentURLs = []string{rep.BaseURL[0].Value}
	}

	return choice
}

// parseISODurationSeconds extracts whole seconds from a DASH xs:duration
// string like "PT2M30S". It only handles the hour/minute/second components
// DASH segment-template fallback estimation needs; it is not a general
// ISO-8601 parser.
func parseISODurationSeconds(iso string) float64 {
	if iso == "" {
		return 0
	}
	var hours, minutes, seconds float64
	var num float64
	inTime := false

	for _, r := range iso {
		switch {
		case r == 'P':
			continue
		case r == 'T':
			inTime = true
		case r >= '0' && r <= '9':
			num = num*10 + float64(r-'0')
		case r == 'H':
			hours = num
			num = 0
		case r == 'M' && inTime:
			minutes = num
			num = 0
		case r == 'S':
			seconds = num
			num = 0
		default:
			num = 0
		}
	}

	return hours*3600 + minutes*60 + seconds
}
