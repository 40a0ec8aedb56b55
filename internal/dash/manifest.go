// Package dash parses MPEG-DASH live manifests and resolves the segment
// URLs for a chosen representation.
package dash

import (
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/net/html/charset"

	"github.com/jmylchreest/dashgate/internal/httpclient"
)

// fetchUserAgent spoofs a desktop browser UA since some origins reject
// unrecognized clients.
const fetchUserAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10.15; rv:133.0) Gecko/20100101 Firefox/133.0"

const fetchTimeout = 30 * time.Second

// MPD is the root element of a DASH manifest.
type MPD struct {
	XMLName xml.Name `xml:"MPD"`
	Type    string   `xml:"type,attr"` // "static" or "dynamic"
	Periods []Period `xml:"Period"`
}

// IsDynamic reports whether the manifest describes a live (dynamic) stream.
func (m *MPD) IsDynamic() bool {
	return m.Type == "dynamic"
}

// Period groups adaptation sets that share a common timeline.
type Period struct {
	Duration       string          `xml:"duration,attr"`
	BaseURL        []BaseURL       `xml:"BaseURL"`
	AdaptationSets []AdaptationSet `xml:"AdaptationSet"`
}

// BaseURL is a relative or absolute URL fragment used to resolve child
// element URLs, following the DASH spec's inheritance model.
type BaseURL struct {
	Value string `xml:",chardata"`
}

// AdaptationSet groups representations that carry the same media content
// (e.g. all video renditions of a title).
type AdaptationSet struct {
	MimeType        string           `xml:"mimeType,attr"`
	ContentType     string           `xml:"contentType,attr"`
	BaseURL         []BaseURL        `xml:"BaseURL"`
	SegmentTemplate *SegmentTemplate `xml:"SegmentTemplate"`
	Representations []Representation `xml:"Representation"`
}

// IsVideo reports whether this adaptation set carries video.
func (a *AdaptationSet) IsVideo() bool {
	return a.MimeType == "video/mp4" || a.ContentType == "video"
}

// IsAudio reports whether this adaptation set carries audio.
func (a *AdaptationSet) IsAudio() bool {
	return a.MimeType == "audio/mp4" || a.ContentType == "audio"
}

// Representation is one encoded rendition within an AdaptationSet.
type Representation struct {
	ID              string           `xml:"id,attr"`
	Bandwidth       int64            `xml:"bandwidth,attr"`
	Codecs          string           `xml:"codecs,attr"`
	BaseURL         []BaseURL        `xml:"BaseURL"`
	SegmentTemplate *SegmentTemplate `xml:"SegmentTemplate"`
	SegmentList     *SegmentList     `xml:"SegmentList"`
}

// SegmentTemplate describes how to build segment URLs from a pattern,
// either by number/duration or by an explicit SegmentTimeline.
type SegmentTemplate struct {
	Initialization string           `xml:"initialization,attr"`
	Media          string           `xml:"media,attr"`
	Duration       float64          `xml:"duration,attr"`
	Timescale      int64            `xml:"timescale,attr"`
	Timeline       *SegmentTimeline `xml:"SegmentTimeline"`
}

// SegmentTimeline is an explicit list of segment durations/repeat counts.
type SegmentTimeline struct {
	Segments []S `xml:"S"`
}

// S is a single SegmentTimeline entry: lasts D and repeats R additional
// times. T is an optional start time; ComputeSegmentTimes reads it only on
// the first entry, and later entries follow the running clock.
type S struct {
	T  *int64 `xml:"t,attr"`
	D  int64  `xml:"d,attr"`
	R  *int64 `xml:"r,attr"`
}

// SegmentList enumerates segment URLs directly rather than templating them.
type SegmentList struct {
	SegmentURLs []SegmentURL `xml:"SegmentURL"`
}

// SegmentURL is a single entry in a SegmentList.
type SegmentURL struct {
	Media string `xml:"media,attr"`
}

// Fetch retrieves and parses the MPD document at url using client.
// Non-UTF-8 manifests (occasionally served with a Latin-1 or unlabeled
// encoding) are tolerated via charset auto-detection.
func Fetch(ctx context.Context, client *httpclient.Client, url string) (*MPD, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("building manifest request: %w", err)
	}
	req.Header.Set("User-Agent", fetchUserAgent)

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching manifest: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("fetching manifest: HTTP %d", resp.StatusCode)
	}

	reader, err := charset.NewReader(resp.Body, resp.Header.Get("Content-Type"))
	if err != nil {
		return nil, fmt.Errorf("decoding manifest charset: %w", err)
	}

	body, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("reading manifest body: %w", err)
	}

	var mpd MPD
	if err := xml.Unmarshal(body, &mpd); err != nil {
		return nil, fmt.Errorf("parsing manifest xml: %w", err)
	}

	return &mpd, nil
}

// NewHTTPClient builds the resilient httpclient.Client used for manifest
// and segment fetches, sized per the gateway's configured timeout.
func NewHTTPClient(timeout time.Duration, retryAttempts int, retryDelay time.Duration) *httpclient.Client {
	cfg := httpclient.DefaultConfig()
	if timeout > 0 {
		cfg.Timeout = timeout
	} else {
		cfg.Timeout = fetchTimeout
	}
	if retryAttempts > 0 {
		cfg.RetryAttempts = retryAttempts
	}
	if retryDelay > 0 {
		cfg.RetryDelay = retryDelay
	}
	cfg.UserAgent = fetchUserAgent
	return httpclient.New(cfg)
}
