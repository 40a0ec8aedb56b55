package gateway

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/jmylchreest/dashgate/internal/httpclient"
)

// DownloadSegment fetches a single media resource, prepending the cached
// init segment bytes for kind if one has been downloaded for this stream
// (CMAF media segments are only decodable alongside their init segment).
func DownloadSegment(ctx context.Context, client *httpclient.Client, state *StreamState, url, kind string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, &SegmentFetchError{URL: url, Err: err}
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, &SegmentFetchError{URL: url, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &SegmentFetchError{URL: url, Err: fmt.Errorf("HTTP %d", resp.StatusCode)}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &SegmentFetchError{URL: url, Err: err}
	}

	if init := state.InitSegment(kind); len(init) > 0 {
		combined := make([]byte, 0, len(init)+len(body))
		combined = append(combined, init...)
		combined = append(combined, body...)
		return combined, nil
	}

	return body, nil
}

// DownloadInitSegment fetches and caches the init segment for kind, if url
// is non-empty and not already cached.
func DownloadInitSegment(ctx context.Context, client *httpclient.Client, state *StreamState, url, kind string) error {
	if url == "" {
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return &SegmentFetchError{URL: url, Err: err}
	}

	resp, err := client.Do(req)
	if err != nil {
		return &SegmentFetchError{URL: url, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &SegmentFetchError{URL: url, Err: fmt.Errorf("HTTP %d", resp.StatusCode)}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return &SegmentFetchError{URL: url, Err: err}
	}

	state.SetInitSegment(kind, body)
	return nil
}
