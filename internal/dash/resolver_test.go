package dash

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestResolveBaseURL(t *testing.T) {
	tests := []struct {
		name            string
		manifestURL     string
		periodBase      []BaseURL
		representBase   []BaseURL
		want            string
	}{
		{
			name:        "no overrides keeps manifest url",
			manifestURL: "https://origin.example/live/stream.mpd",
			want:        "https://origin.example/live/stream.mpd",
		},
		{
			name:        "relative period base appends",
			manifestURL: "https://origin.example/live/stream.mpd",
			periodBase:  []BaseURL{{Value: "period1/"}},
			want:        "https://origin.example/live/stream.mpd/period1",
		},
		{
			name:          "absolute representation base replaces",
			manifestURL:   "https://origin.example/live/stream.mpd",
			periodBase:    []BaseURL{{Value: "period1/"}},
			representBase: []BaseURL{{Value: "https://cdn.example/rep7/"}},
			want:          "https://cdn.example/rep7",
		},
		{
			name:          "relative representation base appends to period result",
			manifestURL:   "https://origin.example/live/stream.mpd",
			periodBase:    []BaseURL{{Value: "https://origin.example/period1/"}},
			representBase: []BaseURL{{Value: "rep7/"}},
			want:          "https://origin.example/period1/rep7",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ResolveBaseURL(tt.manifestURL, tt.periodBase, tt.representBase)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestResolveSegmentURL(t *testing.T) {
	got := ResolveSegmentURL("https://cdn.example/chan1/", "$RepresentationID$/seg_$Time$.m4s", "7", 96000)
	assert.Equal(t, "https://cdn.example/chan1/7/seg_96000.m4s", got)
}

func TestResolveSegmentURLAbsoluteTemplate(t *testing.T) {
	got := ResolveSegmentURL("https://cdn.example/chan1/", "https://other.example/$RepresentationID$.m4s", "7", 0)
	assert.Equal(t, "https://other.example/7.m4s", got)
}

func TestResolveSegmentURLAgainstManifestURL(t *testing.T) {
	// The common case: no BaseURL override, so base is the manifest URL
	// itself. The resolved segment URL must be a sibling of the manifest,
	// not a child of it.
	got := ResolveSegmentURL("https://origin.example/live/stream.mpd", "chunk-$Time$.m4s", "7", 1)
	assert.Equal(t, "https://origin.example/live/chunk-1.m4s", got)
}

func TestResolveListedURL(t *testing.T) {
	assert.Equal(t, "https://cdn.example/base/seg1.ts", ResolveListedURL("https://cdn.example/base/", "seg1.ts"))
	assert.Equal(t, "https://other.example/seg1.ts", ResolveListedURL("https://cdn.example/base/", "https://other.example/seg1.ts"))
}
