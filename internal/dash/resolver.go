package dash

import (
	"net/url"
	"strconv"
	"strings"
)

// ResolveBaseURL folds a manifest URL, a period-level BaseURL and a
// representation-level BaseURL into the single base URL that templated or
// listed segment URLs are resolved against. Each level overrides the
// previous one; an absolute ("http...") value replaces the accumulator
// outright, a relative one is appended to it.
func ResolveBaseURL(manifestURL string, periodBaseURL, representationBaseURL []BaseURL) string {
	base := manifestURL

	if len(periodBaseURL) > 0 {
		base = foldBaseURL(base, periodBaseURL[0].Value)
	}
	if len(representationBaseURL) > 0 {
		base = foldBaseURL(base, representationBaseURL[0].Value)
	}

	return base
}

func foldBaseURL(base, next string) string {
	if next == "" {
		return base
	}
	if strings.HasPrefix(next, "http") {
		return next
	}
	return strings.TrimRight(base, "/") + "/" + next
}

// ResolveSegmentURL substitutes $RepresentationID$/$Time$ into a templated
// URL and resolves the result against base, exactly as ResolveBaseURL-style
// relative joining works for ordinary segment URLs.
func ResolveSegmentURL(base, template, representationID string, time int64) string {
	resolved := substituteTemplate(template, representationID, time)
	return resolveAgainst(base, resolved)
}

// ResolveListedURL resolves a SegmentList entry's literal media URL against
// base, with no template substitution.
func ResolveListedURL(base, media string) string {
	return resolveAgainst(base, media)
}

// resolveAgainst joins candidate against base using RFC 3986 relative
// resolution, so base's last path segment (the manifest filename, when no
// BaseURL override applies) is replaced rather than kept as a path prefix.
func resolveAgainst(base, candidate string) string {
	if strings.HasPrefix(candidate, "http") {
		return candidate
	}

	baseURL, err := url.Parse(base)
	if err != nil {
		return strings.TrimRight(base, "/") + "/" + candidate
	}
	candidateURL, err := url.Parse(candidate)
	if err != nil {
		return strings.TrimRight(base, "/") + "/" + candidate
	}

	return baseURL.ResolveReference(candidateURL).String()
}

func substituteTemplate(template, representationID string, time int64) string {
	s := template
	s = strings.ReplaceAll(s, "$RepresentationID$", representationID)
	s = strings.ReplaceAll(s, "$Time$", strconv.FormatInt(time, 10))
	return s
}
