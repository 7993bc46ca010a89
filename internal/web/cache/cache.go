// Package cache defines the caching policies attached to responses.
//
// Policies are chosen per route, not per response: documentation files under
// versioned URLs never change and cache forever, resolved redirects must stay
// revalidatable at the edge, and rendered pages are not cached at all.
package cache

import "net/http"

// Policy selects the Cache-Control header of a response.
type Policy int

const (
	// NoCaching disables caching entirely.
	NoCaching Policy = iota

	// NoStoreMustRevalidate forbids stores and intermediaries from keeping
	// the response, for pages that must always reflect current state.
	NoStoreMustRevalidate

	// ShortInCdnAndBrowser caches briefly everywhere, for listings that go
	// stale quickly but are expensive to rebuild on every request.
	ShortInCdnAndBrowser

	// ForeverInCdn caches at the edge only. Used for redirects under
	// requirement URLs: the target changes when a new version is published
	// and the CDN is purged, but browsers must not pin the old target.
	ForeverInCdn

	// ForeverInCdnAndStaleInBrowser caches at the edge and lets browsers
	// serve a stale copy while revalidating.
	ForeverInCdnAndStaleInBrowser

	// ForeverInCdnAndBrowser caches everywhere, immutable. Only for content
	// under URLs that never change meaning.
	ForeverInCdnAndBrowser
)

// CacheControl returns the Cache-Control header value for the policy.
func (p Policy) CacheControl() string {
	switch p {
	case NoStoreMustRevalidate:
		return "no-cache, no-store, must-revalidate, max-age=0"
	case ShortInCdnAndBrowser:
		return "max-age=60, s-maxage=600"
	case ForeverInCdn:
		return "max-age=0, s-maxage=31536000"
	case ForeverInCdnAndStaleInBrowser:
		return "max-age=0, s-maxage=31536000, stale-while-revalidate=86400"
	case ForeverInCdnAndBrowser:
		return "max-age=31536000, immutable"
	default:
		return "max-age=0"
	}
}

func (p Policy) String() string {
	switch p {
	case NoCaching:
		return "no-caching"
	case NoStoreMustRevalidate:
		return "no-store-must-revalidate"
	case ShortInCdnAndBrowser:
		return "short-in-cdn-and-browser"
	case ForeverInCdn:
		return "forever-in-cdn"
	case ForeverInCdnAndStaleInBrowser:
		return "forever-in-cdn-and-stale-in-browser"
	case ForeverInCdnAndBrowser:
		return "forever-in-cdn-and-browser"
	default:
		return "unknown"
	}
}

// Apply sets the policy's Cache-Control header on h.
func Apply(h http.Header, p Policy) {
	h.Set("Cache-Control", p.CacheControl())
}
