package web

import (
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"git.home.luguber.info/inful/docserve/internal/web/cache"
)

// Response is a fully built HTTP response: status, headers and body. Both
// error renderers pass a Response through unchanged, so a redirect built by
// the selector reaches the wire exactly as constructed.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// Write sends the response.
func (r *Response) Write(w http.ResponseWriter) {
	for key, values := range r.Header {
		for _, v := range values {
			w.Header().Add(key, v)
		}
	}
	w.WriteHeader(r.StatusCode)
	if len(r.Body) > 0 {
		_, _ = w.Write(r.Body)
	}
}

// EncodeURLPath percent-encodes a path for safe use in a URL or a Location
// header. Path separators are kept, everything else is escaped per segment,
// so "/something>" becomes "/something%3E".
func EncodeURLPath(path string) string {
	segments := strings.Split(path, "/")
	for i, seg := range segments {
		segments[i] = url.PathEscape(seg)
	}
	return strings.Join(segments, "/")
}

// CachedRedirect builds a 302 redirect to location with cache headers per
// the given policy. The location must already be percent-encoded; a location
// that still contains bytes unsafe for a header value is rejected.
func CachedRedirect(location string, policy cache.Policy) (*Response, error) {
	if location == "" {
		return nil, fmt.Errorf("redirect location is empty")
	}
	for _, c := range []byte(location) {
		if c < 0x20 || c == 0x7f {
			return nil, fmt.Errorf("redirect location %q contains unsafe byte %#x", location, c)
		}
	}
	if _, err := url.Parse(location); err != nil {
		return nil, fmt.Errorf("invalid redirect location %q: %w", location, err)
	}

	header := http.Header{}
	header.Set("Location", location)
	cache.Apply(header, policy)
	return &Response{StatusCode: http.StatusFound, Header: header}, nil
}
