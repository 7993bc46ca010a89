package cache

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCacheControlValues(t *testing.T) {
	cases := []struct {
		policy Policy
		want   string
	}{
		{NoCaching, "max-age=0"},
		{NoStoreMustRevalidate, "no-cache, no-store, must-revalidate, max-age=0"},
		{ShortInCdnAndBrowser, "max-age=60, s-maxage=600"},
		{ForeverInCdn, "max-age=0, s-maxage=31536000"},
		{ForeverInCdnAndStaleInBrowser, "max-age=0, s-maxage=31536000, stale-while-revalidate=86400"},
		{ForeverInCdnAndBrowser, "max-age=31536000, immutable"},
	}
	for _, tc := range cases {
		t.Run(tc.policy.String(), func(t *testing.T) {
			require.Equal(t, tc.want, tc.policy.CacheControl())
		})
	}
}

func TestApply(t *testing.T) {
	h := http.Header{}
	Apply(h, ForeverInCdnAndBrowser)
	require.Equal(t, "max-age=31536000, immutable", h.Get("Cache-Control"))
}
