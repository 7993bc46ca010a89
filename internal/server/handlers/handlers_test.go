package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/net/html"

	"git.home.luguber.info/inful/docserve/internal/db"
	"git.home.luguber.info/inful/docserve/internal/storage"
	"git.home.luguber.info/inful/docserve/internal/web/cache"
)

func newTestEnv(t *testing.T) (*http.ServeMux, *db.DB, storage.Store) {
	t.Helper()

	database, err := db.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = database.Close() })

	store, err := storage.NewFSStore(t.TempDir())
	require.NoError(t, err)

	return New(database, store).DocsMux(), database, store
}

// seedCrate registers a crate with the given releases and returns its id.
func seedCrate(t *testing.T, database *db.DB, name string, releases ...db.Release) int64 {
	t.Helper()
	ctx := context.Background()

	crateID, err := database.UpsertCrate(ctx, name)
	require.NoError(t, err)
	for i := range releases {
		releases[i].CrateID = crateID
		_, err := database.UpsertRelease(ctx, &releases[i])
		require.NoError(t, err)
	}
	return crateID
}

func get(mux *http.ServeMux, target string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	return rec
}

// pageTitle extracts the text of the element with id="crate-title".
func pageTitle(t *testing.T, body string) string {
	t.Helper()

	doc, err := html.Parse(strings.NewReader(body))
	require.NoError(t, err)

	var found string
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			for _, attr := range n.Attr {
				if attr.Key == "id" && attr.Val == "crate-title" {
					var sb strings.Builder
					var text func(*html.Node)
					text = func(c *html.Node) {
						if c.Type == html.TextNode {
							sb.WriteString(c.Data)
						}
						for child := c.FirstChild; child != nil; child = child.NextSibling {
							text(child)
						}
					}
					text(n)
					found = strings.TrimSpace(sb.String())
					return
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	return found
}

func TestHomeListsRecentReleases(t *testing.T) {
	mux, database, _ := newTestEnv(t)
	seedCrate(t, database, "serde", db.Release{
		Version:     "1.0.0",
		Description: "serialization framework",
		ReleaseTime: time.Now().UTC(),
	})

	rec := get(mux, "/")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "serde")
	require.Contains(t, rec.Body.String(), "serialization framework")
}

func TestSearchEmptyQueryRendersEmptySearchPage(t *testing.T) {
	mux, _, _ := newTestEnv(t)

	rec := get(mux, "/releases/search")
	require.Equal(t, http.StatusNotFound, rec.Code)
	require.Equal(t, "No results given for empty search query", pageTitle(t, rec.Body.String()))
}

func TestSearchMatchesNameAndDescription(t *testing.T) {
	mux, database, _ := newTestEnv(t)
	seedCrate(t, database, "serde", db.Release{
		Version:     "1.0.0",
		Description: "serialization framework",
		ReleaseTime: time.Now().UTC(),
	})

	rec := get(mux, "/releases/search?query=serial")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "serde")
}

func TestOwnerReleasesUnknownOwner(t *testing.T) {
	mux, _, _ := newTestEnv(t)

	rec := get(mux, "/releases/owner/nobody")
	require.Equal(t, http.StatusNotFound, rec.Code)
	require.Equal(t, "The requested owner does not exist", pageTitle(t, rec.Body.String()))
}

func TestOwnerReleasesListsOwnedCrates(t *testing.T) {
	mux, database, _ := newTestEnv(t)
	crateID := seedCrate(t, database, "serde", db.Release{
		Version:     "1.0.0",
		ReleaseTime: time.Now().UTC(),
	})
	require.NoError(t, database.SetOwners(context.Background(), crateID, []db.Owner{{Login: "dtolnay"}}))

	rec := get(mux, "/releases/owner/dtolnay")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "serde")
}

func TestCrateDetailsRendersReadmeAndDownloads(t *testing.T) {
	mux, database, _ := newTestEnv(t)
	crateID := seedCrate(t, database, "serde", db.Release{
		Version:     "1.0.0",
		Description: "serialization framework",
		Readme:      "# Serde\n\nA **framework** for serializing.",
		Downloads:   1234567,
		ReleaseTime: time.Now().UTC(),
	})
	require.NoError(t, database.SetOwners(context.Background(), crateID, []db.Owner{{Login: "dtolnay"}}))

	rec := get(mux, "/crate/serde")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "serde-1.0.0", pageTitle(t, rec.Body.String()))
	require.Contains(t, rec.Body.String(), "1,234,567")
	require.Contains(t, rec.Body.String(), "<strong>framework</strong>")
	require.Contains(t, rec.Body.String(), "dtolnay")
	require.NotEmpty(t, rec.Header().Get("ETag"))
}

func TestCrateDetailsConditionalRequest(t *testing.T) {
	mux, database, _ := newTestEnv(t)
	seedCrate(t, database, "serde", db.Release{
		Version:     "1.0.0",
		Readme:      "# Serde",
		ReleaseTime: time.Now().UTC(),
	})

	first := get(mux, "/crate/serde")
	etag := first.Header().Get("ETag")
	require.NotEmpty(t, etag)

	req := httptest.NewRequest(http.MethodGet, "/crate/serde", nil)
	req.Header.Set("If-None-Match", etag)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	require.Equal(t, http.StatusNotModified, rec.Code)
	require.Empty(t, rec.Body.String())
}

func TestCrateDetailsUnknownCrate(t *testing.T) {
	mux, _, _ := newTestEnv(t)

	rec := get(mux, "/crate/nope")
	require.Equal(t, http.StatusNotFound, rec.Code)
	require.Equal(t, "The requested crate does not exist", pageTitle(t, rec.Body.String()))
}

func TestCrateDetailsInvalidVersionRequirement(t *testing.T) {
	mux, database, _ := newTestEnv(t)
	seedCrate(t, database, "serde", db.Release{
		Version:     "1.0.0",
		ReleaseTime: time.Now().UTC(),
	})

	rec := get(mux, "/crate/serde/not-a-version")
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Equal(t, "Bad request", pageTitle(t, rec.Body.String()))
}

func TestCrateDetailsMissingVersion(t *testing.T) {
	mux, database, _ := newTestEnv(t)
	seedCrate(t, database, "serde", db.Release{
		Version:     "1.0.0",
		ReleaseTime: time.Now().UTC(),
	})

	rec := get(mux, "/crate/serde/2.0.0")
	require.Equal(t, http.StatusNotFound, rec.Code)
	require.Equal(t, "The requested version does not exist", pageTitle(t, rec.Body.String()))
}

func TestCrateDetailsAllYankedLatest(t *testing.T) {
	mux, database, _ := newTestEnv(t)
	seedCrate(t, database, "abandoned", db.Release{
		Version:     "0.1.0",
		Yanked:      true,
		ReleaseTime: time.Now().UTC(),
	})

	rec := get(mux, "/crate/abandoned")
	require.Equal(t, http.StatusNotFound, rec.Code)
	require.Equal(t, "The requested version does not exist", pageTitle(t, rec.Body.String()))
}

func TestCrateRootRedirectsToLatestDocs(t *testing.T) {
	mux, database, _ := newTestEnv(t)
	seedCrate(t, database, "serde",
		db.Release{Version: "0.9.0", ReleaseTime: time.Now().UTC().Add(-time.Hour)},
		db.Release{Version: "1.0.0", ReleaseTime: time.Now().UTC()},
	)

	rec := get(mux, "/serde")
	require.Equal(t, http.StatusFound, rec.Code)
	require.Equal(t, "/serde/1.0.0/serde/index.html", rec.Header().Get("Location"))
	require.Equal(t, cache.ForeverInCdn.CacheControl(), rec.Header().Get("Cache-Control"))
}

func TestRootLevelStaticResourceNotFound(t *testing.T) {
	mux, _, _ := newTestEnv(t)

	rec := get(mux, "/resource-which-doesnt-exist.js")
	require.Equal(t, http.StatusNotFound, rec.Code)
	require.Equal(t, "The requested resource does not exist", pageTitle(t, rec.Body.String()))
}

func TestDocFileServedWithCacheHeaders(t *testing.T) {
	mux, database, store := newTestEnv(t)
	seedCrate(t, database, "serde", db.Release{
		Version:     "1.0.0",
		ReleaseTime: time.Now().UTC(),
	})
	require.NoError(t, store.Put(context.Background(),
		"rustdoc/serde/1.0.0/serde/index.html", []byte("<html>docs</html>")))

	rec := get(mux, "/serde/1.0.0/serde/index.html")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "<html>docs</html>", rec.Body.String())
	require.Contains(t, rec.Header().Get("Content-Type"), "text/html")
	require.Equal(t, cache.ForeverInCdnAndStaleInBrowser.CacheControl(), rec.Header().Get("Cache-Control"))
}

func TestDocFileRequirementRedirectsToExactVersion(t *testing.T) {
	mux, database, _ := newTestEnv(t)
	seedCrate(t, database, "serde", db.Release{
		Version:     "1.0.0",
		ReleaseTime: time.Now().UTC(),
	})

	rec := get(mux, "/serde/1/serde/index.html")
	require.Equal(t, http.StatusFound, rec.Code)
	require.Equal(t, "/serde/1.0.0/serde/index.html", rec.Header().Get("Location"))
}

func TestDocFileMissingPath(t *testing.T) {
	mux, database, _ := newTestEnv(t)
	seedCrate(t, database, "serde", db.Release{
		Version:     "1.0.0",
		ReleaseTime: time.Now().UTC(),
	})

	rec := get(mux, "/serde/1.0.0/serde/missing.html")
	require.Equal(t, http.StatusNotFound, rec.Code)
	require.Equal(t, "The requested resource does not exist", pageTitle(t, rec.Body.String()))
}

func TestStaticFileServedImmutable(t *testing.T) {
	mux, _, store := newTestEnv(t)
	require.NoError(t, store.Put(context.Background(), "static/style.css", []byte("body{}")))

	rec := get(mux, "/-/static/style.css")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "body{}", rec.Body.String())
	require.Equal(t, cache.ForeverInCdnAndBrowser.CacheControl(), rec.Header().Get("Cache-Control"))
}

func TestBuildListRendersBuilds(t *testing.T) {
	mux, database, _ := newTestEnv(t)
	crateID := seedCrate(t, database, "serde", db.Release{
		Version:     "1.0.0",
		ReleaseTime: time.Now().UTC(),
	})
	release, err := database.GetRelease(context.Background(), crateID, "1.0.0")
	require.NoError(t, err)
	_, err = database.InsertBuild(context.Background(), &db.Build{
		ReleaseID: release.ID,
		Status:    "success",
		BuildTime: time.Now().UTC(),
	})
	require.NoError(t, err)

	rec := get(mux, "/crate/serde/1.0.0/builds")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "success")
}

func TestBuildDetailsRejectsForeignBuild(t *testing.T) {
	mux, database, _ := newTestEnv(t)
	seedCrate(t, database, "serde", db.Release{
		Version:     "1.0.0",
		ReleaseTime: time.Now().UTC(),
	})
	otherID := seedCrate(t, database, "other", db.Release{
		Version:     "2.0.0",
		ReleaseTime: time.Now().UTC(),
	})
	otherRelease, err := database.GetRelease(context.Background(), otherID, "2.0.0")
	require.NoError(t, err)
	buildID, err := database.InsertBuild(context.Background(), &db.Build{
		ReleaseID: otherRelease.ID,
		Status:    "success",
		BuildTime: time.Now().UTC(),
	})
	require.NoError(t, err)

	rec := get(mux, "/crate/serde/1.0.0/builds/"+strconv.FormatInt(buildID, 10))
	require.Equal(t, http.StatusNotFound, rec.Code)
	require.Equal(t, "The requested build does not exist", pageTitle(t, rec.Body.String()))
}

func TestBuildListJSONUnknownCrateEnvelope(t *testing.T) {
	mux, _, _ := newTestEnv(t)

	rec := get(mux, "/crate/nope/1.0.0/builds.json")
	require.Equal(t, http.StatusNotFound, rec.Code)
	require.JSONEq(t,
		`{"result":"err","title":"The requested crate does not exist","message":"no such crate"}`,
		rec.Body.String())
}

func TestBuildListJSONListsBuilds(t *testing.T) {
	mux, database, _ := newTestEnv(t)
	crateID := seedCrate(t, database, "serde", db.Release{
		Version:     "1.0.0",
		ReleaseTime: time.Now().UTC(),
	})
	release, err := database.GetRelease(context.Background(), crateID, "1.0.0")
	require.NoError(t, err)
	_, err = database.InsertBuild(context.Background(), &db.Build{
		ReleaseID: release.ID,
		Status:    "success",
		BuildTime: time.Now().UTC(),
	})
	require.NoError(t, err)

	rec := get(mux, "/crate/serde/1.0.0/builds.json")
	require.Equal(t, http.StatusOK, rec.Code)

	var builds []buildJSON
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &builds))
	require.Len(t, builds, 1)
	require.Equal(t, "success", builds[0].Status)
}

func TestCrateSummaryJSON(t *testing.T) {
	mux, database, _ := newTestEnv(t)
	crateID := seedCrate(t, database, "serde", db.Release{
		Version:     "1.0.0",
		Description: "serialization framework",
		Downloads:   42,
		ReleaseTime: time.Now().UTC(),
	})
	require.NoError(t, database.SetOwners(context.Background(), crateID, []db.Owner{{Login: "dtolnay"}}))

	rec := get(mux, "/api/v1/crates/serde")
	require.Equal(t, http.StatusOK, rec.Code)

	var summary crateSummaryJSON
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &summary))
	require.Equal(t, "serde", summary.Name)
	require.Equal(t, []string{"dtolnay"}, summary.Owners)
	require.Len(t, summary.Releases, 1)
	require.Equal(t, int64(42), summary.Releases[0].Downloads)
}

func TestStatusJSON(t *testing.T) {
	mux, database, _ := newTestEnv(t)
	seedCrate(t, database, "serde", db.Release{
		Version:     "1.0.0",
		ReleaseTime: time.Now().UTC(),
	})

	rec := get(mux, "/api/v1/status")
	require.Equal(t, http.StatusOK, rec.Code)

	var status statusJSON
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &status))
	require.Equal(t, "ok", status.Status)
	require.Equal(t, 1, status.Crates)
}
