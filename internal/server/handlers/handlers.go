// Package handlers implements the docserve request handlers for both the
// HTML surface and the JSON API surface.
//
// Handlers never render failures themselves: they return taxonomy values or
// opaque errors upward, and the web layer classifies and renders them.
package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"git.home.luguber.info/inful/docserve/internal/db"
	"git.home.luguber.info/inful/docserve/internal/registry"
	"git.home.luguber.info/inful/docserve/internal/storage"
	"git.home.luguber.info/inful/docserve/internal/web"
)

// Handlers bundles the collaborators the request handlers need.
type Handlers struct {
	db        *db.DB
	store     storage.Store
	startTime time.Time
}

// New constructs the handler set.
func New(database *db.DB, store storage.Store) *Handlers {
	return &Handlers{
		db:        database,
		store:     store,
		startTime: time.Now(),
	}
}

// DocsMux returns the route table of the documentation server. HTML
// surfaces are adapted via web.Page, JSON surfaces via web.API.
func (h *Handlers) DocsMux() *http.ServeMux {
	mux := http.NewServeMux()

	mux.Handle("GET /{$}", web.Page(h.Home))
	mux.Handle("GET /releases/search", web.Page(h.Search))
	mux.Handle("GET /releases/owner/{owner}", web.Page(h.OwnerReleases))

	mux.Handle("GET /crate/{name}", web.Page(h.CrateDetails))
	mux.Handle("GET /crate/{name}/{version}", web.Page(h.CrateDetails))
	mux.Handle("GET /crate/{name}/{version}/builds", web.Page(h.BuildList))
	mux.Handle("GET /crate/{name}/{version}/builds.json", web.API(h.BuildListJSON))
	mux.Handle("GET /crate/{name}/{version}/builds/{id}", web.Page(h.BuildDetails))

	mux.Handle("GET /api/v1/crates/{name}", web.API(h.CrateSummaryJSON))
	mux.Handle("GET /api/v1/status", web.API(h.StatusJSON))

	mux.Handle("GET /-/static/{path...}", web.Page(h.StaticFile))

	mux.Handle("GET /{name}", web.Page(h.CrateRootRedirect))
	mux.Handle("GET /{name}/{version}", web.Page(h.VersionRedirect))
	mux.Handle("GET /{name}/{version}/{path...}", web.Page(h.DocFile))

	return mux
}

// crateWithReleases looks up a crate and its releases, translating the
// database's not-found signal into the crate-not-found taxonomy value.
func (h *Handlers) crateWithReleases(ctx context.Context, name string) (*db.Crate, []db.Release, error) {
	crate, err := h.db.GetCrate(ctx, name)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return nil, nil, web.ErrCrateNotFound
		}
		return nil, nil, web.DatabaseError(err)
	}
	releases, err := h.db.ListReleases(ctx, crate.ID)
	if err != nil {
		return nil, nil, web.DatabaseError(err)
	}
	return crate, releases, nil
}

// resolveVersion matches a version requirement against a crate's releases
// and maps resolution failures onto the taxonomy: an unparsable requirement
// is the client's fault, an unsatisfiable one means the version does not
// exist (including the all-yanked "latest" case).
func resolveVersion(releases []db.Release, req string) (string, error) {
	available := make([]registry.ReleaseVersion, len(releases))
	for i, r := range releases {
		available[i] = registry.ReleaseVersion{Version: r.Version, Yanked: r.Yanked}
	}
	matched, err := registry.MatchVersion(available, req)
	if err != nil {
		var invalid *registry.InvalidRequirementError
		if errors.As(err, &invalid) {
			return "", web.BadRequest(err)
		}
		if errors.Is(err, registry.ErrNoMatchingVersion) {
			return "", web.ErrVersionNotFound
		}
		return "", err
	}
	return matched, nil
}

func findRelease(releases []db.Release, version string) *db.Release {
	for i := range releases {
		if releases[i].Version == version {
			return &releases[i]
		}
	}
	return nil
}
