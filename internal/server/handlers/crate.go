package handlers

import (
	"errors"
	"html/template"
	"net/http"
	"strconv"

	"git.home.luguber.info/inful/docserve/internal/db"
	"git.home.luguber.info/inful/docserve/internal/markdown"
	"git.home.luguber.info/inful/docserve/internal/web"
	"git.home.luguber.info/inful/docserve/internal/web/cache"
)

// CrateDetails handles GET /crate/{name} and GET /crate/{name}/{version}:
// the crate overview page with rendered README, owners and version list.
// The README fingerprint doubles as the page's ETag, so unchanged crates
// answer conditional requests with 304.
func (h *Handlers) CrateDetails(w http.ResponseWriter, r *http.Request) error {
	name := r.PathValue("name")
	req := r.PathValue("version")
	if req == "" {
		req = "latest"
	}

	crate, releases, err := h.crateWithReleases(r.Context(), name)
	if err != nil {
		return err
	}
	version, err := resolveVersion(releases, req)
	if err != nil {
		return err
	}
	release := findRelease(releases, version)
	if release == nil {
		return web.ErrVersionNotFound
	}

	// max-age=0 so clients revalidate against the ETag on every visit.
	etag := `"` + markdown.Fingerprint([]byte(release.Readme)) + `"`
	w.Header().Set("ETag", etag)
	cache.Apply(w.Header(), cache.NoCaching)
	if r.Header.Get("If-None-Match") == etag {
		w.WriteHeader(http.StatusNotModified)
		return nil
	}

	readme, err := markdown.Render([]byte(release.Readme))
	if err != nil {
		return err
	}
	owners, err := h.db.ListOwners(r.Context(), crate.ID)
	if err != nil {
		return web.DatabaseError(err)
	}

	return renderPage(w, crateTemplate, struct {
		Crate    *db.Crate
		Release  *db.Release
		Releases []db.Release
		Owners   []db.Owner
		Readme   template.HTML
	}{
		Crate:    crate,
		Release:  release,
		Releases: releases,
		Owners:   owners,
		Readme:   readme,
	})
}

// BuildList handles GET /crate/{name}/{version}/builds.
func (h *Handlers) BuildList(w http.ResponseWriter, r *http.Request) error {
	name := r.PathValue("name")
	version, builds, err := h.releaseBuilds(r)
	if err != nil {
		return err
	}
	return renderPage(w, buildsTemplate, struct {
		Crate   string
		Version string
		Builds  []db.Build
	}{Crate: name, Version: version, Builds: builds})
}

// BuildDetails handles GET /crate/{name}/{version}/builds/{id}: one build's
// status and captured output. An id that is not a number or does not belong
// to the addressed release is a missing build, not a missing page.
func (h *Handlers) BuildDetails(w http.ResponseWriter, r *http.Request) error {
	name := r.PathValue("name")
	req := r.PathValue("version")

	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		return web.ErrBuildNotFound
	}

	crate, releases, err := h.crateWithReleases(r.Context(), name)
	if err != nil {
		return err
	}
	version, err := resolveVersion(releases, req)
	if err != nil {
		return err
	}
	release := findRelease(releases, version)
	if release == nil {
		return web.ErrVersionNotFound
	}

	build, err := h.db.GetBuild(r.Context(), id)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return web.ErrBuildNotFound
		}
		return web.DatabaseError(err)
	}
	if build.ReleaseID != release.ID {
		return web.ErrBuildNotFound
	}

	return renderPage(w, buildDetailTemplate, struct {
		Crate   *db.Crate
		Version string
		Build   *db.Build
	}{Crate: crate, Version: version, Build: build})
}

// releaseBuilds resolves the crate/version pair from the request and loads
// the release's builds.
func (h *Handlers) releaseBuilds(r *http.Request) (string, []db.Build, error) {
	name := r.PathValue("name")
	req := r.PathValue("version")

	_, releases, err := h.crateWithReleases(r.Context(), name)
	if err != nil {
		return "", nil, err
	}
	version, err := resolveVersion(releases, req)
	if err != nil {
		return "", nil, err
	}
	release := findRelease(releases, version)
	if release == nil {
		return "", nil, web.ErrVersionNotFound
	}

	builds, err := h.db.ListBuilds(r.Context(), release.ID)
	if err != nil {
		return "", nil, web.DatabaseError(err)
	}
	return version, builds, nil
}
