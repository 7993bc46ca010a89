package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"git.home.luguber.info/inful/docserve/internal/db"
	"git.home.luguber.info/inful/docserve/internal/logfields"
	"git.home.luguber.info/inful/docserve/internal/version"
	"git.home.luguber.info/inful/docserve/internal/web"
)

type buildJSON struct {
	ID        int64     `json:"id"`
	Status    string    `json:"status"`
	BuildTime time.Time `json:"build_time"`
}

// BuildListJSON handles GET /crate/{name}/{version}/builds.json.
func (h *Handlers) BuildListJSON(w http.ResponseWriter, r *http.Request) error {
	_, builds, err := h.releaseBuilds(r)
	if err != nil {
		return err
	}

	out := make([]buildJSON, len(builds))
	for i, b := range builds {
		out[i] = buildJSON{ID: b.ID, Status: b.Status, BuildTime: b.BuildTime}
	}
	return writeJSON(w, http.StatusOK, out)
}

type releaseJSON struct {
	Version     string    `json:"version"`
	Description string    `json:"description,omitempty"`
	Yanked      bool      `json:"yanked"`
	Downloads   int64     `json:"downloads"`
	ReleaseTime time.Time `json:"release_time"`
}

type crateSummaryJSON struct {
	Name     string        `json:"name"`
	Owners   []string      `json:"owners"`
	Releases []releaseJSON `json:"releases"`
}

// CrateSummaryJSON handles GET /api/v1/crates/{name}.
func (h *Handlers) CrateSummaryJSON(w http.ResponseWriter, r *http.Request) error {
	name := r.PathValue("name")

	crate, releases, err := h.crateWithReleases(r.Context(), name)
	if err != nil {
		return err
	}
	owners, err := h.db.ListOwners(r.Context(), crate.ID)
	if err != nil {
		return web.DatabaseError(err)
	}

	summary := crateSummaryJSON{
		Name:     crate.Name,
		Owners:   make([]string, len(owners)),
		Releases: make([]releaseJSON, len(releases)),
	}
	for i, o := range owners {
		summary.Owners[i] = o.Login
	}
	for i, rel := range releases {
		summary.Releases[i] = releaseJSON{
			Version:     rel.Version,
			Description: rel.Description,
			Yanked:      rel.Yanked,
			Downloads:   rel.Downloads,
			ReleaseTime: rel.ReleaseTime,
		}
	}
	return writeJSON(w, http.StatusOK, summary)
}

type statusJSON struct {
	Status  string `json:"status"`
	Version string `json:"version"`
	Crates  int    `json:"crates"`
	Uptime  string `json:"uptime"`
}

// StatusJSON handles GET /api/v1/status. A database that cannot be reached
// surfaces as a pool error and renders as an internal error.
func (h *Handlers) StatusJSON(w http.ResponseWriter, r *http.Request) error {
	if err := h.db.Ping(r.Context()); err != nil {
		var pool *db.PoolError
		if errors.As(err, &pool) {
			return web.PoolError(pool.Err)
		}
		return err
	}
	crates, err := h.db.CountCrates(r.Context())
	if err != nil {
		return web.DatabaseError(err)
	}

	return writeJSON(w, http.StatusOK, statusJSON{
		Status:  "ok",
		Version: version.Version,
		Crates:  crates,
		Uptime:  time.Since(h.startTime).Round(time.Second).String(),
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) error {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		// Headers are already on the wire; all we can do is log.
		slog.Error("encode JSON response failed", logfields.Error(err))
	}
	return nil
}
