package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"git.home.luguber.info/inful/docserve/internal/db"
	"git.home.luguber.info/inful/docserve/internal/web"
	"git.home.luguber.info/inful/docserve/internal/web/cache"
)

const recentReleaseLimit = 15

const searchResultLimit = 50

// Home handles GET /: the landing page with recent releases. The listing
// goes stale on every publish, so it is cached only briefly.
func (h *Handlers) Home(w http.ResponseWriter, r *http.Request) error {
	recent, err := h.db.RecentReleases(r.Context(), recentReleaseLimit)
	if err != nil {
		return web.DatabaseError(err)
	}
	cache.Apply(w.Header(), cache.ShortInCdnAndBrowser)
	return renderPage(w, homeTemplate, struct {
		Recent []db.ReleaseWithCrate
	}{Recent: recent})
}

// Search handles GET /releases/search. An empty query is treated as "no
// results" so the error layer renders the empty search page.
func (h *Handlers) Search(w http.ResponseWriter, r *http.Request) error {
	query := strings.TrimSpace(r.URL.Query().Get("query"))
	if query == "" {
		return web.ErrNoResults
	}

	matches, err := h.db.SearchReleases(r.Context(), query, searchResultLimit)
	if err != nil {
		return web.DatabaseError(err)
	}

	page := &web.SearchPage{
		Title:   fmt.Sprintf("Search results for %q", query),
		Query:   query,
		Results: searchResults(matches),
		Status:  http.StatusOK,
	}
	page.Write(w)
	return nil
}

// OwnerReleases handles GET /releases/owner/{owner}: every crate owned by
// the given login, rendered as a search result page.
func (h *Handlers) OwnerReleases(w http.ResponseWriter, r *http.Request) error {
	owner := r.PathValue("owner")

	crates, err := h.db.ListCratesByOwner(r.Context(), owner)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return web.ErrOwnerNotFound
		}
		return web.DatabaseError(err)
	}

	var results []web.SearchResult
	for _, crate := range crates {
		releases, err := h.db.ListReleases(r.Context(), crate.ID)
		if err != nil {
			return web.DatabaseError(err)
		}
		// ListReleases orders newest first; the first non-yanked release
		// represents the crate.
		for _, rel := range releases {
			if rel.Yanked {
				continue
			}
			results = append(results, web.SearchResult{
				Name:        crate.Name,
				Version:     rel.Version,
				Description: rel.Description,
				ReleaseTime: rel.ReleaseTime,
			})
			break
		}
	}

	page := &web.SearchPage{
		Title:   fmt.Sprintf("Crates owned by %s", owner),
		Results: results,
		Status:  http.StatusOK,
	}
	page.Write(w)
	return nil
}

func searchResults(matches []db.ReleaseWithCrate) []web.SearchResult {
	results := make([]web.SearchResult, len(matches))
	for i, m := range matches {
		results[i] = web.SearchResult{
			Name:        m.CrateName,
			Version:     m.Version,
			Description: m.Description,
			ReleaseTime: m.ReleaseTime,
		}
	}
	return results
}
