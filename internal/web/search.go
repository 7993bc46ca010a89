package web

import (
	"net/http"
	"time"
)

// SearchResult is one release row on the search page.
type SearchResult struct {
	Name        string
	Version     string
	Description string
	ReleaseTime time.Time
}

// SearchPage is the data behind the release search results page. The search
// handler renders it for real results; the error layer reuses it with an
// empty result set when a search is submitted without a query.
type SearchPage struct {
	Title   string
	Query   string
	Results []SearchResult
	Status  int
}

// EmptySearchPage returns the default search page rendered for an empty
// search query.
func EmptySearchPage() *SearchPage {
	return &SearchPage{
		Title:  "No results given for empty search query",
		Status: http.StatusNotFound,
	}
}

// Write renders the search page at its own status code.
func (s *SearchPage) Write(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	status := s.Status
	if status == 0 {
		status = http.StatusOK
	}
	w.WriteHeader(status)
	if err := searchPageTemplate.Execute(w, s); err != nil {
		// Headers are already on the wire; all we can do is log.
		logTemplateError("search page", err)
	}
}
