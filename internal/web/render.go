package web

import (
	"encoding/json"
	"fmt"
	"net/http"
)

// jsonErrorEnvelope is the exact error payload of JSON surfaces.
type jsonErrorEnvelope struct {
	Result  string `json:"result"`
	Title   string `json:"title"`
	Message string `json:"message"`
}

// writeHTML renders the error response for HTML surfaces: the generic error
// page for info shapes, pass-through for redirects, and the search results
// page (at its own status) for the empty-search shape.
func (er errorResponse) writeHTML(w http.ResponseWriter) {
	switch {
	case er.redirect != nil:
		er.redirect.Write(w)
	case er.search != nil:
		er.search.Write(w)
	default:
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.WriteHeader(er.info.status)
		data := errorPageData{Title: er.info.title, Message: er.info.message}
		if err := errorPageTemplate.Execute(w, data); err != nil {
			logTemplateError("error page", err)
		}
	}
}

// writeJSON renders the error response for JSON surfaces. The search shape
// is a contract violation here: JSON endpoints must never surface an
// empty-search failure, so its appearance aborts loudly instead of being
// silently substituted.
func (er errorResponse) writeJSON(w http.ResponseWriter) {
	switch {
	case er.redirect != nil:
		er.redirect.Write(w)
	case er.search != nil:
		panic(fmt.Sprintf("expecting that handlers returning JSON errors never return a search page, but got: %+v", er.search))
	default:
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.WriteHeader(er.info.status)
		envelope := jsonErrorEnvelope{Result: "err", Title: er.info.title, Message: er.info.message}
		if err := json.NewEncoder(w).Encode(envelope); err != nil {
			logTemplateError("json error envelope", err)
		}
	}
}

// RenderHTMLError classifies err and writes it as an HTML error response.
// Used by HTML handlers and by the panic-recovery middleware.
func RenderHTMLError(w http.ResponseWriter, err error) {
	classified := Classify(err)
	recordKind(classified.Kind())
	classified.response().writeHTML(w)
}

// RenderJSONError classifies err and writes it as a JSON error response.
func RenderJSONError(w http.ResponseWriter, err error) {
	classified := Classify(err)
	recordKind(classified.Kind())
	classified.response().writeJSON(w)
}

// HandlerFunc is an HTTP handler that reports failure by returning an error
// instead of rendering a response itself.
type HandlerFunc func(http.ResponseWriter, *http.Request) error

// Page adapts a handler for HTML surfaces: any returned error is classified
// and rendered as an HTML error page (or redirect).
func Page(h HandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := h(w, r); err != nil {
			RenderHTMLError(w, err)
		}
	})
}

// API adapts a handler for JSON surfaces: any returned error is classified
// and rendered as the JSON error envelope.
func API(h HandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := h(w, r); err != nil {
			RenderJSONError(w, err)
		}
	})
}
