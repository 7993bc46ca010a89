package handlers

import (
	"fmt"
	"net/http"
	"path"
	"strings"

	"git.home.luguber.info/inful/docserve/internal/web"
	"git.home.luguber.info/inful/docserve/internal/web/cache"
)

// rustdocPrefix is where built documentation trees live in storage.
const rustdocPrefix = "rustdoc"

// staticPrefix is where shared static assets live in storage.
const staticPrefix = "static"

// CrateRootRedirect handles GET /{name}: redirect to the latest release's
// documentation. Root-level requests with a file extension (favicon.ico,
// robots.txt, ...) are served as static assets instead.
func (h *Handlers) CrateRootRedirect(w http.ResponseWriter, r *http.Request) error {
	name := r.PathValue("name")
	if strings.Contains(name, ".") {
		return h.serveStatic(w, r, name)
	}

	_, releases, err := h.crateWithReleases(r.Context(), name)
	if err != nil {
		return err
	}
	version, err := resolveVersion(releases, "latest")
	if err != nil {
		return err
	}
	return web.Redirect(fmt.Sprintf("/%s/%s/%s/index.html", name, version, name), cache.ForeverInCdn)
}

// VersionRedirect handles GET /{name}/{version}: resolve the requirement
// and redirect into the release's documentation tree.
func (h *Handlers) VersionRedirect(w http.ResponseWriter, r *http.Request) error {
	name := r.PathValue("name")
	req := r.PathValue("version")

	_, releases, err := h.crateWithReleases(r.Context(), name)
	if err != nil {
		return err
	}
	version, err := resolveVersion(releases, req)
	if err != nil {
		return err
	}
	return web.Redirect(fmt.Sprintf("/%s/%s/%s/index.html", name, version, name), cache.ForeverInCdn)
}

// DocFile handles GET /{name}/{version}/{path...}: serve a built
// documentation file from storage. A requirement that resolves to a
// different version redirects to the exact release first, so every served
// file lives under a canonical URL.
func (h *Handlers) DocFile(w http.ResponseWriter, r *http.Request) error {
	name := r.PathValue("name")
	req := r.PathValue("version")
	rest := r.PathValue("path")

	_, releases, err := h.crateWithReleases(r.Context(), name)
	if err != nil {
		return err
	}
	version, err := resolveVersion(releases, req)
	if err != nil {
		return err
	}
	if version != req {
		return web.Redirect(fmt.Sprintf("/%s/%s/%s", name, version, rest), cache.ForeverInCdn)
	}

	file, err := h.store.Get(r.Context(), path.Join(rustdocPrefix, name, version, rest))
	if err != nil {
		// A missing path classifies to "resource not found".
		return err
	}
	w.Header().Set("Content-Type", file.MimeType)
	cache.Apply(w.Header(), cache.ForeverInCdnAndStaleInBrowser)
	_, _ = w.Write(file.Content)
	return nil
}

// StaticFile handles GET /-/static/{path...}.
func (h *Handlers) StaticFile(w http.ResponseWriter, r *http.Request) error {
	return h.serveStatic(w, r, r.PathValue("path"))
}

func (h *Handlers) serveStatic(w http.ResponseWriter, r *http.Request, p string) error {
	file, err := h.store.Get(r.Context(), path.Join(staticPrefix, p))
	if err != nil {
		return err
	}
	w.Header().Set("Content-Type", file.MimeType)
	cache.Apply(w.Header(), cache.ForeverInCdnAndBrowser)
	_, _ = w.Write(file.Content)
	return nil
}
