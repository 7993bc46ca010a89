// Package httpserver wires the docserve HTTP surfaces: the public docs
// server and the admin server with health and metrics endpoints.
package httpserver

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"

	"git.home.luguber.info/inful/docserve/internal/config"
	"git.home.luguber.info/inful/docserve/internal/db"
	"git.home.luguber.info/inful/docserve/internal/metrics"
	"git.home.luguber.info/inful/docserve/internal/server/handlers"
	"git.home.luguber.info/inful/docserve/internal/server/middleware"
	"git.home.luguber.info/inful/docserve/internal/web"
)

// Server manages the docs and admin HTTP servers.
type Server struct {
	cfg      *config.Config
	handlers *handlers.Handlers
	database *db.DB
	recorder metrics.Recorder
	registry *prom.Registry

	docsServer  *http.Server
	adminServer *http.Server
}

// New constructs the HTTP server wiring. registry may be nil to disable the
// Prometheus endpoint.
func New(cfg *config.Config, h *handlers.Handlers, database *db.DB, recorder metrics.Recorder, registry *prom.Registry) *Server {
	if recorder == nil {
		recorder = metrics.NoopRecorder{}
	}
	web.SetKindRecorder(recorder.IncErrorKind)
	return &Server{
		cfg:      cfg,
		handlers: h,
		database: database,
		recorder: recorder,
		registry: registry,
	}
}

// Start binds and launches both servers. All ports are pre-bound so a
// conflict on either surfaces as one aggregate error before anything runs.
func (s *Server) Start(ctx context.Context) error {
	type preBind struct {
		name string
		port int
		ln   net.Listener
	}
	binds := []preBind{
		{name: "docs", port: s.cfg.Listen.DocsPort},
		{name: "admin", port: s.cfg.Listen.AdminPort},
	}

	var bindErrs []error
	lc := net.ListenConfig{}
	for i := range binds {
		ln, err := lc.Listen(ctx, "tcp", fmt.Sprintf(":%d", binds[i].port))
		if err != nil {
			bindErrs = append(bindErrs, fmt.Errorf("%s port %d: %w", binds[i].name, binds[i].port, err))
			continue
		}
		binds[i].ln = ln
	}
	if len(bindErrs) > 0 {
		for _, b := range binds {
			if b.ln != nil {
				_ = b.ln.Close()
			}
		}
		return fmt.Errorf("http startup failed: %w", errors.Join(bindErrs...))
	}

	s.docsServer = newHTTPServer(s.docsHandler())
	s.adminServer = newHTTPServer(s.AdminMux())
	startServer("docs", s.docsServer, binds[0].ln)
	startServer("admin", s.adminServer, binds[1].ln)

	slog.Info("HTTP servers started",
		slog.Int("docs_port", s.cfg.Listen.DocsPort),
		slog.Int("admin_port", s.cfg.Listen.AdminPort))
	return nil
}

// Stop gracefully shuts down both servers, admin first.
func (s *Server) Stop(ctx context.Context) error {
	var errs []error
	if s.adminServer != nil {
		if err := s.adminServer.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("admin server shutdown: %w", err))
		}
	}
	if s.docsServer != nil {
		if err := s.docsServer.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("docs server shutdown: %w", err))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("shutdown errors: %w", errors.Join(errs...))
	}
	slog.Info("HTTP servers stopped")
	return nil
}

// docsHandler wraps the route table in the standard middleware chain.
// Recovered panics on this surface render as HTML error pages.
func (s *Server) docsHandler() http.Handler {
	chain := middleware.Chain(slog.Default(), s.recorder, web.RenderHTMLError)
	return chain(s.handlers.DocsMux())
}

// AdminMux returns the admin surface: liveness, readiness and metrics.
func (s *Server) AdminMux() *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /ready", s.handleReadiness)
	mux.HandleFunc("GET /readyz", s.handleReadiness)
	if s.registry != nil {
		mux.Handle("GET /metrics", metrics.HTTPHandler(s.registry))
	}
	return mux
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// handleReadiness reports ready once the metadata database answers pings.
func (s *Server) handleReadiness(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()
	if err := s.database.Ping(ctx); err != nil {
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte("not ready: database unreachable"))
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}

func newHTTPServer(h http.Handler) *http.Server {
	return &http.Server{
		Handler:      h,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}
}

func startServer(kind string, srv *http.Server, ln net.Listener) {
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error(fmt.Sprintf("%s server error", kind), slog.Any("error", err))
		}
	}()
}
