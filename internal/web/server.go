// Package web provides the HTTP server and handlers for certificate lookup.
package web

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/JonMunkholm/certgen/internal/audit"
	"github.com/JonMunkholm/certgen/internal/certificate"
	"github.com/JonMunkholm/certgen/internal/config"
	"github.com/JonMunkholm/certgen/internal/export"
	"github.com/JonMunkholm/certgen/internal/render"
	"github.com/JonMunkholm/certgen/internal/session"
	"github.com/JonMunkholm/certgen/internal/web/middleware"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
)

// Lookup resolves a certificate ID against the data source.
type Lookup interface {
	Lookup(ctx context.Context, query string) (*certificate.Certificate, error)
}

// Deps are the collaborators the server needs.
type Deps struct {
	Lookup   Lookup
	Sessions *session.Store
	Image    export.Exporter
	Theme    render.Theme
	Audit    audit.Recorder

	// Renders is reported by /healthz when set.
	Renders *export.Limiter
}

// Server is the HTTP server for certificate lookup.
type Server struct {
	deps     Deps
	cfg      *config.Config
	router   *chi.Mux
	server   *http.Server
	limiters []*middleware.RateLimiter
}

// NewServer creates a new Server instance.
func NewServer(deps Deps, cfg *config.Config) *Server {
	if deps.Audit == nil {
		deps.Audit = audit.NewMemoryRecorder(audit.DefaultRecentLimit)
	}
	s := &Server{
		deps:   deps,
		cfg:    cfg,
		router: chi.NewRouter(),
	}
	s.setupMiddleware()
	s.setupRoutes()
	s.server = &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      s.router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}
	return s
}

// setupMiddleware configures middleware for all routes.
func (s *Server) setupMiddleware() {
	s.router.Use(chimw.RequestID)
	s.router.Use(middleware.TrustedRealIP(s.cfg.Security.TrustedProxies))
	s.router.Use(middleware.Logger)
	s.router.Use(chimw.Recoverer)
	s.router.Use(chimw.Compress(5))
	s.router.Use(chimw.Timeout(s.cfg.Server.RequestTimeout))
	s.router.Use(middleware.SecurityHeaders(s.cfg.Security.EnableCSP))
	s.router.Use(s.withSession)

	if s.cfg.Rate.Enabled {
		s.router.Use(s.rateLimit(s.cfg.Rate.RequestsPerMinute))
	}
}

// setupRoutes configures all HTTP routes.
func (s *Server) setupRoutes() {
	s.router.Get("/", s.handleIndex)
	s.router.Get("/healthz", s.handleHealth)
	s.router.Post("/certificate", s.handleLookup)

	s.router.Group(func(r chi.Router) {
		if s.cfg.Rate.Enabled {
			r.Use(s.rateLimit(s.cfg.Rate.ExportLimit))
		}
		r.Get("/certificate/image", s.handleImage)
		r.Get("/certificate/print", s.handlePrint)
	})

	s.router.Route("/api", func(r chi.Router) {
		r.Get("/certificates/{id}", s.handleAPILookup)
		r.Get("/events", s.handleEvents)
	})
}

// rateLimit builds a per-IP limiter that Shutdown stops.
func (s *Server) rateLimit(perMinute int) func(http.Handler) http.Handler {
	rl := middleware.NewRateLimiter(perMinute, time.Minute)
	s.limiters = append(s.limiters, rl)
	return rl.Middleware(func(w http.ResponseWriter, r *http.Request, err error) {
		s.respondError(w, r, err, http.StatusTooManyRequests)
	})
}

// Start begins listening for HTTP requests. It returns nil once Shutdown has
// been called, including when Shutdown ran first.
func (s *Server) Start() error {
	slog.Info("starting server", "addr", s.server.Addr)
	err := s.server.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Shutdown gracefully stops the server and its rate limiters.
func (s *Server) Shutdown(ctx context.Context) error {
	for _, rl := range s.limiters {
		rl.Stop()
	}
	return s.server.Shutdown(ctx)
}

// Router returns the underlying chi router for testing.
func (s *Server) Router() *chi.Mux {
	return s.router
}
