// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package api wires together the HTTP router, middleware chain, and all
domain handlers into a runnable [http.Server].

Architecture:

  - This package is the topmost Presentation layer boundary.
  - It acts as the central composition root for the HTTP transport framework (chi router).
  - Only this package and cmd/portal are allowed to import net/http server primitives.
*/
package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/taibuivan/warungpintar/internal/assistant"
	"github.com/taibuivan/warungpintar/internal/gate"
	"github.com/taibuivan/warungpintar/internal/ingest"
	"github.com/taibuivan/warungpintar/internal/platform/config"
	"github.com/taibuivan/warungpintar/internal/platform/constants"
	"github.com/taibuivan/warungpintar/internal/platform/middleware"
	"github.com/taibuivan/warungpintar/internal/proxy"
)

// # Server Definitions

// Server wraps the chi router and the [http.Server].
//
// It is constructed once in main.go with all dependencies injected.
type Server struct {
	httpServer *http.Server
	router     *chi.Mux
	log        *slog.Logger
}

// # Handler Registry

// Handlers groups all domain-specific HTTP handler sets.
type Handlers struct {
	// Liveness is the /health handler, 200 while the process is alive.
	Liveness http.HandlerFunc

	// Readiness is the /ready handler, 200 when all dependencies are healthy.
	Readiness http.HandlerFunc

	// Metrics exposes the Prometheus registry on /metrics.
	Metrics http.Handler

	// Instrument wraps every request with the HTTP metrics.
	Instrument func(http.Handler) http.Handler

	// Resolver binds browser sessions to gate sessions and guards routes.
	Resolver *gate.Resolver

	// Gate handles login, registration, logout and navigation decisions.
	Gate *gate.Handler

	// Ingest handles file uploads and their commit.
	Ingest *ingest.Handler

	// Assistant answers chat questions.
	Assistant *assistant.Handler

	// Proxy forwards data calls to the backend.
	Proxy *proxy.Handler

	// Shell serves the single-page application.
	Shell *Shell
}

// # Server Initialization

// NewServer constructs the chi router with the full middleware chain and
// registers all route groups.
func NewServer(ctx context.Context, cfg *config.Config, log *slog.Logger, signer middleware.CookieSigner, h Handlers) *Server {
	r := chi.NewRouter()

	// # Middleware Chain
	// Global middleware applied in order of execution.
	r.Use(middleware.RequestID())
	r.Use(middleware.StructuredLogger(log))
	r.Use(h.Instrument)
	r.Use(chimw.Timeout(constants.GlobalRequestTimeout))
	r.Use(middleware.RateLimit(ctx, constants.DefaultRateLimitRPS, constants.DefaultRateLimitBurst))
	r.Use(middleware.PanicRecovery(log))
	r.Use(middleware.CORS(cfg))
	r.Use(chimw.CleanPath)

	// # Infrastructure Endpoints
	// Probes and scraping carry no browser session.
	r.Get("/health", h.Liveness)
	r.Get("/ready", h.Readiness)
	r.Handle("/metrics", h.Metrics)

	// # Browser Surface
	// Everything below runs with a signed session cookie and its gate session.
	r.Group(func(browser chi.Router) {
		browser.Use(middleware.Session(signer, middleware.SessionOptions{
			CookieName: constants.SessionCookieName,
			MaxAge:     int(constants.SessionCookieTTL / time.Second),
			Secure:     cfg.IsProduction(),
		}))
		browser.Use(h.Resolver.Middleware)

		browser.Route("/api/v1", func(api chi.Router) {
			api.Mount("/session", h.Gate.Routes())

			api.With(h.Resolver.RequireAudience(gate.AudienceUMKMOnly)).
				Mount("/ingest", h.Ingest.Routes())

			api.With(h.Resolver.RequireAuthenticated).
				Mount("/assistant", h.Assistant.Routes())

			api.With(h.Resolver.RequireAuthenticated).
				Mount("/backend", h.Proxy.Routes(h.Resolver.RequireAudience(gate.AudienceUMKMOnly)))
		})

		// Page navigations are guarded before the shell is served.
		browser.Handle("/*", h.Shell.Assets(h.Resolver.Pages(h.Shell)))
	})

	return &Server{
		router: r,
		log:    log,
		httpServer: &http.Server{
			Addr:              ":" + cfg.ServerPort,
			Handler:           r,
			ReadTimeout:       constants.DefaultReadTimeout,
			WriteTimeout:      constants.DefaultWriteTimeout,
			IdleTimeout:       constants.DefaultIdleTimeout,
			ReadHeaderTimeout: constants.DefaultReadHeaderTimeout,
		},
	}
}

// Handler returns the root handler, for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// # Server Lifecycle

// ListenAndServe starts the HTTP server.
//
// It blocks until the server is closed or an error occurs.
func (s *Server) ListenAndServe() error {
	s.log.Info("server_starting", slog.String("addr", s.httpServer.Addr))
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully stops the server, waiting for in-flight requests.
func (s *Server) Shutdown(timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	return s.httpServer.Shutdown(ctx)
}
