// Copyright (c) 2026 Xit. All rights reserved.

/*
Package api wires together the HTTP router, middleware chain, and all
domain handlers into a runnable [http.Server].

Architecture:

  - This package is the topmost Presentation layer boundary.
  - It acts as the central composition root for the HTTP transport framework (chi router).
  - Only this package and cmd/api are allowed to import net/http server primitives.
*/
package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/moa-mel/xit-backend/internal/auth"
	"github.com/moa-mel/xit-backend/internal/chat"
	"github.com/moa-mel/xit-backend/internal/livestream"
	"github.com/moa-mel/xit-backend/internal/notification"
	"github.com/moa-mel/xit-backend/internal/platform/config"
	"github.com/moa-mel/xit-backend/internal/platform/constants"
	"github.com/moa-mel/xit-backend/internal/platform/middleware"
	"github.com/moa-mel/xit-backend/internal/podcast"
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
//
// # Usage
//
// New domains add a field here — no other change to server.go is required.
type Handlers struct {
	// Liveness is the /health handler — always returns 200 if process is alive.
	Liveness http.HandlerFunc

	// Readiness is the /ready handler — returns 200 when all deps are healthy.
	Readiness http.HandlerFunc

	// Auth handles the session lifecycle routes (signup, signin, refresh, reset).
	Auth *auth.Handler

	// Chat handles the chat REST surface (rooms, history).
	Chat *chat.Handler

	// ChatGateway is the WebSocket entry point for live chat traffic.
	ChatGateway *chat.Gateway

	// Notification handles the per-user notification feed.
	Notification *notification.Handler

	// Livestream handles broadcast lifecycle routes.
	Livestream *livestream.Handler

	// Podcast handles the episode catalog and publishing.
	Podcast *podcast.Handler
}

// # Server Initialization

// NewServer constructs the chi router with the full middleware chain and
// registers all route groups.
func NewServer(context context.Context, cfg *config.Config, log *slog.Logger, authenticator middleware.TokenAuthenticator, h Handlers) *Server {
	r := chi.NewRouter()

	// # Middleware Chain
	// Global middleware applied in order of execution.
	r.Use(middleware.RequestID())
	r.Use(middleware.StructuredLogger(log))
	r.Use(chimw.Timeout(constants.GlobalRequestTimeout))
	r.Use(middleware.RateLimit(context))
	r.Use(middleware.PanicRecovery(log))
	r.Use(middleware.Authenticate(authenticator))
	r.Use(middleware.CORS(cfg))
	r.Use(chimw.CleanPath)

	// # Infrastructure Endpoints
	// Unauthenticated health probes for container orchestration.
	r.Get("/health", h.Liveness)
	r.Get("/ready", h.Readiness)

	// # WebSocket Gateway
	// The gateway authenticates the token itself (it may arrive as a query
	// parameter), so it sits outside RequireAuth.
	r.Get("/ws/chat", h.ChatGateway.ServeHTTP)

	// # Application API
	// Domain-specific route groups mounted under versioned prefix.
	r.Route("/api/v1", func(api chi.Router) {
		api.Mount("/auth", h.Auth.Routes())

		// Everything below requires an authenticated session.
		api.Group(func(protected chi.Router) {
			protected.Use(middleware.RequireAuth)

			protected.Mount("/chat", h.Chat.Routes())
			protected.Mount("/notifications", h.Notification.Routes())
			protected.Mount("/livestreams", h.Livestream.Routes())
			protected.Mount("/podcasts", h.Podcast.Routes())
		})
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

// # Server Lifecycle

// ListenAndServe starts the HTTP server.
//
// It blocks until the server is closed or an error occurs.
func (s *Server) ListenAndServe() error {
	s.log.Info("server starting", slog.String("addr", s.httpServer.Addr))
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully stops the server, waiting for in-flight requests.
func (s *Server) Shutdown(timeout time.Duration) error {
	context, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	return s.httpServer.Shutdown(context)
}
