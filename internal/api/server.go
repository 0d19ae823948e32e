// Package api provides the HTTP API server and handlers for the Recall application.
package api

import (
	"log/slog"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/recall-app/recall-server/internal/events"
	"github.com/recall-app/recall-server/internal/ratelimit"
	"github.com/recall-app/recall-server/internal/store"
	"github.com/recall-app/recall-server/internal/validation"
)

// Server holds dependencies for HTTP handlers.
type Server struct {
	store       store.RecordStore
	services    *Services
	sseHandler  *events.Handler
	broadcaster *events.Broadcaster
	router      *chi.Mux
	api         huma.API
	logger      *slog.Logger
	rateLimiter *ratelimit.KeyedRateLimiter
	validator   *validation.Validator
}

// ServerOptions configures optional server behavior.
type ServerOptions struct {
	// RateLimiter limits requests per client IP. Nil disables limiting.
	RateLimiter *ratelimit.KeyedRateLimiter
}

// NewServer creates a new HTTP server with all routes configured.
func NewServer(
	recordStore store.RecordStore,
	services *Services,
	broadcaster *events.Broadcaster,
	logger *slog.Logger,
	opts ServerOptions,
) *Server {
	router := chi.NewRouter()

	s := &Server{
		store:       recordStore,
		services:    services,
		broadcaster: broadcaster,
		router:      router,
		logger:      logger,
		rateLimiter: opts.RateLimiter,
		validator:   validation.New(),
	}
	if broadcaster != nil {
		s.sseHandler = events.NewHandler(broadcaster, logger)
	}

	s.setupMiddleware()

	humaConfig := huma.DefaultConfig("Recall API", "1.0.0")
	s.api = humachi.New(router, humaConfig)
	RegisterErrorHandler()

	s.setupRoutes()

	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// setupMiddleware configures middleware stack.
func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(middleware.Logger)
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.Compress(5))
	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	if s.rateLimiter != nil {
		s.router.Use(RateLimitMiddleware(s.rateLimiter, s.logger))
	}
}

// setupRoutes configures all HTTP routes.
func (s *Server) setupRoutes() {
	s.registerHealthRoutes()
	s.registerRecordRoutes()
	s.registerViewRoutes()
	s.registerSearchRoutes()
	s.registerTagRoutes()
	s.registerAdminRoutes()

	// SSE stream is raw chi: huma's response model doesn't fit a
	// long-lived event stream.
	if s.sseHandler != nil {
		s.router.Get("/api/v1/events/stream", s.sseHandler.ServeHTTP)
	}
}
