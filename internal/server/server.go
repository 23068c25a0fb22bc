// Package server provides the HTTP API for backtests, paper simulations,
// weight optimization, and run history.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"

	"github.com/aristath/aetherquant/internal/config"
	"github.com/aristath/aetherquant/internal/marketdata"
	"github.com/aristath/aetherquant/internal/modules/optimization"
	"github.com/aristath/aetherquant/internal/modules/runs"
)

// Config holds server wiring.
type Config struct {
	Log      zerolog.Logger
	Config   *config.Config
	Provider marketdata.Provider
	Runs     *runs.Repository
}

// Server is the HTTP server.
type Server struct {
	router    *chi.Mux
	server    *http.Server
	log       zerolog.Logger
	cfg       *config.Config
	provider  marketdata.Provider
	runs      *runs.Repository
	optimizer *optimization.Optimizer
	limiter   *rateLimiter
}

// New creates a new HTTP server.
func New(cfg Config) *Server {
	s := &Server{
		router:    chi.NewRouter(),
		log:       cfg.Log.With().Str("component", "server").Logger(),
		cfg:       cfg.Config,
		provider:  cfg.Provider,
		runs:      cfg.Runs,
		optimizer: optimization.NewOptimizer(cfg.Log),
		limiter:   newRateLimiter(cfg.Config.RateLimitPerMinute),
	}

	s.setupMiddleware()
	s.setupRoutes()

	s.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Config.Port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return s
}

// setupMiddleware configures middleware
func (s *Server) setupMiddleware() {
	// Recovery from panics
	s.router.Use(middleware.Recoverer)

	// Request ID
	s.router.Use(s.requestIDMiddleware)

	// Real IP
	s.router.Use(middleware.RealIP)

	// Logging
	s.router.Use(s.loggingMiddleware)

	// Timeout
	s.router.Use(middleware.Timeout(60 * time.Second))

	// CORS
	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-API-Key"},
		AllowCredentials: true,
		MaxAge:           300,
	}))
}

// setupRoutes configures all routes
func (s *Server) setupRoutes() {
	// Health check is unauthenticated
	s.router.Get("/health", s.handleHealth)

	s.router.Route("/api", func(r chi.Router) {
		r.Use(s.authMiddleware)
		r.Use(s.rateLimitMiddleware)
		r.Use(s.auditMiddleware)

		r.Post("/backtest", s.handleBacktest)
		r.Post("/simulate", s.handleSimulate)
		r.Get("/signal", s.handleSignal)

		r.Route("/optimize", func(r chi.Router) {
			r.Post("/risk-parity", s.handleRiskParity)
			r.Post("/mean-variance", s.handleMeanVariance)
		})

		r.Get("/runs", s.handleListRuns)
		r.Get("/runs/{id}/equity", s.handleRunEquity)

		r.Route("/system", func(r chi.Router) {
			r.Get("/status", s.handleSystemStatus)
		})

		// Admin-only
		r.Group(func(r chi.Router) {
			r.Use(s.requireAdmin)
			r.Get("/audit", s.handleListAudit)
			r.Post("/live/orders", s.handleLiveOrder)
			r.Get("/live/account", s.handleLiveAccount)
		})
	})
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	s.log.Info().Int("port", s.cfg.Port).Msg("Starting HTTP server")
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info().Msg("Shutting down HTTP server")
	return s.server.Shutdown(ctx)
}

// Router exposes the handler tree for tests.
func (s *Server) Router() http.Handler {
	return s.router
}

// loggingMiddleware logs HTTP requests
func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		s.log.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Int("bytes", ww.BytesWritten()).
			Dur("duration_ms", time.Since(start)).
			Str("request_id", requestIDFromContext(r.Context())).
			Msg("HTTP request")
	})
}
