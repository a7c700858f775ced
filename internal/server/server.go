// Package server exposes the topic lifecycle over HTTP and WebSocket.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/worthlabs/worthhub/internal/domain"
	"github.com/worthlabs/worthhub/internal/server/handler"
	"github.com/worthlabs/worthhub/internal/server/middleware"
	"github.com/worthlabs/worthhub/internal/server/ws"
)

// Config holds the HTTP server configuration.
type Config struct {
	Port        int
	CORSOrigins []string
	APIKey      string // if empty, authentication is disabled

	// RateLimit caps requests per client IP per RateWindow. Zero disables
	// rate limiting.
	RateLimit  int
	RateWindow time.Duration
}

// Handlers aggregates all HTTP handlers that the server needs to register.
type Handlers struct {
	Health      *handler.HealthHandler
	Topics      *handler.TopicHandler
	Commitments *handler.CommitmentHandler
	Events      *handler.EventsHandler
}

// Server is the HTTP + WebSocket API server for the prediction topic hub.
type Server struct {
	httpServer *http.Server
	mux        *http.ServeMux
	logger     *slog.Logger
}

// NewServer creates a new Server with all routes registered on the ServeMux.
// It wires up middleware (logging, CORS, auth, rate limiting) and attaches
// the WebSocket hub.
func NewServer(cfg Config, handlers Handlers, wsHub *ws.Hub, limiter domain.RateLimiter, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	// Health check (no auth required).
	mux.HandleFunc("GET /api/health", handlers.Health.HealthCheck)

	// Topic lifecycle endpoints.
	mux.HandleFunc("POST /api/topics", handlers.Topics.CreateTopic)
	mux.HandleFunc("GET /api/topics", handlers.Topics.ListTopics)
	mux.HandleFunc("GET /api/topics/{id}", handlers.Topics.GetTopic)
	mux.HandleFunc("POST /api/topics/{id}/finalize", handlers.Topics.Finalize)
	mux.HandleFunc("POST /api/topics/{id}/settle", handlers.Topics.Settle)
	mux.HandleFunc("GET /api/topics/{id}/settlement", handlers.Topics.GetSettlement)
	mux.HandleFunc("GET /api/topics/{id}/escrow", handlers.Topics.GetEscrow)

	// Commit/reveal endpoints.
	mux.HandleFunc("POST /api/topics/{id}/commit", handlers.Commitments.Commit)
	mux.HandleFunc("POST /api/topics/{id}/reveal", handlers.Commitments.Reveal)
	mux.HandleFunc("GET /api/topics/{id}/commitments", handlers.Commitments.ListCommitments)
	mux.HandleFunc("GET /api/topics/{id}/commitments/{participant}", handlers.Commitments.GetCommitment)

	// Event journal and audit log.
	mux.HandleFunc("GET /api/events", handlers.Events.ListEvents)
	mux.HandleFunc("GET /api/audit", handlers.Events.ListAudit)

	// WebSocket endpoint.
	if wsHub != nil {
		mux.HandleFunc("GET /ws", wsHub.HandleWS)
	}

	// Build the middleware chain.
	var h http.Handler = mux

	// Apply auth middleware (skips if APIKey is empty).
	h = middleware.Auth(cfg.APIKey)(h)

	// Apply per-client rate limiting when configured.
	if limiter != nil && cfg.RateLimit > 0 {
		window := cfg.RateWindow
		if window <= 0 {
			window = time.Second
		}
		h = middleware.RateLimit(limiter, cfg.RateLimit, window)(h)
	}

	// Apply request logging middleware.
	h = middleware.Logging(logger)(h)

	// Apply CORS middleware.
	h = middleware.CORS(cfg.CORSOrigins)(h)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      h,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return &Server{
		httpServer: srv,
		mux:        mux,
		logger:     logger,
	}
}

// Start begins listening for HTTP requests. It blocks until the server
// encounters an error or is shut down.
func (s *Server) Start() error {
	s.logger.Info("server: starting",
		slog.String("addr", s.httpServer.Addr),
	)
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server: listen: %w", err)
	}
	return nil
}

// Shutdown gracefully shuts down the server, waiting for in-flight requests
// to complete within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("server: shutting down")
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("server: shutdown: %w", err)
	}
	return nil
}
