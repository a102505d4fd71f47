// Package server wires the HTTP surface of slackbridge: routing, the
// middleware stack, and the server lifecycle.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"slackbridge/config"
	"slackbridge/errors"
	"slackbridge/server/metrics"
	"slackbridge/server/middleware"
)

// Router handles HTTP routing
type Router struct {
	router chi.Router
}

// NewRouter creates the router with the full middleware stack. events may
// be nil when the upstream clients failed to initialize; the route then
// reports the service as unavailable while /health explains why.
func NewRouter(healthHandler, events http.Handler, m *metrics.Metrics, cfg *config.Config, logger *zap.Logger) *Router {
	r := chi.NewRouter()

	// Add our middleware stack
	r.Use(middleware.RequestID)
	r.Use(middleware.RequestTimer)
	r.Use(middleware.Logging(logger))
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.PrometheusMetrics(m))

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		errors.ErrorWithKind(w, "Endpoint not found", errors.NotFoundError, http.StatusNotFound)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		errors.ErrorWithKind(w, "Method not allowed", errors.InvalidArgument, http.StatusMethodNotAllowed)
	})

	if events == nil {
		events = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			errors.ErrorWithKind(w, "Upstream clients not initialized", errors.InitializationFailed, http.StatusServiceUnavailable)
		})
	}

	// Mount routes
	r.Get("/health", healthHandler.ServeHTTP)
	r.Method(http.MethodGet, "/metrics", m.Handler())
	r.With(middleware.RateLimit(cfg.RateLimit.Requests, cfg.RateLimit.Window, m)).
		Post("/slack/events", events.ServeHTTP)

	return &Router{router: r}
}

// ServeHTTP implements http.Handler
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r.router.ServeHTTP(w, req)
}

// Server represents the HTTP server
type Server struct {
	httpServer      *http.Server
	shutdownTimeout time.Duration
	logger          *zap.Logger
}

// NewServer creates a new server instance
func NewServer(cfg config.ServerConfig, handler http.Handler, logger *zap.Logger) *Server {
	return &Server{
		httpServer: &http.Server{
			Addr:           fmt.Sprintf(":%d", cfg.Port),
			Handler:        handler,
			ReadTimeout:    cfg.ReadTimeout,
			WriteTimeout:   cfg.WriteTimeout,
			MaxHeaderBytes: cfg.MaxHeaderBytes,
		},
		shutdownTimeout: cfg.ShutdownTimeout,
		logger:          logger,
	}
}

// Start starts the server and blocks until ctx is cancelled or the server
// fails.
func (s *Server) Start(ctx context.Context) error {
	errChan := make(chan error, 1)

	go func() {
		s.logger.Info("Server started", zap.String("address", s.httpServer.Addr))
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errChan <- fmt.Errorf("server error: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
		defer cancel()

		s.logger.Info("Shutting down server")
		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown error: %w", err)
		}
		return nil
	case err := <-errChan:
		return err
	}
}
