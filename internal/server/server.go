// Package server assembles the HTTP API: routing, middleware, and
// lifecycle management for the openshop service.
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	apperrors "github.com/Rastion/openshop-problem/internal/errors"
	"github.com/Rastion/openshop-problem/internal/observability"
	"github.com/Rastion/openshop-problem/internal/server/handlers"
	"github.com/Rastion/openshop-problem/internal/server/middleware"
)

// options holds the tunables beyond host and port.
type options struct {
	instancesDir    string
	readTimeout     time.Duration
	writeTimeout    time.Duration
	idleTimeout     time.Duration
	shutdownTimeout time.Duration
	throttleRPS     float64
	throttleBurst   int
	enablePprof     bool
}

func defaultOptions() options {
	return options{
		readTimeout:     30 * time.Second,
		writeTimeout:    30 * time.Second,
		idleTimeout:     120 * time.Second,
		shutdownTimeout: 10 * time.Second,
	}
}

// Option customizes server construction.
type Option func(*options)

// WithInstancesDir sets the base directory for instance endpoints.
// Empty keeps the loader default.
func WithInstancesDir(dir string) Option {
	return func(o *options) { o.instancesDir = dir }
}

// WithTimeouts sets the HTTP server timeouts.
func WithTimeouts(read, write, idle, shutdown time.Duration) Option {
	return func(o *options) {
		o.readTimeout = read
		o.writeTimeout = write
		o.idleTimeout = idle
		o.shutdownTimeout = shutdown
	}
}

// WithThrottle enables request rate limiting. Zero rps disables.
func WithThrottle(rps float64, burst int) Option {
	return func(o *options) {
		o.throttleRPS = rps
		o.throttleBurst = burst
	}
}

// WithPprof mounts the pprof profiler under /debug.
func WithPprof(enabled bool) Option {
	return func(o *options) { o.enablePprof = enabled }
}

// Server is the HTTP API server.
type Server struct {
	host    string
	port    int
	opts    options
	handler http.Handler

	httpServer *http.Server
}

// New creates a server bound to host:port. The handler is fully built
// at construction so tests can exercise routing without listening.
func New(host string, port int, opts ...Option) *Server {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	s := &Server{host: host, port: port, opts: o}
	s.handler = s.buildRouter()
	return s
}

// Port returns the configured port.
func (s *Server) Port() int {
	return s.port
}

// Handler returns the root HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.handler
}

func (s *Server) buildRouter() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.Recovery)
	r.Use(middleware.Logging)
	r.Use(middleware.Metrics)
	if s.opts.throttleRPS > 0 {
		r.Use(middleware.Throttle(s.opts.throttleRPS, s.opts.throttleBurst))
	}

	r.NotFound(func(w http.ResponseWriter, req *http.Request) {
		middleware.WriteError(w, req, apperrors.CodeNotFound,
			"resource not found", http.StatusNotFound, nil)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, req *http.Request) {
		middleware.WriteError(w, req, apperrors.CodeMethodNotAllowed,
			"method not allowed", http.StatusMethodNotAllowed, nil)
	})

	r.Get("/health", handlers.HealthHandler)
	r.Get("/health/live", handlers.LivenessHandler)
	r.Get("/health/ready", handlers.ReadinessHandler)
	r.Get("/health/startup", handlers.StartupHandler)
	r.Get("/version", handlers.VersionHandler)

	if exporter := observability.PrometheusExporter; exporter != nil {
		r.Method(http.MethodGet, "/metrics", exporter.Handler())
	}

	instancesHandler := handlers.NewInstancesHandler(s.opts.instancesDir)
	r.Get("/instances", instancesHandler.List)
	r.Get("/instances/*", instancesHandler.Get)
	r.Method(http.MethodPost, "/evaluate", handlers.NewEvaluateHandler(instancesHandler.Loader()))
	r.Method(http.MethodPost, "/solutions", handlers.NewSolutionsHandler(instancesHandler.Loader()))

	if s.opts.enablePprof {
		r.Mount("/debug", chimiddleware.Profiler())
	}

	return r
}

// Start serves HTTP until ctx is canceled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	addr := net.JoinHostPort(s.host, fmt.Sprintf("%d", s.port))
	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      s.handler,
		ReadTimeout:  s.opts.readTimeout,
		WriteTimeout: s.opts.writeTimeout,
		IdleTimeout:  s.opts.idleTimeout,
	}

	observability.ServerLogger.Info("http server starting", zap.String("addr", addr))

	errCh := make(chan error, 1)
	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.opts.shutdownTimeout)
	defer cancel()
	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http server shutdown: %w", err)
	}

	observability.ServerLogger.Info("http server stopped")
	return nil
}
