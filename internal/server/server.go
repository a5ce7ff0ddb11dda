package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"mcp-calculator-go/internal/calculator"
	"mcp-calculator-go/internal/mcp"
	"mcp-calculator-go/internal/session"
	"mcp-calculator-go/internal/telemetry"
	"mcp-calculator-go/internal/tools"
)

// Name is reported to MCP clients as the server name.
const Name = "mcp-calculator"

// Version is reported to MCP clients. Overridden at build time with -ldflags.
var Version = "dev"

// Server wires the tool registry, sessions and telemetry behind a chi router.
type Server struct {
	config Config
	logger zerolog.Logger

	registry *prometheus.Registry
	metrics  *telemetry.Metrics
	store    *session.MemoryStore
	sessions session.Manager
	cleanup  *session.CleanupService
	runtime  *telemetry.RuntimeCollector

	handler    http.Handler
	httpServer *http.Server

	mu     sync.Mutex
	cancel context.CancelFunc
}

// New creates a new server with the given configuration.
func New(cfg Config, logger zerolog.Logger) (*Server, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	metrics := telemetry.NewMetrics(reg)

	toolRegistry := tools.NewRegistry()
	toolRegistry.Register(calculator.NewTool())
	for name, tool := range toolRegistry.List() {
		logger.Info().
			Str("tool", name).
			Str("type", fmt.Sprintf("%T", tool)).
			Msg("Registered tool")
	}

	store := session.NewMemoryStore(logger)
	sessions := telemetry.NewSessionManager(
		session.NewDefaultManager(store, session.ManagerConfig{SessionTimeout: cfg.SessionTimeout}, logger),
		metrics,
	)

	s := &Server{
		config:   cfg,
		logger:   logger.With().Str("component", "server").Logger(),
		registry: reg,
		metrics:  metrics,
		store:    store,
		sessions: sessions,
		cleanup:  session.NewCleanupService(sessions, session.CleanupConfig{CleanupInterval: cfg.CleanupInterval}, logger),
		runtime:  telemetry.NewRuntimeCollector(metrics, logger, cfg.MetricsInterval),
	}

	mcpHandler := mcp.NewHandler(telemetry.NewToolRegistry(toolRegistry, metrics), sessions, mcp.Config{
		ServerName:     Name,
		ServerVersion:  Version,
		RequireSession: cfg.RequireSession,
	}, logger)

	s.handler = s.routes(mcpHandler, logger)
	s.httpServer = &http.Server{
		Addr:    cfg.Addr,
		Handler: s.handler,
	}

	return s, nil
}

func (s *Server) routes(mcpHandler *mcp.Handler, logger zerolog.Logger) http.Handler {
	// POST /rpc resolves its session in the handler since initialize must
	// ignore any header it is sent.
	requiredSession := session.NewMiddleware(s.sessions, session.DefaultMiddlewareConfig(), logger)

	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(RequestLogger(logger))
	r.Use(middleware.Recoverer)
	r.Use(telemetry.HTTPMetricsMiddleware(s.metrics))

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", session.HeaderName},
		ExposedHeaders:   []string{"Content-Type", session.HeaderName},
		AllowCredentials: true,
		MaxAge:           300, // Maximum value not ignored by any of major browsers
	}))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})
	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{}))

	r.Get("/mcp", mcpHandler.Manifest)
	r.Post("/mcp", mcpHandler.Invoke)

	r.Post("/rpc", mcpHandler.RPC)
	r.With(requiredSession.Handler).Delete("/rpc", mcpHandler.EndSession)

	return r
}

// Handler returns the server's HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Start launches the session cleanup service and the runtime metrics
// collector. They run until ctx is cancelled or Shutdown is called.
func (s *Server) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cancel != nil {
		return
	}
	ctx, s.cancel = context.WithCancel(ctx)

	s.cleanup.Start(ctx)
	go s.runtime.Run(ctx)
}

// ListenAndServe serves HTTP on the configured address. It returns nil once
// Shutdown has closed the listener.
func (s *Server) ListenAndServe() error {
	s.logger.Info().
		Str("addr", s.config.Addr).
		Bool("require_session", s.config.RequireSession).
		Msg("Starting server")

	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("failed to serve: %w", err)
	}
	return nil
}

// Shutdown drains HTTP connections, then stops background workers and
// closes the session store.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info().Msg("Shutting down server")

	err := s.httpServer.Shutdown(ctx)
	if err != nil {
		s.logger.Error().Err(err).Msg("HTTP server shutdown failed")
	}

	s.mu.Lock()
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	s.mu.Unlock()

	s.cleanup.Stop()

	if closeErr := s.store.Close(); closeErr != nil {
		err = errors.Join(err, fmt.Errorf("failed to close session store: %w", closeErr))
	}

	s.logger.Info().Msg("Server stopped")
	return err
}
