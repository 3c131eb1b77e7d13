package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/keepithuman/netconfig-automation/internal/inventory"
	"github.com/keepithuman/netconfig-automation/internal/logger"
	"github.com/keepithuman/netconfig-automation/internal/observability"
	"github.com/keepithuman/netconfig-automation/internal/storage"
	"github.com/keepithuman/netconfig-automation/pkg/config"
)

// Server is the REST gateway in front of the orchestrator.
type Server struct {
	cfg      config.APIConfig
	handlers *Handlers
	metrics  *observability.Metrics
	gatherer prometheus.Gatherer
	logger   logger.Logger
}

// ServerDeps wires the gateway's collaborators.
type ServerDeps struct {
	Config    config.APIConfig
	Version   string
	Inventory *inventory.Service
	Store     storage.Store
	Operator  Operator
	Metrics   *observability.Metrics
	Gatherer  prometheus.Gatherer
	Logger    logger.Logger
}

// NewServer assembles the gateway. The JWT secret must be set; serving
// an unauthenticated control plane is not an option.
func NewServer(deps ServerDeps) (*Server, error) {
	if deps.Config.JWTSecret == "" {
		return nil, fmt.Errorf("api: jwt secret is not configured")
	}
	if deps.Logger == nil {
		deps.Logger = logger.NewNop()
	}
	if deps.Version == "" {
		deps.Version = "dev"
	}
	if deps.Gatherer == nil {
		deps.Gatherer = prometheus.DefaultGatherer
	}

	handlers := &Handlers{
		cfg:       deps.Config,
		version:   deps.Version,
		tokens:    NewTokenService(deps.Config.JWTSecret, deps.Config.TokenExpiry),
		inventory: deps.Inventory,
		store:     deps.Store,
		operator:  deps.Operator,
		logger:    deps.Logger,
	}
	return &Server{
		cfg:      deps.Config,
		handlers: handlers,
		metrics:  deps.Metrics,
		gatherer: deps.Gatherer,
		logger:   deps.Logger,
	}, nil
}

// Handler builds the full route tree. Exposed so tests can drive the
// gateway through httptest without binding a socket.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(observeRequests(s.metrics))

	r.Method(http.MethodGet, "/metrics",
		promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", s.handlers.handleHealth)
		r.Get("/docs", s.handlers.handleDocs)
		r.Post("/auth/login", s.handlers.handleLogin)

		r.Group(func(r chi.Router) {
			r.Use(requireToken(s.handlers.tokens))

			r.Route("/devices", func(r chi.Router) {
				r.Get("/", s.handlers.handleListDevices)
				r.Post("/", s.handlers.handleAddDevice)
				r.Get("/{deviceID}", s.handlers.handleGetDevice)
				r.Put("/{deviceID}", s.handlers.handleUpdateDevice)
				r.Delete("/{deviceID}", s.handlers.handleDeleteDevice)
			})

			r.Post("/deploy", s.handlers.handleDeploy)
			r.Post("/backup", s.handlers.handleBackup)
			r.Post("/rollback", s.handlers.handleRollback)
			r.Get("/compliance", s.handlers.handleCompliance)
			r.Get("/history", s.handlers.handleHistory)
		})
	})
	return r
}

// Run serves until the context is cancelled, then drains in-flight
// requests before returning.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:         s.cfg.Listen,
		Handler:      s.Handler(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	serverErrors := make(chan error, 1)
	go func() {
		serverErrors <- srv.ListenAndServe()
	}()
	s.logger.WithField("listen", s.cfg.Listen).Info("api gateway listening")

	select {
	case err := <-serverErrors:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("api: serve: %w", err)
		}
		return nil
	case <-ctx.Done():
		s.logger.Info("api gateway shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			srv.Close()
			return fmt.Errorf("api: shutdown: %w", err)
		}
		return nil
	}
}
