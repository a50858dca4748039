package server

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"resumatch/internal/ai"
	"resumatch/internal/observability"
	"resumatch/internal/registry"
	"resumatch/internal/scoring"
)

const shutdownTimeout = 30 * time.Second

// Start starts the HTTP server and blocks until a shutdown signal or a
// listener error
func (s *Server) Start() error {
	om, err := s.initializeObservability()
	if err != nil {
		return err
	}
	defer s.shutdownObservability(om)

	if s.Backend == nil {
		backend, err := s.buildBackend(context.Background(), om)
		if err != nil {
			return err
		}
		s.Backend = backend
	}

	httpServer := s.setupHTTPServer(om)
	if err := s.configureTLS(httpServer); err != nil {
		return err
	}

	s.displayServerInfo()

	return s.startWithGracefulShutdown(httpServer)
}

// initializeObservability sets up observability components
func (s *Server) initializeObservability() (*observability.ObservabilityManager, error) {
	obsConfig := observability.GetObservabilityConfig(s.AppConfig, s.Version)

	om, err := observability.NewObservabilityManager(obsConfig, s.AppConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize observability: %w", err)
	}
	return om, nil
}

// shutdownObservability handles observability cleanup
func (s *Server) shutdownObservability(om *observability.ObservabilityManager) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := om.Shutdown(ctx); err != nil {
		s.Logger.LogError(err, "Failed to shutdown observability")
	}
}

// buildBackend wires the model registry, enrichment adapter and engine. The
// embedding provider is warmed up here so configuration problems surface at
// startup; a failure is logged and reported by /health, not fatal.
func (s *Server) buildBackend(ctx context.Context, om *observability.ObservabilityManager) (*Backend, error) {
	metrics := om.GetMetrics()

	models := registry.New(s.AppConfig, s.Logger)
	adapter := ai.NewAdapterFromConfig(ctx, s.AppConfig, metrics, s.Logger)

	engine, err := scoring.NewEngine(models, scoring.Options{
		Policy:     s.AppConfig.Scoring.Policy,
		Weights:    scoring.WeightsFromConfig(s.AppConfig.Scoring.Weights),
		Enrichment: adapter,
		Metrics:    metrics,
	}, s.Logger)
	if err != nil {
		return nil, err
	}

	if _, err := models.Embedder(ctx); err != nil {
		s.Logger.Warn("Embedding provider unavailable at startup; scoring requests will fail with 503",
			"error", err.Error())
	}
	models.Probability()

	return &Backend{
		Scorer:     engine,
		Models:     models,
		Enrichment: adapter,
		close:      models.Close,
	}, nil
}

// setupHTTPServer creates and configures the HTTP server
func (s *Server) setupHTTPServer(om *observability.ObservabilityManager) *http.Server {
	return &http.Server{
		Addr:         fmt.Sprintf("%s:%s", s.Host, s.Port),
		Handler:      s.Handler(om),
		ReadTimeout:  s.ReadTimeout,
		WriteTimeout: s.WriteTimeout,
		IdleTimeout:  s.IdleTimeout,
	}
}

// startWithGracefulShutdown starts the HTTP server and handles graceful shutdown
func (s *Server) startWithGracefulShutdown(server *http.Server) error {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	serverErrors := make(chan error, 1)

	go func() {
		s.Logger.Info("Starting HTTP server",
			"address", server.Addr,
			"tls_enabled", server.TLSConfig != nil)

		var err error
		if server.TLSConfig != nil {
			// Certificates are already in TLSConfig.
			err = server.ListenAndServeTLS("", "")
		} else {
			err = server.ListenAndServe()
		}

		if err != nil && err != http.ErrServerClosed {
			serverErrors <- err
		}
	}()

	select {
	case err := <-serverErrors:
		s.releaseResources()
		return fmt.Errorf("server failed to start: %w", err)
	case sig := <-quit:
		s.Logger.Info("Received shutdown signal, starting graceful shutdown",
			"signal", sig.String())
		return s.performGracefulShutdown(server)
	}
}

// performGracefulShutdown handles the graceful shutdown process
func (s *Server) performGracefulShutdown(server *http.Server) error {
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	s.Logger.Info("Shutting down HTTP server...")
	err := server.Shutdown(shutdownCtx)
	s.releaseResources()
	if err != nil {
		s.Logger.LogError(err, "Failed to shutdown server gracefully, forcing close")
		return server.Close()
	}

	s.Logger.Info("Server shutdown completed successfully")
	return nil
}

// releaseResources stops the rate limiter and closes backend connections
func (s *Server) releaseResources() {
	if s.RateLimiter != nil {
		s.RateLimiter.Close()
		s.Logger.Info("Rate limiter cleaned up")
	}
	if s.Backend != nil && s.Backend.close != nil {
		if err := s.Backend.close(); err != nil {
			s.Logger.LogError(err, "Failed to close backend")
		}
	}
}
