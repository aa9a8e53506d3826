package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/artpar/stowage/internal/shell/api"
	"github.com/artpar/stowage/internal/shell/api/openapi"
	"github.com/artpar/stowage/internal/shell/metrics"
	"github.com/artpar/stowage/internal/shell/session"
	"github.com/artpar/stowage/internal/shell/store"
	"github.com/artpar/stowage/internal/shell/workers"
)

// =============================================================================
// Exit Codes
// =============================================================================

const (
	ExitSuccess         = 0
	ExitConfigError     = 1
	ExitDatabaseError   = 2
	ExitRestoreError    = 3
	ExitHTTPServerError = 4
)

// =============================================================================
// Server
// =============================================================================

// Server represents the Stowage application server.
type Server struct {
	config     *Config
	httpServer *http.Server
	store      *store.SQLiteStore
	registry   *session.Registry
	integrity  *workers.IntegrityChecker
	logger     *slog.Logger
}

// NewServer creates a new server with the given config.
func NewServer(cfg *Config, logger *slog.Logger) (*Server, error) {
	if err := ensureDataDir(cfg.Database.DSN); err != nil {
		return nil, &ServerError{
			Op:       "NewServer",
			Err:      err,
			ExitCode: ExitDatabaseError,
		}
	}

	s, err := store.NewSQLiteStore(cfg.Database.DSN)
	if err != nil {
		return nil, &ServerError{
			Op:       "NewServer",
			Err:      err,
			ExitCode: ExitDatabaseError,
		}
	}

	promReg := prometheus.NewRegistry()
	promReg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	m := metrics.New(promReg)
	registry := session.NewRegistry(s, m, cfg.SessionConfig(), logger)

	var integrity *workers.IntegrityChecker
	if cfg.Integrity.Enabled {
		integrity = workers.NewIntegrityChecker(workers.RegistryPlans(registry), m, cfg.IntegrityCheckerConfig(), logger)
	}

	opts := []api.Option{
		api.WithPinger(s),
		api.WithGenerator(openapi.NewGenerator(
			openapi.WithVersion(Version),
			openapi.WithServer("http://"+cfg.Server.Address()),
		)),
	}
	if cfg.Metrics.Enabled {
		opts = append(opts, api.WithGatherer(promReg))
	} else {
		logger.Info("metrics endpoint disabled")
	}
	handler := api.NewHandler(registry, logger, opts...)

	httpServer := &http.Server{
		Addr:         cfg.Server.Address(),
		Handler:      handler.Routes(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	logger.Info("rules configured",
		"cumulative_column_weight", cfg.Rules.CumulativeColumnWeight,
		"cost_per_move", cfg.Cost.PerMove,
		"cost_per_restow", cfg.Cost.PerReStow,
	)

	return &Server{
		config:     cfg,
		httpServer: httpServer,
		store:      s,
		registry:   registry,
		integrity:  integrity,
		logger:     logger,
	}, nil
}

// Restore reloads persisted plans and replays their journals.
func (s *Server) Restore(ctx context.Context) error {
	n, err := s.registry.Restore(ctx)
	if err != nil {
		return &ServerError{
			Op:       "Restore",
			Err:      err,
			ExitCode: ExitRestoreError,
		}
	}
	s.logger.Info("restored plans", "count", n)
	return nil
}

// Start restores persisted plans, starts the server and blocks until shutdown.
func (s *Server) Start(ctx context.Context) error {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	if err := s.Restore(ctx); err != nil {
		s.closeStore()
		return err
	}

	if s.integrity != nil {
		s.integrity.Start()
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("starting HTTP server",
			"address", s.config.Server.Address())
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case sig := <-sigCh:
		s.logger.Info("received shutdown signal", "signal", sig)
	case err := <-errCh:
		s.stopWorkers()
		s.closeStore()
		return &ServerError{
			Op:       "Start",
			Err:      err,
			ExitCode: ExitHTTPServerError,
		}
	case <-ctx.Done():
		s.logger.Info("context cancelled")
	}

	return s.Shutdown(context.Background())
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("initiating graceful shutdown")

	shutdownCtx, cancel := context.WithTimeout(ctx, s.config.Server.ShutdownTimeout)
	defer cancel()

	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		s.logger.Error("HTTP server shutdown error", "error", err)
	}

	s.stopWorkers()
	s.closeStore()
	s.logger.Info("shutdown complete")
	return nil
}

func (s *Server) stopWorkers() {
	if s.integrity != nil {
		s.integrity.Stop()
	}
}

func (s *Server) closeStore() {
	if err := s.store.Close(); err != nil {
		s.logger.Error("database close error", "error", err)
	}
}

// ensureDataDir creates the parent directory of a file DSN.
func ensureDataDir(dsn string) error {
	path := strings.TrimPrefix(dsn, "file:")
	if i := strings.IndexByte(path, '?'); i >= 0 {
		path = path[:i]
	}
	if path == "" || path == ":memory:" {
		return nil
	}
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create data directory %s: %w", dir, err)
	}
	return nil
}

// =============================================================================
// Server Error
// =============================================================================

// ServerError represents an error during server operation.
type ServerError struct {
	Op       string
	Err      error
	ExitCode int
}

func (e *ServerError) Error() string {
	return e.Op + ": " + e.Err.Error()
}

func (e *ServerError) Unwrap() error {
	return e.Err
}
