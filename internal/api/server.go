// Package api provides the HTTP API server for the meet operator service.
package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/trackmeet/engine/internal/api/middleware"
	"github.com/trackmeet/engine/internal/bibs"
	"github.com/trackmeet/engine/internal/checkin"
	"github.com/trackmeet/engine/internal/entries"
	"github.com/trackmeet/engine/internal/heats"
	"github.com/trackmeet/engine/internal/operator"
	"github.com/trackmeet/engine/internal/payments"
	"github.com/trackmeet/engine/internal/reports"
	"github.com/trackmeet/engine/internal/roster"
	"github.com/trackmeet/engine/internal/storage"
)

// Server represents the HTTP API server, wiring the domain
// services behind the operator route table.
type Server struct {
	httpServer *http.Server
	logger     *slog.Logger
	config     *ServerConfig
	startTime  time.Time

	conn *storage.Connection

	entries  *entries.Service
	payments *payments.Service
	heats    *heats.Service
	bibs     *bibs.Service
	checkin  *checkin.Service
	roster   *roster.Importer
	reports  *reports.Builder
	operator *operator.Service
}

// Dependencies bundles every service NewServer wires into the route
// table, keeping the constructor signature stable as the domain grows.
type Dependencies struct {
	Conn     *storage.Connection
	Entries  *entries.Service
	Payments *payments.Service
	Heats    *heats.Service
	Bibs     *bibs.Service
	Checkin  *checkin.Service
	Roster   *roster.Importer
	Reports  *reports.Builder
	Operator *operator.Service
}

// NewServer creates a new HTTP server instance with structured logging and
// middleware stack. Dependencies are injected explicitly rather than
// embedded in ServerConfig, separating configuration (what) from
// dependencies (how).
func NewServer(cfg *ServerConfig, deps Dependencies) *Server {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.LogLevel,
	}))

	if deps.Entries == nil || deps.Payments == nil || deps.Heats == nil || deps.Bibs == nil ||
		deps.Checkin == nil || deps.Roster == nil || deps.Reports == nil || deps.Operator == nil {
		logger.Error("one or more required services is nil - cannot start server")
		panic("api: all domain services are required - this indicates a wiring error")
	}

	mux := http.NewServeMux()

	server := &Server{
		logger:   logger,
		config:   cfg,
		conn:     deps.Conn,
		entries:  deps.Entries,
		payments: deps.Payments,
		heats:    deps.Heats,
		bibs:     deps.Bibs,
		checkin:  deps.Checkin,
		roster:   deps.Roster,
		reports:  deps.Reports,
		operator: deps.Operator,
	}

	server.setupRoutes(mux)

	logger.Info("meet operator API routes configured")

	// Middleware chain, outermost first:
	//   1. CorrelationID - generate correlation ID for all responses
	//   2. Recovery - catch panics in all downstream middleware
	//   3. RequestLogger - structured access log
	//   4. CORS - lightweight header manipulation
	// Operator-key gating is applied per-route (see routes.go), not
	// globally: most of this surface has no operator-key requirement.
	// No rate limiting is applied (see DESIGN.md).
	handler := middleware.Apply(mux,
		middleware.WithCorrelationID(),
		middleware.WithRecovery(logger),
		middleware.WithRequestLogger(logger),
		middleware.WithCORS(cfg.ToCORSConfig()),
	)

	httpServer := &http.Server{
		Addr:         cfg.Address(),
		Handler:      handler,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	server.httpServer = httpServer

	return server
}

// Start starts the HTTP server and blocks until shutdown.
// It handles graceful shutdown on SIGINT and SIGTERM signals.
func (s *Server) Start() error {
	if err := s.config.Validate(); err != nil {
		return fmt.Errorf("invalid server configuration: %w", err)
	}

	s.startTime = time.Now()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	serverErrors := make(chan error, 1)

	go func() {
		s.logger.Info("starting meet operator API server",
			slog.String("address", s.config.Address()),
			slog.Duration("read_timeout", s.config.ReadTimeout),
			slog.Duration("write_timeout", s.config.WriteTimeout),
			slog.Duration("shutdown_timeout", s.config.ShutdownTimeout),
		)

		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("server failed to start",
				slog.String("address", s.config.Address()),
				slog.String("error", err.Error()),
			)

			serverErrors <- fmt.Errorf("server failed to start: %w", err)
		}
	}()

	select {
	case err := <-serverErrors:
		return err
	case sig := <-stop:
		s.logger.Info("received shutdown signal", slog.String("signal", sig.String()))

		return s.shutdown()
	}
}

// shutdown gracefully shuts down the server.
func (s *Server) shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), s.config.ShutdownTimeout)
	defer cancel()

	s.logger.Info("initiating server shutdown", slog.Duration("shutdown_timeout", s.config.ShutdownTimeout))

	if err := s.httpServer.Shutdown(ctx); err != nil {
		s.logger.Error("server shutdown failed",
			slog.String("error", err.Error()),
			slog.Duration("shutdown_timeout", s.config.ShutdownTimeout),
		)

		return fmt.Errorf("server shutdown failed: %w", err)
	}

	if s.conn != nil {
		if err := s.conn.Close(); err != nil {
			s.logger.Error("failed to close database connection", slog.String("error", err.Error()))
		}
	}

	s.logger.Info("server shutdown completed successfully")

	return nil
}
