// Package api assembles the HTTP surface: gin router, middleware and the
// server lifecycle.
package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/bank-reconciliation-ledger/internal/api/handler"
	"github.com/bank-reconciliation-ledger/internal/config"
	"github.com/bank-reconciliation-ledger/internal/importing"
	"github.com/bank-reconciliation-ledger/internal/platform/messaging/producers"
	"github.com/gin-gonic/gin"
)

// Server handles HTTP requests and manages the application's lifecycle
type Server struct {
	logger     *slog.Logger // For structured logging
	httpServer *http.Server // Underlying HTTP server
	httpRouter *gin.Engine  // Gin router instance
}

// NewServer creates and configures a new HTTP server with the given services.
// publisher may be nil when asynchronous import is disabled.
func NewServer(
	log *slog.Logger,
	cfg *config.Config,
	ledgerService handler.TransactionService,
	accountService handler.AccountService,
	statementService handler.StatementService,
	matcher handler.Matcher,
	importer importing.RowImporter,
	publisher producers.MessagePublisher,
	audits handler.AuditReader,
) *Server {
	if cfg.Application.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	httpRouter := gin.New()

	accountHandler := handler.NewAccountHandler(log, accountService)
	transactionHandler := handler.NewTransactionHandler(log, ledgerService)
	statementHandler := handler.NewStatementHandler(log, statementService, matcher, importer, publisher)
	auditHandler := handler.NewAuditHandler(log, audits)

	setupRouter(log, httpRouter, accountHandler, transactionHandler, statementHandler, auditHandler)

	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      httpRouter,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	return &Server{
		logger:     log,
		httpServer: httpServer,
		httpRouter: httpRouter,
	}
}

// Start begins listening for HTTP requests
func (s *Server) Start() error {
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("failed to start HTTP server: %w", err)
	}
	return nil
}

// Stop gracefully shuts down the HTTP server with a timeout
func (s *Server) Stop(ctx context.Context) error {
	s.logger.Info("stopping HTTP server")

	shutdownCtx, cancel := context.WithTimeout(ctx, s.httpServer.WriteTimeout)
	defer cancel()

	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to stop HTTP server: %w", err)
	}

	return nil
}
