package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/bank-reconciliation-ledger/internal/api/handler"
	"github.com/bank-reconciliation-ledger/internal/api/middleware"
	"github.com/gin-gonic/gin"
)

// setupRouter configures API routes and middleware for the application
func setupRouter(
	logger *slog.Logger,
	r *gin.Engine,
	accountHandler *handler.AccountHandler,
	transactionHandler *handler.TransactionHandler,
	statementHandler *handler.StatementHandler,
	auditHandler *handler.AuditHandler,
) {
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.Logger(logger))
	r.Use(middleware.CorrelationID())

	// API v1 endpoints, all scoped to the caller's organization
	v1 := r.Group("/api/v1")
	v1.Use(middleware.OrganizationScope())
	{
		accounts := v1.Group("/accounts")
		{
			accounts.POST("", accountHandler.Create)
			accounts.GET("", accountHandler.List)
			accounts.GET("/:id", accountHandler.GetByID)
		}

		transactions := v1.Group("/transactions")
		{
			transactions.POST("", transactionHandler.Create)
			transactions.GET("", transactionHandler.List)
			transactions.GET("/:id", transactionHandler.GetByID)
			transactions.POST("/:id/reverse", transactionHandler.Reverse)
			transactions.PUT("/:id", transactionHandler.Update)
			transactions.DELETE("/:id", transactionHandler.Delete)
			transactions.GET("/:id/audit", auditHandler.Trail)
		}

		statements := v1.Group("/statements")
		{
			statements.POST("", statementHandler.Create)
			statements.GET("", statementHandler.List)
			statements.GET("/:id", statementHandler.GetByID)
			statements.GET("/:id/transactions", statementHandler.ListRows)
			statements.POST("/:id/import", statementHandler.Import)
			statements.POST("/:id/automatch", statementHandler.AutoMatch)
			statements.POST("/:id/reconcile", statementHandler.Reconcile)
			statements.POST("/:id/unmatch", statementHandler.Unmatch)
			statements.POST("/:id/complete", statementHandler.Complete)
			statements.GET("/:id/audit", auditHandler.Trail)
		}
	}

	// Health check endpoint for monitoring
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "timestamp": time.Now().UTC()})
	})
}
