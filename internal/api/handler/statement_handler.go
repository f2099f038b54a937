package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/bank-reconciliation-ledger/internal/api/middleware"
	"github.com/bank-reconciliation-ledger/internal/domain/shared"
	"github.com/bank-reconciliation-ledger/internal/domain/statement"
	"github.com/bank-reconciliation-ledger/internal/importing"
	"github.com/bank-reconciliation-ledger/internal/platform/messaging/producers"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// StatementService is the coordinator surface the statement endpoints use.
type StatementService interface {
	CreateStatement(ctx context.Context, orgID, accountID uuid.UUID, periodStart, periodEnd time.Time, endingBalance decimal.Decimal) (*statement.Statement, error)
	GetStatement(ctx context.Context, orgID, id uuid.UUID) (*statement.Statement, error)
	ListStatements(ctx context.Context, orgID, accountID uuid.UUID) ([]*statement.Statement, error)
	ListRows(ctx context.Context, orgID, statementID uuid.UUID) ([]*statement.Transaction, error)
	Complete(ctx context.Context, orgID, statementID uuid.UUID) (*statement.Statement, error)
}

// Matcher is the matching engine surface the statement endpoints use.
type Matcher interface {
	AutoMatch(ctx context.Context, orgID, statementID uuid.UUID) (*shared.MatchReport, error)
	Reconcile(ctx context.Context, orgID, statementID, transactionID uuid.UUID, statementTransactionID *uuid.UUID) error
	Unmatch(ctx context.Context, orgID, statementID, transactionID uuid.UUID) error
}

// StatementHandler handles HTTP requests for reconciliation statements:
// lifecycle, row import, matching and completion.
type StatementHandler struct {
	statements StatementService
	matcher    Matcher
	importer   importing.RowImporter
	publisher  producers.MessagePublisher // nil when async import is disabled
	logger     *slog.Logger
}

// NewStatementHandler creates a new statement handler
func NewStatementHandler(
	logger *slog.Logger,
	statements StatementService,
	matcher Matcher,
	importer importing.RowImporter,
	publisher producers.MessagePublisher,
) *StatementHandler {
	return &StatementHandler{
		statements: statements,
		matcher:    matcher,
		importer:   importer,
		publisher:  publisher,
		logger:     logger,
	}
}

// Create opens a reconciliation statement for an account and period
func (h *StatementHandler) Create(c *gin.Context) {
	var req CreateStatementRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Error("Invalid request body", "error", err)
		RespondBadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	accountID, err := uuid.Parse(req.AccountID)
	if err != nil {
		RespondBadRequest(c, "Invalid account ID")
		return
	}
	periodStart, err := parseRequestDate(req.PeriodStart)
	if err != nil {
		RespondBadRequest(c, "Invalid period_start date: "+req.PeriodStart)
		return
	}
	periodEnd, err := parseRequestDate(req.PeriodEnd)
	if err != nil {
		RespondBadRequest(c, "Invalid period_end date: "+req.PeriodEnd)
		return
	}
	endingBalance, err := decimal.NewFromString(req.EndingBalance)
	if err != nil {
		RespondBadRequest(c, "Invalid ending_balance: "+req.EndingBalance)
		return
	}

	orgID := middleware.GetOrganizationID(c)
	st, err := h.statements.CreateStatement(c.Request.Context(), orgID, accountID, periodStart, periodEnd, endingBalance)
	if err != nil {
		RespondDomainError(c, h.logger, err)
		return
	}

	RespondCreated(c, mapStatementToResponse(st))
}

// GetByID retrieves a statement, returning 404 if not found
func (h *StatementHandler) GetByID(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondBadRequest(c, "Invalid statement ID")
		return
	}

	orgID := middleware.GetOrganizationID(c)
	st, err := h.statements.GetStatement(c.Request.Context(), orgID, id)
	if err != nil {
		RespondDomainError(c, h.logger, err)
		return
	}

	RespondOK(c, mapStatementToResponse(st))
}

// List returns the organization's statements, optionally for one account
func (h *StatementHandler) List(c *gin.Context) {
	accountID := uuid.Nil
	if raw := c.Query("account_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			RespondBadRequest(c, "Invalid account ID")
			return
		}
		accountID = id
	}

	orgID := middleware.GetOrganizationID(c)
	statements, err := h.statements.ListStatements(c.Request.Context(), orgID, accountID)
	if err != nil {
		RespondDomainError(c, h.logger, err)
		return
	}

	responses := make([]StatementResponse, 0, len(statements))
	for _, st := range statements {
		responses = append(responses, mapStatementToResponse(st))
	}
	RespondOK(c, responses)
}

// ListRows returns a statement's imported bank rows
func (h *StatementHandler) ListRows(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondBadRequest(c, "Invalid statement ID")
		return
	}

	orgID := middleware.GetOrganizationID(c)
	rows, err := h.statements.ListRows(c.Request.Context(), orgID, id)
	if err != nil {
		RespondDomainError(c, h.logger, err)
		return
	}

	responses := make([]StatementRowResponse, 0, len(rows))
	for _, row := range rows {
		responses = append(responses, mapStatementRowToResponse(row))
	}
	RespondOK(c, responses)
}

// Import ingests raw bank rows into a statement. With ?mode=async the batch
// is queued to Kafka and processed by the import worker; otherwise rows are
// imported inline and the per-row report is returned.
func (h *StatementHandler) Import(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondBadRequest(c, "Invalid statement ID")
		return
	}

	var req ImportRowsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Error("Invalid request body", "error", err)
		RespondBadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	orgID := middleware.GetOrganizationID(c)

	if c.Query("mode") == "async" {
		if h.publisher == nil {
			RespondWithError(c, http.StatusServiceUnavailable, "ASYNC_IMPORT_UNAVAILABLE", "Asynchronous import is not configured")
			return
		}

		importRequest := &shared.ImportRequest{
			RequestID:      uuid.New(),
			OrganizationID: orgID,
			StatementID:    id,
			Rows:           req.Rows,
			CorrelationID:  middleware.GetCorrelationID(c),
			Timestamp:      time.Now().UTC(),
		}

		if err := h.publisher.Publish(c.Request.Context(), id.String(), importRequest); err != nil {
			h.logger.Error("Failed to enqueue import batch", "statement_id", id, "error", err)
			RespondWithError(c, http.StatusServiceUnavailable, "ENQUEUE_FAILED", "Failed to enqueue import batch, please retry")
			return
		}

		RespondAccepted(c, gin.H{
			"request_id":   importRequest.RequestID.String(),
			"statement_id": id.String(),
			"rows":         len(req.Rows),
		})
		return
	}

	report, err := h.importer.ImportRows(c.Request.Context(), orgID, id, req.Rows)
	if err != nil {
		RespondDomainError(c, h.logger, err)
		return
	}

	RespondOK(c, report)
}

// AutoMatch runs the scoring pass over a statement's unmatched rows
func (h *StatementHandler) AutoMatch(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondBadRequest(c, "Invalid statement ID")
		return
	}

	orgID := middleware.GetOrganizationID(c)
	report, err := h.matcher.AutoMatch(c.Request.Context(), orgID, id)
	if err != nil {
		RespondDomainError(c, h.logger, err)
		return
	}

	RespondOK(c, report)
}

// Reconcile manually marks a ledger transaction reconciled against the
// statement, optionally linking a specific bank row
func (h *StatementHandler) Reconcile(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondBadRequest(c, "Invalid statement ID")
		return
	}

	var req ReconcileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondBadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	transactionID, err := uuid.Parse(req.TransactionID)
	if err != nil {
		RespondBadRequest(c, "Invalid transaction ID")
		return
	}

	var statementTransactionID *uuid.UUID
	if req.StatementTransactionID != nil {
		rowID, err := uuid.Parse(*req.StatementTransactionID)
		if err != nil {
			RespondBadRequest(c, "Invalid statement transaction ID")
			return
		}
		statementTransactionID = &rowID
	}

	orgID := middleware.GetOrganizationID(c)
	if err := h.matcher.Reconcile(c.Request.Context(), orgID, id, transactionID, statementTransactionID); err != nil {
		RespondDomainError(c, h.logger, err)
		return
	}

	RespondNoContent(c)
}

// Unmatch reverts a matched transaction to CLEARED and clears its row links
func (h *StatementHandler) Unmatch(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondBadRequest(c, "Invalid statement ID")
		return
	}

	var req UnmatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondBadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	transactionID, err := uuid.Parse(req.TransactionID)
	if err != nil {
		RespondBadRequest(c, "Invalid transaction ID")
		return
	}

	orgID := middleware.GetOrganizationID(c)
	if err := h.matcher.Unmatch(c.Request.Context(), orgID, id, transactionID); err != nil {
		RespondDomainError(c, h.logger, err)
		return
	}

	RespondNoContent(c)
}

// Complete certifies the statement: balances must agree within tolerance
func (h *StatementHandler) Complete(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondBadRequest(c, "Invalid statement ID")
		return
	}

	orgID := middleware.GetOrganizationID(c)
	st, err := h.statements.Complete(c.Request.Context(), orgID, id)
	if err != nil {
		RespondDomainError(c, h.logger, err)
		return
	}

	RespondOK(c, mapStatementToResponse(st))
}
