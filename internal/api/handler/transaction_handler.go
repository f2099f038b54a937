package handler

import (
	"context"
	"log/slog"
	"time"

	"github.com/bank-reconciliation-ledger/internal/api/middleware"
	"github.com/bank-reconciliation-ledger/internal/domain/ledger"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// TransactionService is the slice of the ledger service the transaction
// endpoints use.
type TransactionService interface {
	PostTransaction(ctx context.Context, orgID uuid.UUID, description string, date time.Time, entries []ledger.Entry) (*ledger.Transaction, error)
	GetTransaction(ctx context.Context, orgID, id uuid.UUID) (*ledger.Transaction, error)
	ListTransactions(ctx context.Context, orgID uuid.UUID, filter ledger.Filter) ([]*ledger.Transaction, error)
	ReverseTransaction(ctx context.Context, orgID, id uuid.UUID) (*ledger.Transaction, error)
	UpdateTransaction(ctx context.Context, orgID, id uuid.UUID, newEntries []ledger.Entry) (*ledger.Transaction, error)
	DeleteTransaction(ctx context.Context, orgID, id uuid.UUID) error
}

// TransactionHandler handles HTTP requests for ledger transaction operations
type TransactionHandler struct {
	transactions TransactionService
	logger       *slog.Logger
}

// NewTransactionHandler creates a new transaction handler
func NewTransactionHandler(logger *slog.Logger, transactions TransactionService) *TransactionHandler {
	return &TransactionHandler{
		transactions: transactions,
		logger:       logger,
	}
}

// Create posts a new balanced transaction against the organization's accounts
func (h *TransactionHandler) Create(c *gin.Context) {
	var req CreateTransactionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Error("Invalid request body", "error", err)
		RespondBadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	date, err := parseRequestDate(req.Date)
	if err != nil {
		RespondBadRequest(c, "Invalid transaction date: "+req.Date)
		return
	}

	entries, err := mapEntryRequests(req.Entries)
	if err != nil {
		RespondDomainError(c, h.logger, err)
		return
	}

	orgID := middleware.GetOrganizationID(c)
	txn, err := h.transactions.PostTransaction(c.Request.Context(), orgID, req.Description, date, entries)
	if err != nil {
		RespondDomainError(c, h.logger, err)
		return
	}

	RespondCreated(c, mapTransactionToResponse(txn))
}

// GetByID retrieves a transaction with its entries, returns 404 if not found
func (h *TransactionHandler) GetByID(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondBadRequest(c, "Invalid transaction ID")
		return
	}

	orgID := middleware.GetOrganizationID(c)
	txn, err := h.transactions.GetTransaction(c.Request.Context(), orgID, id)
	if err != nil {
		RespondDomainError(c, h.logger, err)
		return
	}

	RespondOK(c, mapTransactionToResponse(txn))
}

// List searches the organization's transactions by account, date range,
// amount range, text and status
func (h *TransactionHandler) List(c *gin.Context) {
	var params TransactionFilterParams
	if err := c.ShouldBindQuery(&params); err != nil {
		h.logger.Error("Invalid filter parameters", "error", err)
		RespondBadRequest(c, "Invalid filter parameters: "+err.Error())
		return
	}

	filter, err := params.toFilter()
	if err != nil {
		RespondDomainError(c, h.logger, err)
		return
	}

	orgID := middleware.GetOrganizationID(c)
	txns, err := h.transactions.ListTransactions(c.Request.Context(), orgID, filter)
	if err != nil {
		RespondDomainError(c, h.logger, err)
		return
	}

	responses := make([]TransactionResponse, 0, len(txns))
	for _, txn := range txns {
		responses = append(responses, mapTransactionToResponse(txn))
	}
	RespondOK(c, responses)
}

// Reverse voids a transaction by applying its inverse balance effect
func (h *TransactionHandler) Reverse(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondBadRequest(c, "Invalid transaction ID")
		return
	}

	orgID := middleware.GetOrganizationID(c)
	txn, err := h.transactions.ReverseTransaction(c.Request.Context(), orgID, id)
	if err != nil {
		RespondDomainError(c, h.logger, err)
		return
	}

	RespondOK(c, mapTransactionToResponse(txn))
}

// Update replaces a transaction's entries, re-posting it atomically
func (h *TransactionHandler) Update(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondBadRequest(c, "Invalid transaction ID")
		return
	}

	var req UpdateTransactionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Error("Invalid request body", "error", err)
		RespondBadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	entries, err := mapEntryRequests(req.Entries)
	if err != nil {
		RespondDomainError(c, h.logger, err)
		return
	}

	orgID := middleware.GetOrganizationID(c)
	txn, err := h.transactions.UpdateTransaction(c.Request.Context(), orgID, id, entries)
	if err != nil {
		RespondDomainError(c, h.logger, err)
		return
	}

	RespondOK(c, mapTransactionToResponse(txn))
}

// Delete removes a transaction after undoing its balance effect
func (h *TransactionHandler) Delete(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondBadRequest(c, "Invalid transaction ID")
		return
	}

	orgID := middleware.GetOrganizationID(c)
	if err := h.transactions.DeleteTransaction(c.Request.Context(), orgID, id); err != nil {
		RespondDomainError(c, h.logger, err)
		return
	}

	RespondNoContent(c)
}
