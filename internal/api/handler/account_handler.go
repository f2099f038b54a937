package handler

import (
	"context"
	"log/slog"

	"github.com/bank-reconciliation-ledger/internal/api/middleware"
	"github.com/bank-reconciliation-ledger/internal/domain/account"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// AccountService is the slice of the ledger service the account endpoints use.
type AccountService interface {
	CreateAccount(ctx context.Context, orgID uuid.UUID, name string, accountType string) (*account.Account, error)
	GetAccount(ctx context.Context, orgID, id uuid.UUID) (*account.Account, error)
	ListAccounts(ctx context.Context, orgID uuid.UUID) ([]*account.Account, error)
}

// AccountHandler handles HTTP requests for chart-of-accounts operations
type AccountHandler struct {
	accounts AccountService
	logger   *slog.Logger
}

// NewAccountHandler creates a new account handler
func NewAccountHandler(logger *slog.Logger, accounts AccountService) *AccountHandler {
	return &AccountHandler{
		accounts: accounts,
		logger:   logger,
	}
}

// Create handles creation of a new account in the caller's organization
func (h *AccountHandler) Create(c *gin.Context) {
	var req CreateAccountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Error("Invalid request body", "error", err)
		RespondBadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	orgID := middleware.GetOrganizationID(c)
	acc, err := h.accounts.CreateAccount(c.Request.Context(), orgID, req.Name, req.Type)
	if err != nil {
		RespondDomainError(c, h.logger, err)
		return
	}

	RespondCreated(c, mapAccountToResponse(acc))
}

// GetByID retrieves an account by its ID, returning 404 if not found
func (h *AccountHandler) GetByID(c *gin.Context) {
	idParam := c.Param("id")
	id, err := uuid.Parse(idParam)
	if err != nil {
		h.logger.Error("Invalid account ID", "id", idParam, "error", err)
		RespondBadRequest(c, "Invalid account ID")
		return
	}

	orgID := middleware.GetOrganizationID(c)
	acc, err := h.accounts.GetAccount(c.Request.Context(), orgID, id)
	if err != nil {
		RespondDomainError(c, h.logger, err)
		return
	}

	RespondOK(c, mapAccountToResponse(acc))
}

// List returns the organization's chart of accounts
func (h *AccountHandler) List(c *gin.Context) {
	orgID := middleware.GetOrganizationID(c)
	accounts, err := h.accounts.ListAccounts(c.Request.Context(), orgID)
	if err != nil {
		RespondDomainError(c, h.logger, err)
		return
	}

	responses := make([]AccountResponse, 0, len(accounts))
	for _, acc := range accounts {
		responses = append(responses, mapAccountToResponse(acc))
	}
	RespondOK(c, responses)
}
