package handler

import (
	"context"
	"log/slog"

	"github.com/bank-reconciliation-ledger/internal/api/middleware"
	"github.com/bank-reconciliation-ledger/internal/domain/audit"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// AuditReader is the audit trail surface the read endpoints use.
type AuditReader interface {
	ListByEntity(ctx context.Context, orgID, entityID uuid.UUID, limit, offset int) ([]*audit.Event, error)
	CountByEntity(ctx context.Context, orgID, entityID uuid.UUID) (int64, error)
}

// AuditHandler serves the audit trail of ledger transactions and statements.
type AuditHandler struct {
	audits AuditReader
	logger *slog.Logger
}

// NewAuditHandler creates a new audit trail handler
func NewAuditHandler(logger *slog.Logger, audits AuditReader) *AuditHandler {
	return &AuditHandler{
		audits: audits,
		logger: logger,
	}
}

// AuditTrailParams controls audit trail pagination
type AuditTrailParams struct {
	Limit  int `form:"limit,default=50" binding:"min=1,max=500"`
	Offset int `form:"offset,default=0" binding:"min=0"`
}

// AuditTrailResponse is one page of an entity's audit trail, newest first.
type AuditTrailResponse struct {
	Events     []*audit.Event `json:"events"`
	TotalCount int64          `json:"total_count"`
	Limit      int            `json:"limit"`
	Offset     int            `json:"offset"`
}

// Trail returns the paginated audit trail of the entity named in the path.
func (h *AuditHandler) Trail(c *gin.Context) {
	idParam := c.Param("id")
	entityID, err := uuid.Parse(idParam)
	if err != nil {
		h.logger.Error("Invalid entity ID", "id", idParam, "error", err)
		RespondBadRequest(c, "Invalid entity ID")
		return
	}

	var params AuditTrailParams
	if err := c.ShouldBindQuery(&params); err != nil {
		h.logger.Error("Invalid audit trail parameters", "error", err)
		RespondBadRequest(c, "Invalid audit trail parameters: "+err.Error())
		return
	}

	orgID := middleware.GetOrganizationID(c)
	events, err := h.audits.ListByEntity(c.Request.Context(), orgID, entityID, params.Limit, params.Offset)
	if err != nil {
		RespondDomainError(c, h.logger, err)
		return
	}

	total, err := h.audits.CountByEntity(c.Request.Context(), orgID, entityID)
	if err != nil {
		RespondDomainError(c, h.logger, err)
		return
	}

	if events == nil {
		events = []*audit.Event{}
	}

	RespondOK(c, AuditTrailResponse{
		Events:     events,
		TotalCount: total,
		Limit:      params.Limit,
		Offset:     params.Offset,
	})
}
