package shared

import (
	"time"

	"github.com/google/uuid"
)

// ImportRequest is the Kafka message carrying a statement import batch from
// the API to the import worker.
type ImportRequest struct {
	RequestID      uuid.UUID      `json:"request_id"`
	OrganizationID uuid.UUID      `json:"organization_id"`
	StatementID    uuid.UUID      `json:"statement_id"`
	Rows           []StatementRow `json:"rows"`
	CorrelationID  string         `json:"correlation_id"`
	Timestamp      time.Time      `json:"timestamp"`
}

// CompletionEvent is published after a statement is certified. Downstream
// schedulers and reporting consume it.
type CompletionEvent struct {
	StatementID       uuid.UUID `json:"statement_id"`
	OrganizationID    uuid.UUID `json:"organization_id"`
	AccountID         uuid.UUID `json:"account_id"`
	ReconciledBalance string    `json:"reconciled_balance"`
	EndingBalance     string    `json:"ending_balance"`
	CompletedAt       time.Time `json:"completed_at"`
}
