// Package audit defines the append-only audit trail written for every
// externally visible mutation of the ledger and its statements.
package audit

import (
	"time"

	"github.com/google/uuid"
)

// Kind names the audited operation.
type Kind string

const (
	KindTransactionPosted   Kind = "transaction.posted"
	KindTransactionReversed Kind = "transaction.reversed"
	KindTransactionUpdated  Kind = "transaction.updated"
	KindTransactionDeleted  Kind = "transaction.deleted"
	KindStatementCreated    Kind = "statement.created"
	KindStatementImported   Kind = "statement.imported"
	KindStatementCompleted  Kind = "statement.completed"
	KindMatchCommitted      Kind = "match.committed"
	KindMatchManual         Kind = "match.manual"
	KindMatchCleared        Kind = "match.cleared"
)

// Event is one audit record. Detail carries operation-specific fields such as
// import error lists or match scores; amounts are recorded as fixed-point
// strings.
type Event struct {
	ID             uuid.UUID      `json:"event_id" bson:"event_id"`
	OrganizationID uuid.UUID      `json:"organization_id" bson:"organization_id"`
	Kind           Kind           `json:"kind" bson:"kind"`
	EntityID       uuid.UUID      `json:"entity_id" bson:"entity_id"`
	CorrelationID  string         `json:"correlation_id,omitempty" bson:"correlation_id,omitempty"`
	Detail         map[string]any `json:"detail,omitempty" bson:"detail,omitempty"`
	CreatedAt      time.Time      `json:"created_at" bson:"created_at"`
}

// New creates an audit event stamped with the current time.
func New(orgID uuid.UUID, kind Kind, entityID uuid.UUID, detail map[string]any) *Event {
	return &Event{
		ID:             uuid.New(),
		OrganizationID: orgID,
		Kind:           kind,
		EntityID:       entityID,
		Detail:         detail,
		CreatedAt:      time.Now(),
	}
}
