// Package outbox implements the transactional outbox for reconciliation
// completion events: the event row commits in the same database transaction
// as the completion itself, and a poller publishes it afterwards.
package outbox

import (
	"encoding/json"
	"time"

	"github.com/bank-reconciliation-ledger/internal/domain/shared"
	"github.com/google/uuid"
)

// Status tracks an outbox message through publishing.
type Status string

const (
	StatusPending         Status = "PENDING"
	StatusProcessed       Status = "PROCESSED"
	StatusFailedToPublish Status = "FAILED_TO_PUBLISH"
)

// EventTypeStatementCompleted is the only event type this subsystem emits.
const EventTypeStatementCompleted = "reconciliation.completed"

// Message stores a completion event for reliable publishing.
type Message struct {
	ID            int64           `json:"id"`
	StatementID   uuid.UUID       `json:"statement_id"`
	EventType     string          `json:"event_type"`
	Payload       json.RawMessage `json:"payload"`
	Status        Status          `json:"status"`
	Attempts      int             `json:"attempts"`
	CreatedAt     time.Time       `json:"created_at"`
	LastAttemptAt *time.Time      `json:"last_attempt_at,omitempty"`
}

// NewCompletionMessage wraps a completion event for the outbox.
func NewCompletionMessage(event *shared.CompletionEvent) (*Message, error) {
	payload, err := json.Marshal(event)
	if err != nil {
		return nil, err
	}

	return &Message{
		StatementID: event.StatementID,
		EventType:   EventTypeStatementCompleted,
		Payload:     payload,
		Status:      StatusPending,
		Attempts:    0,
		CreatedAt:   time.Now(),
	}, nil
}

func (m *Message) IncrementAttempts() {
	m.Attempts++
	now := time.Now()
	m.LastAttemptAt = &now
}

func (m *Message) MarkAsProcessed() {
	m.Status = StatusProcessed
	now := time.Now()
	m.LastAttemptAt = &now
}

func (m *Message) MarkAsFailed() {
	m.Status = StatusFailedToPublish
	now := time.Now()
	m.LastAttemptAt = &now
}

// CompletionEvent extracts the event from the payload.
func (m *Message) CompletionEvent() (*shared.CompletionEvent, error) {
	var event shared.CompletionEvent
	if err := json.Unmarshal(m.Payload, &event); err != nil {
		return nil, err
	}
	return &event, nil
}
