package outbox_poller

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/bank-reconciliation-ledger/internal/domain/outbox"
	"github.com/bank-reconciliation-ledger/internal/platform/messaging/producers"
)

// EventPublisher publishes one outbox message to its downstream destination.
type EventPublisher interface {
	PublishEvent(ctx context.Context, message *outbox.Message) error
}

// CompletionPublisher pushes reconciliation completion events from the
// outbox to Kafka and marks them processed.
type CompletionPublisher struct {
	outboxRepo outbox.Repository
	producer   producers.MessagePublisher
	logger     *slog.Logger
}

// NewCompletionPublisher creates a new publisher
func NewCompletionPublisher(
	outboxRepo outbox.Repository,
	producer producers.MessagePublisher,
	logger *slog.Logger,
) EventPublisher {
	return &CompletionPublisher{
		outboxRepo: outboxRepo,
		producer:   producer,
		logger:     logger,
	}
}

// PublishEvent sends the message's completion event to Kafka, keyed by
// statement ID, then marks the outbox row PROCESSED. Rows whose payload
// cannot be decoded are marked FAILED_TO_PUBLISH immediately; retrying
// cannot fix them.
func (p *CompletionPublisher) PublishEvent(ctx context.Context, message *outbox.Message) error {
	event, err := message.CompletionEvent()
	if err != nil {
		p.logger.Error("Failed to unmarshal completion event from outbox payload",
			"outbox_id", message.ID, "statement_id", message.StatementID, "error", err,
		)
		if updateErr := p.outboxRepo.UpdateStatus(ctx, message.ID, outbox.StatusFailedToPublish); updateErr != nil {
			p.logger.Error("Also failed to update outbox status to FAILED_TO_PUBLISH after unmarshal error",
				"outbox_id", message.ID, "update_error", updateErr,
			)
		}
		return fmt.Errorf("unmarshal payload for outbox %d failed: %w", message.ID, err)
	}

	p.logger.Info("Publishing completion event from outbox",
		"outbox_id", message.ID,
		"statement_id", message.StatementID,
		"event_type", message.EventType,
	)

	if err := p.producer.Publish(ctx, message.StatementID.String(), event); err != nil {
		return fmt.Errorf("failed to publish completion event for statement %s: %w", message.StatementID, err)
	}

	if err := p.outboxRepo.UpdateStatus(ctx, message.ID, outbox.StatusProcessed); err != nil {
		p.logger.Error("Failed to update outbox message status to PROCESSED",
			"outbox_id", message.ID, "statement_id", message.StatementID, "error", err,
		)
		return fmt.Errorf("event for statement %s published, but failed to mark outbox %d as PROCESSED: %w",
			message.StatementID, message.ID, err)
	}

	p.logger.Info("Outbox message published and marked as PROCESSED",
		"outbox_id", message.ID, "statement_id", message.StatementID,
	)
	return nil
}
