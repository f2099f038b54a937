package consumer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/bank-reconciliation-ledger/internal/domain/shared"
	"github.com/bank-reconciliation-ledger/internal/importing"
	"github.com/bank-reconciliation-ledger/internal/platform/messaging/producers"
)

// ImportBatchHandler handles statement import batches arriving from Kafka.
type ImportBatchHandler struct {
	importer importing.RowImporter
	producer producers.DeadLetterPublisher
	logger   *slog.Logger
}

// NewImportBatchHandler creates a new handler
func NewImportBatchHandler(
	logger *slog.Logger,
	importer importing.RowImporter,
	producer producers.DeadLetterPublisher,
) *ImportBatchHandler {
	return &ImportBatchHandler{
		importer: importer,
		producer: producer,
		logger:   logger,
	}
}

// HandleMessage processes one import batch. Undecodable messages and batches
// that can never succeed (statement completed or missing) go to the DLQ and
// the offset commits; transient failures return an error so the batch is
// redelivered.
func (h *ImportBatchHandler) HandleMessage(ctx context.Context, key []byte, value []byte) error {
	var request shared.ImportRequest
	if err := json.Unmarshal(value, &request); err != nil {
		unmarshalErrorMsg := "Failed to unmarshal import request from Kafka message"
		h.logger.Error(unmarshalErrorMsg,
			"error", err,
			"message_key", string(key),
		)

		if h.producer != nil {
			dlqReason := fmt.Sprintf("%s: %s", unmarshalErrorMsg, err.Error())
			if dlqErr := h.producer.PublishToDLQ(ctx, string(key), value, dlqReason); dlqErr != nil {
				h.logger.Error("Failed to publish message to DLQ after unmarshal error",
					"dlq_error", dlqErr,
					"original_error", err,
					"message_key", string(key),
				)
			} else {
				h.logger.Info("Published unprocessable message to DLQ", "message_key", string(key), "reason", dlqReason)
				// Message handled, commit offset
				return nil
			}
		}
		// Allow Kafka retries
		return fmt.Errorf("failed to unmarshal message value: %w", err)
	}

	logger := h.logger
	if request.CorrelationID != "" {
		logger = h.logger.With("correlation_id", request.CorrelationID)
	}

	logger.Info("Received statement import batch",
		"request_id", request.RequestID.String(),
		"statement_id", request.StatementID.String(),
		"organization_id", request.OrganizationID.String(),
		"rows", len(request.Rows),
	)

	report, err := h.importer.ImportRows(ctx, request.OrganizationID, request.StatementID, request.Rows)
	if err != nil {
		if h.isTerminal(err) {
			logger.Warn("Import batch can never succeed, dead-lettering",
				"statement_id", request.StatementID.String(),
				"error", err,
			)
			if h.producer != nil {
				if dlqErr := h.producer.PublishToDLQ(ctx, string(key), value, err.Error()); dlqErr != nil {
					logger.Error("Failed to publish terminal batch to DLQ",
						"dlq_error", dlqErr,
						"original_error", err,
						"statement_id", request.StatementID.String(),
					)
					return fmt.Errorf("dead-lettering batch for statement %s failed: %w", request.StatementID.String(), dlqErr)
				}
				return nil
			}
			// No DLQ configured: commit anyway, redelivery cannot help
			return nil
		}
		logger.Error("Failed to import statement batch",
			"statement_id", request.StatementID.String(),
			"error", err,
		)
		return fmt.Errorf("importing batch for statement %s failed: %w", request.StatementID.String(), err)
	}

	logger.Info("Imported statement batch",
		"statement_id", request.StatementID.String(),
		"imported", report.ImportedCount,
		"failed", report.ErrorCount,
	)
	return nil // Success, commit offset
}

// isTerminal reports whether retrying the batch could ever change the outcome.
func (h *ImportBatchHandler) isTerminal(err error) bool {
	return errors.Is(err, shared.InvalidStateError{}) || errors.Is(err, shared.NotFoundError{})
}
