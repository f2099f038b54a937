package producers

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/bank-reconciliation-ledger/internal/config"
	"github.com/segmentio/kafka-go"
)

// ImportRequestProducer publishes statement import batches from the API to
// the import worker. Writes are async: the API only needs to enqueue the
// batch, the worker reports per-row outcomes through the audit trail.
type ImportRequestProducer struct {
	logger *slog.Logger
	writer KafkaWriter // Interface for testability
	topic  string
}

// NewImportRequestProducer creates the producer and ensures the topic exists.
func NewImportRequestProducer(ctx context.Context, logger *slog.Logger, cfg *config.KafkaConfig) (*ImportRequestProducer, error) {
	if cfg.ImportTopic == "" {
		return nil, fmt.Errorf("kafka import topic is not configured")
	}

	conn, err := kafka.Dial("tcp", cfg.Brokers)
	if err != nil {
		return nil, fmt.Errorf("failed to dial kafka for import request producer: %w", err)
	}
	defer conn.Close()

	err = createKafkaTopicIfNotExists(conn, cfg.ImportTopic, cfg.NumPartitions, cfg.ReplicationFactor, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to ensure import topic %s exists: %w", cfg.ImportTopic, err)
	}

	writer := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers),
		Topic:        cfg.ImportTopic,
		Balancer:     &kafka.LeastBytes{},
		RequiredAcks: kafka.RequireOne,
		Async:        true, // Using async for high throughput
		WriteTimeout: cfg.MaxWait,
		Completion: func(messages []kafka.Message, err error) {
			if err != nil {
				logger.Error("Failed to write messages asynchronously", "topic", cfg.ImportTopic, "error", err, "count", len(messages))
			} else {
				logger.Debug("Successfully wrote messages asynchronously", "topic", cfg.ImportTopic, "count", len(messages))
			}
		},
	}

	return &ImportRequestProducer{
		logger: logger,
		writer: writer,
		topic:  cfg.ImportTopic,
	}, nil
}

// Publish enqueues an import batch keyed by statement ID so batches for the
// same statement land on the same partition and preserve order.
func (p *ImportRequestProducer) Publish(ctx context.Context, key string, value interface{}) error {
	jsonValue, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal import request message: %w", err)
	}

	msg := kafka.Message{
		Key:   []byte(key),
		Value: jsonValue,
	}

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		p.logger.Error("Failed to publish import request",
			"topic", p.topic,
			"key", key,
			"error", err,
		)
		return fmt.Errorf("failed to publish import request to %s: %w", p.topic, err)
	}

	p.logger.Debug("Published import request",
		"topic", p.topic,
		"key", key,
	)
	return nil
}

func (p *ImportRequestProducer) Close() error {
	p.logger.Info("Closing import request Kafka producer", "topic", p.topic)
	if err := p.writer.Close(); err != nil {
		return fmt.Errorf("failed to close import request kafka writer for topic %s: %w", p.topic, err)
	}
	return nil
}
