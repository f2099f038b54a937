package producers

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/bank-reconciliation-ledger/internal/config"
	"github.com/segmentio/kafka-go"
)

// CompletionEventProducer publishes reconciliation completion events drained
// from the outbox table. Writes are synchronous with full acknowledgement:
// the poller must not mark an outbox row processed before the broker has the
// event.
type CompletionEventProducer struct {
	logger *slog.Logger
	writer KafkaWriter
	topic  string
}

// NewCompletionEventProducer creates the producer and ensures the topic exists.
func NewCompletionEventProducer(ctx context.Context, logger *slog.Logger, cfg *config.KafkaConfig) (*CompletionEventProducer, error) {
	if cfg.CompletionTopic == "" {
		return nil, fmt.Errorf("kafka completion topic is not configured")
	}

	conn, err := kafka.Dial("tcp", cfg.Brokers)
	if err != nil {
		return nil, fmt.Errorf("failed to dial kafka for completion event producer: %w", err)
	}
	defer conn.Close()

	err = createKafkaTopicIfNotExists(conn, cfg.CompletionTopic, cfg.NumPartitions, cfg.ReplicationFactor, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to ensure completion topic %s exists: %w", cfg.CompletionTopic, err)
	}

	writer := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers),
		Topic:        cfg.CompletionTopic,
		Balancer:     &kafka.LeastBytes{},
		RequiredAcks: kafka.RequireAll,
		Async:        false,
		WriteTimeout: cfg.MaxWait,
	}

	return &CompletionEventProducer{
		logger: logger,
		writer: writer,
		topic:  cfg.CompletionTopic,
	}, nil
}

// Publish sends a completion event keyed by statement ID.
func (p *CompletionEventProducer) Publish(ctx context.Context, key string, value interface{}) error {
	jsonValue, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal completion event: %w", err)
	}

	msg := kafka.Message{
		Key:   []byte(key),
		Value: jsonValue,
	}

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		p.logger.Error("Failed to publish completion event",
			"topic", p.topic,
			"key", key,
			"error", err,
		)
		return fmt.Errorf("failed to publish completion event to %s: %w", p.topic, err)
	}

	p.logger.Debug("Published completion event",
		"topic", p.topic,
		"key", key,
	)
	return nil
}

func (p *CompletionEventProducer) Close() error {
	p.logger.Info("Closing completion event Kafka producer", "topic", p.topic)
	if err := p.writer.Close(); err != nil {
		return fmt.Errorf("failed to close completion event kafka writer for topic %s: %w", p.topic, err)
	}
	return nil
}
