package producers

import (
	"context"

	"github.com/segmentio/kafka-go"
)

// MessagePublisher publishes a keyed payload to one topic. Import request and
// completion event producers both satisfy it.
type MessagePublisher interface {
	Publish(ctx context.Context, key string, value interface{}) error
	Close() error
}

// DeadLetterPublisher routes import batches that can never succeed to the
// dead letter topic.
type DeadLetterPublisher interface {
	PublishToDLQ(ctx context.Context, key string, originalMessageValue []byte, reason string) error
	Close() error
}

// KafkaWriter wraps kafka.Writer methods for testing
type KafkaWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}
