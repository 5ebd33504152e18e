// Package producers publishes sync trigger messages to Kafka.
package producers

import (
	"context"

	"github.com/segmentio/kafka-go"
)

// MessagePublisher publishes a keyed message to the trigger topic. The value
// is JSON-marshaled by the implementation.
type MessagePublisher interface {
	Publish(ctx context.Context, key string, value interface{}) error
	Close() error
}

// KafkaWriter is the slice of kafka.Writer the producer needs, extracted so
// tests can substitute a fake.
type KafkaWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}
