package producers

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/segmentio/kafka-go"

	"github.com/qonto-ledger-sync/internal/config"
)

// SyncTriggerProducer publishes sync trigger messages from the API process
// to the worker. Writes are synchronous: a trigger is accepted by the API
// only once Kafka has it.
type SyncTriggerProducer struct {
	logger *slog.Logger
	writer KafkaWriter
	topic  string
}

// NewSyncTriggerProducer creates a trigger producer and ensures the topic exists
func NewSyncTriggerProducer(ctx context.Context, logger *slog.Logger, cfg *config.KafkaConfig) (*SyncTriggerProducer, error) {
	if cfg.TriggerTopic == "" {
		return nil, fmt.Errorf("kafka trigger topic is not configured")
	}

	conn, err := kafka.Dial("tcp", cfg.Brokers)
	if err != nil {
		return nil, fmt.Errorf("failed to dial kafka for trigger producer: %w", err)
	}
	defer conn.Close()

	err = createKafkaTopicIfNotExists(conn, cfg.TriggerTopic, cfg.NumPartitions, cfg.ReplicationFactor, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to ensure trigger topic %s exists: %w", cfg.TriggerTopic, err)
	}

	writer := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers),
		Topic:        cfg.TriggerTopic,
		Balancer:     &kafka.LeastBytes{},
		RequiredAcks: kafka.RequireOne,
		WriteTimeout: cfg.MaxWait,
	}

	return &SyncTriggerProducer{
		logger: logger,
		writer: writer,
		topic:  cfg.TriggerTopic,
	}, nil
}

func (p *SyncTriggerProducer) Publish(ctx context.Context, key string, value interface{}) error {
	jsonValue, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal trigger message: %w", err)
	}

	msg := kafka.Message{
		Key:   []byte(key),
		Value: jsonValue,
	}

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		p.logger.Error("Failed to publish sync trigger",
			"topic", p.topic,
			"key", key,
			"error", err,
		)
		return fmt.Errorf("failed to publish sync trigger to %s: %w", p.topic, err)
	}

	p.logger.Debug("Published sync trigger", "topic", p.topic, "key", key)
	return nil
}

func (p *SyncTriggerProducer) Close() error {
	p.logger.Info("Closing sync trigger producer", "topic", p.topic)
	if err := p.writer.Close(); err != nil {
		return fmt.Errorf("failed to close trigger kafka writer: %w", err)
	}
	return nil
}
