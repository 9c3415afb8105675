package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/segmentio/kafka-go"
)

// KafkaConfig holds producer configuration for the notifications topic.
type KafkaConfig struct {
	Brokers      []string
	Topic        string
	BatchTimeout time.Duration
	WriteTimeout time.Duration
	MaxAttempts  int
}

// KafkaNotifier publishes match events to a Kafka topic, keyed by tenant and
// alert for partition affinity.
type KafkaNotifier struct {
	writer *kafka.Writer
	logger ectologger.Logger
	topic  string
}

// NewKafkaNotifier creates a new Kafka-backed notifier.
func NewKafkaNotifier(config KafkaConfig, logger ectologger.Logger) (*KafkaNotifier, error) {
	if len(config.Brokers) == 0 {
		return nil, fmt.Errorf("at least one broker is required")
	}
	if config.Topic == "" {
		return nil, fmt.Errorf("topic is required")
	}

	maxAttempts := config.MaxAttempts
	if maxAttempts < 1 {
		maxAttempts = 3
	}

	writer := &kafka.Writer{
		Addr:                   kafka.TCP(config.Brokers...),
		Topic:                  config.Topic,
		Balancer:               &kafka.Hash{},
		BatchTimeout:           config.BatchTimeout,
		WriteTimeout:           config.WriteTimeout,
		MaxAttempts:            maxAttempts,
		RequiredAcks:           kafka.RequireOne,
		AllowAutoTopicCreation: true,
	}

	return &KafkaNotifier{
		writer: writer,
		logger: logger,
		topic:  config.Topic,
	}, nil
}

// NotifyMatch publishes one match event.
func (n *KafkaNotifier) NotifyMatch(ctx context.Context, event MatchEvent) error {
	data, err := event.ToJSON()
	if err != nil {
		return fmt.Errorf("failed to serialize match event: %w", err)
	}

	msg := kafka.Message{
		Key:   []byte(fmt.Sprintf("%s:%s", event.TenantID, event.PropertyRequestID)),
		Value: data,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(event.EventType)},
			{Key: "tenant_id", Value: []byte(event.TenantID)},
		},
		Time: event.Timestamp,
	}

	if err := n.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("failed to publish match event: %w", err)
	}

	n.logger.WithContext(ctx).WithFields(map[string]any{
		"match_id":  event.MatchID,
		"tenant_id": event.TenantID,
	}).Debug("Published match notification")
	return nil
}

// Close closes the underlying writer.
func (n *KafkaNotifier) Close() error {
	if err := n.writer.Close(); err != nil {
		return fmt.Errorf("failed to close notifier: %w", err)
	}
	n.logger.Info("Match notifier closed")
	return nil
}
