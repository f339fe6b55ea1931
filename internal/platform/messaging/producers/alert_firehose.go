// Package producers publishes alert copies to Kafka for downstream consumers
// (case-management tooling, analytics). The firehose is an optional mirror of
// the session fan-out, never the delivery path itself.
package producers

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/segmentio/kafka-go"

	"github.com/honeypot-card-monitor/internal/config"
)

// KafkaWriter wraps kafka.Writer methods for testing
type KafkaWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// AlertFirehoseProducer mirrors every broadcast alert onto a Kafka topic,
// keyed by card token so per-card ordering survives partitioning.
type AlertFirehoseProducer struct {
	logger *slog.Logger
	writer KafkaWriter
	topic  string
}

// NewAlertFirehoseProducer creates the firehose producer and ensures the
// topic exists. An empty topic in the config means the firehose is disabled;
// callers handle that by passing a nil producer downstream.
func NewAlertFirehoseProducer(ctx context.Context, logger *slog.Logger, cfg *config.KafkaConfig) (*AlertFirehoseProducer, error) {
	if cfg.AlertTopic == "" {
		return nil, fmt.Errorf("kafka alert topic is not configured")
	}

	conn, err := kafka.Dial("tcp", cfg.Brokers)
	if err != nil {
		return nil, fmt.Errorf("failed to dial kafka for alert firehose producer: %w", err)
	}
	defer conn.Close()

	err = createKafkaTopicIfNotExists(conn, cfg.AlertTopic, cfg.NumPartitions, cfg.ReplicationFactor, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to ensure alert topic %s exists: %w", cfg.AlertTopic, err)
	}

	writer := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers),
		Topic:        cfg.AlertTopic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireOne,
		Async:        true,
		WriteTimeout: cfg.WriteTimeout,
		Completion: func(messages []kafka.Message, err error) {
			if err != nil {
				logger.Error("Failed to write alerts asynchronously", "topic", cfg.AlertTopic, "error", err, "count", len(messages))
			} else {
				logger.Debug("Successfully wrote alerts asynchronously", "topic", cfg.AlertTopic, "count", len(messages))
			}
		},
	}

	return &AlertFirehoseProducer{
		logger: logger,
		writer: writer,
		topic:  cfg.AlertTopic,
	}, nil
}

// Publish sends one already-encoded alert keyed by card token
func (p *AlertFirehoseProducer) Publish(ctx context.Context, key string, payload []byte) error {
	msg := kafka.Message{
		Key:   []byte(key),
		Value: payload,
	}

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		p.logger.Error("Failed to publish alert to firehose",
			"topic", p.topic,
			"key", key,
			"error", err,
		)
		return fmt.Errorf("failed to publish alert to %s: %w", p.topic, err)
	}

	p.logger.Debug("Published alert to firehose",
		"topic", p.topic,
		"key", key,
	)
	return nil
}

func (p *AlertFirehoseProducer) Close() error {
	p.logger.Info("Closing alert firehose producer", "topic", p.topic)
	if err := p.writer.Close(); err != nil {
		return fmt.Errorf("failed to close alert firehose writer for topic %s: %w", p.topic, err)
	}
	return nil
}
