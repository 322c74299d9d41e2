package producers

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/marketplace-balance-ledger/internal/config"
	"github.com/marketplace-balance-ledger/internal/domain/shared"
	"github.com/segmentio/kafka-go"
)

// SaleRequestProducer publishes verified payments for the sale processor.
// Messages are keyed by payment reference so retries of one payment land on
// the same partition.
type SaleRequestProducer struct {
	logger *slog.Logger
	writer KafkaWriter
	topic  string
}

var _ MessagePublisher = (*SaleRequestProducer)(nil)

// NewSaleRequestProducer ensures the sale topic exists and returns a
// synchronous producer; the gateway only answers once the broker has the sale.
func NewSaleRequestProducer(ctx context.Context, logger *slog.Logger, cfg *config.KafkaConfig) (*SaleRequestProducer, error) {
	if cfg.SaleTopic == "" {
		return nil, fmt.Errorf("kafka sale topic is not configured")
	}

	if err := ensureTopic(cfg, cfg.SaleTopic, logger); err != nil {
		return nil, fmt.Errorf("failed to ensure sale topic %s exists: %w", cfg.SaleTopic, err)
	}

	writer := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers),
		Topic:        cfg.SaleTopic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireAll,
		WriteTimeout: cfg.MaxWait,
	}

	return NewSaleRequestProducerWithWriter(logger, writer, cfg.SaleTopic), nil
}

// NewSaleRequestProducerWithWriter wraps an existing writer
func NewSaleRequestProducerWithWriter(logger *slog.Logger, writer KafkaWriter, topic string) *SaleRequestProducer {
	return &SaleRequestProducer{
		logger: logger,
		writer: writer,
		topic:  topic,
	}
}

func (p *SaleRequestProducer) Publish(ctx context.Context, key string, value interface{}) error {
	payload, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal sale request: %w", err)
	}

	msg := kafka.Message{
		Key:   []byte(key),
		Value: payload,
	}
	if correlationID := shared.CorrelationIDFromContext(ctx); correlationID != "" {
		msg.Headers = append(msg.Headers, kafka.Header{Key: CorrelationHeader, Value: []byte(correlationID)})
	}

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		p.logger.Error("Failed to publish sale request",
			"topic", p.topic,
			"key", key,
			"error", err,
		)
		return fmt.Errorf("failed to publish sale request to %s: %w", p.topic, err)
	}

	p.logger.Debug("Published sale request", "topic", p.topic, "key", key)
	return nil
}

func (p *SaleRequestProducer) Close() error {
	p.logger.Info("Closing sale request producer", "topic", p.topic)
	if err := p.writer.Close(); err != nil {
		return fmt.Errorf("failed to close kafka writer for topic %s: %w", p.topic, err)
	}
	return nil
}
