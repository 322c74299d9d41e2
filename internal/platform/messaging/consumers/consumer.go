package consumers

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/marketplace-balance-ledger/internal/config"
	"github.com/marketplace-balance-ledger/internal/domain/shared"
	"github.com/marketplace-balance-ledger/internal/platform/messaging/producers"
	"github.com/segmentio/kafka-go"
)

const (
	defaultRetryBackoff = time.Second
	maxRetryBackoff     = 30 * time.Second
)

// MessageHandler processes one message. A non-nil error makes the consumer
// retry the same message; the offset is committed only once it succeeds or
// has been parked in the dead letter topic.
type MessageHandler func(ctx context.Context, key []byte, value []byte) error

// Consumer defines the message queue consumer interface
type Consumer interface {
	Subscribe(ctx context.Context, handler MessageHandler) error
	Close() error
}

// KafkaReader is the subset of kafka.Reader the consumer uses
type KafkaReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// RetryPolicy controls how a failing message is retried. Backoff doubles
// after every attempt up to MaxBackoff. After MaxAttempts the message is
// parked in DeadLetter; with MaxAttempts <= 0 or no DeadLetter the consumer
// retries until the handler succeeds or the context is canceled.
type RetryPolicy struct {
	MaxAttempts int
	Backoff     time.Duration
	MaxBackoff  time.Duration
	DeadLetter  producers.DeadLetterPublisher
}

func (p RetryPolicy) withDefaults() RetryPolicy {
	if p.Backoff <= 0 {
		p.Backoff = defaultRetryBackoff
	}
	if p.MaxBackoff < p.Backoff {
		p.MaxBackoff = max(p.Backoff, maxRetryBackoff)
	}
	return p
}

// KafkaConsumer implements Consumer using a consumer group reader
type KafkaConsumer struct {
	reader  KafkaReader
	logger  *slog.Logger
	topic   string
	groupID string
	retry   RetryPolicy
	done    chan struct{}
}

var _ Consumer = (*KafkaConsumer)(nil)

func NewKafkaConsumer(logger *slog.Logger, cfg *config.KafkaConfig, dlq producers.DeadLetterPublisher) *KafkaConsumer {
	startOffset := cfg.StartOffset
	if startOffset == 0 {
		startOffset = kafka.FirstOffset
	}
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:     []string{cfg.Brokers},
		Topic:       cfg.SaleTopic,
		GroupID:     cfg.ConsumerGroup,
		MinBytes:    cfg.MinBytes,
		MaxBytes:    cfg.MaxBytes,
		MaxWait:     cfg.MaxWait,
		StartOffset: startOffset,
	})
	return NewKafkaConsumerWithReader(logger, reader, cfg.SaleTopic, cfg.ConsumerGroup, RetryPolicy{
		MaxAttempts: cfg.MaxAttempts,
		Backoff:     cfg.RetryBackoff,
		DeadLetter:  dlq,
	})
}

// NewKafkaConsumerWithReader wraps an existing reader
func NewKafkaConsumerWithReader(logger *slog.Logger, reader KafkaReader, topic, groupID string, retry RetryPolicy) *KafkaConsumer {
	return &KafkaConsumer{
		reader:  reader,
		logger:  logger.With("topic", topic, "group_id", groupID),
		topic:   topic,
		groupID: groupID,
		retry:   retry.withDefaults(),
		done:    make(chan struct{}),
	}
}

// Subscribe starts the fetch loop in the background. It stops when ctx is
// canceled; Done is closed once the loop has returned.
func (c *KafkaConsumer) Subscribe(ctx context.Context, handler MessageHandler) error {
	c.logger.Info("Subscribed to Kafka topic")
	go c.run(ctx, handler)
	return nil
}

// Done is closed after the fetch loop exits
func (c *KafkaConsumer) Done() <-chan struct{} {
	return c.done
}

func (c *KafkaConsumer) run(ctx context.Context, handler MessageHandler) {
	defer close(c.done)

	for {
		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, context.Canceled) {
				c.logger.Info("Context canceled, stopping consumer")
				return
			}
			c.logger.Error("Failed to fetch message from Kafka", "error", err)
			if !sleep(ctx, c.retry.Backoff) {
				return
			}
			continue
		}

		if !c.process(ctx, handler, msg) {
			c.logger.Info("Context canceled, stopping consumer")
			return
		}
	}
}

// process delivers msg until it is handled or parked, then commits it.
// Committing covers every earlier offset of the partition, so nothing after
// msg is fetched before msg is settled. Returns false when ctx was canceled
// first, leaving the offset uncommitted.
func (c *KafkaConsumer) process(ctx context.Context, handler MessageHandler, msg kafka.Message) bool {
	msgLogger := c.logger.With(
		"partition", msg.Partition,
		"offset", msg.Offset,
		"key", string(msg.Key),
	)
	msgLogger.Debug("Received message from Kafka")

	msgCtx := ctx
	if correlationID := headerValue(msg.Headers, producers.CorrelationHeader); correlationID != "" {
		msgCtx = shared.WithCorrelationID(ctx, correlationID)
	}

	delay := c.retry.Backoff
	for attempt := 1; ; attempt++ {
		err := handler(msgCtx, msg.Key, msg.Value)
		if err == nil {
			break
		}
		if c.retry.MaxAttempts > 0 && attempt >= c.retry.MaxAttempts && c.park(ctx, msgLogger, msg, attempt, err) {
			break
		}

		msgLogger.Warn("Failed to process message, retrying",
			"attempt", attempt,
			"retry_in", delay,
			"error", err)
		if !sleep(ctx, delay) {
			return false
		}
		delay = min(delay*2, c.retry.MaxBackoff)
	}

	if err := c.reader.CommitMessages(ctx, msg); err != nil {
		// the message is redelivered and deduplicated downstream
		msgLogger.Error("Failed to commit message", "error", err)
		return ctx.Err() == nil
	}
	msgLogger.Debug("Message committed")
	return true
}

func (c *KafkaConsumer) park(ctx context.Context, logger *slog.Logger, msg kafka.Message, attempts int, cause error) bool {
	if c.retry.DeadLetter == nil {
		return false
	}
	reason := fmt.Sprintf("%s: %d attempts: %v", shared.FailureReasonRetriesExhausted, attempts, cause)
	if err := c.retry.DeadLetter.PublishToDLQ(ctx, string(msg.Key), msg.Value, reason); err != nil {
		logger.Error("Failed to park message in dead letter topic", "attempts", attempts, "error", err)
		return false
	}
	logger.Warn("Message parked in dead letter topic", "attempts", attempts, "error", cause)
	return true
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

func headerValue(headers []kafka.Header, key string) string {
	for _, h := range headers {
		if h.Key == key {
			return string(h.Value)
		}
	}
	return ""
}

func (c *KafkaConsumer) Close() error {
	if c.reader == nil {
		return nil
	}
	return c.reader.Close()
}
