package outbox_poller

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/marketplace-balance-ledger/internal/config"
	"github.com/marketplace-balance-ledger/internal/domain/outbox"
	"github.com/marketplace-balance-ledger/internal/domain/shared"
)

const purgeInterval = time.Hour

// Poller drains pending outbox messages into the activity store and
// periodically purges the ones already processed.
type Poller struct {
	outboxRepo       outbox.Repository
	publisher        ActivityPublisher
	logger           *slog.Logger
	pollInterval     time.Duration
	batchSize        int
	maxRetryAttempts int
	retention        time.Duration
	now              func() time.Time
}

func NewPoller(
	cfg *config.OutboxConfig,
	outboxRepo outbox.Repository,
	publisher ActivityPublisher,
	logger *slog.Logger,
) *Poller {
	return &Poller{
		outboxRepo:       outboxRepo,
		publisher:        publisher,
		logger:           logger,
		pollInterval:     cfg.PollingInterval,
		batchSize:        cfg.BatchSize,
		maxRetryAttempts: cfg.MaxRetryAttempts,
		retention:        cfg.Retention,
		now:              time.Now,
	}
}

// Start polls until ctx is canceled
func (p *Poller) Start(ctx context.Context) {
	p.logger.Info("Starting outbox poller",
		"poll_interval", p.pollInterval.String(),
		"batch_size", p.batchSize,
		"max_retry_attempts", p.maxRetryAttempts,
	)
	ticker := time.NewTicker(p.pollInterval)
	defer ticker.Stop()
	purgeTicker := time.NewTicker(purgeInterval)
	defer purgeTicker.Stop()

	for {
		select {
		case <-ctx.Done():
			p.logger.Info("Outbox poller stopping")
			return
		case <-ticker.C:
			if _, err := p.processPendingMessages(ctx); err != nil {
				p.logger.Error("Failed to process pending outbox messages", "error", err)
			}
		case <-purgeTicker.C:
			if _, err := p.purgeProcessed(ctx); err != nil {
				p.logger.Error("Failed to purge processed outbox messages", "error", err)
			}
		}
	}
}

// purgeProcessed removes processed messages older than the retention.
// A zero retention keeps everything.
func (p *Poller) purgeProcessed(ctx context.Context) (int64, error) {
	if p.retention <= 0 {
		return 0, nil
	}
	purged, err := p.outboxRepo.PurgeProcessed(ctx, p.now().Add(-p.retention))
	if err != nil {
		return 0, err
	}
	if purged > 0 {
		p.logger.Info("Purged processed outbox messages", "purged", purged, "retention", p.retention.String())
	}
	return purged, nil
}

// processPendingMessages publishes one batch and returns how many messages
// were published.
func (p *Poller) processPendingMessages(ctx context.Context) (int, error) {
	messages, err := p.outboxRepo.GetPending(ctx, p.batchSize)
	if err != nil {
		return 0, fmt.Errorf("failed to get pending outbox messages: %w", err)
	}
	if len(messages) == 0 {
		return 0, nil
	}

	p.logger.Debug("Fetched pending outbox messages", "count", len(messages))

	published := 0
	for _, msg := range messages {
		if ctx.Err() != nil {
			return published, ctx.Err()
		}

		err := p.publisher.Publish(ctx, msg)
		if err == nil {
			published++
			continue
		}

		logger := p.logger.With("outbox_id", msg.ID, "event_id", msg.EventID.String())
		logger.Error("Failed to publish outbox message", "attempts", msg.Attempts, "error", err)

		if errInc := p.outboxRepo.IncrementAttempts(ctx, msg.ID); errInc != nil {
			logger.Error("Failed to increment outbox attempts", "error", errInc)
			continue
		}

		if msg.Attempts+1 >= p.maxRetryAttempts {
			logger.Warn("Max retry attempts reached, marking outbox message as failed", "attempts", msg.Attempts+1)
			if errUpdate := p.outboxRepo.UpdateStatus(ctx, msg.ID, shared.OutboxStatusFailedToPublish); errUpdate != nil {
				logger.Error("Failed to mark outbox message as failed", "error", errUpdate)
			}
		}
	}

	if published > 0 {
		p.logger.Info("Published outbox messages", "published", published, "fetched", len(messages))
	}
	return published, nil
}
