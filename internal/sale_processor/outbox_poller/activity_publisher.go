package outbox_poller

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/marketplace-balance-ledger/internal/domain/activity"
	"github.com/marketplace-balance-ledger/internal/domain/outbox"
	"github.com/marketplace-balance-ledger/internal/domain/shared"
)

// ActivityPublisher copies one outbox message into the activity store
type ActivityPublisher interface {
	Publish(ctx context.Context, message *outbox.Message) error
}

type ActivityPublisherImpl struct {
	outboxRepo   outbox.Repository
	activityRepo activity.Repository
	logger       *slog.Logger
	clock        func() time.Time
}

func NewActivityPublisher(
	outboxRepo outbox.Repository,
	activityRepo activity.Repository,
	logger *slog.Logger,
) *ActivityPublisherImpl {
	return &ActivityPublisherImpl{
		outboxRepo:   outboxRepo,
		activityRepo: activityRepo,
		logger:       logger,
		clock:        func() time.Time { return time.Now().UTC() },
	}
}

var _ ActivityPublisher = (*ActivityPublisherImpl)(nil)

// Publish stores the event and marks the message processed. An event that is
// already stored counts as published, so a crash between the two steps is
// repaired by the next poll.
func (p *ActivityPublisherImpl) Publish(ctx context.Context, message *outbox.Message) error {
	event, err := message.Event()
	if err != nil {
		p.logger.Error("Failed to decode activity event from outbox payload",
			"outbox_id", message.ID, "event_id", message.EventID.String(), "error", err)
		if updateErr := p.outboxRepo.UpdateStatus(ctx, message.ID, shared.OutboxStatusFailedToPublish); updateErr != nil {
			p.logger.Error("Failed to mark undecodable outbox message", "outbox_id", message.ID, "error", updateErr)
		}
		return fmt.Errorf("decode payload for outbox %d failed: %w", message.ID, err)
	}

	logger := p.logger.With("outbox_id", message.ID, "event_id", event.EventID.String(), "type", event.Type)
	if event.CorrelationID != "" {
		logger = logger.With("correlation_id", event.CorrelationID)
	}

	publishedAt := p.clock()
	event.PublishedAt = &publishedAt

	if err := p.activityRepo.Create(ctx, event); err != nil {
		if !errors.Is(err, activity.ErrDuplicateEvent{}) {
			logger.Error("Failed to store activity event", "error", err)
			return fmt.Errorf("failed to store activity event %s: %w", event.EventID, err)
		}
		logger.Info("Activity event already stored")
	}

	if err := p.outboxRepo.UpdateStatus(ctx, message.ID, shared.OutboxStatusProcessed); err != nil {
		logger.Error("Failed to mark outbox message as processed", "error", err)
		return fmt.Errorf("activity event %s stored, but failed to mark outbox %d as processed: %w", event.EventID, message.ID, err)
	}

	logger.Debug("Published activity event")
	return nil
}
