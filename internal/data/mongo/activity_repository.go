package mongo

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/marketplace-balance-ledger/internal/domain/activity"
	"github.com/marketplace-balance-ledger/internal/platform/persistence"
)

// ActivityRepository implements the activity.Repository interface for MongoDB
type ActivityRepository struct {
	db     *mongo.Database
	logger *slog.Logger
}

// NewActivityRepository creates a new MongoDB activity repository
func NewActivityRepository(logger *slog.Logger, db *mongo.Database) *ActivityRepository {
	return &ActivityRepository{
		db:     db,
		logger: logger,
	}
}

var _ activity.Repository = (*ActivityRepository)(nil)

func (r *ActivityRepository) collection() *mongo.Collection {
	return r.db.Collection(persistence.ActivityCollection)
}

// EnsureIndexes creates the unique event id index and the per-account
// history index.
func (r *ActivityRepository) EnsureIndexes(ctx context.Context) error {
	_, err := r.collection().Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "event_id", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("event_id_unique"),
		},
		{
			Keys:    bson.D{{Key: "account_id", Value: 1}, {Key: "created_at", Value: -1}},
			Options: options.Index().SetName("account_created_at"),
		},
	})
	if err != nil {
		r.logger.Error("Failed to create activity indexes", "error", err)
		return fmt.Errorf("failed to create activity indexes: %w", err)
	}
	return nil
}

// Create stores a new activity event after checking for duplicates.
// Returns ErrDuplicateEvent if the event id was already stored.
func (r *ActivityRepository) Create(ctx context.Context, event *activity.Event) error {
	existing, err := r.GetByEventID(ctx, event.EventID)
	if err != nil && !errors.Is(err, activity.ErrEventNotFound{}) {
		r.logger.Error("Failed to check for existing activity event",
			"event_id", event.EventID.String(),
			"error", err)
		return fmt.Errorf("failed to check for existing activity event: %w", err)
	}
	if existing != nil {
		return activity.ErrDuplicateEvent{EventID: event.EventID}
	}

	if _, err = r.collection().InsertOne(ctx, event); err != nil {
		// a concurrent poller may have won the race past the lookup
		if mongo.IsDuplicateKeyError(err) {
			return activity.ErrDuplicateEvent{EventID: event.EventID}
		}
		r.logger.Error("Failed to create activity event",
			"event_id", event.EventID.String(),
			"error", err)
		return fmt.Errorf("failed to create activity event: %w", err)
	}

	return nil
}

// GetByEventID retrieves an event by id. Returns ErrEventNotFound if absent.
func (r *ActivityRepository) GetByEventID(ctx context.Context, eventID uuid.UUID) (*activity.Event, error) {
	var event activity.Event
	err := r.collection().FindOne(ctx, bson.M{"event_id": eventID}).Decode(&event)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, activity.ErrEventNotFound{EventID: eventID}
		}
		r.logger.Error("Failed to get activity event",
			"event_id", eventID.String(),
			"error", err)
		return nil, fmt.Errorf("failed to get activity event: %w", err)
	}

	return &event, nil
}

// GetByAccountID retrieves a page of the account's history, newest first.
func (r *ActivityRepository) GetByAccountID(ctx context.Context, accountID uuid.UUID, limit, offset int) ([]*activity.Event, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}}).
		SetSkip(int64(offset)).
		SetLimit(int64(limit))

	cursor, err := r.collection().Find(ctx, bson.M{"account_id": accountID}, opts)
	if err != nil {
		r.logger.Error("Failed to get activity events",
			"account_id", accountID.String(),
			"error", err)
		return nil, fmt.Errorf("failed to get activity events: %w", err)
	}
	defer cursor.Close(ctx)

	events := make([]*activity.Event, 0)
	if err := cursor.All(ctx, &events); err != nil {
		r.logger.Error("Failed to decode activity events",
			"account_id", accountID.String(),
			"error", err)
		return nil, fmt.Errorf("failed to decode activity events: %w", err)
	}

	return events, nil
}

// CountByAccountID counts the account's events
func (r *ActivityRepository) CountByAccountID(ctx context.Context, accountID uuid.UUID) (int64, error) {
	count, err := r.collection().CountDocuments(ctx, bson.M{"account_id": accountID})
	if err != nil {
		r.logger.Error("Failed to count activity events",
			"account_id", accountID.String(),
			"error", err)
		return 0, fmt.Errorf("failed to count activity events: %w", err)
	}

	return count, nil
}
