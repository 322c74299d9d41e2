package service

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
	"github.com/marketplace-balance-ledger/internal/domain/activity"
)

const maxActivityPageSize = 100

// ActivityServiceImpl implements the ActivityService interface
type ActivityServiceImpl struct {
	activityRepo activity.Repository
	logger       *slog.Logger
}

var _ ActivityService = (*ActivityServiceImpl)(nil)

// NewActivityService creates a new activity service
func NewActivityService(logger *slog.Logger, activityRepo activity.Repository) *ActivityServiceImpl {
	return &ActivityServiceImpl{
		activityRepo: activityRepo,
		logger:       logger,
	}
}

// GetActivity retrieves a page of the account's history and the total count
func (s *ActivityServiceImpl) GetActivity(ctx context.Context, accountID uuid.UUID, page, perPage int) ([]*activity.Event, int64, error) {
	page = max(page, 1)
	perPage = min(max(perPage, 1), maxActivityPageSize)
	offset := (page - 1) * perPage

	events, err := s.activityRepo.GetByAccountID(ctx, accountID, perPage, offset)
	if err != nil {
		return nil, 0, err
	}

	total, err := s.activityRepo.CountByAccountID(ctx, accountID)
	if err != nil {
		return nil, 0, err
	}

	return events, total, nil
}
