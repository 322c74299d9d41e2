package activity

import (
	"testing"

	"github.com/google/uuid"
	"github.com/marketplace-balance-ledger/internal/domain/money"
	"github.com/marketplace-balance-ledger/internal/domain/shared"
	"github.com/stretchr/testify/assert"
)

func TestNewEvent(t *testing.T) {
	accountID := uuid.New()
	ev := NewEvent(accountID, TypeWithdrawalRequested, money.FromMinor(6000), money.FromMinor(4000), "corr-1")

	assert.NotEqual(t, uuid.Nil, ev.EventID)
	assert.Equal(t, accountID, ev.AccountID)
	assert.Equal(t, TypeWithdrawalRequested, ev.Type)
	assert.Equal(t, money.FromMinor(4000), ev.BalanceAfter)
	assert.Equal(t, "corr-1", ev.CorrelationID)
	assert.False(t, ev.CreatedAt.IsZero())
	assert.Nil(t, ev.PublishedAt)
}

func TestErrors_Is(t *testing.T) {
	id := uuid.New()
	assert.ErrorIs(t, ErrEventNotFound{EventID: id}, ErrEventNotFound{})
	assert.ErrorIs(t, ErrEventNotFound{EventID: id}, shared.ErrNotFound)
	assert.NotErrorIs(t, ErrEventNotFound{EventID: id}, ErrEventNotFound{EventID: uuid.New()})
	assert.ErrorIs(t, ErrDuplicateEvent{EventID: id}, ErrDuplicateEvent{})
	assert.NotErrorIs(t, ErrDuplicateEvent{EventID: id}, ErrDuplicateEvent{EventID: uuid.New()})
}
