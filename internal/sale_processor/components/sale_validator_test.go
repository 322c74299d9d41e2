package components

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/marketplace-balance-ledger/internal/domain/money"
	"github.com/marketplace-balance-ledger/internal/domain/sale"
	"github.com/marketplace-balance-ledger/internal/domain/shared"
	"github.com/marketplace-balance-ledger/internal/logger"
	"github.com/stretchr/testify/assert"
)

func TestSaleValidatorImpl_Validate(t *testing.T) {
	v := NewSaleValidator(new(MockSaleRepo), logger.Discard())

	assert.NoError(t, v.Validate(context.Background(), newSaleRequest()))

	req := newSaleRequest()
	req.Amount = money.FromMinor(-5)
	err := v.Validate(context.Background(), req)
	assert.ErrorIs(t, err, shared.ErrInvalidSaleRequest)
	assert.ErrorIs(t, err, shared.ErrInvalidAmount)
}

func TestSaleValidatorImpl_CheckIdempotency(t *testing.T) {
	ctx := context.Background()

	t.Run("new payment", func(t *testing.T) {
		repo := new(MockSaleRepo)
		req := newSaleRequest()
		repo.On("GetByPaymentReference", ctx, req.PaymentReference).
			Return(nil, sale.ErrSaleNotFound{PaymentReference: req.PaymentReference})

		skip, err := NewSaleValidator(repo, logger.Discard()).CheckIdempotency(ctx, req)
		assert.NoError(t, err)
		assert.False(t, skip)
	})

	t.Run("payment already recorded", func(t *testing.T) {
		repo := new(MockSaleRepo)
		req := newSaleRequest()
		repo.On("GetByPaymentReference", ctx, req.PaymentReference).
			Return(&sale.Sale{ID: uuid.New(), PaymentReference: req.PaymentReference}, nil)

		skip, err := NewSaleValidator(repo, logger.Discard()).CheckIdempotency(ctx, req)
		assert.NoError(t, err)
		assert.True(t, skip)
	})

	t.Run("lookup failure", func(t *testing.T) {
		repo := new(MockSaleRepo)
		req := newSaleRequest()
		dbErr := errors.New("connection refused")
		repo.On("GetByPaymentReference", ctx, req.PaymentReference).Return(nil, dbErr)

		skip, err := NewSaleValidator(repo, logger.Discard()).CheckIdempotency(ctx, req)
		assert.ErrorIs(t, err, dbErr)
		assert.False(t, skip)
	})
}
