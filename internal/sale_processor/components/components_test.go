package components

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/marketplace-balance-ledger/internal/domain/activity"
	"github.com/marketplace-balance-ledger/internal/domain/money"
	"github.com/marketplace-balance-ledger/internal/domain/sale"
	"github.com/marketplace-balance-ledger/internal/domain/shared"
	"github.com/stretchr/testify/mock"
)

type MockSaleRepo struct {
	mock.Mock
}

func (m *MockSaleRepo) Create(ctx context.Context, s *sale.Sale) error {
	return m.Called(ctx, s).Error(0)
}

func (m *MockSaleRepo) GetByPaymentReference(ctx context.Context, reference string) (*sale.Sale, error) {
	args := m.Called(ctx, reference)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*sale.Sale), args.Error(1)
}

func (m *MockSaleRepo) SumBySeller(ctx context.Context, sellerAccountID uuid.UUID) (money.Money, error) {
	args := m.Called(ctx, sellerAccountID)
	return args.Get(0).(money.Money), args.Error(1)
}

func (m *MockSaleRepo) ListBySellerSince(ctx context.Context, sellerAccountID uuid.UUID, since time.Time) ([]*sale.Sale, error) {
	args := m.Called(ctx, sellerAccountID, since)
	return args.Get(0).([]*sale.Sale), args.Error(1)
}

func (m *MockSaleRepo) WithTx(tx pgx.Tx) sale.Repository {
	return m
}

type MockActivityRepo struct {
	mock.Mock
}

func (m *MockActivityRepo) Create(ctx context.Context, event *activity.Event) error {
	return m.Called(ctx, event).Error(0)
}

func (m *MockActivityRepo) GetByEventID(ctx context.Context, eventID uuid.UUID) (*activity.Event, error) {
	args := m.Called(ctx, eventID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*activity.Event), args.Error(1)
}

func (m *MockActivityRepo) GetByAccountID(ctx context.Context, accountID uuid.UUID, limit, offset int) ([]*activity.Event, error) {
	args := m.Called(ctx, accountID, limit, offset)
	return args.Get(0).([]*activity.Event), args.Error(1)
}

func (m *MockActivityRepo) CountByAccountID(ctx context.Context, accountID uuid.UUID) (int64, error) {
	args := m.Called(ctx, accountID)
	return args.Get(0).(int64), args.Error(1)
}

type MockSaleRecorder struct {
	mock.Mock
}

func (m *MockSaleRecorder) RecordSale(ctx context.Context, request *shared.SaleRequest) (*sale.Sale, error) {
	args := m.Called(ctx, request)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*sale.Sale), args.Error(1)
}

func newSaleRequest() *shared.SaleRequest {
	return &shared.SaleRequest{
		RequestID:        uuid.New(),
		ProductID:        uuid.New(),
		SellerAccountID:  uuid.New(),
		Amount:           money.FromMinor(49900),
		PaymentReference: "pay_29QQoUBi66xm2f",
		CorrelationID:    "corr-1",
		Timestamp:        time.Now().UTC(),
	}
}
