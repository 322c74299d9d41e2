package service

import (
	"context"

	"github.com/marketplace-balance-ledger/internal/domain/sale"
	"github.com/marketplace-balance-ledger/internal/domain/shared"
	"github.com/stretchr/testify/mock"
)

type MockSaleValidator struct {
	mock.Mock
}

func (m *MockSaleValidator) Validate(ctx context.Context, request *shared.SaleRequest) error {
	args := m.Called(ctx, request)
	return args.Error(0)
}

func (m *MockSaleValidator) CheckIdempotency(ctx context.Context, request *shared.SaleRequest) (bool, error) {
	args := m.Called(ctx, request)
	return args.Bool(0), args.Error(1)
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

type MockFailureRecorder struct {
	mock.Mock
}

func (m *MockFailureRecorder) RecordFailure(ctx context.Context, request *shared.SaleRequest, reason shared.FailureReason) error {
	args := m.Called(ctx, request, reason)
	return args.Error(0)
}

type MockProcessingService struct {
	mock.Mock
}

func (m *MockProcessingService) ProcessSale(ctx context.Context, request *shared.SaleRequest) error {
	args := m.Called(ctx, request)
	return args.Error(0)
}
