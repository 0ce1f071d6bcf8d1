package mocks

import (
	"context"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"

	"github.com/jhoicas/ventas-api/internal/domain/entity"
	"github.com/jhoicas/ventas-api/internal/domain/repository"
)

var _ repository.ProductLedger = (*MockProductLedger)(nil)

type MockProductLedger struct {
	mock.Mock
}

func (m *MockProductLedger) Create(ctx context.Context, p *entity.Product) error {
	args := m.Called(ctx, p)
	return args.Error(0)
}

func (m *MockProductLedger) GetByID(ctx context.Context, id string) (*entity.Product, error) {
	args := m.Called(ctx, id)
	if p := args.Get(0); p != nil {
		return p.(*entity.Product), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockProductLedger) List(ctx context.Context, branchID string) ([]*entity.Product, error) {
	args := m.Called(ctx, branchID)
	if l := args.Get(0); l != nil {
		return l.([]*entity.Product), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockProductLedger) GetManyForUpdate(ctx context.Context, ids []string) ([]*entity.Product, error) {
	args := m.Called(ctx, ids)
	if l := args.Get(0); l != nil {
		return l.([]*entity.Product), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockProductLedger) TryReserve(ctx context.Context, id string, qty int64) (int64, error) {
	args := m.Called(ctx, id, qty)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockProductLedger) UpdatePrices(ctx context.Context, id string, purchase, selling decimal.Decimal) error {
	args := m.Called(ctx, id, purchase, selling)
	return args.Error(0)
}

func (m *MockProductLedger) Restock(ctx context.Context, id string, qty int64) (int64, error) {
	args := m.Called(ctx, id, qty)
	return args.Get(0).(int64), args.Error(1)
}
