package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/jhoicas/ventas-api/internal/domain/entity"
	"github.com/jhoicas/ventas-api/internal/domain/repository"
)

var _ repository.SaleRepository = (*MockSaleRepository)(nil)

type MockSaleRepository struct {
	mock.Mock
}

func (m *MockSaleRepository) Create(ctx context.Context, sale *entity.Sale) error {
	args := m.Called(ctx, sale)
	return args.Error(0)
}

func (m *MockSaleRepository) GetByID(ctx context.Context, id string) (*entity.Sale, error) {
	args := m.Called(ctx, id)
	if s := args.Get(0); s != nil {
		return s.(*entity.Sale), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockSaleRepository) GetByIdempotencyKey(ctx context.Context, key string) (*entity.Sale, error) {
	args := m.Called(ctx, key)
	if s := args.Get(0); s != nil {
		return s.(*entity.Sale), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockSaleRepository) List(ctx context.Context, branchID string, limit int) ([]*entity.Sale, error) {
	args := m.Called(ctx, branchID, limit)
	if l := args.Get(0); l != nil {
		return l.([]*entity.Sale), args.Error(1)
	}
	return nil, args.Error(1)
}
