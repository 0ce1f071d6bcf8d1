package mocks

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/jhoicas/ventas-api/internal/domain/analytics"
	"github.com/jhoicas/ventas-api/internal/domain/repository"
)

var _ repository.AnalyticsRepository = (*MockAnalyticsRepository)(nil)

type MockAnalyticsRepository struct {
	mock.Mock
}

func (m *MockAnalyticsRepository) StockSummary(ctx context.Context, branchID string, inStockOnly bool) (*analytics.StockSummary, error) {
	args := m.Called(ctx, branchID, inStockOnly)
	if s := args.Get(0); s != nil {
		return s.(*analytics.StockSummary), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockAnalyticsRepository) DashboardMetrics(ctx context.Context, branchID string, asOf time.Time) (*analytics.DashboardMetrics, error) {
	args := m.Called(ctx, branchID, asOf)
	if d := args.Get(0); d != nil {
		return d.(*analytics.DashboardMetrics), args.Error(1)
	}
	return nil, args.Error(1)
}
