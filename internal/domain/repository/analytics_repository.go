package repository

import (
	"context"
	"time"

	"github.com/jhoicas/ventas-api/internal/domain/analytics"
)

// AnalyticsRepository consultas de agregación de solo lectura.
// Cada llamada lee una única instantánea consistente del libro y del historial.
type AnalyticsRepository interface {
	// StockSummary resume existencias por producto de la sucursal ("" = todas).
	StockSummary(ctx context.Context, branchID string, inStockOnly bool) (*analytics.StockSummary, error)

	// DashboardMetrics totales de ventas y costo hasta asOf (inclusive).
	DashboardMetrics(ctx context.Context, branchID string, asOf time.Time) (*analytics.DashboardMetrics, error)
}
