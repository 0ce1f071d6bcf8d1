// Package analytics casos de uso de lectura: resumen de existencias y dashboard de ventas.
package analytics

import (
	"context"
	"fmt"

	"github.com/jhoicas/ventas-api/internal/application/dto"
	"github.com/jhoicas/ventas-api/internal/domain"
	"github.com/jhoicas/ventas-api/internal/domain/repository"
)

// StockUseCase resumen de existencias actuales.
type StockUseCase struct {
	analyticsRepo repository.AnalyticsRepository
}

// NewStockUseCase construye el caso de uso.
func NewStockUseCase(analyticsRepo repository.AnalyticsRepository) *StockUseCase {
	return &StockUseCase{analyticsRepo: analyticsRepo}
}

// GetStock devuelve el inventario de la sucursal visible para el alcance.
// Un admin sin branchID recibe todas las sucursales.
func (uc *StockUseCase) GetStock(ctx context.Context, scope domain.Scope, branchID string, inStockOnly bool) (*dto.StockSummaryDTO, error) {
	branch := scope.BranchFilter(branchID)
	if branch == "" && !scope.IsAdmin() {
		return nil, domain.ErrBranchRequired
	}
	s, err := uc.analyticsRepo.StockSummary(ctx, branch, inStockOnly)
	if err != nil {
		return nil, &domain.PersistenceError{Op: "resumen de existencias", Err: fmt.Errorf("stock: %w", err)}
	}
	out := dto.ToStockSummaryDTO(branch, s)
	return &out, nil
}
