package analytics

import (
	"context"
	"time"

	"github.com/jhoicas/ventas-api/internal/application/dto"
	"github.com/jhoicas/ventas-api/internal/domain"
	"github.com/jhoicas/ventas-api/internal/domain/analytics"
	"github.com/jhoicas/ventas-api/internal/domain/repository"
)

// DashboardUseCase métricas de ventas vs. compras y ventas mensuales.
//
// Fuente de datos: AnalyticsRepository (consultas read-only sobre una sola instantánea).
// La utilidad se calcula al presentar, nunca se almacena.
type DashboardUseCase struct {
	analyticsRepo repository.AnalyticsRepository
	now           func() time.Time
}

// NewDashboardUseCase construye el caso de uso.
func NewDashboardUseCase(analyticsRepo repository.AnalyticsRepository) *DashboardUseCase {
	return &DashboardUseCase{analyticsRepo: analyticsRepo, now: time.Now}
}

// GetDashboard calcula las métricas hasta asOf (cero = ahora).
func (uc *DashboardUseCase) GetDashboard(ctx context.Context, scope domain.Scope, branchID string, asOf time.Time) (*dto.DashboardDTO, error) {
	branch := scope.BranchFilter(branchID)
	if branch == "" && !scope.IsAdmin() {
		return nil, domain.ErrBranchRequired
	}
	if asOf.IsZero() {
		asOf = uc.now()
	}
	asOf = asOf.UTC()

	m, err := uc.analyticsRepo.DashboardMetrics(ctx, branch, asOf)
	if err != nil {
		return nil, &domain.PersistenceError{Op: "dashboard", Err: err}
	}
	if m == nil {
		m = &analytics.DashboardMetrics{MonthlySales: []analytics.MonthlyBucket{}}
	}
	out := dto.ToDashboardDTO(branch, asOf.Format(time.RFC3339), m)
	return &out, nil
}
