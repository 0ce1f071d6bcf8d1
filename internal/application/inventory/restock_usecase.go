package inventory

import (
	"context"
	"errors"

	"github.com/rs/zerolog"

	"github.com/jhoicas/ventas-api/internal/application/dto"
	"github.com/jhoicas/ventas-api/internal/domain"
	"github.com/jhoicas/ventas-api/internal/domain/repository"
	"github.com/jhoicas/ventas-api/internal/domain/sales"
)

// RestockUseCase registra entradas de mercancía sobre el libro de existencias.
type RestockUseCase struct {
	ledger repository.ProductLedger
	log    zerolog.Logger
}

// NewRestockUseCase construye el caso de uso.
func NewRestockUseCase(ledger repository.ProductLedger, log zerolog.Logger) *RestockUseCase {
	return &RestockUseCase{ledger: ledger, log: log}
}

// Restock suma una cantidad entera positiva (con el mismo tope que una línea de venta) a las
// existencias de un producto de la sucursal.
func (uc *RestockUseCase) Restock(ctx context.Context, scope domain.Scope, in dto.RestockRequest) (*dto.RestockResponse, error) {
	if in.ProductID == "" {
		return nil, domain.ErrInvalidInput
	}
	if !sales.ValidQuantity(in.Quantity) {
		return nil, &domain.ValidationError{Kind: domain.ErrInvalidQuantity, Line: -1, ProductID: in.ProductID, Quantity: in.Quantity.String()}
	}
	qty := in.Quantity.IntPart()

	p, err := uc.ledger.GetByID(ctx, in.ProductID)
	if err != nil {
		return nil, &domain.PersistenceError{Op: "obtener producto", Err: err}
	}
	if p == nil {
		return nil, domain.ErrNotFound
	}
	if !scope.CanAccess(p.BranchID) {
		return nil, domain.ErrForbidden
	}

	newQty, err := uc.ledger.Restock(ctx, p.ID, qty)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrNotFound), errors.Is(err, domain.ErrInvalidInput), errors.Is(err, domain.ErrConcurrencyConflict):
			return nil, err
		}
		return nil, &domain.PersistenceError{Op: "reponer existencias", Err: err}
	}

	uc.log.Info().
		Str("product_id", p.ID).
		Str("branch_id", p.BranchID).
		Str("user_id", scope.UserID).
		Int64("quantity", qty).
		Int64("new_quantity", newQty).
		Msg("reposición registrada")

	return &dto.RestockResponse{ProductID: p.ID, Quantity: newQty}, nil
}
