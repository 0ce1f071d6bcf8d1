package repository

import (
	"context"
	"errors"

	"github.com/jhoicas/ventas-api/internal/domain/entity"
)

// ErrIdempotencyKeyTaken otra venta ya usa la idempotency key.
var ErrIdempotencyKeyTaken = errors.New("idempotency key ya utilizada")

// SaleRepository persistencia del historial de ventas (solo inserción y lectura).
type SaleRepository interface {
	// Create inserta la venta y sus líneas. La idempotency key y el número de factura son únicos;
	// una llave repetida retorna ErrIdempotencyKeyTaken.
	Create(ctx context.Context, sale *entity.Sale) error
	GetByID(ctx context.Context, id string) (*entity.Sale, error)
	// GetByIdempotencyKey devuelve nil, nil si ninguna venta confirmada usa esa llave.
	GetByIdempotencyKey(ctx context.Context, key string) (*entity.Sale, error)
	// List devuelve las ventas más recientes primero ("" = todas las sucursales).
	List(ctx context.Context, branchID string, limit int) ([]*entity.Sale, error)
}
