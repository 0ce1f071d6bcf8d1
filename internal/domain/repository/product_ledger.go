package repository

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/ventas-api/internal/domain/entity"
)

// ProductLedger puerto del libro de existencias. Es la única vía para mutar Product.Quantity.
// Cada mutación es atómica y linealizable por producto.
type ProductLedger interface {
	Create(ctx context.Context, p *entity.Product) error

	// GetByID devuelve nil, nil si el producto no existe.
	GetByID(ctx context.Context, id string) (*entity.Product, error)

	// List devuelve los productos de la sucursal ("" = todas) ordenados por nombre e id.
	List(ctx context.Context, branchID string) ([]*entity.Product, error)

	// GetManyForUpdate bloquea las filas en orden ascendente de id y devuelve su estado.
	// Solo tiene sentido dentro de una transacción; los ids ausentes simplemente no aparecen.
	GetManyForUpdate(ctx context.Context, ids []string) ([]*entity.Product, error)

	// TryReserve descuenta qty si hay existencias suficientes y devuelve la cantidad resultante.
	// Errores: *domain.InsufficientStockError, domain.ErrNotFound.
	TryReserve(ctx context.Context, id string, qty int64) (int64, error)

	// Restock suma qty a las existencias. Errores: domain.ErrNotFound; *domain.ValidationError
	// (ErrInvalidQuantity) si el saldo excedería int64.
	Restock(ctx context.Context, id string, qty int64) (int64, error)

	// UpdatePrices fija los precios vigentes sin tocar existencias. Las ventas ya registradas
	// conservan su precio unitario y total. Error: domain.ErrNotFound.
	UpdatePrices(ctx context.Context, id string, purchase, selling decimal.Decimal) error
}
