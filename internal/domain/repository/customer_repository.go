package repository

import (
	"context"

	"github.com/jhoicas/ventas-api/internal/domain/entity"
)

// CustomerRepository directorio de clientes.
type CustomerRepository interface {
	Create(ctx context.Context, c *entity.Customer) error
	// GetByID devuelve nil, nil si no existe.
	GetByID(ctx context.Context, id string) (*entity.Customer, error)
}
