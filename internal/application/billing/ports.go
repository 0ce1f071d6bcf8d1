package billing

import (
	"context"

	"github.com/jhoicas/ventas-api/internal/domain/entity"
	"github.com/jhoicas/ventas-api/internal/domain/repository"
)

// SaleTxRunner ejecuta fn dentro de una única transacción que incluye el libro de existencias,
// el historial de ventas y el contador de facturas. Si fn retorna error se hace rollback.
//
// Errores del runner (además de los que retorne fn):
//   - domain.ErrConcurrencyConflict si la transacción no pudo completarse por contención y
//     es seguro reintentarla completa.
//   - domain.ErrCommitUnknown si el commit falló sin certeza de haberse aplicado.
type SaleTxRunner interface {
	RunSale(ctx context.Context, fn func(
		ledger repository.ProductLedger,
		sales repository.SaleRepository,
		seq repository.InvoiceSequence,
	) error) error
}

// InvoiceRenderer produce la representación de una factura. El formato es asunto del adaptador.
type InvoiceRenderer interface {
	// Format identificador corto ("pdf", "xml").
	Format() string
	ContentType() string
	Render(ctx context.Context, doc *entity.InvoiceDocument) ([]byte, error)
}
