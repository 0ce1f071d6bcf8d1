package postgres

import (
	"context"

	"github.com/jhoicas/ventas-api/internal/domain/repository"
)

var _ repository.InvoiceSequence = (*InvoiceSequenceRepo)(nil)

// invoiceCounter único contador global de facturas.
const invoiceCounter = "sales"

// InvoiceSequenceRepo contador de facturas sobre la tabla invoice_counters.
// El UPDATE deja la fila bloqueada hasta el fin de la tx: dos ventas concurrentes se numeran en
// orden de commit y un rollback libera el número sin dejar huecos.
type InvoiceSequenceRepo struct {
	q Querier
}

// NewInvoiceSequenceRepository construye el adaptador. Debe recibir una tx.
func NewInvoiceSequenceRepository(q Querier) *InvoiceSequenceRepo {
	return &InvoiceSequenceRepo{q: q}
}

// Next reserva el siguiente número de factura.
func (r *InvoiceSequenceRepo) Next(ctx context.Context) (int64, error) {
	query := `
		INSERT INTO invoice_counters (name, last_value) VALUES ($1, 1)
		ON CONFLICT (name) DO UPDATE SET last_value = invoice_counters.last_value + 1
		RETURNING last_value`
	var n int64
	if err := r.q.QueryRow(ctx, query, invoiceCounter).Scan(&n); err != nil {
		return 0, classify("next invoice number", err)
	}
	return n, nil
}
