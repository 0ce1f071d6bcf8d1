package repository

import "context"

// InvoiceSequence contador global de facturas.
// Next reserva el siguiente valor dentro de la transacción en curso; el valor queda
// retenido hasta el commit o rollback, por lo que la numeración no tiene huecos.
type InvoiceSequence interface {
	Next(ctx context.Context) (int64, error)
}
