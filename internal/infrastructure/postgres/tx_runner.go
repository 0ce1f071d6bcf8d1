package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/jhoicas/ventas-api/internal/application/billing"
	"github.com/jhoicas/ventas-api/internal/domain"
	"github.com/jhoicas/ventas-api/internal/domain/repository"
)

var (
	_ billing.SaleTxRunner      = (*TxRunner)(nil)
	_ repository.ProductLedger = boundedLedger{}
)

// TxRunner ejecuta callbacks dentro de una transacción PostgreSQL.
type TxRunner struct {
	pool        *pgxpool.Pool
	lockTimeout time.Duration
}

// NewTxRunner construye el runner. lockTimeout acota la espera por bloqueos de fila (SET LOCAL lock_timeout).
func NewTxRunner(pool *pgxpool.Pool, lockTimeout time.Duration) *TxRunner {
	return &TxRunner{pool: pool, lockTimeout: lockTimeout}
}

// RunSale inicia una transacción READ COMMITTED, ejecuta fn con el libro, el historial y el contador
// atados a la tx y hace Commit o Rollback. Los bloqueos FOR UPDATE sobre productos y el contador
// se mantienen hasta el final de la tx.
func (r *TxRunner) RunSale(ctx context.Context, fn func(
	ledger repository.ProductLedger,
	sales repository.SaleRepository,
	seq repository.InvoiceSequence,
) error) error {
	tx, err := r.begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := fn(NewProductLedgerRepository(tx), NewSaleRepository(tx), NewInvoiceSequenceRepository(tx)); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		// Un conflicto reportado por el servidor en el commit es un rollback definitivo.
		if isServerConflict(err) {
			return classify("commit transaction", err)
		}
		return fmt.Errorf("commit transaction: %w: %w", domain.ErrCommitUnknown, err)
	}
	return nil
}

// begin abre una tx READ COMMITTED con el lock_timeout configurado.
func (r *TxRunner) begin(ctx context.Context) (pgx.Tx, error) {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return nil, classify("begin transaction", err)
	}
	if r.lockTimeout > 0 {
		if _, err := tx.Exec(ctx, `SELECT set_config('lock_timeout', $1, true)`, fmt.Sprintf("%dms", r.lockTimeout.Milliseconds())); err != nil {
			_ = tx.Rollback(ctx)
			return nil, classify("set lock_timeout", err)
		}
	}
	return tx, nil
}

// Ledger devuelve el libro sobre el pool; sus mutaciones sueltas (reposición, reserva) corren en una
// tx corta con el mismo lock_timeout que las ventas, así que nunca esperan un bloqueo sin límite.
func (r *TxRunner) Ledger() repository.ProductLedger {
	return boundedLedger{ProductLedgerRepo: NewProductLedgerRepository(r.pool), r: r}
}

type boundedLedger struct {
	*ProductLedgerRepo
	r *TxRunner
}

func (l boundedLedger) Restock(ctx context.Context, id string, qty int64) (int64, error) {
	return l.mutate(ctx, func(ledger *ProductLedgerRepo) (int64, error) { return ledger.Restock(ctx, id, qty) })
}

func (l boundedLedger) TryReserve(ctx context.Context, id string, qty int64) (int64, error) {
	return l.mutate(ctx, func(ledger *ProductLedgerRepo) (int64, error) { return ledger.TryReserve(ctx, id, qty) })
}

func (l boundedLedger) UpdatePrices(ctx context.Context, id string, purchase, selling decimal.Decimal) error {
	_, err := l.mutate(ctx, func(ledger *ProductLedgerRepo) (int64, error) {
		return 0, ledger.UpdatePrices(ctx, id, purchase, selling)
	})
	return err
}

func (l boundedLedger) mutate(ctx context.Context, fn func(ledger *ProductLedgerRepo) (int64, error)) (int64, error) {
	tx, err := l.r.begin(ctx)
	if err != nil {
		return 0, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	n, err := fn(NewProductLedgerRepository(tx))
	if err != nil {
		return 0, err
	}
	if err := tx.Commit(ctx); err != nil {
		return 0, classify("commit ledger", err)
	}
	return n, nil
}

// RunReadOnly ejecuta fn en una transacción REPEATABLE READ READ ONLY: todas las consultas
// ven la misma instantánea (una venta es visible completa o no lo es).
func (r *TxRunner) RunReadOnly(ctx context.Context, fn func(q Querier) error) error {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.RepeatableRead, AccessMode: pgx.ReadOnly})
	if err != nil {
		return fmt.Errorf("begin read-only transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit read-only transaction: %w", err)
	}
	return nil
}
