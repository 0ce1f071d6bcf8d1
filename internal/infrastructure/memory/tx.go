package memory

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/ventas-api/internal/domain"
	"github.com/jhoicas/ventas-api/internal/domain/entity"
	"github.com/jhoicas/ventas-api/internal/domain/repository"
)

// memTx transacción en memoria: retiene candados de fila y del contador, y acumula las escrituras
// hasta el commit, donde se aplican todas bajo el lock de escritura del store.
type memTx struct {
	s           *Store
	ctx         context.Context
	held        map[string]chan struct{}
	order       []string
	delta       map[string]int64
	sale        *entity.Sale
	seq         int64
	counterMine bool
}

// RunSale ejecuta fn en una transacción en memoria. Si fn falla no queda ningún efecto.
func (s *Store) RunSale(ctx context.Context, fn func(
	ledger repository.ProductLedger,
	sales repository.SaleRepository,
	seq repository.InvoiceSequence,
) error) error {
	tx := &memTx{
		s:     s,
		ctx:   ctx,
		held:  make(map[string]chan struct{}),
		delta: make(map[string]int64),
	}
	defer tx.releaseAll()

	if err := fn(txLedger{tx}, txSales{tx}, txSeq{tx}); err != nil {
		return err
	}
	return tx.commit()
}

func (tx *memTx) lock(id string) error {
	if _, ok := tx.held[id]; ok {
		return nil
	}
	l := tx.s.rowLock(id)
	if err := tx.s.acquire(tx.ctx, l, id); err != nil {
		return err
	}
	tx.held[id] = l
	tx.order = append(tx.order, id)
	return nil
}

func (tx *memTx) releaseAll() {
	if tx.counterMine {
		release(tx.s.counterLock)
		tx.counterMine = false
	}
	for i := len(tx.order) - 1; i >= 0; i-- {
		release(tx.held[tx.order[i]])
	}
	tx.held = nil
	tx.order = nil
}

// view producto con las escrituras pendientes de esta tx aplicadas.
func (tx *memTx) view(id string) (*entity.Product, bool) {
	tx.s.mu.RLock()
	defer tx.s.mu.RUnlock()
	p, ok := tx.s.products[id]
	if !ok {
		return nil, false
	}
	cp := *p
	cp.Quantity += tx.delta[id]
	return &cp, true
}

func (tx *memTx) commit() error {
	s := tx.s
	s.mu.Lock()
	defer s.mu.Unlock()

	if tx.sale != nil {
		if _, ok := s.salesByKey[tx.sale.IdempotencyKey]; ok {
			return repository.ErrIdempotencyKeyTaken
		}
	}
	now := time.Now().UTC()
	for id, d := range tx.delta {
		p := s.products[id]
		if p.Quantity+d < 0 {
			// inalcanzable mientras se respeten los candados de fila
			return &domain.PersistenceError{Op: "commit", Err: fmt.Errorf("existencias negativas para %s", id)}
		}
	}
	for id, d := range tx.delta {
		p := s.products[id]
		p.Quantity += d
		p.UpdatedAt = now
	}
	if tx.counterMine {
		s.counter = tx.seq
	}
	if tx.sale != nil {
		if err := s.insertSaleLocked(tx.sale); err != nil {
			return err
		}
	}
	return nil
}

// ── ProductLedger dentro de la tx ─────────────────────────────────────────────

type txLedger struct{ tx *memTx }

func (l txLedger) Create(ctx context.Context, p *entity.Product) error {
	return l.tx.s.Create(ctx, p)
}

func (l txLedger) GetByID(_ context.Context, id string) (*entity.Product, error) {
	p, ok := l.tx.view(id)
	if !ok {
		return nil, nil
	}
	return p, nil
}

func (l txLedger) List(ctx context.Context, branchID string) ([]*entity.Product, error) {
	list, err := l.tx.s.List(ctx, branchID)
	if err != nil {
		return nil, err
	}
	for _, p := range list {
		p.Quantity += l.tx.delta[p.ID]
	}
	return list, nil
}

// GetManyForUpdate toma los candados de fila en orden ascendente de id.
func (l txLedger) GetManyForUpdate(_ context.Context, ids []string) ([]*entity.Product, error) {
	out := make([]*entity.Product, 0, len(ids))
	for _, id := range sortedUnique(ids) {
		if !l.tx.s.exists(id) {
			continue
		}
		if err := l.tx.lock(id); err != nil {
			return nil, err
		}
		if p, ok := l.tx.view(id); ok {
			out = append(out, p)
		}
	}
	return out, nil
}

func (l txLedger) TryReserve(_ context.Context, id string, qty int64) (int64, error) {
	return l.stage(id, -qty)
}

func (l txLedger) Restock(_ context.Context, id string, qty int64) (int64, error) {
	return l.stage(id, qty)
}

// UpdatePrices no forma parte de una venta; los precios se fijan fuera de la tx.
func (l txLedger) UpdatePrices(context.Context, string, decimal.Decimal, decimal.Decimal) error {
	return fmt.Errorf("memory: actualizar precios dentro de una venta no está soportado")
}

func (l txLedger) stage(id string, delta int64) (int64, error) {
	if !l.tx.s.exists(id) {
		return 0, domain.ErrNotFound
	}
	if err := l.tx.lock(id); err != nil {
		return 0, err
	}
	p, _ := l.tx.view(id)
	if err := checkDelta(id, p.Quantity, delta); err != nil {
		return 0, err
	}
	l.tx.delta[id] += delta
	return p.Quantity + delta, nil
}

// ── SaleRepository dentro de la tx ────────────────────────────────────────────

type txSales struct{ tx *memTx }

func (r txSales) Create(_ context.Context, sale *entity.Sale) error {
	if r.tx.sale != nil {
		return fmt.Errorf("memory: una sola venta por transacción")
	}
	if existing, _ := r.tx.s.Sales().GetByIdempotencyKey(r.tx.ctx, sale.IdempotencyKey); existing != nil {
		return repository.ErrIdempotencyKeyTaken
	}
	r.tx.sale = cloneSale(sale)
	return nil
}

func (r txSales) GetByID(ctx context.Context, id string) (*entity.Sale, error) {
	if r.tx.sale != nil && r.tx.sale.ID == id {
		return cloneSale(r.tx.sale), nil
	}
	return r.tx.s.Sales().GetByID(ctx, id)
}

func (r txSales) GetByIdempotencyKey(ctx context.Context, key string) (*entity.Sale, error) {
	if r.tx.sale != nil && r.tx.sale.IdempotencyKey == key {
		return cloneSale(r.tx.sale), nil
	}
	return r.tx.s.Sales().GetByIdempotencyKey(ctx, key)
}

func (r txSales) List(ctx context.Context, branchID string, limit int) ([]*entity.Sale, error) {
	return r.tx.s.Sales().List(ctx, branchID, limit)
}

// ── InvoiceSequence dentro de la tx ───────────────────────────────────────────

type txSeq struct{ tx *memTx }

// Next toma el candado del contador (se libera al terminar la tx) y reserva el siguiente valor.
func (q txSeq) Next(_ context.Context) (int64, error) {
	tx := q.tx
	if !tx.counterMine {
		if err := tx.s.acquire(tx.ctx, tx.s.counterLock, "contador de facturas"); err != nil {
			return 0, err
		}
		tx.counterMine = true
		tx.s.mu.RLock()
		tx.seq = tx.s.counter
		tx.s.mu.RUnlock()
	}
	tx.seq++
	return tx.seq, nil
}
