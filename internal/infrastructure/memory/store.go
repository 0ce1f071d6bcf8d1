// Package memory implementa todos los puertos de persistencia en memoria, con la misma semántica
// transaccional que PostgreSQL. Pensado para desarrollo y pruebas (STORE_DRIVER=memory).
package memory

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/ventas-api/internal/application/billing"
	"github.com/jhoicas/ventas-api/internal/domain"
	"github.com/jhoicas/ventas-api/internal/domain/analytics"
	"github.com/jhoicas/ventas-api/internal/domain/entity"
	"github.com/jhoicas/ventas-api/internal/domain/repository"
)

var (
	_ repository.ProductLedger       = (*Store)(nil)
	_ repository.SaleRepository      = saleView{}
	_ repository.CustomerRepository  = customerView{}
	_ repository.AnalyticsRepository = (*Store)(nil)
	_ billing.SaleTxRunner           = (*Store)(nil)
)

const defaultLockTimeout = 2 * time.Second

// Store estado completo en memoria.
//
// Concurrencia:
//   - mu protege los mapas; los commits toman el lock de escritura y los lectores el de lectura,
//     así una venta (descuento de existencias + registro) es visible completa o no lo es.
//   - cada producto tiene un candado de fila (canal de capacidad 1) que se toma en orden de id
//     y se mantiene hasta el fin de la transacción.
//   - el contador de facturas tiene su propio candado, tomado después de los de fila.
type Store struct {
	mu         sync.RWMutex
	products   map[string]*entity.Product
	customers  map[string]*entity.Customer
	sales      []*entity.Sale
	salesByID  map[string]*entity.Sale
	salesByKey map[string]*entity.Sale
	counter    int64

	locksMu     sync.Mutex
	rowLocks    map[string]chan struct{}
	counterLock chan struct{}
	lockTimeout time.Duration
}

// New crea un store vacío. lockTimeout <= 0 usa 2s.
func New(lockTimeout time.Duration) *Store {
	if lockTimeout <= 0 {
		lockTimeout = defaultLockTimeout
	}
	return &Store{
		products:    make(map[string]*entity.Product),
		customers:   make(map[string]*entity.Customer),
		salesByID:   make(map[string]*entity.Sale),
		salesByKey:  make(map[string]*entity.Sale),
		rowLocks:    make(map[string]chan struct{}),
		counterLock: make(chan struct{}, 1),
		lockTimeout: lockTimeout,
	}
}

// ── Candados ──────────────────────────────────────────────────────────────────

func (s *Store) rowLock(id string) chan struct{} {
	s.locksMu.Lock()
	defer s.locksMu.Unlock()
	l, ok := s.rowLocks[id]
	if !ok {
		l = make(chan struct{}, 1)
		s.rowLocks[id] = l
	}
	return l
}

// acquire espera el candado como máximo lockTimeout; al vencer reporta conflicto de concurrencia.
func (s *Store) acquire(ctx context.Context, l chan struct{}, what string) error {
	select {
	case l <- struct{}{}:
		return nil
	default:
	}
	timer := time.NewTimer(s.lockTimeout)
	defer timer.Stop()
	select {
	case l <- struct{}{}:
		return nil
	case <-timer.C:
		return fmt.Errorf("%w: tiempo de espera agotado bloqueando %s", domain.ErrConcurrencyConflict, what)
	case <-ctx.Done():
		return fmt.Errorf("%w: %w", domain.ErrConcurrencyConflict, ctx.Err())
	}
}

func release(l chan struct{}) { <-l }

// ── ProductLedger (fuera de transacción) ──────────────────────────────────────

// Create registra un producto nuevo.
func (s *Store) Create(_ context.Context, p *entity.Product) error {
	if p == nil || p.ID == "" {
		return domain.ErrInvalidInput
	}
	if p.Quantity < 0 {
		return fmt.Errorf("%w: cantidad negativa", domain.ErrInvalidInput)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.products[p.ID]; ok {
		return fmt.Errorf("%w: producto %s ya existe", domain.ErrInvalidInput, p.ID)
	}
	cp := *p
	s.products[p.ID] = &cp
	return nil
}

// GetByID devuelve una copia del producto. nil, nil si no existe.
func (s *Store) GetByID(_ context.Context, id string) (*entity.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.products[id]
	if !ok {
		return nil, nil
	}
	cp := *p
	return &cp, nil
}

// List productos de la sucursal ("" = todas) ordenados por nombre e id.
func (s *Store) List(_ context.Context, branchID string) ([]*entity.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.productsLocked(branchID), nil
}

func (s *Store) productsLocked(branchID string) []*entity.Product {
	out := make([]*entity.Product, 0, len(s.products))
	for _, p := range s.products {
		if branchID != "" && p.BranchID != branchID {
			continue
		}
		cp := *p
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// GetManyForUpdate fuera de una transacción no retiene bloqueos; devuelve el estado actual en orden de id.
func (s *Store) GetManyForUpdate(_ context.Context, ids []string) ([]*entity.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*entity.Product, 0, len(ids))
	for _, id := range sortedUnique(ids) {
		if p, ok := s.products[id]; ok {
			cp := *p
			out = append(out, &cp)
		}
	}
	return out, nil
}

// TryReserve descuenta qty de forma atómica bajo el candado de fila.
func (s *Store) TryReserve(ctx context.Context, id string, qty int64) (int64, error) {
	return s.mutateQuantity(ctx, id, -qty)
}

// Restock suma qty de forma atómica bajo el candado de fila.
func (s *Store) Restock(ctx context.Context, id string, qty int64) (int64, error) {
	return s.mutateQuantity(ctx, id, qty)
}

func (s *Store) mutateQuantity(ctx context.Context, id string, delta int64) (int64, error) {
	if !s.exists(id) {
		return 0, domain.ErrNotFound
	}
	l := s.rowLock(id)
	if err := s.acquire(ctx, l, id); err != nil {
		return 0, err
	}
	defer release(l)

	s.mu.Lock()
	defer s.mu.Unlock()
	p := s.products[id]
	if err := checkDelta(id, p.Quantity, delta); err != nil {
		return 0, err
	}
	p.Quantity += delta
	p.UpdatedAt = time.Now().UTC()
	return p.Quantity, nil
}

// UpdatePrices fija los precios vigentes bajo el candado de fila. Las ventas guardan copia de sus líneas.
func (s *Store) UpdatePrices(ctx context.Context, id string, purchase, selling decimal.Decimal) error {
	if !s.exists(id) {
		return domain.ErrNotFound
	}
	l := s.rowLock(id)
	if err := s.acquire(ctx, l, id); err != nil {
		return err
	}
	defer release(l)

	s.mu.Lock()
	defer s.mu.Unlock()
	p := s.products[id]
	p.PurchasePrice = purchase
	p.SellingPrice = selling
	p.UpdatedAt = time.Now().UTC()
	return nil
}

// checkDelta rechaza un movimiento que dejaría el saldo negativo o fuera de int64.
func checkDelta(id string, current, delta int64) error {
	if delta > 0 && current > math.MaxInt64-delta {
		return &domain.ValidationError{Kind: domain.ErrInvalidQuantity, Line: -1, ProductID: id, Quantity: strconv.FormatInt(delta, 10)}
	}
	if current+delta < 0 {
		return &domain.InsufficientStockError{ProductID: id, Available: current, Requested: -delta}
	}
	return nil
}

func (s *Store) exists(id string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.products[id]
	return ok
}

// ── CustomerRepository ────────────────────────────────────────────────────────

// CreateCustomer registra un cliente en el directorio.
func (s *Store) CreateCustomer(_ context.Context, c *entity.Customer) error {
	if c == nil || c.ID == "" {
		return domain.ErrInvalidInput
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.customers[c.ID]; ok {
		return fmt.Errorf("%w: cliente %s ya existe", domain.ErrInvalidInput, c.ID)
	}
	cp := *c
	s.customers[c.ID] = &cp
	return nil
}

// Customers devuelve el store visto como CustomerRepository.
func (s *Store) Customers() repository.CustomerRepository { return customerView{s} }

type customerView struct{ s *Store }

func (v customerView) Create(ctx context.Context, c *entity.Customer) error {
	return v.s.CreateCustomer(ctx, c)
}

func (v customerView) GetByID(_ context.Context, id string) (*entity.Customer, error) {
	v.s.mu.RLock()
	defer v.s.mu.RUnlock()
	c, ok := v.s.customers[id]
	if !ok {
		return nil, nil
	}
	cp := *c
	return &cp, nil
}

// ── SaleRepository (lecturas) ─────────────────────────────────────────────────

// Sales devuelve el store visto como SaleRepository.
func (s *Store) Sales() repository.SaleRepository { return saleView{s} }

type saleView struct{ s *Store }

// Create fuera de una transacción solo registra la venta; no toca existencias.
func (v saleView) Create(_ context.Context, sale *entity.Sale) error {
	v.s.mu.Lock()
	defer v.s.mu.Unlock()
	return v.s.insertSaleLocked(sale)
}

func (v saleView) GetByID(_ context.Context, id string) (*entity.Sale, error) {
	v.s.mu.RLock()
	defer v.s.mu.RUnlock()
	if sale, ok := v.s.salesByID[id]; ok {
		return cloneSale(sale), nil
	}
	return nil, nil
}

func (v saleView) GetByIdempotencyKey(_ context.Context, key string) (*entity.Sale, error) {
	v.s.mu.RLock()
	defer v.s.mu.RUnlock()
	if sale, ok := v.s.salesByKey[key]; ok {
		return cloneSale(sale), nil
	}
	return nil, nil
}

func (v saleView) List(_ context.Context, branchID string, limit int) ([]*entity.Sale, error) {
	v.s.mu.RLock()
	defer v.s.mu.RUnlock()
	out := make([]*entity.Sale, 0)
	// sales está en orden de commit; se recorre de atrás hacia adelante
	for i := len(v.s.sales) - 1; i >= 0 && (limit <= 0 || len(out) < limit); i-- {
		sale := v.s.sales[i]
		if branchID != "" && sale.BranchID != branchID {
			continue
		}
		out = append(out, cloneSale(sale))
	}
	return out, nil
}

func (s *Store) insertSaleLocked(sale *entity.Sale) error {
	if _, ok := s.salesByKey[sale.IdempotencyKey]; ok {
		return repository.ErrIdempotencyKeyTaken
	}
	cp := cloneSale(sale)
	s.sales = append(s.sales, cp)
	s.salesByID[cp.ID] = cp
	s.salesByKey[cp.IdempotencyKey] = cp
	return nil
}

func cloneSale(sale *entity.Sale) *entity.Sale {
	cp := *sale
	cp.Items = append([]entity.SaleLineItem(nil), sale.Items...)
	return &cp
}

// ── AnalyticsRepository ───────────────────────────────────────────────────────

// StockSummary se calcula bajo el lock de lectura: una sola instantánea del libro.
func (s *Store) StockSummary(_ context.Context, branchID string, inStockOnly bool) (*analytics.StockSummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return analytics.SummarizeStock(s.productsLocked(branchID), inStockOnly), nil
}

// DashboardMetrics pliega libro e historial dentro de la misma instantánea.
func (s *Store) DashboardMetrics(_ context.Context, branchID string, asOf time.Time) (*analytics.DashboardMetrics, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sales := make([]*entity.Sale, 0, len(s.sales))
	for _, sale := range s.sales {
		if branchID == "" || sale.BranchID == branchID {
			sales = append(sales, sale)
		}
	}
	return analytics.Dashboard(sales, s.productsLocked(branchID), asOf), nil
}

func sortedUnique(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}
