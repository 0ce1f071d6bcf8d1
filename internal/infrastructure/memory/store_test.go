package memory_test

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/ventas-api/internal/application/billing"
	"github.com/jhoicas/ventas-api/internal/application/dto"
	"github.com/jhoicas/ventas-api/internal/application/inventory"
	"github.com/jhoicas/ventas-api/internal/domain"
	"github.com/jhoicas/ventas-api/internal/domain/entity"
	"github.com/jhoicas/ventas-api/internal/domain/repository"
	"github.com/jhoicas/ventas-api/internal/infrastructure/memory"
)

const branch = "b1"

var scope = domain.Scope{UserID: "u1", BranchID: branch, Role: "user"}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func seed(t *testing.T, s *memory.Store, products ...*entity.Product) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, s.CreateCustomer(ctx, &entity.Customer{ID: "c1", BranchID: branch, Name: "Ana"}))
	for _, p := range products {
		require.NoError(t, s.Create(ctx, p))
	}
}

func newUseCase(s *memory.Store, attempts int) *billing.CreateSaleUseCase {
	return billing.NewCreateSaleUseCase(s, s.Sales(), s.Customers(), billing.SalesConfig{
		MaxAttempts:   attempts,
		RetryBackoff:  time.Millisecond,
		InvoicePrefix: "INV",
	}, zerolog.Nop())
}

func item(id, qty string) dto.SaleItemRequest {
	return dto.SaleItemRequest{ProductID: id, Quantity: dec(qty)}
}

func quantity(t *testing.T, s *memory.Store, id string) int64 {
	t.Helper()
	p, err := s.GetByID(context.Background(), id)
	require.NoError(t, err)
	require.NotNil(t, p)
	return p.Quantity
}

// ──────────────────────────────────────────────────────────────────────────────

func TestCreateSale_DescuentaExactoYNumera(t *testing.T) {
	s := memory.New(time.Second)
	seed(t, s,
		&entity.Product{ID: "p1", BranchID: branch, Name: "Café", Quantity: 10, SellingPrice: dec("12.50"), PurchasePrice: dec("8")},
		&entity.Product{ID: "p2", BranchID: branch, Name: "Azúcar", Quantity: 5, SellingPrice: dec("3"), PurchasePrice: dec("2")},
		&entity.Product{ID: "p3", BranchID: branch, Name: "Té", Quantity: 9, SellingPrice: dec("4"), PurchasePrice: dec("1")},
	)
	uc := newUseCase(s, 3)

	sale, err := uc.CreateSale(context.Background(), scope, dto.CreateSaleRequest{
		CustomerID: "c1",
		Items:      []dto.SaleItemRequest{item("p1", "3"), item("p2", "2")},
	})
	require.NoError(t, err)

	assert.Equal(t, "INV-000001", sale.InvoiceNumber)
	assert.True(t, sale.TotalAmount.Equal(dec("43.50")))
	assert.Equal(t, int64(7), quantity(t, s, "p1"))
	assert.Equal(t, int64(3), quantity(t, s, "p2"))
	assert.Equal(t, int64(9), quantity(t, s, "p3"), "un producto fuera del carrito no cambia")

	stored, err := s.Sales().GetByID(context.Background(), sale.ID)
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Len(t, stored.Items, 2)
}

func TestCreateSale_TodoONada(t *testing.T) {
	s := memory.New(time.Second)
	seed(t, s,
		&entity.Product{ID: "p1", BranchID: branch, Name: "Café", Quantity: 10, SellingPrice: dec("1")},
		&entity.Product{ID: "p2", BranchID: branch, Name: "Azúcar", Quantity: 1, SellingPrice: dec("1")},
	)
	uc := newUseCase(s, 3)

	_, err := uc.CreateSale(context.Background(), scope, dto.CreateSaleRequest{
		CustomerID: "c1",
		Items:      []dto.SaleItemRequest{item("p1", "4"), item("p2", "2")},
	})

	var stockErr *domain.InsufficientStockError
	require.ErrorAs(t, err, &stockErr)
	assert.Equal(t, "p2", stockErr.ProductID)
	assert.Equal(t, int64(10), quantity(t, s, "p1"))
	assert.Equal(t, int64(1), quantity(t, s, "p2"))

	list, err := s.Sales().List(context.Background(), "", 0)
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestCreateSale_ConcurrentesNumeracionConsecutiva(t *testing.T) {
	const n = 20
	s := memory.New(2 * time.Second)
	seed(t, s, &entity.Product{ID: "p1", BranchID: branch, Name: "Café", Quantity: 100, SellingPrice: dec("2")})
	uc := newUseCase(s, 5)

	var wg sync.WaitGroup
	numbers := make(chan string, n)
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			sale, err := uc.CreateSale(context.Background(), scope, dto.CreateSaleRequest{
				CustomerID: "c1",
				Items:      []dto.SaleItemRequest{item("p1", "1")},
			})
			if err != nil {
				errs <- err
				return
			}
			numbers <- sale.InvoiceNumber
		}()
	}
	wg.Wait()
	close(numbers)
	close(errs)

	for err := range errs {
		t.Fatalf("venta inesperadamente fallida: %v", err)
	}
	seen := make(map[string]bool, n)
	for num := range numbers {
		assert.False(t, seen[num], "número duplicado %s", num)
		seen[num] = true
	}
	for i := 1; i <= n; i++ {
		assert.True(t, seen[fmt.Sprintf("INV-%06d", i)], "falta INV-%06d", i)
	}
	assert.Equal(t, int64(100-n), quantity(t, s, "p1"))
}

func TestCreateSale_UltimaUnidadSoloUnGanador(t *testing.T) {
	s := memory.New(2 * time.Second)
	seed(t, s, &entity.Product{ID: "p1", BranchID: branch, Name: "Café", Quantity: 1, SellingPrice: dec("2")})
	uc := newUseCase(s, 3)

	var wg sync.WaitGroup
	results := make([]error, 2)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, results[i] = uc.CreateSale(context.Background(), scope, dto.CreateSaleRequest{
				CustomerID: "c1",
				Items:      []dto.SaleItemRequest{item("p1", "1")},
			})
		}(i)
	}
	wg.Wait()

	ok, insufficient := 0, 0
	for _, err := range results {
		switch {
		case err == nil:
			ok++
		case errors.Is(err, domain.ErrInsufficientStock):
			insufficient++
		default:
			t.Fatalf("error inesperado: %v", err)
		}
	}
	assert.Equal(t, 1, ok)
	assert.Equal(t, 1, insufficient)
	assert.Equal(t, int64(0), quantity(t, s, "p1"))
}

func TestCreateSale_MismaKeyConcurrenteUnaSolaVenta(t *testing.T) {
	s := memory.New(2 * time.Second)
	seed(t, s, &entity.Product{ID: "p1", BranchID: branch, Name: "Café", Quantity: 10, SellingPrice: dec("2")})
	uc := newUseCase(s, 5)

	var wg sync.WaitGroup
	ids := make([]string, 4)
	for i := range ids {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			sale, err := uc.CreateSale(context.Background(), scope, dto.CreateSaleRequest{
				CustomerID:     "c1",
				IdempotencyKey: "k-1",
				Items:          []dto.SaleItemRequest{item("p1", "2")},
			})
			if assert.NoError(t, err) {
				ids[i] = sale.ID
			}
		}(i)
	}
	wg.Wait()

	for _, id := range ids[1:] {
		assert.Equal(t, ids[0], id)
	}
	assert.Equal(t, int64(8), quantity(t, s, "p1"))
}

func TestRunSale_TimeoutDeCandadoEsConflicto(t *testing.T) {
	s := memory.New(20 * time.Millisecond)
	seed(t, s, &entity.Product{ID: "p1", BranchID: branch, Name: "Café", Quantity: 10})

	holding := make(chan struct{})
	done := make(chan struct{})
	go func() {
		_ = s.RunSale(context.Background(), func(l repository.ProductLedger, _ repository.SaleRepository, _ repository.InvoiceSequence) error {
			_, err := l.GetManyForUpdate(context.Background(), []string{"p1"})
			close(holding)
			<-done
			return err
		})
	}()
	<-holding

	err := s.RunSale(context.Background(), func(l repository.ProductLedger, _ repository.SaleRepository, _ repository.InvoiceSequence) error {
		_, err := l.GetManyForUpdate(context.Background(), []string{"p1"})
		return err
	})
	close(done)

	assert.ErrorIs(t, err, domain.ErrConcurrencyConflict)
}

func TestRunSale_RollbackDescartaEscrituras(t *testing.T) {
	s := memory.New(time.Second)
	seed(t, s, &entity.Product{ID: "p1", BranchID: branch, Name: "Café", Quantity: 10})
	boom := errors.New("boom")

	err := s.RunSale(context.Background(), func(l repository.ProductLedger, sales repository.SaleRepository, seq repository.InvoiceSequence) error {
		left, err := l.TryReserve(context.Background(), "p1", 4)
		require.NoError(t, err)
		assert.Equal(t, int64(6), left)
		_, err = seq.Next(context.Background())
		require.NoError(t, err)
		return boom
	})
	require.ErrorIs(t, err, boom)

	assert.Equal(t, int64(10), quantity(t, s, "p1"))

	// el contador no avanzó y su candado quedó libre
	err = s.RunSale(context.Background(), func(_ repository.ProductLedger, _ repository.SaleRepository, seq repository.InvoiceSequence) error {
		n, err := seq.Next(context.Background())
		assert.Equal(t, int64(1), n)
		return err
	})
	require.NoError(t, err)
}

func TestAnalytics_SinLecturasParciales(t *testing.T) {
	const initial = 200
	s := memory.New(2 * time.Second)
	seed(t, s, &entity.Product{ID: "p1", BranchID: branch, Name: "Café", Quantity: initial, SellingPrice: dec("1"), PurchasePrice: dec("1")})
	uc := newUseCase(s, 5)
	ctx := context.Background()

	stop := make(chan struct{})
	var writers sync.WaitGroup
	for w := 0; w < 4; w++ {
		writers.Add(1)
		go func() {
			defer writers.Done()
			for {
				select {
				case <-stop:
					return
				default:
				}
				_, err := uc.CreateSale(ctx, scope, dto.CreateSaleRequest{
					CustomerID: "c1",
					Items:      []dto.SaleItemRequest{item("p1", "1")},
				})
				if errors.Is(err, domain.ErrInsufficientStock) {
					return
				}
			}
		}()
	}

	for i := 0; i < 200; i++ {
		// precio 1: total vendido = unidades vendidas. Una venta visible sin su descuento
		// (o al revés) rompería alguna de las dos cotas.
		before, err := s.StockSummary(ctx, branch, false)
		require.NoError(t, err)
		m, err := s.DashboardMetrics(ctx, branch, time.Time{})
		require.NoError(t, err)
		after, err := s.StockSummary(ctx, branch, false)
		require.NoError(t, err)

		// una sola instantánea: lo vendido y lo que queda suman el inicial
		assert.Equal(t, int64(initial), m.UnitsOnHand+m.UnitsSold)

		sold := m.TotalSales.IntPart()
		assert.Equal(t, m.UnitsSold, sold)
		assert.GreaterOrEqual(t, before.Rows[0].TotalQuantity+sold, int64(initial))
		assert.LessOrEqual(t, after.Rows[0].TotalQuantity+sold, int64(initial))
		assert.Equal(t, m.TotalSales.IntPart(), m.TotalPurchase.IntPart())
	}
	close(stop)
	writers.Wait()
}

func TestRestock_FueraDeTx(t *testing.T) {
	s := memory.New(time.Second)
	seed(t, s, &entity.Product{ID: "p1", BranchID: branch, Name: "Café", Quantity: 1})

	n, err := s.Restock(context.Background(), "p1", 5)
	require.NoError(t, err)
	assert.Equal(t, int64(6), n)

	_, err = s.TryReserve(context.Background(), "p1", 7)
	assert.ErrorIs(t, err, domain.ErrInsufficientStock)

	_, err = s.Restock(context.Background(), "nope", 1)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestSale_PrecioCongeladoTrasCambioDePrecio(t *testing.T) {
	s := memory.New(time.Second)
	seed(t, s, &entity.Product{ID: "p1", BranchID: branch, Name: "Café", Quantity: 10, SellingPrice: dec("12.50"), PurchasePrice: dec("8")})
	uc := newUseCase(s, 3)
	ctx := context.Background()

	sale, err := uc.CreateSale(ctx, scope, dto.CreateSaleRequest{CustomerID: "c1", Items: []dto.SaleItemRequest{item("p1", "2")}})
	require.NoError(t, err)

	require.NoError(t, s.UpdatePrices(ctx, "p1", dec("9"), dec("20")))
	p, err := s.GetByID(ctx, "p1")
	require.NoError(t, err)
	assert.True(t, p.SellingPrice.Equal(dec("20")))
	assert.Equal(t, int64(8), p.Quantity, "cambiar precios no mueve existencias")

	stored, err := s.Sales().GetByID(ctx, sale.ID)
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.True(t, stored.TotalAmount.Equal(dec("25.00")), "obtenido %s", stored.TotalAmount)
	require.Len(t, stored.Items, 1)
	assert.True(t, stored.Items[0].UnitPrice.Equal(dec("12.50")))

	assert.ErrorIs(t, s.UpdatePrices(ctx, "nope", dec("1"), dec("1")), domain.ErrNotFound)
}

func TestLedger_DesbordeEsCantidadInvalida(t *testing.T) {
	s := memory.New(time.Second)
	seed(t, s, &entity.Product{ID: "p1", BranchID: branch, Name: "Café", Quantity: 10})
	ctx := context.Background()

	_, err := s.Restock(ctx, "p1", math.MaxInt64)
	assert.ErrorIs(t, err, domain.ErrInvalidQuantity)
	assert.NotErrorIs(t, err, domain.ErrInsufficientStock)
	assert.Equal(t, int64(10), quantity(t, s, "p1"))

	err = s.RunSale(ctx, func(l repository.ProductLedger, _ repository.SaleRepository, _ repository.InvoiceSequence) error {
		_, err := l.Restock(ctx, "p1", math.MaxInt64-5)
		return err
	})
	assert.ErrorIs(t, err, domain.ErrInvalidQuantity)
	assert.Equal(t, int64(10), quantity(t, s, "p1"))

	n, err := s.Restock(ctx, "p1", math.MaxInt64-10)
	require.NoError(t, err)
	assert.Equal(t, int64(math.MaxInt64), n)
}

func TestRestock_EsperaAcotadaTrasVentaBloqueada(t *testing.T) {
	s := memory.New(20 * time.Millisecond)
	seed(t, s, &entity.Product{ID: "p1", BranchID: branch, Name: "Café", Quantity: 10})
	uc := inventory.NewRestockUseCase(s, zerolog.Nop())

	holding := make(chan struct{})
	done := make(chan struct{})
	go func() {
		_ = s.RunSale(context.Background(), func(l repository.ProductLedger, _ repository.SaleRepository, _ repository.InvoiceSequence) error {
			_, err := l.GetManyForUpdate(context.Background(), []string{"p1"})
			close(holding)
			<-done
			return err
		})
	}()
	<-holding

	_, err := uc.Restock(context.Background(), scope, dto.RestockRequest{ProductID: "p1", Quantity: dec("3")})
	close(done)

	assert.ErrorIs(t, err, domain.ErrConcurrencyConflict)
	assert.NotErrorIs(t, err, domain.ErrPersistence)
}
