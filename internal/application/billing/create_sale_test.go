package billing_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/ventas-api/internal/application/billing"
	billingmocks "github.com/jhoicas/ventas-api/internal/application/billing/mocks"
	"github.com/jhoicas/ventas-api/internal/application/dto"
	"github.com/jhoicas/ventas-api/internal/domain"
	"github.com/jhoicas/ventas-api/internal/domain/entity"
	"github.com/jhoicas/ventas-api/internal/domain/repository"
	"github.com/jhoicas/ventas-api/internal/domain/repository/mocks"
)

// ──────────────────────────────────────────────────────────────────────────────
// Helpers de test
// ──────────────────────────────────────────────────────────────────────────────

const (
	testBranch   = "b1"
	testCustomer = "c1"
	testUser     = "u1"
)

var (
	testScope = domain.Scope{UserID: testUser, BranchID: testBranch, Role: "user"}
	fixedNow  = time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

type fixture struct {
	runner    *billingmocks.MockSaleTxRunner
	ledger    *mocks.MockProductLedger
	txSales   *mocks.MockSaleRepository
	seq       *mocks.MockInvoiceSequence
	sales     *mocks.MockSaleRepository
	customers *mocks.MockCustomerRepository
	uc        *billing.CreateSaleUseCase
}

func newFixture(t *testing.T, maxAttempts int) *fixture {
	t.Helper()
	f := &fixture{
		ledger:    new(mocks.MockProductLedger),
		txSales:   new(mocks.MockSaleRepository),
		seq:       new(mocks.MockInvoiceSequence),
		sales:     new(mocks.MockSaleRepository),
		customers: new(mocks.MockCustomerRepository),
	}
	f.runner = &billingmocks.MockSaleTxRunner{Ledger: f.ledger, Sales: f.txSales, Seq: f.seq}
	f.uc = billing.NewCreateSaleUseCase(f.runner, f.sales, f.customers, billing.SalesConfig{
		MaxAttempts:   maxAttempts,
		RetryBackoff:  time.Millisecond,
		InvoicePrefix: "INV",
	}, zerolog.Nop()).WithClock(func() time.Time { return fixedNow })

	f.customers.On("GetByID", mock.Anything, testCustomer).
		Return(&entity.Customer{ID: testCustomer, BranchID: testBranch, Name: "Ana"}, nil).Maybe()
	return f
}

func products() []*entity.Product {
	return []*entity.Product{
		{ID: "p1", BranchID: testBranch, Name: "Café", Quantity: 10, SellingPrice: dec("12.50"), PurchasePrice: dec("8")},
		{ID: "p2", BranchID: testBranch, Name: "Azúcar", Quantity: 1, SellingPrice: dec("3.10"), PurchasePrice: dec("2")},
	}
}

func request(key string, items ...dto.SaleItemRequest) dto.CreateSaleRequest {
	return dto.CreateSaleRequest{CustomerID: testCustomer, IdempotencyKey: key, Items: items}
}

func item(id, qty string) dto.SaleItemRequest {
	return dto.SaleItemRequest{ProductID: id, Quantity: dec(qty)}
}

// expectCommitPath configura un intento completo que llega hasta Create.
func (f *fixture) expectCommitPath(seq int64) {
	f.ledger.On("GetManyForUpdate", mock.Anything, []string{"p1", "p2"}).Return(products(), nil).Once()
	f.ledger.On("TryReserve", mock.Anything, "p1", int64(2)).Return(int64(8), nil).Once()
	f.ledger.On("TryReserve", mock.Anything, "p2", int64(1)).Return(int64(0), nil).Once()
	f.seq.On("Next", mock.Anything).Return(seq, nil).Once()
	f.txSales.On("Create", mock.Anything, mock.AnythingOfType("*entity.Sale")).Return(nil).Once()
}

// ──────────────────────────────────────────────────────────────────────────────
// CreateSale
// ──────────────────────────────────────────────────────────────────────────────

func TestCreateSale_Exito(t *testing.T) {
	f := newFixture(t, 3)
	f.sales.On("GetByIdempotencyKey", mock.Anything, "k1").Return(nil, nil).Once()
	f.runner.On("RunSale", mock.Anything).Return(nil, nil).Once()
	f.expectCommitPath(42)

	sale, err := f.uc.CreateSale(context.Background(), testScope, request("k1", item("p2", "1"), item("p1", "2")))

	require.NoError(t, err)
	assert.Equal(t, "INV-000042", sale.InvoiceNumber)
	assert.Equal(t, int64(42), sale.InvoiceSeq)
	assert.Equal(t, testBranch, sale.BranchID)
	assert.Equal(t, testUser, sale.CreatedBy)
	assert.Equal(t, "k1", sale.IdempotencyKey)
	assert.True(t, sale.TotalAmount.Equal(dec("28.10")), "1×3.10 + 2×12.50, obtenido %s", sale.TotalAmount)
	require.Len(t, sale.Items, 2)
	assert.Equal(t, "Azúcar", sale.Items[0].ProductName, "se respeta el orden del carrito")
	assert.Equal(t, sale.ID, sale.Items[1].SaleID)
	assert.Equal(t, fixedNow, sale.CreatedAt)
	f.ledger.AssertExpectations(t)
	f.txSales.AssertExpectations(t)
}

func TestCreateSale_StockInsuficienteNoReservaNiReintenta(t *testing.T) {
	f := newFixture(t, 3)
	f.sales.On("GetByIdempotencyKey", mock.Anything, "k1").Return(nil, nil).Once()
	f.runner.On("RunSale", mock.Anything).Return(nil, nil).Once()
	f.ledger.On("GetManyForUpdate", mock.Anything, []string{"p1", "p2"}).Return(products(), nil).Once()

	_, err := f.uc.CreateSale(context.Background(), testScope, request("k1", item("p1", "1"), item("p2", "2")))

	var ise *domain.InsufficientStockError
	require.True(t, errors.As(err, &ise), "se esperaba InsufficientStock, obtenido %v", err)
	assert.Equal(t, "p2", ise.ProductID)
	assert.Equal(t, int64(1), ise.Available)
	assert.Equal(t, int64(2), ise.Requested)
	f.ledger.AssertNotCalled(t, "TryReserve", mock.Anything, mock.Anything, mock.Anything)
	f.runner.AssertNumberOfCalls(t, "RunSale", 1)
}

func TestCreateSale_ProductoDeOtraSucursalEsDesconocido(t *testing.T) {
	f := newFixture(t, 3)
	f.sales.On("GetByIdempotencyKey", mock.Anything, "k1").Return(nil, nil).Once()
	f.runner.On("RunSale", mock.Anything).Return(nil, nil).Once()
	foreign := []*entity.Product{{ID: "p9", BranchID: "otra", Name: "X", Quantity: 5, SellingPrice: dec("1")}}
	f.ledger.On("GetManyForUpdate", mock.Anything, []string{"p9"}).Return(foreign, nil).Once()

	_, err := f.uc.CreateSale(context.Background(), testScope, request("k1", item("p9", "1")))

	var ve *domain.ValidationError
	require.True(t, errors.As(err, &ve))
	assert.Equal(t, domain.ErrUnknownProduct, ve.Kind)
	assert.Equal(t, "p9", ve.ProductID)
}

func TestCreateSale_ValidacionesAntesDeLaTransaccion(t *testing.T) {
	f := newFixture(t, 3)
	f.customers.On("GetByID", mock.Anything, "ghost").Return(nil, nil)

	_, err := f.uc.CreateSale(context.Background(), testScope, dto.CreateSaleRequest{CustomerID: testCustomer})
	assert.ErrorIs(t, err, domain.ErrEmptyCart)

	_, err = f.uc.CreateSale(context.Background(), testScope, request("", item("p1", "0.5")))
	assert.ErrorIs(t, err, domain.ErrInvalidQuantity)

	_, err = f.uc.CreateSale(context.Background(), testScope, dto.CreateSaleRequest{CustomerID: "ghost", Items: []dto.SaleItemRequest{item("p1", "1")}})
	assert.ErrorIs(t, err, domain.ErrUnknownCustomer)

	_, err = f.uc.CreateSale(context.Background(), domain.Scope{UserID: "u", Role: "user"}, request("", item("p1", "1")))
	assert.ErrorIs(t, err, domain.ErrBranchRequired)

	f.runner.AssertNotCalled(t, "RunSale", mock.Anything)
}

func TestCreateSale_ReintentaConflictoYConfirma(t *testing.T) {
	f := newFixture(t, 3)
	f.sales.On("GetByIdempotencyKey", mock.Anything, "k1").Return(nil, nil).Once()
	f.runner.On("RunSale", mock.Anything).Return(domain.ErrConcurrencyConflict, nil).Once()
	f.runner.On("RunSale", mock.Anything).Return(nil, nil).Once()
	f.expectCommitPath(1)

	sale, err := f.uc.CreateSale(context.Background(), testScope, request("k1", item("p1", "2"), item("p2", "1")))

	require.NoError(t, err)
	assert.Equal(t, "INV-000001", sale.InvoiceNumber)
	f.runner.AssertNumberOfCalls(t, "RunSale", 2)
}

func TestCreateSale_AgotaIntentos(t *testing.T) {
	f := newFixture(t, 2)
	f.runner.On("RunSale", mock.Anything).Return(domain.ErrConcurrencyConflict, nil)

	_, err := f.uc.CreateSale(context.Background(), testScope, request("", item("p1", "1")))

	assert.ErrorIs(t, err, domain.ErrConcurrencyConflict)
	f.runner.AssertNumberOfCalls(t, "RunSale", 2)
}

func TestCreateSale_CommitDesconocidoConVentaConfirmada(t *testing.T) {
	f := newFixture(t, 3)
	committed := &entity.Sale{ID: "s1", BranchID: testBranch, IdempotencyKey: "k1", InvoiceNumber: "INV-000005"}
	f.sales.On("GetByIdempotencyKey", mock.Anything, "k1").Return(nil, nil).Once()
	f.runner.On("RunSale", mock.Anything).Return(nil, domain.ErrCommitUnknown).Once()
	f.expectCommitPath(5)
	f.sales.On("GetByIdempotencyKey", mock.Anything, "k1").Return(committed, nil).Once()

	sale, err := f.uc.CreateSale(context.Background(), testScope, request("k1", item("p1", "2"), item("p2", "1")))

	require.NoError(t, err)
	assert.Same(t, committed, sale)
	f.runner.AssertNumberOfCalls(t, "RunSale", 1)
}

func TestCreateSale_CommitDesconocidoSinVentaReintenta(t *testing.T) {
	f := newFixture(t, 3)
	f.sales.On("GetByIdempotencyKey", mock.Anything, "k1").Return(nil, nil)
	f.runner.On("RunSale", mock.Anything).Return(nil, domain.ErrCommitUnknown).Once()
	f.runner.On("RunSale", mock.Anything).Return(nil, nil).Once()
	f.expectCommitPath(5)
	f.expectCommitPath(6)

	sale, err := f.uc.CreateSale(context.Background(), testScope, request("k1", item("p1", "2"), item("p2", "1")))

	require.NoError(t, err)
	assert.Equal(t, "INV-000006", sale.InvoiceNumber)
	f.runner.AssertNumberOfCalls(t, "RunSale", 2)
}

func TestCreateSale_CommitDesconocidoYFallaLaConsulta(t *testing.T) {
	f := newFixture(t, 3)
	f.sales.On("GetByIdempotencyKey", mock.Anything, "k1").Return(nil, nil).Once()
	f.runner.On("RunSale", mock.Anything).Return(nil, domain.ErrCommitUnknown).Once()
	f.expectCommitPath(5)
	f.sales.On("GetByIdempotencyKey", mock.Anything, "k1").Return(nil, errors.New("conexión perdida")).Once()

	_, err := f.uc.CreateSale(context.Background(), testScope, request("k1", item("p1", "2"), item("p2", "1")))

	assert.ErrorIs(t, err, domain.ErrPersistence)
	f.runner.AssertNumberOfCalls(t, "RunSale", 1)
}

func TestCreateSale_LlaveRepetidaDevuelveOriginal(t *testing.T) {
	f := newFixture(t, 3)
	committed := &entity.Sale{ID: "s1", BranchID: testBranch, IdempotencyKey: "k1"}
	f.sales.On("GetByIdempotencyKey", mock.Anything, "k1").Return(committed, nil).Once()

	sale, err := f.uc.CreateSale(context.Background(), testScope, request("k1", item("p1", "1")))

	require.NoError(t, err)
	assert.Same(t, committed, sale)
	f.runner.AssertNotCalled(t, "RunSale", mock.Anything)
}

func TestCreateSale_LlaveTomadaPorPeticionConcurrente(t *testing.T) {
	f := newFixture(t, 3)
	committed := &entity.Sale{ID: "s1", BranchID: testBranch, IdempotencyKey: "k1"}
	f.sales.On("GetByIdempotencyKey", mock.Anything, "k1").Return(nil, nil).Once()
	f.runner.On("RunSale", mock.Anything).Return(nil, nil).Once()
	f.ledger.On("GetManyForUpdate", mock.Anything, []string{"p1"}).Return(products(), nil).Once()
	f.ledger.On("TryReserve", mock.Anything, "p1", int64(1)).Return(int64(9), nil).Once()
	f.seq.On("Next", mock.Anything).Return(int64(3), nil).Once()
	f.txSales.On("Create", mock.Anything, mock.Anything).Return(repository.ErrIdempotencyKeyTaken).Once()
	f.sales.On("GetByIdempotencyKey", mock.Anything, "k1").Return(committed, nil).Once()

	sale, err := f.uc.CreateSale(context.Background(), testScope, request("k1", item("p1", "1")))

	require.NoError(t, err)
	assert.Same(t, committed, sale)
}

func TestCreateSale_ErrorDeInfraestructuraNoSeReintenta(t *testing.T) {
	f := newFixture(t, 3)
	f.runner.On("RunSale", mock.Anything).Return(errors.New("disco lleno"), nil).Once()

	_, err := f.uc.CreateSale(context.Background(), testScope, request("", item("p1", "1")))

	assert.ErrorIs(t, err, domain.ErrPersistence)
	f.runner.AssertNumberOfCalls(t, "RunSale", 1)
}

func TestCreateSale_AdminEligeSucursal(t *testing.T) {
	f := newFixture(t, 1)
	f.customers.On("GetByID", mock.Anything, "c2").Return(&entity.Customer{ID: "c2", BranchID: "b2"}, nil)
	f.runner.On("RunSale", mock.Anything).Return(nil, nil).Once()
	f.ledger.On("GetManyForUpdate", mock.Anything, []string{"p7"}).
		Return([]*entity.Product{{ID: "p7", BranchID: "b2", Name: "Té", Quantity: 3, SellingPrice: dec("4")}}, nil).Once()
	f.ledger.On("TryReserve", mock.Anything, "p7", int64(3)).Return(int64(0), nil).Once()
	f.seq.On("Next", mock.Anything).Return(int64(9), nil).Once()
	f.txSales.On("Create", mock.Anything, mock.Anything).Return(nil).Once()

	admin := domain.Scope{UserID: "root", Role: domain.RoleAdmin}
	sale, err := f.uc.CreateSale(context.Background(), admin, dto.CreateSaleRequest{
		CustomerID: "c2", BranchID: "b2", Items: []dto.SaleItemRequest{item("p7", "3")},
	})

	require.NoError(t, err)
	assert.Equal(t, "b2", sale.BranchID)
	assert.NotEmpty(t, sale.IdempotencyKey, "se genera una llave si el cliente no la envía")
}

// ──────────────────────────────────────────────────────────────────────────────
// GetSale / ListSales
// ──────────────────────────────────────────────────────────────────────────────

func TestGetSale_AlcancePorSucursal(t *testing.T) {
	f := newFixture(t, 1)
	f.sales.On("GetByID", mock.Anything, "s1").Return(&entity.Sale{ID: "s1", BranchID: "b2"}, nil)
	f.sales.On("GetByID", mock.Anything, "nope").Return(nil, nil)

	_, err := f.uc.GetSale(context.Background(), testScope, "s1")
	assert.ErrorIs(t, err, domain.ErrForbidden)

	s, err := f.uc.GetSale(context.Background(), domain.Scope{Role: domain.RoleAdmin}, "s1")
	require.NoError(t, err)
	assert.Equal(t, "s1", s.ID)

	_, err = f.uc.GetSale(context.Background(), testScope, "nope")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestListSales_UsuarioFijadoASuSucursal(t *testing.T) {
	f := newFixture(t, 1)
	f.sales.On("List", mock.Anything, testBranch, 100).Return([]*entity.Sale{}, nil).Once()

	_, limit, err := f.uc.ListSales(context.Background(), testScope, "b2", 0)

	require.NoError(t, err)
	assert.Equal(t, 100, limit)
	f.sales.AssertExpectations(t)
}

func TestListSales_LimiteEfectivo(t *testing.T) {
	f := newFixture(t, 1)
	f.sales.On("List", mock.Anything, testBranch, 5).Return([]*entity.Sale{}, nil).Once()
	f.sales.On("List", mock.Anything, testBranch, 100).Return([]*entity.Sale{}, nil).Once()

	_, limit, err := f.uc.ListSales(context.Background(), testScope, "", 5)
	require.NoError(t, err)
	assert.Equal(t, 5, limit)

	_, limit, err = f.uc.ListSales(context.Background(), testScope, "", 5000)
	require.NoError(t, err)
	assert.Equal(t, 100, limit)
	f.sales.AssertExpectations(t)
}
