package billing

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/jhoicas/ventas-api/internal/application/dto"
	"github.com/jhoicas/ventas-api/internal/domain"
	"github.com/jhoicas/ventas-api/internal/domain/entity"
	"github.com/jhoicas/ventas-api/internal/domain/repository"
	"github.com/jhoicas/ventas-api/internal/domain/sales"
)

const defaultListLimit = 100

// SalesConfig parámetros del motor de ventas.
type SalesConfig struct {
	MaxAttempts   int
	RetryBackoff  time.Duration
	InvoicePrefix string
}

// CreateSaleUseCase registra ventas: valida el carrito, reserva existencias, asigna número de
// factura y persiste la venta en una sola transacción.
type CreateSaleUseCase struct {
	txRunner     SaleTxRunner
	saleRepo     repository.SaleRepository
	customerRepo repository.CustomerRepository
	cfg          SalesConfig
	log          zerolog.Logger
	now          func() time.Time
}

// NewCreateSaleUseCase construye el caso de uso. saleRepo se usa solo para lecturas fuera de la tx.
func NewCreateSaleUseCase(
	txRunner SaleTxRunner,
	saleRepo repository.SaleRepository,
	customerRepo repository.CustomerRepository,
	cfg SalesConfig,
	log zerolog.Logger,
) *CreateSaleUseCase {
	if cfg.MaxAttempts < 1 {
		cfg.MaxAttempts = 1
	}
	return &CreateSaleUseCase{
		txRunner:     txRunner,
		saleRepo:     saleRepo,
		customerRepo: customerRepo,
		cfg:          cfg,
		log:          log,
		now:          time.Now,
	}
}

// WithClock reemplaza el reloj (tests).
func (uc *CreateSaleUseCase) WithClock(now func() time.Time) *CreateSaleUseCase {
	uc.now = now
	return uc
}

// CreateSale valida y confirma una venta.
//
// Retorna:
//   - errores de validación (*domain.ValidationError) y *domain.InsufficientStockError sin reintentar.
//   - domain.ErrConcurrencyConflict si se agotaron los intentos.
//   - *domain.PersistenceError ante fallos de infraestructura no reintentables.
//
// Una petición repetida con la misma idempotency key devuelve la venta ya confirmada.
func (uc *CreateSaleUseCase) CreateSale(ctx context.Context, scope domain.Scope, in dto.CreateSaleRequest) (*entity.Sale, error) {
	branchID, err := scope.WriteBranch(in.BranchID)
	if err != nil {
		return nil, err
	}

	// ── 1. Forma del carrito ──────────────────────────────────────────────────
	lines := make([]sales.LineRequest, len(in.Items))
	for i, it := range in.Items {
		lines[i] = sales.LineRequest{ProductID: it.ProductID, Quantity: it.Quantity, UnitPriceOverride: it.UnitPriceOverride}
	}
	qtys, err := sales.ValidateLines(lines)
	if err != nil {
		return nil, err
	}

	// ── 2. Cliente (fuera de la tx, solo lectura) ─────────────────────────────
	if in.CustomerID == "" {
		return nil, domain.NewValidationError(domain.ErrUnknownCustomer)
	}
	customer, err := uc.customerRepo.GetByID(ctx, in.CustomerID)
	if err != nil {
		return nil, &domain.PersistenceError{Op: "obtener cliente", Err: err}
	}
	if customer == nil || customer.BranchID != branchID {
		return nil, domain.NewValidationError(domain.ErrUnknownCustomer)
	}

	// ── 3. Idempotencia ───────────────────────────────────────────────────────
	key := in.IdempotencyKey
	if key == "" {
		key = uuid.New().String()
	} else if existing, err := uc.saleRepo.GetByIdempotencyKey(ctx, key); err != nil {
		return nil, &domain.PersistenceError{Op: "buscar idempotency key", Err: err}
	} else if existing != nil {
		return uc.replayed(scope, existing)
	}

	// ── 4. Intentos ───────────────────────────────────────────────────────────
	draft := saleDraft{
		branchID:   branchID,
		customerID: customer.ID,
		createdBy:  scope.UserID,
		key:        key,
		lines:      lines,
		qtys:       qtys,
	}
	var lastErr error
	for attempt := 1; attempt <= uc.cfg.MaxAttempts; attempt++ {
		sale, err := uc.attempt(ctx, draft)
		if err == nil {
			uc.log.Info().
				Str("sale_id", sale.ID).
				Str("invoice_number", sale.InvoiceNumber).
				Str("branch_id", sale.BranchID).
				Int("attempt", attempt).
				Msg("venta confirmada")
			return sale, nil
		}

		switch {
		case errors.Is(err, domain.ErrCommitUnknown), errors.Is(err, repository.ErrIdempotencyKeyTaken):
			existing, lerr := uc.saleRepo.GetByIdempotencyKey(ctx, key)
			if lerr != nil {
				uc.log.Error().Err(lerr).Str("idempotency_key", key).Msg("no se pudo resolver el resultado del commit")
				return nil, &domain.PersistenceError{Op: "resolver commit", Err: lerr}
			}
			if existing != nil {
				return uc.replayed(scope, existing)
			}
			if errors.Is(err, repository.ErrIdempotencyKeyTaken) {
				// la otra petición aún no es visible; se reintenta como conflicto
				err = fmt.Errorf("%w: %v", domain.ErrConcurrencyConflict, err)
			}
		case errors.Is(err, domain.ErrConcurrencyConflict):
		case isDomainError(err):
			return nil, err
		default:
			uc.log.Error().Err(err).Str("idempotency_key", key).Int("attempt", attempt).Msg("fallo de persistencia al crear venta")
			return nil, &domain.PersistenceError{Op: "crear venta", Err: err}
		}

		lastErr = err
		if attempt == uc.cfg.MaxAttempts {
			break
		}
		uc.log.Warn().Err(err).Str("idempotency_key", key).Int("attempt", attempt).Msg("reintentando venta")
		if werr := sleepCtx(ctx, time.Duration(attempt)*uc.cfg.RetryBackoff); werr != nil {
			return nil, fmt.Errorf("%w: %v", domain.ErrConcurrencyConflict, werr)
		}
	}

	uc.log.Error().Err(lastErr).Str("idempotency_key", key).Int("attempts", uc.cfg.MaxAttempts).Msg("venta abortada tras agotar reintentos")
	if errors.Is(lastErr, domain.ErrConcurrencyConflict) {
		return nil, lastErr
	}
	return nil, fmt.Errorf("%w: %v", domain.ErrConcurrencyConflict, lastErr)
}

type saleDraft struct {
	branchID   string
	customerID string
	createdBy  string
	key        string
	lines      []sales.LineRequest
	qtys       []int64
}

// attempt una transacción completa: bloqueo, verificación, reserva, numeración y escritura.
func (uc *CreateSaleUseCase) attempt(ctx context.Context, d saleDraft) (*entity.Sale, error) {
	var out *entity.Sale
	err := uc.txRunner.RunSale(ctx, func(
		ledger repository.ProductLedger,
		saleRepo repository.SaleRepository,
		seq repository.InvoiceSequence,
	) error {
		// a. bloquear filas en orden fijo
		locked, err := ledger.GetManyForUpdate(ctx, uniqueSorted(d.lines))
		if err != nil {
			return err
		}
		byID := make(map[string]*entity.Product, len(locked))
		for _, p := range locked {
			if p.BranchID == d.branchID {
				byID[p.ID] = p
			}
		}

		// b. productos inexistentes o de otra sucursal
		for i, l := range d.lines {
			if _, ok := byID[l.ProductID]; !ok {
				return &domain.ValidationError{Kind: domain.ErrUnknownProduct, Line: i, ProductID: l.ProductID}
			}
		}

		// c-d. todo o nada: verificar disponibilidad agregada antes de mutar
		requested := sales.RequestedByProduct(d.lines, d.qtys)
		if err := sales.CheckAvailability(d.lines, requested, byID); err != nil {
			return err
		}

		// e. reservar
		for i, l := range d.lines {
			if _, err := ledger.TryReserve(ctx, l.ProductID, d.qtys[i]); err != nil {
				return err
			}
		}

		// f. totales con precio capturado bajo el bloqueo
		items, total := sales.BuildLineItems(d.lines, d.qtys, byID)

		// g. numeración
		n, err := seq.Next(ctx)
		if err != nil {
			return err
		}

		// h. persistir
		sale := &entity.Sale{
			ID:             uuid.New().String(),
			BranchID:       d.branchID,
			CustomerID:     d.customerID,
			InvoiceSeq:     n,
			InvoiceNumber:  sales.FormatInvoiceNumber(uc.cfg.InvoicePrefix, n),
			IdempotencyKey: d.key,
			TotalAmount:    total,
			CreatedBy:      d.createdBy,
			CreatedAt:      uc.now().UTC(),
		}
		for i := range items {
			items[i].ID = uuid.New().String()
			items[i].SaleID = sale.ID
		}
		sale.Items = items
		if err := saleRepo.Create(ctx, sale); err != nil {
			return err
		}
		out = sale
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (uc *CreateSaleUseCase) replayed(scope domain.Scope, s *entity.Sale) (*entity.Sale, error) {
	if !scope.CanAccess(s.BranchID) {
		return nil, domain.ErrForbidden
	}
	uc.log.Info().Str("sale_id", s.ID).Str("idempotency_key", s.IdempotencyKey).Msg("venta ya confirmada, se devuelve la original")
	return s, nil
}

// GetSale devuelve una venta visible para el alcance.
func (uc *CreateSaleUseCase) GetSale(ctx context.Context, scope domain.Scope, id string) (*entity.Sale, error) {
	s, err := uc.saleRepo.GetByID(ctx, id)
	if err != nil {
		return nil, &domain.PersistenceError{Op: "obtener venta", Err: err}
	}
	if s == nil {
		return nil, domain.ErrNotFound
	}
	if !scope.CanAccess(s.BranchID) {
		return nil, domain.ErrForbidden
	}
	return s, nil
}

// ListSales ventas más recientes primero y el límite efectivamente aplicado.
// limit <= 0 o mayor a 1000 usa el valor por defecto.
func (uc *CreateSaleUseCase) ListSales(ctx context.Context, scope domain.Scope, branchID string, limit int) ([]*entity.Sale, int, error) {
	if limit <= 0 || limit > 1000 {
		limit = defaultListLimit
	}
	list, err := uc.saleRepo.List(ctx, scope.BranchFilter(branchID), limit)
	if err != nil {
		return nil, 0, &domain.PersistenceError{Op: "listar ventas", Err: err}
	}
	return list, limit, nil
}

func uniqueSorted(lines []sales.LineRequest) []string {
	seen := make(map[string]struct{}, len(lines))
	ids := make([]string, 0, len(lines))
	for _, l := range lines {
		if _, ok := seen[l.ProductID]; ok {
			continue
		}
		seen[l.ProductID] = struct{}{}
		ids = append(ids, l.ProductID)
	}
	sort.Strings(ids)
	return ids
}

// isDomainError errores de negocio o validación que se devuelven tal cual.
func isDomainError(err error) bool {
	return errors.Is(err, domain.ErrInvalidInput) ||
		errors.Is(err, domain.ErrInsufficientStock) ||
		errors.Is(err, domain.ErrNotFound) ||
		errors.Is(err, domain.ErrForbidden) ||
		errors.Is(err, domain.ErrPersistence)
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
