package billing

import (
	"context"
	"fmt"
	"strings"

	"github.com/jhoicas/ventas-api/internal/domain"
	"github.com/jhoicas/ventas-api/internal/domain/entity"
	"github.com/jhoicas/ventas-api/internal/domain/repository"
)

// ExportedInvoice resultado de la exportación listo para descargar.
type ExportedInvoice struct {
	Content     []byte
	ContentType string
	Filename    string
}

// InvoiceExportUseCase arma el documento de factura de una venta confirmada y lo delega al renderizador.
type InvoiceExportUseCase struct {
	saleRepo     repository.SaleRepository
	customerRepo repository.CustomerRepository
	issuer       entity.Issuer
	renderers    map[string]InvoiceRenderer
}

// NewInvoiceExportUseCase registra los renderizadores por formato; el primero es el formato por defecto.
func NewInvoiceExportUseCase(
	saleRepo repository.SaleRepository,
	customerRepo repository.CustomerRepository,
	issuer entity.Issuer,
	renderers ...InvoiceRenderer,
) *InvoiceExportUseCase {
	uc := &InvoiceExportUseCase{
		saleRepo:     saleRepo,
		customerRepo: customerRepo,
		issuer:       issuer,
		renderers:    make(map[string]InvoiceRenderer, len(renderers)+1),
	}
	for i, r := range renderers {
		if i == 0 {
			uc.renderers[""] = r
		}
		uc.renderers[r.Format()] = r
	}
	return uc
}

// Export genera la factura de la venta en el formato pedido ("" = por defecto).
//
// Retorna:
//   - domain.ErrNotFound      si la venta no existe.
//   - domain.ErrForbidden     si la venta es de otra sucursal.
//   - domain.ErrInvalidInput  si el formato no está soportado.
func (uc *InvoiceExportUseCase) Export(ctx context.Context, scope domain.Scope, saleID, format string) (*ExportedInvoice, error) {
	r, ok := uc.renderers[strings.ToLower(format)]
	if !ok {
		return nil, fmt.Errorf("%w: formato %q no soportado", domain.ErrInvalidInput, format)
	}

	// ── 1. Venta ──────────────────────────────────────────────────────────────
	sale, err := uc.saleRepo.GetByID(ctx, saleID)
	if err != nil {
		return nil, fmt.Errorf("invoice: obtener venta: %w", err)
	}
	if sale == nil {
		return nil, domain.ErrNotFound
	}
	if !scope.CanAccess(sale.BranchID) {
		return nil, domain.ErrForbidden
	}

	// ── 2. Cliente (si desapareció del directorio se imprime solo el id) ──────
	doc := &entity.InvoiceDocument{Sale: sale, CustomerName: sale.CustomerID, Issuer: uc.issuer}
	customer, err := uc.customerRepo.GetByID(ctx, sale.CustomerID)
	if err != nil {
		return nil, fmt.Errorf("invoice: obtener cliente: %w", err)
	}
	if customer != nil {
		doc.CustomerName = customer.Name
		doc.CustomerAddress = customer.Address
		doc.CustomerPhone = customer.Phone
	}

	// ── 3. Render ─────────────────────────────────────────────────────────────
	content, err := r.Render(ctx, doc)
	if err != nil {
		return nil, fmt.Errorf("invoice: render %s: %w", r.Format(), err)
	}
	return &ExportedInvoice{
		Content:     content,
		ContentType: r.ContentType(),
		Filename:    fmt.Sprintf("invoice_%s.%s", sale.InvoiceNumber, r.Format()),
	}, nil
}
