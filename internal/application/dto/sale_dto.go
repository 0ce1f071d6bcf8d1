package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/ventas-api/internal/domain/entity"
)

// CreateSaleRequest body para POST /api/sales.
// BranchID solo lo respeta un admin; el resto vende en su propia sucursal.
type CreateSaleRequest struct {
	CustomerID     string            `json:"customer_id"`
	BranchID       string            `json:"branch_id,omitempty"`
	IdempotencyKey string            `json:"idempotency_key,omitempty"`
	Items          []SaleItemRequest `json:"items"`
}

// SaleItemRequest línea del carrito. Quantity se recibe como decimal para rechazar fracciones.
type SaleItemRequest struct {
	ProductID         string           `json:"product_id"`
	Quantity          decimal.Decimal  `json:"quantity"`
	UnitPriceOverride *decimal.Decimal `json:"unit_price_override,omitempty"`
}

// SaleResponse venta confirmada.
type SaleResponse struct {
	ID             string             `json:"id"`
	InvoiceNumber  string             `json:"invoice_number"`
	InvoiceSeq     int64              `json:"invoice_seq"`
	BranchID       string             `json:"branch_id"`
	CustomerID     string             `json:"customer_id"`
	IdempotencyKey string             `json:"idempotency_key"`
	TotalAmount    decimal.Decimal    `json:"total_amount"`
	CreatedBy      string             `json:"created_by,omitempty"`
	CreatedAt      string             `json:"created_at"`
	Items          []SaleItemResponse `json:"items"`
}

// SaleItemResponse línea de la venta.
type SaleItemResponse struct {
	ProductID   string          `json:"product_id"`
	ProductName string          `json:"product_name"`
	Quantity    int64           `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	Subtotal    decimal.Decimal `json:"subtotal"`
}

// SaleListResponse listado de ventas.
type SaleListResponse struct {
	Items []SaleResponse `json:"items"`
	Limit int            `json:"limit"`
}

// ToSaleResponse convierte la entidad a su forma de presentación.
func ToSaleResponse(s *entity.Sale) SaleResponse {
	out := SaleResponse{
		ID:             s.ID,
		InvoiceNumber:  s.InvoiceNumber,
		InvoiceSeq:     s.InvoiceSeq,
		BranchID:       s.BranchID,
		CustomerID:     s.CustomerID,
		IdempotencyKey: s.IdempotencyKey,
		TotalAmount:    Money(s.TotalAmount),
		CreatedBy:      s.CreatedBy,
		CreatedAt:      s.CreatedAt.UTC().Format(time.RFC3339),
		Items:          make([]SaleItemResponse, 0, len(s.Items)),
	}
	for _, it := range s.Items {
		out.Items = append(out.Items, SaleItemResponse{
			ProductID:   it.ProductID,
			ProductName: it.ProductName,
			Quantity:    it.Quantity,
			UnitPrice:   it.UnitPrice,
			Subtotal:    Money(it.Subtotal),
		})
	}
	return out
}
