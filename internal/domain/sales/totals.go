// Package sales reglas puras del motor de ventas: validación del carrito y cálculo de totales.
package sales

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/ventas-api/internal/domain"
	"github.com/jhoicas/ventas-api/internal/domain/entity"
)

// LineRequest línea del carrito tal como llega del cliente.
// Quantity es decimal para poder rechazar valores no enteros en lugar de truncarlos.
type LineRequest struct {
	ProductID         string
	Quantity          decimal.Decimal
	UnitPriceOverride *decimal.Decimal
}

// ValidateLines aplica las reglas de forma del carrito: no vacío, cantidades enteras positivas
// y overrides no negativos. Devuelve las cantidades como enteros en el mismo orden.
func ValidateLines(lines []LineRequest) ([]int64, error) {
	if len(lines) == 0 {
		return nil, domain.NewValidationError(domain.ErrEmptyCart)
	}
	qtys := make([]int64, len(lines))
	for i, l := range lines {
		if l.ProductID == "" {
			return nil, &domain.ValidationError{Kind: domain.ErrUnknownProduct, Line: i}
		}
		if !ValidQuantity(l.Quantity) {
			return nil, &domain.ValidationError{
				Kind:      domain.ErrInvalidQuantity,
				Line:      i,
				ProductID: l.ProductID,
				Quantity:  l.Quantity.String(),
			}
		}
		if l.UnitPriceOverride != nil && l.UnitPriceOverride.IsNegative() {
			return nil, &domain.ValidationError{Kind: domain.ErrInvalidPrice, Line: i, ProductID: l.ProductID}
		}
		qtys[i] = l.Quantity.IntPart()
	}
	return qtys, nil
}

// maxQuantity tope para que la multiplicación por precio y la suma en int64 no desborden.
var maxQuantity = decimal.NewFromInt(1_000_000_000)

// ValidQuantity indica si q es un entero positivo dentro del tope por línea o por reposición.
func ValidQuantity(q decimal.Decimal) bool {
	return q.IsPositive() && q.IsInteger() && q.Cmp(maxQuantity) <= 0
}

// RequestedByProduct suma las cantidades por producto (líneas repetidas se acumulan).
func RequestedByProduct(lines []LineRequest, qtys []int64) map[string]int64 {
	out := make(map[string]int64, len(lines))
	for i, l := range lines {
		out[l.ProductID] += qtys[i]
	}
	return out
}

// CheckAvailability verifica todas las existencias contra lo pedido antes de tocar el libro.
// Recorre en el orden del carrito para que el error apunte a la primera línea en conflicto.
func CheckAvailability(lines []LineRequest, requested map[string]int64, products map[string]*entity.Product) error {
	seen := make(map[string]bool, len(requested))
	for _, l := range lines {
		if seen[l.ProductID] {
			continue
		}
		seen[l.ProductID] = true
		p, ok := products[l.ProductID]
		if !ok {
			return &domain.ValidationError{Kind: domain.ErrUnknownProduct, Line: -1, ProductID: l.ProductID}
		}
		if p.Quantity < requested[l.ProductID] {
			return &domain.InsufficientStockError{
				ProductID: l.ProductID,
				Available: p.Quantity,
				Requested: requested[l.ProductID],
			}
		}
	}
	return nil
}

// BuildLineItems arma las líneas con precio capturado y devuelve el total exacto sin redondear.
func BuildLineItems(lines []LineRequest, qtys []int64, products map[string]*entity.Product) ([]entity.SaleLineItem, decimal.Decimal) {
	items := make([]entity.SaleLineItem, 0, len(lines))
	total := decimal.Zero
	for i, l := range lines {
		p := products[l.ProductID]
		price := p.SellingPrice
		if l.UnitPriceOverride != nil {
			price = *l.UnitPriceOverride
		}
		sub := price.Mul(decimal.NewFromInt(qtys[i]))
		items = append(items, entity.SaleLineItem{
			ProductID:   p.ID,
			ProductName: p.Name,
			Quantity:    qtys[i],
			UnitPrice:   price,
			Subtotal:    sub,
			Position:    i,
		})
		total = total.Add(sub)
	}
	return items, total
}

// FormatInvoiceNumber forma visible del número de factura.
func FormatInvoiceNumber(prefix string, seq int64) string {
	if prefix == "" {
		return fmt.Sprintf("%06d", seq)
	}
	return fmt.Sprintf("%s-%06d", prefix, seq)
}
