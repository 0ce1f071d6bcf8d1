package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Product producto vendible de una sucursal.
// Quantity solo cambia a través del ledger (reserva por venta o reposición) y nunca es negativa.
type Product struct {
	ID            string
	BranchID      string
	Name          string
	VendorID      string
	Quantity      int64
	PurchasePrice decimal.Decimal // costo unitario vigente
	SellingPrice  decimal.Decimal // precio de venta vigente
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// PurchaseValue valor de inventario a costo (cantidad × precio de compra).
func (p *Product) PurchaseValue() decimal.Decimal {
	return p.PurchasePrice.Mul(decimal.NewFromInt(p.Quantity))
}

// SellingValue valor de inventario a precio de venta.
func (p *Product) SellingValue() decimal.Decimal {
	return p.SellingPrice.Mul(decimal.NewFromInt(p.Quantity))
}
