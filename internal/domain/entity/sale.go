package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Sale venta confirmada con su factura. Inmutable una vez persistida.
type Sale struct {
	ID             string
	BranchID       string
	CustomerID     string
	InvoiceSeq     int64  // valor del contador global
	InvoiceNumber  string // forma visible, ej. INV-000123
	IdempotencyKey string
	Items          []SaleLineItem
	TotalAmount    decimal.Decimal // suma exacta de subtotales, sin redondeo
	CreatedBy      string
	CreatedAt      time.Time
}

// SaleLineItem línea de venta con precio capturado al momento de vender.
type SaleLineItem struct {
	ID          string
	SaleID      string
	ProductID   string
	ProductName string // copia del nombre al vender
	Quantity    int64
	UnitPrice   decimal.Decimal
	Subtotal    decimal.Decimal
	Position    int
}

// Issuer datos del emisor impresos en la factura.
type Issuer struct {
	Name    string
	Address string
	Phone   string
}

// InvoiceDocument todo lo que un renderizador necesita para producir la factura.
type InvoiceDocument struct {
	Sale            *Sale
	CustomerName    string
	CustomerAddress string
	CustomerPhone   string
	Issuer          Issuer
}
