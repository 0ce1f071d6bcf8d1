package dto

import "github.com/shopspring/decimal"

// ErrorResponse cuerpo de error HTTP.
type ErrorResponse struct {
	Code    string       `json:"code"`
	Message string       `json:"message"`
	Detail  *ErrorDetail `json:"detail,omitempty"`
}

// ErrorDetail datos estructurados del error para que el cliente pueda corregir el carrito.
type ErrorDetail struct {
	ProductID string `json:"product_id,omitempty"`
	Line      *int   `json:"line,omitempty"`
	Available *int64 `json:"available,omitempty"`
	Requested *int64 `json:"requested,omitempty"`
	Quantity  string `json:"quantity,omitempty"`
}

// Money redondea a dos decimales (mitad lejos de cero). Solo en presentación.
func Money(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}
