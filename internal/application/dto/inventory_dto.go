package dto

import "github.com/shopspring/decimal"

// RestockRequest body para POST /api/inventory/restock.
type RestockRequest struct {
	ProductID string          `json:"product_id"`
	Quantity  decimal.Decimal `json:"quantity"`
}

// RestockResponse existencias resultantes.
type RestockResponse struct {
	ProductID string `json:"product_id"`
	Quantity  int64  `json:"quantity"`
}
