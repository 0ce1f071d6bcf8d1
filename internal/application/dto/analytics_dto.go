package dto

import (
	"github.com/shopspring/decimal"

	"github.com/jhoicas/ventas-api/internal/domain/analytics"
)

// StockRowDTO fila de GET /api/stock. Profit se deriva aquí, nunca se almacena.
type StockRowDTO struct {
	ProductID     string          `json:"product_id"`
	Name          string          `json:"name"`
	TotalQuantity int64           `json:"total_quantity"`
	PurchaseValue decimal.Decimal `json:"purchase_value"`
	SellingValue  decimal.Decimal `json:"selling_value"`
	Profit        decimal.Decimal `json:"profit"`
}

// StockSummaryDTO respuesta de GET /api/stock.
type StockSummaryDTO struct {
	BranchID        string          `json:"branch_id,omitempty"`
	Items           []StockRowDTO   `json:"items"`
	TotalStockValue decimal.Decimal `json:"total_stock_value"`
}

// MonthlySalesDTO bucket mensual del dashboard.
type MonthlySalesDTO struct {
	Month  string          `json:"month"`
	Amount decimal.Decimal `json:"amount"`
	Count  int64           `json:"count"`
}

// DashboardDTO respuesta de GET /api/dashboard.
type DashboardDTO struct {
	BranchID      string            `json:"branch_id,omitempty"`
	AsOf          string            `json:"as_of"`
	TotalSales    decimal.Decimal   `json:"total_sales"`
	TotalPurchase decimal.Decimal   `json:"total_purchase"`
	Profit        decimal.Decimal   `json:"profit"`
	SalesCount    int64             `json:"sales_count"`
	StockCount    int64             `json:"stock_count"`
	UnitsSold     int64             `json:"units_sold"`
	UnitsOnHand   int64             `json:"units_on_hand"`
	MonthlySales  []MonthlySalesDTO `json:"monthly_sales"`
}

// ToStockSummaryDTO redondea en presentación y deriva la utilidad por fila desde los valores exactos.
func ToStockSummaryDTO(branchID string, s *analytics.StockSummary) StockSummaryDTO {
	out := StockSummaryDTO{
		BranchID:        branchID,
		Items:           make([]StockRowDTO, 0, len(s.Rows)),
		TotalStockValue: Money(s.TotalStockValue),
	}
	for _, r := range s.Rows {
		out.Items = append(out.Items, StockRowDTO{
			ProductID:     r.ProductID,
			Name:          r.Name,
			TotalQuantity: r.TotalQuantity,
			PurchaseValue: Money(r.PurchaseValue),
			SellingValue:  Money(r.SellingValue),
			Profit:        Money(r.SellingValue.Sub(r.PurchaseValue)),
		})
	}
	return out
}

// ToDashboardDTO arma la respuesta del dashboard; asOf ya viene formateado.
func ToDashboardDTO(branchID, asOf string, m *analytics.DashboardMetrics) DashboardDTO {
	out := DashboardDTO{
		BranchID:      branchID,
		AsOf:          asOf,
		TotalSales:    Money(m.TotalSales),
		TotalPurchase: Money(m.TotalPurchase),
		Profit:        Money(m.TotalSales.Sub(m.TotalPurchase)),
		SalesCount:    m.SalesCount,
		StockCount:    m.StockCount,
		UnitsSold:     m.UnitsSold,
		UnitsOnHand:   m.UnitsOnHand,
		MonthlySales:  make([]MonthlySalesDTO, 0, len(m.MonthlySales)),
	}
	for _, b := range m.MonthlySales {
		out.MonthlySales = append(out.MonthlySales, MonthlySalesDTO{
			Month:  b.Month,
			Amount: Money(b.Amount),
			Count:  b.Count,
		})
	}
	return out
}
