// Package analytics contiene los pliegues puros sobre el libro de existencias y el historial de ventas.
// No mutan nada y son seguros de invocar concurrentemente.
package analytics

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/ventas-api/internal/domain/entity"
)

// MonthLayout formato de los buckets mensuales (UTC).
const MonthLayout = "2006-01"

// StockRow resumen de un producto.
type StockRow struct {
	ProductID     string
	Name          string
	TotalQuantity int64
	PurchaseValue decimal.Decimal
	SellingValue  decimal.Decimal
}

// StockSummary existencias actuales por producto y valor total a costo.
type StockSummary struct {
	Rows            []StockRow
	TotalStockValue decimal.Decimal
}

// MonthlyBucket ventas de un mes calendario.
type MonthlyBucket struct {
	Month  string // YYYY-MM
	Amount decimal.Decimal
	Count  int64
}

// DashboardMetrics métricas del tablero. La utilidad se deriva en presentación.
type DashboardMetrics struct {
	TotalSales    decimal.Decimal
	TotalPurchase decimal.Decimal
	MonthlySales  []MonthlyBucket
	StockCount    int64
	SalesCount    int64
	UnitsSold     int64 // unidades de las ventas hasta asOf
	UnitsOnHand   int64 // existencias actuales; con la misma instantánea que UnitsSold
}

// SummarizeStock pliega el estado actual del libro. Los productos en cero se incluyen salvo inStockOnly.
func SummarizeStock(products []*entity.Product, inStockOnly bool) *StockSummary {
	out := &StockSummary{Rows: make([]StockRow, 0, len(products)), TotalStockValue: decimal.Zero}
	for _, p := range products {
		if inStockOnly && p.Quantity <= 0 {
			continue
		}
		row := StockRow{
			ProductID:     p.ID,
			Name:          p.Name,
			TotalQuantity: p.Quantity,
			PurchaseValue: p.PurchaseValue(),
			SellingValue:  p.SellingValue(),
		}
		out.Rows = append(out.Rows, row)
		out.TotalStockValue = out.TotalStockValue.Add(row.PurchaseValue)
	}
	sort.SliceStable(out.Rows, func(i, j int) bool {
		if out.Rows[i].Name != out.Rows[j].Name {
			return out.Rows[i].Name < out.Rows[j].Name
		}
		return out.Rows[i].ProductID < out.Rows[j].ProductID
	})
	return out
}

// Dashboard pliega el historial hasta asOf (inclusive). totalPurchase usa el precio de compra
// vigente de cada producto; las líneas de productos que ya no están en el libro no suman costo.
// Un asOf cero significa sin límite.
func Dashboard(sales []*entity.Sale, products []*entity.Product, asOf time.Time) *DashboardMetrics {
	cost := make(map[string]decimal.Decimal, len(products))
	out := &DashboardMetrics{
		TotalSales:    decimal.Zero,
		TotalPurchase: decimal.Zero,
		MonthlySales:  []MonthlyBucket{},
	}
	for _, p := range products {
		cost[p.ID] = p.PurchasePrice
		out.UnitsOnHand += p.Quantity
		if p.Quantity > 0 {
			out.StockCount++
		}
	}

	buckets := make(map[string]*MonthlyBucket)
	for _, s := range sales {
		if !asOf.IsZero() && s.CreatedAt.After(asOf) {
			continue
		}
		out.SalesCount++
		out.TotalSales = out.TotalSales.Add(s.TotalAmount)
		for _, it := range s.Items {
			out.UnitsSold += it.Quantity
			if c, ok := cost[it.ProductID]; ok {
				out.TotalPurchase = out.TotalPurchase.Add(c.Mul(decimal.NewFromInt(it.Quantity)))
			}
		}
		month := s.CreatedAt.UTC().Format(MonthLayout)
		b, ok := buckets[month]
		if !ok {
			b = &MonthlyBucket{Month: month, Amount: decimal.Zero}
			buckets[month] = b
		}
		b.Amount = b.Amount.Add(s.TotalAmount)
		b.Count++
	}

	for _, b := range buckets {
		out.MonthlySales = append(out.MonthlySales, *b)
	}
	sort.Slice(out.MonthlySales, func(i, j int) bool {
		return out.MonthlySales[i].Month < out.MonthlySales[j].Month
	})
	return out
}
