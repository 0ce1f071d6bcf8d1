package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/ventas-api/internal/domain/analytics"
	"github.com/jhoicas/ventas-api/internal/domain/repository"
)

var _ repository.AnalyticsRepository = (*AnalyticsRepo)(nil)

// AnalyticsRepo consultas de agregación de solo lectura.
// Cada método corre en una tx REPEATABLE READ READ ONLY para leer una única instantánea.
type AnalyticsRepo struct {
	tx *TxRunner
}

// NewAnalyticsRepository construye el adaptador de analítica.
func NewAnalyticsRepository(tx *TxRunner) *AnalyticsRepo {
	return &AnalyticsRepo{tx: tx}
}

// StockSummary existencias actuales por producto; el total se suma en Go para mantener exactitud.
func (r *AnalyticsRepo) StockSummary(ctx context.Context, branchID string, inStockOnly bool) (*analytics.StockSummary, error) {
	const query = `
	SELECT
	    id,
	    name,
	    quantity,
	    quantity * purchase_price AS purchase_value,
	    quantity * selling_price  AS selling_value
	FROM products
	WHERE ($1::text = '' OR branch_id = $1)
	  AND (NOT $2::boolean OR quantity > 0)
	ORDER BY name, id`

	out := &analytics.StockSummary{Rows: []analytics.StockRow{}, TotalStockValue: decimal.Zero}
	err := r.tx.RunReadOnly(ctx, func(q Querier) error {
		rows, err := q.Query(ctx, query, branchID, inStockOnly)
		if err != nil {
			return err
		}
		defer rows.Close()
		for rows.Next() {
			var row analytics.StockRow
			if err := rows.Scan(&row.ProductID, &row.Name, &row.TotalQuantity, &row.PurchaseValue, &row.SellingValue); err != nil {
				return err
			}
			out.Rows = append(out.Rows, row)
			out.TotalStockValue = out.TotalStockValue.Add(row.PurchaseValue)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, fmt.Errorf("analytics.StockSummary: %w", err)
	}
	return out, nil
}

// DashboardMetrics totales del historial hasta asOf (inclusive).
// totalPurchase usa el precio de compra vigente de cada producto.
// Usa COALESCE para devolver cero si no hay ventas.
func (r *AnalyticsRepo) DashboardMetrics(ctx context.Context, branchID string, asOf time.Time) (*analytics.DashboardMetrics, error) {
	const salesQuery = `
	SELECT COALESCE(SUM(total_amount), 0), COUNT(*)
	FROM sales
	WHERE ($1::text = '' OR branch_id = $1) AND created_at <= $2`

	const purchaseQuery = `
	SELECT COALESCE(SUM(si.quantity * p.purchase_price), 0)
	FROM sale_items si
	JOIN sales    s ON s.id = si.sale_id
	JOIN products p ON p.id = si.product_id
	WHERE ($1::text = '' OR s.branch_id = $1) AND s.created_at <= $2`

	const unitsSoldQuery = `
	SELECT COALESCE(SUM(si.quantity), 0)::bigint
	FROM sale_items si
	JOIN sales s ON s.id = si.sale_id
	WHERE ($1::text = '' OR s.branch_id = $1) AND s.created_at <= $2`

	const monthlyQuery = `
	SELECT
	    to_char(date_trunc('month', created_at AT TIME ZONE 'UTC'), 'YYYY-MM') AS month,
	    SUM(total_amount),
	    COUNT(*)
	FROM sales
	WHERE ($1::text = '' OR branch_id = $1) AND created_at <= $2
	GROUP BY 1
	ORDER BY 1`

	const stockQuery = `
	SELECT COUNT(*) FILTER (WHERE quantity > 0), COALESCE(SUM(quantity), 0)::bigint
	FROM products
	WHERE ($1::text = '' OR branch_id = $1)`

	out := &analytics.DashboardMetrics{
		TotalSales:    decimal.Zero,
		TotalPurchase: decimal.Zero,
		MonthlySales:  []analytics.MonthlyBucket{},
	}
	err := r.tx.RunReadOnly(ctx, func(q Querier) error {
		if err := q.QueryRow(ctx, salesQuery, branchID, asOf).Scan(&out.TotalSales, &out.SalesCount); err != nil {
			return fmt.Errorf("ventas: %w", err)
		}
		if err := q.QueryRow(ctx, purchaseQuery, branchID, asOf).Scan(&out.TotalPurchase); err != nil {
			return fmt.Errorf("costo: %w", err)
		}
		if err := q.QueryRow(ctx, unitsSoldQuery, branchID, asOf).Scan(&out.UnitsSold); err != nil {
			return fmt.Errorf("unidades: %w", err)
		}
		if err := q.QueryRow(ctx, stockQuery, branchID).Scan(&out.StockCount, &out.UnitsOnHand); err != nil {
			return fmt.Errorf("stock: %w", err)
		}

		rows, err := q.Query(ctx, monthlyQuery, branchID, asOf)
		if err != nil {
			return fmt.Errorf("mensual: %w", err)
		}
		defer rows.Close()
		for rows.Next() {
			var b analytics.MonthlyBucket
			if err := rows.Scan(&b.Month, &b.Amount, &b.Count); err != nil {
				return fmt.Errorf("mensual scan: %w", err)
			}
			out.MonthlySales = append(out.MonthlySales, b)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, fmt.Errorf("analytics.DashboardMetrics: %w", err)
	}
	return out, nil
}
