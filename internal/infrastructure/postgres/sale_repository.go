package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/jhoicas/ventas-api/internal/domain/entity"
	"github.com/jhoicas/ventas-api/internal/domain/repository"
)

var _ repository.SaleRepository = (*SaleRepo)(nil)

const saleColumns = `id, branch_id, customer_id, invoice_seq, invoice_number, idempotency_key, total_amount, created_by, created_at`

// SaleRepo historial de ventas sobre PostgreSQL (usable con pool o tx).
type SaleRepo struct {
	q Querier
}

// NewSaleRepository construye el adaptador. Pasar pool o tx (Querier).
func NewSaleRepository(q Querier) *SaleRepo {
	return &SaleRepo{q: q}
}

// Create inserta cabecera y líneas. Debe ejecutarse dentro de la misma tx que la reserva.
func (r *SaleRepo) Create(ctx context.Context, s *entity.Sale) error {
	query := `
		INSERT INTO sales (` + saleColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`
	_, err := r.q.Exec(ctx, query,
		s.ID, s.BranchID, s.CustomerID, s.InvoiceSeq, s.InvoiceNumber,
		s.IdempotencyKey, s.TotalAmount, s.CreatedBy, s.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) && strings.Contains(constraintName(err), "idempotency") {
			return repository.ErrIdempotencyKeyTaken
		}
		return classify("insert sale", err)
	}

	itemQuery := `
		INSERT INTO sale_items (id, sale_id, product_id, product_name, quantity, unit_price, subtotal, position)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`
	for _, it := range s.Items {
		if _, err := r.q.Exec(ctx, itemQuery,
			it.ID, s.ID, it.ProductID, it.ProductName, it.Quantity, it.UnitPrice, it.Subtotal, it.Position,
		); err != nil {
			return classify("insert sale item", err)
		}
	}
	return nil
}

// GetByID venta con sus líneas. nil, nil si no existe.
func (r *SaleRepo) GetByID(ctx context.Context, id string) (*entity.Sale, error) {
	return r.getOne(ctx, `SELECT `+saleColumns+` FROM sales WHERE id = $1`, id)
}

// GetByIdempotencyKey venta confirmada con esa llave. nil, nil si no existe.
func (r *SaleRepo) GetByIdempotencyKey(ctx context.Context, key string) (*entity.Sale, error) {
	return r.getOne(ctx, `SELECT `+saleColumns+` FROM sales WHERE idempotency_key = $1`, key)
}

// List ventas más recientes primero, con sus líneas.
func (r *SaleRepo) List(ctx context.Context, branchID string, limit int) ([]*entity.Sale, error) {
	query := `
		SELECT ` + saleColumns + `
		FROM sales
		WHERE ($1::text = '' OR branch_id = $1)
		ORDER BY created_at DESC, invoice_seq DESC
		LIMIT $2`
	rows, err := r.q.Query(ctx, query, branchID, limit)
	if err != nil {
		return nil, fmt.Errorf("list sales: %w", err)
	}
	defer rows.Close()

	list := make([]*entity.Sale, 0)
	byID := make(map[string]*entity.Sale)
	ids := make([]string, 0)
	for rows.Next() {
		s, err := scanSale(rows)
		if err != nil {
			return nil, fmt.Errorf("list sales scan: %w", err)
		}
		list = append(list, s)
		byID[s.ID] = s
		ids = append(ids, s.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list sales: %w", err)
	}
	rows.Close()

	if len(ids) == 0 {
		return list, nil
	}
	items, err := r.items(ctx, ids)
	if err != nil {
		return nil, err
	}
	for _, it := range items {
		if s, ok := byID[it.SaleID]; ok {
			s.Items = append(s.Items, it)
		}
	}
	return list, nil
}

func (r *SaleRepo) getOne(ctx context.Context, query string, arg any) (*entity.Sale, error) {
	s, err := scanSale(r.q.QueryRow(ctx, query, arg))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get sale: %w", err)
	}
	items, err := r.items(ctx, []string{s.ID})
	if err != nil {
		return nil, err
	}
	s.Items = items
	return s, nil
}

func (r *SaleRepo) items(ctx context.Context, saleIDs []string) ([]entity.SaleLineItem, error) {
	query := `
		SELECT id, sale_id, product_id, product_name, quantity, unit_price, subtotal, position
		FROM sale_items
		WHERE sale_id = ANY($1)
		ORDER BY sale_id, position`
	rows, err := r.q.Query(ctx, query, saleIDs)
	if err != nil {
		return nil, fmt.Errorf("get sale items: %w", err)
	}
	defer rows.Close()

	items := make([]entity.SaleLineItem, 0)
	for rows.Next() {
		var it entity.SaleLineItem
		if err := rows.Scan(&it.ID, &it.SaleID, &it.ProductID, &it.ProductName, &it.Quantity, &it.UnitPrice, &it.Subtotal, &it.Position); err != nil {
			return nil, fmt.Errorf("get sale items scan: %w", err)
		}
		items = append(items, it)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("get sale items: %w", err)
	}
	return items, nil
}

func scanSale(row pgxScanner) (*entity.Sale, error) {
	var s entity.Sale
	err := row.Scan(
		&s.ID, &s.BranchID, &s.CustomerID, &s.InvoiceSeq, &s.InvoiceNumber,
		&s.IdempotencyKey, &s.TotalAmount, &s.CreatedBy, &s.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &s, nil
}
