package postgres

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/jhoicas/ventas-api/internal/domain"
	"github.com/jhoicas/ventas-api/internal/domain/entity"
	"github.com/jhoicas/ventas-api/internal/domain/repository"
)

var _ repository.ProductLedger = (*ProductLedgerRepo)(nil)

const productColumns = `id, branch_id, name, vendor_id, quantity, purchase_price, selling_price, created_at, updated_at`

// ProductLedgerRepo implementación del libro de existencias sobre PostgreSQL (usable con pool o tx).
type ProductLedgerRepo struct {
	q Querier
}

// NewProductLedgerRepository construye el adaptador. Pasar pool o tx (Querier).
func NewProductLedgerRepository(q Querier) *ProductLedgerRepo {
	return &ProductLedgerRepo{q: q}
}

// Create persiste un nuevo producto.
func (r *ProductLedgerRepo) Create(ctx context.Context, p *entity.Product) error {
	query := `
		INSERT INTO products (` + productColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`
	_, err := r.q.Exec(ctx, query,
		p.ID, p.BranchID, p.Name, p.VendorID, p.Quantity,
		p.PurchasePrice, p.SellingPrice, p.CreatedAt, p.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: producto %s ya existe", domain.ErrInvalidInput, p.ID)
		}
		return fmt.Errorf("insert product: %w", err)
	}
	return nil
}

// GetByID obtiene un producto por ID. nil, nil si no existe.
func (r *ProductLedgerRepo) GetByID(ctx context.Context, id string) (*entity.Product, error) {
	query := `SELECT ` + productColumns + ` FROM products WHERE id = $1`
	p, err := scanProduct(r.q.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get product: %w", err)
	}
	return p, nil
}

// List productos de la sucursal ("" = todas) ordenados por nombre e id.
func (r *ProductLedgerRepo) List(ctx context.Context, branchID string) ([]*entity.Product, error) {
	query := `
		SELECT ` + productColumns + `
		FROM products
		WHERE ($1::text = '' OR branch_id = $1)
		ORDER BY name, id`
	return r.queryProducts(ctx, "list products", query, branchID)
}

// GetManyForUpdate bloquea las filas en orden ascendente de id (SELECT ... FOR UPDATE).
// El orden fijo de adquisición evita interbloqueos entre ventas que comparten productos.
func (r *ProductLedgerRepo) GetManyForUpdate(ctx context.Context, ids []string) ([]*entity.Product, error) {
	if len(ids) == 0 {
		return []*entity.Product{}, nil
	}
	query := `
		SELECT ` + productColumns + `
		FROM products
		WHERE id = ANY($1)
		ORDER BY id
		FOR UPDATE`
	return r.queryProducts(ctx, "lock products", query, ids)
}

// TryReserve descuenta qty solo si hay existencias suficientes; la condición y la escritura
// son una sola sentencia.
func (r *ProductLedgerRepo) TryReserve(ctx context.Context, id string, qty int64) (int64, error) {
	query := `
		UPDATE products SET quantity = quantity - $2, updated_at = now()
		WHERE id = $1 AND quantity >= $2
		RETURNING quantity`
	var newQty int64
	err := r.q.QueryRow(ctx, query, id, qty).Scan(&newQty)
	if err == nil {
		return newQty, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return 0, classify("reserve stock", err)
	}

	// Ninguna fila: o no existe o no alcanza.
	var available int64
	err = r.q.QueryRow(ctx, `SELECT quantity FROM products WHERE id = $1`, id).Scan(&available)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, domain.ErrNotFound
		}
		return 0, classify("reserve stock", err)
	}
	return 0, &domain.InsufficientStockError{ProductID: id, Available: available, Requested: qty}
}

// Restock suma qty a las existencias.
func (r *ProductLedgerRepo) Restock(ctx context.Context, id string, qty int64) (int64, error) {
	query := `
		UPDATE products SET quantity = quantity + $2, updated_at = now()
		WHERE id = $1
		RETURNING quantity`
	var newQty int64
	if err := r.q.QueryRow(ctx, query, id, qty).Scan(&newQty); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, domain.ErrNotFound
		}
		if isOutOfRange(err) {
			return 0, &domain.ValidationError{Kind: domain.ErrInvalidQuantity, Line: -1, ProductID: id, Quantity: strconv.FormatInt(qty, 10)}
		}
		return 0, classify("restock", err)
	}
	return newQty, nil
}

// UpdatePrices fija los precios vigentes; sale_items guarda su propio precio unitario.
func (r *ProductLedgerRepo) UpdatePrices(ctx context.Context, id string, purchase, selling decimal.Decimal) error {
	query := `
		UPDATE products SET purchase_price = $2, selling_price = $3, updated_at = now()
		WHERE id = $1`
	tag, err := r.q.Exec(ctx, query, id, purchase, selling)
	if err != nil {
		return classify("update prices", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *ProductLedgerRepo) queryProducts(ctx context.Context, op, query string, args ...any) ([]*entity.Product, error) {
	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, classify(op, err)
	}
	defer rows.Close()

	list := make([]*entity.Product, 0)
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("%s scan: %w", op, err)
		}
		list = append(list, p)
	}
	if err := rows.Err(); err != nil {
		return nil, classify(op, err)
	}
	return list, nil
}

func scanProduct(row pgxScanner) (*entity.Product, error) {
	var p entity.Product
	err := row.Scan(
		&p.ID, &p.BranchID, &p.Name, &p.VendorID, &p.Quantity,
		&p.PurchasePrice, &p.SellingPrice, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &p, nil
}
