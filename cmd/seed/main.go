// seed carga productos y clientes desde CSV en PostgreSQL a través de los repositorios.
//
// Uso: go run ./cmd/seed -products productos.csv [-customers clientes.csv] [-encoding latin1]
//
// Columnas esperadas (con cabecera):
//
//	productos: id,branch_id,name,vendor_id,quantity,purchase_price,selling_price
//	clientes:  id,branch_id,name,address,phone
//
// Las migraciones se aplican antes de insertar.
package main

import (
	"context"
	"encoding/csv"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/transform"

	"github.com/jhoicas/ventas-api/internal/domain/entity"
	"github.com/jhoicas/ventas-api/internal/domain/repository"
	"github.com/jhoicas/ventas-api/internal/infrastructure/postgres"
	"github.com/jhoicas/ventas-api/pkg/config"
	"github.com/jhoicas/ventas-api/pkg/logger"
)

func main() {
	productsPath := flag.String("products", "", "CSV de productos")
	customersPath := flag.String("customers", "", "CSV de clientes")
	encoding := flag.String("encoding", "utf-8", "codificación de los CSV: utf-8 | latin1")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Cargar configuración: %v\n", err)
		os.Exit(1)
	}
	log := logger.New(logger.Config{Env: cfg.App.Env, Level: cfg.App.LogLevel})

	if *productsPath == "" && *customersPath == "" {
		fmt.Fprintln(os.Stderr, "Indicar -products y/o -customers")
		os.Exit(2)
	}

	ctx := context.Background()
	pool, err := postgres.NewPool(ctx, cfg.DB)
	if err != nil {
		log.Fatal().Err(err).Msg("conexión a PostgreSQL")
	}
	defer pool.Close()

	if err := postgres.Migrate(ctx, pool, log.Component("migrate")); err != nil {
		log.Fatal().Err(err).Msg("migraciones")
	}

	if *customersPath != "" {
		n, err := loadCustomers(ctx, *customersPath, *encoding, postgres.NewCustomerRepository(pool))
		if err != nil {
			log.Fatal().Err(err).Str("file", *customersPath).Msg("cargar clientes")
		}
		log.Info().Int("count", n).Msg("clientes cargados")
	}

	if *productsPath != "" {
		ledger := postgres.NewProductLedgerRepository(pool)
		n, err := loadProducts(ctx, *productsPath, *encoding, ledger)
		if err != nil {
			log.Fatal().Err(err).Str("file", *productsPath).Msg("cargar productos")
		}
		all, err := ledger.List(ctx, "")
		if err != nil {
			log.Fatal().Err(err).Msg("listar productos")
		}
		perBranch := make(map[string]int)
		for _, p := range all {
			perBranch[p.BranchID]++
		}
		for branch, count := range perBranch {
			log.Info().Str("branch_id", branch).Int("products", count).Msg("existencias por sucursal")
		}
		log.Info().Int("count", n).Msg("productos cargados")
	}
}

func loadProducts(ctx context.Context, path, encoding string, ledger repository.ProductLedger) (int, error) {
	rows, err := readCSV(path, encoding, 7)
	if err != nil {
		return 0, err
	}
	now := time.Now().UTC()
	for i, r := range rows {
		qty, err := strconv.ParseInt(strings.TrimSpace(r[4]), 10, 64)
		if err != nil || qty < 0 {
			return i, fmt.Errorf("fila %d: quantity inválida %q", i+2, r[4])
		}
		purchase, err := decimal.NewFromString(strings.TrimSpace(r[5]))
		if err != nil {
			return i, fmt.Errorf("fila %d: purchase_price: %w", i+2, err)
		}
		selling, err := decimal.NewFromString(strings.TrimSpace(r[6]))
		if err != nil {
			return i, fmt.Errorf("fila %d: selling_price: %w", i+2, err)
		}
		p := &entity.Product{
			ID:            idOrNew(r[0]),
			BranchID:      strings.TrimSpace(r[1]),
			Name:          strings.TrimSpace(r[2]),
			VendorID:      strings.TrimSpace(r[3]),
			Quantity:      qty,
			PurchasePrice: purchase,
			SellingPrice:  selling,
			CreatedAt:     now,
			UpdatedAt:     now,
		}
		existing, err := ledger.GetByID(ctx, p.ID)
		if err != nil {
			return i, fmt.Errorf("fila %d: %w", i+2, err)
		}
		if existing != nil {
			// recarga: solo se actualizan precios; las existencias se mueven con reposiciones
			if err := ledger.UpdatePrices(ctx, p.ID, purchase, selling); err != nil {
				return i, fmt.Errorf("fila %d: %w", i+2, err)
			}
			continue
		}
		if err := ledger.Create(ctx, p); err != nil {
			return i, fmt.Errorf("fila %d: %w", i+2, err)
		}
	}
	return len(rows), nil
}

func loadCustomers(ctx context.Context, path, encoding string, repo repository.CustomerRepository) (int, error) {
	rows, err := readCSV(path, encoding, 5)
	if err != nil {
		return 0, err
	}
	now := time.Now().UTC()
	for i, r := range rows {
		c := &entity.Customer{
			ID:        idOrNew(r[0]),
			BranchID:  strings.TrimSpace(r[1]),
			Name:      strings.TrimSpace(r[2]),
			Address:   strings.TrimSpace(r[3]),
			Phone:     strings.TrimSpace(r[4]),
			CreatedAt: now,
		}
		if err := repo.Create(ctx, c); err != nil {
			return i, fmt.Errorf("fila %d: %w", i+2, err)
		}
	}
	return len(rows), nil
}

// readCSV lee el archivo completo descartando la cabecera.
func readCSV(path, encoding string, columns int) ([][]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var in io.Reader = f
	switch strings.ToLower(encoding) {
	case "utf-8", "utf8", "":
	case "latin1", "iso-8859-1", "iso8859-1":
		in = transform.NewReader(f, charmap.ISO8859_1.NewDecoder())
	default:
		return nil, fmt.Errorf("codificación no soportada %q", encoding)
	}

	r := csv.NewReader(in)
	r.FieldsPerRecord = columns
	r.TrimLeadingSpace = true
	records, err := r.ReadAll()
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, errors.New("archivo vacío")
	}
	return records[1:], nil
}

func idOrNew(raw string) string {
	if id := strings.TrimSpace(raw); id != "" {
		return id
	}
	return uuid.New().String()
}
