package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/contrib/swagger"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"

	appanalytics "github.com/jhoicas/ventas-api/internal/application/analytics"
	"github.com/jhoicas/ventas-api/internal/application/billing"
	"github.com/jhoicas/ventas-api/internal/application/inventory"
	"github.com/jhoicas/ventas-api/internal/domain/entity"
	"github.com/jhoicas/ventas-api/internal/domain/repository"
	"github.com/jhoicas/ventas-api/internal/infrastructure/memory"
	infrapdf "github.com/jhoicas/ventas-api/internal/infrastructure/pdf"
	"github.com/jhoicas/ventas-api/internal/infrastructure/postgres"
	"github.com/jhoicas/ventas-api/internal/infrastructure/xmlexport"
	httpRouter "github.com/jhoicas/ventas-api/internal/interfaces/http"
	"github.com/jhoicas/ventas-api/pkg/config"
	"github.com/jhoicas/ventas-api/pkg/logger"
)

const swaggerFile = "./docs/swagger.json"

// backend puertos de persistencia del driver elegido.
type backend struct {
	ledger    repository.ProductLedger
	sales     repository.SaleRepository
	customers repository.CustomerRepository
	analytics repository.AnalyticsRepository
	txRunner  billing.SaleTxRunner
	close     func()
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("cargar configuración: " + err.Error())
	}

	log := logger.New(logger.Config{
		Env:   cfg.App.Env,
		Level: cfg.App.LogLevel,
	})
	log.Info().
		Str("env", cfg.App.Env).
		Str("app", cfg.App.Name).
		Str("store", cfg.Store.Driver).
		Msg("iniciando aplicación")

	if cfg.JWT.Secret == "" {
		log.Fatal().Msg("JWT_SECRET es obligatorio")
	}

	ctx := context.Background()
	be, err := openBackend(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("inicializar persistencia")
	}
	defer be.close()

	salesCfg := billing.SalesConfig{
		MaxAttempts:   cfg.Sales.MaxAttempts,
		RetryBackoff:  cfg.Sales.RetryBackoff,
		InvoicePrefix: cfg.Sales.InvoicePrefix,
	}
	createSaleUC := billing.NewCreateSaleUseCase(be.txRunner, be.sales, be.customers, salesCfg, log.Component("sales"))

	// PDF por defecto; XML para integraciones
	issuer := entity.Issuer{Name: cfg.Company.Name, Address: cfg.Company.Address, Phone: cfg.Company.Phone}
	invoiceUC := billing.NewInvoiceExportUseCase(be.sales, be.customers, issuer,
		infrapdf.NewMarotoInvoiceRenderer(),
		xmlexport.NewEtreeInvoiceRenderer(),
	)

	stockUC := appanalytics.NewStockUseCase(be.analytics)
	dashboardUC := appanalytics.NewDashboardUseCase(be.analytics)
	restockUC := inventory.NewRestockUseCase(be.ledger, log.Component("inventory"))

	app := fiber.New(fiber.Config{
		AppName:      cfg.App.Name,
		ReadTimeout:  time.Second * 10,
		WriteTimeout: time.Second * 10,
		IdleTimeout:  time.Second * 60,
	})
	app.Use(recover.New())
	app.Use(cors.New(cors.Config{AllowOrigins: cfg.HTTP.CORSOrigins}))
	app.Use(httpRouter.RequestLogger(log.Component("http")))

	// Swagger UI en local: http://localhost:<port>/docs
	if _, err := os.Stat(swaggerFile); err == nil {
		app.Use(swagger.New(swagger.Config{
			BasePath: "/",
			FilePath: swaggerFile,
			Path:     "docs",
			Title:    "Ventas API",
		}))
	}

	httpRouter.Router(app, httpRouter.RouterDeps{
		Sales:     createSaleUC,
		Invoices:  invoiceUC,
		Stock:     stockUC,
		Dashboard: dashboardUC,
		Restock:   restockUC,
		JWTSecret: cfg.JWT.Secret,
		AppName:   cfg.App.Name,
	})

	go func() {
		if err := app.Listen(cfg.HTTP.Addr()); err != nil {
			log.Error().Err(err).Msg("servidor HTTP finalizado")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("señal de apagado recibida, cerrando servidor...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("apagado del servidor")
	}

	log.Info().Msg("aplicación detenida")
}

func openBackend(ctx context.Context, cfg *config.Config, log *logger.Logger) (*backend, error) {
	if cfg.Store.Driver == config.StoreDriverMemory {
		log.Warn().Msg("usando almacenamiento en memoria: los datos se pierden al reiniciar")
		store := memory.New(cfg.Sales.LockTimeout)
		return &backend{
			ledger:    store,
			sales:     store.Sales(),
			customers: store.Customers(),
			analytics: store,
			txRunner:  store,
			close:     func() {},
		}, nil
	}

	pool, err := postgres.NewPool(ctx, cfg.DB)
	if err != nil {
		return nil, err
	}
	if cfg.DB.AutoMigrate {
		if err := postgres.Migrate(ctx, pool, log.Component("migrate")); err != nil {
			pool.Close()
			return nil, err
		}
	}
	txRunner := postgres.NewTxRunner(pool, cfg.Sales.LockTimeout)
	return &backend{
		ledger:    txRunner.Ledger(),
		sales:     postgres.NewSaleRepository(pool),
		customers: postgres.NewCustomerRepository(pool),
		analytics: postgres.NewAnalyticsRepository(txRunner),
		txRunner:  txRunner,
		close:     pool.Close,
	}, nil
}
