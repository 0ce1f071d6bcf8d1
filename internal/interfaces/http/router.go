package http

import (
	"github.com/gofiber/fiber/v2"

	appanalytics "github.com/jhoicas/ventas-api/internal/application/analytics"
	"github.com/jhoicas/ventas-api/internal/application/billing"
	"github.com/jhoicas/ventas-api/internal/application/inventory"
	"github.com/jhoicas/ventas-api/internal/domain"
)

// RouterDeps dependencias para el router.
type RouterDeps struct {
	Sales     *billing.CreateSaleUseCase
	Invoices  *billing.InvoiceExportUseCase
	Stock     *appanalytics.StockUseCase
	Dashboard *appanalytics.DashboardUseCase
	Restock   *inventory.RestockUseCase
	JWTSecret string
	AppName   string
}

// Router registra las rutas de la API.
func Router(app *fiber.App, deps RouterDeps) {
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok", "service": deps.AppName})
	})

	// Todo /api requiere Bearer Token con un rol conocido
	api := app.Group("/api",
		AuthMiddleware(deps.JWTSecret),
		RequireRole(domain.RoleAdmin, domain.RoleUser),
	)

	// Sales
	sales := api.Group("/sales")
	saleHandler := NewSaleHandler(deps.Sales, deps.Invoices)
	sales.Post("/", saleHandler.Create)
	sales.Get("/", saleHandler.List)
	sales.Get("/:id", saleHandler.GetByID)
	sales.Get("/:id/invoice", saleHandler.Invoice)

	// Analytics
	analyticsHandler := NewAnalyticsHandler(deps.Stock, deps.Dashboard)
	api.Get("/stock", analyticsHandler.GetStock)
	api.Get("/dashboard", analyticsHandler.GetDashboard)

	// Inventory
	inventoryHandler := NewInventoryHandler(deps.Restock)
	api.Post("/inventory/restock", inventoryHandler.Restock)
}
