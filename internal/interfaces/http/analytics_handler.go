package http

import (
	"time"

	"github.com/gofiber/fiber/v2"

	appanalytics "github.com/jhoicas/ventas-api/internal/application/analytics"
	"github.com/jhoicas/ventas-api/internal/application/dto"
)

// AnalyticsHandler maneja los endpoints de existencias y dashboard.
type AnalyticsHandler struct {
	stock     *appanalytics.StockUseCase
	dashboard *appanalytics.DashboardUseCase
}

// NewAnalyticsHandler construye el handler.
func NewAnalyticsHandler(stock *appanalytics.StockUseCase, dashboard *appanalytics.DashboardUseCase) *AnalyticsHandler {
	return &AnalyticsHandler{stock: stock, dashboard: dashboard}
}

// GetStock godoc
// @Summary      Existencias por producto
// @Tags         analytics
// @Security     Bearer
// @Produce      json
// @Param        branch_id      query  string  false  "Solo admin: sucursal a consultar. Vacío = todas."
// @Param        in_stock_only  query  bool    false  "Excluir productos sin existencias"
// @Success      200  {object}  dto.StockSummaryDTO
// @Failure      400  {object}  dto.ErrorResponse
// @Failure      500  {object}  dto.ErrorResponse
// @Router       /api/stock [get]
func (h *AnalyticsHandler) GetStock(c *fiber.Ctx) error {
	out, err := h.stock.GetStock(c.UserContext(), ScopeFrom(c), c.Query("branch_id"), c.QueryBool("in_stock_only", false))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(out)
}

// GetDashboard godoc
// @Summary      Ventas vs. compras y ventas mensuales
// @Description  Pliega el historial hasta as_of (inclusive, por defecto ahora). La utilidad se calcula al presentar.
// @Tags         analytics
// @Security     Bearer
// @Produce      json
// @Param        as_of      query  string  false  "Instante de corte (RFC3339)"
// @Param        branch_id  query  string  false  "Solo admin: sucursal a consultar. Vacío = todas."
// @Success      200  {object}  dto.DashboardDTO
// @Failure      400  {object}  dto.ErrorResponse
// @Failure      500  {object}  dto.ErrorResponse
// @Router       /api/dashboard [get]
func (h *AnalyticsHandler) GetDashboard(c *fiber.Ctx) error {
	var asOf time.Time
	if raw := c.Query("as_of"); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
				Code: "INVALID_PARAMS", Message: "as_of debe estar en formato RFC3339",
			})
		}
		asOf = t
	}
	out, err := h.dashboard.GetDashboard(c.UserContext(), ScopeFrom(c), c.Query("branch_id"), asOf)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(out)
}
