package http

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/ventas-api/internal/application/billing"
	"github.com/jhoicas/ventas-api/internal/application/dto"
)

// HeaderIdempotencyKey cabecera opcional con la idempotency key de la venta.
const HeaderIdempotencyKey = "Idempotency-Key"

// SaleHandler maneja las peticiones HTTP de ventas y su factura (protegido).
type SaleHandler struct {
	sales    *billing.CreateSaleUseCase
	invoices *billing.InvoiceExportUseCase
}

// NewSaleHandler construye el handler.
func NewSaleHandler(sales *billing.CreateSaleUseCase, invoices *billing.InvoiceExportUseCase) *SaleHandler {
	return &SaleHandler{sales: sales, invoices: invoices}
}

// Create godoc
// @Summary      Registrar venta
// @Description  Reserva existencias, asigna número de factura y persiste la venta en una sola transacción.
//
//	Reenviar con la misma Idempotency-Key devuelve la venta original.
//
// @Tags         sales
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        Idempotency-Key  header  string                 false  "clave de idempotencia"
// @Param        body             body    dto.CreateSaleRequest  true   "customer_id, items[product_id, quantity, unit_price_override]"
// @Success      201  {object}  dto.SaleResponse
// @Failure      400  {object}  dto.ErrorResponse
// @Failure      409  {object}  dto.ErrorResponse
// @Failure      422  {object}  dto.ErrorResponse
// @Failure      503  {object}  dto.ErrorResponse
// @Router       /api/sales [post]
func (h *SaleHandler) Create(c *fiber.Ctx) error {
	var in dto.CreateSaleRequest
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "cuerpo inválido"})
	}
	if key := strings.TrimSpace(c.Get(HeaderIdempotencyKey)); key != "" {
		in.IdempotencyKey = key
	}
	sale, err := h.sales.CreateSale(c.UserContext(), ScopeFrom(c), in)
	if err != nil {
		return writeError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(dto.ToSaleResponse(sale))
}

// List ventas más recientes primero.
// GET /api/sales?branch_id=&limit=
func (h *SaleHandler) List(c *fiber.Ctx) error {
	list, limit, err := h.sales.ListSales(c.UserContext(), ScopeFrom(c), c.Query("branch_id"), c.QueryInt("limit", 0))
	if err != nil {
		return writeError(c, err)
	}
	out := dto.SaleListResponse{Items: make([]dto.SaleResponse, 0, len(list)), Limit: limit}
	for _, s := range list {
		out.Items = append(out.Items, dto.ToSaleResponse(s))
	}
	return c.JSON(out)
}

// GetByID detalle de una venta.
// GET /api/sales/:id
func (h *SaleHandler) GetByID(c *fiber.Ctx) error {
	sale, err := h.sales.GetSale(c.UserContext(), ScopeFrom(c), c.Params("id"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(dto.ToSaleResponse(sale))
}

// Invoice godoc
// @Summary      Descargar factura de una venta
// @Tags         sales
// @Security     Bearer
// @Produce      application/pdf
// @Produce      application/xml
// @Param        id      path   string  true   "ID de la venta"
// @Param        format  query  string  false  "pdf (por defecto) o xml"
// @Success      200
// @Failure      400  {object}  dto.ErrorResponse
// @Failure      403  {object}  dto.ErrorResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/sales/{id}/invoice [get]
func (h *SaleHandler) Invoice(c *fiber.Ctx) error {
	inv, err := h.invoices.Export(c.UserContext(), ScopeFrom(c), c.Params("id"), c.Query("format"))
	if err != nil {
		return writeError(c, err)
	}
	c.Set(fiber.HeaderContentType, inv.ContentType)
	c.Set(fiber.HeaderContentDisposition, `attachment; filename="`+inv.Filename+`"`)
	return c.Send(inv.Content)
}
