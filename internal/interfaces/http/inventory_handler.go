package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/ventas-api/internal/application/dto"
	"github.com/jhoicas/ventas-api/internal/application/inventory"
)

// InventoryHandler maneja las entradas de mercancía (protegido).
type InventoryHandler struct {
	restock *inventory.RestockUseCase
}

// NewInventoryHandler construye el handler.
func NewInventoryHandler(restock *inventory.RestockUseCase) *InventoryHandler {
	return &InventoryHandler{restock: restock}
}

// Restock godoc
// @Summary      Reponer existencias
// @Tags         inventory
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.RestockRequest  true  "product_id, quantity (entero positivo)"
// @Success      200   {object}  dto.RestockResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      403   {object}  dto.ErrorResponse
// @Failure      404   {object}  dto.ErrorResponse
// @Router       /api/inventory/restock [post]
func (h *InventoryHandler) Restock(c *fiber.Ctx) error {
	var in dto.RestockRequest
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "cuerpo inválido"})
	}
	out, err := h.restock.Restock(c.UserContext(), ScopeFrom(c), in)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(out)
}
