package http

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/ventas-api/internal/application/dto"
	"github.com/jhoicas/ventas-api/internal/domain"
)

// retryAfterSeconds valor de Retry-After ante conflicto de concurrencia.
const retryAfterSeconds = "1"

// writeError traduce errores de dominio a dto.ErrorResponse con su status HTTP.
// Es el único punto del transporte que conoce la tabla de códigos.
func writeError(c *fiber.Ctx, err error) error {
	status, body := mapError(err)
	if status == fiber.StatusServiceUnavailable {
		c.Set(fiber.HeaderRetryAfter, retryAfterSeconds)
	}
	return c.Status(status).JSON(body)
}

func mapError(err error) (int, dto.ErrorResponse) {
	var verr *domain.ValidationError
	if errors.As(err, &verr) {
		status, code := validationCode(verr.Kind)
		detail := &dto.ErrorDetail{ProductID: verr.ProductID, Quantity: verr.Quantity}
		if verr.Line >= 0 {
			line := verr.Line
			detail.Line = &line
		}
		if detail.ProductID == "" && detail.Line == nil && detail.Quantity == "" {
			detail = nil
		}
		return status, dto.ErrorResponse{Code: code, Message: verr.Error(), Detail: detail}
	}

	var serr *domain.InsufficientStockError
	if errors.As(err, &serr) {
		available, requested := serr.Available, serr.Requested
		return fiber.StatusConflict, dto.ErrorResponse{
			Code:    "INSUFFICIENT_STOCK",
			Message: serr.Error(),
			Detail:  &dto.ErrorDetail{ProductID: serr.ProductID, Available: &available, Requested: &requested},
		}
	}

	switch {
	case errors.Is(err, domain.ErrBranchRequired):
		return fiber.StatusBadRequest, dto.ErrorResponse{Code: "BRANCH_REQUIRED", Message: domain.ErrBranchRequired.Error()}
	case errors.Is(err, domain.ErrInvalidInput):
		return fiber.StatusBadRequest, dto.ErrorResponse{Code: "VALIDATION", Message: err.Error()}
	case errors.Is(err, domain.ErrNotFound):
		return fiber.StatusNotFound, dto.ErrorResponse{Code: "NOT_FOUND", Message: "recurso no encontrado"}
	case errors.Is(err, domain.ErrUnauthorized):
		return fiber.StatusUnauthorized, dto.ErrorResponse{Code: "UNAUTHORIZED", Message: "token inválido"}
	case errors.Is(err, domain.ErrForbidden):
		return fiber.StatusForbidden, dto.ErrorResponse{Code: "FORBIDDEN", Message: "acceso denegado al recurso"}
	case errors.Is(err, domain.ErrInsufficientStock):
		return fiber.StatusConflict, dto.ErrorResponse{Code: "INSUFFICIENT_STOCK", Message: err.Error()}
	case errors.Is(err, domain.ErrConcurrencyConflict):
		return fiber.StatusServiceUnavailable, dto.ErrorResponse{Code: "CONCURRENCY_CONFLICT", Message: "conflicto de concurrencia, reintente"}
	}
	// el detalle de infraestructura se registra en el caso de uso; no se expone al cliente
	return fiber.StatusInternalServerError, dto.ErrorResponse{Code: "PERSISTENCE_FAILURE", Message: "fallo de persistencia"}
}

func validationCode(kind error) (int, string) {
	switch {
	case errors.Is(kind, domain.ErrEmptyCart):
		return fiber.StatusBadRequest, "EMPTY_CART"
	case errors.Is(kind, domain.ErrInvalidQuantity):
		return fiber.StatusBadRequest, "INVALID_QUANTITY"
	case errors.Is(kind, domain.ErrInvalidPrice):
		return fiber.StatusBadRequest, "INVALID_PRICE"
	case errors.Is(kind, domain.ErrUnknownProduct):
		return fiber.StatusUnprocessableEntity, "UNKNOWN_PRODUCT"
	case errors.Is(kind, domain.ErrUnknownCustomer):
		return fiber.StatusUnprocessableEntity, "UNKNOWN_CUSTOMER"
	}
	return fiber.StatusBadRequest, "VALIDATION"
}
