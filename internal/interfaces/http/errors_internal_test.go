package http

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"

	"github.com/jhoicas/ventas-api/internal/domain"
)

func TestMapError(t *testing.T) {
	cases := []struct {
		err    error
		status int
		code   string
	}{
		{domain.NewValidationError(domain.ErrEmptyCart), fiber.StatusBadRequest, "EMPTY_CART"},
		{&domain.ValidationError{Kind: domain.ErrUnknownProduct, Line: 2, ProductID: "p"}, fiber.StatusUnprocessableEntity, "UNKNOWN_PRODUCT"},
		{domain.ErrBranchRequired, fiber.StatusBadRequest, "BRANCH_REQUIRED"},
		{fmt.Errorf("x: %w", domain.ErrNotFound), fiber.StatusNotFound, "NOT_FOUND"},
		{domain.ErrForbidden, fiber.StatusForbidden, "FORBIDDEN"},
		{&domain.InsufficientStockError{ProductID: "p", Available: 1, Requested: 2}, fiber.StatusConflict, "INSUFFICIENT_STOCK"},
		{fmt.Errorf("%w: lock", domain.ErrConcurrencyConflict), fiber.StatusServiceUnavailable, "CONCURRENCY_CONFLICT"},
		{&domain.PersistenceError{Op: "x", Err: fmt.Errorf("boom")}, fiber.StatusInternalServerError, "PERSISTENCE_FAILURE"},
	}
	for _, tc := range cases {
		status, body := mapError(tc.err)
		assert.Equal(t, tc.status, status, tc.err.Error())
		assert.Equal(t, tc.code, body.Code, tc.err.Error())
	}
}

func TestMapError_LineaEnDetalle(t *testing.T) {
	_, body := mapError(&domain.ValidationError{Kind: domain.ErrInvalidQuantity, Line: 0, ProductID: "p1", Quantity: "1.5"})
	if assert.NotNil(t, body.Detail) && assert.NotNil(t, body.Detail.Line) {
		assert.Equal(t, 0, *body.Detail.Line)
		assert.Equal(t, "1.5", body.Detail.Quantity)
	}

	_, body = mapError(domain.NewValidationError(domain.ErrEmptyCart))
	assert.Nil(t, body.Detail)
}

func TestWriteError_RetryAfter(t *testing.T) {
	app := fiber.New()
	app.Get("/", func(c *fiber.Ctx) error { return writeError(c, domain.ErrConcurrencyConflict) })

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/", nil), -1)
	if assert.NoError(t, err) {
		assert.Equal(t, fiber.StatusServiceUnavailable, resp.StatusCode)
		assert.Equal(t, retryAfterSeconds, resp.Header.Get("Retry-After"))
	}
}
