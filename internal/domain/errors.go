package domain

import (
	"errors"
	"fmt"
)

// Errores de dominio (sin dependencias externas).
var (
	ErrNotFound     = errors.New("recurso no encontrado")
	ErrInvalidInput = errors.New("entrada inválida")
	ErrUnauthorized = errors.New("no autorizado")
	ErrForbidden    = errors.New("acceso denegado")

	// Validación de ventas: siempre corregibles por el cliente, nunca se reintentan.
	ErrEmptyCart       = errors.New("el carrito está vacío")
	ErrInvalidQuantity = errors.New("la cantidad debe ser un entero positivo")
	ErrInvalidPrice    = errors.New("el precio unitario no puede ser negativo")
	ErrUnknownProduct  = errors.New("producto desconocido")
	ErrUnknownCustomer = errors.New("cliente desconocido")
	ErrBranchRequired  = errors.New("el usuario debe estar asignado a una sucursal")

	// Condición de negocio: el cliente decide si ajusta y reenvía.
	ErrInsufficientStock = errors.New("stock insuficiente")

	// Transitorio: es seguro reintentar createSale completo.
	ErrConcurrencyConflict = errors.New("conflicto de concurrencia")

	// ErrCommitUnknown el commit falló sin saber si llegó a aplicarse; se resuelve con la idempotency key.
	ErrCommitUnknown = errors.New("resultado del commit desconocido")

	// Fatal para la petición en curso.
	ErrPersistence = errors.New("fallo de persistencia")
)

// ValidationError describe un error de validación con detalle estructurado.
// Kind es uno de ErrEmptyCart, ErrInvalidQuantity, ErrInvalidPrice, ErrUnknownProduct, ErrUnknownCustomer.
type ValidationError struct {
	Kind      error
	Line      int // índice de la línea del carrito (-1 si no aplica)
	ProductID string
	Quantity  string // valor recibido, tal cual
}

func (e *ValidationError) Error() string {
	switch {
	case e.ProductID != "" && e.Line >= 0:
		return fmt.Sprintf("%s (línea %d, producto %s)", e.Kind, e.Line, e.ProductID)
	case e.ProductID != "":
		return fmt.Sprintf("%s (%s)", e.Kind, e.ProductID)
	case e.Line >= 0:
		return fmt.Sprintf("%s (línea %d)", e.Kind, e.Line)
	}
	return e.Kind.Error()
}

func (e *ValidationError) Unwrap() error { return e.Kind }

// Is permite errors.Is(err, ErrInvalidInput) para cualquier error de validación.
func (e *ValidationError) Is(target error) bool { return target == ErrInvalidInput }

// NewValidationError construye un error de validación sin línea asociada.
func NewValidationError(kind error) *ValidationError {
	return &ValidationError{Kind: kind, Line: -1}
}

// InsufficientStockError reporta disponible vs solicitado para un producto.
type InsufficientStockError struct {
	ProductID string
	Available int64
	Requested int64
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("stock insuficiente para %s: disponible %d, solicitado %d", e.ProductID, e.Available, e.Requested)
}

func (e *InsufficientStockError) Is(target error) bool { return target == ErrInsufficientStock }

// PersistenceError fallo de infraestructura no reintentable.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("%s: %s: %v", ErrPersistence, e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

func (e *PersistenceError) Is(target error) bool { return target == ErrPersistence }
