package domain

import (
	"errors"
	"fmt"
	"net/http"
)

// Errores de dominio (sin dependencias externas).
var (
	ErrNotFound     = errors.New("recurso no encontrado")
	ErrInvalidInput = errors.New("entrada inválida")
	ErrDuplicate    = errors.New("recurso duplicado")
	ErrUnauthorized = errors.New("no autorizado")
	ErrForbidden    = errors.New("acceso denegado")
)

// Códigos de error del motor de stock. Se exponen tal cual en el cuerpo JSON de error.
const (
	CodeWorkspaceRequired  = "WORKSPACE_REQUIRED"
	CodeProductRequired    = "PRODUCT_REQUIRED"
	CodeLocationRequired   = "LOCATION_REQUIRED"
	CodeInvalidDelta       = "INVALID_DELTA"
	CodeInvalidAdjustment  = "INVALID_ADJUSTMENT"
	CodeProductNotFound    = "PRODUCT_NOT_FOUND"
	CodeLocationNotFound   = "LOCATION_NOT_FOUND"
	CodeInsufficientStock  = "INSUFFICIENT_STOCK"
	CodeInvalidPolicy      = "INVALID_POLICY"
	CodeInvalidSourceTruth = "INVALID_SOURCE_OF_TRUTH"
)

// StockError es el único tipo de error esperado del motor de stock: lleva mensaje,
// código estable y el status HTTP que debe devolver la capa de rutas.
// Nunca se reintenta internamente.
type StockError struct {
	Code       string
	Message    string
	HTTPStatus int
}

func (e *StockError) Error() string { return e.Message }

// Is compara por código, así errors.Is(err, ErrInsufficientStock) funciona aunque el
// mensaje lleve la cantidad actual.
func (e *StockError) Is(target error) bool {
	t, ok := target.(*StockError)
	if !ok {
		return false
	}
	return t.Code == e.Code
}

var (
	ErrWorkspaceRequired = &StockError{Code: CodeWorkspaceRequired, Message: "workspace requerido", HTTPStatus: http.StatusBadRequest}
	ErrProductRequired   = &StockError{Code: CodeProductRequired, Message: "producto requerido", HTTPStatus: http.StatusBadRequest}
	ErrLocationRequired  = &StockError{Code: CodeLocationRequired, Message: "ubicación de stock requerida", HTTPStatus: http.StatusBadRequest}
	ErrInvalidDelta      = &StockError{Code: CodeInvalidDelta, Message: "delta inválido: debe ser un entero distinto de cero", HTTPStatus: http.StatusBadRequest}
	ErrInvalidAdjustment = &StockError{Code: CodeInvalidAdjustment, Message: "ajuste inválido: debe ser un entero distinto de cero", HTTPStatus: http.StatusBadRequest}
	ErrProductNotFound   = &StockError{Code: CodeProductNotFound, Message: "producto no encontrado", HTTPStatus: http.StatusNotFound}
	ErrLocationNotFound  = &StockError{Code: CodeLocationNotFound, Message: "ubicación de stock no encontrada", HTTPStatus: http.StatusNotFound}
	ErrInsufficientStock = &StockError{Code: CodeInsufficientStock, Message: "stock insuficiente", HTTPStatus: http.StatusBadRequest}
)

// Errores de configuración de políticas (parámetros de ruta o de entorno).
var (
	ErrInvalidPolicy        = &StockError{Code: CodeInvalidPolicy, Message: "política de asignación desconocida", HTTPStatus: http.StatusBadRequest}
	ErrInvalidSourceOfTruth = &StockError{Code: CodeInvalidSourceTruth, Message: "fuente de verdad desconocida", HTTPStatus: http.StatusBadRequest}
)

// InsufficientStock construye el error de stock insuficiente con la cantidad actual en el mensaje.
func InsufficientStock(current, requested int64) *StockError {
	return &StockError{
		Code:       CodeInsufficientStock,
		Message:    fmt.Sprintf("stock insuficiente: disponible %d, solicitado %d", current, requested),
		HTTPStatus: http.StatusBadRequest,
	}
}

// AsStockError extrae el *StockError de la cadena, si lo hay.
func AsStockError(err error) (*StockError, bool) {
	var se *StockError
	if errors.As(err, &se) {
		return se, true
	}
	return nil, false
}
