package http

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/jhoicas/stock-ledger/internal/application/dto"
	"github.com/jhoicas/stock-ledger/internal/domain"
)

// localInternalError guarda la causa de un 500 para que RequestLogger la registre.
const localInternalError = "internal_error"

// writeError traduce un error de aplicación al cuerpo {success:false, message, code}.
// Los StockError llevan su propio status; el resto responde 500 sin exponer la causa al cliente.
func writeError(c *fiber.Ctx, err error) error {
	if se, ok := domain.AsStockError(err); ok {
		return c.Status(se.HTTPStatus).JSON(dto.ErrorResponse{Code: se.Code, Message: se.Message})
	}
	switch {
	case errors.Is(err, domain.ErrInvalidInput):
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: "datos inválidos"})
	case errors.Is(err, domain.ErrNotFound):
		return c.Status(fiber.StatusNotFound).JSON(dto.ErrorResponse{Code: "NOT_FOUND", Message: err.Error()})
	case errors.Is(err, domain.ErrDuplicate):
		return c.Status(fiber.StatusConflict).JSON(dto.ErrorResponse{Code: "DUPLICATE", Message: "el recurso ya existe"})
	case errors.Is(err, domain.ErrForbidden):
		return c.Status(fiber.StatusForbidden).JSON(dto.ErrorResponse{Code: "FORBIDDEN", Message: "acceso denegado al recurso"})
	}
	c.Locals(localInternalError, err)
	return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Code: "INTERNAL", Message: "error interno del servidor"})
}

// unauthorized responde 401 cuando la petición no está acotada a un workspace.
func unauthorized(c *fiber.Ctx) error {
	return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{Code: "MISSING_WORKSPACE", Message: "el token no identifica un workspace"})
}
