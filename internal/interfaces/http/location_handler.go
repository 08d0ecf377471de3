package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/jhoicas/stock-ledger/internal/application/dto"
	"github.com/jhoicas/stock-ledger/internal/application/inventory"
)

// LocationHandler maneja las ubicaciones de stock de un producto (protegido).
type LocationHandler struct {
	uc *inventory.LocationUseCase
}

// NewLocationHandler construye el handler.
func NewLocationHandler(uc *inventory.LocationUseCase) *LocationHandler {
	return &LocationHandler{uc: uc}
}

// List godoc
// @Summary      Listar ubicaciones de un producto
// @Tags         stock
// @Security     Bearer
// @Produce      json
// @Param        id   path  string  true  "ID del producto"
// @Success      200  {array}   dto.StockLocationResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/products/{id}/stock/locations [get]
func (h *LocationHandler) List(c *fiber.Ctx) error {
	list, err := h.uc.List(c.Context(), GetWorkspaceID(c), c.Params("id"))
	if err != nil {
		return writeError(c, err)
	}
	out := make([]dto.StockLocationResponse, 0, len(list))
	for _, l := range list {
		out = append(out, toLocationResponse(l))
	}
	return c.JSON(out)
}

// Upsert godoc
// @Summary      Crear o reemplazar una ubicación
// @Description  Fija la cantidad absoluta de (ciudad, agencia). Ciudad y agencia se comparan sin
// @Description  distinguir mayúsculas, tildes compuestas ni espacios repetidos.
// @Tags         stock
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        id    path  string                     true  "ID del producto"
// @Param        body  body  dto.UpsertLocationRequest  true  "ciudad, agencia, cantidad, costo y notas"
// @Success      200   {object}  dto.AdjustLocationResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      404   {object}  dto.ErrorResponse
// @Router       /api/products/{id}/stock/locations [put]
func (h *LocationHandler) Upsert(c *fiber.Ctx) error {
	workspaceID := GetWorkspaceID(c)
	if workspaceID == "" {
		return unauthorized(c)
	}
	var in dto.UpsertLocationRequest
	if err := parseBody(c, &in); err != nil {
		return badBody(c, err)
	}
	loc, total, err := h.uc.Upsert(c.Context(), inventory.UpsertLocationInput{
		WorkspaceID: workspaceID,
		ProductID:   c.Params("id"),
		UserID:      GetUserID(c),
		City:        in.City,
		Agency:      in.Agency,
		Quantity:    in.Quantity,
		UnitCost:    in.UnitCost,
		Notes:       in.Notes,
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(dto.AdjustLocationResponse{Success: true, Location: toLocationResponse(loc), Total: total})
}

// Delete godoc
// @Summary      Eliminar una ubicación
// @Tags         stock
// @Security     Bearer
// @Produce      json
// @Param        entryId  path  string  true  "ID de la ubicación"
// @Success      200      {object}  map[string]interface{}
// @Failure      404      {object}  dto.ErrorResponse
// @Router       /api/stock/locations/{entryId} [delete]
func (h *LocationHandler) Delete(c *fiber.Ctx) error {
	total, err := h.uc.Delete(c.Context(), GetWorkspaceID(c), c.Params("entryId"), GetUserID(c))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(fiber.Map{"success": true, "total": total})
}
