package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/jhoicas/stock-ledger/internal/application/dto"
	"github.com/jhoicas/stock-ledger/internal/application/inventory"
	"github.com/jhoicas/stock-ledger/internal/domain/entity"
)

// StockHandler expone el motor de stock: ajustes, repartos, reconciliación y eventos (protegido).
type StockHandler struct {
	stock  *inventory.StockUseCase
	resync *inventory.ResyncUseCase
	report *inventory.ReportUseCase
}

// NewStockHandler construye el handler.
func NewStockHandler(stock *inventory.StockUseCase, resync *inventory.ResyncUseCase, report *inventory.ReportUseCase) *StockHandler {
	return &StockHandler{stock: stock, resync: resync, report: report}
}

// Adjust godoc
// @Summary      Ajustar el contador de stock
// @Description  Suma delta (entero distinto de cero, con signo) al contador del producto en una
// @Description  sola escritura condicional. Nunca deja el stock negativo.
// @Tags         stock
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        id    path  string                  true  "ID del producto"
// @Param        body  body  dto.AdjustStockRequest  true  "delta y motivo"
// @Success      200   {object}  dto.ProductResponse
// @Failure      400   {object}  dto.ErrorResponse  "INVALID_DELTA | INSUFFICIENT_STOCK"
// @Failure      404   {object}  dto.ErrorResponse  "PRODUCT_NOT_FOUND"
// @Router       /api/products/{id}/stock/adjust [post]
func (h *StockHandler) Adjust(c *fiber.Ctx) error {
	workspaceID := GetWorkspaceID(c)
	if workspaceID == "" {
		return unauthorized(c)
	}
	var in dto.AdjustStockRequest
	if err := parseBody(c, &in); err != nil {
		return badBody(c, err)
	}
	p, err := h.stock.AdjustFromRequest(c.Context(), workspaceID, GetUserID(c), c.Params("id"), in)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(toProductResponse(p))
}

// Distribute godoc
// @Summary      Repartir un delta entre ubicaciones
// @Description  Aplica delta sobre las ubicaciones según la política (largest_out_smallest_in por defecto)
// @Description  y reescribe el contador con la suma. Todo o nada.
// @Tags         stock
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        id    path  string                      true  "ID del producto"
// @Param        body  body  dto.DistributeStockRequest  true  "delta, motivo, política y costo unitario opcional"
// @Success      200   {object}  dto.DistributeStockResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      404   {object}  dto.ErrorResponse
// @Router       /api/products/{id}/stock/distribute [post]
func (h *StockHandler) Distribute(c *fiber.Ctx) error {
	workspaceID := GetWorkspaceID(c)
	if workspaceID == "" {
		return unauthorized(c)
	}
	var in dto.DistributeStockRequest
	if err := parseBody(c, &in); err != nil {
		return badBody(c, err)
	}
	res, err := h.stock.DistributeFromRequest(c.Context(), workspaceID, GetUserID(c), c.Params("id"), in)
	if err != nil {
		return writeError(c, err)
	}
	out := dto.DistributeStockResponse{
		Success:     true,
		Total:       res.Total,
		Policy:      res.Policy,
		FellBack:    res.FellBack,
		Allocations: make([]dto.AllocationResponse, 0, len(res.Allocations)),
	}
	for _, a := range res.Allocations {
		out.Allocations = append(out.Allocations, dto.AllocationResponse{
			LocationID: a.LocationID,
			City:       a.City,
			Agency:     a.Agency,
			Delta:      a.Delta,
			Quantity:   a.Quantity,
		})
	}
	return c.JSON(out)
}

// AdjustLocation godoc
// @Summary      Ajustar una ubicación de stock
// @Description  Aplica el ajuste a una sola ubicación y luego sincroniza el contador del producto.
// @Tags         stock
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        entryId  path  string                     true  "ID de la ubicación"
// @Param        body     body  dto.AdjustLocationRequest  true  "ajuste y motivo"
// @Success      200      {object}  dto.AdjustLocationResponse
// @Failure      400      {object}  dto.ErrorResponse  "INVALID_ADJUSTMENT | INSUFFICIENT_STOCK"
// @Failure      404      {object}  dto.ErrorResponse  "LOCATION_NOT_FOUND"
// @Router       /api/stock/locations/{entryId}/adjust [post]
func (h *StockHandler) AdjustLocation(c *fiber.Ctx) error {
	workspaceID := GetWorkspaceID(c)
	if workspaceID == "" {
		return unauthorized(c)
	}
	var in dto.AdjustLocationRequest
	if err := parseBody(c, &in); err != nil {
		return badBody(c, err)
	}
	loc, product, err := h.stock.AdjustLocationFromRequest(c.Context(), workspaceID, GetUserID(c), c.Params("entryId"), in)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(dto.AdjustLocationResponse{
		Success:  true,
		Location: toLocationResponse(loc),
		Total:    product.Stock,
	})
}

// Events godoc
// @Summary      Registro de movimientos de stock
// @Tags         stock
// @Security     Bearer
// @Produce      json
// @Param        id      path   string  true   "ID del producto"
// @Param        limit   query  int     false  "Límite"  default(20)
// @Param        offset  query  int     false  "Offset"  default(0)
// @Success      200     {object}  dto.StockEventListResponse
// @Failure      404     {object}  dto.ErrorResponse
// @Router       /api/products/{id}/stock/events [get]
func (h *StockHandler) Events(c *fiber.Ctx) error {
	page := dto.PageRequest{Limit: c.QueryInt("limit", 20), Offset: c.QueryInt("offset", 0)}
	page.DefaultPage()
	events, err := h.stock.ListEvents(c.Context(), GetWorkspaceID(c), c.Params("id"), page.Limit, page.Offset)
	if err != nil {
		return writeError(c, err)
	}
	out := dto.StockEventListResponse{
		Items: make([]dto.StockEventResponse, 0, len(events)),
		Page:  dto.PageResponse{Limit: page.Limit, Offset: page.Offset},
	}
	for _, ev := range events {
		out.Items = append(out.Items, toEventResponse(ev))
	}
	return c.JSON(out)
}

// Resync godoc
// @Summary      Reconciliar contador y ubicaciones
// @Description  Compara el contador de cada producto con la suma de sus ubicaciones y corrige
// @Description  según la fuente de verdad (locations por defecto). dry_run solo informa.
// @Tags         stock
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.ResyncRequest  false  "source_of_truth, policy, dry_run"
// @Success      200   {object}  dto.ResyncResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      403   {object}  dto.ErrorResponse
// @Router       /api/stock/resync [post]
func (h *StockHandler) Resync(c *fiber.Ctx) error {
	workspaceID := GetWorkspaceID(c)
	if workspaceID == "" {
		return unauthorized(c)
	}
	var in dto.ResyncRequest
	if len(c.Body()) > 0 {
		if err := parseBody(c, &in); err != nil {
			return badBody(c, err)
		}
	}
	report, err := h.resync.Resync(c.Context(), workspaceID, inventory.ResyncOptions{
		SourceOfTruth: in.SourceOfTruth,
		Policy:        in.Policy,
		DryRun:        in.DryRun,
		Actor:         GetUserID(c),
	})
	if err != nil {
		return writeError(c, err)
	}
	out := dto.ResyncResponse{
		Success:       true,
		SourceOfTruth: string(report.SourceOfTruth),
		DryRun:        report.DryRun,
		Results:       make([]dto.ResyncResultResponse, 0, len(report.Results)),
	}
	for _, r := range report.Results {
		out.Results = append(out.Results, dto.ResyncResultResponse{
			ProductID:      r.ProductID,
			Status:         r.Status,
			Counter:        r.Counter,
			LocationsTotal: r.LocationsTotal,
			Before:         r.Before,
			After:          r.After,
		})
	}
	return c.JSON(out)
}

// ResyncReport godoc
// @Summary      Reporte PDF de diferencias de stock
// @Description  Ejecuta la reconciliación en modo lectura y la devuelve como PDF.
// @Tags         stock
// @Security     Bearer
// @Produce      application/pdf
// @Param        source_of_truth  query  string  false  "locations | counter"
// @Param        policy           query  string  false  "largest_first | smallest_first | round_robin | largest_out_smallest_in"
// @Success      200  {file}    binary
// @Failure      400  {object}  dto.ErrorResponse
// @Router       /api/stock/resync/report.pdf [get]
func (h *StockHandler) ResyncReport(c *fiber.Ctx) error {
	workspaceID := GetWorkspaceID(c)
	if workspaceID == "" {
		return unauthorized(c)
	}
	pdfBytes, err := h.report.DriftReportPDF(c.Context(), workspaceID, inventory.ResyncOptions{
		SourceOfTruth: c.Query("source_of_truth"),
		Policy:        c.Query("policy"),
	})
	if err != nil {
		return writeError(c, err)
	}
	c.Set(fiber.HeaderContentType, "application/pdf")
	c.Set(fiber.HeaderContentDisposition, `inline; filename="reconciliacion-stock.pdf"`)
	return c.Send(pdfBytes)
}

func toProductResponse(p *entity.Product) dto.ProductResponse {
	return dto.ProductResponse{
		ID:          p.ID,
		WorkspaceID: p.WorkspaceID,
		SKU:         p.SKU,
		Name:        p.Name,
		Description: p.Description,
		Price:       p.Price,
		Stock:       p.Stock,
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
	}
}

func toLocationResponse(l *entity.StockLocation) dto.StockLocationResponse {
	return dto.StockLocationResponse{
		ID:        l.ID,
		ProductID: l.ProductID,
		City:      l.City,
		Agency:    l.Agency,
		Quantity:  l.Quantity,
		UnitCost:  l.UnitCost,
		Notes:     l.Notes,
		UpdatedBy: l.UpdatedBy,
		UpdatedAt: l.UpdatedAt,
	}
}

func toEventResponse(ev *entity.StockEvent) dto.StockEventResponse {
	return dto.StockEventResponse{
		Seq:           ev.Seq,
		LocationID:    ev.LocationID,
		Kind:          ev.Kind,
		Delta:         ev.Delta,
		QuantityAfter: ev.QuantityAfter,
		Actor:         ev.Actor,
		Reason:        ev.Reason,
		CreatedAt:     ev.CreatedAt,
	}
}
