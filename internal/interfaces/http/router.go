package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/jhoicas/stock-ledger/internal/application/inventory"
	"github.com/jhoicas/stock-ledger/internal/application/usecase"
	"github.com/jhoicas/stock-ledger/pkg/jwt"
	"github.com/jhoicas/stock-ledger/pkg/logger"
)

// RouterDeps dependencias para el router.
type RouterDeps struct {
	ProductUC  *usecase.ProductUseCase
	StockUC    *inventory.StockUseCase
	LocationUC *inventory.LocationUseCase
	ResyncUC   *inventory.ResyncUseCase
	ReportUC   *inventory.ReportUseCase
	Verifier   *jwt.Verifier
	Log        *logger.Logger
}

// Router registra las rutas de la API.
func Router(app *fiber.App, deps RouterDeps) {
	if deps.Log != nil {
		app.Use(RequestLogger(deps.Log))
	}

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	api := app.Group("/api")

	// Rutas protegidas (requieren Bearer Token)
	protected := api.Group("/", AuthMiddleware(deps.Verifier))
	canRead := RequireRole(RoleAdmin, RoleOperator, RoleViewer)
	canWrite := RequireRole(RoleAdmin, RoleOperator)

	productHandler := NewProductHandler(deps.ProductUC)
	stockHandler := NewStockHandler(deps.StockUC, deps.ResyncUC, deps.ReportUC)
	locationHandler := NewLocationHandler(deps.LocationUC)

	// Products
	products := protected.Group("/products")
	products.Post("/", canWrite, productHandler.Create)
	products.Get("/", canRead, productHandler.List)
	products.Get("/:id", canRead, productHandler.GetByID)
	products.Put("/:id", canWrite, productHandler.Update)
	products.Delete("/:id", RequireRole(RoleAdmin), productHandler.Delete)

	// Stock por producto
	products.Post("/:id/stock/adjust", canWrite, stockHandler.Adjust)
	products.Post("/:id/stock/distribute", canWrite, stockHandler.Distribute)
	products.Get("/:id/stock/events", canRead, stockHandler.Events)
	products.Get("/:id/stock/locations", canRead, locationHandler.List)
	products.Put("/:id/stock/locations", canWrite, locationHandler.Upsert)

	// Ubicaciones y reconciliación
	stock := protected.Group("/stock")
	stock.Post("/locations/:entryId/adjust", canWrite, stockHandler.AdjustLocation)
	stock.Delete("/locations/:entryId", canWrite, locationHandler.Delete)
	stock.Post("/resync", RequireRole(RoleAdmin), stockHandler.Resync)
	stock.Get("/resync/report.pdf", RequireRole(RoleAdmin), stockHandler.ResyncReport)
}
