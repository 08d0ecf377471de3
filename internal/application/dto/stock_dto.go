package dto

import (
	"time"

	"github.com/shopspring/decimal"
)

// AdjustStockRequest body para POST /api/products/:id/stock/adjust.
// Delta llega como número JSON; se valida como entero distinto de cero en la capa de aplicación.
type AdjustStockRequest struct {
	Delta  float64 `json:"delta"`
	Reason string  `json:"reason,omitempty" validate:"max=255"`
}

// DistributeStockRequest body para POST /api/products/:id/stock/distribute.
type DistributeStockRequest struct {
	Delta    float64          `json:"delta"`
	Reason   string           `json:"reason,omitempty" validate:"max=255"`
	// largest_out_smallest_in | largest_first | smallest_first | round_robin
	Policy   string           `json:"policy,omitempty"`
	// Solo créditos: recalcula el costo promedio.
	UnitCost *decimal.Decimal `json:"unit_cost,omitempty" validate:"omitempty,gte=0"`
}

// AdjustLocationRequest body para POST /api/stock/locations/:entryId/adjust.
type AdjustLocationRequest struct {
	Adjustment float64 `json:"adjustment"`
	Reason     string  `json:"reason,omitempty" validate:"max=255"`
}

// UpsertLocationRequest body para PUT /api/products/:id/stock/locations.
type UpsertLocationRequest struct {
	City     string          `json:"city" validate:"required,max=120"`
	Agency   string          `json:"agency" validate:"required,max=120"`
	Quantity int64           `json:"quantity" validate:"gte=0"`
	UnitCost decimal.Decimal `json:"unit_cost" validate:"gte=0"`
	Notes    string          `json:"notes,omitempty" validate:"max=500"`
}

// ResyncRequest body para POST /api/stock/resync.
type ResyncRequest struct {
	SourceOfTruth string `json:"source_of_truth,omitempty"` // locations | counter
	Policy        string `json:"policy,omitempty"`
	DryRun        bool   `json:"dry_run,omitempty"`
}

// StockLocationResponse salida de una ubicación de stock.
type StockLocationResponse struct {
	ID        string          `json:"id"`
	ProductID string          `json:"product_id"`
	City      string          `json:"city"`
	Agency    string          `json:"agency"`
	Quantity  int64           `json:"quantity"`
	UnitCost  decimal.Decimal `json:"unit_cost"`
	Notes     string          `json:"notes"`
	UpdatedBy string          `json:"updated_by,omitempty"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// AllocationResponse cambio aplicado a una ubicación durante un reparto.
type AllocationResponse struct {
	LocationID string `json:"location_id"`
	City       string `json:"city"`
	Agency     string `json:"agency"`
	Delta      int64  `json:"delta"`
	Quantity   int64  `json:"quantity"`
}

// DistributeStockResponse resultado de un reparto.
type DistributeStockResponse struct {
	Success     bool                 `json:"success"`
	Total       int64                `json:"total"`
	Policy      string               `json:"policy,omitempty"`
	FellBack    bool                 `json:"fell_back"` // sin ubicaciones: se ajustó solo el contador
	Allocations []AllocationResponse `json:"allocations"`
}

// AdjustLocationResponse resultado del ajuste de una ubicación y la sincronización del contador.
type AdjustLocationResponse struct {
	Success  bool                  `json:"success"`
	Location StockLocationResponse `json:"location"`
	Total    int64                 `json:"total"`
}

// ResyncResultResponse estado de reconciliación de un producto.
type ResyncResultResponse struct {
	ProductID      string `json:"product_id"`
	Status         string `json:"status"` // ok | resynced | drift
	Counter        int64  `json:"counter"`
	LocationsTotal int64  `json:"locations_total"`
	Before         *int64 `json:"before,omitempty"`
	After          *int64 `json:"after,omitempty"`
}

// ResyncResponse reporte de la reconciliación.
type ResyncResponse struct {
	Success       bool                   `json:"success"`
	SourceOfTruth string                 `json:"source_of_truth"`
	DryRun        bool                   `json:"dry_run"`
	Results       []ResyncResultResponse `json:"results"`
}

// StockEventResponse entrada del registro de movimientos.
type StockEventResponse struct {
	Seq           int64     `json:"seq"`
	LocationID    string    `json:"location_id,omitempty"`
	Kind          string    `json:"kind"`
	Delta         int64     `json:"delta"`
	QuantityAfter int64     `json:"quantity_after"`
	Actor         string    `json:"actor,omitempty"`
	Reason        string    `json:"reason,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}

// StockEventListResponse lista paginada de eventos.
type StockEventListResponse struct {
	Items []StockEventResponse `json:"items"`
	Page  PageResponse         `json:"page"`
}
