package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Product representa un producto del catálogo de un workspace.
// Stock es el contador autoritativo (StockCounter): entero no negativo que solo modifican
// el ajuste atómico y la resincronización con las ubicaciones.
type Product struct {
	ID          string
	WorkspaceID string
	SKU         string // único por workspace
	Name        string
	Description string
	Price       decimal.Decimal
	Stock       int64
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
