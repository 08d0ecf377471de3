package entity

import "time"

// Tipos de evento del registro de auditoría de stock.
const (
	StockEventAdjust         = "adjust"          // ajuste atómico del contador
	StockEventDistribute     = "distribute"      // reparto de un delta sobre una ubicación
	StockEventLocationAdjust = "location_adjust" // ajuste atómico de una sola ubicación
	StockEventLocationUpsert = "location_upsert"
	StockEventLocationDelete = "location_delete"
	StockEventCounterSync    = "counter_sync" // contador reescrito con la suma de ubicaciones
	StockEventResync         = "resync"       // ubicación corregida por la reconciliación
)

// StockEvent es una entrada inmutable del registro de movimientos de stock.
// LocationID vacío indica un evento a nivel de contador. Seq la asigna el almacén y
// define el orden total de los eventos.
type StockEvent struct {
	ID            string
	Seq           int64
	WorkspaceID   string
	ProductID     string
	LocationID    string
	Kind          string
	Delta         int64
	QuantityAfter int64
	Actor         string
	Reason        string
	CreatedAt     time.Time
}
