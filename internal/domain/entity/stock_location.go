package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// StockLocation representa la cantidad de un producto en una (ciudad, agencia) del workspace.
// CityKey y AgencyKey son las claves canónicas usadas para la unicidad; City y Agency
// conservan el texto tal como lo escribió el operador.
type StockLocation struct {
	ID          string
	WorkspaceID string
	ProductID   string
	City        string
	Agency      string
	CityKey     string
	AgencyKey   string
	Quantity    int64
	UnitCost    decimal.Decimal
	Notes       string
	UpdatedBy   string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// SumQuantities devuelve la suma de cantidades de las ubicaciones.
func SumQuantities(locations []*StockLocation) int64 {
	var total int64
	for _, l := range locations {
		total += l.Quantity
	}
	return total
}
