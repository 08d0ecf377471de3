package stock

import (
	"strings"

	"github.com/jhoicas/stock-ledger/internal/domain"
)

// SourceOfTruth indica qué representación gana cuando el contador y la suma de ubicaciones
// no coinciden durante una reconciliación.
type SourceOfTruth string

const (
	// TruthLocations: las ubicaciones reflejan la realidad física; el contador se reescribe.
	TruthLocations SourceOfTruth = "locations"
	// TruthCounter: el contador manda; las ubicaciones se corrigen con la política de asignación.
	TruthCounter SourceOfTruth = "counter"
)

// ParseSourceOfTruth resuelve el nombre recibido en configuración o en la ruta. Vacío devuelve def.
func ParseSourceOfTruth(s string, def SourceOfTruth) (SourceOfTruth, error) {
	switch SourceOfTruth(strings.ToLower(strings.TrimSpace(s))) {
	case "":
		return def, nil
	case TruthLocations:
		return TruthLocations, nil
	case TruthCounter:
		return TruthCounter, nil
	}
	return "", domain.ErrInvalidSourceOfTruth
}
