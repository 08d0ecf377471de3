package stock

import (
	"math"

	"github.com/jhoicas/stock-ledger/internal/domain"
	"github.com/jhoicas/stock-ledger/internal/domain/entity"
)

// DeltaFromFloat convierte el delta recibido en JSON (número) en un entero de unidades.
// Rechaza cero, NaN, ±Inf, valores con parte fraccionaria y los que no caben en int64.
func DeltaFromFloat(f float64) (int64, error) {
	return integralNonZero(f, domain.ErrInvalidDelta)
}

// AdjustmentFromFloat es la variante para ajustes de una sola ubicación (INVALID_ADJUSTMENT).
func AdjustmentFromFloat(f float64) (int64, error) {
	return integralNonZero(f, domain.ErrInvalidAdjustment)
}

func integralNonZero(f float64, invalid error) (int64, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) || f == 0 {
		return 0, invalid
	}
	if f != math.Trunc(f) || math.Abs(f) >= math.MaxInt64 {
		return 0, invalid
	}
	return int64(f), nil
}

// CanApply indica si current+delta queda dentro de [0, MaxInt64].
func CanApply(current, delta int64) bool {
	if delta == math.MinInt64 {
		return false
	}
	if delta < 0 {
		return current >= -delta
	}
	return current <= math.MaxInt64-delta
}

// CheckedTotal suma las cantidades de las ubicaciones; ok es false si la suma desborda int64.
func CheckedTotal(locations []*entity.StockLocation) (total int64, ok bool) {
	for _, l := range locations {
		if !CanApply(total, l.Quantity) {
			return 0, false
		}
		total += l.Quantity
	}
	return total, true
}
