package stock

import "github.com/shopspring/decimal"

// WeightedUnitCost implementa el costo promedio ponderado al recibir unidades en una ubicación.
// NuevoCosto = ((CantActual * CostoActual) + (CantEntrada * CostoEntrada)) / (CantActual + CantEntrada)
func WeightedUnitCost(currentQty int64, currentCost decimal.Decimal, inQty int64, inCost decimal.Decimal) decimal.Decimal {
	sum := currentQty + inQty
	if sum <= 0 {
		return decimal.Zero
	}
	num := decimal.NewFromInt(currentQty).Mul(currentCost).Add(decimal.NewFromInt(inQty).Mul(inCost))
	return num.Div(decimal.NewFromInt(sum)).Round(2)
}
