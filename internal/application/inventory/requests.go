package inventory

import (
	"context"

	"github.com/jhoicas/stock-ledger/internal/application/dto"
	"github.com/jhoicas/stock-ledger/internal/domain/entity"
	"github.com/jhoicas/stock-ledger/internal/domain/stock"
)

// AdjustFromRequest adapta el request HTTP al caso de uso AdjustProductStock.
// El delta JSON se valida como entero distinto de cero antes de llegar al motor.
func (uc *StockUseCase) AdjustFromRequest(ctx context.Context, workspaceID, userID, productID string, in dto.AdjustStockRequest) (*entity.Product, error) {
	delta, err := stock.DeltaFromFloat(in.Delta)
	if err != nil {
		return nil, err
	}
	return uc.AdjustProductStock(ctx, AdjustStockInput{
		WorkspaceID: workspaceID,
		ProductID:   productID,
		UserID:      userID,
		Reason:      in.Reason,
		Delta:       delta,
	})
}

// DistributeFromRequest adapta el request HTTP al caso de uso DistributeStockDelta.
func (uc *StockUseCase) DistributeFromRequest(ctx context.Context, workspaceID, userID, productID string, in dto.DistributeStockRequest) (*DistributeResult, error) {
	delta, err := stock.DeltaFromFloat(in.Delta)
	if err != nil {
		return nil, err
	}
	return uc.DistributeStockDelta(ctx, DistributeInput{
		WorkspaceID: workspaceID,
		ProductID:   productID,
		UserID:      userID,
		Reason:      in.Reason,
		Delta:       delta,
		Policy:      in.Policy,
		UnitCost:    in.UnitCost,
	})
}

// AdjustLocationFromRequest ajusta una ubicación y luego sincroniza el contador de su producto.
// Son dos transacciones: si la sincronización falla, el ajuste ya quedó aplicado y la
// siguiente reconciliación corrige el contador.
func (uc *StockUseCase) AdjustLocationFromRequest(ctx context.Context, workspaceID, userID, entryID string, in dto.AdjustLocationRequest) (*entity.StockLocation, *entity.Product, error) {
	adjustment, err := stock.AdjustmentFromFloat(in.Adjustment)
	if err != nil {
		return nil, nil, err
	}
	loc, err := uc.AdjustStockLocationQuantity(ctx, LocationAdjustInput{
		WorkspaceID: workspaceID,
		EntryID:     entryID,
		UserID:      userID,
		Reason:      in.Reason,
		Adjustment:  adjustment,
	})
	if err != nil {
		return nil, nil, err
	}
	product, err := uc.SyncCounter(ctx, workspaceID, loc.ProductID, userID)
	if err != nil {
		return loc, nil, err
	}
	return loc, product, nil
}
