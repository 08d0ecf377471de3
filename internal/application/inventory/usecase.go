package inventory

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/jhoicas/stock-ledger/internal/domain"
	"github.com/jhoicas/stock-ledger/internal/domain/entity"
	"github.com/jhoicas/stock-ledger/internal/domain/repository"
	"github.com/jhoicas/stock-ledger/internal/domain/stock"
	"github.com/jhoicas/stock-ledger/pkg/logger"
	"github.com/shopspring/decimal"
)

// StockUseCase es el motor de stock: ajuste atómico del contador, reparto de deltas sobre
// ubicaciones y ajuste de una sola ubicación. Toda escritura pasa por el TxRunner.
type StockUseCase struct {
	txRunner    TxRunner
	productRepo repository.ProductRepository
	eventRepo   repository.StockEventRepository
	policy      stock.AllocationPolicy
	log         *logger.Logger
}

// NewStockUseCase construye el caso de uso. policy es la política de reparto por defecto.
func NewStockUseCase(
	txRunner TxRunner,
	productRepo repository.ProductRepository,
	eventRepo repository.StockEventRepository,
	policy stock.AllocationPolicy,
	log *logger.Logger,
) *StockUseCase {
	if policy == nil {
		policy = stock.LargestOutSmallestIn{}
	}
	if log == nil {
		log = logger.Nop()
	}
	return &StockUseCase{
		txRunner:    txRunner,
		productRepo: productRepo,
		eventRepo:   eventRepo,
		policy:      policy,
		log:         log.Named("stock"),
	}
}

// AdjustStockInput entrada de AdjustProductStock.
type AdjustStockInput struct {
	WorkspaceID string
	ProductID   string
	UserID      string
	Reason      string
	Delta       int64
}

// AdjustProductStock aplica delta al contador del producto con una única escritura condicional.
// Nunca deja el contador negativo; sin fila afectada se distingue producto inexistente de
// stock insuficiente con una lectura posterior.
func (uc *StockUseCase) AdjustProductStock(ctx context.Context, in AdjustStockInput) (*entity.Product, error) {
	if in.WorkspaceID == "" {
		return nil, domain.ErrWorkspaceRequired
	}
	if in.ProductID == "" {
		return nil, domain.ErrProductRequired
	}
	if in.Delta == 0 || in.Delta == math.MinInt64 {
		return nil, domain.ErrInvalidDelta
	}

	var product *entity.Product
	err := uc.txRunner.Run(ctx, func(
		productRepo repository.ProductRepository,
		_ repository.StockLocationRepository,
		eventRepo repository.StockEventRepository,
	) error {
		qty, err := adjustCounter(ctx, productRepo, in.WorkspaceID, in.ProductID, in.Delta)
		if err != nil {
			return err
		}
		if err := eventRepo.Append(ctx, &entity.StockEvent{
			WorkspaceID:   in.WorkspaceID,
			ProductID:     in.ProductID,
			Kind:          entity.StockEventAdjust,
			Delta:         in.Delta,
			QuantityAfter: qty,
			Actor:         in.UserID,
			Reason:        in.Reason,
		}); err != nil {
			return err
		}
		product, err = productRepo.GetByID(ctx, in.WorkspaceID, in.ProductID)
		return err
	})
	if err != nil {
		uc.logRejected(err, "adjust", in.ProductID, in.Delta)
		return nil, err
	}
	return product, nil
}

// adjustCounter ejecuta el CAS del contador y traduce applied=false al error correspondiente:
// un crédito solo se rechaza si desborda int64.
func adjustCounter(ctx context.Context, productRepo repository.ProductRepository, workspaceID, productID string, delta int64) (int64, error) {
	qty, applied, err := productRepo.AdjustStock(ctx, workspaceID, productID, delta)
	if err != nil {
		return 0, err
	}
	if applied {
		return qty, nil
	}
	current, err := productRepo.GetByID(ctx, workspaceID, productID)
	if err != nil {
		return 0, err
	}
	if current == nil {
		return 0, domain.ErrProductNotFound
	}
	if delta > 0 {
		return 0, domain.ErrInvalidDelta
	}
	return 0, domain.InsufficientStock(current.Stock, -delta)
}

// DistributeInput entrada de DistributeStockDelta.
type DistributeInput struct {
	WorkspaceID string
	ProductID   string
	UserID      string
	Reason      string
	Delta       int64
	Policy      string           // vacío: política por defecto
	UnitCost    *decimal.Decimal // créditos: costo de las unidades que entran
}

// AllocationResult cambio aplicado sobre una ubicación.
type AllocationResult struct {
	LocationID string
	City       string
	Agency     string
	Delta      int64
	Quantity   int64
}

// DistributeResult resultado de un reparto.
type DistributeResult struct {
	Total       int64
	Policy      string
	FellBack    bool
	Allocations []AllocationResult
}

// DistributeStockDelta reparte delta entre las ubicaciones del producto según la política y
// reescribe el contador con la suma resultante. Todo ocurre en una transacción: si algo falla
// no queda ningún cambio. Sin ubicaciones se comporta como AdjustProductStock.
func (uc *StockUseCase) DistributeStockDelta(ctx context.Context, in DistributeInput) (*DistributeResult, error) {
	if in.WorkspaceID == "" {
		return nil, domain.ErrWorkspaceRequired
	}
	if in.ProductID == "" {
		return nil, domain.ErrProductRequired
	}
	if in.Delta == 0 || in.Delta == math.MinInt64 {
		return nil, domain.ErrInvalidDelta
	}
	policy, err := stock.ParsePolicy(in.Policy, uc.policy)
	if err != nil {
		return nil, err
	}
	if in.UnitCost != nil && in.UnitCost.IsNegative() {
		return nil, domain.ErrInvalidInput
	}

	res := &DistributeResult{Policy: policy.Name()}
	err = uc.txRunner.Run(ctx, func(
		productRepo repository.ProductRepository,
		locationRepo repository.StockLocationRepository,
		eventRepo repository.StockEventRepository,
	) error {
		res.Allocations = nil
		res.FellBack = false

		product, err := productRepo.GetByIDForUpdate(ctx, in.WorkspaceID, in.ProductID)
		if err != nil {
			return err
		}
		if product == nil {
			return domain.ErrProductNotFound
		}
		locations, err := locationRepo.ListByProductForUpdate(ctx, in.WorkspaceID, in.ProductID)
		if err != nil {
			return err
		}

		if len(locations) == 0 {
			qty, err := adjustCounter(ctx, productRepo, in.WorkspaceID, in.ProductID, in.Delta)
			if err != nil {
				return err
			}
			res.FellBack = true
			res.Total = qty
			return eventRepo.Append(ctx, &entity.StockEvent{
				WorkspaceID:   in.WorkspaceID,
				ProductID:     in.ProductID,
				Kind:          entity.StockEventAdjust,
				Delta:         in.Delta,
				QuantityAfter: qty,
				Actor:         in.UserID,
				Reason:        in.Reason,
			})
		}

		plan, err := policy.Plan(locations, in.Delta)
		if err != nil {
			return err
		}
		for _, a := range plan {
			loc := a.Location
			newQty := loc.Quantity + a.Delta
			if a.Delta > 0 && in.UnitCost != nil {
				loc.UnitCost = stock.WeightedUnitCost(loc.Quantity, loc.UnitCost, a.Delta, *in.UnitCost)
				loc.Quantity = newQty
				loc.UpdatedBy = in.UserID
				if _, err := locationRepo.Upsert(ctx, loc); err != nil {
					return err
				}
			} else {
				if err := locationRepo.UpdateQuantity(ctx, in.WorkspaceID, loc.ID, newQty, in.UserID); err != nil {
					return err
				}
				loc.Quantity = newQty
			}
			if err := eventRepo.Append(ctx, &entity.StockEvent{
				WorkspaceID:   in.WorkspaceID,
				ProductID:     in.ProductID,
				LocationID:    loc.ID,
				Kind:          entity.StockEventDistribute,
				Delta:         a.Delta,
				QuantityAfter: newQty,
				Actor:         in.UserID,
				Reason:        in.Reason,
			}); err != nil {
				return err
			}
			res.Allocations = append(res.Allocations, AllocationResult{
				LocationID: loc.ID,
				City:       loc.City,
				Agency:     loc.Agency,
				Delta:      a.Delta,
				Quantity:   newQty,
			})
		}

		total, err := syncCounter(ctx, productRepo, eventRepo, product, locations, in.UserID, in.Reason)
		if err != nil {
			return err
		}
		res.Total = total
		return nil
	})
	if err != nil {
		uc.logRejected(err, "distribute", in.ProductID, in.Delta)
		return nil, err
	}
	uc.log.Debug().
		Str("product_id", in.ProductID).
		Int64("delta", in.Delta).
		Str("policy", res.Policy).
		Int("locations", len(res.Allocations)).
		Int64("total", res.Total).
		Msg("delta repartido")
	return res, nil
}

// LocationAdjustInput entrada de AdjustStockLocationQuantity.
type LocationAdjustInput struct {
	WorkspaceID string
	EntryID     string
	UserID      string
	Reason      string
	Adjustment  int64
}

// AdjustStockLocationQuantity aplica el ajuste a una sola ubicación con escritura condicional.
// No toca el contador del producto: el llamador decide si sincronizarlo (SyncCounter).
func (uc *StockUseCase) AdjustStockLocationQuantity(ctx context.Context, in LocationAdjustInput) (*entity.StockLocation, error) {
	if in.WorkspaceID == "" {
		return nil, domain.ErrWorkspaceRequired
	}
	if in.EntryID == "" {
		return nil, domain.ErrLocationRequired
	}
	if in.Adjustment == 0 || in.Adjustment == math.MinInt64 {
		return nil, domain.ErrInvalidAdjustment
	}

	var location *entity.StockLocation
	err := uc.txRunner.Run(ctx, func(
		_ repository.ProductRepository,
		locationRepo repository.StockLocationRepository,
		eventRepo repository.StockEventRepository,
	) error {
		qty, applied, err := locationRepo.AdjustQuantity(ctx, in.WorkspaceID, in.EntryID, in.Adjustment, in.UserID)
		if err != nil {
			return err
		}
		current, err := locationRepo.GetByID(ctx, in.WorkspaceID, in.EntryID)
		if err != nil {
			return err
		}
		if current == nil {
			return domain.ErrLocationNotFound
		}
		if !applied {
			if in.Adjustment > 0 {
				return domain.ErrInvalidAdjustment
			}
			return domain.InsufficientStock(current.Quantity, -in.Adjustment)
		}
		if in.Adjustment > 0 {
			// El contador se reescribe luego con la suma: esa suma también debe caber.
			siblings, err := locationRepo.ListByProduct(ctx, in.WorkspaceID, current.ProductID)
			if err != nil {
				return err
			}
			if _, ok := stock.CheckedTotal(siblings); !ok {
				return domain.ErrInvalidAdjustment
			}
		}
		location = current
		return eventRepo.Append(ctx, &entity.StockEvent{
			WorkspaceID:   in.WorkspaceID,
			ProductID:     current.ProductID,
			LocationID:    current.ID,
			Kind:          entity.StockEventLocationAdjust,
			Delta:         in.Adjustment,
			QuantityAfter: qty,
			Actor:         in.UserID,
			Reason:        in.Reason,
		})
	})
	if err != nil {
		uc.logRejected(err, "location_adjust", in.EntryID, in.Adjustment)
		return nil, err
	}
	return location, nil
}

// SyncCounter reescribe el contador del producto con la suma de sus ubicaciones.
// Sin ubicaciones el contador no cambia.
func (uc *StockUseCase) SyncCounter(ctx context.Context, workspaceID, productID, userID string) (*entity.Product, error) {
	if workspaceID == "" {
		return nil, domain.ErrWorkspaceRequired
	}
	if productID == "" {
		return nil, domain.ErrProductRequired
	}
	var product *entity.Product
	err := uc.txRunner.Run(ctx, func(
		productRepo repository.ProductRepository,
		locationRepo repository.StockLocationRepository,
		eventRepo repository.StockEventRepository,
	) error {
		p, err := productRepo.GetByIDForUpdate(ctx, workspaceID, productID)
		if err != nil {
			return err
		}
		if p == nil {
			return domain.ErrProductNotFound
		}
		locations, err := locationRepo.ListByProductForUpdate(ctx, workspaceID, productID)
		if err != nil {
			return err
		}
		if len(locations) > 0 {
			if p.Stock, err = syncCounter(ctx, productRepo, eventRepo, p, locations, userID, ""); err != nil {
				return err
			}
		}
		product = p
		return nil
	})
	if err != nil {
		return nil, err
	}
	return product, nil
}

// ListEvents devuelve el registro de movimientos del producto en orden de inserción.
func (uc *StockUseCase) ListEvents(ctx context.Context, workspaceID, productID string, limit, offset int) ([]*entity.StockEvent, error) {
	if workspaceID == "" {
		return nil, domain.ErrWorkspaceRequired
	}
	p, err := uc.productRepo.GetByID(ctx, workspaceID, productID)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, domain.ErrProductNotFound
	}
	return uc.eventRepo.ListByProduct(ctx, workspaceID, productID, limit, offset)
}

// syncCounter fija el contador en la suma de las ubicaciones y deja un evento counter_sync
// si el valor cambió. Devuelve la suma.
func syncCounter(
	ctx context.Context,
	productRepo repository.ProductRepository,
	eventRepo repository.StockEventRepository,
	product *entity.Product,
	locations []*entity.StockLocation,
	actor, reason string,
) (int64, error) {
	total, ok := stock.CheckedTotal(locations)
	if !ok {
		return 0, fmt.Errorf("sync counter %s: %w", product.ID, domain.ErrInvalidInput)
	}
	if total == product.Stock {
		return total, nil
	}
	if err := productRepo.SetStock(ctx, product.WorkspaceID, product.ID, total); err != nil {
		return 0, err
	}
	return total, eventRepo.Append(ctx, &entity.StockEvent{
		WorkspaceID:   product.WorkspaceID,
		ProductID:     product.ID,
		Kind:          entity.StockEventCounterSync,
		Delta:         total - product.Stock,
		QuantityAfter: total,
		Actor:         actor,
		Reason:        reason,
	})
}

// logRejected deja traza de los rechazos esperados (warn) y de los fallos de almacenamiento (error).
func (uc *StockUseCase) logRejected(err error, op, id string, delta int64) {
	if errors.Is(err, domain.ErrInsufficientStock) {
		uc.log.Warn().Str("op", op).Str("id", id).Int64("delta", delta).Msg(err.Error())
		return
	}
	if _, ok := domain.AsStockError(err); ok {
		return
	}
	uc.log.Error().Err(err).Str("op", op).Str("id", id).Int64("delta", delta).Msg("operación de stock fallida")
}
