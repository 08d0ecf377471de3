package inventory

import (
	"context"
	"fmt"
	"time"

	"github.com/jhoicas/stock-ledger/internal/domain"
	"github.com/jhoicas/stock-ledger/internal/domain/entity"
	"github.com/jhoicas/stock-ledger/internal/domain/repository"
	"github.com/jhoicas/stock-ledger/internal/domain/stock"
	"github.com/jhoicas/stock-ledger/pkg/logger"
	"golang.org/x/sync/errgroup"
)

// Estados de un producto en el reporte de reconciliación.
const (
	ResyncStatusOK       = "ok"
	ResyncStatusResynced = "resynced"
	ResyncStatusDrift    = "drift" // solo en DryRun: había diferencia y no se corrigió
)

// ResyncOptions parámetros de una reconciliación. Los vacíos toman los valores por defecto
// del caso de uso.
type ResyncOptions struct {
	SourceOfTruth string
	Policy        string
	DryRun        bool
	Actor         string
}

// ResyncResult estado de un producto tras la reconciliación. Before/After solo se informan
// cuando había diferencia.
type ResyncResult struct {
	ProductID      string
	SKU            string
	Name           string
	Status         string
	Counter        int64
	LocationsTotal int64
	Before         *int64
	After          *int64
}

// ResyncReport resultado completo de Resync.
type ResyncReport struct {
	WorkspaceID   string
	SourceOfTruth stock.SourceOfTruth
	Policy        string
	DryRun        bool
	GeneratedAt   time.Time
	Results       []ResyncResult
}

// ResyncUseCase reconcilia el contador de cada producto con la suma de sus ubicaciones.
type ResyncUseCase struct {
	txRunner     TxRunner
	locationRepo repository.StockLocationRepository
	truth        stock.SourceOfTruth
	policy       stock.AllocationPolicy
	concurrency  int
	log          *logger.Logger
}

// NewResyncUseCase construye el caso de uso con la fuente de verdad y la política por defecto.
// concurrency acota cuántos productos se reconcilian en paralelo.
func NewResyncUseCase(
	txRunner TxRunner,
	locationRepo repository.StockLocationRepository,
	truth stock.SourceOfTruth,
	policy stock.AllocationPolicy,
	concurrency int,
	log *logger.Logger,
) *ResyncUseCase {
	if truth == "" {
		truth = stock.TruthLocations
	}
	if policy == nil {
		policy = stock.LargestFirst{}
	}
	if concurrency <= 0 {
		concurrency = 1
	}
	if log == nil {
		log = logger.Nop()
	}
	return &ResyncUseCase{
		txRunner:     txRunner,
		locationRepo: locationRepo,
		truth:        truth,
		policy:       policy,
		concurrency:  concurrency,
		log:          log.Named("resync"),
	}
}

// Resync recorre los productos del workspace con al menos una ubicación. Cada producto se
// corrige en su propia transacción; el orden del reporte es el de los IDs de producto.
// Una segunda ejecución sin cambios intermedios informa "ok" para todos.
func (uc *ResyncUseCase) Resync(ctx context.Context, workspaceID string, opts ResyncOptions) (*ResyncReport, error) {
	if workspaceID == "" {
		return nil, domain.ErrWorkspaceRequired
	}
	truth, err := stock.ParseSourceOfTruth(opts.SourceOfTruth, uc.truth)
	if err != nil {
		return nil, err
	}
	policy, err := stock.ParsePolicy(opts.Policy, uc.policy)
	if err != nil {
		return nil, err
	}

	ids, err := uc.locationRepo.ListProductIDs(ctx, workspaceID)
	if err != nil {
		return nil, err
	}

	results := make([]ResyncResult, len(ids))
	found := make([]bool, len(ids))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(uc.concurrency)
	for i, id := range ids {
		i, id := i, id
		g.Go(func() error {
			r, ok, err := uc.resyncProduct(gctx, workspaceID, id, truth, policy, opts)
			if err != nil {
				return err
			}
			results[i], found[i] = r, ok
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		uc.log.Error().Err(err).Str("workspace_id", workspaceID).Msg("reconciliación abortada")
		return nil, err
	}

	report := &ResyncReport{
		WorkspaceID:   workspaceID,
		SourceOfTruth: truth,
		Policy:        policy.Name(),
		DryRun:        opts.DryRun,
		GeneratedAt:   time.Now().UTC(),
		Results:       make([]ResyncResult, 0, len(ids)),
	}
	var changed int
	for i, r := range results {
		if !found[i] {
			continue
		}
		if r.Status != ResyncStatusOK {
			changed++
		}
		report.Results = append(report.Results, r)
	}
	uc.log.Info().
		Str("workspace_id", workspaceID).
		Str("source_of_truth", string(truth)).
		Bool("dry_run", opts.DryRun).
		Int("products", len(report.Results)).
		Int("with_drift", changed).
		Msg("reconciliación terminada")
	return report, nil
}

// resyncProduct reconcilia un producto. ok=false si el producto desapareció entre el listado
// y el bloqueo.
func (uc *ResyncUseCase) resyncProduct(
	ctx context.Context,
	workspaceID, productID string,
	truth stock.SourceOfTruth,
	policy stock.AllocationPolicy,
	opts ResyncOptions,
) (ResyncResult, bool, error) {
	var (
		res ResyncResult
		ok  bool
	)
	err := uc.txRunner.Run(ctx, func(
		productRepo repository.ProductRepository,
		locationRepo repository.StockLocationRepository,
		eventRepo repository.StockEventRepository,
	) error {
		product, err := productRepo.GetByIDForUpdate(ctx, workspaceID, productID)
		if err != nil {
			return err
		}
		if product == nil {
			return nil
		}
		locations, err := locationRepo.ListByProductForUpdate(ctx, workspaceID, productID)
		if err != nil {
			return err
		}
		if len(locations) == 0 {
			return nil
		}
		total, fits := stock.CheckedTotal(locations)
		if !fits {
			return fmt.Errorf("resync %s: %w", productID, domain.ErrInvalidInput)
		}
		ok = true
		res = ResyncResult{
			ProductID:      product.ID,
			SKU:            product.SKU,
			Name:           product.Name,
			Status:         ResyncStatusOK,
			Counter:        product.Stock,
			LocationsTotal: total,
		}
		if total == product.Stock {
			return nil
		}

		before, after := product.Stock, total
		if truth == stock.TruthCounter {
			before, after = total, product.Stock
		}
		res.Before, res.After = &before, &after
		if opts.DryRun {
			res.Status = ResyncStatusDrift
			return nil
		}
		res.Status = ResyncStatusResynced

		if truth == stock.TruthLocations {
			if err := productRepo.SetStock(ctx, workspaceID, productID, total); err != nil {
				return err
			}
			return eventRepo.Append(ctx, &entity.StockEvent{
				WorkspaceID:   workspaceID,
				ProductID:     productID,
				Kind:          entity.StockEventResync,
				Delta:         total - product.Stock,
				QuantityAfter: total,
				Actor:         opts.Actor,
				Reason:        "resync: " + string(truth),
			})
		}

		plan, err := policy.Plan(locations, product.Stock-total)
		if err != nil {
			return err
		}
		for _, a := range plan {
			newQty := a.Location.Quantity + a.Delta
			if err := locationRepo.UpdateQuantity(ctx, workspaceID, a.Location.ID, newQty, opts.Actor); err != nil {
				return err
			}
			if err := eventRepo.Append(ctx, &entity.StockEvent{
				WorkspaceID:   workspaceID,
				ProductID:     productID,
				LocationID:    a.Location.ID,
				Kind:          entity.StockEventResync,
				Delta:         a.Delta,
				QuantityAfter: newQty,
				Actor:         opts.Actor,
				Reason:        "resync: " + string(truth),
			}); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return ResyncResult{}, false, err
	}
	if ok && res.Status != ResyncStatusOK {
		uc.log.Debug().
			Str("product_id", productID).
			Str("status", res.Status).
			Int64("counter", res.Counter).
			Int64("locations_total", res.LocationsTotal).
			Msg("diferencia detectada")
	}
	return res, ok, nil
}
