package inventory

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/jhoicas/stock-ledger/internal/domain"
	"github.com/jhoicas/stock-ledger/internal/domain/entity"
	"github.com/jhoicas/stock-ledger/internal/domain/repository"
	"github.com/jhoicas/stock-ledger/internal/domain/stock"
	"github.com/jhoicas/stock-ledger/pkg/logger"
	"github.com/shopspring/decimal"
)

// LocationUseCase gestiona las ubicaciones de stock de un producto. Cada escritura
// reescribe el contador en la misma transacción.
type LocationUseCase struct {
	txRunner     TxRunner
	productRepo  repository.ProductRepository
	locationRepo repository.StockLocationRepository
	log          *logger.Logger
}

// NewLocationUseCase construye el caso de uso.
func NewLocationUseCase(
	txRunner TxRunner,
	productRepo repository.ProductRepository,
	locationRepo repository.StockLocationRepository,
	log *logger.Logger,
) *LocationUseCase {
	if log == nil {
		log = logger.Nop()
	}
	return &LocationUseCase{
		txRunner:     txRunner,
		productRepo:  productRepo,
		locationRepo: locationRepo,
		log:          log.Named("locations"),
	}
}

// List devuelve las ubicaciones del producto ordenadas por ciudad y agencia.
func (uc *LocationUseCase) List(ctx context.Context, workspaceID, productID string) ([]*entity.StockLocation, error) {
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
	return uc.locationRepo.ListByProduct(ctx, workspaceID, productID)
}

// UpsertLocationInput fija la cantidad absoluta de (ciudad, agencia) para el producto.
type UpsertLocationInput struct {
	WorkspaceID string
	ProductID   string
	UserID      string
	City        string
	Agency      string
	Quantity    int64
	UnitCost    decimal.Decimal
	Notes       string
}

// Upsert crea o reemplaza la ubicación con la misma clave canónica y sincroniza el contador.
// Devuelve la ubicación y el nuevo total del producto.
func (uc *LocationUseCase) Upsert(ctx context.Context, in UpsertLocationInput) (*entity.StockLocation, int64, error) {
	if in.WorkspaceID == "" {
		return nil, 0, domain.ErrWorkspaceRequired
	}
	if in.ProductID == "" {
		return nil, 0, domain.ErrProductRequired
	}
	city := strings.Join(strings.Fields(in.City), " ")
	agency := strings.Join(strings.Fields(in.Agency), " ")
	if city == "" || agency == "" || in.Quantity < 0 || in.UnitCost.IsNegative() {
		return nil, 0, domain.ErrInvalidInput
	}

	var (
		saved *entity.StockLocation
		total int64
	)
	err := uc.txRunner.Run(ctx, func(
		productRepo repository.ProductRepository,
		locationRepo repository.StockLocationRepository,
		eventRepo repository.StockEventRepository,
	) error {
		product, err := productRepo.GetByIDForUpdate(ctx, in.WorkspaceID, in.ProductID)
		if err != nil {
			return err
		}
		if product == nil {
			return domain.ErrProductNotFound
		}
		loc := &entity.StockLocation{
			ID:          uuid.New().String(),
			WorkspaceID: in.WorkspaceID,
			ProductID:   in.ProductID,
			City:        city,
			Agency:      agency,
			CityKey:     stock.CanonicalKey(city),
			AgencyKey:   stock.CanonicalKey(agency),
			Quantity:    in.Quantity,
			UnitCost:    in.UnitCost.Round(2),
			Notes:       in.Notes,
			UpdatedBy:   in.UserID,
		}
		var previous int64
		existing, err := locationRepo.GetByKey(ctx, in.WorkspaceID, in.ProductID, loc.CityKey, loc.AgencyKey)
		if err != nil {
			return err
		}
		if existing != nil {
			loc.ID = existing.ID
			previous = existing.Quantity
		}
		if saved, err = locationRepo.Upsert(ctx, loc); err != nil {
			return err
		}
		if err := eventRepo.Append(ctx, &entity.StockEvent{
			WorkspaceID:   in.WorkspaceID,
			ProductID:     in.ProductID,
			LocationID:    saved.ID,
			Kind:          entity.StockEventLocationUpsert,
			Delta:         saved.Quantity - previous,
			QuantityAfter: saved.Quantity,
			Actor:         in.UserID,
		}); err != nil {
			return err
		}
		locations, err := locationRepo.ListByProductForUpdate(ctx, in.WorkspaceID, in.ProductID)
		if err != nil {
			return err
		}
		total, err = syncCounter(ctx, productRepo, eventRepo, product, locations, in.UserID, "")
		return err
	})
	if err != nil {
		return nil, 0, err
	}
	uc.log.Info().
		Str("product_id", in.ProductID).
		Str("location_id", saved.ID).
		Int64("quantity", saved.Quantity).
		Int64("total", total).
		Msg("ubicación guardada")
	return saved, total, nil
}

// Delete elimina la ubicación. Si quedan otras ubicaciones el contador pasa a ser su suma;
// si era la última, el contador descuenta la cantidad eliminada sin bajar de cero.
// Devuelve el nuevo total del producto.
func (uc *LocationUseCase) Delete(ctx context.Context, workspaceID, entryID, userID string) (int64, error) {
	if workspaceID == "" {
		return 0, domain.ErrWorkspaceRequired
	}
	if entryID == "" {
		return 0, domain.ErrLocationRequired
	}
	var total int64
	err := uc.txRunner.Run(ctx, func(
		productRepo repository.ProductRepository,
		locationRepo repository.StockLocationRepository,
		eventRepo repository.StockEventRepository,
	) error {
		loc, err := locationRepo.GetByID(ctx, workspaceID, entryID)
		if err != nil {
			return err
		}
		if loc == nil {
			return domain.ErrLocationNotFound
		}
		product, err := productRepo.GetByIDForUpdate(ctx, workspaceID, loc.ProductID)
		if err != nil {
			return err
		}
		if product == nil {
			return domain.ErrProductNotFound
		}
		if err := locationRepo.Delete(ctx, workspaceID, entryID); err != nil {
			return err
		}
		if err := eventRepo.Append(ctx, &entity.StockEvent{
			WorkspaceID: workspaceID,
			ProductID:   loc.ProductID,
			LocationID:  loc.ID,
			Kind:        entity.StockEventLocationDelete,
			Delta:       -loc.Quantity,
			Actor:       userID,
		}); err != nil {
			return err
		}
		remaining, err := locationRepo.ListByProductForUpdate(ctx, workspaceID, loc.ProductID)
		if err != nil {
			return err
		}
		if len(remaining) > 0 {
			total, err = syncCounter(ctx, productRepo, eventRepo, product, remaining, userID, "")
			return err
		}
		total = product.Stock - loc.Quantity
		if total < 0 {
			total = 0
		}
		if total == product.Stock {
			return nil
		}
		if err := productRepo.SetStock(ctx, workspaceID, product.ID, total); err != nil {
			return err
		}
		return eventRepo.Append(ctx, &entity.StockEvent{
			WorkspaceID:   workspaceID,
			ProductID:     product.ID,
			Kind:          entity.StockEventCounterSync,
			Delta:         total - product.Stock,
			QuantityAfter: total,
			Actor:         userID,
		})
	})
	if err != nil {
		return 0, err
	}
	return total, nil
}
