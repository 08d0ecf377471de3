package repository

import (
	"context"

	"github.com/jhoicas/stock-ledger/internal/domain/entity"
)

// StockLocationRepository define el puerto para las cantidades por (producto, ciudad, agencia).
// Usado dentro de transacciones para el reparto y la reconciliación.
type StockLocationRepository interface {
	GetByID(ctx context.Context, workspaceID, id string) (*entity.StockLocation, error)
	GetByKey(ctx context.Context, workspaceID, productID, cityKey, agencyKey string) (*entity.StockLocation, error)
	ListByProduct(ctx context.Context, workspaceID, productID string) ([]*entity.StockLocation, error)
	// ListByProductForUpdate bloquea las filas del producto hasta el fin de la transacción.
	ListByProductForUpdate(ctx context.Context, workspaceID, productID string) ([]*entity.StockLocation, error)
	// ListProductIDs devuelve, ordenados, los productos del workspace con al menos una ubicación.
	ListProductIDs(ctx context.Context, workspaceID string) ([]string, error)

	// Upsert inserta la ubicación o actualiza la existente con la misma clave canónica.
	// Devuelve la fila resultante (con ID y timestamps definitivos).
	Upsert(ctx context.Context, location *entity.StockLocation) (*entity.StockLocation, error)
	UpdateQuantity(ctx context.Context, workspaceID, id string, quantity int64, updatedBy string) error
	// AdjustQuantity es el equivalente de ProductRepository.AdjustStock para una ubicación.
	AdjustQuantity(ctx context.Context, workspaceID, id string, delta int64, updatedBy string) (quantity int64, applied bool, err error)
	Delete(ctx context.Context, workspaceID, id string) error
}
