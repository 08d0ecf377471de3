package repository

import (
	"context"

	"github.com/jhoicas/stock-ledger/internal/domain/entity"
)

// ProductRepository define el puerto de persistencia para Product (DIP).
// Las lecturas devuelven (nil, nil) cuando el producto no existe en el workspace.
type ProductRepository interface {
	Create(ctx context.Context, product *entity.Product) error
	GetByID(ctx context.Context, workspaceID, id string) (*entity.Product, error)
	// GetByIDForUpdate bloquea la fila del producto hasta el fin de la transacción.
	GetByIDForUpdate(ctx context.Context, workspaceID, id string) (*entity.Product, error)
	GetByWorkspaceAndSKU(ctx context.Context, workspaceID, sku string) (*entity.Product, error)
	Update(ctx context.Context, product *entity.Product) error
	ListByWorkspace(ctx context.Context, workspaceID string, limit, offset int) ([]*entity.Product, error)
	Delete(ctx context.Context, workspaceID, id string) error

	// AdjustStock aplica delta al contador con una única escritura condicional:
	// solo se aplica si stock+delta >= 0. applied=false si no hubo fila que cumpliera
	// la condición (producto inexistente o stock insuficiente); el llamador desambigua.
	AdjustStock(ctx context.Context, workspaceID, id string, delta int64) (quantity int64, applied bool, err error)
	// SetStock sobrescribe el contador (resincronización). Devuelve ErrNotFound si no existe.
	SetStock(ctx context.Context, workspaceID, id string, quantity int64) error
}
