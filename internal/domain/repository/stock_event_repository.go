package repository

import (
	"context"

	"github.com/jhoicas/stock-ledger/internal/domain/entity"
)

// StockEventRepository es el registro append-only de movimientos de stock.
type StockEventRepository interface {
	// Append persiste el evento y completa ID, Seq y CreatedAt.
	Append(ctx context.Context, event *entity.StockEvent) error
	// ListByProduct devuelve los eventos del producto en orden de Seq ascendente.
	ListByProduct(ctx context.Context, workspaceID, productID string, limit, offset int) ([]*entity.StockEvent, error)
}
