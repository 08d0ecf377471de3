package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jhoicas/stock-ledger/internal/domain/entity"
	"github.com/jhoicas/stock-ledger/internal/domain/repository"
)

var _ repository.StockEventRepository = (*StockEventRepo)(nil)

// StockEventRepo registro append-only de eventos de stock sobre PostgreSQL (usable con pool o tx).
type StockEventRepo struct {
	q Querier
}

// NewStockEventRepository construye el adaptador. Pasar pool o tx (Querier).
func NewStockEventRepository(q Querier) *StockEventRepo {
	return &StockEventRepo{q: q}
}

// Append persiste el evento; seq y created_at los asigna la base de datos.
func (r *StockEventRepo) Append(ctx context.Context, ev *entity.StockEvent) error {
	if ev.ID == "" {
		ev.ID = uuid.New().String()
	}
	query := `
		INSERT INTO stock_events (id, workspace_id, product_id, location_id, kind, delta, quantity_after, actor, reason)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING seq, created_at`
	err := r.q.QueryRow(ctx, query,
		ev.ID, ev.WorkspaceID, ev.ProductID, nullableID(ev.LocationID), ev.Kind,
		ev.Delta, ev.QuantityAfter, ev.Actor, ev.Reason,
	).Scan(&ev.Seq, &ev.CreatedAt)
	if err != nil {
		return fmt.Errorf("append stock event: %w", err)
	}
	return nil
}

// ListByProduct lista los eventos de un producto en orden de inserción.
func (r *StockEventRepo) ListByProduct(ctx context.Context, workspaceID, productID string, limit, offset int) ([]*entity.StockEvent, error) {
	if !validID(productID) {
		return nil, nil
	}
	query := `
		SELECT id, seq, workspace_id, product_id, location_id::text, kind, delta, quantity_after, actor, reason, created_at
		FROM stock_events WHERE workspace_id = $1 AND product_id = $2
		ORDER BY seq LIMIT $3 OFFSET $4`
	rows, err := r.q.Query(ctx, query, workspaceID, productID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list stock events: %w", err)
	}
	defer rows.Close()
	var list []*entity.StockEvent
	for rows.Next() {
		var ev entity.StockEvent
		var locationID *string
		if err := rows.Scan(&ev.ID, &ev.Seq, &ev.WorkspaceID, &ev.ProductID, &locationID, &ev.Kind,
			&ev.Delta, &ev.QuantityAfter, &ev.Actor, &ev.Reason, &ev.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan stock event: %w", err)
		}
		if locationID != nil {
			ev.LocationID = *locationID
		}
		list = append(list, &ev)
	}
	return list, rows.Err()
}
