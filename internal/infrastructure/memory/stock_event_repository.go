package memory

import (
	"context"

	"github.com/google/uuid"
	"github.com/jhoicas/stock-ledger/internal/domain/entity"
	"github.com/jhoicas/stock-ledger/internal/domain/repository"
)

var _ repository.StockEventRepository = (*StockEventRepo)(nil)

// StockEventRepo registro de eventos en memoria; Seq crece de uno en uno.
type StockEventRepo struct {
	s    *Store
	inTx bool
}

// NewStockEventRepository construye el repositorio fuera de transacción.
func NewStockEventRepository(s *Store) *StockEventRepo {
	return &StockEventRepo{s: s}
}

func (r *StockEventRepo) Append(_ context.Context, ev *entity.StockEvent) error {
	defer r.s.guard(r.inTx)()
	if ev.ID == "" {
		ev.ID = uuid.New().String()
	}
	r.s.seq++
	ev.Seq = r.s.seq
	ev.CreatedAt = r.s.now()
	cp := *ev
	r.s.events = append(r.s.events, &cp)
	return nil
}

func (r *StockEventRepo) ListByProduct(_ context.Context, workspaceID, productID string, limit, offset int) ([]*entity.StockEvent, error) {
	defer r.s.guard(r.inTx)()
	var list []*entity.StockEvent
	for _, ev := range r.s.events {
		if ev.WorkspaceID == workspaceID && ev.ProductID == productID {
			cp := *ev
			list = append(list, &cp)
		}
	}
	return page(list, limit, offset), nil
}
