package memory

import (
	"context"
	"fmt"
	"sort"

	"github.com/google/uuid"
	"github.com/jhoicas/stock-ledger/internal/domain"
	"github.com/jhoicas/stock-ledger/internal/domain/entity"
	"github.com/jhoicas/stock-ledger/internal/domain/repository"
	"github.com/jhoicas/stock-ledger/internal/domain/stock"
)

var _ repository.StockLocationRepository = (*StockLocationRepo)(nil)

// StockLocationRepo implementación en memoria de StockLocationRepository.
type StockLocationRepo struct {
	s    *Store
	inTx bool
}

// NewStockLocationRepository construye el repositorio fuera de transacción.
func NewStockLocationRepository(s *Store) *StockLocationRepo {
	return &StockLocationRepo{s: s}
}

func (r *StockLocationRepo) GetByID(_ context.Context, workspaceID, id string) (*entity.StockLocation, error) {
	defer r.s.guard(r.inTx)()
	l := r.row(workspaceID, id)
	if l == nil {
		return nil, nil
	}
	cp := *l
	return &cp, nil
}

func (r *StockLocationRepo) GetByKey(_ context.Context, workspaceID, productID, cityKey, agencyKey string) (*entity.StockLocation, error) {
	defer r.s.guard(r.inTx)()
	l := r.byKey(workspaceID, productID, cityKey, agencyKey)
	if l == nil {
		return nil, nil
	}
	cp := *l
	return &cp, nil
}

func (r *StockLocationRepo) ListByProduct(_ context.Context, workspaceID, productID string) ([]*entity.StockLocation, error) {
	defer r.s.guard(r.inTx)()
	var list []*entity.StockLocation
	for _, l := range r.s.locations {
		if l.WorkspaceID == workspaceID && l.ProductID == productID {
			cp := *l
			list = append(list, &cp)
		}
	}
	sort.Slice(list, func(i, j int) bool {
		a, b := list[i], list[j]
		if a.CityKey != b.CityKey {
			return a.CityKey < b.CityKey
		}
		if a.AgencyKey != b.AgencyKey {
			return a.AgencyKey < b.AgencyKey
		}
		return a.ID < b.ID
	})
	return list, nil
}

func (r *StockLocationRepo) ListByProductForUpdate(ctx context.Context, workspaceID, productID string) ([]*entity.StockLocation, error) {
	return r.ListByProduct(ctx, workspaceID, productID)
}

func (r *StockLocationRepo) ListProductIDs(_ context.Context, workspaceID string) ([]string, error) {
	defer r.s.guard(r.inTx)()
	seen := make(map[string]struct{})
	var ids []string
	for _, l := range r.s.locations {
		if l.WorkspaceID != workspaceID {
			continue
		}
		if _, ok := seen[l.ProductID]; !ok {
			seen[l.ProductID] = struct{}{}
			ids = append(ids, l.ProductID)
		}
	}
	sort.Strings(ids)
	return ids, nil
}

func (r *StockLocationRepo) Upsert(_ context.Context, l *entity.StockLocation) (*entity.StockLocation, error) {
	defer r.s.guard(r.inTx)()
	if l.Quantity < 0 || l.UnitCost.IsNegative() {
		return nil, fmt.Errorf("upsert stock location: cantidad o costo negativo")
	}
	p, ok := r.s.products[l.ProductID]
	if !ok || p.WorkspaceID != l.WorkspaceID {
		return nil, fmt.Errorf("upsert stock location: producto %s inexistente", l.ProductID)
	}
	now := r.s.now()
	if cur := r.byKey(l.WorkspaceID, l.ProductID, l.CityKey, l.AgencyKey); cur != nil {
		cur.City = l.City
		cur.Agency = l.Agency
		cur.Quantity = l.Quantity
		cur.UnitCost = l.UnitCost
		cur.Notes = l.Notes
		cur.UpdatedBy = l.UpdatedBy
		cur.UpdatedAt = now
		cp := *cur
		return &cp, nil
	}
	row := *l
	if row.ID == "" {
		row.ID = uuid.New().String()
	}
	row.CreatedAt = now
	row.UpdatedAt = now
	r.s.locations[row.ID] = &row
	cp := row
	return &cp, nil
}

func (r *StockLocationRepo) UpdateQuantity(_ context.Context, workspaceID, id string, quantity int64, updatedBy string) error {
	defer r.s.guard(r.inTx)()
	l := r.row(workspaceID, id)
	if l == nil {
		return domain.ErrNotFound
	}
	if quantity < 0 {
		return fmt.Errorf("update stock location quantity: cantidad negativa %d", quantity)
	}
	l.Quantity = quantity
	l.UpdatedBy = updatedBy
	l.UpdatedAt = r.s.now()
	return nil
}

func (r *StockLocationRepo) AdjustQuantity(_ context.Context, workspaceID, id string, delta int64, updatedBy string) (int64, bool, error) {
	defer r.s.guard(r.inTx)()
	l := r.row(workspaceID, id)
	if l == nil || !stock.CanApply(l.Quantity, delta) {
		return 0, false, nil
	}
	l.Quantity += delta
	l.UpdatedBy = updatedBy
	l.UpdatedAt = r.s.now()
	return l.Quantity, true, nil
}

func (r *StockLocationRepo) Delete(_ context.Context, workspaceID, id string) error {
	defer r.s.guard(r.inTx)()
	if r.row(workspaceID, id) == nil {
		return domain.ErrNotFound
	}
	delete(r.s.locations, id)
	return nil
}

func (r *StockLocationRepo) row(workspaceID, id string) *entity.StockLocation {
	l, ok := r.s.locations[id]
	if !ok || l.WorkspaceID != workspaceID {
		return nil
	}
	return l
}

func (r *StockLocationRepo) byKey(workspaceID, productID, cityKey, agencyKey string) *entity.StockLocation {
	for _, l := range r.s.locations {
		if l.WorkspaceID == workspaceID && l.ProductID == productID && l.CityKey == cityKey && l.AgencyKey == agencyKey {
			return l
		}
	}
	return nil
}
