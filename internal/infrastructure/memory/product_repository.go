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

var _ repository.ProductRepository = (*ProductRepo)(nil)

// ProductRepo implementación en memoria de ProductRepository.
type ProductRepo struct {
	s    *Store
	inTx bool
}

// NewProductRepository construye el repositorio fuera de transacción.
func NewProductRepository(s *Store) *ProductRepo {
	return &ProductRepo{s: s}
}

func (r *ProductRepo) Create(_ context.Context, product *entity.Product) error {
	defer r.s.guard(r.inTx)()
	if product.ID == "" {
		product.ID = uuid.New().String()
	}
	if product.Stock < 0 {
		return fmt.Errorf("insert product: stock negativo %d", product.Stock)
	}
	if _, ok := r.s.products[product.ID]; ok {
		return domain.ErrDuplicate
	}
	for _, p := range r.s.products {
		if p.WorkspaceID == product.WorkspaceID && p.SKU == product.SKU {
			return domain.ErrDuplicate
		}
	}
	cp := *product
	r.s.products[cp.ID] = &cp
	return nil
}

func (r *ProductRepo) GetByID(_ context.Context, workspaceID, id string) (*entity.Product, error) {
	defer r.s.guard(r.inTx)()
	return r.get(workspaceID, id), nil
}

// GetByIDForUpdate equivale a GetByID: la transacción ya tiene acceso exclusivo.
func (r *ProductRepo) GetByIDForUpdate(ctx context.Context, workspaceID, id string) (*entity.Product, error) {
	return r.GetByID(ctx, workspaceID, id)
}

func (r *ProductRepo) GetByWorkspaceAndSKU(_ context.Context, workspaceID, sku string) (*entity.Product, error) {
	defer r.s.guard(r.inTx)()
	for _, p := range r.s.products {
		if p.WorkspaceID == workspaceID && p.SKU == sku {
			cp := *p
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *ProductRepo) Update(_ context.Context, product *entity.Product) error {
	defer r.s.guard(r.inTx)()
	p := r.row(product.WorkspaceID, product.ID)
	if p == nil {
		return domain.ErrNotFound
	}
	p.Name = product.Name
	p.Description = product.Description
	p.Price = product.Price
	p.UpdatedAt = product.UpdatedAt
	return nil
}

func (r *ProductRepo) ListByWorkspace(_ context.Context, workspaceID string, limit, offset int) ([]*entity.Product, error) {
	defer r.s.guard(r.inTx)()
	var list []*entity.Product
	for _, p := range r.s.products {
		if p.WorkspaceID == workspaceID {
			cp := *p
			list = append(list, &cp)
		}
	}
	sort.Slice(list, func(i, j int) bool {
		if !list[i].CreatedAt.Equal(list[j].CreatedAt) {
			return list[i].CreatedAt.After(list[j].CreatedAt)
		}
		return list[i].ID < list[j].ID
	})
	return page(list, limit, offset), nil
}

// Delete elimina el producto junto con sus ubicaciones y eventos.
func (r *ProductRepo) Delete(_ context.Context, workspaceID, id string) error {
	defer r.s.guard(r.inTx)()
	if r.row(workspaceID, id) == nil {
		return domain.ErrNotFound
	}
	delete(r.s.products, id)
	for lid, l := range r.s.locations {
		if l.ProductID == id {
			delete(r.s.locations, lid)
		}
	}
	kept := r.s.events[:0:0]
	for _, ev := range r.s.events {
		if ev.ProductID != id {
			kept = append(kept, ev)
		}
	}
	r.s.events = kept
	return nil
}

func (r *ProductRepo) AdjustStock(_ context.Context, workspaceID, id string, delta int64) (int64, bool, error) {
	defer r.s.guard(r.inTx)()
	p := r.row(workspaceID, id)
	if p == nil || !stock.CanApply(p.Stock, delta) {
		return 0, false, nil
	}
	p.Stock += delta
	p.UpdatedAt = r.s.now()
	return p.Stock, true, nil
}

func (r *ProductRepo) SetStock(_ context.Context, workspaceID, id string, quantity int64) error {
	defer r.s.guard(r.inTx)()
	p := r.row(workspaceID, id)
	if p == nil {
		return domain.ErrNotFound
	}
	if quantity < 0 {
		return fmt.Errorf("set product stock: stock negativo %d", quantity)
	}
	p.Stock = quantity
	p.UpdatedAt = r.s.now()
	return nil
}

func (r *ProductRepo) row(workspaceID, id string) *entity.Product {
	p, ok := r.s.products[id]
	if !ok || p.WorkspaceID != workspaceID {
		return nil
	}
	return p
}

func (r *ProductRepo) get(workspaceID, id string) *entity.Product {
	p := r.row(workspaceID, id)
	if p == nil {
		return nil
	}
	cp := *p
	return &cp
}

func page[T any](list []T, limit, offset int) []T {
	if offset < 0 {
		offset = 0
	}
	if offset >= len(list) {
		return nil
	}
	list = list[offset:]
	if limit > 0 && limit < len(list) {
		list = list[:limit]
	}
	return list
}
