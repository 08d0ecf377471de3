package usecase

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jhoicas/stock-ledger/internal/application/dto"
	"github.com/jhoicas/stock-ledger/internal/application/inventory"
	"github.com/jhoicas/stock-ledger/internal/domain"
	"github.com/jhoicas/stock-ledger/internal/domain/entity"
	"github.com/jhoicas/stock-ledger/internal/domain/repository"
)

// ProductUseCase casos de uso CRUD para productos. Stock solo se fija al crear; después se
// mueve exclusivamente por el motor de stock.
type ProductUseCase struct {
	repo     repository.ProductRepository
	txRunner inventory.TxRunner
}

// NewProductUseCase construye el caso de uso.
func NewProductUseCase(repo repository.ProductRepository, txRunner inventory.TxRunner) *ProductUseCase {
	return &ProductUseCase{repo: repo, txRunner: txRunner}
}

// Create crea un nuevo producto con su stock inicial. Un stock inicial positivo queda
// registrado como evento de ajuste.
func (uc *ProductUseCase) Create(ctx context.Context, workspaceID, userID string, in dto.CreateProductRequest) (*dto.ProductResponse, error) {
	if workspaceID == "" {
		return nil, domain.ErrWorkspaceRequired
	}
	in.SKU = strings.TrimSpace(in.SKU)
	in.Name = strings.TrimSpace(in.Name)
	if in.SKU == "" || in.Name == "" || in.Stock < 0 || in.Price.IsNegative() {
		return nil, domain.ErrInvalidInput
	}
	existing, err := uc.repo.GetByWorkspaceAndSKU(ctx, workspaceID, in.SKU)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, domain.ErrDuplicate
	}
	now := time.Now().UTC()
	product := &entity.Product{
		ID:          uuid.New().String(),
		WorkspaceID: workspaceID,
		SKU:         in.SKU,
		Name:        in.Name,
		Description: in.Description,
		Price:       in.Price,
		Stock:       in.Stock,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	err = uc.txRunner.Run(ctx, func(
		productRepo repository.ProductRepository,
		_ repository.StockLocationRepository,
		eventRepo repository.StockEventRepository,
	) error {
		if err := productRepo.Create(ctx, product); err != nil {
			return err
		}
		if product.Stock == 0 {
			return nil
		}
		return eventRepo.Append(ctx, &entity.StockEvent{
			WorkspaceID:   workspaceID,
			ProductID:     product.ID,
			Kind:          entity.StockEventAdjust,
			Delta:         product.Stock,
			QuantityAfter: product.Stock,
			Actor:         userID,
			Reason:        "stock inicial",
		})
	})
	if err != nil {
		return nil, err
	}
	return toProductResponse(product), nil
}

// GetByID obtiene un producto por ID.
func (uc *ProductUseCase) GetByID(ctx context.Context, workspaceID, id string) (*dto.ProductResponse, error) {
	product, err := uc.repo.GetByID(ctx, workspaceID, id)
	if err != nil {
		return nil, err
	}
	if product == nil {
		return nil, nil
	}
	return toProductResponse(product), nil
}

// Update actualiza un producto. No permite modificar Stock.
func (uc *ProductUseCase) Update(ctx context.Context, workspaceID, id string, in dto.UpdateProductRequest) (*dto.ProductResponse, error) {
	product, err := uc.repo.GetByID(ctx, workspaceID, id)
	if err != nil {
		return nil, err
	}
	if product == nil {
		return nil, nil
	}
	if in.Name != nil {
		name := strings.TrimSpace(*in.Name)
		if name == "" {
			return nil, domain.ErrInvalidInput
		}
		product.Name = name
	}
	if in.Description != nil {
		product.Description = *in.Description
	}
	if in.Price != nil {
		if in.Price.IsNegative() {
			return nil, domain.ErrInvalidInput
		}
		product.Price = *in.Price
	}
	product.UpdatedAt = time.Now().UTC()
	if err := uc.repo.Update(ctx, product); err != nil {
		return nil, err
	}
	return toProductResponse(product), nil
}

// List lista productos del workspace con paginación.
func (uc *ProductUseCase) List(ctx context.Context, workspaceID string, limit, offset int) (*dto.ProductListResponse, error) {
	list, err := uc.repo.ListByWorkspace(ctx, workspaceID, limit, offset)
	if err != nil {
		return nil, err
	}
	items := make([]dto.ProductResponse, 0, len(list))
	for _, p := range list {
		items = append(items, *toProductResponse(p))
	}
	return &dto.ProductListResponse{
		Items: items,
		Page:  dto.PageResponse{Limit: limit, Offset: offset},
	}, nil
}

// Delete elimina un producto con sus ubicaciones y su registro de eventos.
func (uc *ProductUseCase) Delete(ctx context.Context, workspaceID, id string) error {
	return uc.repo.Delete(ctx, workspaceID, id)
}

func toProductResponse(p *entity.Product) *dto.ProductResponse {
	if p == nil {
		return nil
	}
	return &dto.ProductResponse{
		ID:          p.ID,
		WorkspaceID: p.WorkspaceID,
		SKU:         p.SKU,
		Name:        p.Name,
		Description: p.Description,
		Price:       p.Price,
		Stock:       p.Stock,
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
	}
}
