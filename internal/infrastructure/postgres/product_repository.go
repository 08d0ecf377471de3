package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jhoicas/stock-ledger/internal/domain"
	"github.com/jhoicas/stock-ledger/internal/domain/entity"
	"github.com/jhoicas/stock-ledger/internal/domain/repository"
)

var _ repository.ProductRepository = (*ProductRepo)(nil)

const productColumns = `id, workspace_id, sku, name, description, price, stock, created_at, updated_at`

// ProductRepo implementación del puerto ProductRepository sobre PostgreSQL (usable con pool o tx).
type ProductRepo struct {
	q Querier
}

// NewProductRepository construye el adaptador de persistencia para productos. Pasar pool o tx (Querier).
func NewProductRepository(q Querier) *ProductRepo {
	return &ProductRepo{q: q}
}

// Create persiste un nuevo producto con su contador inicial.
func (r *ProductRepo) Create(ctx context.Context, product *entity.Product) error {
	query := `
		INSERT INTO products (` + productColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`
	_, err := r.q.Exec(ctx, query,
		product.ID, product.WorkspaceID, product.SKU, product.Name, product.Description,
		product.Price, product.Stock, product.CreatedAt, product.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrDuplicate
		}
		return fmt.Errorf("insert product: %w", err)
	}
	return nil
}

// GetByID obtiene un producto del workspace por ID.
func (r *ProductRepo) GetByID(ctx context.Context, workspaceID, id string) (*entity.Product, error) {
	if !validID(id) {
		return nil, nil
	}
	query := `SELECT ` + productColumns + ` FROM products WHERE id = $1 AND workspace_id = $2`
	return r.scanOne(ctx, "get product", query, id, workspaceID)
}

// GetByIDForUpdate obtiene el producto y bloquea la fila (SELECT FOR UPDATE).
func (r *ProductRepo) GetByIDForUpdate(ctx context.Context, workspaceID, id string) (*entity.Product, error) {
	if !validID(id) {
		return nil, nil
	}
	query := `SELECT ` + productColumns + ` FROM products WHERE id = $1 AND workspace_id = $2 FOR UPDATE`
	return r.scanOne(ctx, "get product for update", query, id, workspaceID)
}

// GetByWorkspaceAndSKU obtiene un producto por workspace y SKU.
func (r *ProductRepo) GetByWorkspaceAndSKU(ctx context.Context, workspaceID, sku string) (*entity.Product, error) {
	query := `SELECT ` + productColumns + ` FROM products WHERE workspace_id = $1 AND sku = $2`
	return r.scanOne(ctx, "get product by sku", query, workspaceID, sku)
}

// Update actualiza los datos descriptivos. El stock nunca se modifica por aquí.
func (r *ProductRepo) Update(ctx context.Context, product *entity.Product) error {
	query := `
		UPDATE products SET name = $3, description = $4, price = $5, updated_at = $6
		WHERE id = $1 AND workspace_id = $2`
	cmd, err := r.q.Exec(ctx, query,
		product.ID, product.WorkspaceID, product.Name, product.Description, product.Price, product.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update product: %w", err)
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// ListByWorkspace lista productos del workspace con paginación.
func (r *ProductRepo) ListByWorkspace(ctx context.Context, workspaceID string, limit, offset int) ([]*entity.Product, error) {
	query := `
		SELECT ` + productColumns + `
		FROM products WHERE workspace_id = $1 ORDER BY created_at DESC, id LIMIT $2 OFFSET $3`
	rows, err := r.q.Query(ctx, query, workspaceID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	defer rows.Close()
	var list []*entity.Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("scan product: %w", err)
		}
		list = append(list, p)
	}
	return list, rows.Err()
}

// Delete elimina un producto; ubicaciones y eventos caen por ON DELETE CASCADE.
func (r *ProductRepo) Delete(ctx context.Context, workspaceID, id string) error {
	if !validID(id) {
		return domain.ErrNotFound
	}
	cmd, err := r.q.Exec(ctx, `DELETE FROM products WHERE id = $1 AND workspace_id = $2`, id, workspaceID)
	if err != nil {
		return fmt.Errorf("delete product: %w", err)
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// AdjustStock: una sola sentencia condicional (CAS). La fila solo se actualiza si el
// resultado queda en [0, MaxInt64]; PostgreSQL serializa los UPDATE concurrentes sobre la fila
// y reevalúa el WHERE, así dos débitos que sobregirarían no pueden aplicarse ambos.
func (r *ProductRepo) AdjustStock(ctx context.Context, workspaceID, id string, delta int64) (int64, bool, error) {
	if !validID(id) {
		return 0, false, nil
	}
	query := `
		UPDATE products SET stock = stock + $3, updated_at = now()
		WHERE id = $1 AND workspace_id = $2
		  AND stock >= -LEAST($3::bigint, 0)
		  AND stock <= 9223372036854775807 - GREATEST($3::bigint, 0)
		RETURNING stock`
	var qty int64
	err := r.q.QueryRow(ctx, query, id, workspaceID, delta).Scan(&qty)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, false, nil
		}
		return 0, false, fmt.Errorf("adjust product stock: %w", err)
	}
	return qty, true, nil
}

// SetStock sobrescribe el contador.
func (r *ProductRepo) SetStock(ctx context.Context, workspaceID, id string, quantity int64) error {
	if !validID(id) {
		return domain.ErrNotFound
	}
	cmd, err := r.q.Exec(ctx,
		`UPDATE products SET stock = $3, updated_at = now() WHERE id = $1 AND workspace_id = $2`,
		id, workspaceID, quantity,
	)
	if err != nil {
		return fmt.Errorf("set product stock: %w", err)
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *ProductRepo) scanOne(ctx context.Context, op, query string, args ...any) (*entity.Product, error) {
	p, err := scanProduct(r.q.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return p, nil
}

func scanProduct(row pgx.Row) (*entity.Product, error) {
	var p entity.Product
	if err := row.Scan(
		&p.ID, &p.WorkspaceID, &p.SKU, &p.Name, &p.Description, &p.Price, &p.Stock, &p.CreatedAt, &p.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &p, nil
}
