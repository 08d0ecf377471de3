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

var _ repository.StockLocationRepository = (*StockLocationRepo)(nil)

const locationColumns = `id, workspace_id, product_id, city, agency, city_key, agency_key, quantity, unit_cost, notes, updated_by, created_at, updated_at`

// StockLocationRepo implementación de StockLocationRepository sobre PostgreSQL (usable con pool o tx).
type StockLocationRepo struct {
	q Querier
}

// NewStockLocationRepository construye el adaptador de ubicaciones. Pasar pool o tx (Querier).
func NewStockLocationRepository(q Querier) *StockLocationRepo {
	return &StockLocationRepo{q: q}
}

// GetByID obtiene una ubicación del workspace por ID.
func (r *StockLocationRepo) GetByID(ctx context.Context, workspaceID, id string) (*entity.StockLocation, error) {
	if !validID(id) {
		return nil, nil
	}
	query := `SELECT ` + locationColumns + ` FROM stock_locations WHERE id = $1 AND workspace_id = $2`
	return r.scanOne(ctx, "get stock location", query, id, workspaceID)
}

// GetByKey obtiene la ubicación por su clave canónica (producto, ciudad, agencia).
func (r *StockLocationRepo) GetByKey(ctx context.Context, workspaceID, productID, cityKey, agencyKey string) (*entity.StockLocation, error) {
	if !validID(productID) {
		return nil, nil
	}
	query := `
		SELECT ` + locationColumns + ` FROM stock_locations
		WHERE workspace_id = $1 AND product_id = $2 AND city_key = $3 AND agency_key = $4`
	return r.scanOne(ctx, "get stock location by key", query, workspaceID, productID, cityKey, agencyKey)
}

// ListByProduct lista las ubicaciones de un producto.
func (r *StockLocationRepo) ListByProduct(ctx context.Context, workspaceID, productID string) ([]*entity.StockLocation, error) {
	if !validID(productID) {
		return nil, nil
	}
	query := `
		SELECT ` + locationColumns + ` FROM stock_locations
		WHERE workspace_id = $1 AND product_id = $2
		ORDER BY city_key, agency_key, id`
	return r.list(ctx, "list stock locations", query, workspaceID, productID)
}

// ListByProductForUpdate lista y bloquea las ubicaciones del producto (SELECT FOR UPDATE).
// El orden fijo evita interbloqueos entre transacciones que tocan las mismas filas.
func (r *StockLocationRepo) ListByProductForUpdate(ctx context.Context, workspaceID, productID string) ([]*entity.StockLocation, error) {
	if !validID(productID) {
		return nil, nil
	}
	query := `
		SELECT ` + locationColumns + ` FROM stock_locations
		WHERE workspace_id = $1 AND product_id = $2
		ORDER BY city_key, agency_key, id
		FOR UPDATE`
	return r.list(ctx, "list stock locations for update", query, workspaceID, productID)
}

// ListProductIDs devuelve los productos del workspace con al menos una ubicación.
func (r *StockLocationRepo) ListProductIDs(ctx context.Context, workspaceID string) ([]string, error) {
	rows, err := r.q.Query(ctx,
		`SELECT DISTINCT product_id::text FROM stock_locations WHERE workspace_id = $1 ORDER BY 1`,
		workspaceID,
	)
	if err != nil {
		return nil, fmt.Errorf("list located products: %w", err)
	}
	defer rows.Close()
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan product id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// Upsert inserta la ubicación o actualiza la existente con la misma clave canónica.
func (r *StockLocationRepo) Upsert(ctx context.Context, l *entity.StockLocation) (*entity.StockLocation, error) {
	query := `
		INSERT INTO stock_locations (` + locationColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, now(), now())
		ON CONFLICT (workspace_id, product_id, city_key, agency_key)
		DO UPDATE SET city = EXCLUDED.city, agency = EXCLUDED.agency, quantity = EXCLUDED.quantity,
			unit_cost = EXCLUDED.unit_cost, notes = EXCLUDED.notes, updated_by = EXCLUDED.updated_by,
			updated_at = now()
		RETURNING ` + locationColumns
	out, err := scanLocation(r.q.QueryRow(ctx, query,
		l.ID, l.WorkspaceID, l.ProductID, l.City, l.Agency, l.CityKey, l.AgencyKey,
		l.Quantity, l.UnitCost, l.Notes, l.UpdatedBy,
	))
	if err != nil {
		return nil, fmt.Errorf("upsert stock location: %w", err)
	}
	return out, nil
}

// UpdateQuantity fija la cantidad de una ubicación.
func (r *StockLocationRepo) UpdateQuantity(ctx context.Context, workspaceID, id string, quantity int64, updatedBy string) error {
	if !validID(id) {
		return domain.ErrNotFound
	}
	cmd, err := r.q.Exec(ctx,
		`UPDATE stock_locations SET quantity = $3, updated_by = $4, updated_at = now() WHERE id = $1 AND workspace_id = $2`,
		id, workspaceID, quantity, updatedBy,
	)
	if err != nil {
		return fmt.Errorf("update stock location quantity: %w", err)
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// AdjustQuantity: escritura condicional única, mismo contrato que ProductRepo.AdjustStock.
func (r *StockLocationRepo) AdjustQuantity(ctx context.Context, workspaceID, id string, delta int64, updatedBy string) (int64, bool, error) {
	if !validID(id) {
		return 0, false, nil
	}
	query := `
		UPDATE stock_locations SET quantity = quantity + $3, updated_by = $4, updated_at = now()
		WHERE id = $1 AND workspace_id = $2
		  AND quantity >= -LEAST($3::bigint, 0)
		  AND quantity <= 9223372036854775807 - GREATEST($3::bigint, 0)
		RETURNING quantity`
	var qty int64
	err := r.q.QueryRow(ctx, query, id, workspaceID, delta, updatedBy).Scan(&qty)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, false, nil
		}
		return 0, false, fmt.Errorf("adjust stock location: %w", err)
	}
	return qty, true, nil
}

// Delete elimina una ubicación.
func (r *StockLocationRepo) Delete(ctx context.Context, workspaceID, id string) error {
	if !validID(id) {
		return domain.ErrNotFound
	}
	cmd, err := r.q.Exec(ctx, `DELETE FROM stock_locations WHERE id = $1 AND workspace_id = $2`, id, workspaceID)
	if err != nil {
		return fmt.Errorf("delete stock location: %w", err)
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *StockLocationRepo) scanOne(ctx context.Context, op, query string, args ...any) (*entity.StockLocation, error) {
	l, err := scanLocation(r.q.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return l, nil
}

func (r *StockLocationRepo) list(ctx context.Context, op, query string, args ...any) ([]*entity.StockLocation, error) {
	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()
	var list []*entity.StockLocation
	for rows.Next() {
		l, err := scanLocation(rows)
		if err != nil {
			return nil, fmt.Errorf("scan stock location: %w", err)
		}
		list = append(list, l)
	}
	return list, rows.Err()
}

func scanLocation(row pgx.Row) (*entity.StockLocation, error) {
	var l entity.StockLocation
	var updatedBy *string
	if err := row.Scan(
		&l.ID, &l.WorkspaceID, &l.ProductID, &l.City, &l.Agency, &l.CityKey, &l.AgencyKey,
		&l.Quantity, &l.UnitCost, &l.Notes, &updatedBy, &l.CreatedAt, &l.UpdatedAt,
	); err != nil {
		return nil, err
	}
	if updatedBy != nil {
		l.UpdatedBy = *updatedBy
	}
	return &l, nil
}
