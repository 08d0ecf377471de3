package postgres_test

import (
	"context"
	"math"
	"os"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/jhoicas/stock-ledger/internal/application/inventory"
	"github.com/jhoicas/stock-ledger/internal/domain"
	"github.com/jhoicas/stock-ledger/internal/domain/entity"
	"github.com/jhoicas/stock-ledger/internal/domain/repository"
	"github.com/jhoicas/stock-ledger/internal/domain/stock"
	"github.com/jhoicas/stock-ledger/internal/infrastructure/postgres"
	"github.com/jhoicas/stock-ledger/pkg/config"
	"github.com/jhoicas/stock-ledger/pkg/logger"
)

const itWorkspace = "ws-integration"

// newTestPool levanta un PostgreSQL en contenedor, aplica las migraciones embebidas y
// devuelve un pool listo. Solo corre con INTEGRATION_TESTS=1.
func newTestPool(t *testing.T) *pgxpool.Pool {
	t.Helper()
	if testing.Short() || os.Getenv("INTEGRATION_TESTS") == "" {
		t.Skip("INTEGRATION_TESTS no definido")
	}
	ctx := context.Background()

	container, err := tcpostgres.Run(ctx,
		"postgres:16-alpine",
		tcpostgres.WithDatabase("stock_ledger_test"),
		tcpostgres.WithUsername("postgres"),
		tcpostgres.WithPassword("postgres"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second)),
	)
	require.NoError(t, err, "arrancar contenedor PostgreSQL")
	t.Cleanup(func() { _ = container.Terminate(context.Background()) })

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	require.NoError(t, postgres.Migrate(dsn, logger.Nop()))
	// Segunda pasada: sin cambios pendientes.
	require.NoError(t, postgres.Migrate(dsn, logger.Nop()))

	pool, err := postgres.NewPool(ctx, config.DBConfig{DatabaseURL: dsn})
	require.NoError(t, err)
	t.Cleanup(pool.Close)
	return pool
}

func seedProduct(t *testing.T, pool *pgxpool.Pool, sku string, stockQty int64) *entity.Product {
	t.Helper()
	now := time.Now().UTC()
	p := &entity.Product{
		ID:          uuid.New().String(),
		WorkspaceID: itWorkspace,
		SKU:         sku,
		Name:        "Producto " + sku,
		Price:       decimal.NewFromInt(1000),
		Stock:       stockQty,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	require.NoError(t, postgres.NewProductRepository(pool).Create(context.Background(), p))
	return p
}

// ─── Repositorios ─────────────────────────────────────────────────────────────

func TestProductRepo_CASConcurrente(t *testing.T) {
	pool := newTestPool(t)
	ctx := context.Background()
	p := seedProduct(t, pool, "SKU-CAS", 10)
	repo := postgres.NewProductRepository(pool)

	var ok, rejected int64
	var wg sync.WaitGroup
	for i := 0; i < 25; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, applied, err := repo.AdjustStock(ctx, itWorkspace, p.ID, -1)
			assert.NoError(t, err)
			if applied {
				atomic.AddInt64(&ok, 1)
			} else {
				atomic.AddInt64(&rejected, 1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int64(10), ok)
	assert.Equal(t, int64(15), rejected)
	got, err := repo.GetByID(ctx, itWorkspace, p.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(0), got.Stock)
}

func TestStockLocation_AjusteConcurrente(t *testing.T) {
	pool := newTestPool(t)
	ctx := context.Background()
	p := seedProduct(t, pool, "SKU-LOC-CAS", 0)
	txRunner := postgres.NewTxRunner(pool)
	productRepo := postgres.NewProductRepository(pool)
	locationRepo := postgres.NewStockLocationRepository(pool)
	log := logger.Nop()

	loc, _, err := inventory.NewLocationUseCase(txRunner, productRepo, locationRepo, log).Upsert(ctx, inventory.UpsertLocationInput{
		WorkspaceID: itWorkspace, ProductID: p.ID, UserID: "u1", City: "Cali", Agency: "Sur", Quantity: 20,
	})
	require.NoError(t, err)
	stockUC := inventory.NewStockUseCase(txRunner, productRepo, postgres.NewStockEventRepository(pool), nil, log)

	var ok, rejected int64
	var wg sync.WaitGroup
	for i := 0; i < 30; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := stockUC.AdjustStockLocationQuantity(ctx, inventory.LocationAdjustInput{
				WorkspaceID: itWorkspace, EntryID: loc.ID, UserID: "u1", Adjustment: -3,
			})
			if err == nil {
				atomic.AddInt64(&ok, 1)
				return
			}
			if assert.ErrorIs(t, err, domain.ErrInsufficientStock) {
				atomic.AddInt64(&rejected, 1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int64(6), ok)
	assert.Equal(t, int64(24), rejected)
	got, err := locationRepo.GetByID(ctx, itWorkspace, loc.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), got.Quantity)
}

func TestProductRepo_CreditoQueDesbordaNoSeAplica(t *testing.T) {
	pool := newTestPool(t)
	ctx := context.Background()
	p := seedProduct(t, pool, "SKU-OVF", 10)
	repo := postgres.NewProductRepository(pool)

	_, applied, err := repo.AdjustStock(ctx, itWorkspace, p.ID, math.MaxInt64)
	require.NoError(t, err, "el desborde no debe llegar como error de PostgreSQL")
	assert.False(t, applied)

	qty, applied, err := repo.AdjustStock(ctx, itWorkspace, p.ID, math.MaxInt64-10)
	require.NoError(t, err)
	assert.True(t, applied)
	assert.Equal(t, int64(math.MaxInt64), qty)
}

func TestProductRepo_SKUDuplicado(t *testing.T) {
	pool := newTestPool(t)
	seedProduct(t, pool, "SKU-DUP", 0)

	now := time.Now().UTC()
	err := postgres.NewProductRepository(pool).Create(context.Background(), &entity.Product{
		ID: uuid.New().String(), WorkspaceID: itWorkspace, SKU: "SKU-DUP", Name: "otro", CreatedAt: now, UpdatedAt: now,
	})
	assert.ErrorIs(t, err, domain.ErrDuplicate)
}

func TestProductRepo_IDInvalidoEsNoEncontrado(t *testing.T) {
	pool := newTestPool(t)
	got, err := postgres.NewProductRepository(pool).GetByID(context.Background(), itWorkspace, "no-es-uuid")
	require.NoError(t, err)
	assert.Nil(t, got)
}

// ─── Casos de uso sobre PostgreSQL ────────────────────────────────────────────

func TestStockEngine_RepartoYReconciliacion(t *testing.T) {
	pool := newTestPool(t)
	ctx := context.Background()
	txRunner := postgres.NewTxRunner(pool)
	productRepo := postgres.NewProductRepository(pool)
	locationRepo := postgres.NewStockLocationRepository(pool)
	eventRepo := postgres.NewStockEventRepository(pool)
	log := logger.Nop()

	p := seedProduct(t, pool, "SKU-ENG", 0)
	locUC := inventory.NewLocationUseCase(txRunner, productRepo, locationRepo, log)
	stockUC := inventory.NewStockUseCase(txRunner, productRepo, eventRepo, stock.LargestOutSmallestIn{}, log)
	resyncUC := inventory.NewResyncUseCase(txRunner, locationRepo, stock.TruthLocations, stock.LargestFirst{}, 2, log)

	_, _, err := locUC.Upsert(ctx, inventory.UpsertLocationInput{
		WorkspaceID: itWorkspace, ProductID: p.ID, UserID: "u1", City: "Bogotá", Agency: "Norte", Quantity: 5,
		UnitCost: decimal.NewFromInt(100),
	})
	require.NoError(t, err)
	_, total, err := locUC.Upsert(ctx, inventory.UpsertLocationInput{
		WorkspaceID: itWorkspace, ProductID: p.ID, UserID: "u1", City: "Cali", Agency: "Sur", Quantity: 3,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(8), total)

	// Misma clave canónica con otra forma de escritura.
	_, total, err = locUC.Upsert(ctx, inventory.UpsertLocationInput{
		WorkspaceID: itWorkspace, ProductID: p.ID, UserID: "u1", City: "BOGOTÁ", Agency: " norte ", Quantity: 6,
		UnitCost: decimal.NewFromInt(100),
	})
	require.NoError(t, err)
	assert.Equal(t, int64(9), total)

	res, err := stockUC.DistributeStockDelta(ctx, inventory.DistributeInput{
		WorkspaceID: itWorkspace, ProductID: p.ID, UserID: "u1", Delta: -7,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(2), res.Total)

	// Débito mayor que la suma: todo o nada.
	_, err = stockUC.DistributeStockDelta(ctx, inventory.DistributeInput{
		WorkspaceID: itWorkspace, ProductID: p.ID, UserID: "u1", Delta: -3,
	})
	assert.ErrorIs(t, err, domain.ErrInsufficientStock)
	locs, err := locationRepo.ListByProduct(ctx, itWorkspace, p.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), entity.SumQuantities(locs))

	// El contador se aparta y la reconciliación lo devuelve a la suma.
	_, err = stockUC.AdjustProductStock(ctx, inventory.AdjustStockInput{
		WorkspaceID: itWorkspace, ProductID: p.ID, UserID: "u1", Delta: 5,
	})
	require.NoError(t, err)
	report, err := resyncUC.Resync(ctx, itWorkspace, inventory.ResyncOptions{Actor: "u1"})
	require.NoError(t, err)
	require.Len(t, report.Results, 1)
	assert.Equal(t, inventory.ResyncStatusResynced, report.Results[0].Status)

	got, err := productRepo.GetByID(ctx, itWorkspace, p.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), got.Stock)

	events, err := eventRepo.ListByProduct(ctx, itWorkspace, p.ID, 100, 0)
	require.NoError(t, err)
	require.NotEmpty(t, events)
	for i := 1; i < len(events); i++ {
		assert.Less(t, events[i-1].Seq, events[i].Seq)
	}
}

func TestTxRunner_RollbackEnError(t *testing.T) {
	pool := newTestPool(t)
	ctx := context.Background()
	p := seedProduct(t, pool, "SKU-TX", 4)

	err := postgres.NewTxRunner(pool).Run(ctx, func(
		productRepo repository.ProductRepository,
		_ repository.StockLocationRepository,
		_ repository.StockEventRepository,
	) error {
		_, applied, err := productRepo.AdjustStock(ctx, itWorkspace, p.ID, -4)
		require.NoError(t, err)
		require.True(t, applied)
		return domain.ErrInvalidInput
	})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	got, err := postgres.NewProductRepository(pool).GetByID(ctx, itWorkspace, p.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(4), got.Stock)
}
