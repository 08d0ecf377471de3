package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/contrib/swagger"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/jhoicas/stock-ledger/internal/application/inventory"
	"github.com/jhoicas/stock-ledger/internal/application/usecase"
	"github.com/jhoicas/stock-ledger/internal/domain/repository"
	"github.com/jhoicas/stock-ledger/internal/domain/stock"
	"github.com/jhoicas/stock-ledger/internal/infrastructure/memory"
	infrapdf "github.com/jhoicas/stock-ledger/internal/infrastructure/pdf"
	"github.com/jhoicas/stock-ledger/internal/infrastructure/postgres"
	httpRouter "github.com/jhoicas/stock-ledger/internal/interfaces/http"
	"github.com/jhoicas/stock-ledger/pkg/config"
	"github.com/jhoicas/stock-ledger/pkg/jwt"
	"github.com/jhoicas/stock-ledger/pkg/logger"
)

// stores agrupa los adaptadores de persistencia del driver elegido.
type stores struct {
	txRunner     inventory.TxRunner
	productRepo  repository.ProductRepository
	locationRepo repository.StockLocationRepository
	eventRepo    repository.StockEventRepository
	close        func()
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("cargar configuración: " + err.Error())
	}

	log := logger.New(logger.Config{
		Env:   cfg.App.Env,
		Level: cfg.Log.Level,
	})
	log.Info().
		Str("env", cfg.App.Env).
		Str("app", cfg.App.Name).
		Str("store", cfg.Store.Driver).
		Msg("iniciando aplicación")

	verifier, err := jwt.NewVerifier(cfg.JWT.Secret, cfg.JWT.Issuer)
	if err != nil {
		log.Fatal().Err(err).Msg("JWT_SECRET requerido")
	}

	distributePolicy, err := stock.ParsePolicy(cfg.Stock.DistributePolicy, stock.LargestOutSmallestIn{})
	if err != nil {
		log.Fatal().Err(err).Str("policy", cfg.Stock.DistributePolicy).Msg("STOCK_DISTRIBUTE_POLICY")
	}
	resyncPolicy, err := stock.ParsePolicy(cfg.Stock.ResyncPolicy, stock.LargestFirst{})
	if err != nil {
		log.Fatal().Err(err).Str("policy", cfg.Stock.ResyncPolicy).Msg("STOCK_RESYNC_POLICY")
	}
	truth, err := stock.ParseSourceOfTruth(cfg.Stock.SourceOfTruth, stock.TruthLocations)
	if err != nil {
		log.Fatal().Err(err).Str("source_of_truth", cfg.Stock.SourceOfTruth).Msg("STOCK_SOURCE_OF_TRUTH")
	}

	ctx := context.Background()
	st, err := openStores(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("inicializar persistencia")
	}
	defer st.close()

	productUC := usecase.NewProductUseCase(st.productRepo, st.txRunner)
	stockUC := inventory.NewStockUseCase(st.txRunner, st.productRepo, st.eventRepo, distributePolicy, log)
	locationUC := inventory.NewLocationUseCase(st.txRunner, st.productRepo, st.locationRepo, log)
	resyncUC := inventory.NewResyncUseCase(st.txRunner, st.locationRepo, truth, resyncPolicy, cfg.Stock.ResyncConcurrency, log)
	reportUC := inventory.NewReportUseCase(resyncUC, infrapdf.NewMarotoPDFGenerator())

	app := fiber.New(fiber.Config{
		AppName:      cfg.App.Name,
		ReadTimeout:  time.Second * 10,
		WriteTimeout: time.Second * 30,
		IdleTimeout:  time.Second * 60,
	})
	app.Use(recover.New())

	// Swagger UI en local: http://localhost:<port>/docs
	app.Use(swagger.New(swagger.Config{
		BasePath: "/",
		FilePath: "./docs/swagger.json",
		Path:     "docs",
		Title:    "Stock Ledger API",
	}))

	httpRouter.Router(app, httpRouter.RouterDeps{
		ProductUC:  productUC,
		StockUC:    stockUC,
		LocationUC: locationUC,
		ResyncUC:   resyncUC,
		ReportUC:   reportUC,
		Verifier:   verifier,
		Log:        log.Named("http"),
	})

	go func() {
		if err := app.Listen(cfg.HTTP.Addr()); err != nil {
			log.Error().Err(err).Msg("servidor HTTP finalizado")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("señal de apagado recibida, cerrando servidor...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("apagado del servidor")
	}

	log.Info().Msg("aplicación detenida")
}

// openStores abre el driver configurado. En postgres aplica las migraciones embebidas si
// DB_AUTO_MIGRATE está activo.
func openStores(ctx context.Context, cfg *config.Config, log *logger.Logger) (*stores, error) {
	if cfg.Store.Driver == config.DriverMemory {
		log.Warn().Msg("almacén en memoria: los datos se pierden al reiniciar")
		s := memory.NewStore()
		return &stores{
			txRunner:     memory.NewTxRunner(s),
			productRepo:  memory.NewProductRepository(s),
			locationRepo: memory.NewStockLocationRepository(s),
			eventRepo:    memory.NewStockEventRepository(s),
			close:        func() {},
		}, nil
	}

	if cfg.DB.AutoMigrate {
		if err := postgres.Migrate(cfg.DB.ConnectionString(), log); err != nil {
			return nil, err
		}
	}
	pool, err := postgres.NewPool(ctx, cfg.DB)
	if err != nil {
		return nil, err
	}
	return &stores{
		txRunner:     postgres.NewTxRunner(pool),
		productRepo:  postgres.NewProductRepository(pool),
		locationRepo: postgres.NewStockLocationRepository(pool),
		eventRepo:    postgres.NewStockEventRepository(pool),
		close:        pool.Close,
	}, nil
}
