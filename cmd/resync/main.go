// resync reconcilia el contador de stock con las ubicaciones de un workspace sin levantar la API.
//
// Uso: go run ./cmd/resync -workspace <id> [-truth locations|counter] [-policy largest_first] [-dry-run] [-pdf reporte.pdf]
// Lee la conexión de las mismas variables de entorno que la API (DATABASE_URL, DB_HOST, ...).
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/jhoicas/stock-ledger/internal/application/inventory"
	"github.com/jhoicas/stock-ledger/internal/domain/stock"
	infrapdf "github.com/jhoicas/stock-ledger/internal/infrastructure/pdf"
	"github.com/jhoicas/stock-ledger/internal/infrastructure/postgres"
	"github.com/jhoicas/stock-ledger/pkg/config"
	"github.com/jhoicas/stock-ledger/pkg/logger"
)

func main() {
	var (
		workspaceID string
		truth       string
		policy      string
		actor       string
		pdfPath     string
		dryRun      bool
	)
	flag.StringVar(&workspaceID, "workspace", "", "Workspace a reconciliar (requerido)")
	flag.StringVar(&truth, "truth", "", "Fuente de verdad: locations | counter (por defecto STOCK_SOURCE_OF_TRUTH)")
	flag.StringVar(&policy, "policy", "", "Política de corrección: largest_first | smallest_first | round_robin | largest_out_smallest_in")
	flag.StringVar(&actor, "actor", "resync-cli", "Autor registrado en los eventos")
	flag.StringVar(&pdfPath, "pdf", "", "Escribe además el reporte en PDF en esta ruta")
	flag.BoolVar(&dryRun, "dry-run", false, "Solo informa diferencias, no corrige")
	flag.Parse()

	if workspaceID == "" {
		fmt.Fprintln(os.Stderr, "uso: resync -workspace <id> [-truth locations|counter] [-policy ...] [-dry-run] [-pdf ruta]")
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Cargar configuración: %v\n", err)
		os.Exit(1)
	}
	log := logger.NewWithWriter(os.Stderr, cfg.Log.Level)

	defPolicy, err := stock.ParsePolicy(cfg.Stock.ResyncPolicy, stock.LargestFirst{})
	if err != nil {
		log.Fatal().Err(err).Msg("STOCK_RESYNC_POLICY")
	}
	defTruth, err := stock.ParseSourceOfTruth(cfg.Stock.SourceOfTruth, stock.TruthLocations)
	if err != nil {
		log.Fatal().Err(err).Msg("STOCK_SOURCE_OF_TRUTH")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.DB.AutoMigrate {
		if err := postgres.Migrate(cfg.DB.ConnectionString(), log); err != nil {
			log.Fatal().Err(err).Msg("migraciones")
		}
	}
	pool, err := postgres.NewPool(ctx, cfg.DB)
	if err != nil {
		log.Fatal().Err(err).Msg("conexión a PostgreSQL")
	}
	defer pool.Close()

	resyncUC := inventory.NewResyncUseCase(
		postgres.NewTxRunner(pool), postgres.NewStockLocationRepository(pool),
		defTruth, defPolicy, cfg.Stock.ResyncConcurrency, log,
	)
	report, err := resyncUC.Resync(ctx, workspaceID, inventory.ResyncOptions{
		SourceOfTruth: truth,
		Policy:        policy,
		DryRun:        dryRun,
		Actor:         actor,
	})
	if err != nil {
		log.Error().Err(err).Msg("reconciliación")
		os.Exit(1)
	}

	for _, r := range report.Results {
		fmt.Printf("%-36s  %-20s  contador=%-8d ubicaciones=%-8d %s\n", r.ProductID, r.SKU, r.Counter, r.LocationsTotal, r.Status)
	}
	log.Info().
		Str("workspace_id", workspaceID).
		Str("source_of_truth", string(report.SourceOfTruth)).
		Bool("dry_run", report.DryRun).
		Int("products", len(report.Results)).
		Msg("reconciliación terminada")

	if pdfPath == "" {
		return
	}
	pdfBytes, err := infrapdf.NewMarotoPDFGenerator().GenerateResyncPDF(ctx, report)
	if err != nil {
		log.Error().Err(err).Msg("generar PDF")
		os.Exit(1)
	}
	if err := os.WriteFile(pdfPath, pdfBytes, 0o644); err != nil {
		log.Error().Err(err).Msg("escribir PDF")
		os.Exit(1)
	}
	log.Info().Str("path", pdfPath).Msg("reporte PDF escrito")
}
