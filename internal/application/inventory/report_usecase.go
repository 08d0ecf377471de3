package inventory

import (
	"context"
	"fmt"
)

// ReportUseCase genera el reporte de diferencias entre contador y ubicaciones.
// Siempre ejecuta la reconciliación en modo lectura.
type ReportUseCase struct {
	resync    *ResyncUseCase
	generator ResyncReportGenerator
}

// NewReportUseCase construye el caso de uso.
func NewReportUseCase(resync *ResyncUseCase, generator ResyncReportGenerator) *ReportUseCase {
	return &ReportUseCase{resync: resync, generator: generator}
}

// DriftReportPDF calcula las diferencias del workspace y las devuelve en PDF.
func (uc *ReportUseCase) DriftReportPDF(ctx context.Context, workspaceID string, opts ResyncOptions) ([]byte, error) {
	opts.DryRun = true
	report, err := uc.resync.Resync(ctx, workspaceID, opts)
	if err != nil {
		return nil, err
	}
	out, err := uc.generator.GenerateResyncPDF(ctx, report)
	if err != nil {
		return nil, fmt.Errorf("reporte de reconciliación: %w", err)
	}
	return out, nil
}
