package inventory

import (
	"context"

	"github.com/jhoicas/stock-ledger/internal/domain/repository"
)

// TxRunner ejecuta una función dentro de una transacción de BD, pasando repositorios atados a esa tx.
// Si fn devuelve error no queda ningún cambio aplicado.
type TxRunner interface {
	Run(ctx context.Context, fn func(
		productRepo repository.ProductRepository,
		locationRepo repository.StockLocationRepository,
		eventRepo repository.StockEventRepository,
	) error) error
}

// ResyncReportGenerator produce la representación en PDF de un reporte de reconciliación.
type ResyncReportGenerator interface {
	GenerateResyncPDF(ctx context.Context, report *ResyncReport) ([]byte, error)
}
