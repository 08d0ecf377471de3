package memory

import (
	"context"
	"fmt"

	"github.com/jhoicas/stock-ledger/internal/domain/repository"
)

// TxRunner ejecuta callbacks de forma exclusiva sobre el Store. Si fn devuelve error
// (o entra en pánico) el estado vuelve al de antes de Run.
type TxRunner struct {
	s *Store
}

// NewTxRunner construye el runner sobre el almacén.
func NewTxRunner(s *Store) *TxRunner {
	return &TxRunner{s: s}
}

// Run ejecuta fn con repositorios atados a la transacción.
func (r *TxRunner) Run(ctx context.Context, fn func(
	productRepo repository.ProductRepository,
	locationRepo repository.StockLocationRepository,
	eventRepo repository.StockEventRepository,
) error) (err error) {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	snap := r.s.snapshot()
	committed := false
	defer func() {
		if !committed {
			r.s.restore(snap)
		}
	}()

	if err := fn(&ProductRepo{s: r.s, inTx: true}, &StockLocationRepo{s: r.s, inTx: true}, &StockEventRepo{s: r.s, inTx: true}); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	committed = true
	return nil
}
