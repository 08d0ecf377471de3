package domain_test

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/jhoicas/stock-ledger/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStockError_IsComparaPorCodigo(t *testing.T) {
	err := fmt.Errorf("distribute: %w", domain.InsufficientStock(10, 15))

	assert.ErrorIs(t, err, domain.ErrInsufficientStock)
	assert.NotErrorIs(t, err, domain.ErrInvalidDelta)
	assert.Equal(t, "distribute: stock insuficiente: disponible 10, solicitado 15", err.Error())
}

func TestAsStockError(t *testing.T) {
	se, ok := domain.AsStockError(fmt.Errorf("wrap: %w", domain.ErrProductNotFound))
	require.True(t, ok)
	assert.Equal(t, domain.CodeProductNotFound, se.Code)
	assert.Equal(t, http.StatusNotFound, se.HTTPStatus)

	_, ok = domain.AsStockError(errors.New("conexión perdida"))
	assert.False(t, ok)

	_, ok = domain.AsStockError(domain.ErrNotFound)
	assert.False(t, ok, "los errores CRUD no son StockError")
}
