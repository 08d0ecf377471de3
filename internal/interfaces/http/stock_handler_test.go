package http_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/stock-ledger/internal/application/dto"
	"github.com/jhoicas/stock-ledger/internal/application/inventory"
	"github.com/jhoicas/stock-ledger/internal/application/usecase"
	"github.com/jhoicas/stock-ledger/internal/domain"
	"github.com/jhoicas/stock-ledger/internal/domain/entity"
	"github.com/jhoicas/stock-ledger/internal/domain/stock"
	"github.com/jhoicas/stock-ledger/internal/infrastructure/memory"
	"github.com/jhoicas/stock-ledger/internal/infrastructure/pdf"
	apphttp "github.com/jhoicas/stock-ledger/internal/interfaces/http"
	"github.com/jhoicas/stock-ledger/pkg/logger"
)

// ──────────────────────────────────────────────────────────────────────────────
// Helpers de test
// ──────────────────────────────────────────────────────────────────────────────

// buildStockApp arma la API completa sobre el almacén en memoria.
func buildStockApp(t *testing.T) *fiber.App {
	t.Helper()
	store := memory.NewStore()
	txRunner := memory.NewTxRunner(store)
	productRepo := memory.NewProductRepository(store)
	locationRepo := memory.NewStockLocationRepository(store)
	eventRepo := memory.NewStockEventRepository(store)
	log := logger.Nop()

	resyncUC := inventory.NewResyncUseCase(txRunner, locationRepo, stock.TruthLocations, stock.LargestFirst{}, 2, log)
	app := fiber.New()
	apphttp.Router(app, apphttp.RouterDeps{
		ProductUC:  usecase.NewProductUseCase(productRepo, txRunner),
		StockUC:    inventory.NewStockUseCase(txRunner, productRepo, eventRepo, stock.LargestOutSmallestIn{}, log),
		LocationUC: inventory.NewLocationUseCase(txRunner, productRepo, locationRepo, log),
		ResyncUC:   resyncUC,
		ReportUC:   inventory.NewReportUseCase(resyncUC, pdf.NewMarotoPDFGenerator()),
		Verifier:   mustVerifier(t),
		Log:        log,
	})
	return app
}

// call lanza una petición con el rol indicado y devuelve status y cuerpo.
func call(t *testing.T, app *fiber.App, method, path, role string, body any) (int, []byte) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if role != "" {
		req.Header.Set("Authorization", tokenForRole(t, role))
	}
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	out, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, out
}

func decode[T any](t *testing.T, raw []byte) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(raw, &v), string(raw))
	return v
}

// createProduct crea un producto con stock inicial y devuelve su ID.
func createProduct(t *testing.T, app *fiber.App, sku string, initial int64) string {
	t.Helper()
	status, raw := call(t, app, http.MethodPost, "/api/products", apphttp.RoleOperator, dto.CreateProductRequest{
		SKU: sku, Name: "Producto " + sku, Stock: initial,
	})
	require.Equal(t, http.StatusCreated, status, string(raw))
	return decode[dto.ProductResponse](t, raw).ID
}

func putLocation(t *testing.T, app *fiber.App, productID, city, agency string, qty int64) dto.AdjustLocationResponse {
	t.Helper()
	status, raw := call(t, app, http.MethodPut, "/api/products/"+productID+"/stock/locations", apphttp.RoleOperator,
		dto.UpsertLocationRequest{City: city, Agency: agency, Quantity: qty})
	require.Equal(t, http.StatusOK, status, string(raw))
	return decode[dto.AdjustLocationResponse](t, raw)
}

// ──────────────────────────────────────────────────────────────────────────────
// Ajuste del contador
// ──────────────────────────────────────────────────────────────────────────────

func TestStockAdjust_DebitoYCredito(t *testing.T) {
	app := buildStockApp(t)
	id := createProduct(t, app, "SKU-1", 10)

	status, raw := call(t, app, http.MethodPost, "/api/products/"+id+"/stock/adjust", apphttp.RoleOperator,
		dto.AdjustStockRequest{Delta: -3, Reason: "venta"})
	require.Equal(t, http.StatusOK, status, string(raw))
	assert.Equal(t, int64(7), decode[dto.ProductResponse](t, raw).Stock)

	status, raw = call(t, app, http.MethodPost, "/api/products/"+id+"/stock/adjust", apphttp.RoleAdmin,
		dto.AdjustStockRequest{Delta: 5})
	require.Equal(t, http.StatusOK, status, string(raw))
	assert.Equal(t, int64(12), decode[dto.ProductResponse](t, raw).Stock)
}

func TestStockAdjust_StockInsuficiente_Retorna400(t *testing.T) {
	app := buildStockApp(t)
	id := createProduct(t, app, "SKU-1", 2)

	status, raw := call(t, app, http.MethodPost, "/api/products/"+id+"/stock/adjust", apphttp.RoleOperator,
		dto.AdjustStockRequest{Delta: -5})
	assert.Equal(t, http.StatusBadRequest, status)
	body := decode[dto.ErrorResponse](t, raw)
	assert.Equal(t, domain.CodeInsufficientStock, body.Code)
	assert.Contains(t, body.Message, "disponible 2, solicitado 5")

	// El contador no cambió.
	status, raw = call(t, app, http.MethodGet, "/api/products/"+id, apphttp.RoleViewer, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, int64(2), decode[dto.ProductResponse](t, raw).Stock)
}

func TestStockAdjust_DeltaNoEntero_Retorna400(t *testing.T) {
	app := buildStockApp(t)
	id := createProduct(t, app, "SKU-1", 2)

	for _, delta := range []float64{0, 1.5} {
		status, raw := call(t, app, http.MethodPost, "/api/products/"+id+"/stock/adjust", apphttp.RoleOperator,
			dto.AdjustStockRequest{Delta: delta})
		assert.Equal(t, http.StatusBadRequest, status)
		assert.Equal(t, domain.CodeInvalidDelta, decode[dto.ErrorResponse](t, raw).Code)
	}
}

// 9.223372036854775e18 cabe en int64 pero sumado al contador lo desborda.
func TestStockAdjust_CreditoQueDesborda_Retorna400(t *testing.T) {
	app := buildStockApp(t)
	id := createProduct(t, app, "SKU-1", 2000)

	status, raw := call(t, app, http.MethodPost, "/api/products/"+id+"/stock/adjust", apphttp.RoleOperator,
		dto.AdjustStockRequest{Delta: 9.223372036854775e18})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, domain.CodeInvalidDelta, decode[dto.ErrorResponse](t, raw).Code)

	status, raw = call(t, app, http.MethodGet, "/api/products/"+id, apphttp.RoleViewer, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, int64(2000), decode[dto.ProductResponse](t, raw).Stock)
}

func TestStockAdjust_ProductoInexistente_Retorna404(t *testing.T) {
	app := buildStockApp(t)
	status, raw := call(t, app, http.MethodPost, "/api/products/00000000-0000-0000-0000-00000000ffff/stock/adjust",
		apphttp.RoleOperator, dto.AdjustStockRequest{Delta: 1})
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, domain.CodeProductNotFound, decode[dto.ErrorResponse](t, raw).Code)
}

func TestStockAdjust_RolConsulta_Retorna403(t *testing.T) {
	app := buildStockApp(t)
	id := createProduct(t, app, "SKU-1", 2)
	status, _ := call(t, app, http.MethodPost, "/api/products/"+id+"/stock/adjust", apphttp.RoleViewer,
		dto.AdjustStockRequest{Delta: 1})
	assert.Equal(t, http.StatusForbidden, status)
}

func TestStockAdjust_SinToken_Retorna401(t *testing.T) {
	app := buildStockApp(t)
	status, _ := call(t, app, http.MethodPost, "/api/products/x/stock/adjust", "", dto.AdjustStockRequest{Delta: 1})
	assert.Equal(t, http.StatusUnauthorized, status)
}

// ──────────────────────────────────────────────────────────────────────────────
// Ubicaciones y reparto
// ──────────────────────────────────────────────────────────────────────────────

func TestLocations_UpsertSincronizaContador(t *testing.T) {
	app := buildStockApp(t)
	id := createProduct(t, app, "SKU-1", 10)

	putLocation(t, app, id, "Bogotá", "Norte", 5)
	out := putLocation(t, app, id, "Cali", "Sur", 3)
	assert.Equal(t, int64(8), out.Total)

	// Misma clave canónica: reemplaza la ubicación existente.
	out = putLocation(t, app, id, "  bogotá ", "NORTE", 6)
	assert.Equal(t, int64(9), out.Total)

	status, raw := call(t, app, http.MethodGet, "/api/products/"+id+"/stock/locations", apphttp.RoleViewer, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Len(t, decode[[]dto.StockLocationResponse](t, raw), 2)
}

func TestStockDistribute_RepartoAtomico(t *testing.T) {
	app := buildStockApp(t)
	id := createProduct(t, app, "SKU-1", 0)
	putLocation(t, app, id, "Bogotá", "Norte", 5)
	putLocation(t, app, id, "Cali", "Sur", 3)

	status, raw := call(t, app, http.MethodPost, "/api/products/"+id+"/stock/distribute", apphttp.RoleOperator,
		dto.DistributeStockRequest{Delta: -6, Reason: "despacho"})
	require.Equal(t, http.StatusOK, status, string(raw))
	out := decode[dto.DistributeStockResponse](t, raw)
	assert.Equal(t, int64(2), out.Total)
	assert.False(t, out.FellBack)
	var sum int64
	for _, a := range out.Allocations {
		sum += a.Delta
	}
	assert.Equal(t, int64(-6), sum)

	// Débito mayor que la suma: nada cambia.
	status, raw = call(t, app, http.MethodPost, "/api/products/"+id+"/stock/distribute", apphttp.RoleOperator,
		dto.DistributeStockRequest{Delta: -3})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, domain.CodeInsufficientStock, decode[dto.ErrorResponse](t, raw).Code)

	status, raw = call(t, app, http.MethodGet, "/api/products/"+id, apphttp.RoleViewer, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, int64(2), decode[dto.ProductResponse](t, raw).Stock)
}

func TestStockDistribute_PoliticaDesconocida_Retorna400(t *testing.T) {
	app := buildStockApp(t)
	id := createProduct(t, app, "SKU-1", 0)
	putLocation(t, app, id, "Bogotá", "Norte", 5)

	status, raw := call(t, app, http.MethodPost, "/api/products/"+id+"/stock/distribute", apphttp.RoleOperator,
		dto.DistributeStockRequest{Delta: -1, Policy: "random"})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, domain.CodeInvalidPolicy, decode[dto.ErrorResponse](t, raw).Code)
}

func TestLocationAdjust_AjustaYSincroniza(t *testing.T) {
	app := buildStockApp(t)
	id := createProduct(t, app, "SKU-1", 0)
	loc := putLocation(t, app, id, "Bogotá", "Norte", 5)
	putLocation(t, app, id, "Cali", "Sur", 3)

	status, raw := call(t, app, http.MethodPost, "/api/stock/locations/"+loc.Location.ID+"/adjust", apphttp.RoleOperator,
		dto.AdjustLocationRequest{Adjustment: -2})
	require.Equal(t, http.StatusOK, status, string(raw))
	out := decode[dto.AdjustLocationResponse](t, raw)
	assert.Equal(t, int64(3), out.Location.Quantity)
	assert.Equal(t, int64(6), out.Total)

	status, raw = call(t, app, http.MethodPost, "/api/stock/locations/"+loc.Location.ID+"/adjust", apphttp.RoleOperator,
		dto.AdjustLocationRequest{Adjustment: -4})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, domain.CodeInsufficientStock, decode[dto.ErrorResponse](t, raw).Code)
}

func TestLocationDelete_ResincronizaContador(t *testing.T) {
	app := buildStockApp(t)
	id := createProduct(t, app, "SKU-1", 0)
	loc := putLocation(t, app, id, "Bogotá", "Norte", 5)
	putLocation(t, app, id, "Cali", "Sur", 3)

	status, raw := call(t, app, http.MethodDelete, "/api/stock/locations/"+loc.Location.ID, apphttp.RoleOperator, nil)
	require.Equal(t, http.StatusOK, status, string(raw))
	assert.EqualValues(t, 3, decode[map[string]any](t, raw)["total"])

	status, _ = call(t, app, http.MethodDelete, "/api/stock/locations/"+loc.Location.ID, apphttp.RoleOperator, nil)
	assert.Equal(t, http.StatusNotFound, status)
}

func TestStockEvents_OrdenDeRegistro(t *testing.T) {
	app := buildStockApp(t)
	id := createProduct(t, app, "SKU-1", 4)
	call(t, app, http.MethodPost, "/api/products/"+id+"/stock/adjust", apphttp.RoleOperator, dto.AdjustStockRequest{Delta: -1})
	call(t, app, http.MethodPost, "/api/products/"+id+"/stock/adjust", apphttp.RoleOperator, dto.AdjustStockRequest{Delta: 2})

	status, raw := call(t, app, http.MethodGet, "/api/products/"+id+"/stock/events?limit=10", apphttp.RoleViewer, nil)
	require.Equal(t, http.StatusOK, status, string(raw))
	out := decode[dto.StockEventListResponse](t, raw)
	require.Len(t, out.Items, 3)
	assert.Equal(t, "stock inicial", out.Items[0].Reason)
	assert.Equal(t, []int64{4, 3, 5}, []int64{out.Items[0].QuantityAfter, out.Items[1].QuantityAfter, out.Items[2].QuantityAfter})
	assert.Less(t, out.Items[0].Seq, out.Items[1].Seq)
	assert.Equal(t, testUserID, out.Items[1].Actor)
}

// ──────────────────────────────────────────────────────────────────────────────
// Reconciliación
// ──────────────────────────────────────────────────────────────────────────────

func TestResync_SoloAdmin(t *testing.T) {
	app := buildStockApp(t)
	status, _ := call(t, app, http.MethodPost, "/api/stock/resync", apphttp.RoleOperator, dto.ResyncRequest{})
	assert.Equal(t, http.StatusForbidden, status)
	status, _ = call(t, app, http.MethodGet, "/api/stock/resync/report.pdf", apphttp.RoleViewer, nil)
	assert.Equal(t, http.StatusForbidden, status)
}

func TestResync_DryRunYCorreccion(t *testing.T) {
	app := buildStockApp(t)
	id := createProduct(t, app, "SKU-1", 0)
	putLocation(t, app, id, "Bogotá", "Norte", 5)
	putLocation(t, app, id, "Cali", "Sur", 3)
	// El contador se aparta de las ubicaciones.
	call(t, app, http.MethodPost, "/api/products/"+id+"/stock/adjust", apphttp.RoleOperator, dto.AdjustStockRequest{Delta: 4})

	status, raw := call(t, app, http.MethodPost, "/api/stock/resync", apphttp.RoleAdmin, dto.ResyncRequest{DryRun: true})
	require.Equal(t, http.StatusOK, status, string(raw))
	out := decode[dto.ResyncResponse](t, raw)
	require.Len(t, out.Results, 1)
	assert.Equal(t, inventory.ResyncStatusDrift, out.Results[0].Status)
	assert.Equal(t, int64(12), out.Results[0].Counter)
	assert.Equal(t, int64(8), out.Results[0].LocationsTotal)

	status, raw = call(t, app, http.MethodPost, "/api/stock/resync", apphttp.RoleAdmin, nil)
	require.Equal(t, http.StatusOK, status, string(raw))
	out = decode[dto.ResyncResponse](t, raw)
	assert.Equal(t, string(stock.TruthLocations), out.SourceOfTruth)
	assert.Equal(t, inventory.ResyncStatusResynced, out.Results[0].Status)

	status, raw = call(t, app, http.MethodGet, "/api/products/"+id, apphttp.RoleViewer, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, int64(8), decode[dto.ProductResponse](t, raw).Stock)

	// Segunda pasada: nada que corregir.
	_, raw = call(t, app, http.MethodPost, "/api/stock/resync", apphttp.RoleAdmin, nil)
	assert.Equal(t, inventory.ResyncStatusOK, decode[dto.ResyncResponse](t, raw).Results[0].Status)
}

func TestResync_FuenteDeVerdadInvalida_Retorna400(t *testing.T) {
	app := buildStockApp(t)
	status, raw := call(t, app, http.MethodPost, "/api/stock/resync", apphttp.RoleAdmin, dto.ResyncRequest{SourceOfTruth: "ledger"})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, domain.CodeInvalidSourceTruth, decode[dto.ErrorResponse](t, raw).Code)
}

func TestResyncReport_DevuelvePDF(t *testing.T) {
	app := buildStockApp(t)
	id := createProduct(t, app, "SKU-1", 0)
	putLocation(t, app, id, "Bogotá", "Norte", 5)

	req := httptest.NewRequest(http.MethodGet, "/api/stock/resync/report.pdf", nil)
	req.Header.Set("Authorization", tokenForRole(t, apphttp.RoleAdmin))
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/pdf", resp.Header.Get("Content-Type"))
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(body, []byte("%PDF")))
}

// ──────────────────────────────────────────────────────────────────────────────
// Validación de cuerpos y errores internos
// ──────────────────────────────────────────────────────────────────────────────

func fieldsOf(details []dto.ValidationDetail) []string {
	out := make([]string, 0, len(details))
	for _, d := range details {
		out = append(out, d.Field)
	}
	return out
}

func TestLocations_UpsertInvalido_Retorna400ConDetalle(t *testing.T) {
	app := buildStockApp(t)
	id := createProduct(t, app, "SKU-1", 0)

	status, raw := call(t, app, http.MethodPut, "/api/products/"+id+"/stock/locations", apphttp.RoleOperator,
		dto.UpsertLocationRequest{Agency: "Norte", Quantity: -4})
	require.Equal(t, http.StatusBadRequest, status)
	body := decode[dto.ErrorResponse](t, raw)
	assert.Equal(t, "VALIDATION", body.Code)
	assert.ElementsMatch(t, []string{"city", "quantity"}, fieldsOf(body.Details))

	status, raw = call(t, app, http.MethodGet, "/api/products/"+id+"/stock/locations", apphttp.RoleViewer, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Empty(t, decode[[]dto.StockLocationResponse](t, raw))
}

func TestProductCreate_PrecioNegativo_Retorna400(t *testing.T) {
	app := buildStockApp(t)
	status, raw := call(t, app, http.MethodPost, "/api/products", apphttp.RoleOperator, dto.CreateProductRequest{
		SKU: "SKU-1", Name: "Camisa", Price: decimal.NewFromInt(-1),
	})
	require.Equal(t, http.StatusBadRequest, status)
	body := decode[dto.ErrorResponse](t, raw)
	assert.Equal(t, "VALIDATION", body.Code)
	require.Len(t, body.Details, 1)
	assert.Equal(t, "price", body.Details[0].Field)
}

func TestStockAdjust_JSONMalformado_Retorna400(t *testing.T) {
	app := buildStockApp(t)
	id := createProduct(t, app, "SKU-1", 2)

	req := httptest.NewRequest(http.MethodPost, "/api/products/"+id+"/stock/adjust", bytes.NewBufferString(`{"delta":`))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", tokenForRole(t, apphttp.RoleOperator))
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "INVALID_BODY", decode[dto.ErrorResponse](t, raw).Code)
}

// brokenProductRepo falla en cada lectura por ID con un error del driver.
type brokenProductRepo struct {
	*memory.ProductRepo
}

func (brokenProductRepo) GetByID(context.Context, string, string) (*entity.Product, error) {
	return nil, errors.New(`pq: relation "products" does not exist`)
}

// Un 500 responde un mensaje genérico; la causa solo queda en el log.
func TestErrorInterno_NoExponeLaCausa(t *testing.T) {
	store := memory.NewStore()
	var logs bytes.Buffer
	app := fiber.New()
	apphttp.Router(app, apphttp.RouterDeps{
		ProductUC: usecase.NewProductUseCase(brokenProductRepo{memory.NewProductRepository(store)}, memory.NewTxRunner(store)),
		Verifier:  mustVerifier(t),
		Log:       logger.NewWithWriter(&logs, "info"),
	})

	status, raw := call(t, app, http.MethodGet, "/api/products/00000000-0000-0000-0000-000000000001", apphttp.RoleViewer, nil)
	require.Equal(t, http.StatusInternalServerError, status)
	body := decode[dto.ErrorResponse](t, raw)
	assert.Equal(t, "INTERNAL", body.Code)
	assert.Equal(t, "error interno del servidor", body.Message)
	assert.NotContains(t, string(raw), "relation")

	assert.Contains(t, logs.String(), `relation \"products\" does not exist`)
	assert.Contains(t, logs.String(), `"status":500`)
}

func TestHealth(t *testing.T) {
	app := buildStockApp(t)
	status, raw := call(t, app, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, status)
	assert.Contains(t, string(raw), "ok")
}
