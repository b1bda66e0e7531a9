package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/stock-ledger/inventory"
)

func setupTestServer(t *testing.T, scenario string) (*Handler, http.Handler) {
	t.Helper()
	h := setupTestHandler(t)
	if scenario != "" {
		loadScenario(t, h, scenario)
	}
	return h, NewRouter(h, []string{"*"})
}

func do(t *testing.T, router http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, bytes.NewBufferString(body))
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decodeBody[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

// =============================================================================
// HEALTH & METRICS
// =============================================================================

func TestHealth(t *testing.T) {
	_, router := setupTestServer(t, "")

	w := do(t, router, http.MethodGet, "/healthz", "")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
}

func TestMetricsEndpoint(t *testing.T) {
	_, router := setupTestServer(t, "baseline-replay")

	// GIVEN: A stock report has been computed
	require.Equal(t, http.StatusOK, do(t, router, http.MethodGet, "/api/stock", "").Code)

	// WHEN: Prometheus scrapes
	w := do(t, router, http.MethodGet, "/metrics", "")

	// THEN: The stock gauges are exported
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "stockledger_stock_batches")
}

// =============================================================================
// REPORTS
// =============================================================================

func TestGetStock(t *testing.T) {
	_, router := setupTestServer(t, "baseline-replay")

	w := do(t, router, http.MethodGet, "/api/stock", "")
	require.Equal(t, http.StatusOK, w.Code)

	report := decodeBody[inventory.StockReport](t, w)
	require.Len(t, report.Batches, 1)
	assertDec(t, "55", report.Batches[0].Result.Balance)
	assertDec(t, "137.5", report.TotalValue)
	assert.Empty(t, report.Batches[0].Result.Entries, "the report omits movement ledgers")
}

func TestGetBatchStock(t *testing.T) {
	_, router := setupTestServer(t, "pending-damage")

	w := do(t, router, http.MethodGet, "/api/products/prod-1/batches/B1/stock", "")
	require.Equal(t, http.StatusOK, w.Code)

	bs := decodeBody[inventory.BatchStock](t, w)
	assertDec(t, "50", bs.Result.Balance)
	assertDec(t, "5", bs.Result.Breakdown.Damaged)
	assert.Len(t, bs.Result.Entries, 3, "purchase, sale and damage")
}

func TestGetBatchStock_NotFound(t *testing.T) {
	_, router := setupTestServer(t, "baseline-replay")

	tests := []struct {
		name string
		path string
	}{
		{"unknown batch", "/api/products/prod-1/batches/NOPE/stock"},
		{"unknown product", "/api/products/nope/batches/B1/stock"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(t, router, http.MethodGet, tt.path, "")
			assert.Equal(t, http.StatusNotFound, w.Code)
		})
	}
}

func TestListBalances(t *testing.T) {
	_, router := setupTestServer(t, "baseline-replay")

	w := do(t, router, http.MethodGet, "/api/people/balances", "")
	require.Equal(t, http.StatusOK, w.Code)

	report := decodeBody[inventory.BalanceReport](t, w)
	assert.Len(t, report.People, 2)
	assertDec(t, "100", report.TotalReceivable)
	assertDec(t, "30", report.TotalPayable)
}

func TestGetPersonBalance_WithBill(t *testing.T) {
	_, router := setupTestServer(t, "baseline-replay")

	// GIVEN: The customer's only bill is sale-1 for 100
	// WHEN: The balance is requested against that bill
	w := do(t, router, http.MethodGet, "/api/people/cust-1/balance?bill=sale-1", "")
	require.Equal(t, http.StatusOK, w.Code)

	// THEN: The previous balance excludes the bill itself
	resp := decodeBody[PersonBalanceResponse](t, w)
	assert.Equal(t, "sale-1", resp.Bill)
	assertDec(t, "100", resp.Result.Net)
	require.NotNil(t, resp.PreviousBalance)
	assertDec(t, "0", *resp.PreviousBalance)
}

func TestGetPersonBalance_UnknownBill(t *testing.T) {
	_, router := setupTestServer(t, "baseline-replay")

	w := do(t, router, http.MethodGet, "/api/people/cust-1/balance?bill=pur-1", "")

	// pur-1 belongs to the supplier
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestGetPersonBalance_UnknownPerson(t *testing.T) {
	_, router := setupTestServer(t, "baseline-replay")

	w := do(t, router, http.MethodGet, "/api/people/nobody/balance", "")

	assert.Equal(t, http.StatusNotFound, w.Code)
}

// =============================================================================
// DOCUMENTS
// =============================================================================

func TestDocuments_PutGetDelete(t *testing.T) {
	_, router := setupTestServer(t, "")

	// GIVEN: A person document written through the API
	w := do(t, router, http.MethodPut, "/api/documents/people/p-9", `{"name": "Market Stall", "type": "customer"}`)
	require.Equal(t, http.StatusOK, w.Code)

	// WHEN: It is read back
	w = do(t, router, http.MethodGet, "/api/documents/people/p-9", "")

	// THEN: The body is returned as stored
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"name": "Market Stall", "type": "customer"}`, w.Body.String())

	w = do(t, router, http.MethodGet, "/api/documents/people/", "")
	require.Equal(t, http.StatusOK, w.Code)
	list := decodeBody[[]DocumentDTO](t, w)
	require.Len(t, list, 1)
	assert.Equal(t, "p-9", list[0].ID)

	w = do(t, router, http.MethodDelete, "/api/documents/people/p-9", "")
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = do(t, router, http.MethodGet, "/api/documents/people/p-9", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestDocuments_Rejected(t *testing.T) {
	_, router := setupTestServer(t, "")

	tests := []struct {
		name   string
		method string
		path   string
		body   string
		want   int
	}{
		{"unknown collection", http.MethodPut, "/api/documents/invoices/i-1", `{}`, http.StatusBadRequest},
		{"array body", http.MethodPut, "/api/documents/sales/s-1", `[1, 2]`, http.StatusBadRequest},
		{"invalid JSON", http.MethodPut, "/api/documents/sales/s-1", `{"credit":`, http.StatusBadRequest},
		{"null body", http.MethodPut, "/api/documents/sales/s-1", `null`, http.StatusBadRequest},
		{"delete missing", http.MethodDelete, "/api/documents/sales/s-1", "", http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(t, router, tt.method, tt.path, tt.body)
			assert.Equal(t, tt.want, w.Code, w.Body.String())
		})
	}
}

func TestDocuments_WritesFeedReports(t *testing.T) {
	_, router := setupTestServer(t, "baseline-replay")

	// GIVEN: Another sale of 5 written as a raw document
	w := do(t, router, http.MethodPut, "/api/documents/sales/sale-9", `{
		"customerId": "cust-1", "date": "2024-02-01", "credit": 20,
		"products": [{"id": "prod-1", "batchCode": "B1", "SellQuantity": 5}]
	}`)
	require.Equal(t, http.StatusOK, w.Code)

	// WHEN: The batch is replayed
	w = do(t, router, http.MethodGet, "/api/products/prod-1/batches/B1/stock", "")
	require.Equal(t, http.StatusOK, w.Code)

	// THEN: The sale is counted; the stored counter was not touched
	bs := decodeBody[inventory.BatchStock](t, w)
	assertDec(t, "50", bs.Result.Balance)
	assertDec(t, "5", bs.Drift)
}

// =============================================================================
// DAMAGES
// =============================================================================

func TestDamages_Lifecycle(t *testing.T) {
	_, router := setupTestServer(t, "baseline-replay")

	// GIVEN: Five damaged units reported
	w := do(t, router, http.MethodPost, "/api/damages/", `{
		"product_id": "prod-1", "batch_code": "B1", "person_id": "sup-1",
		"quantity": "5", "date": "2024-01-12T09:00:00Z"
	}`)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	created := decodeBody[DamageDTO](t, w)
	assert.Equal(t, "pending", created.Status)
	assert.Nil(t, created.Resolution)

	// THEN: Stock drops immediately
	w = do(t, router, http.MethodGet, "/api/products/prod-1/batches/B1/stock", "")
	bs := decodeBody[inventory.BatchStock](t, w)
	assertDec(t, "50", bs.Result.Balance)
	assert.False(t, bs.Drifted())

	// WHEN: The supplier replaces the units
	w = do(t, router, http.MethodPost, "/api/damages/"+created.ID+"/resolve", `{"resolution": "replace"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	resolved := decodeBody[DamageDTO](t, w)
	assert.Equal(t, "resolved", resolved.Status)
	require.NotNil(t, resolved.Resolution)
	assert.Equal(t, "replace", *resolved.Resolution)

	// THEN: Stock is restored and the record cannot be resolved again
	w = do(t, router, http.MethodGet, "/api/products/prod-1/batches/B1/stock", "")
	bs = decodeBody[inventory.BatchStock](t, w)
	assertDec(t, "55", bs.Result.Balance)
	assert.False(t, bs.Drifted())

	w = do(t, router, http.MethodPost, "/api/damages/"+created.ID+"/resolve", `{"resolution": "loss"}`)
	assert.Equal(t, http.StatusConflict, w.Code)

	w = do(t, router, http.MethodGet, "/api/damages/", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decodeBody[[]DamageDTO](t, w), 1)

	w = do(t, router, http.MethodDelete, "/api/damages/"+created.ID, "")
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = do(t, router, http.MethodGet, "/api/damages/"+created.ID, "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestDamages_CreateRejected(t *testing.T) {
	_, router := setupTestServer(t, "baseline-replay")

	tests := []struct {
		name string
		body string
		want int
	}{
		{"more than in stock", `{"product_id": "prod-1", "batch_code": "B1", "quantity": 100}`, http.StatusConflict},
		{"zero quantity", `{"product_id": "prod-1", "batch_code": "B1", "quantity": 0}`, http.StatusBadRequest},
		{"missing batch code", `{"product_id": "prod-1", "quantity": 1}`, http.StatusBadRequest},
		{"unknown batch", `{"product_id": "prod-1", "batch_code": "ZZ", "quantity": 1}`, http.StatusNotFound},
		{"malformed body", `not json`, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(t, router, http.MethodPost, "/api/damages/", tt.body)
			assert.Equal(t, tt.want, w.Code, w.Body.String())

			var resp ErrorResponse
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
			assert.NotEmpty(t, resp.Error)
		})
	}

	// Nothing was deducted by the rejected requests.
	w := do(t, router, http.MethodGet, "/api/products/prod-1/batches/B1/stock", "")
	bs := decodeBody[inventory.BatchStock](t, w)
	assertDec(t, "55", bs.Stored)
}

func TestDamages_ResolveRejected(t *testing.T) {
	_, router := setupTestServer(t, "pending-damage")

	tests := []struct {
		name string
		path string
		body string
		want int
	}{
		{"unknown resolution", "/api/damages/dmg-1/resolve", `{"resolution": "burn"}`, http.StatusBadRequest},
		{"refund without amount", "/api/damages/dmg-1/resolve", `{"resolution": "refund"}`, http.StatusBadRequest},
		{"unknown damage", "/api/damages/nope/resolve", `{"resolution": "loss"}`, http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(t, router, http.MethodPost, tt.path, tt.body)
			assert.Equal(t, tt.want, w.Code, w.Body.String())
		})
	}
}

func TestDamages_RefundPostsPayment(t *testing.T) {
	_, router := setupTestServer(t, "pending-damage")

	w := do(t, router, http.MethodPost, "/api/damages/dmg-1/resolve", `{"resolution": "refund", "refund_amount": "12.5"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = do(t, router, http.MethodGet, "/api/people/sup-1/balance", "")
	require.Equal(t, http.StatusOK, w.Code)
	resp := decodeBody[PersonBalanceResponse](t, w)
	assertDec(t, "-42.5", resp.Result.Net)
	assertDec(t, "12.5", resp.Result.Breakdown.ManualPayments)
}

// =============================================================================
// SCENARIOS
// =============================================================================

func TestScenarios_ListAndLoad(t *testing.T) {
	_, router := setupTestServer(t, "")

	w := do(t, router, http.MethodGet, "/api/scenarios/", "")
	require.Equal(t, http.StatusOK, w.Code)
	list := decodeBody[[]ScenarioDTO](t, w)
	assert.Len(t, list, len(scenarios))

	w = do(t, router, http.MethodPost, "/api/scenarios/load", `{"scenario_id": "pending-damage"}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "pending-damage", decodeBody[ScenarioDTO](t, w).ID)

	w = do(t, router, http.MethodGet, "/api/damages/dmg-1", "")
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestScenarios_LoadRejected(t *testing.T) {
	_, router := setupTestServer(t, "")

	w := do(t, router, http.MethodPost, "/api/scenarios/load", `{"scenario_id": "nope"}`)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = do(t, router, http.MethodPost, "/api/scenarios/load", `{}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.True(t, strings.Contains(w.Body.String(), "Validation failed"))
}
