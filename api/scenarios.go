/*
scenarios.go - Demo datasets for testing and demonstrations

PURPOSE:

	Provides pre-built document sets that populate the backend with the
	shapes the real document store holds, including its inconsistent field
	names. Each scenario demonstrates one behavior of the folds.

AVAILABLE SCENARIOS:

	baseline-replay:  opening 50, purchase 20, sale 15 -> 55
	pending-damage:   plus a pending damage of 5 -> 50
	replaced-damage:  the damage resolved as replace -> 55
	refunded-damage:  the damage refunded; stock stays 50, supplier credited
	field-variants:   returns and ledger entries using every field variant
	data-quality:     uninitialized, negative, drifted and orphaned batches

HOW SCENARIOS WORK:
 1. Reset the backend (clear all documents)
 2. Write every document of the scenario in one transaction

USAGE VIA API:

	POST /api/scenarios/load
	{"scenario_id": "pending-damage"}

NOTE:

	Scenarios reset the backend. Only use in development/demo environments.

SEE ALSO:
  - handlers.go: report endpoints to inspect the loaded data
  - cmd/server/scenario.go: CLI loader
*/
package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/sirupsen/logrus"
	"github.com/warp/stock-ledger/document"
	"github.com/warp/stock-ledger/store"
)

// ErrUnknownScenario is returned for a scenario id that does not exist.
var ErrUnknownScenario = errors.New("unknown scenario")

// =============================================================================
// SCENARIO DEFINITIONS
// =============================================================================

type seedDoc struct {
	collection string
	id         string
	body       string
}

type scenario struct {
	ScenarioDTO
	docs []seedDoc
}

// people and the January movements shared by the stock scenarios.
func januaryDocs(storedQty string) []seedDoc {
	return []seedDoc{
		{document.People, "cust-1", `{"name": "Corner Shop", "type": "customer"}`},
		{document.People, "sup-1", `{"name": "Acme Supplies", "type": "supplier"}`},
		{document.Products, "prod-1", `{
			"name": "Widget",
			"batchCode": [{
				"batchCode": "B1",
				"quantity": ` + storedQty + `,
				"openingStock": 50,
				"openingStockDate": "2024-01-01T00:00:00Z",
				"purchasePrice": "2.50",
				"sellPrice": "4.00"
			}]
		}`},
		{document.Purchases, "pur-1", `{
			"supplierId": "sup-1",
			"date": "2024-01-05T10:00:00Z",
			"credit": 30,
			"products": [{"id": "prod-1", "batchCode": "B1", "quantity": 20, "purchasePrice": 2.5}]
		}`},
		{document.Sales, "sale-1", `{
			"customerId": "cust-1",
			"dateTime": "2024-01-10T15:30:00Z",
			"credit": "100",
			"products": [{"id": "prod-1", "batchCode": "B1", "SellQuantity": 15, "sellPrice": 4}]
		}`},
	}
}

func with(base []seedDoc, extra ...seedDoc) []seedDoc {
	return append(base, extra...)
}

var scenarios = []scenario{
	{
		ScenarioDTO: ScenarioDTO{
			ID:          "baseline-replay",
			Name:        "Baseline Replay",
			Description: "Opening stock 50 on Jan 1, purchase of 20 on Jan 5, sale of 15 on Jan 10: balance 55",
			Category:    "stock",
		},
		docs: januaryDocs("55"),
	},
	{
		ScenarioDTO: ScenarioDTO{
			ID:          "pending-damage",
			Name:        "Pending Damage",
			Description: "Baseline replay plus a pending damage of 5 on Jan 12: balance 50",
			Category:    "stock",
		},
		docs: with(januaryDocs("50"),
			seedDoc{document.Damages, "dmg-1", `{
				"productId": "prod-1", "batchCode": "B1", "supplierId": "sup-1",
				"quantity": 5, "status": "pending", "resolution": null,
				"date": "2024-01-12T09:00:00Z"
			}`},
		),
	},
	{
		ScenarioDTO: ScenarioDTO{
			ID:          "replaced-damage",
			Name:        "Replaced Damage",
			Description: "The Jan 12 damage resolved as replace: stock restored, balance back to 55",
			Category:    "stock",
		},
		docs: with(januaryDocs("55"),
			seedDoc{document.Damages, "dmg-1", `{
				"productId": "prod-1", "batchCode": "B1", "supplierId": "sup-1",
				"quantity": 5, "status": "resolved", "resolution": "replace",
				"date": "2024-01-12T09:00:00Z", "resolvedAt": "2024-01-15T09:00:00Z"
			}`},
		),
	},
	{
		ScenarioDTO: ScenarioDTO{
			ID:          "refunded-damage",
			Name:        "Refunded Damage",
			Description: "The Jan 12 damage refunded 12.50: stock stays 50, the supplier balance moves by the refund",
			Category:    "stock",
		},
		docs: with(januaryDocs("50"),
			seedDoc{document.Damages, "dmg-1", `{
				"productId": "prod-1", "batchCode": "B1", "supplierId": "sup-1",
				"quantity": 5, "status": "resolved", "resolution": "refund", "refundAmount": 12.5,
				"date": "2024-01-12T09:00:00Z", "resolvedAt": "2024-01-15T09:00:00Z"
			}`},
			seedDoc{document.ManualLedger, "ml-1", `{
				"personId": "sup-1", "type": "payment", "amount": 12.5,
				"date": "2024-01-15T09:00:00Z", "reference": "damage:dmg-1", "note": "damage refund"
			}`},
		),
	},
	{
		ScenarioDTO: ScenarioDTO{
			ID:          "field-variants",
			Name:        "Field Variants",
			Description: "Returns and ledger entries written by different clients with different field names",
			Category:    "financial",
		},
		docs: with(januaryDocs("56"),
			seedDoc{document.SaleReturns, "sr-1", `{
				"people": {"id": "cust-1", "name": "Corner Shop"},
				"date": {"_seconds": 1705312800, "_nanoseconds": 0},
				"items": [{"productId": "prod-1", "batchCode": "B1", "quantity": "2"}],
				"paymentDetails": {"creditAdjustment": 8}
			}`},
			seedDoc{document.PurchaseReturns, "pr-1", `{
				"peopleId": "sup-1",
				"createdAt": 1705485600000,
				"products": [{"id": "prod-1", "batchCode": "B1", "enteredQty": 1}],
				"creditAdjustment": "2.5"
			}`},
			seedDoc{document.ManualLedger, "ml-1", `{"personId": "cust-1", "type": "Payment", "amount": "50", "date": "2024-01-20"}`},
			seedDoc{document.ManualLedger, "ml-2", `{"personId": "cust-1", "type": "credit", "amount": "n/a", "date": "2024-01-21"}`},
		),
	},
	{
		ScenarioDTO: ScenarioDTO{
			ID:          "data-quality",
			Name:        "Data Quality",
			Description: "Uninitialized, oversold and drifted batches, plus a purchase of a product that no longer exists",
			Category:    "stock",
		},
		docs: with(januaryDocs("60"),
			seedDoc{document.Products, "prod-2", `{
				"name": "Gadget",
				"batchCode": [
					{"batchCode": "G1", "quantity": 7, "purchasePrice": 10},
					{"batchCode": "G2", "quantity": 0, "openingStock": 1, "openingStockDate": "2024-01-01", "purchasePrice": 12}
				]
			}`},
			seedDoc{document.Purchases, "pur-2", `{
				"supplierId": "sup-1", "date": "2024-01-06", "credit": 0,
				"products": [
					{"id": "prod-2", "batchCode": "G1", "quantity": 7},
					{"id": "prod-gone", "batchCode": "X1", "quantity": 3}
				]
			}`},
			seedDoc{document.Sales, "sale-2", `{
				"customerId": "cust-1", "date": "2024-01-08", "credit": 36,
				"products": [{"id": "prod-2", "batchCode": "G2", "SellQuantity": 3}]
			}`},
		),
	},
}

// Scenarios lists the available demo datasets.
func Scenarios() []ScenarioDTO {
	out := make([]ScenarioDTO, len(scenarios))
	for i, s := range scenarios {
		out[i] = s.ScenarioDTO
	}
	return out
}

// SeedScenario resets the backend and writes the documents of scenario id.
func SeedScenario(ctx context.Context, docs store.Backend, id string) (ScenarioDTO, error) {
	var sc *scenario
	for i := range scenarios {
		if scenarios[i].ID == id {
			sc = &scenarios[i]
			break
		}
	}
	if sc == nil {
		return ScenarioDTO{}, fmt.Errorf("%w: %s", ErrUnknownScenario, id)
	}

	if err := docs.Reset(ctx); err != nil {
		return ScenarioDTO{}, fmt.Errorf("failed to reset: %w", err)
	}
	err := docs.WithTx(ctx, func(tx store.Documents) error {
		for _, d := range sc.docs {
			if err := tx.Put(ctx, d.collection, d.id, []byte(d.body)); err != nil {
				return fmt.Errorf("failed to seed %s/%s: %w", d.collection, d.id, err)
			}
		}
		return nil
	})
	if err != nil {
		return ScenarioDTO{}, err
	}
	return sc.ScenarioDTO, nil
}

// =============================================================================
// HANDLERS
// =============================================================================

// ListScenarios returns available scenarios.
func (h *Handler) ListScenarios(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, Scenarios())
}

// LoadScenario resets the backend and loads a scenario.
func (h *Handler) LoadScenario(w http.ResponseWriter, r *http.Request) {
	var req LoadScenarioRequest
	if !h.decode(w, r, &req) {
		return
	}

	sc, err := SeedScenario(r.Context(), h.Docs, req.ScenarioID)
	if errors.Is(err, ErrUnknownScenario) {
		writeError(w, http.StatusNotFound, "Unknown scenario", err)
		return
	}
	if err != nil {
		h.writeServiceError(w, "Failed to load scenario", err)
		return
	}

	h.Log.WithFields(logrus.Fields{"module": "api", "scenario": sc.ID}).Info("scenario loaded")
	writeJSON(w, http.StatusOK, sc)
}
