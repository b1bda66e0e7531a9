/*
handlers.go - HTTP API handlers for the stock and ledger service

PURPOSE:
  Exposes the reconciliation engine via REST API. Handles HTTP
  request/response, JSON serialization, and delegates to the inventory
  and store packages. Every figure is recomputed from a fresh snapshot;
  nothing is cached between requests.

ENDPOINTS:
  Reports:
    GET    /api/stock                                        Stock report
    GET    /api/products/{productID}/batches/{batchCode}/stock One batch with entries
    GET    /api/people/balances                              Balance report
    GET    /api/people/{personID}/balance[?bill=<id>]        One person, optional previous balance

  Documents:
    GET    /api/documents/{collection}                       List raw documents
    GET    /api/documents/{collection}/{id}                  Get raw document
    PUT    /api/documents/{collection}/{id}                  Create or replace
    DELETE /api/documents/{collection}/{id}                  Delete

  Damages:
    GET    /api/damages                                      List damage reports
    POST   /api/damages                                      Report damage (deducts stock)
    GET    /api/damages/{id}                                 Get damage report
    POST   /api/damages/{id}/resolve                         refund | replace | loss
    DELETE /api/damages/{id}                                 Delete (restores stock if pending)

  Scenarios:
    GET    /api/scenarios                                    List demo datasets
    POST   /api/scenarios/load                               Load a demo dataset

REQUEST FLOW:
  1. Parse HTTP request
  2. Validate input
  3. Load snapshot / call damage service
  4. Serialize response
  5. Handle errors

ERROR HANDLING:
  Errors are returned as JSON with appropriate HTTP status:
  - 400: Validation errors, invalid input
  - 404: Document, product, batch, person or damage not found
  - 409: Insufficient stock, damage already resolved
  - 500: Internal errors

SECURITY NOTE:
  No authentication or authorization. All endpoints are public.

SEE ALSO:
  - dto.go: Request/response data structures
  - scenarios.go: Demo datasets
  - server.go: Router setup and middleware
*/
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"
	"github.com/warp/stock-ledger/document"
	"github.com/warp/stock-ledger/inventory"
	"github.com/warp/stock-ledger/ledger"
	"github.com/warp/stock-ledger/observability"
	"github.com/warp/stock-ledger/store"
)

// maxBody caps request bodies.
const maxBody = 1 << 20

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Docs    store.Backend
	Repo    *store.Repository
	Damages *inventory.DamageService
	Log     logrus.FieldLogger
	Now     func() time.Time

	validate *validator.Validate
}

// NewHandler creates a new handler on the given backend.
func NewHandler(docs store.Backend, log logrus.FieldLogger) *Handler {
	repo := store.NewRepository(docs, log)
	return &Handler{
		Docs:     docs,
		Repo:     repo,
		Damages:  inventory.NewDamageService(repo, log),
		Log:      log,
		Now:      func() time.Time { return time.Now().UTC() },
		validate: inventory.NewValidator(),
	}
}

// Health reports liveness.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// =============================================================================
// REPORT HANDLERS
// =============================================================================

// GetStock returns the stock report for every batch.
func (h *Handler) GetStock(w http.ResponseWriter, r *http.Request) {
	defer observability.Timer("stock")()

	snap, err := h.Repo.LoadSnapshot(r.Context())
	if err != nil {
		h.writeServiceError(w, "Failed to load documents", err)
		return
	}

	report := inventory.BuildStockReport(snap, h.Now())
	observeStockReport(report)
	writeJSON(w, http.StatusOK, report)
}

// GetBatchStock returns one batch with its movement ledger.
func (h *Handler) GetBatchStock(w http.ResponseWriter, r *http.Request) {
	key := ledger.BatchKey{
		ProductID: ledger.ProductID(chi.URLParam(r, "productID")),
		BatchCode: chi.URLParam(r, "batchCode"),
	}

	snap, err := h.Repo.LoadSnapshot(r.Context())
	if err != nil {
		h.writeServiceError(w, "Failed to load documents", err)
		return
	}

	bs, err := inventory.BatchReport(snap, key)
	if err != nil {
		h.writeServiceError(w, "Batch not found", err)
		return
	}
	observability.Computations.WithLabelValues("stock").Inc()
	observability.ObserveSkips(bs.Result.Skipped)
	writeJSON(w, http.StatusOK, bs)
}

// ListBalances returns the receivable/payable report for every person.
func (h *Handler) ListBalances(w http.ResponseWriter, r *http.Request) {
	defer observability.Timer("balances")()

	snap, err := h.Repo.LoadSnapshot(r.Context())
	if err != nil {
		h.writeServiceError(w, "Failed to load documents", err)
		return
	}

	report := inventory.BuildBalanceReport(snap, h.Now())
	observability.Computations.WithLabelValues("financial").Add(float64(len(report.People)))
	writeJSON(w, http.StatusOK, report)
}

// GetPersonBalance returns one person's balance. With ?bill=<id> it also
// returns the balance as it stood before that sale or purchase.
func (h *Handler) GetPersonBalance(w http.ResponseWriter, r *http.Request) {
	id := ledger.PersonID(chi.URLParam(r, "personID"))

	snap, err := h.Repo.LoadSnapshot(r.Context())
	if err != nil {
		h.writeServiceError(w, "Failed to load documents", err)
		return
	}

	pb, err := inventory.PersonReport(snap, id)
	if err != nil {
		h.writeServiceError(w, "Person not found", err)
		return
	}
	observability.Computations.WithLabelValues("financial").Inc()
	observability.ObserveSkips(pb.Result.Skipped)

	resp := PersonBalanceResponse{PersonBalance: pb}
	if bill := r.URL.Query().Get("bill"); bill != "" {
		prev, ok := pb.Result.BalanceBeforeBill(bill)
		if !ok {
			writeError(w, http.StatusNotFound, "Bill not found for person", fmt.Errorf("bill %s", bill))
			return
		}
		resp.Bill = bill
		resp.PreviousBalance = &prev
	}
	writeJSON(w, http.StatusOK, resp)
}

func observeStockReport(report inventory.StockReport) {
	observability.Computations.WithLabelValues("stock").Add(float64(len(report.Batches)))
	for _, b := range report.Batches {
		observability.ObserveSkips(b.Result.Skipped)
	}
	observability.ObserveStockHealth(observability.StockHealth{
		Batches:       len(report.Batches),
		Uninitialized: len(report.Uninitialized),
		Negative:      len(report.Negative),
		Drifted:       len(report.Drifted),
		Orphans:       len(report.Orphans),
	})
}

// =============================================================================
// DOCUMENT HANDLERS
// =============================================================================

// ListDocuments returns every document of a collection.
func (h *Handler) ListDocuments(w http.ResponseWriter, r *http.Request) {
	collection, ok := collectionParam(w, r)
	if !ok {
		return
	}

	docs, err := h.Docs.List(r.Context(), collection)
	if err != nil {
		h.writeServiceError(w, "Failed to list documents", err)
		return
	}

	dtos := make([]DocumentDTO, len(docs))
	for i, d := range docs {
		dtos[i] = DocumentDTO{ID: d.ID, UpdatedAt: d.UpdatedAt, Body: json.RawMessage(d.Body)}
	}
	writeJSON(w, http.StatusOK, dtos)
}

// GetDocument returns the raw body of one document.
func (h *Handler) GetDocument(w http.ResponseWriter, r *http.Request) {
	collection, ok := collectionParam(w, r)
	if !ok {
		return
	}

	body, err := h.Docs.Get(r.Context(), collection, chi.URLParam(r, "id"))
	if err != nil {
		h.writeServiceError(w, "Document not found", err)
		return
	}
	writeJSON(w, http.StatusOK, json.RawMessage(body))
}

// PutDocument creates or replaces a document. The body must be a JSON
// object; its fields are stored as sent.
func (h *Handler) PutDocument(w http.ResponseWriter, r *http.Request) {
	collection, ok := collectionParam(w, r)
	if !ok {
		return
	}
	id := chi.URLParam(r, "id")

	body, err := io.ReadAll(io.LimitReader(r.Body, maxBody))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Failed to read body", err)
		return
	}
	var obj map[string]any
	if err := json.Unmarshal(body, &obj); err != nil {
		writeError(w, http.StatusBadRequest, "Body must be a JSON object", err)
		return
	}
	if obj == nil {
		writeError(w, http.StatusBadRequest, "Body must be a JSON object", errors.New("got null"))
		return
	}

	if err := h.Docs.Put(r.Context(), collection, id, body); err != nil {
		h.writeServiceError(w, "Failed to store document", err)
		return
	}

	h.Log.WithFields(logrus.Fields{
		"module":     "api",
		"collection": collection,
		"id":         id,
	}).Debug("document stored")
	writeJSON(w, http.StatusOK, map[string]string{"collection": collection, "id": id})
}

// DeleteDocument removes a document.
func (h *Handler) DeleteDocument(w http.ResponseWriter, r *http.Request) {
	collection, ok := collectionParam(w, r)
	if !ok {
		return
	}

	if err := h.Docs.Delete(r.Context(), collection, chi.URLParam(r, "id")); err != nil {
		h.writeServiceError(w, "Document not found", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func collectionParam(w http.ResponseWriter, r *http.Request) (string, bool) {
	collection := chi.URLParam(r, "collection")
	if !document.KnownCollection(collection) {
		writeError(w, http.StatusBadRequest, "Unknown collection", fmt.Errorf("collection %q", collection))
		return "", false
	}
	return collection, true
}

// =============================================================================
// DAMAGE HANDLERS
// =============================================================================

// ListDamages returns every damage report, oldest first.
func (h *Handler) ListDamages(w http.ResponseWriter, r *http.Request) {
	damages, err := h.Damages.List(r.Context())
	if err != nil {
		h.writeServiceError(w, "Failed to list damages", err)
		return
	}

	dtos := make([]DamageDTO, len(damages))
	for i, d := range damages {
		dtos[i] = toDamageDTO(d)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// GetDamage returns one damage report.
func (h *Handler) GetDamage(w http.ResponseWriter, r *http.Request) {
	d, err := h.Damages.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeServiceError(w, "Damage not found", err)
		return
	}
	writeJSON(w, http.StatusOK, toDamageDTO(d))
}

// CreateDamage reports damaged units. Stock is deducted immediately.
func (h *Handler) CreateDamage(w http.ResponseWriter, r *http.Request) {
	var req CreateDamageRequest
	if !h.decode(w, r, &req) {
		return
	}

	d, err := h.Damages.Create(r.Context(), req.input())
	if err != nil {
		h.writeServiceError(w, "Failed to report damage", err)
		return
	}
	writeJSON(w, http.StatusCreated, toDamageDTO(d))
}

// ResolveDamage applies a resolution to a pending damage report.
func (h *Handler) ResolveDamage(w http.ResponseWriter, r *http.Request) {
	var req ResolveDamageRequest
	if !h.decode(w, r, &req) {
		return
	}

	d, err := h.Damages.Resolve(r.Context(), chi.URLParam(r, "id"), req.input())
	if err != nil {
		h.writeServiceError(w, "Failed to resolve damage", err)
		return
	}
	writeJSON(w, http.StatusOK, toDamageDTO(d))
}

// DeleteDamage removes a damage report.
func (h *Handler) DeleteDamage(w http.ResponseWriter, r *http.Request) {
	if err := h.Damages.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.writeServiceError(w, "Failed to delete damage", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// =============================================================================
// HELPERS
// =============================================================================

// decode reads a JSON body into v and validates it. On failure the error
// response has been written.
func (h *Handler) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(io.LimitReader(r.Body, maxBody)).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return false
	}
	if err := h.validate.Struct(v); err != nil {
		writeError(w, http.StatusBadRequest, "Validation failed", err)
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}

// writeServiceError maps domain and store errors to a status code.
func (h *Handler) writeServiceError(w http.ResponseWriter, message string, err error) {
	switch {
	case inventory.IsClientError(err):
		writeError(w, http.StatusBadRequest, message, err)
	case inventory.IsNotFound(err), errors.Is(err, store.ErrNotFound):
		writeError(w, http.StatusNotFound, message, err)
	case inventory.IsConflict(err):
		writeError(w, http.StatusConflict, message, err)
	default:
		h.Log.WithFields(logrus.Fields{"module": "api"}).WithError(err).Error(message)
		writeError(w, http.StatusInternalServerError, message, err)
	}
}
