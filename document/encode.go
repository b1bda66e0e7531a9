package document

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/warp/stock-ledger/ledger"
)

// damageDoc is the shape damage reports are written in. Field names follow
// the front end so its screens keep reading what this service writes.
type damageDoc struct {
	ID           string      `json:"id"`
	ProductID    string      `json:"productId"`
	BatchCode    string      `json:"batchCode"`
	PersonID     string      `json:"personId,omitempty"`
	Quantity     json.Number `json:"quantity"`
	Status       string      `json:"status"`
	Resolution   *string     `json:"resolution"`
	RefundAmount json.Number `json:"refundAmount,omitempty"`
	Note         string      `json:"note,omitempty"`
	Date         string      `json:"date"`
	ResolvedAt   string      `json:"resolvedAt,omitempty"`
}

type manualEntryDoc struct {
	ID        string      `json:"id"`
	PersonID  string      `json:"personId"`
	Type      string      `json:"type"`
	Amount    json.Number `json:"amount"`
	Date      string      `json:"date"`
	Reference string      `json:"reference,omitempty"`
	Note      string      `json:"note,omitempty"`
}

// EncodeDamage renders a damage report as a damages document.
func EncodeDamage(d ledger.Damage) ([]byte, error) {
	doc := damageDoc{
		ID:        d.ID,
		ProductID: string(d.ProductID),
		BatchCode: d.BatchCode,
		PersonID:  string(d.PersonID),
		Quantity:  number(d.Quantity),
		Status:    "pending",
		Note:      d.Note,
		Date:      d.At.UTC().Format(time.RFC3339),
	}
	if !d.Pending() {
		r := string(d.Resolution)
		doc.Status = "resolved"
		doc.Resolution = &r
	}
	if !d.RefundAmount.IsZero() {
		doc.RefundAmount = number(d.RefundAmount)
	}
	if d.ResolvedAt != nil {
		doc.ResolvedAt = d.ResolvedAt.UTC().Format(time.RFC3339)
	}
	return json.Marshal(doc)
}

// EncodeManualEntry renders a manual ledger entry as a manualLedger document.
func EncodeManualEntry(e ledger.ManualEntry) ([]byte, error) {
	return json.Marshal(manualEntryDoc{
		ID:        e.ID,
		PersonID:  string(e.PersonID),
		Type:      string(e.Type),
		Amount:    number(e.Amount),
		Date:      e.At.UTC().Format(time.RFC3339),
		Reference: e.Reference,
		Note:      e.Note,
	})
}

// AdjustBatchQuantity adds delta to the stored quantity of one embedded
// batch of a product document and returns the rewritten document with the
// new quantity. Every other field is preserved.
func AdjustBatchQuantity(raw []byte, batchCode string, delta decimal.Decimal) ([]byte, decimal.Decimal, error) {
	f, err := parse(raw)
	if err != nil {
		return nil, decimal.Zero, err
	}

	for _, b := range f.list("batchCode", "batches") {
		if b.str("batchCode", "code") != batchCode {
			continue
		}
		// b shares its map with f, so the write lands in the document.
		updated := b.num("quantity").Add(delta)
		b["quantity"] = number(updated)

		out, err := json.Marshal(f)
		if err != nil {
			return nil, decimal.Zero, fmt.Errorf("failed to encode product: %w", err)
		}
		return out, updated, nil
	}
	return nil, decimal.Zero, fmt.Errorf("batch %q: %w", batchCode, ledger.ErrBatchNotFound)
}

func number(d decimal.Decimal) json.Number {
	return json.Number(d.String())
}
