/*
Package ledger provides the stock and receivable/payable reconciliation engine.

PURPOSE:
  Nothing in a point-of-sale snapshot stores a derived balance that can be
  trusted. Batch quantities are mutated directly by many write paths and a
  person's balance is never stored at all. This package answers both
  questions by replaying transaction records against a baseline:

    "How many units of batch X are on hand?"       -> ComputeStockBalance
    "How much does person Y owe us (or we them)?"  -> ComputeFinancialBalance

KEY CONCEPTS IN THIS FILE (types.go):
  - Identifiers: ProductID, PersonID, BatchKey
  - Reference data: Product, Batch, Person
  - Transaction records: Purchase, Sale, Return, Damage, ManualEntry
  - Streams: the read-only set of transaction collections a fold consumes

DESIGN PRINCIPLES:
  1. Pure folds: functions take snapshots, return values. No I/O, no globals.
  2. Precision: decimal.Decimal everywhere, so NaN can never enter a sum.
  3. One canonical shape: field-name variants of the document store are
     resolved by the document package before records reach this package.
  4. Lenient: broken references are skipped and counted, never fatal.

SEE ALSO:
  - stock.go: per-batch stock fold
  - financial.go: per-person receivable/payable fold
  - snapshot.go: reference data lookups
*/
package ledger

import (
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// IDENTIFIERS
// =============================================================================

type ProductID string
type PersonID string

// BatchKey identifies one batch of one product. Batch codes are only unique
// within their product.
type BatchKey struct {
	ProductID ProductID `json:"product_id"`
	BatchCode string    `json:"batch_code"`
}

func (k BatchKey) String() string { return string(k.ProductID) + "/" + k.BatchCode }

// Valid reports whether both halves of the reference are present.
func (k BatchKey) Valid() bool { return k.ProductID != "" && k.BatchCode != "" }

// =============================================================================
// REFERENCE DATA
// =============================================================================

// Batch is one purchased lot of a product.
type Batch struct {
	Code string

	// Quantity is the stored counter maintained by the write paths. It is
	// never used by the folds, only compared against them.
	Quantity decimal.Decimal

	OpeningStock decimal.Decimal

	// OpeningStockDate is nil until the batch has been initialized.
	OpeningStockDate *time.Time

	PurchasePrice decimal.Decimal
	SellPrice     decimal.Decimal
}

// Initialized reports whether the batch has a baseline timestamp.
func (b Batch) Initialized() bool { return b.OpeningStockDate != nil }

// Baseline returns the replay starting point recorded on the batch.
func (b Batch) Baseline() Baseline {
	return Baseline{Quantity: b.OpeningStock, At: b.OpeningStockDate}
}

type Product struct {
	ID      ProductID
	Name    string
	Batches []Batch
}

// Batch returns the batch with the given code, if any.
func (p Product) Batch(code string) (Batch, bool) {
	for _, b := range p.Batches {
		if b.Code == code {
			return b, true
		}
	}
	return Batch{}, false
}

type Person struct {
	ID   PersonID
	Name string
}

// =============================================================================
// TRANSACTION RECORDS
// =============================================================================

// Line is one product row of a purchase, sale or return.
type Line struct {
	ProductID ProductID
	BatchCode string
	Quantity  decimal.Decimal
	UnitPrice decimal.Decimal
}

func (l Line) Key() BatchKey { return BatchKey{ProductID: l.ProductID, BatchCode: l.BatchCode} }

// Bill is the shared shape of purchases and sales. Credit is the unpaid part
// of the bill: owed to us on a sale, owed by us on a purchase.
type Bill struct {
	ID       string
	PersonID PersonID
	At       time.Time
	Credit   decimal.Decimal
	Lines    []Line
}

type Purchase Bill
type Sale Bill

// Return is a sale-return or purchase-return. CreditAdjustment is the amount
// by which the return moves the person's balance.
type Return struct {
	ID               string
	PersonID         PersonID
	At               time.Time
	Lines            []Line
	CreditAdjustment decimal.Decimal
}

type Resolution string

const (
	ResolutionPending Resolution = ""
	ResolutionRefund  Resolution = "refund"
	ResolutionReplace Resolution = "replace"
	ResolutionLoss    Resolution = "loss"
)

// Valid reports whether r is one of the terminal resolutions.
func (r Resolution) Valid() bool {
	switch r {
	case ResolutionRefund, ResolutionReplace, ResolutionLoss:
		return true
	}
	return false
}

// Damage is a damage report against one batch. Stock was deducted when the
// report was created; a replace resolution put it back.
type Damage struct {
	ID           string
	ProductID    ProductID
	BatchCode    string
	PersonID     PersonID
	Quantity     decimal.Decimal
	Resolution   Resolution
	RefundAmount decimal.Decimal
	Note         string
	At           time.Time
	ResolvedAt   *time.Time
}

func (d Damage) Key() BatchKey { return BatchKey{ProductID: d.ProductID, BatchCode: d.BatchCode} }

// Pending reports whether the damage has not been resolved yet.
func (d Damage) Pending() bool { return d.Resolution == ResolutionPending }

type EntryType string

const (
	EntryCredit  EntryType = "credit"
	EntryPayment EntryType = "payment"
)

// ManualEntry is a hand-entered ledger line against a person.
type ManualEntry struct {
	ID        string
	PersonID  PersonID
	Type      EntryType
	Amount    decimal.Decimal
	At        time.Time
	Reference string
	Note      string
}

// Streams is the read-only set of transaction collections a fold consumes.
type Streams struct {
	Purchases       []Purchase
	Sales           []Sale
	SaleReturns     []Return
	PurchaseReturns []Return
	Damages         []Damage
	ManualEntries   []ManualEntry
}

// =============================================================================
// BASELINE
// =============================================================================

// Baseline is the replay starting point. Movements at or before At are
// already reflected in Quantity.
type Baseline struct {
	Quantity decimal.Decimal
	At       *time.Time
}

// Counts reports whether a movement timestamped at contributes on top of the
// baseline. Without a baseline timestamp everything counts.
func (b Baseline) Counts(at time.Time) bool {
	if b.At == nil {
		return true
	}
	return at.After(*b.At)
}

// SkipCounts records entries a fold passed over.
type SkipCounts struct {
	// MissingReference counts lines without a product, batch or person.
	MissingReference int `json:"missing_reference"`

	// Undated counts movements without a timestamp under a dated baseline.
	Undated int `json:"undated"`

	// Malformed counts entries with an unrecognized type.
	Malformed int `json:"malformed"`
}

func (s SkipCounts) Total() int { return s.MissingReference + s.Undated + s.Malformed }
