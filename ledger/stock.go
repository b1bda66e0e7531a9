/*
stock.go - Per-batch stock fold

PURPOSE:
  Computes the on-hand quantity of one product batch by replaying every
  movement recorded after the batch's opening stock date.

FORMULA:
  balance = opening + purchased + saleReturned - sold - purchaseReturned - damaged

  where each term sums the matching lines timestamped strictly after the
  baseline. Damages resolved as "replace" are left out of "damaged": the
  replacement already put the units back through a direct quantity write.
  Refund and loss resolutions keep the deduction.

EXAMPLE:
  Opening 50 at 2024-01-01, purchase 20 on 01-05, sale 15 on 01-10:
    balance = 50 + 20 - 15 = 55
  Add a pending damage of 5 on 01-12:          balance = 50
  Resolve that damage as replace:              balance = 55

UNINITIALIZED BATCHES:
  A batch without an opening stock date still gets a ledger (every movement
  counts), but the result carries Uninitialized so callers never mistake it
  for a trustworthy zero-baseline figure.

NEGATIVE BALANCES:
  Not clamped. Negative stock is a fact about the data that the write paths
  should have prevented; the result carries Negative so callers can warn.
*/
package ledger

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// StockBreakdown holds the per-stream sums that make up a stock balance.
// All values are non-negative magnitudes as recorded on the source lines.
type StockBreakdown struct {
	Purchased        decimal.Decimal `json:"purchased"`
	Sold             decimal.Decimal `json:"sold"`
	SaleReturned     decimal.Decimal `json:"sale_returned"`
	PurchaseReturned decimal.Decimal `json:"purchase_returned"`
	Damaged          decimal.Decimal `json:"damaged"`

	// Replaced is the quantity of replace-resolved damages that were left
	// out of Damaged. Informational only.
	Replaced decimal.Decimal `json:"replaced"`
}

// StockResult is the outcome of a stock fold for one batch.
type StockResult struct {
	Key           BatchKey        `json:"key"`
	Opening       decimal.Decimal `json:"opening"`
	Balance       decimal.Decimal `json:"balance"`
	Breakdown     StockBreakdown  `json:"breakdown"`
	Entries       []Entry         `json:"entries"`
	Uninitialized bool            `json:"uninitialized"`
	Negative      bool            `json:"negative"`
	Skipped       SkipCounts      `json:"skipped"`
}

// Value returns the balance valued at unitCost.
func (r StockResult) Value(unitCost decimal.Decimal) decimal.Decimal {
	return r.Balance.Mul(unitCost)
}

// Err returns ErrUninitializedBaseline, wrapped with the batch key, when the
// balance was computed without an opening stock date.
func (r StockResult) Err() error {
	if r.Uninitialized {
		return fmt.Errorf("%s: %w", r.Key, ErrUninitializedBaseline)
	}
	return nil
}

// ComputeStockBalance replays the streams against baseline for one batch.
func ComputeStockBalance(key BatchKey, baseline Baseline, s Streams) StockResult {
	f := stockFold{key: key, baseline: baseline}

	for _, p := range s.Purchases {
		f.lines(KindPurchase, Bill(p), &f.breakdown.Purchased, 1)
	}
	for _, sale := range s.Sales {
		f.lines(KindSale, Bill(sale), &f.breakdown.Sold, -1)
	}
	for _, ret := range s.SaleReturns {
		f.lines(KindSaleReturn, Bill{ID: ret.ID, At: ret.At, Lines: ret.Lines}, &f.breakdown.SaleReturned, 1)
	}
	for _, ret := range s.PurchaseReturns {
		f.lines(KindPurchaseReturn, Bill{ID: ret.ID, At: ret.At, Lines: ret.Lines}, &f.breakdown.PurchaseReturned, -1)
	}
	for _, d := range s.Damages {
		f.damage(d)
	}

	b := f.breakdown
	balance := baseline.Quantity.
		Add(b.Purchased).
		Add(b.SaleReturned).
		Sub(b.Sold).
		Sub(b.PurchaseReturned).
		Sub(b.Damaged)

	return StockResult{
		Key:           key,
		Opening:       baseline.Quantity,
		Balance:       balance,
		Breakdown:     b,
		Entries:       chronicle(f.entries, baseline.Quantity),
		Uninitialized: baseline.At == nil,
		Negative:      balance.IsNegative(),
		Skipped:       f.skipped,
	}
}

// ComputeBatchStock is ComputeStockBalance with the baseline taken from the
// batch record itself.
func ComputeBatchStock(productID ProductID, batch Batch, s Streams) StockResult {
	return ComputeStockBalance(BatchKey{ProductID: productID, BatchCode: batch.Code}, batch.Baseline(), s)
}

type stockFold struct {
	key       BatchKey
	baseline  Baseline
	breakdown StockBreakdown
	entries   []Entry
	skipped   SkipCounts
}

// lines folds every line of one record. sign is the direction the stream
// moves stock in: +1 for inflows, -1 for outflows.
func (f *stockFold) lines(kind EntryKind, rec Bill, sum *decimal.Decimal, sign int64) {
	for _, l := range rec.Lines {
		if !l.Key().Valid() {
			f.skipped.MissingReference++
			continue
		}
		if l.Key() != f.key {
			continue
		}
		if !f.counts(rec) {
			continue
		}
		*sum = sum.Add(l.Quantity)
		f.entries = append(f.entries, Entry{
			At:       rec.At,
			Kind:     kind,
			RecordID: rec.ID,
			Delta:    l.Quantity.Mul(decimal.NewFromInt(sign)),
		})
	}
}

func (f *stockFold) damage(d Damage) {
	if !d.Key().Valid() {
		f.skipped.MissingReference++
		return
	}
	if d.Key() != f.key || !f.counts(Bill{At: d.At}) {
		return
	}
	if d.Resolution == ResolutionReplace {
		f.breakdown.Replaced = f.breakdown.Replaced.Add(d.Quantity)
		return
	}
	f.breakdown.Damaged = f.breakdown.Damaged.Add(d.Quantity)
	f.entries = append(f.entries, Entry{
		At:       d.At,
		Kind:     KindDamage,
		RecordID: d.ID,
		Delta:    d.Quantity.Neg(),
	})
}

func (f *stockFold) counts(rec Bill) bool {
	if rec.At.IsZero() && f.baseline.At != nil {
		f.skipped.Undated++
		return false
	}
	return f.baseline.Counts(rec.At)
}
