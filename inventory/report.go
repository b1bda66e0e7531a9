package inventory

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/warp/stock-ledger/ledger"
)

// =============================================================================
// STOCK REPORT
// =============================================================================

// BatchStock is the computed stock of one batch together with what the
// product document currently stores for it.
type BatchStock struct {
	ProductName   string             `json:"product_name"`
	Result        ledger.StockResult `json:"result"`
	Stored        decimal.Decimal    `json:"stored"`
	Drift         decimal.Decimal    `json:"drift"`
	PurchasePrice decimal.Decimal    `json:"purchase_price"`
	Value         decimal.Decimal    `json:"value"`
}

// Drifted reports whether the stored counter disagrees with the fold.
func (b BatchStock) Drifted() bool { return !b.Drift.IsZero() }

type StockReport struct {
	GeneratedAt   time.Time         `json:"generated_at"`
	Batches       []BatchStock      `json:"batches"`
	TotalUnits    decimal.Decimal   `json:"total_units"`
	TotalValue    decimal.Decimal   `json:"total_value"`
	Uninitialized []ledger.BatchKey `json:"uninitialized"`
	Negative      []ledger.BatchKey `json:"negative"`
	Drifted       []ledger.BatchKey `json:"drifted"`

	// Orphans are batch keys that movements point at but no product
	// document defines.
	Orphans []ledger.BatchKey `json:"orphans"`
}

// BuildStockReport computes every batch in the snapshot. Per-batch entries
// are dropped to keep the report small; use BatchReport for the ledger of a
// single batch.
func BuildStockReport(snap ledger.Snapshot, now time.Time) StockReport {
	report := StockReport{
		GeneratedAt:   now,
		Batches:       []BatchStock{},
		TotalUnits:    decimal.Zero,
		TotalValue:    decimal.Zero,
		Uninitialized: []ledger.BatchKey{},
		Negative:      []ledger.BatchKey{},
		Drifted:       []ledger.BatchKey{},
		Orphans:       []ledger.BatchKey{},
	}

	for _, p := range snap.Products {
		for _, b := range p.Batches {
			bs := batchStock(p, b, snap.Streams)
			bs.Result.Entries = nil

			key := bs.Result.Key
			if bs.Result.Uninitialized {
				report.Uninitialized = append(report.Uninitialized, key)
			}
			if bs.Result.Negative {
				report.Negative = append(report.Negative, key)
			}
			if bs.Drifted() {
				report.Drifted = append(report.Drifted, key)
			}
			report.TotalUnits = report.TotalUnits.Add(bs.Result.Balance)
			report.TotalValue = report.TotalValue.Add(bs.Value)
			report.Batches = append(report.Batches, bs)
		}
	}

	known := make(map[ledger.BatchKey]bool)
	for _, key := range snap.BatchKeys() {
		known[key] = true
	}
	for _, key := range snap.ReferencedKeys() {
		if !known[key] {
			report.Orphans = append(report.Orphans, key)
		}
	}
	return report
}

// OrphanErrors returns one ErrMissingReference per orphaned batch key.
func (r StockReport) OrphanErrors() []error {
	errs := make([]error, len(r.Orphans))
	for i, key := range r.Orphans {
		errs[i] = fmt.Errorf("%s: %w", key, ledger.ErrMissingReference)
	}
	return errs
}

// BatchReport computes one batch with its full movement ledger.
func BatchReport(snap ledger.Snapshot, key ledger.BatchKey) (BatchStock, error) {
	p, ok := snap.Product(key.ProductID)
	if !ok {
		return BatchStock{}, ledger.ErrProductNotFound
	}
	b, ok := p.Batch(key.BatchCode)
	if !ok {
		return BatchStock{}, &ledger.BatchNotFoundError{Key: key}
	}
	return batchStock(p, b, snap.Streams), nil
}

func batchStock(p ledger.Product, b ledger.Batch, s ledger.Streams) BatchStock {
	res := ledger.ComputeBatchStock(p.ID, b, s)
	return BatchStock{
		ProductName:   p.Name,
		Result:        res,
		Stored:        b.Quantity,
		Drift:         b.Quantity.Sub(res.Balance),
		PurchasePrice: b.PurchasePrice,
		Value:         res.Value(b.PurchasePrice),
	}
}

// =============================================================================
// BALANCE REPORT
// =============================================================================

type PersonBalance struct {
	Name   string                 `json:"name"`
	Known  bool                   `json:"known"`
	Result ledger.FinancialResult `json:"result"`
}

type BalanceReport struct {
	GeneratedAt time.Time       `json:"generated_at"`
	People      []PersonBalance `json:"people"`

	// TotalReceivable sums the positive nets, TotalPayable the magnitudes of
	// the negative ones.
	TotalReceivable decimal.Decimal `json:"total_receivable"`
	TotalPayable    decimal.Decimal `json:"total_payable"`
}

// BuildBalanceReport computes the balance of every person in the snapshot,
// followed by every person id that transactions reference but no people
// document defines.
func BuildBalanceReport(snap ledger.Snapshot, now time.Time) BalanceReport {
	report := BalanceReport{
		GeneratedAt:     now,
		People:          []PersonBalance{},
		TotalReceivable: decimal.Zero,
		TotalPayable:    decimal.Zero,
	}

	add := func(pb PersonBalance) {
		pb.Result.Entries = nil
		switch {
		case pb.Result.IsReceivable():
			report.TotalReceivable = report.TotalReceivable.Add(pb.Result.Net)
		case pb.Result.IsPayable():
			report.TotalPayable = report.TotalPayable.Add(pb.Result.Net.Neg())
		}
		report.People = append(report.People, pb)
	}

	for _, p := range snap.People {
		add(PersonBalance{Name: p.Name, Known: true, Result: ledger.ComputeFinancialBalance(p.ID, snap.Streams)})
	}
	for _, id := range snap.ReferencedPeople() {
		if _, ok := snap.Person(id); ok {
			continue
		}
		add(PersonBalance{Result: ledger.ComputeFinancialBalance(id, snap.Streams)})
	}
	return report
}

// PersonReport computes one person's balance with entries. A known person
// with no records gets a zero balance; an id that neither a people document
// nor any record names is ErrPersonNotFound.
func PersonReport(snap ledger.Snapshot, id ledger.PersonID) (PersonBalance, error) {
	p, known := snap.Person(id)
	if !known && !referenced(snap, id) {
		return PersonBalance{}, fmt.Errorf("%s: %w", id, ledger.ErrPersonNotFound)
	}
	return PersonBalance{
		Name:   p.Name,
		Known:  known,
		Result: ledger.ComputeFinancialBalance(id, snap.Streams),
	}, nil
}

func referenced(snap ledger.Snapshot, id ledger.PersonID) bool {
	for _, ref := range snap.ReferencedPeople() {
		if ref == id {
			return true
		}
	}
	return false
}
