package ledger

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// ENTRY - One contributing movement, for audit and display
// =============================================================================

type EntryKind string

const (
	KindPurchase       EntryKind = "purchase"
	KindSale           EntryKind = "sale"
	KindSaleReturn     EntryKind = "sale_return"
	KindPurchaseReturn EntryKind = "purchase_return"
	KindDamage         EntryKind = "damage"
	KindManualCredit   EntryKind = "manual_credit"
	KindManualPayment  EntryKind = "manual_payment"
)

// rank orders entries of different kinds that share a timestamp. Inflows
// come before outflows so a same-instant purchase and sale never show a
// transient negative running balance.
var rank = map[EntryKind]int{
	KindPurchase:       0,
	KindSaleReturn:     1,
	KindManualCredit:   2,
	KindSale:           3,
	KindPurchaseReturn: 4,
	KindDamage:         5,
	KindManualPayment:  6,
}

// Entry is a signed contribution to a balance. Balance is the running total
// after applying Delta.
type Entry struct {
	At       time.Time       `json:"at"`
	Kind     EntryKind       `json:"kind"`
	RecordID string          `json:"record_id"`
	Delta    decimal.Decimal `json:"delta"`
	Balance  decimal.Decimal `json:"balance"`
}

// chronicle sorts entries into a total order and fills in running balances.
// The order depends only on entry contents, so shuffled inputs produce the
// same ledger.
func chronicle(entries []Entry, opening decimal.Decimal) []Entry {
	sort.SliceStable(entries, func(i, j int) bool {
		a, b := entries[i], entries[j]
		if !a.At.Equal(b.At) {
			return a.At.Before(b.At)
		}
		if rank[a.Kind] != rank[b.Kind] {
			return rank[a.Kind] < rank[b.Kind]
		}
		if a.RecordID != b.RecordID {
			return a.RecordID < b.RecordID
		}
		return a.Delta.LessThan(b.Delta)
	})

	running := opening
	for i := range entries {
		running = running.Add(entries[i].Delta)
		entries[i].Balance = running
	}
	return entries
}
