/*
financial.go - Per-person receivable/payable fold

PURPOSE:
  A person's balance is never stored. It is recomputed from every record
  that moves money between the business and that person.

SIGN CONVENTION:
  Positive net = the person owes the business (receivable).
  Negative net = the business owes the person (payable).

    receivable = sales credit + manual credits + purchase-return adjustments
    payable    = purchase credit + manual payments + sale-return adjustments
    net        = receivable - payable

PREVIOUS BALANCE:
  A printed bill shows the balance before that bill. The aggregate already
  contains the bill, so the bill's credit is subtracted back out:

    previous = net - billCredit

  BalanceBeforeBill generalizes this to purchases, whose contribution to
  net is -credit.
*/
package ledger

import "github.com/shopspring/decimal"

type FinancialBreakdown struct {
	SalesCredit               decimal.Decimal `json:"sales_credit"`
	ManualCredits             decimal.Decimal `json:"manual_credits"`
	PurchaseReturnAdjustments decimal.Decimal `json:"purchase_return_adjustments"`
	PurchasesCredit           decimal.Decimal `json:"purchases_credit"`
	ManualPayments            decimal.Decimal `json:"manual_payments"`
	SaleReturnAdjustments     decimal.Decimal `json:"sale_return_adjustments"`
}

// FinancialResult is the outcome of a financial fold for one person.
type FinancialResult struct {
	PersonID   PersonID           `json:"person_id"`
	Receivable decimal.Decimal    `json:"receivable"`
	Payable    decimal.Decimal    `json:"payable"`
	Net        decimal.Decimal    `json:"net"`
	Breakdown  FinancialBreakdown `json:"breakdown"`
	Entries    []Entry            `json:"entries"`
	Skipped    SkipCounts         `json:"skipped"`

	bills map[string]decimal.Decimal
}

// IsReceivable reports whether the person owes the business.
func (r FinancialResult) IsReceivable() bool { return r.Net.IsPositive() }

// IsPayable reports whether the business owes the person.
func (r FinancialResult) IsPayable() bool { return r.Net.IsNegative() }

// BalanceBefore returns the balance before a bill whose credit is already
// part of the aggregate.
func (r FinancialResult) BalanceBefore(billCredit decimal.Decimal) decimal.Decimal {
	return PreviousBalance(r.Net, billCredit)
}

// BalanceBeforeBill returns the balance before the sale or purchase with the
// given id. The second value is false when the person has no such bill.
func (r FinancialResult) BalanceBeforeBill(billID string) (decimal.Decimal, bool) {
	contribution, ok := r.bills[billID]
	if !ok {
		return decimal.Zero, false
	}
	return PreviousBalance(r.Net, contribution), true
}

// PreviousBalance is net with the current bill's credit taken back out.
func PreviousBalance(net, billCredit decimal.Decimal) decimal.Decimal {
	return net.Sub(billCredit)
}

// ComputeFinancialBalance folds every money-moving record of person.
func ComputeFinancialBalance(person PersonID, s Streams) FinancialResult {
	var (
		b       FinancialBreakdown
		entries []Entry
		skipped SkipCounts
		bills   = make(map[string]decimal.Decimal)
	)

	add := func(sum *decimal.Decimal, kind EntryKind, id string, rec Bill, sign int64) {
		*sum = sum.Add(rec.Credit)
		entries = append(entries, Entry{
			At:       rec.At,
			Kind:     kind,
			RecordID: id,
			Delta:    rec.Credit.Mul(decimal.NewFromInt(sign)),
		})
	}

	for _, sale := range s.Sales {
		if !refers(sale.PersonID, person, &skipped) {
			continue
		}
		add(&b.SalesCredit, KindSale, sale.ID, Bill(sale), 1)
		bills[sale.ID] = sale.Credit
	}
	for _, p := range s.Purchases {
		if !refers(p.PersonID, person, &skipped) {
			continue
		}
		add(&b.PurchasesCredit, KindPurchase, p.ID, Bill(p), -1)
		bills[p.ID] = p.Credit.Neg()
	}
	for _, ret := range s.PurchaseReturns {
		if !refers(ret.PersonID, person, &skipped) {
			continue
		}
		add(&b.PurchaseReturnAdjustments, KindPurchaseReturn, ret.ID, Bill{At: ret.At, Credit: ret.CreditAdjustment}, 1)
	}
	for _, ret := range s.SaleReturns {
		if !refers(ret.PersonID, person, &skipped) {
			continue
		}
		add(&b.SaleReturnAdjustments, KindSaleReturn, ret.ID, Bill{At: ret.At, Credit: ret.CreditAdjustment}, -1)
	}
	for _, e := range s.ManualEntries {
		if !refers(e.PersonID, person, &skipped) {
			continue
		}
		rec := Bill{At: e.At, Credit: e.Amount}
		switch e.Type {
		case EntryCredit:
			add(&b.ManualCredits, KindManualCredit, e.ID, rec, 1)
		case EntryPayment:
			add(&b.ManualPayments, KindManualPayment, e.ID, rec, -1)
		default:
			skipped.Malformed++
		}
	}

	receivable := b.SalesCredit.Add(b.ManualCredits).Add(b.PurchaseReturnAdjustments)
	payable := b.PurchasesCredit.Add(b.ManualPayments).Add(b.SaleReturnAdjustments)

	return FinancialResult{
		PersonID:   person,
		Receivable: receivable,
		Payable:    payable,
		Net:        receivable.Sub(payable),
		Breakdown:  b,
		Entries:    chronicle(entries, decimal.Zero),
		Skipped:    skipped,
		bills:      bills,
	}
}

// refers reports whether a record belongs to person, counting records that
// carry no person at all.
func refers(ref, person PersonID, skipped *SkipCounts) bool {
	if ref == "" {
		skipped.MissingReference++
		return false
	}
	return ref == person
}
