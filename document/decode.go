/*
Package document is the boundary between the external document store and
the reconciliation engine.

PURPOSE:
  The documents written by the point-of-sale front end are not uniform.
  The same logical field appears under different names depending on which
  screen wrote the record:

    person reference:  personId | peopleId | people | supplierId | customerId
    line quantity:     quantity | SellQuantity | enteredQty
    timestamp:         date | dateTime | createdAt | updatedAt
    return lines:      items | products

  Numbers arrive as numbers, numeric strings, empty strings or null. This
  package resolves all of that once, producing canonical ledger records, so
  the folds never branch on field-name variants.

LENIENCY:
  A document that is not a JSON object is an error. Everything inside a
  valid object is best effort: unknown or malformed numerics become zero,
  unparseable timestamps become the zero time, missing references become
  empty ids (which the folds skip and count).

SEE ALSO:
  - encode.go: documents written back by the damage workflow
  - ledger/types.go: the canonical records produced here
*/
package document

import (
	"strings"

	"github.com/warp/stock-ledger/ledger"
)

// =============================================================================
// COLLECTIONS
// =============================================================================

const (
	Products        = "products"
	Purchases       = "purchases"
	Sales           = "sales"
	Damages         = "damages"
	SaleReturns     = "saleReturns"
	PurchaseReturns = "purchaseReturns"
	ManualLedger    = "manualLedger"
	People          = "people"
)

// Collections lists every collection the engine reads.
var Collections = []string{
	Products, Purchases, Sales, Damages, SaleReturns, PurchaseReturns, ManualLedger, People,
}

// KnownCollection reports whether name is one of Collections.
func KnownCollection(name string) bool {
	for _, c := range Collections {
		if c == name {
			return true
		}
	}
	return false
}

// =============================================================================
// FIELD VARIANTS
// =============================================================================

var (
	personKeys = []string{"personId", "peopleId", "people", "supplierId", "customerId"}
	timeKeys   = []string{"date", "dateTime", "createdAt", "updatedAt"}

	saleQtyKeys     = []string{"SellQuantity", "quantity", "enteredQty"}
	purchaseQtyKeys = []string{"quantity", "enteredQty", "SellQuantity"}

	salePriceKeys     = []string{"sellPrice", "price", "purchasePrice"}
	purchasePriceKeys = []string{"purchasePrice", "price", "sellPrice"}
)

// =============================================================================
// DECODERS
// =============================================================================

// DecodeProduct decodes a product document with its embedded batches.
// The batches live in an array under "batchCode" (or "batches").
func DecodeProduct(id string, raw []byte) (ledger.Product, error) {
	f, err := parse(raw)
	if err != nil {
		return ledger.Product{}, err
	}

	p := ledger.Product{
		ID:   ledger.ProductID(firstNonEmpty(id, f.str("id"))),
		Name: f.str("name", "productName"),
	}
	for _, b := range f.list("batchCode", "batches") {
		p.Batches = append(p.Batches, ledger.Batch{
			Code:             b.str("batchCode", "code"),
			Quantity:         b.num("quantity"),
			OpeningStock:     b.num("openingStock"),
			OpeningStockDate: b.timePtr("openingStockDate"),
			PurchasePrice:    b.num("purchasePrice"),
			SellPrice:        b.num("sellPrice"),
		})
	}
	return p, nil
}

func DecodePurchase(id string, raw []byte) (ledger.Purchase, error) {
	b, err := decodeBill(id, raw, purchaseQtyKeys, purchasePriceKeys)
	return ledger.Purchase(b), err
}

func DecodeSale(id string, raw []byte) (ledger.Sale, error) {
	b, err := decodeBill(id, raw, saleQtyKeys, salePriceKeys)
	return ledger.Sale(b), err
}

func decodeBill(id string, raw []byte, qtyKeys, priceKeys []string) (ledger.Bill, error) {
	f, err := parse(raw)
	if err != nil {
		return ledger.Bill{}, err
	}

	at, _ := f.time(timeKeys...)
	return ledger.Bill{
		ID:       firstNonEmpty(id, f.str("id")),
		PersonID: ledger.PersonID(f.str(personKeys...)),
		At:       at,
		Credit:   f.num("credit"),
		Lines:    decodeLines(f.list("products", "items"), qtyKeys, priceKeys),
	}, nil
}

// DecodeReturn decodes a sale-return or purchase-return document.
func DecodeReturn(id string, raw []byte) (ledger.Return, error) {
	f, err := parse(raw)
	if err != nil {
		return ledger.Return{}, err
	}

	at, _ := f.time(timeKeys...)
	adjustment := f.num("creditAdjustment")
	if details := f.obj("paymentDetails"); details.has("creditAdjustment") {
		adjustment = details.num("creditAdjustment")
	}

	return ledger.Return{
		ID:               firstNonEmpty(id, f.str("id")),
		PersonID:         ledger.PersonID(f.str(personKeys...)),
		At:               at,
		Lines:            decodeLines(f.list("items", "products"), purchaseQtyKeys, purchasePriceKeys),
		CreditAdjustment: adjustment,
	}, nil
}

func DecodeDamage(id string, raw []byte) (ledger.Damage, error) {
	f, err := parse(raw)
	if err != nil {
		return ledger.Damage{}, err
	}

	at, _ := f.time("date", "createdAt", "updatedAt")
	return ledger.Damage{
		ID:           firstNonEmpty(id, f.str("id")),
		ProductID:    ledger.ProductID(f.str("productId")),
		BatchCode:    f.str("batchCode"),
		PersonID:     ledger.PersonID(f.str(personKeys...)),
		Quantity:     f.num("quantity", "enteredQty"),
		Resolution:   ParseResolution(f.str("resolution")),
		RefundAmount: f.num("refundAmount"),
		Note:         f.str("note", "reason"),
		At:           at,
		ResolvedAt:   f.timePtr("resolvedAt"),
	}, nil
}

func DecodeManualEntry(id string, raw []byte) (ledger.ManualEntry, error) {
	f, err := parse(raw)
	if err != nil {
		return ledger.ManualEntry{}, err
	}

	at, _ := f.time(timeKeys...)
	return ledger.ManualEntry{
		ID:        firstNonEmpty(id, f.str("id")),
		PersonID:  ledger.PersonID(f.str(personKeys...)),
		Type:      ledger.EntryType(strings.ToLower(f.str("type"))),
		Amount:    f.num("amount"),
		At:        at,
		Reference: f.str("reference"),
		Note:      f.str("note"),
	}, nil
}

func DecodePerson(id string, raw []byte) (ledger.Person, error) {
	f, err := parse(raw)
	if err != nil {
		return ledger.Person{}, err
	}
	return ledger.Person{
		ID:   ledger.PersonID(firstNonEmpty(id, f.str("id"))),
		Name: f.str("name", "fullName"),
	}, nil
}

// ParseResolution normalizes a stored resolution. Case and surrounding space
// are ignored and "pending" or "null" read as pending. Unknown values are
// kept as-is; the stock fold deducts for anything but replace.
func ParseResolution(s string) ledger.Resolution {
	r := ledger.Resolution(strings.ToLower(strings.TrimSpace(s)))
	if r == "pending" || r == "null" {
		return ledger.ResolutionPending
	}
	return r
}

func decodeLines(items []fields, qtyKeys, priceKeys []string) []ledger.Line {
	lines := make([]ledger.Line, 0, len(items))
	for _, it := range items {
		lines = append(lines, ledger.Line{
			ProductID: ledger.ProductID(it.str("id", "productId")),
			BatchCode: it.str("batchCode", "batch"),
			Quantity:  it.num(qtyKeys...),
			UnitPrice: it.num(priceKeys...),
		})
	}
	return lines
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
