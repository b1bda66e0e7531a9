package inventory

import (
	"context"

	"github.com/shopspring/decimal"
	"github.com/warp/stock-ledger/ledger"
)

// Store is what the damage workflow needs from persistence. Batch
// quantities are the stored counters of the product documents; damage
// reports and manual entries are documents of their own collections.
type Store interface {
	// Batch returns the stored batch record.
	Batch(ctx context.Context, key ledger.BatchKey) (ledger.Batch, error)

	// AdjustBatchQuantity adds delta to the stored batch quantity and
	// returns the new quantity.
	AdjustBatchQuantity(ctx context.Context, key ledger.BatchKey, delta decimal.Decimal) (decimal.Decimal, error)

	SaveDamage(ctx context.Context, d ledger.Damage) error
	Damage(ctx context.Context, id string) (ledger.Damage, error)
	Damages(ctx context.Context) ([]ledger.Damage, error)
	DeleteDamage(ctx context.Context, id string) error

	AppendManualEntry(ctx context.Context, e ledger.ManualEntry) error
}

// TxStore runs a group of Store operations atomically. If fn returns an
// error nothing it wrote is kept.
type TxStore interface {
	Store
	WithTx(ctx context.Context, fn func(Store) error) error
}
