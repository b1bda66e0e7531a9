package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/warp/stock-ledger/document"
	"github.com/warp/stock-ledger/inventory"
	"github.com/warp/stock-ledger/ledger"
	"github.com/warp/stock-ledger/observability"
)

// Repository reads and writes ledger records through a document backend.
type Repository struct {
	view
	tx TxDocuments
}

var _ inventory.TxStore = (*Repository)(nil)

func NewRepository(docs TxDocuments, log logrus.FieldLogger) *Repository {
	return &Repository{view: view{docs: docs, log: log}, tx: docs}
}

// WithTx runs fn against a transactional view of the backend.
func (r *Repository) WithTx(ctx context.Context, fn func(inventory.Store) error) error {
	return r.tx.WithTx(ctx, func(docs Documents) error {
		return fn(view{docs: docs, log: r.log})
	})
}

// LoadSnapshot reads every collection the folds need. Documents that are
// not JSON objects are logged, counted and left out.
func (r *Repository) LoadSnapshot(ctx context.Context) (ledger.Snapshot, error) {
	var (
		snap ledger.Snapshot
		err  error
	)
	if snap.Products, err = decodeAll(ctx, r.view, document.Products, document.DecodeProduct); err != nil {
		return snap, err
	}
	if snap.People, err = decodeAll(ctx, r.view, document.People, document.DecodePerson); err != nil {
		return snap, err
	}
	if snap.Purchases, err = decodeAll(ctx, r.view, document.Purchases, document.DecodePurchase); err != nil {
		return snap, err
	}
	if snap.Sales, err = decodeAll(ctx, r.view, document.Sales, document.DecodeSale); err != nil {
		return snap, err
	}
	if snap.SaleReturns, err = decodeAll(ctx, r.view, document.SaleReturns, document.DecodeReturn); err != nil {
		return snap, err
	}
	if snap.PurchaseReturns, err = decodeAll(ctx, r.view, document.PurchaseReturns, document.DecodeReturn); err != nil {
		return snap, err
	}
	if snap.Damages, err = decodeAll(ctx, r.view, document.Damages, document.DecodeDamage); err != nil {
		return snap, err
	}
	if snap.ManualEntries, err = decodeAll(ctx, r.view, document.ManualLedger, document.DecodeManualEntry); err != nil {
		return snap, err
	}
	return snap, nil
}

// =============================================================================
// VIEW (inventory.Store)
// =============================================================================

// view implements inventory.Store on any Documents, transactional or not.
type view struct {
	docs Documents
	log  logrus.FieldLogger
}

func (v view) product(ctx context.Context, id ledger.ProductID) ([]byte, error) {
	raw, err := v.docs.Get(ctx, document.Products, string(id))
	if errors.Is(err, ErrNotFound) {
		return nil, fmt.Errorf("product %s: %w", id, ledger.ErrProductNotFound)
	}
	return raw, err
}

func (v view) Batch(ctx context.Context, key ledger.BatchKey) (ledger.Batch, error) {
	raw, err := v.product(ctx, key.ProductID)
	if err != nil {
		return ledger.Batch{}, err
	}
	p, err := document.DecodeProduct(string(key.ProductID), raw)
	if err != nil {
		return ledger.Batch{}, err
	}
	b, ok := p.Batch(key.BatchCode)
	if !ok {
		return ledger.Batch{}, &ledger.BatchNotFoundError{Key: key}
	}
	return b, nil
}

func (v view) AdjustBatchQuantity(ctx context.Context, key ledger.BatchKey, delta decimal.Decimal) (decimal.Decimal, error) {
	raw, err := v.product(ctx, key.ProductID)
	if err != nil {
		return decimal.Zero, err
	}
	out, qty, err := document.AdjustBatchQuantity(raw, key.BatchCode, delta)
	if errors.Is(err, ledger.ErrBatchNotFound) {
		return decimal.Zero, &ledger.BatchNotFoundError{Key: key}
	}
	if err != nil {
		return decimal.Zero, err
	}
	if err := v.docs.Put(ctx, document.Products, string(key.ProductID), out); err != nil {
		return decimal.Zero, err
	}
	return qty, nil
}

func (v view) SaveDamage(ctx context.Context, d ledger.Damage) error {
	raw, err := document.EncodeDamage(d)
	if err != nil {
		return fmt.Errorf("failed to encode damage: %w", err)
	}
	return v.docs.Put(ctx, document.Damages, d.ID, raw)
}

func (v view) Damage(ctx context.Context, id string) (ledger.Damage, error) {
	raw, err := v.docs.Get(ctx, document.Damages, id)
	if errors.Is(err, ErrNotFound) {
		return ledger.Damage{}, fmt.Errorf("damage %s: %w", id, inventory.ErrDamageNotFound)
	}
	if err != nil {
		return ledger.Damage{}, err
	}
	return document.DecodeDamage(id, raw)
}

func (v view) Damages(ctx context.Context) ([]ledger.Damage, error) {
	return decodeAll(ctx, v, document.Damages, document.DecodeDamage)
}

func (v view) DeleteDamage(ctx context.Context, id string) error {
	err := v.docs.Delete(ctx, document.Damages, id)
	if errors.Is(err, ErrNotFound) {
		return fmt.Errorf("damage %s: %w", id, inventory.ErrDamageNotFound)
	}
	return err
}

func (v view) AppendManualEntry(ctx context.Context, e ledger.ManualEntry) error {
	raw, err := document.EncodeManualEntry(e)
	if err != nil {
		return fmt.Errorf("failed to encode manual entry: %w", err)
	}
	return v.docs.Put(ctx, document.ManualLedger, e.ID, raw)
}

func decodeAll[T any](ctx context.Context, v view, collection string, decode func(string, []byte) (T, error)) ([]T, error) {
	docs, err := v.docs.List(ctx, collection)
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", collection, err)
	}

	out := make([]T, 0, len(docs))
	for _, d := range docs {
		rec, err := decode(d.ID, d.Body)
		if err != nil {
			observability.SkippedEntries.WithLabelValues("malformed_document").Inc()
			v.log.WithFields(logrus.Fields{
				"module":     "store",
				"collection": collection,
				"id":         d.ID,
			}).WithError(err).Warn("skipping malformed document")
			continue
		}
		out = append(out, rec)
	}
	return out, nil
}
