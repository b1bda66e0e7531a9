/*
Package inventory holds the write-path workflow for damage reports and the
stock and balance reports every view is built from.

DAMAGE LIFECYCLE:

  create ──► Pending ──resolve──► Resolved(refund | replace | loss)
               │                      │
             delete                 delete
     (stock restored)         (history purge only)

  create:   blocks if the batch holds fewer units than reported; otherwise
            deducts the units from the batch immediately.
  refund:   appends a payment-type manual entry for the refund amount
            against the damage's person. Stock stays deducted.
  replace:  credits the damaged units back to the batch. The stock fold
            then leaves this damage out so the units are not restored twice.
  loss:     no side effect. Stock stays deducted.

  Only replace restores stock. A refund is a monetary remedy; the goods
  are still gone.

ATOMICITY:
  Every transition runs inside Store.WithTx, so the batch write, the damage
  document and any manual entry land together or not at all.

SEE ALSO:
  - report.go: stock and balance reports
  - ledger/stock.go: how damages enter the stock fold
*/
package inventory

import (
	"context"
	"fmt"
	"reflect"
	"sort"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/warp/stock-ledger/ledger"
	"github.com/warp/stock-ledger/observability"
)

// =============================================================================
// INPUTS
// =============================================================================

type CreateDamageInput struct {
	ProductID ledger.ProductID `validate:"required"`
	BatchCode string           `validate:"required"`
	PersonID  ledger.PersonID
	Quantity  decimal.Decimal `validate:"gt=0"`
	Note      string          `validate:"max=500"`

	// At defaults to now.
	At time.Time
}

type ResolveDamageInput struct {
	Resolution   ledger.Resolution `validate:"required,oneof=refund replace loss"`
	RefundAmount decimal.Decimal   `validate:"gte=0"`

	// PersonID is used for a refund when the damage itself names nobody.
	PersonID ledger.PersonID

	// At defaults to now.
	At time.Time
}

// =============================================================================
// DAMAGE SERVICE
// =============================================================================

// DamageService runs damage reports through their lifecycle.
type DamageService struct {
	Store TxStore
	Log   logrus.FieldLogger
	Now   func() time.Time
	NewID func() string

	validate *validator.Validate
}

// NewDamageService creates a service with wall-clock time and random ids.
func NewDamageService(store TxStore, log logrus.FieldLogger) *DamageService {
	return &DamageService{
		Store:    store,
		Log:      log,
		Now:      func() time.Time { return time.Now().UTC() },
		NewID:    func() string { return uuid.NewString() },
		validate: NewValidator(),
	}
}

// NewValidator returns a validator that understands decimal.Decimal fields.
func NewValidator() *validator.Validate {
	v := validator.New()
	v.RegisterCustomTypeFunc(func(field reflect.Value) any {
		if d, ok := field.Interface().(decimal.Decimal); ok {
			f, _ := d.Float64()
			return f
		}
		return nil
	}, decimal.Decimal{})
	return v
}

// Create records a pending damage and deducts its units from the batch.
func (s *DamageService) Create(ctx context.Context, in CreateDamageInput) (ledger.Damage, error) {
	if err := s.validate.Struct(in); err != nil {
		return ledger.Damage{}, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	d := ledger.Damage{
		ID:        s.NewID(),
		ProductID: in.ProductID,
		BatchCode: in.BatchCode,
		PersonID:  in.PersonID,
		Quantity:  in.Quantity,
		Note:      in.Note,
		At:        s.at(in.At),
	}

	err := s.Store.WithTx(ctx, func(st Store) error {
		batch, err := st.Batch(ctx, d.Key())
		if err != nil {
			return err
		}
		if batch.Quantity.LessThan(d.Quantity) {
			return &InsufficientStockError{Key: d.Key(), Available: batch.Quantity, Requested: d.Quantity}
		}
		if _, err := st.AdjustBatchQuantity(ctx, d.Key(), d.Quantity.Neg()); err != nil {
			return err
		}
		return st.SaveDamage(ctx, d)
	})
	if err != nil {
		return ledger.Damage{}, err
	}

	s.record(d, "create").Info("damage reported")
	return d, nil
}

// Resolve moves a pending damage to its terminal state and applies the
// resolution's side effect.
func (s *DamageService) Resolve(ctx context.Context, id string, in ResolveDamageInput) (ledger.Damage, error) {
	if err := s.validate.Struct(in); err != nil {
		return ledger.Damage{}, fmt.Errorf("%w: %v", ErrInvalidResolution, err)
	}
	if in.Resolution == ledger.ResolutionRefund && !in.RefundAmount.IsPositive() {
		return ledger.Damage{}, fmt.Errorf("%w: refund amount must be positive", ErrInvalidInput)
	}

	at := s.at(in.At)
	var resolved ledger.Damage

	err := s.Store.WithTx(ctx, func(st Store) error {
		d, err := st.Damage(ctx, id)
		if err != nil {
			return err
		}
		if !d.Pending() {
			return fmt.Errorf("damage %s is %s: %w", d.ID, d.Resolution, ErrDamageResolved)
		}

		switch in.Resolution {
		case ledger.ResolutionRefund:
			if d.PersonID == "" {
				d.PersonID = in.PersonID
			}
			if d.PersonID == "" {
				return ErrRefundRequiresPerson
			}
			d.RefundAmount = in.RefundAmount
			err = st.AppendManualEntry(ctx, ledger.ManualEntry{
				ID:        s.NewID(),
				PersonID:  d.PersonID,
				Type:      ledger.EntryPayment,
				Amount:    in.RefundAmount,
				At:        at,
				Reference: "damage:" + d.ID,
				Note:      "damage refund",
			})
		case ledger.ResolutionReplace:
			_, err = st.AdjustBatchQuantity(ctx, d.Key(), d.Quantity)
		case ledger.ResolutionLoss:
		}
		if err != nil {
			return err
		}

		d.Resolution = in.Resolution
		d.ResolvedAt = &at
		resolved = d
		return st.SaveDamage(ctx, d)
	})
	if err != nil {
		return ledger.Damage{}, err
	}

	s.record(resolved, "resolve_"+string(resolved.Resolution)).Info("damage resolved")
	return resolved, nil
}

// Delete removes a damage report. A pending report is treated as a mistake
// and its units go back to the batch; a resolved one is only purged.
func (s *DamageService) Delete(ctx context.Context, id string) error {
	var deleted ledger.Damage

	err := s.Store.WithTx(ctx, func(st Store) error {
		d, err := st.Damage(ctx, id)
		if err != nil {
			return err
		}
		if d.Pending() {
			if _, err := st.AdjustBatchQuantity(ctx, d.Key(), d.Quantity); err != nil {
				return err
			}
		}
		deleted = d
		return st.DeleteDamage(ctx, id)
	})
	if err != nil {
		return err
	}

	transition := "delete_resolved"
	if deleted.Pending() {
		transition = "delete_pending"
	}
	s.record(deleted, transition).Info("damage deleted")
	return nil
}

func (s *DamageService) Get(ctx context.Context, id string) (ledger.Damage, error) {
	return s.Store.Damage(ctx, id)
}

// List returns every damage report, oldest first.
func (s *DamageService) List(ctx context.Context) ([]ledger.Damage, error) {
	damages, err := s.Store.Damages(ctx)
	if err != nil {
		return nil, err
	}
	sort.Slice(damages, func(i, j int) bool {
		if !damages[i].At.Equal(damages[j].At) {
			return damages[i].At.Before(damages[j].At)
		}
		return damages[i].ID < damages[j].ID
	})
	return damages, nil
}

func (s *DamageService) at(t time.Time) time.Time {
	if t.IsZero() {
		return s.Now()
	}
	return t.UTC()
}

func (s *DamageService) record(d ledger.Damage, transition string) logrus.FieldLogger {
	observability.DamageTransitions.WithLabelValues(transition).Inc()
	return s.Log.WithFields(logrus.Fields{
		"module":     "inventory",
		"damage_id":  d.ID,
		"product_id": d.ProductID,
		"batch_code": d.BatchCode,
		"quantity":   d.Quantity.String(),
		"transition": transition,
	})
}
