package inventory

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/warp/stock-ledger/ledger"
)

var (
	// ErrInsufficientStock is returned when a damage report asks for more
	// units than the batch holds.
	ErrInsufficientStock = errors.New("insufficient stock")

	ErrDamageNotFound = errors.New("damage not found")

	// ErrDamageResolved is returned for transitions out of a terminal state.
	ErrDamageResolved = errors.New("damage already resolved")

	ErrInvalidResolution = errors.New("invalid resolution")

	// ErrRefundRequiresPerson is returned when a refund has nobody to
	// credit the money to.
	ErrRefundRequiresPerson = errors.New("refund requires a person")

	ErrInvalidInput = errors.New("invalid input")
)

// InsufficientStockError provides details about a stock shortage.
type InsufficientStockError struct {
	Key       ledger.BatchKey
	Available decimal.Decimal
	Requested decimal.Decimal
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for %s: available %s, requested %s",
		e.Key, e.Available, e.Requested)
}

func (e *InsufficientStockError) Unwrap() error {
	return ErrInsufficientStock
}

// IsConflict returns true if the request conflicts with current state.
func IsConflict(err error) bool {
	return errors.Is(err, ErrInsufficientStock) ||
		errors.Is(err, ErrDamageResolved)
}

// IsClientError returns true if the error is due to invalid client input.
func IsClientError(err error) bool {
	return errors.Is(err, ErrInvalidInput) ||
		errors.Is(err, ErrInvalidResolution) ||
		errors.Is(err, ErrRefundRequiresPerson)
}

// IsNotFound returns true if the error indicates a missing damage, product,
// batch or person.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrDamageNotFound) || ledger.IsNotFound(err)
}
