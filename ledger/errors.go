/*
errors.go - Error vocabulary for the reconciliation engine

ERROR CATEGORIES:
  1. Fold-time conditions (MissingReference, UninitializedBaseline,
     MalformedNumeric). The folds never return these: they recover locally
     and report counts or flags. The sentinels exist so that callers which
     surface a condition to a user can classify it with errors.Is.
  2. Lookup failures (ErrProductNotFound, ErrBatchNotFound,
     ErrPersonNotFound), returned by write paths and the API.

SEE ALSO:
  - inventory/errors.go: write-path errors for the damage workflow
*/
package ledger

import (
	"errors"
	"fmt"
)

var (
	// ErrMissingReference marks a record pointing at a product, batch or
	// person that is absent.
	ErrMissingReference = errors.New("missing reference")

	// ErrUninitializedBaseline marks a batch without an opening stock date.
	ErrUninitializedBaseline = errors.New("uninitialized baseline")

	// ErrMalformedNumeric marks a quantity or amount that is not a number.
	ErrMalformedNumeric = errors.New("malformed numeric")

	ErrProductNotFound = errors.New("product not found")
	ErrBatchNotFound   = errors.New("batch not found")
	ErrPersonNotFound  = errors.New("person not found")
)

// BatchNotFoundError names the batch that could not be found.
type BatchNotFoundError struct {
	Key BatchKey
}

func (e *BatchNotFoundError) Error() string {
	return fmt.Sprintf("batch not found: %s", e.Key)
}

func (e *BatchNotFoundError) Unwrap() error {
	return ErrBatchNotFound
}

// IsNotFound returns true if the error indicates a missing product, batch
// or person.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrProductNotFound) ||
		errors.Is(err, ErrBatchNotFound) ||
		errors.Is(err, ErrPersonNotFound)
}
