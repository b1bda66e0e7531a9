/*
Package store connects the ledger to a document store.

PURPOSE:
  The data lives as loosely shaped JSON documents grouped in collections
  (products, sales, purchases, ...), written by several clients. This
  package defines the raw document interfaces a backend must provide and
  the Repository that turns documents into canonical ledger records.

INTERFACES:
  Documents:    raw get/put/delete/list per collection
  TxDocuments:  Documents plus atomic WithTx

IMPLEMENTATIONS:
  store/memory: maps behind a mutex (tests, dev)
  store/sqlite: one documents table keyed by (collection, id)

SEE ALSO:
  - repository.go: inventory.Store and snapshot loading on top of Documents
  - document/: field normalization
*/
package store

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned by backends for a missing document.
var ErrNotFound = errors.New("document not found")

// Document is one stored JSON document.
type Document struct {
	ID        string    `json:"id"`
	Body      []byte    `json:"-"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Documents is a raw document backend. List returns documents ordered by id.
type Documents interface {
	Get(ctx context.Context, collection, id string) ([]byte, error)
	Put(ctx context.Context, collection, id string, body []byte) error
	Delete(ctx context.Context, collection, id string) error
	List(ctx context.Context, collection string) ([]Document, error)
}

// TxDocuments runs fn atomically: either every write fn made is kept or
// none is.
type TxDocuments interface {
	Documents
	WithTx(ctx context.Context, fn func(Documents) error) error
}

// Backend is a document backend that can also be wiped, as the demo
// scenarios do before loading.
type Backend interface {
	TxDocuments
	Reset(ctx context.Context) error
}
