/*
Package sqlite provides a SQLite-backed document backend.

PURPOSE:
  Stores the collections of the document store in a single table so the
  service can run standalone. Bodies are kept verbatim: the document
  package normalizes field names when reading, never when writing.

INTERFACES IMPLEMENTED:
  store.Documents:   get/put/delete/list per collection
  store.TxDocuments: atomic WithTx

KEY TABLES:
  documents: (collection, id) primary key, body_json, updated_at

INDEXES:
  - idx_documents_updated_at: recent-changes listing

CONCURRENCY:
  Uses sync.RWMutex for thread-safety. SQLite allows one writer at a time,
  so WithTx holds the write lock for the whole transaction.

WAL MODE:
  SQLite is opened with WAL (Write-Ahead Logging):
  - Multiple readers don't block
  - Single writer at a time
  - Better crash recovery

USAGE:
  docs, err := sqlite.New("./data/ledger.db")
  if err != nil {
      log.Fatal(err)
  }
  defer docs.Close()

  repo := store.NewRepository(docs, logger)

MIGRATION:
  Schema is auto-migrated on New().

SEE ALSO:
  - store/store.go: interface definitions
  - store/memory: in-memory implementation for testing
*/
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/warp/stock-ledger/store"
)

// Store implements store.TxDocuments using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

var _ store.Backend = (*Store)(nil)

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// An in-memory database exists per connection.
	db.SetMaxOpenConns(1)

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS documents (
		collection TEXT NOT NULL,
		id TEXT NOT NULL,
		body_json TEXT NOT NULL,
		updated_at TEXT NOT NULL,
		PRIMARY KEY (collection, id)
	);

	CREATE INDEX IF NOT EXISTS idx_documents_updated_at
		ON documents(updated_at);
	`
	_, err := s.db.Exec(schema)
	return err
}

// execer is satisfied by *sql.DB and *sql.Tx.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// =============================================================================
// DOCUMENTS (store.Documents interface)
// =============================================================================

func (s *Store) Get(ctx context.Context, collection, id string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return get(ctx, s.db, collection, id)
}

func (s *Store) Put(ctx context.Context, collection, id string, body []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return put(ctx, s.db, collection, id, body)
}

func (s *Store) Delete(ctx context.Context, collection, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return del(ctx, s.db, collection, id)
}

// List returns the documents of a collection ordered by id.
func (s *Store) List(ctx context.Context, collection string) ([]store.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return list(ctx, s.db, collection)
}

func get(ctx context.Context, db execer, collection, id string) ([]byte, error) {
	var body string
	err := db.QueryRowContext(ctx,
		"SELECT body_json FROM documents WHERE collection = ? AND id = ?",
		collection, id,
	).Scan(&body)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%s/%s: %w", collection, id, store.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get document: %w", err)
	}
	return []byte(body), nil
}

func put(ctx context.Context, db execer, collection, id string, body []byte) error {
	query := `
		INSERT INTO documents (collection, id, body_json, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(collection, id) DO UPDATE SET
			body_json = excluded.body_json,
			updated_at = excluded.updated_at
	`
	_, err := db.ExecContext(ctx, query,
		collection, id, string(body),
		time.Now().UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("failed to put document: %w", err)
	}
	return nil
}

func del(ctx context.Context, db execer, collection, id string) error {
	res, err := db.ExecContext(ctx,
		"DELETE FROM documents WHERE collection = ? AND id = ?",
		collection, id,
	)
	if err != nil {
		return fmt.Errorf("failed to delete document: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%s/%s: %w", collection, id, store.ErrNotFound)
	}
	return nil
}

func list(ctx context.Context, db execer, collection string) ([]store.Document, error) {
	rows, err := db.QueryContext(ctx,
		"SELECT id, body_json, updated_at FROM documents WHERE collection = ? ORDER BY id",
		collection,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query documents: %w", err)
	}
	defer rows.Close()

	docs := []store.Document{}
	for rows.Next() {
		var (
			d         store.Document
			body      string
			updatedAt string
		)
		if err := rows.Scan(&d.ID, &body, &updatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan document: %w", err)
		}
		d.Body = []byte(body)
		d.UpdatedAt, _ = time.Parse(time.RFC3339Nano, updatedAt)
		docs = append(docs, d)
	}
	return docs, rows.Err()
}

// =============================================================================
// TRANSACTIONAL STORE (store.TxDocuments interface)
// =============================================================================

// WithTx executes a function within a database transaction.
func (s *Store) WithTx(ctx context.Context, fn func(store.Documents) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer sqlTx.Rollback()

	if err := fn(&txStore{tx: sqlTx}); err != nil {
		return err
	}
	return sqlTx.Commit()
}

type txStore struct {
	tx *sql.Tx
}

func (ts *txStore) Get(ctx context.Context, collection, id string) ([]byte, error) {
	return get(ctx, ts.tx, collection, id)
}

func (ts *txStore) Put(ctx context.Context, collection, id string, body []byte) error {
	return put(ctx, ts.tx, collection, id, body)
}

func (ts *txStore) Delete(ctx context.Context, collection, id string) error {
	return del(ctx, ts.tx, collection, id)
}

func (ts *txStore) List(ctx context.Context, collection string) ([]store.Document, error) {
	return list(ctx, ts.tx, collection)
}

// =============================================================================
// UTILITIES
// =============================================================================

// Reset clears all data (for testing/demo).
func (s *Store) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, "DELETE FROM documents")
	return err
}
