// Package memory provides an in-memory document backend.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/warp/stock-ledger/store"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

type Memory struct {
	mu          sync.RWMutex
	collections map[string]map[string]store.Document
	now         func() time.Time
}

var _ store.Backend = (*Memory)(nil)

func New() *Memory {
	return &Memory{
		collections: make(map[string]map[string]store.Document),
		now:         func() time.Time { return time.Now().UTC() },
	}
}

func (m *Memory) Get(_ context.Context, collection, id string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.getLocked(collection, id)
}

// Put stores a copy of body; callers may reuse their buffer.
func (m *Memory) Put(_ context.Context, collection, id string, body []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.putLocked(collection, id, body)
	return nil
}

func (m *Memory) Delete(_ context.Context, collection, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.deleteLocked(collection, id)
}

func (m *Memory) List(_ context.Context, collection string) ([]store.Document, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.listLocked(collection), nil
}

// Reset drops every collection.
func (m *Memory) Reset(context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.collections = make(map[string]map[string]store.Document)
	return nil
}

func (m *Memory) getLocked(collection, id string) ([]byte, error) {
	d, ok := m.collections[collection][id]
	if !ok {
		return nil, fmt.Errorf("%s/%s: %w", collection, id, store.ErrNotFound)
	}
	return append([]byte(nil), d.Body...), nil
}

func (m *Memory) putLocked(collection, id string, body []byte) {
	docs, ok := m.collections[collection]
	if !ok {
		docs = make(map[string]store.Document)
		m.collections[collection] = docs
	}
	docs[id] = store.Document{ID: id, Body: append([]byte(nil), body...), UpdatedAt: m.now()}
}

func (m *Memory) deleteLocked(collection, id string) error {
	if _, ok := m.collections[collection][id]; !ok {
		return fmt.Errorf("%s/%s: %w", collection, id, store.ErrNotFound)
	}
	delete(m.collections[collection], id)
	return nil
}

func (m *Memory) listLocked(collection string) []store.Document {
	docs := m.collections[collection]
	out := make([]store.Document, 0, len(docs))
	for _, d := range docs {
		d.Body = append([]byte(nil), d.Body...)
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// =============================================================================
// TRANSACTIONS
// =============================================================================

// WithTx executes fn while holding the write lock. It is simulated with a
// snapshot that is restored if fn fails.
func (m *Memory) WithTx(_ context.Context, fn func(store.Documents) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	snapshot := m.snapshot()
	if err := fn(&txView{parent: m}); err != nil {
		m.collections = snapshot
		return err
	}
	return nil
}

// snapshot copies the collection maps. Bodies are never mutated in place,
// so they can be shared.
func (m *Memory) snapshot() map[string]map[string]store.Document {
	cp := make(map[string]map[string]store.Document, len(m.collections))
	for name, docs := range m.collections {
		inner := make(map[string]store.Document, len(docs))
		for id, d := range docs {
			inner[id] = d
		}
		cp[name] = inner
	}
	return cp
}

// txView works on the parent's maps without locking; WithTx holds the lock.
type txView struct {
	parent *Memory
}

func (tv *txView) Get(_ context.Context, collection, id string) ([]byte, error) {
	return tv.parent.getLocked(collection, id)
}

func (tv *txView) Put(_ context.Context, collection, id string, body []byte) error {
	tv.parent.putLocked(collection, id, body)
	return nil
}

func (tv *txView) Delete(_ context.Context, collection, id string) error {
	return tv.parent.deleteLocked(collection, id)
}

func (tv *txView) List(_ context.Context, collection string) ([]store.Document, error) {
	return tv.parent.listLocked(collection), nil
}
