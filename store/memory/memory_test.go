package memory_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/stock-ledger/store"
	"github.com/warp/stock-ledger/store/memory"
)

func TestMemory_BodiesAreCopied(t *testing.T) {
	m := memory.New()
	ctx := context.Background()

	buf := []byte(`{"a":1}`)
	require.NoError(t, m.Put(ctx, "sales", "s1", buf))
	buf[2] = 'b'

	body, err := m.Get(ctx, "sales", "s1")
	require.NoError(t, err)
	assert.Equal(t, `{"a":1}`, string(body))
}

func TestMemory_ListAndDelete(t *testing.T) {
	m := memory.New()
	ctx := context.Background()

	for _, id := range []string{"b", "a"} {
		require.NoError(t, m.Put(ctx, "people", id, []byte(`{}`)))
	}

	docs, err := m.List(ctx, "people")
	require.NoError(t, err)
	require.Len(t, docs, 2)
	assert.Equal(t, "a", docs[0].ID)

	require.NoError(t, m.Delete(ctx, "people", "a"))
	assert.ErrorIs(t, m.Delete(ctx, "people", "a"), store.ErrNotFound)
	_, err = m.Get(ctx, "people", "a")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestMemory_WithTxRollsBack(t *testing.T) {
	// GIVEN: One stored document
	m := memory.New()
	ctx := context.Background()
	require.NoError(t, m.Put(ctx, "products", "p1", []byte(`{"v":1}`)))

	// WHEN: A transaction overwrites it, deletes it, adds another and fails
	boom := errors.New("boom")
	err := m.WithTx(ctx, func(docs store.Documents) error {
		require.NoError(t, docs.Put(ctx, "products", "p1", []byte(`{"v":2}`)))
		require.NoError(t, docs.Put(ctx, "damages", "d1", []byte(`{}`)))
		require.NoError(t, docs.Delete(ctx, "products", "p1"))
		return boom
	})

	// THEN: The original state is restored
	assert.ErrorIs(t, err, boom)
	body, err := m.Get(ctx, "products", "p1")
	require.NoError(t, err)
	assert.Equal(t, `{"v":1}`, string(body))
	docs, err := m.List(ctx, "damages")
	require.NoError(t, err)
	assert.Empty(t, docs)
}

func TestMemory_Reset(t *testing.T) {
	m := memory.New()
	ctx := context.Background()
	require.NoError(t, m.Put(ctx, "products", "p1", []byte(`{}`)))
	require.NoError(t, m.Reset(ctx))

	_, err := m.Get(ctx, "products", "p1")
	assert.ErrorIs(t, err, store.ErrNotFound)
}
