package ledger_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/warp/stock-ledger/ledger"
)

func TestSnapshot_Lookups(t *testing.T) {
	snap := ledger.Snapshot{
		Products: []ledger.Product{
			{ID: "p2", Batches: []ledger.Batch{{Code: "Z"}}},
			{ID: "p1", Batches: []ledger.Batch{{Code: "B"}, {Code: "A"}}},
		},
		People: []ledger.Person{{ID: "alice", Name: "Alice"}},
	}

	_, ok := snap.Batch(ledger.BatchKey{ProductID: "p1", BatchCode: "A"})
	assert.True(t, ok)
	_, ok = snap.Batch(ledger.BatchKey{ProductID: "p1", BatchCode: "Z"})
	assert.False(t, ok)
	_, ok = snap.Person("alice")
	assert.True(t, ok)

	assert.Equal(t, []ledger.BatchKey{
		{ProductID: "p1", BatchCode: "A"},
		{ProductID: "p1", BatchCode: "B"},
		{ProductID: "p2", BatchCode: "Z"},
	}, snap.BatchKeys())
}

func TestStreams_Referenced(t *testing.T) {
	streams := ledger.Streams{
		Sales: []ledger.Sale{{PersonID: "bob", Lines: []ledger.Line{
			{ProductID: "p1", BatchCode: "A"},
			{ProductID: "", BatchCode: "A"},
		}}},
		Damages:       []ledger.Damage{{ProductID: "p9", BatchCode: "X"}},
		ManualEntries: []ledger.ManualEntry{{PersonID: "amy"}, {PersonID: ""}},
	}

	assert.Equal(t, []ledger.BatchKey{
		{ProductID: "p1", BatchCode: "A"},
		{ProductID: "p9", BatchCode: "X"},
	}, streams.ReferencedKeys())
	assert.Equal(t, []ledger.PersonID{"amy", "bob"}, streams.ReferencedPeople())
}
