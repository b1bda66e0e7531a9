package ledger_test

import (
	"math/rand"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/stock-ledger/ledger"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

var widget = ledger.BatchKey{ProductID: "prod-1", BatchCode: "B1"}

func day(year int, month time.Month, d int) time.Time {
	return time.Date(year, month, d, 0, 0, 0, 0, time.UTC)
}

func dayPtr(year int, month time.Month, d int) *time.Time {
	t := day(year, month, d)
	return &t
}

func qty(n int64) decimal.Decimal { return decimal.NewFromInt(n) }

func line(key ledger.BatchKey, n int64) ledger.Line {
	return ledger.Line{ProductID: key.ProductID, BatchCode: key.BatchCode, Quantity: qty(n)}
}

func assertDecimal(t *testing.T, want string, got decimal.Decimal, msgAndArgs ...any) {
	t.Helper()
	assert.True(t, decimal.RequireFromString(want).Equal(got),
		append([]any{"want %s, got %s", want, got.String()}, msgAndArgs...)...)
}

// januaryScenario is opening 50 on Jan 1, purchase 20 on Jan 5, sale 15 on Jan 10.
func januaryScenario() (ledger.Baseline, ledger.Streams) {
	baseline := ledger.Baseline{Quantity: qty(50), At: dayPtr(2024, time.January, 1)}
	streams := ledger.Streams{
		Purchases: []ledger.Purchase{
			{ID: "pur-1", At: day(2024, time.January, 5), Lines: []ledger.Line{line(widget, 20)}},
		},
		Sales: []ledger.Sale{
			{ID: "sale-1", At: day(2024, time.January, 10), Lines: []ledger.Line{line(widget, 15)}},
		},
	}
	return baseline, streams
}

// =============================================================================
// SCENARIOS
// =============================================================================

func TestStockBalance_OpeningPurchaseSale(t *testing.T) {
	baseline, streams := januaryScenario()

	result := ledger.ComputeStockBalance(widget, baseline, streams)

	assertDecimal(t, "55", result.Balance)
	assertDecimal(t, "20", result.Breakdown.Purchased)
	assertDecimal(t, "15", result.Breakdown.Sold)
	assert.False(t, result.Uninitialized)
	assert.False(t, result.Negative)
	assert.NoError(t, result.Err())
}

func TestStockBalance_PendingDamageDeducts(t *testing.T) {
	baseline, streams := januaryScenario()
	streams.Damages = []ledger.Damage{{
		ID: "dmg-1", ProductID: widget.ProductID, BatchCode: widget.BatchCode,
		Quantity: qty(5), At: day(2024, time.January, 12),
	}}

	result := ledger.ComputeStockBalance(widget, baseline, streams)

	assertDecimal(t, "50", result.Balance)
	assertDecimal(t, "5", result.Breakdown.Damaged)
}

func TestStockBalance_ReplacedDamageRestoresBalance(t *testing.T) {
	baseline, streams := januaryScenario()
	streams.Damages = []ledger.Damage{{
		ID: "dmg-1", ProductID: widget.ProductID, BatchCode: widget.BatchCode,
		Quantity: qty(5), At: day(2024, time.January, 12), Resolution: ledger.ResolutionReplace,
	}}

	result := ledger.ComputeStockBalance(widget, baseline, streams)

	assertDecimal(t, "55", result.Balance)
	assertDecimal(t, "0", result.Breakdown.Damaged)
	assertDecimal(t, "5", result.Breakdown.Replaced)
}

func TestStockBalance_DamageResolutions(t *testing.T) {
	tests := []struct {
		resolution ledger.Resolution
		wantDamage string
	}{
		{ledger.ResolutionPending, "10"},
		{ledger.ResolutionRefund, "10"},
		{ledger.ResolutionLoss, "10"},
		{ledger.ResolutionReplace, "0"},
	}

	for _, tt := range tests {
		t.Run("resolution="+string(tt.resolution), func(t *testing.T) {
			streams := ledger.Streams{Damages: []ledger.Damage{{
				ID: "dmg", ProductID: widget.ProductID, BatchCode: widget.BatchCode,
				Quantity: qty(10), At: day(2024, time.February, 1), Resolution: tt.resolution,
			}}}
			baseline := ledger.Baseline{Quantity: qty(100), At: dayPtr(2024, time.January, 1)}

			result := ledger.ComputeStockBalance(widget, baseline, streams)
			assertDecimal(t, tt.wantDamage, result.Breakdown.Damaged)
		})
	}
}

func TestStockBalance_ReturnsMoveStock(t *testing.T) {
	baseline := ledger.Baseline{Quantity: qty(10), At: dayPtr(2024, time.January, 1)}
	streams := ledger.Streams{
		SaleReturns: []ledger.Return{
			{ID: "sr-1", At: day(2024, time.January, 3), Lines: []ledger.Line{line(widget, 4)}},
		},
		PurchaseReturns: []ledger.Return{
			{ID: "pr-1", At: day(2024, time.January, 4), Lines: []ledger.Line{line(widget, 6)}},
		},
	}

	result := ledger.ComputeStockBalance(widget, baseline, streams)

	assertDecimal(t, "8", result.Balance)
	assertDecimal(t, "4", result.Breakdown.SaleReturned)
	assertDecimal(t, "6", result.Breakdown.PurchaseReturned)
}

// =============================================================================
// BASELINE BOUNDARY
// =============================================================================

func TestStockBalance_BaselineBoundaryIsStrict(t *testing.T) {
	opening := day(2024, time.January, 1)
	baseline := ledger.Baseline{Quantity: qty(50), At: &opening}
	streams := ledger.Streams{
		Purchases: []ledger.Purchase{
			{ID: "at-baseline", At: opening, Lines: []ledger.Line{line(widget, 7)}},
			{ID: "before", At: opening.Add(-time.Hour), Lines: []ledger.Line{line(widget, 3)}},
			{ID: "after", At: opening.Add(time.Second), Lines: []ledger.Line{line(widget, 1)}},
		},
	}

	result := ledger.ComputeStockBalance(widget, baseline, streams)

	assertDecimal(t, "51", result.Balance)
	require.Len(t, result.Entries, 1)
	assert.Equal(t, "after", result.Entries[0].RecordID)
}

func TestStockBalance_UndatedMovementsExcludedUnderDatedBaseline(t *testing.T) {
	baseline := ledger.Baseline{Quantity: qty(5), At: dayPtr(2024, time.January, 1)}
	streams := ledger.Streams{
		Purchases: []ledger.Purchase{{ID: "undated", Lines: []ledger.Line{line(widget, 9)}}},
	}

	result := ledger.ComputeStockBalance(widget, baseline, streams)

	assertDecimal(t, "5", result.Balance)
	assert.Equal(t, 1, result.Skipped.Undated)
}

func TestStockBalance_UninitializedBaselineIsFlagged(t *testing.T) {
	_, streams := januaryScenario()

	result := ledger.ComputeStockBalance(widget, ledger.Baseline{}, streams)

	assert.True(t, result.Uninitialized)
	assertDecimal(t, "5", result.Balance)
	assert.ErrorIs(t, result.Err(), ledger.ErrUninitializedBaseline)
}

func TestStockBalance_NegativeIsSurfacedNotClamped(t *testing.T) {
	baseline := ledger.Baseline{Quantity: qty(2), At: dayPtr(2024, time.January, 1)}
	streams := ledger.Streams{
		Sales: []ledger.Sale{{ID: "s", At: day(2024, time.January, 2), Lines: []ledger.Line{line(widget, 5)}}},
	}

	result := ledger.ComputeStockBalance(widget, baseline, streams)

	assertDecimal(t, "-3", result.Balance)
	assert.True(t, result.Negative)
}

// =============================================================================
// ROBUSTNESS
// =============================================================================

func TestStockBalance_MissingReferenceIsSkipped(t *testing.T) {
	baseline, streams := januaryScenario()
	streams.Purchases = append(streams.Purchases,
		ledger.Purchase{ID: "broken", At: day(2024, time.January, 6), Lines: []ledger.Line{
			{ProductID: "", BatchCode: "B1", Quantity: qty(100)},
			{ProductID: "prod-1", BatchCode: "", Quantity: qty(100)},
		}},
	)
	streams.Damages = append(streams.Damages, ledger.Damage{ID: "dmg-broken", Quantity: qty(3)})

	result := ledger.ComputeStockBalance(widget, baseline, streams)

	assertDecimal(t, "55", result.Balance)
	assert.Equal(t, 3, result.Skipped.MissingReference)
}

func TestStockBalance_ForeignProductDoesNotLeak(t *testing.T) {
	baseline, streams := januaryScenario()
	ghost := ledger.BatchKey{ProductID: "ghost", BatchCode: "B1"}
	streams.Purchases = append(streams.Purchases,
		ledger.Purchase{ID: "ghost-buy", At: day(2024, time.January, 6), Lines: []ledger.Line{line(ghost, 500)}},
	)

	result := ledger.ComputeStockBalance(widget, baseline, streams)

	assertDecimal(t, "55", result.Balance)
	assert.Zero(t, result.Skipped.Total())
}

func TestStockBalance_SameBatchCodeOtherProductIgnored(t *testing.T) {
	baseline, streams := januaryScenario()
	other := ledger.BatchKey{ProductID: "prod-2", BatchCode: widget.BatchCode}
	streams.Sales = append(streams.Sales,
		ledger.Sale{ID: "other", At: day(2024, time.January, 7), Lines: []ledger.Line{line(other, 30)}},
	)

	result := ledger.ComputeStockBalance(widget, baseline, streams)

	assertDecimal(t, "55", result.Balance)
}

// =============================================================================
// PURITY
// =============================================================================

func TestStockBalance_Idempotent(t *testing.T) {
	baseline, streams := januaryScenario()

	first := ledger.ComputeStockBalance(widget, baseline, streams)
	second := ledger.ComputeStockBalance(widget, baseline, streams)

	assert.Equal(t, first, second)
}

func TestStockBalance_OrderIndependent(t *testing.T) {
	baseline := ledger.Baseline{Quantity: qty(100), At: dayPtr(2024, time.January, 1)}
	var streams ledger.Streams
	for i := 1; i <= 20; i++ {
		at := day(2024, time.January, 1).AddDate(0, 0, i)
		streams.Purchases = append(streams.Purchases, ledger.Purchase{
			ID: "p" + string(rune('a'+i)), At: at, Lines: []ledger.Line{line(widget, int64(i))},
		})
		streams.Sales = append(streams.Sales, ledger.Sale{
			ID: "s" + string(rune('a'+i)), At: at, Lines: []ledger.Line{line(widget, int64(i%4))},
		})
		streams.Damages = append(streams.Damages, ledger.Damage{
			ID: "d" + string(rune('a'+i)), ProductID: widget.ProductID, BatchCode: widget.BatchCode,
			Quantity: qty(1), At: at,
		})
	}
	want := ledger.ComputeStockBalance(widget, baseline, streams)

	rng := rand.New(rand.NewSource(42))
	for round := 0; round < 10; round++ {
		shuffled := ledger.Streams{
			Purchases: append([]ledger.Purchase(nil), streams.Purchases...),
			Sales:     append([]ledger.Sale(nil), streams.Sales...),
			Damages:   append([]ledger.Damage(nil), streams.Damages...),
		}
		rng.Shuffle(len(shuffled.Purchases), func(i, j int) {
			shuffled.Purchases[i], shuffled.Purchases[j] = shuffled.Purchases[j], shuffled.Purchases[i]
		})
		rng.Shuffle(len(shuffled.Sales), func(i, j int) {
			shuffled.Sales[i], shuffled.Sales[j] = shuffled.Sales[j], shuffled.Sales[i]
		})
		rng.Shuffle(len(shuffled.Damages), func(i, j int) {
			shuffled.Damages[i], shuffled.Damages[j] = shuffled.Damages[j], shuffled.Damages[i]
		})

		got := ledger.ComputeStockBalance(widget, baseline, shuffled)
		assert.Equal(t, want, got, "round %d", round)
	}
}

func TestStockBalance_EntriesCarryRunningBalance(t *testing.T) {
	baseline, streams := januaryScenario()

	result := ledger.ComputeStockBalance(widget, baseline, streams)

	require.Len(t, result.Entries, 2)
	assert.Equal(t, ledger.KindPurchase, result.Entries[0].Kind)
	assertDecimal(t, "70", result.Entries[0].Balance)
	assert.Equal(t, ledger.KindSale, result.Entries[1].Kind)
	assertDecimal(t, "-15", result.Entries[1].Delta)
	assertDecimal(t, "55", result.Entries[1].Balance)
}

func TestStockBalance_ValueAtPurchasePrice(t *testing.T) {
	batch := ledger.Batch{
		Code:             widget.BatchCode,
		OpeningStock:     qty(50),
		OpeningStockDate: dayPtr(2024, time.January, 1),
		PurchasePrice:    decimal.RequireFromString("2.50"),
	}
	_, streams := januaryScenario()

	result := ledger.ComputeBatchStock(widget.ProductID, batch, streams)

	assertDecimal(t, "137.5", result.Value(batch.PurchasePrice))
}
