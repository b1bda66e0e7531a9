// Package observability holds the Prometheus metrics of the ledger service.
// Metrics are registered on the default registry and exposed by /metrics.
package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/warp/stock-ledger/ledger"
)

// ─── Computations ───────────────────────────────────────────────────────────

// Computations counts folds by kind ("stock", "financial").
var Computations = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "stockledger",
	Subsystem: "ledger",
	Name:      "computations_total",
	Help:      "Total balance computations by kind.",
}, []string{"kind"})

var ReportDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
	Namespace: "stockledger",
	Subsystem: "ledger",
	Name:      "report_duration_seconds",
	Help:      "Time spent loading a snapshot and building a report.",
	Buckets:   []float64{.001, .005, .01, .05, .1, .5, 1, 5},
}, []string{"report"})

// SkippedEntries counts entries left out of a fold or a snapshot by reason.
var SkippedEntries = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "stockledger",
	Subsystem: "ledger",
	Name:      "skipped_entries_total",
	Help:      "Total entries skipped by reason.",
}, []string{"reason"})

// ─── Batch health ───────────────────────────────────────────────────────────

var (
	BatchesTotal = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "stockledger",
		Subsystem: "stock",
		Name:      "batches",
		Help:      "Number of batches in the last stock report.",
	})

	BatchesUninitialized = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "stockledger",
		Subsystem: "stock",
		Name:      "batches_uninitialized",
		Help:      "Batches without an opening stock date in the last stock report.",
	})

	BatchesNegative = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "stockledger",
		Subsystem: "stock",
		Name:      "batches_negative",
		Help:      "Batches with a negative computed balance in the last stock report.",
	})

	BatchesDrifted = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "stockledger",
		Subsystem: "stock",
		Name:      "batches_drifted",
		Help:      "Batches whose stored quantity disagrees with the computed balance.",
	})

	OrphanReferences = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "stockledger",
		Subsystem: "stock",
		Name:      "orphan_references",
		Help:      "Batch keys referenced by movements but missing from products.",
	})
)

// ─── Damages ────────────────────────────────────────────────────────────────

// DamageTransitions counts damage lifecycle transitions ("create",
// "resolve_refund", "resolve_replace", "resolve_loss", "delete_pending",
// "delete_resolved").
var DamageTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "stockledger",
	Subsystem: "damage",
	Name:      "transitions_total",
	Help:      "Total damage lifecycle transitions.",
}, []string{"transition"})

// ─── Helpers ────────────────────────────────────────────────────────────────

// StockHealth is the part of a stock report the gauges track.
type StockHealth struct {
	Batches       int
	Uninitialized int
	Negative      int
	Drifted       int
	Orphans       int
}

// ObserveStockHealth sets the batch gauges.
func ObserveStockHealth(h StockHealth) {
	BatchesTotal.Set(float64(h.Batches))
	BatchesUninitialized.Set(float64(h.Uninitialized))
	BatchesNegative.Set(float64(h.Negative))
	BatchesDrifted.Set(float64(h.Drifted))
	OrphanReferences.Set(float64(h.Orphans))
}

// ObserveSkips adds a fold's skip counts to SkippedEntries.
func ObserveSkips(s ledger.SkipCounts) {
	if s.MissingReference > 0 {
		SkippedEntries.WithLabelValues("missing_reference").Add(float64(s.MissingReference))
	}
	if s.Undated > 0 {
		SkippedEntries.WithLabelValues("undated").Add(float64(s.Undated))
	}
	if s.Malformed > 0 {
		SkippedEntries.WithLabelValues("malformed").Add(float64(s.Malformed))
	}
}

// Timer observes the elapsed time of a report when stopped.
func Timer(report string) func() {
	start := time.Now()
	return func() {
		ReportDuration.WithLabelValues(report).Observe(time.Since(start).Seconds())
	}
}
