/*
auditor.go - Periodic stock audit

PURPOSE:
  Recomputes the stock report on a ticker, publishes the batch health
  gauges and logs every batch that needs attention: negative balances,
  missing opening stock dates, stored quantities that disagree with the
  replay, and movements pointing at batches that no longer exist.

DESIGN:
  - Runs a background goroutine with a configurable check interval
  - Reads a fresh snapshot on every run; nothing is cached
  - Never writes: drift is reported, not corrected

CONFIGURATION:
  - Interval: How often to audit (AUDIT_INTERVAL, default 5m)
  - Enabled:  Whether the auditor runs (AUDIT_ENABLED, default false)

USAGE:
  auditor := NewStockAuditor(handler.Repo, logger)
  auditor.Start()
  // ... later
  auditor.Stop()

SEE ALSO:
  - handlers.go: GetStock endpoint (on-demand report)
  - inventory/report.go: BuildStockReport
*/
package api

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/warp/stock-ledger/inventory"
	"github.com/warp/stock-ledger/ledger"
	"github.com/warp/stock-ledger/observability"
)

// SnapshotLoader reads everything the folds need.
type SnapshotLoader interface {
	LoadSnapshot(ctx context.Context) (ledger.Snapshot, error)
}

// StockAuditor periodically audits computed stock.
type StockAuditor struct {
	Loader   SnapshotLoader
	Log      logrus.FieldLogger
	Interval time.Duration
	Enabled  bool
	Now      func() time.Time

	ticker *time.Ticker
	stop   chan struct{}
	wg     sync.WaitGroup
	mu     sync.Mutex
}

// NewStockAuditor creates a disabled auditor with a five minute interval.
func NewStockAuditor(loader SnapshotLoader, log logrus.FieldLogger) *StockAuditor {
	return &StockAuditor{
		Loader:   loader,
		Log:      log,
		Interval: 5 * time.Minute,
		Now:      func() time.Time { return time.Now().UTC() },
	}
}

// Start begins the auditor.
func (a *StockAuditor) Start() {
	a.mu.Lock()
	defer a.mu.Unlock()

	log := a.Log.WithField("module", "auditor")
	if !a.Enabled {
		log.Info("disabled, not starting")
		return
	}
	if a.ticker != nil {
		return
	}

	a.ticker = time.NewTicker(a.Interval)
	a.stop = make(chan struct{})
	a.wg.Add(1)
	go a.run()

	log.WithField("interval", a.Interval.String()).Info("started")
}

// Stop stops the auditor and waits for a running audit to finish.
func (a *StockAuditor) Stop() {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.ticker == nil {
		return
	}
	a.ticker.Stop()
	close(a.stop)
	a.wg.Wait()
	a.ticker = nil
	a.Log.WithField("module", "auditor").Info("stopped")
}

func (a *StockAuditor) run() {
	defer a.wg.Done()

	// Run immediately on start
	a.RunOnce(context.Background())

	for {
		select {
		case <-a.ticker.C:
			a.RunOnce(context.Background())
		case <-a.stop:
			return
		}
	}
}

// RunOnce audits the current data and returns the report it built.
func (a *StockAuditor) RunOnce(ctx context.Context) (inventory.StockReport, error) {
	defer observability.Timer("audit")()
	log := a.Log.WithField("module", "auditor")

	snap, err := a.Loader.LoadSnapshot(ctx)
	if err != nil {
		log.WithError(err).Error("failed to load snapshot")
		return inventory.StockReport{}, err
	}

	report := inventory.BuildStockReport(snap, a.Now())
	observeStockReport(report)

	for _, b := range report.Batches {
		fields := logrus.Fields{
			"product_id": b.Result.Key.ProductID,
			"batch_code": b.Result.Key.BatchCode,
			"computed":   b.Result.Balance.String(),
			"stored":     b.Stored.String(),
		}
		if b.Result.Negative {
			log.WithFields(fields).Warn("negative stock")
		}
		if err := b.Result.Err(); err != nil {
			log.WithFields(fields).WithError(err).Warn("batch has no opening stock date")
		}
		if b.Drifted() {
			log.WithFields(fields).WithField("drift", b.Drift.String()).Warn("stored quantity disagrees with replay")
		}
	}
	for i, err := range report.OrphanErrors() {
		key := report.Orphans[i]
		log.WithFields(logrus.Fields{
			"product_id": key.ProductID,
			"batch_code": key.BatchCode,
		}).WithError(err).Warn("movements reference a missing batch")
	}

	log.WithFields(logrus.Fields{
		"batches":       len(report.Batches),
		"negative":      len(report.Negative),
		"uninitialized": len(report.Uninitialized),
		"drifted":       len(report.Drifted),
		"orphans":       len(report.Orphans),
	}).Info("audit complete")
	return report, nil
}
