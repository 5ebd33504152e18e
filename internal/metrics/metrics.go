// Package metrics exposes Prometheus instrumentation for the sync engine.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Outcome labels for sync_runs_total
const (
	OutcomeSuccess = "success"
	OutcomePartial = "partial"
	OutcomeFailure = "failure"
	OutcomeSkipped = "skipped"
)

// SyncMetrics holds the collectors updated by the sync engine
type SyncMetrics struct {
	RunsTotal          *prometheus.CounterVec
	TransactionsSynced prometheus.Counter
	AccountErrors      *prometheus.CounterVec
	RunDuration        prometheus.Histogram
}

// NewSyncMetrics creates and registers the sync collectors
func NewSyncMetrics(reg prometheus.Registerer) *SyncMetrics {
	m := &SyncMetrics{
		RunsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "sync_runs_total",
			Help: "Sync runs by outcome. A run that could not take the lock counts as skipped.",
		}, []string{"outcome"}),
		TransactionsSynced: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "sync_transactions_synced_total",
			Help: "Ledger transactions created or updated by sync.",
		}),
		AccountErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "sync_account_errors_total",
			Help: "Per-account sync failures.",
		}, []string{"account"}),
		RunDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "sync_run_duration_seconds",
			Help:    "Wall-clock duration of full sync runs.",
			Buckets: prometheus.ExponentialBuckets(0.5, 2, 12),
		}),
	}

	reg.MustRegister(m.RunsTotal, m.TransactionsSynced, m.AccountErrors, m.RunDuration)
	return m
}
