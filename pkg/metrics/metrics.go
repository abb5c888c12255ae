package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// GuardDecisions counts guard evaluations by guard kind and outcome (allow|deny|error).
	GuardDecisions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dbpanel_guard_decisions_total",
			Help: "Total number of access guard decisions",
		},
		[]string{"guard", "result"},
	)

	// ReconcileRows counts permission rows written by reconciliation (created|deleted|replaced).
	ReconcileRows = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dbpanel_reconcile_rows_total",
			Help: "Total number of permission rows written by reconciliation",
		},
		[]string{"action"},
	)

	// AccessCacheLookups counts access cache lookups by result (hit|miss|error).
	AccessCacheLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dbpanel_access_cache_lookups_total",
			Help: "Total number of access cache lookups",
		},
		[]string{"result"},
	)

	// MaintenanceRuns counts background maintenance executions by job and result (success|failure).
	MaintenanceRuns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dbpanel_maintenance_runs_total",
			Help: "Total number of maintenance job runs",
		},
		[]string{"job", "result"},
	)

	// APILatency measures HTTP request latencies.
	APILatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "dbpanel_api_latency_seconds",
			Help:    "API endpoint latency",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)
)
