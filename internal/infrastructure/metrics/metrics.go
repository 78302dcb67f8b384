package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics
type Metrics struct {
	// Sync metrics
	SyncsCompleted        prometheus.Counter
	SyncsFailed           *prometheus.CounterVec
	SyncsCapped           prometheus.Counter
	SyncPages             prometheus.Histogram
	TransactionsIngested  prometheus.Counter
	TransactionsDuplicate prometheus.Counter
	TransactionsPruned    prometheus.Counter
	UpstreamRetries       prometheus.Counter

	// Snapshot metrics
	SnapshotsCreated  prometheus.Counter
	SnapshotConflicts prometheus.Counter
	ArtifactBytes     prometheus.Counter

	// API metrics
	HTTPRequests *prometheus.CounterVec
	HTTPDuration *prometheus.HistogramVec

	// Rate limiting metrics
	RateLimitHits *prometheus.CounterVec
}

// New creates and registers all Prometheus metrics
func New() *Metrics {
	return &Metrics{
		SyncsCompleted: promauto.NewCounter(prometheus.CounterOpts{
			Name: "banksync_syncs_completed_total",
			Help: "Total number of completed sync invocations",
		}),
		SyncsFailed: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "banksync_syncs_failed_total",
				Help: "Total number of failed sync invocations by reason",
			},
			[]string{"reason"},
		),
		SyncsCapped: promauto.NewCounter(prometheus.CounterOpts{
			Name: "banksync_syncs_capped_total",
			Help: "Total number of syncs stopped early by a safety cap",
		}),
		SyncPages: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "banksync_sync_pages",
			Help:    "Pages pulled per sync invocation",
			Buckets: []float64{1, 2, 5, 10, 20, 50},
		}),
		TransactionsIngested: promauto.NewCounter(prometheus.CounterOpts{
			Name: "banksync_transactions_ingested_total",
			Help: "Total number of new bank transactions ingested",
		}),
		TransactionsDuplicate: promauto.NewCounter(prometheus.CounterOpts{
			Name: "banksync_transactions_duplicate_total",
			Help: "Total number of upserts that updated an existing row",
		}),
		TransactionsPruned: promauto.NewCounter(prometheus.CounterOpts{
			Name: "banksync_transactions_pruned_total",
			Help: "Total number of rows removed by retention pruning",
		}),
		UpstreamRetries: promauto.NewCounter(prometheus.CounterOpts{
			Name: "banksync_upstream_retries_total",
			Help: "Total number of retried aggregator calls",
		}),

		SnapshotsCreated: promauto.NewCounter(prometheus.CounterOpts{
			Name: "banksync_snapshots_created_total",
			Help: "Total number of reconcile snapshots created",
		}),
		SnapshotConflicts: promauto.NewCounter(prometheus.CounterOpts{
			Name: "banksync_snapshot_conflicts_total",
			Help: "Total number of snapshot creations rejected as already existing",
		}),
		ArtifactBytes: promauto.NewCounter(prometheus.CounterOpts{
			Name: "banksync_snapshot_artifact_bytes_total",
			Help: "Total bytes of snapshot artifacts written to the object store",
		}),

		HTTPRequests: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "banksync_http_requests_total",
				Help: "Total HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		HTTPDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "banksync_http_duration_seconds",
				Help:    "HTTP request duration",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),

		RateLimitHits: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "banksync_rate_limit_hits_total",
				Help: "Total rate limit hits",
			},
			[]string{"ip"},
		),
	}
}
