/*
Package metrics exposes the engine's Prometheus instrumentation: cache
hit/miss counts, page writebacks, WAL append/fsync counts, and
transaction outcomes. Every subsystem that wants a counter or gauge
reaches for one declared here rather than rolling its own, mirroring
how the storage layer's dependency pack centralizes its metrics in one
package.
*/
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	CacheHitsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "mde_cache_hits_total",
			Help: "Total number of page cache lookups served from memory",
		},
	)

	CacheMissesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "mde_cache_misses_total",
			Help: "Total number of page cache lookups that required a disk read",
		},
	)

	CacheEvictionsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "mde_cache_evictions_total",
			Help: "Total number of entries (pages or extents) evicted from the cache",
		},
	)

	PageWritebacksTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "mde_page_writebacks_total",
			Help: "Total number of dirty pages written back to the store",
		},
	)

	PagesAllocatedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "mde_pages_allocated_total",
			Help: "Total number of pages allocated in the store",
		},
	)

	WALAppendsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "mde_wal_appends_total",
			Help: "Total number of records appended to the write-ahead log",
		},
	)

	WALFsyncsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "mde_wal_fsyncs_total",
			Help: "Total number of fsync calls issued against the write-ahead log",
		},
	)

	WALBytesWrittenTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "mde_wal_bytes_written_total",
			Help: "Total number of bytes appended to the write-ahead log",
		},
	)

	TxnBeginTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "mde_txn_begin_total",
			Help: "Total number of transactions started",
		},
	)

	TxnCommitTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "mde_txn_commit_total",
			Help: "Total number of transactions committed",
		},
	)

	TxnRollbackTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "mde_txn_rollback_total",
			Help: "Total number of transactions rolled back",
		},
	)

	TxnActive = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "mde_txn_active",
			Help: "Number of transactions currently active",
		},
	)

	RecoveryReplayedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "mde_recovery_replayed_total",
			Help: "Total number of WAL records replayed by recovery",
		},
	)

	RecoveryUndoneTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "mde_recovery_undone_total",
			Help: "Total number of WAL records undone by recovery",
		},
	)

	TreeOpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "mde_tree_op_duration_seconds",
			Help:    "Duration of B+ tree operations in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"op"},
	)
)

func init() {
	prometheus.MustRegister(
		CacheHitsTotal,
		CacheMissesTotal,
		CacheEvictionsTotal,
		PageWritebacksTotal,
		PagesAllocatedTotal,
		WALAppendsTotal,
		WALFsyncsTotal,
		WALBytesWrittenTotal,
		TxnBeginTotal,
		TxnCommitTotal,
		TxnRollbackTotal,
		TxnActive,
		RecoveryReplayedTotal,
		RecoveryUndoneTotal,
		TreeOpDuration,
	)
}

// Handler returns the Prometheus scrape handler.
func Handler() http.Handler {
	return promhttp.Handler()
}
