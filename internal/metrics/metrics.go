// Package metrics declares the Prometheus collectors for the scheduler,
// executor and blocking path, registered against the default registry the
// way store/kvstore/kvstore_http_server.go exposes /metrics.
//
// Grounded on the teacher's declared-but-unused
// github.com/prometheus/client_golang dependency.
package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	// ScheduledTotal counts transactions scheduled, partitioned by
	// whether they took the single-shard fast path or the general path
	// (spec.md §4.3).
	ScheduledTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "dragonfly",
		Subsystem: "txn",
		Name:      "scheduled_total",
		Help:      "Transactions scheduled, by path taken.",
	}, []string{"path"})

	// ScheduleRetries counts the slow path's conflict-driven reschedule
	// loop iterations (spec.md §4.3 step "OOO/backoff retry").
	ScheduleRetries = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "dragonfly",
		Subsystem: "txn",
		Name:      "schedule_retries_total",
		Help:      "Scheduling attempts that hit a lock conflict and retried.",
	})

	// ExecuteDuration observes wall time spent in runInShard per hop.
	ExecuteDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "dragonfly",
		Subsystem: "txn",
		Name:      "execute_seconds",
		Help:      "Time spent running a transaction's hop on one shard.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"shard"})

	// BlockedGauge tracks the number of transactions currently suspended
	// on a watched key, per shard (spec.md §4.6).
	BlockedGauge = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "dragonfly",
		Subsystem: "txn",
		Name:      "blocked_waiters",
		Help:      "Transactions currently suspended waiting on a key.",
	}, []string{"shard"})

	// OutOfMemoryTotal counts OOM statuses seen by the auto-journal hook:
	// only concluding hops of Write commands without NoAutoJournal, on a
	// shard with a journal, are counted; other OOM results are not.
	OutOfMemoryTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "dragonfly",
		Subsystem: "txn",
		Name:      "oom_total",
		Help:      "Journaled write hops that returned OUT_OF_MEMORY.",
	})
)

// MustRegister registers every collector in this package against reg.
// Called once at startup from cmd/dragonflynode.
func MustRegister(reg prometheus.Registerer) {
	reg.MustRegister(ScheduledTotal, ScheduleRetries, ExecuteDuration, BlockedGauge, OutOfMemoryTotal)
}
