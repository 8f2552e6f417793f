// Package metrics centralizes the Prometheus instruments shared by jlog,
// indexer and logquery, following the teacher's habit of collecting
// promauto vars in one package rather than scattering registration calls.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var RotationsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "journal_rotations_total",
		Help: "Journal file rotations by trigger",
	},
	[]string{"reason"},
)

var RetentionDeletionsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "journal_retention_deletions_total",
		Help: "Archived journal files removed by retention policy",
	},
	[]string{"reason"},
)

var RetentionErrorsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "journal_retention_errors_total",
		Help: "Errors encountered while removing archived journal files",
	},
	[]string{"reason"},
)

var AppendErrorsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "journal_append_errors_total",
		Help: "Entry append failures",
	},
	[]string{"stage"},
)

var ActiveFileSize = promauto.NewGauge(
	prometheus.GaugeOpts{
		Name: "journal_active_file_size_bytes",
		Help: "Logical size of the currently active journal file",
	},
)

var IndexBuildLatencyHistogram = promauto.NewHistogramVec(
	prometheus.HistogramOpts{
		Name:    "journal_index_build_latency_seconds",
		Help:    "Time to build a file index",
		Buckets: prometheus.ExponentialBuckets(0.0001, 4, 10),
	},
	[]string{"compact"},
)

var QueryLatencyHistogram = promauto.NewHistogramVec(
	prometheus.HistogramOpts{
		Name:    "journal_query_latency_seconds",
		Help:    "LogQuery execution latency",
		Buckets: prometheus.ExponentialBuckets(0.0001, 4, 10),
	},
	[]string{"direction"},
)

var QueryFilesPrunedTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "journal_query_files_pruned_total",
		Help: "Files skipped by a LogQuery merge because their time range cannot contribute",
	},
	[]string{"reason"},
)

var QueryResultsReturnedTotal = promauto.NewCounter(
	prometheus.CounterOpts{
		Name: "journal_query_results_returned_total",
		Help: "Entries returned across all LogQuery executions",
	},
)
