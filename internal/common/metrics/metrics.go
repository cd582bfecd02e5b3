// internal/common/metrics/metrics.go
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	WorkerJobsCompleted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "worker_jobs_completed_total",
			Help: "Total number of jobs completed by worker",
		},
		[]string{"task_type"},
	)

	WorkerJobsFailed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "worker_jobs_failed_total",
			Help: "Total number of jobs failed by worker",
		},
		[]string{"task_type", "error_code"},
	)

	WorkerJobDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "worker_job_duration_seconds",
			Help: "Duration of job processing in seconds",
		},
		[]string{"task_type"},
	)

	WorkerJobsActive = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "worker_jobs_active",
			Help: "Number of active jobs per worker",
		},
		[]string{"task_type"},
	)

	SearchPagesFetched = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "discovery_search_pages_total",
			Help: "Nearby-search pages requested, by result",
		},
		[]string{"result"}, // ok|error|empty
	)

	DetailOutcomes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "discovery_detail_outcomes_total",
			Help: "Detail enrichment outcomes",
		},
		[]string{"outcome", "reason"},
	)

	CacheHits = promauto.NewCounter(prometheus.CounterOpts{
		Name: "response_cache_hits_total",
		Help: "Response cache lookups served from the store",
	})

	CacheMisses = promauto.NewCounter(prometheus.CounterOpts{
		Name: "response_cache_misses_total",
		Help: "Response cache lookups that went to the network",
	})

	CacheStoreErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "response_cache_store_errors_total",
			Help: "Cache store read/write failures",
		},
		[]string{"op"},
	)

	SinkWrites = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "export_sink_writes_total",
			Help: "Result sink writes, by sink and result",
		},
		[]string{"sink", "result"},
	)
)
