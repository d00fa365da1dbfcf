package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// MetricsRegistry holds all Prometheus metrics for the catalog store.
// A nil *MetricsRegistry is valid and records nothing.
type MetricsRegistry struct {
	// Migration Metrics
	MigrationsTotal *prometheus.CounterVec

	// Upsert Metrics
	UpsertRowsTotal     *prometheus.CounterVec
	UpsertBatchesTotal  *prometheus.CounterVec
	UpsertBatchDuration prometheus.Histogram

	// Cache Metrics
	CacheHitsTotal   *prometheus.CounterVec
	CacheMissesTotal *prometheus.CounterVec

	// Job Metrics
	JobRunsTotal *prometheus.CounterVec
	JobDuration  *prometheus.HistogramVec
}

// NewMetricsRegistry initializes all metrics and registers them with reg.
// Pass prometheus.DefaultRegisterer in production and prometheus.NewRegistry() in tests.
func NewMetricsRegistry(reg prometheus.Registerer) *MetricsRegistry {
	factory := promauto.With(reg)

	return &MetricsRegistry{
		MigrationsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "catalog_migrations_total",
				Help: "Migrations processed by outcome (applied, skipped, failed)",
			},
			[]string{"status"},
		),

		UpsertRowsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "catalog_upsert_rows_total",
				Help: "Rows written by the upsert layer per entity kind",
			},
			[]string{"kind"},
		),
		UpsertBatchesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "catalog_upsert_batches_total",
				Help: "Upsert batches by outcome",
			},
			[]string{"status"},
		),
		UpsertBatchDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "catalog_upsert_batch_duration_seconds",
				Help:    "Upsert batch transaction time in seconds",
				Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
			},
		),

		CacheHitsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "catalog_cache_hits_total",
				Help: "Total cache hits by cache key pattern",
			},
			[]string{"cache_key_pattern"},
		),
		CacheMissesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "catalog_cache_misses_total",
				Help: "Total cache misses by cache key pattern",
			},
			[]string{"cache_key_pattern"},
		),

		JobRunsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "catalog_job_runs_total",
				Help: "Tracked job runs by job name and outcome",
			},
			[]string{"job_name", "status"},
		),
		JobDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "catalog_job_duration_seconds",
				Help:    "Tracked job execution time in seconds",
				Buckets: []float64{0.5, 1, 5, 10, 30, 60, 120, 300, 600},
			},
			[]string{"job_name"},
		),
	}
}

func (m *MetricsRegistry) ObserveMigration(status string) {
	if m == nil {
		return
	}
	m.MigrationsTotal.WithLabelValues(status).Inc()
}

func (m *MetricsRegistry) ObserveUpsert(status string, seconds float64, rows map[string]int) {
	if m == nil {
		return
	}
	m.UpsertBatchesTotal.WithLabelValues(status).Inc()
	m.UpsertBatchDuration.Observe(seconds)
	for kind, n := range rows {
		m.UpsertRowsTotal.WithLabelValues(kind).Add(float64(n))
	}
}

func (m *MetricsRegistry) ObserveCache(pattern string, hit bool) {
	if m == nil {
		return
	}
	if hit {
		m.CacheHitsTotal.WithLabelValues(pattern).Inc()
		return
	}
	m.CacheMissesTotal.WithLabelValues(pattern).Inc()
}

func (m *MetricsRegistry) ObserveJob(jobName, status string, seconds float64) {
	if m == nil {
		return
	}
	m.JobRunsTotal.WithLabelValues(jobName, status).Inc()
	m.JobDuration.WithLabelValues(jobName).Observe(seconds)
}
