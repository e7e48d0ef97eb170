package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	ResultOK     = "ok"
	ResultFailed = "failed"
)

// AggregationMetrics records how collection aggregation runs behave.
type AggregationMetrics struct {
	batches  *prometheus.CounterVec
	missing  prometheus.Counter
	skipped  prometheus.Counter
	orphans  prometheus.Counter
	cache    *prometheus.CounterVec
	duration prometheus.Histogram
}

// NewAggregationMetrics registers the aggregation metrics on the provided registerer.
func NewAggregationMetrics(reg prometheus.Registerer) *AggregationMetrics {
	if reg == nil {
		return &AggregationMetrics{}
	}
	batches := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "metadata_batches_total",
		Help: "Metadata batch lookups by result.",
	}, []string{"result"})
	missing := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "metadata_missing_total",
		Help: "Owned games dropped because no metadata was found.",
	})
	skipped := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "aggregation_users_skipped_total",
		Help: "Users skipped because their collection was empty or unavailable.",
	})
	orphans := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "aggregation_orphan_expansions_total",
		Help: "Base games still awaited by queued expansions when a run finished.",
	})
	cache := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "metadata_cache_lookups_total",
		Help: "Metadata cache lookups by outcome.",
	}, []string{"outcome"})
	duration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "aggregation_run_duration_seconds",
		Help:    "Duration of aggregation runs in seconds.",
		Buckets: prometheus.DefBuckets,
	})
	reg.MustRegister(batches, missing, skipped, orphans, cache, duration)
	return &AggregationMetrics{
		batches:  batches,
		missing:  missing,
		skipped:  skipped,
		orphans:  orphans,
		cache:    cache,
		duration: duration,
	}
}

// IncBatch counts one metadata batch lookup with the given result.
func (m *AggregationMetrics) IncBatch(result string) {
	if m == nil || m.batches == nil {
		return
	}
	m.batches.WithLabelValues(normalizeLabel(result)).Inc()
}

// IncMissing counts an owned game that had no metadata.
func (m *AggregationMetrics) IncMissing() {
	if m == nil || m.missing == nil {
		return
	}
	m.missing.Inc()
}

// IncSkipped counts a skipped user.
func (m *AggregationMetrics) IncSkipped() {
	if m == nil || m.skipped == nil {
		return
	}
	m.skipped.Inc()
}

// AddOrphans counts base games that never arrived for queued expansions.
func (m *AggregationMetrics) AddOrphans(n int) {
	if m == nil || m.orphans == nil || n <= 0 {
		return
	}
	m.orphans.Add(float64(n))
}

// IncCache counts a cache lookup outcome (hit, miss, error).
func (m *AggregationMetrics) IncCache(outcome string) {
	if m == nil || m.cache == nil {
		return
	}
	m.cache.WithLabelValues(normalizeLabel(outcome)).Inc()
}

// ObserveRun records the duration of one aggregation run.
func (m *AggregationMetrics) ObserveRun(duration time.Duration) {
	if m == nil || m.duration == nil {
		return
	}
	m.duration.Observe(duration.Seconds())
}

func normalizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}
