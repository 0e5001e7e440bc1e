package nndescent

import (
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// MetricsCollector defines an interface for collecting operational metrics.
// Implement it to integrate with a monitoring system, or use the provided
// Basic and Prometheus collectors.
type MetricsCollector interface {
	// RecordIteration is called after each descent iteration with the number
	// of heap updates it applied.
	RecordIteration(iter, updates int)

	// RecordBuild is called after each graph build.
	RecordBuild(iterations, updates int, converged bool, duration time.Duration)

	// RecordQuery is called after each graph query.
	RecordQuery(iterations, updates int, converged bool, duration time.Duration)
}

// NoopMetricsCollector is a no-op implementation of MetricsCollector.
type NoopMetricsCollector struct{}

func (NoopMetricsCollector) RecordIteration(int, int)                  {}
func (NoopMetricsCollector) RecordBuild(int, int, bool, time.Duration) {}
func (NoopMetricsCollector) RecordQuery(int, int, bool, time.Duration) {}

// BasicMetricsCollector provides simple in-memory metrics collection.
// Useful for debugging without external dependencies.
type BasicMetricsCollector struct {
	Iterations      atomic.Int64
	Updates         atomic.Int64
	Builds          atomic.Int64
	BuildsConverged atomic.Int64
	BuildTotalNanos atomic.Int64
	Queries         atomic.Int64
	QueryTotalNanos atomic.Int64
}

// RecordIteration implements MetricsCollector.
func (b *BasicMetricsCollector) RecordIteration(_, updates int) {
	b.Iterations.Add(1)
	b.Updates.Add(int64(updates))
}

// RecordBuild implements MetricsCollector.
func (b *BasicMetricsCollector) RecordBuild(_, _ int, converged bool, duration time.Duration) {
	b.Builds.Add(1)
	if converged {
		b.BuildsConverged.Add(1)
	}
	b.BuildTotalNanos.Add(duration.Nanoseconds())
}

// RecordQuery implements MetricsCollector.
func (b *BasicMetricsCollector) RecordQuery(_, _ int, _ bool, duration time.Duration) {
	b.Queries.Add(1)
	b.QueryTotalNanos.Add(duration.Nanoseconds())
}

// PrometheusMetricsCollector exports build and query metrics to a Prometheus
// registry.
type PrometheusMetricsCollector struct {
	iterations    prometheus.Counter
	updates       prometheus.Counter
	builds        *prometheus.CounterVec
	buildDuration prometheus.Histogram
	queries       prometheus.Counter
	queryDuration prometheus.Histogram
}

// NewPrometheusMetricsCollector creates a collector and registers its
// metrics with reg.
func NewPrometheusMetricsCollector(reg prometheus.Registerer) *PrometheusMetricsCollector {
	c := &PrometheusMetricsCollector{
		iterations: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "nndescent_iterations_total",
			Help: "Total descent iterations run.",
		}),
		updates: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "nndescent_heap_updates_total",
			Help: "Total neighbor heap updates applied.",
		}),
		builds: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "nndescent_builds_total",
			Help: "Total graph builds by convergence outcome.",
		}, []string{"converged"}),
		buildDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "nndescent_build_duration_seconds",
			Help:    "Graph build wall time.",
			Buckets: prometheus.ExponentialBuckets(0.01, 4, 10),
		}),
		queries: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "nndescent_queries_total",
			Help: "Total graph queries.",
		}),
		queryDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "nndescent_query_duration_seconds",
			Help:    "Graph query wall time.",
			Buckets: prometheus.ExponentialBuckets(0.01, 4, 10),
		}),
	}
	reg.MustRegister(c.iterations, c.updates, c.builds, c.buildDuration, c.queries, c.queryDuration)
	return c
}

// RecordIteration implements MetricsCollector.
func (c *PrometheusMetricsCollector) RecordIteration(_, updates int) {
	c.iterations.Inc()
	c.updates.Add(float64(updates))
}

// RecordBuild implements MetricsCollector.
func (c *PrometheusMetricsCollector) RecordBuild(_, _ int, converged bool, duration time.Duration) {
	label := "false"
	if converged {
		label = "true"
	}
	c.builds.WithLabelValues(label).Inc()
	c.buildDuration.Observe(duration.Seconds())
}

// RecordQuery implements MetricsCollector.
func (c *PrometheusMetricsCollector) RecordQuery(_, _ int, _ bool, duration time.Duration) {
	c.queries.Inc()
	c.queryDuration.Observe(duration.Seconds())
}
