package observability

import (
	"sync"
	"time"

	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RedisErrorRate counts Redis errors by operation type.
	RedisErrorRate = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "bulletin_redis_error_rate_total",
		Help: "Total number of Redis errors by operation type",
	}, []string{"operation"})

	// DatabaseQueryLatency records database query latency by operation and table.
	DatabaseQueryLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "bulletin_database_query_latency_seconds",
		Help:    "Database query latency in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation", "table"})

	// PasswordChecks counts board password gate outcomes.
	PasswordChecks = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "bulletin_board_password_checks_total",
		Help: "Board password checks by operation and result",
	}, []string{"operation", "result"})

	// RateLimitRejections counts requests rejected by the Redis-backed limiter.
	RateLimitRejections = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "bulletin_rate_limit_rejections_total",
		Help: "Requests rejected by the per-route rate limiter",
	}, []string{"resource"})
)

// DatabaseMetrics records query latency for one table.
type DatabaseMetrics struct {
	table string
}

// NewDatabaseMetrics returns a new DatabaseMetrics instance for table.
func NewDatabaseMetrics(table string) *DatabaseMetrics {
	return &DatabaseMetrics{table: table}
}

// ObserveQuery records the latency of a database query.
func (m *DatabaseMetrics) ObserveQuery(operation string, start time.Time) time.Duration {
	latency := time.Since(start)
	DatabaseQueryLatency.WithLabelValues(operation, m.table).Observe(latency.Seconds())
	return latency
}

// TrackQuery returns a function that records query latency when called (e.g. defer).
func (m *DatabaseMetrics) TrackQuery(operation string) func() time.Duration {
	start := time.Now()
	return func() time.Duration {
		return m.ObserveQuery(operation, start)
	}
}

var (
	httpMetricsOnce sync.Once
	httpMetrics     *fiberprometheus.FiberPrometheus
)

// HTTPMetrics returns the process-wide Fiber Prometheus middleware. The
// collectors live in the default registry, so they are created only once.
func HTTPMetrics(serviceName string) *fiberprometheus.FiberPrometheus {
	httpMetricsOnce.Do(func() {
		httpMetrics = fiberprometheus.New(serviceName)
	})
	return httpMetrics
}
