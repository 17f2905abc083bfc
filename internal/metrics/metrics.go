// Package metrics owns the Prometheus instruments the gatekeeper feeds.
// Label values are always drawn from small static sets (tool names, status
// codes, rule names) — never from SQL text or error messages.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry wraps a private Prometheus registry with the gatekeeper's
// counters, histograms, and gauges.
type Registry struct {
	reg *prometheus.Registry

	queriesExecuted   *prometheus.CounterVec
	queriesBlocked    *prometheus.CounterVec
	errorsTotal       *prometheus.CounterVec
	queryDuration     *prometheus.HistogramVec
	rowsReturned      *prometheus.HistogramVec
	activeQueries     prometheus.Gauge
	activeConnections prometheus.Gauge
	serverReady       prometheus.Gauge
}

// NewRegistry creates a Registry with all instruments registered.
func NewRegistry() *Registry {
	r := &Registry{
		reg: prometheus.NewRegistry(),
		queriesExecuted: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "mssql_queries_executed_total",
				Help: "Total number of queries executed, by tool and outcome",
			},
			[]string{"tool", "status"},
		),
		queriesBlocked: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "mssql_queries_blocked_total",
				Help: "Total number of queries blocked by policy, by rule",
			},
			[]string{"reason"},
		),
		errorsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "mssql_errors_total",
				Help: "Total number of failed operations, by error category",
			},
			[]string{"error_type"},
		),
		queryDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "mssql_query_duration_seconds",
				Help:    "Query execution duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"tool"},
		),
		rowsReturned: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "mssql_query_rows_returned",
				Help:    "Number of rows returned per query",
				Buckets: []float64{1, 10, 100, 1000, 10000, 50000},
			},
			[]string{"tool"},
		),
		activeQueries: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "mssql_active_queries",
			Help: "Number of currently executing queries",
		}),
		activeConnections: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "mssql_active_connections",
			Help: "Number of borrowed database connections",
		}),
		serverReady: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "mssql_server_ready",
			Help: "Server readiness (1 = ready, 0 = not ready)",
		}),
	}
	r.reg.MustRegister(
		r.queriesExecuted,
		r.queriesBlocked,
		r.errorsTotal,
		r.queryDuration,
		r.rowsReturned,
		r.activeQueries,
		r.activeConnections,
		r.serverReady,
	)
	return r
}

// QueryExecuted counts one finished query for tool with the given status.
func (r *Registry) QueryExecuted(tool, status string) {
	r.queriesExecuted.WithLabelValues(tool, status).Inc()
}

// QueryBlocked counts one policy rejection. reason must be a static rule or
// category name, never raw SQL.
func (r *Registry) QueryBlocked(reason string) {
	r.queriesBlocked.WithLabelValues(reason).Inc()
}

// ErrorOccurred counts one failed operation. errorType must come from the
// fixed classification set (timeout, backend, pool_exhausted, ...).
func (r *Registry) ErrorOccurred(errorType string) {
	r.errorsTotal.WithLabelValues(errorType).Inc()
}

// ObserveDuration records a query's wall-clock duration.
func (r *Registry) ObserveDuration(tool string, d time.Duration) {
	r.queryDuration.WithLabelValues(tool).Observe(d.Seconds())
}

// ObserveRows records the number of rows a query returned.
func (r *Registry) ObserveRows(tool string, n int) {
	r.rowsReturned.WithLabelValues(tool).Observe(float64(n))
}

// QueryStarted and QueryFinished bracket an in-flight query.
func (r *Registry) QueryStarted()  { r.activeQueries.Inc() }
func (r *Registry) QueryFinished() { r.activeQueries.Dec() }

// SetActiveConnections reports current pool occupancy.
func (r *Registry) SetActiveConnections(n int) {
	r.activeConnections.Set(float64(n))
}

// SetReady flips the readiness gauge.
func (r *Registry) SetReady(ready bool) {
	if ready {
		r.serverReady.Set(1)
	} else {
		r.serverReady.Set(0)
	}
}

// Handler returns the /metrics exposition handler for this registry.
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.reg, promhttp.HandlerOpts{})
}
