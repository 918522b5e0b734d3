package observability

import (
	"database/sql"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics
type Metrics struct {
	// HTTP metrics
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	// Tenant resolution metrics. The source label distinguishes the cookie
	// fast path from the authoritative store read and the first-login
	// bootstrap, which is the main signal for cookie hit rate.
	TenantResolutionsTotal *prometheus.CounterVec
	TenantResolutionErrors *prometheus.CounterVec
	TenantSwitchesTotal    prometheus.Counter

	// Membership metrics
	RoleChangesTotal    *prometheus.CounterVec
	MemberRemovalsTotal *prometheus.CounterVec
	InvitationsTotal    *prometheus.CounterVec

	// Cache metrics
	CacheHitsTotal   *prometheus.CounterVec
	CacheMissesTotal *prometheus.CounterVec

	// Database pool metrics
	DBConnectionsActive prometheus.Gauge
	DBConnectionsIdle   prometheus.Gauge

	// Audit metrics
	AuditWritesFailed prometheus.Counter
}

// NewMetrics creates and registers all Prometheus metrics
func NewMetrics(registry *prometheus.Registry) *Metrics {
	m := &Metrics{
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cohort_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "cohort_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),

		TenantResolutionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cohort_tenant_resolutions_total",
				Help: "Total number of tenant resolutions by source (cookie, store, bootstrap)",
			},
			[]string{"source"},
		),
		TenantResolutionErrors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cohort_tenant_resolution_errors_total",
				Help: "Total number of failed tenant resolutions by reason",
			},
			[]string{"reason"},
		),
		TenantSwitchesTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "cohort_tenant_switches_total",
				Help: "Total number of explicit organization switches",
			},
		),

		RoleChangesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cohort_role_changes_total",
				Help: "Total number of role-change attempts by outcome",
			},
			[]string{"outcome"},
		),
		MemberRemovalsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cohort_member_removals_total",
				Help: "Total number of member-removal attempts by outcome",
			},
			[]string{"outcome"},
		),
		InvitationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cohort_invitations_total",
				Help: "Total number of invitation events (created, accepted, revoked, expired)",
			},
			[]string{"event"},
		),

		CacheHitsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cohort_cache_hits_total",
				Help: "Total number of cache hits",
			},
			[]string{"cache"},
		),
		CacheMissesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cohort_cache_misses_total",
				Help: "Total number of cache misses",
			},
			[]string{"cache"},
		),

		DBConnectionsActive: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "cohort_db_connections_active",
				Help: "Number of active database connections",
			},
		),
		DBConnectionsIdle: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "cohort_db_connections_idle",
				Help: "Number of idle database connections",
			},
		),

		AuditWritesFailed: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "cohort_audit_writes_failed_total",
				Help: "Total number of audit writes that failed and were dropped",
			},
		),
	}

	registry.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.TenantResolutionsTotal,
		m.TenantResolutionErrors,
		m.TenantSwitchesTotal,
		m.RoleChangesTotal,
		m.MemberRemovalsTotal,
		m.InvitationsTotal,
		m.CacheHitsTotal,
		m.CacheMissesTotal,
		m.DBConnectionsActive,
		m.DBConnectionsIdle,
		m.AuditWritesFailed,
	)

	return m
}

// ObserveDBStats copies connection pool stats into the gauges. Call it
// periodically from the serve loop.
func (m *Metrics) ObserveDBStats(stats sql.DBStats) {
	m.DBConnectionsActive.Set(float64(stats.InUse))
	m.DBConnectionsIdle.Set(float64(stats.Idle))
}

// responseWriter wraps http.ResponseWriter to capture the status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// HTTPMetricsMiddleware instruments HTTP requests with Prometheus metrics
func HTTPMetricsMiddleware(metrics *Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			rw := &responseWriter{
				ResponseWriter: w,
				statusCode:     http.StatusOK,
			}

			next.ServeHTTP(rw, r)

			duration := time.Since(start).Seconds()
			status := strconv.Itoa(rw.statusCode)

			metrics.HTTPRequestsTotal.WithLabelValues(r.Method, r.URL.Path, status).Inc()
			metrics.HTTPRequestDuration.WithLabelValues(r.Method, r.URL.Path).Observe(duration)
		})
	}
}

// RegisterMetricsEndpoint registers the /metrics endpoint
func RegisterMetricsEndpoint(mux *http.ServeMux, registry *prometheus.Registry) {
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
}
