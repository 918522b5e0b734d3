// Package observability provides structured logging, Prometheus metrics,
// health checks, and OpenTelemetry tracing.
//
// # Structured Logging
//
//	logger := observability.NewLogger(observability.InfoLevel, os.Stdout)
//	logger.WithField("user_id", id).Info("organization switched")
//
// FromContext builds a request-scoped logger carrying the request ID and,
// once tenant resolution has run, the active organization ID. Every log
// line emitted during a request names the tenant it was emitted for.
//
// # Prometheus Metrics
//
//	registry := prometheus.NewRegistry()
//	metrics := observability.NewMetrics(registry)
//	metrics.TenantResolutionsTotal.WithLabelValues("cookie").Inc()
//
// The tenant resolution counters are the operational signal for the cookie
// fast path: a falling cookie share means clients are losing or mangling
// the hint cookie and every request pays for the store read.
//
// # Health Checks
//
// The health checker pings PostgreSQL and Redis. PostgreSQL down is
// unhealthy; Redis down only degrades, reads fall through to the store.
package observability
