package observability

import (
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
	HTTPRequestSize     *prometheus.HistogramVec
	HTTPResponseSize    *prometheus.HistogramVec

	// Access resolution metrics
	ResolutionsTotal        *prometheus.CounterVec
	ResolutionDuration      *prometheus.HistogramVec
	PermissiveDefaultTotal  prometheus.Counter
	OverridesAppliedTotal   *prometheus.CounterVec
	OutOfCeilingGrantsTotal prometheus.Counter

	// Admin write metrics
	MatrixSavesTotal   *prometheus.CounterVec
	OverrideSavesTotal prometheus.Counter

	// Cache metrics
	CacheHitsTotal          *prometheus.CounterVec
	CacheMissesTotal        *prometheus.CounterVec
	CacheInvalidationsTotal *prometheus.CounterVec

	// Database metrics
	DBConnectionsActive       prometheus.Gauge
	DBConnectionsIdle         prometheus.Gauge
	DBConnectionsWaitCount    prometheus.Gauge
	DBConnectionsWaitDuration prometheus.Gauge

	// Redis metrics
	RedisConnectionsActive prometheus.Gauge

	// Business metrics
	TenantsTotal           prometheus.Gauge
	TenantsCustomizedTotal prometheus.Gauge
	ModulesRegistered      prometheus.Gauge
	APITokensActive        prometheus.Gauge
}

// NewMetrics creates and registers all Prometheus metrics
func NewMetrics(registry *prometheus.Registry) *Metrics {
	m := &Metrics{
		// HTTP metrics
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "opshub_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "opshub_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),
		HTTPRequestSize: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "opshub_http_request_size_bytes",
				Help:    "HTTP request size in bytes",
				Buckets: prometheus.ExponentialBuckets(100, 10, 8),
			},
			[]string{"method", "path"},
		),
		HTTPResponseSize: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "opshub_http_response_size_bytes",
				Help:    "HTTP response size in bytes",
				Buckets: prometheus.ExponentialBuckets(100, 10, 8),
			},
			[]string{"method", "path"},
		),

		// Access resolution metrics
		ResolutionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "opshub_resolutions_total",
				Help: "Total number of effective module resolutions",
			},
			[]string{"source", "status"},
		),
		ResolutionDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "opshub_resolution_duration_seconds",
				Help:    "Effective module resolution duration in seconds",
				Buckets: []float64{.0005, .001, .005, .01, .025, .05, .1, .25, .5},
			},
			[]string{"source"},
		),
		PermissiveDefaultTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "opshub_permissive_default_total",
				Help: "Total number of resolutions that fell back to the all-modules default",
			},
		),
		OverridesAppliedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "opshub_overrides_applied_total",
				Help: "Total number of user overrides applied during resolution",
			},
			[]string{"kind"},
		),
		OutOfCeilingGrantsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "opshub_out_of_ceiling_grants_total",
				Help: "Total number of grant overrides skipped because the module is not tenant-enabled",
			},
		),

		// Admin write metrics
		MatrixSavesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "opshub_matrix_saves_total",
				Help: "Total number of role matrix saves",
			},
			[]string{"mode"},
		),
		OverrideSavesTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "opshub_override_saves_total",
				Help: "Total number of user override saves",
			},
		),

		// Cache metrics
		CacheHitsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "opshub_cache_hits_total",
				Help: "Total number of cache hits",
			},
			[]string{"cache"},
		),
		CacheMissesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "opshub_cache_misses_total",
				Help: "Total number of cache misses",
			},
			[]string{"cache"},
		),
		CacheInvalidationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "opshub_cache_invalidations_total",
				Help: "Total number of cache invalidations",
			},
			[]string{"cache", "scope"},
		),

		// Database metrics
		DBConnectionsActive: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "opshub_db_connections_active",
				Help: "Number of active database connections",
			},
		),
		DBConnectionsIdle: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "opshub_db_connections_idle",
				Help: "Number of idle database connections",
			},
		),
		DBConnectionsWaitCount: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "opshub_db_connections_wait_count",
				Help: "Total number of connections waited for",
			},
		),
		DBConnectionsWaitDuration: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "opshub_db_connections_wait_duration_seconds",
				Help: "Total time spent waiting for connections",
			},
		),

		// Redis metrics
		RedisConnectionsActive: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "opshub_redis_connections_active",
				Help: "Number of active Redis connections",
			},
		),

		// Business metrics
		TenantsTotal: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "opshub_tenants_total",
				Help: "Total number of tenants",
			},
		),
		TenantsCustomizedTotal: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "opshub_tenants_customized_total",
				Help: "Number of tenants running a customized role matrix",
			},
		),
		ModulesRegistered: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "opshub_modules_registered",
				Help: "Number of modules in the loaded manifest",
			},
		),
		APITokensActive: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "opshub_api_tokens_active",
				Help: "Number of active API tokens",
			},
		),
	}

	// Register all metrics
	registry.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.HTTPRequestSize,
		m.HTTPResponseSize,
		m.ResolutionsTotal,
		m.ResolutionDuration,
		m.PermissiveDefaultTotal,
		m.OverridesAppliedTotal,
		m.OutOfCeilingGrantsTotal,
		m.MatrixSavesTotal,
		m.OverrideSavesTotal,
		m.CacheHitsTotal,
		m.CacheMissesTotal,
		m.CacheInvalidationsTotal,
		m.DBConnectionsActive,
		m.DBConnectionsIdle,
		m.DBConnectionsWaitCount,
		m.DBConnectionsWaitDuration,
		m.RedisConnectionsActive,
		m.TenantsTotal,
		m.TenantsCustomizedTotal,
		m.ModulesRegistered,
		m.APITokensActive,
	)

	return m
}

// responseWriter wraps http.ResponseWriter to capture status code and size
type responseWriter struct {
	http.ResponseWriter
	statusCode   int
	bytesWritten int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseWriter) Write(b []byte) (int, error) {
	n, err := rw.ResponseWriter.Write(b)
	rw.bytesWritten += n
	return n, err
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

			if r.ContentLength > 0 {
				metrics.HTTPRequestSize.WithLabelValues(r.Method, r.URL.Path).Observe(float64(r.ContentLength))
			}

			next.ServeHTTP(rw, r)

			duration := time.Since(start).Seconds()
			status := strconv.Itoa(rw.statusCode)

			metrics.HTTPRequestsTotal.WithLabelValues(r.Method, r.URL.Path, status).Inc()
			metrics.HTTPRequestDuration.WithLabelValues(r.Method, r.URL.Path).Observe(duration)
			metrics.HTTPResponseSize.WithLabelValues(r.Method, r.URL.Path).Observe(float64(rw.bytesWritten))
		})
	}
}

// CollectDBStats copies sql.DBStats-shaped values onto the connection gauges.
func (m *Metrics) CollectDBStats(open, idle int, waitCount int64, waitDuration time.Duration) {
	m.DBConnectionsActive.Set(float64(open - idle))
	m.DBConnectionsIdle.Set(float64(idle))
	m.DBConnectionsWaitCount.Set(float64(waitCount))
	m.DBConnectionsWaitDuration.Set(waitDuration.Seconds())
}

// RegisterMetricsEndpoint registers the /metrics endpoint
func RegisterMetricsEndpoint(mux *http.ServeMux, registry *prometheus.Registry) {
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
}
