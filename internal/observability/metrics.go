package observability

import (
	"bufio"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/vberezan/multitier/internal/util"
)

// unmatchedRoute is the label value used for requests that do not
// match any configured route, ensuring bounded cardinality.
const unmatchedRoute = "unmatched"

// inFlightRoute is the label value used for tracking in-flight
// requests before the route is known.
const inFlightRoute = "in_flight"

// Metrics holds all Prometheus metrics for the routing layer.
type Metrics struct {
	requestsTotal    *prometheus.CounterVec
	requestDuration  *prometheus.HistogramVec
	requestSize      *prometheus.HistogramVec
	responseSize     *prometheus.HistogramVec
	activeRequests   *prometheus.GaugeVec
	siteLookupsTotal *prometheus.CounterVec
	storeLatency     *prometheus.HistogramVec
	circuitBreaker   *prometheus.GaugeVec
	rateLimitHits    *prometheus.CounterVec
	buildInfo        *prometheus.GaugeVec
	startTime        prometheus.Gauge
	registry         *prometheus.Registry
}

// NewMetrics creates a new Metrics instance.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "multitier"
	}

	m := &Metrics{
		registry: prometheus.NewRegistry(),
	}

	m.requestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"method", "route", "status"},
	)

	m.requestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets: []float64{
				.001, .005, .01, .025, .05,
				.1, .25, .5, 1, 2.5, 5, 10,
			},
		},
		[]string{"method", "route", "status"},
	)

	m.requestSize = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "request_size_bytes",
			Help:      "HTTP request size in bytes",
			Buckets: prometheus.ExponentialBuckets(
				100, 10, 8,
			),
		},
		[]string{"method", "route"},
	)

	m.responseSize = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "response_size_bytes",
			Help:      "HTTP response size in bytes",
			Buckets: prometheus.ExponentialBuckets(
				100, 10, 8,
			),
		},
		[]string{"method", "route", "status"},
	)

	m.activeRequests = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_requests",
			Help: "Number of active HTTP " +
				"requests",
		},
		[]string{"method", "route"},
	)

	m.siteLookupsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "site_lookups_total",
			Help: "Total number of site registry " +
				"lookups by result",
		},
		[]string{"store", "result"},
	)

	m.storeLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "site_store_latency_seconds",
			Help:      "Site store operation latency in seconds",
			Buckets: []float64{
				.0001, .0005, .001, .005, .01,
				.05, .1, .5, 1,
			},
		},
		[]string{"store", "op"},
	)

	m.circuitBreaker = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "circuit_breaker_state",
			Help: "Circuit breaker state " +
				"(0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	m.rateLimitHits = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rate_limit_hits_total",
			Help: "Total number of rate " +
				"limit hits",
		},
		[]string{"site"},
	)

	m.buildInfo = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "build_info",
			Help:      "Build information for the service",
		},
		[]string{"version", "commit", "build_time"},
	)

	m.startTime = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "start_time_seconds",
			Help: "Start time of the service " +
				"in unix seconds",
		},
	)

	m.registerCollectors()

	m.startTime.SetToCurrentTime()

	return m
}

// registerCollectors registers all metric collectors with the
// Prometheus registry.
func (m *Metrics) registerCollectors() {
	m.registry.MustRegister(
		m.requestsTotal,
		m.requestDuration,
		m.requestSize,
		m.responseSize,
		m.activeRequests,
		m.siteLookupsTotal,
		m.storeLatency,
		m.circuitBreaker,
		m.rateLimitHits,
		m.buildInfo,
		m.startTime,
	)

	m.registry.MustRegister(collectors.NewGoCollector())
	m.registry.MustRegister(
		collectors.NewProcessCollector(
			collectors.ProcessCollectorOpts{},
		),
	)
}

// InitVecMetrics pre-populates common label combinations with zero
// values so that Vec metrics appear in /metrics output immediately
// after startup. Prometheus *Vec types only emit metric lines after
// WithLabelValues() is called at least once. This method is idempotent.
func (m *Metrics) InitVecMetrics() {
	m.circuitBreaker.WithLabelValues("default")
	m.rateLimitHits.WithLabelValues("default")
	m.siteLookupsTotal.WithLabelValues("memory", "hit")
	m.siteLookupsTotal.WithLabelValues("memory", "miss")
}

// RecordRequest records a completed HTTP request.
// The route parameter should be the matched route name,
// not the raw request path, to prevent cardinality explosion.
func (m *Metrics) RecordRequest(
	method, route string,
	status int,
	duration time.Duration,
	reqSize, respSize int64,
) {
	statusStr := strconv.Itoa(status)

	m.requestsTotal.WithLabelValues(
		method, route, statusStr,
	).Inc()
	m.requestDuration.WithLabelValues(
		method, route, statusStr,
	).Observe(duration.Seconds())
	m.requestSize.WithLabelValues(
		method, route,
	).Observe(float64(reqSize))
	m.responseSize.WithLabelValues(
		method, route, statusStr,
	).Observe(float64(respSize))
}

// RecordSiteLookup records a site registry lookup.
// Result should be one of "hit", "miss", or "error".
func (m *Metrics) RecordSiteLookup(store, result string) {
	m.siteLookupsTotal.WithLabelValues(store, result).Inc()
}

// ObserveStoreLatency records a site store operation latency.
func (m *Metrics) ObserveStoreLatency(
	store, op string, duration time.Duration,
) {
	m.storeLatency.WithLabelValues(store, op).Observe(duration.Seconds())
}

// SetCircuitBreakerState sets the circuit breaker state.
func (m *Metrics) SetCircuitBreakerState(
	name string, state int,
) {
	m.circuitBreaker.WithLabelValues(name).Set(float64(state))
}

// SetBuildInfo sets the build information metric.
func (m *Metrics) SetBuildInfo(
	version, commit, buildTime string,
) {
	m.buildInfo.WithLabelValues(
		version, commit, buildTime,
	).Set(1)
}

// RecordRateLimitHit records a rate limit hit.
// Uses the site slug instead of client_ip to prevent unbounded
// cardinality. Client IP tracking should be done via logs.
func (m *Metrics) RecordRateLimitHit(site string) {
	m.rateLimitHits.WithLabelValues(site).Inc()
}

// Handler returns an HTTP handler for the metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(
		m.registry,
		promhttp.HandlerOpts{EnableOpenMetrics: true},
	)
}

// Registry returns the Prometheus registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// RegisterCollector registers an additional collector with the custom
// registry. It returns an error if the collector is already registered
// or conflicts with an existing one. This allows external packages
// (e.g. resolver metrics) to share the same registry that backs the
// /metrics endpoint.
func (m *Metrics) RegisterCollector(c prometheus.Collector) error {
	return m.registry.Register(c)
}

// MustRegisterCollector registers an additional collector with the
// custom registry, panicking on error.
func (m *Metrics) MustRegisterCollector(c prometheus.Collector) {
	m.registry.MustRegister(c)
}

// MetricsMiddleware returns a middleware that records metrics.
// It extracts the route name from context (set by the dispatch layer)
// instead of using the raw request path, preventing metrics
// cardinality explosion from dynamic path segments.
func MetricsMiddleware(
	metrics *Metrics,
) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(
			func(w http.ResponseWriter, r *http.Request) {
				start := time.Now()
				method := r.Method

				rw := &metricsResponseWriter{
					ResponseWriter: w,
					status:         http.StatusOK,
				}

				// Track active requests (route not yet known)
				metrics.activeRequests.WithLabelValues(
					method, inFlightRoute,
				).Inc()

				next.ServeHTTP(rw, r)

				metrics.activeRequests.WithLabelValues(
					method, inFlightRoute,
				).Dec()

				route := routeFromRequest(r)
				duration := time.Since(start)

				metrics.RecordRequest(
					method, route, rw.status,
					duration,
					r.ContentLength, int64(rw.size),
				)
			},
		)
	}
}

// routeFromRequest extracts the route name from the request
// context. Returns unmatchedRoute if no route is set.
func routeFromRequest(r *http.Request) string {
	route := util.RouteNameFromContext(r.Context())
	if route == "" {
		return unmatchedRoute
	}
	return route
}

// metricsResponseWriter wraps http.ResponseWriter to capture
// metrics.
type metricsResponseWriter struct {
	http.ResponseWriter
	status int
	size   int
}

// WriteHeader captures the status code.
func (rw *metricsResponseWriter) WriteHeader(code int) {
	rw.status = code
	rw.ResponseWriter.WriteHeader(code)
}

// Write captures the response size.
func (rw *metricsResponseWriter) Write(b []byte) (int, error) {
	n, err := rw.ResponseWriter.Write(b)
	rw.size += n
	return n, err
}

// Flush implements http.Flusher interface for streaming support.
func (rw *metricsResponseWriter) Flush() {
	if f, ok := rw.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// Hijack implements http.Hijacker interface for connection upgrades.
func (rw *metricsResponseWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	if h, ok := rw.ResponseWriter.(http.Hijacker); ok {
		return h.Hijack()
	}
	return nil, nil, http.ErrNotSupported
}
