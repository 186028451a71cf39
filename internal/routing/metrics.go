package routing

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// routingMetrics contains Prometheus metrics for table builds, path
// resolution, reverse lookups, and the regex cache.
type routingMetrics struct {
	builds         *prometheus.CounterVec
	buildDuration  prometheus.Histogram
	tableEntries   *prometheus.GaugeVec
	resolves       *prometheus.CounterVec
	reverses       *prometheus.CounterVec
	regexHits      prometheus.Counter
	regexMisses    prometheus.Counter
	regexEvictions prometheus.Counter
	regexSize      prometheus.Gauge
}

var (
	metricsInstance *routingMetrics
	metricsOnce     sync.Once
)

// getMetrics returns the singleton routing metrics instance. The
// collectors work unregistered; RegisterMetrics exports them.
func getMetrics() *routingMetrics {
	metricsOnce.Do(func() {
		metricsInstance = &routingMetrics{
			builds: prometheus.NewCounterVec(
				prometheus.CounterOpts{
					Namespace: "multitier",
					Subsystem: "routing",
					Name:      "table_builds_total",
					Help:      "Total number of reverse table builds, per tenant prefix",
				},
				[]string{"prefix"},
			),
			buildDuration: prometheus.NewHistogram(
				prometheus.HistogramOpts{
					Namespace: "multitier",
					Subsystem: "routing",
					Name:      "table_build_duration_seconds",
					Help:      "Duration of reverse table builds",
					Buckets:   prometheus.DefBuckets,
				},
			),
			tableEntries: prometheus.NewGaugeVec(
				prometheus.GaugeOpts{
					Namespace: "multitier",
					Subsystem: "routing",
					Name:      "table_entries",
					Help:      "Number of reverse lookup keys in each prefix table",
				},
				[]string{"prefix"},
			),
			resolves: prometheus.NewCounterVec(
				prometheus.CounterOpts{
					Namespace: "multitier",
					Subsystem: "routing",
					Name:      "resolves_total",
					Help:      "Total number of path resolutions, by outcome",
				},
				[]string{"outcome"},
			),
			reverses: prometheus.NewCounterVec(
				prometheus.CounterOpts{
					Namespace: "multitier",
					Subsystem: "routing",
					Name:      "reverses_total",
					Help:      "Total number of reverse lookups, by outcome",
				},
				[]string{"outcome"},
			),
			regexHits: prometheus.NewCounter(
				prometheus.CounterOpts{
					Namespace: "multitier",
					Subsystem: "routing",
					Name:      "regex_cache_hits_total",
					Help:      "Total number of regex cache hits",
				},
			),
			regexMisses: prometheus.NewCounter(
				prometheus.CounterOpts{
					Namespace: "multitier",
					Subsystem: "routing",
					Name:      "regex_cache_misses_total",
					Help:      "Total number of regex cache misses",
				},
			),
			regexEvictions: prometheus.NewCounter(
				prometheus.CounterOpts{
					Namespace: "multitier",
					Subsystem: "routing",
					Name:      "regex_cache_evictions_total",
					Help:      "Total number of regex cache evictions",
				},
			),
			regexSize: prometheus.NewGauge(
				prometheus.GaugeOpts{
					Namespace: "multitier",
					Subsystem: "routing",
					Name:      "regex_cache_size",
					Help:      "Current number of entries in the regex cache",
				},
			),
		}
	})
	return metricsInstance
}

// RegisterMetrics registers the routing collectors with reg, typically
// the registry backing the metrics endpoint. Call once at wiring time.
func RegisterMetrics(reg prometheus.Registerer) error {
	m := getMetrics()
	for _, c := range []prometheus.Collector{
		m.builds,
		m.buildDuration,
		m.tableEntries,
		m.resolves,
		m.reverses,
		m.regexHits,
		m.regexMisses,
		m.regexEvictions,
		m.regexSize,
	} {
		if err := reg.Register(c); err != nil {
			return err
		}
	}
	return nil
}
