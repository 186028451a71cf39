package middleware

import "github.com/prometheus/client_golang/prometheus"

// panicsRecovered counts panics caught by the Recovery middleware. The
// collector is unregistered until RegisterMetrics wires it into the
// registry behind the metrics endpoint.
//
//nolint:gochecknoglobals // package-level collector, registered once
var panicsRecovered = prometheus.NewCounter(prometheus.CounterOpts{
	Namespace: "multitier",
	Subsystem: "middleware",
	Name:      "panics_recovered_total",
	Help:      "Total number of panics recovered in handlers.",
})

// RegisterMetrics registers the middleware collectors with reg.
func RegisterMetrics(reg prometheus.Registerer) error {
	return reg.Register(panicsRecovered)
}
