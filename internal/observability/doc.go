// Package observability provides logging, metrics, and tracing
// functionality for the multitier routing layer.
//
// This package implements the three pillars of observability:
// structured logging via zap, Prometheus metrics collection, and
// distributed tracing via OpenTelemetry with OTLP export.
//
// # Logging
//
// The Logger interface provides structured logging:
//
//	logger, err := observability.NewLogger(observability.DefaultLogConfig())
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer logger.Sync()
//
//	logger.Info("site resolved",
//	    observability.String("slug", "acme"),
//	    observability.String("prefix", "acme"),
//	)
//
// # Metrics
//
// Prometheus metrics for HTTP requests, site lookups, and resolver
// builds:
//
//	metrics := observability.NewMetrics("multitier")
//	handler := metrics.Handler()
//
// # Tracing
//
// OpenTelemetry distributed tracing with OTLP gRPC export:
//
//	tracer, err := observability.NewTracer(cfg)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer tracer.Shutdown(ctx)
package observability
