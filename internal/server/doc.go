// Package server assembles and runs the daemon's HTTP surface.
//
// The Server owns two listeners: the application listener serving the
// routed app plus the /healthz and /readyz probes, and an optional
// metrics listener. The Dispatcher is the terminal handler of the
// middleware chain; it resolves each request path against the pattern
// forest for the active tenant and hands the request to the matched
// endpoint with the route name and captured parameters stamped into
// the context.
//
// Lifecycle:
//
//	srv, err := server.New(cfg, handler,
//		server.WithLogger(logger),
//		server.WithHealthChecker(checker),
//		server.WithMetricsHandler(metrics.Handler()),
//	)
//	if err != nil {
//		return err
//	}
//	if err := srv.Start(ctx); err != nil {
//		return err
//	}
//	defer srv.Stop(ctx)
package server
