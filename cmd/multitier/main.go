// Package main is the entry point for the multitier routing daemon.
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/vberezan/multitier/internal/config"
	"github.com/vberezan/multitier/internal/health"
	"github.com/vberezan/multitier/internal/middleware"
	"github.com/vberezan/multitier/internal/observability"
	"github.com/vberezan/multitier/internal/routing"
	"github.com/vberezan/multitier/internal/server"
	"github.com/vberezan/multitier/internal/site"
	"github.com/vberezan/multitier/internal/tenant"
)

// Version information (set at build time).
var (
	version   = "dev"
	buildTime = "unknown"
	gitCommit = "unknown"
)

// storeCheckTimeout bounds the registry probe run by the readiness endpoint.
const storeCheckTimeout = 2 * time.Second

// cliFlags holds command line flags.
type cliFlags struct {
	configPath   string
	logLevel     string
	logFormat    string
	validateOnly bool
	showVersion  bool
}

func main() {
	flags := parseFlags()

	if flags.showVersion {
		printVersion()
		return
	}

	logger := initLogger(flags)
	defer func() { _ = logger.Sync() }()

	configPath, err := config.ResolvePath(flags.configPath)
	if err != nil {
		logger.Fatal("failed to locate configuration", observability.Error(err))
	}

	cfg := loadAndValidateConfig(configPath, logger)
	logger = configureLogger(logger, flags, cfg)

	if flags.validateOnly {
		logger.Info("configuration is valid")
		return
	}

	app := initApplication(cfg, logger)

	runDaemon(app, configPath, flags, logger)
}

// parseFlags parses command line flags.
func parseFlags() cliFlags {
	configPath := flag.String("config", getEnvOrDefault("MULTITIER_CONFIG_PATH", "multitier.yaml"),
		"Path to configuration file, searched in the working directory and configs/")
	logLevel := flag.String("log-level", getEnvOrDefault("MULTITIER_LOG_LEVEL", ""),
		"Log level (debug, info, warn, error); overrides the config file")
	logFormat := flag.String("log-format", getEnvOrDefault("MULTITIER_LOG_FORMAT", ""),
		"Log format (json, console); overrides the config file")
	validateOnly := flag.Bool("validate", false, "Validate the configuration and exit")
	showVersion := flag.Bool("version", false, "Show version information")
	flag.Parse()

	return cliFlags{
		configPath:   *configPath,
		logLevel:     *logLevel,
		logFormat:    *logFormat,
		validateOnly: *validateOnly,
		showVersion:  *showVersion,
	}
}

// printVersion prints version information and exits.
func printVersion() {
	fmt.Printf("multitier version %s\n", version)
	fmt.Printf("  Build time: %s\n", buildTime)
	fmt.Printf("  Git commit: %s\n", gitCommit)
}

// initLogger builds the bootstrap logger from flags alone. The config file
// has not been parsed yet when the first lines are logged, so file settings
// are applied afterwards by configureLogger.
func initLogger(flags cliFlags) observability.Logger {
	logger, err := observability.NewLogger(logConfig(flags.logLevel, flags.logFormat))
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}

	observability.SetGlobalLogger(logger)
	return logger
}

// configureLogger rebuilds the logger with the config file's log settings.
// Flags win over the file.
func configureLogger(current observability.Logger, flags cliFlags, cfg *config.Config) observability.Logger {
	level := flags.logLevel
	if level == "" {
		level = cfg.Observability.LogLevel
	}
	format := flags.logFormat
	if format == "" {
		format = cfg.Observability.LogFormat
	}

	logger, err := observability.NewLogger(logConfig(level, format))
	if err != nil {
		current.Warn("invalid log settings in config file", observability.Error(err))
		return current
	}

	observability.SetGlobalLogger(logger)
	return logger
}

// logConfig fills empty settings from the package defaults.
func logConfig(level, format string) observability.LogConfig {
	cfg := observability.DefaultLogConfig()
	if level != "" {
		cfg.Level = level
	}
	if format != "" {
		cfg.Format = format
	}
	return cfg
}

// loadAndValidateConfig loads and validates the configuration.
func loadAndValidateConfig(configPath string, logger observability.Logger) *config.Config {
	logger.Info("starting multitier",
		observability.String("version", version),
		observability.String("config", configPath),
	)

	cfg, err := config.Load(configPath)
	if err != nil {
		logger.Fatal("failed to load configuration", observability.Error(err))
	}

	if err := config.Validate(cfg); err != nil {
		logger.Fatal("invalid configuration", observability.Error(err))
	}

	logger.Info("configuration loaded",
		observability.String("registry", cfg.Registry.Backend),
		observability.Int("sites", len(cfg.Sites)),
		observability.Int("routes", countRoutes(cfg.Routes)),
	)

	return cfg
}

// countRoutes counts leaf routes across the whole forest.
func countRoutes(routes []config.RouteConfig) int {
	n := 0
	for i := range routes {
		if routes[i].IsGroup() {
			n += countRoutes(routes[i].Routes)
		} else {
			n++
		}
	}
	return n
}

// application holds all application components.
type application struct {
	server  *server.Server
	store   site.Store
	checker *health.Checker
	metrics *observability.Metrics
	tracer  *observability.Tracer
	config  *config.Config
	logger  observability.Logger
}

// initApplication initializes all application components.
func initApplication(cfg *config.Config, logger observability.Logger) *application {
	metrics := observability.NewMetrics("multitier")
	metrics.SetBuildInfo(version, gitCommit, buildTime)
	registerPackageMetrics(metrics, logger)

	tracer := initTracer(cfg, logger)

	store := initStore(cfg, logger)
	registry := site.NewRegistry(store, logger, metrics)

	checker := health.NewChecker(version)
	checker.RegisterCheck("store", health.StoreCheck(store, storeCheckTimeout))

	root, err := routing.FromConfig(cfg.Routes, builtinHandlers())
	if err != nil {
		logger.Fatal("failed to load routes", observability.Error(err))
	}

	resolver, err := routing.NewResolver(root, routing.WithLogger(logger))
	if err != nil {
		logger.Fatal("failed to build resolver", observability.Error(err))
	}

	dispatcher := server.NewDispatcher(resolver, server.WithDispatcherLogger(logger))
	handler := buildMiddlewareChain(dispatcher, registry, cfg, logger, metrics, tracer)

	srv, err := server.New(cfg, handler,
		server.WithLogger(logger),
		server.WithHealthChecker(checker),
		server.WithMetricsHandler(metrics.Handler()),
	)
	if err != nil {
		logger.Fatal("failed to create server", observability.Error(err))
	}

	return &application{
		server:  srv,
		store:   store,
		checker: checker,
		metrics: metrics,
		tracer:  tracer,
		config:  cfg,
		logger:  logger,
	}
}

// registerPackageMetrics attaches the routing and middleware collectors to
// the daemon registry. Registration trouble costs visibility, not routing,
// so it is not fatal.
func registerPackageMetrics(metrics *observability.Metrics, logger observability.Logger) {
	if err := routing.RegisterMetrics(metrics.Registry()); err != nil {
		logger.Warn("failed to register routing metrics", observability.Error(err))
	}
	if err := middleware.RegisterMetrics(metrics.Registry()); err != nil {
		logger.Warn("failed to register middleware metrics", observability.Error(err))
	}
}

// initStore builds the site store and seeds the memory backend from the
// config file.
func initStore(cfg *config.Config, logger observability.Logger) site.Store {
	store, err := site.New(&cfg.Registry, logger)
	if err != nil {
		logger.Fatal("failed to create site store", observability.Error(err))
	}

	if mem, ok := store.(*site.MemoryStore); ok && len(cfg.Sites) > 0 {
		if err := mem.Replace(context.Background(), site.FromConfig(cfg.Sites)); err != nil {
			logger.Fatal("failed to seed site store", observability.Error(err))
		}
		logger.Info("site registry seeded", observability.Int("sites", len(cfg.Sites)))
	}

	return store
}

// initTracer initializes the tracer.
func initTracer(cfg *config.Config, logger observability.Logger) *observability.Tracer {
	tracerCfg := observability.TracerConfig{
		ServiceName:  "multitier",
		Enabled:      cfg.Observability.Tracing.Enabled,
		SamplingRate: cfg.Observability.Tracing.SamplingRatio,
		OTLPEndpoint: cfg.Observability.Tracing.Endpoint,
	}
	if cfg.Observability.Tracing.ServiceName != "" {
		tracerCfg.ServiceName = cfg.Observability.Tracing.ServiceName
	}

	tracer, err := observability.NewTracer(tracerCfg)
	if err != nil {
		logger.Fatal("failed to initialize tracer", observability.Error(err))
	}

	return tracer
}

// buildMiddlewareChain wraps the dispatcher in the daemon middleware.
// Ordering matters: tenant resolution runs before logging so the access log
// carries the slug, recovery sits inside logging so panics are logged as
// 500s, and rate limiting keys on the resolved tenant.
func buildMiddlewareChain(
	dispatcher http.Handler,
	registry *site.Registry,
	cfg *config.Config,
	logger observability.Logger,
	metrics *observability.Metrics,
	tracer *observability.Tracer,
) http.Handler {
	rateLimit, _ := middleware.RateLimitFromConfig(&cfg.RateLimit,
		middleware.WithRateLimitLogger(logger),
		middleware.WithRateLimitMetrics(metrics),
	)

	h := dispatcher
	h = rateLimit(h)
	h = middleware.Recovery(logger)(h)
	h = observability.MetricsMiddleware(metrics)(h)
	h = observability.TracingMiddleware(tracer)(h)
	h = middleware.Logging(logger)(h)
	h = tenant.Middleware(registry, logger)(h)
	h = middleware.RouteRecording()(h)
	h = middleware.RequestID()(h)

	return h
}

// runDaemon starts the server and blocks until a shutdown signal arrives.
func runDaemon(app *application, configPath string, flags cliFlags, logger observability.Logger) {
	ctx := context.Background()

	if err := app.server.Start(ctx); err != nil {
		logger.Fatal("failed to start server", observability.Error(err))
	}

	watcher := startConfigWatcher(app, configPath, flags, logger)

	waitForShutdown(app, watcher, logger)
}

// startConfigWatcher applies config file changes to the running daemon: the
// memory site registry is replaced with the file's records, and the log
// level follows the file unless pinned by flag. The redis backend is updated
// through the store directly, so its records are not reloaded here.
func startConfigWatcher(app *application, configPath string, flags cliFlags, logger observability.Logger) *config.Watcher {
	mem, isMemory := app.store.(*site.MemoryStore)

	watcher, err := config.NewWatcher(configPath, func(next *config.Config) {
		if isMemory {
			if err := mem.Replace(context.Background(), site.FromConfig(next.Sites)); err != nil {
				logger.Error("failed to reload site registry", observability.Error(err))
			} else {
				logger.Info("site registry reloaded", observability.Int("sites", len(next.Sites)))
			}
		}
		reloadLogLevel(next, flags, logger)
	}, config.WithWatcherLogger(logger))
	if err != nil {
		logger.Warn("failed to create config watcher", observability.Error(err))
		return nil
	}

	if err := watcher.Start(context.Background()); err != nil {
		logger.Warn("failed to start config watcher", observability.Error(err))
	}

	return watcher
}

// reloadLogLevel follows the config file's log level across reloads. A
// -log-level flag pins the level for the life of the process.
func reloadLogLevel(next *config.Config, flags cliFlags, logger observability.Logger) {
	level := next.Observability.LogLevel
	if flags.logLevel != "" || level == "" || level == logger.GetLevel() {
		return
	}

	if err := logger.SetLevel(level); err != nil {
		logger.Warn("invalid log level in config file", observability.Error(err))
		return
	}
	logger.Info("log level updated", observability.String("level", level))
}

// waitForShutdown waits for a shutdown signal and performs graceful shutdown.
func waitForShutdown(app *application, watcher *config.Watcher, logger observability.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("received shutdown signal", observability.String("signal", sig.String()))

	shutdownCtx, cancel := context.WithTimeout(context.Background(),
		time.Duration(app.config.Server.ShutdownTimeout))
	defer cancel()

	if watcher != nil {
		_ = watcher.Stop()
	}

	if err := app.server.Stop(shutdownCtx); err != nil {
		logger.Error("failed to stop server gracefully", observability.Error(err))
	}

	if err := app.store.Close(); err != nil {
		logger.Error("failed to close site store", observability.Error(err))
	}

	if err := app.tracer.Shutdown(shutdownCtx); err != nil {
		logger.Error("failed to shutdown tracer", observability.Error(err))
	}

	logger.Info("daemon stopped")
}

// getEnvOrDefault returns the environment variable value or a default.
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
