package server

import (
	"context"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/vberezan/multitier/internal/config"
	"github.com/vberezan/multitier/internal/health"
	"github.com/vberezan/multitier/internal/observability"
)

// State represents the server lifecycle state.
type State int32

const (
	// StateStopped indicates the server is stopped.
	StateStopped State = iota
	// StateStarting indicates the server is starting.
	StateStarting
	// StateRunning indicates the server is running.
	StateRunning
	// StateStopping indicates the server is stopping.
	StateStopping
)

// String returns the string representation of the state.
func (s State) String() string {
	switch s {
	case StateStopped:
		return "stopped"
	case StateStarting:
		return "starting"
	case StateRunning:
		return "running"
	case StateStopping:
		return "stopping"
	default:
		return "unknown"
	}
}

// Server owns the application listener and the optional metrics
// listener, with probes mounted beside the routed app so they bypass
// the middleware chain.
type Server struct {
	cfg            *config.Config
	logger         observability.Logger
	app            http.Handler
	metricsHandler http.Handler
	checker        *health.Checker

	appListener     *Listener
	metricsListener *Listener

	state     atomic.Int32
	startTime time.Time
	shutdown  time.Duration
}

// Option configures a server.
type Option func(*Server)

// WithLogger sets the server's logger.
func WithLogger(logger observability.Logger) Option {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithHealthChecker sets the checker behind /healthz and /readyz.
func WithHealthChecker(checker *health.Checker) Option {
	return func(s *Server) {
		if checker != nil {
			s.checker = checker
		}
	}
}

// WithMetricsHandler sets the /metrics payload served by the metrics
// listener. Without one the metrics listener is not started.
func WithMetricsHandler(handler http.Handler) Option {
	return func(s *Server) {
		s.metricsHandler = handler
	}
}

// New creates a server for the routed application handler.
func New(cfg *config.Config, app http.Handler, opts ...Option) (*Server, error) {
	if cfg == nil {
		return nil, ErrNilConfig
	}
	if app == nil {
		return nil, ErrNilHandler
	}

	s := &Server{
		cfg:      cfg,
		logger:   observability.NopLogger(),
		app:      app,
		checker:  health.NewChecker("dev"),
		shutdown: time.Duration(cfg.Server.ShutdownTimeout),
	}
	if s.shutdown <= 0 {
		s.shutdown = 15 * time.Second
	}
	for _, opt := range opts {
		opt(s)
	}

	s.state.Store(int32(StateStopped))

	return s, nil
}

// Start binds the listeners and begins serving.
func (s *Server) Start(ctx context.Context) error {
	if !s.state.CompareAndSwap(int32(StateStopped), int32(StateStarting)) {
		return ErrNotStopped
	}

	appMux := http.NewServeMux()
	appMux.HandleFunc("/healthz", s.checker.HealthHandler())
	appMux.HandleFunc("/readyz", s.checker.ReadinessHandler())
	appMux.Handle("/", s.app)

	s.appListener = NewListener("app", s.cfg.Server.Addr, appMux,
		WithListenerLogger(s.logger),
		WithListenerTimeouts(s.cfg.Server),
	)

	if addr := s.cfg.Observability.MetricsAddr; addr != "" && s.metricsHandler != nil {
		metricsMux := http.NewServeMux()
		metricsMux.Handle("/metrics", s.metricsHandler)
		s.metricsListener = NewListener("metrics", addr, metricsMux,
			WithListenerLogger(s.logger),
		)
	}

	for _, l := range s.listeners() {
		if err := l.Start(ctx); err != nil {
			s.stopListeners(ctx)
			s.state.Store(int32(StateStopped))
			return err
		}
	}

	s.startTime = time.Now()
	s.state.Store(int32(StateRunning))

	s.logger.Info("server started",
		observability.String("address", s.appListener.Addr()),
		observability.String("metrics_address", s.MetricsAddr()),
	)

	return nil
}

// Stop drains the listeners gracefully, bounded by the shutdown
// timeout when the context has no earlier deadline.
func (s *Server) Stop(ctx context.Context) error {
	if !s.state.CompareAndSwap(int32(StateRunning), int32(StateStopping)) {
		return ErrNotRunning
	}

	s.logger.Info("stopping server")

	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.shutdown)
		defer cancel()
	}

	s.stopListeners(ctx)
	s.state.Store(int32(StateStopped))

	s.logger.Info("server stopped")

	return nil
}

// State returns the current lifecycle state.
func (s *Server) State() State {
	return State(s.state.Load())
}

// IsRunning reports whether the server is serving.
func (s *Server) IsRunning() bool {
	return s.State() == StateRunning
}

// Uptime returns the time since the server started.
func (s *Server) Uptime() time.Duration {
	if s.startTime.IsZero() {
		return 0
	}
	return time.Since(s.startTime)
}

// Addr returns the application listener's bound address, empty before
// the first start.
func (s *Server) Addr() string {
	if s.appListener == nil {
		return ""
	}
	return s.appListener.Addr()
}

// MetricsAddr returns the metrics listener's bound address, empty when
// no metrics listener is configured.
func (s *Server) MetricsAddr() string {
	if s.metricsListener == nil {
		return ""
	}
	return s.metricsListener.Addr()
}

func (s *Server) listeners() []*Listener {
	ls := []*Listener{s.appListener}
	if s.metricsListener != nil {
		ls = append(ls, s.metricsListener)
	}
	return ls
}

func (s *Server) stopListeners(ctx context.Context) {
	var wg sync.WaitGroup
	for _, l := range s.listeners() {
		if l == nil {
			continue
		}
		wg.Add(1)
		go func(l *Listener) {
			defer wg.Done()
			if err := l.Stop(ctx); err != nil {
				s.logger.Error("failed to stop listener",
					observability.String("name", l.Name()),
					observability.Error(err),
				)
			}
		}(l)
	}
	wg.Wait()
}
