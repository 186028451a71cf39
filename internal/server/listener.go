package server

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/vberezan/multitier/internal/config"
	"github.com/vberezan/multitier/internal/observability"
)

// maxHeaderBytes bounds request headers on every listener.
const maxHeaderBytes = 1 << 20

// Listener runs one HTTP server on its own address.
type Listener struct {
	name     string
	addr     string
	handler  http.Handler
	timeouts config.ServerConfig
	logger   observability.Logger

	server    *http.Server
	running   atomic.Bool
	boundAddr atomic.Value
}

// ListenerOption configures a listener.
type ListenerOption func(*Listener)

// WithListenerLogger sets the listener's logger.
func WithListenerLogger(logger observability.Logger) ListenerOption {
	return func(l *Listener) {
		if logger != nil {
			l.logger = logger
		}
	}
}

// WithListenerTimeouts applies the configured server timeouts instead
// of the conservative built-in defaults.
func WithListenerTimeouts(cfg config.ServerConfig) ListenerOption {
	return func(l *Listener) {
		l.timeouts = cfg
	}
}

// NewListener creates a listener serving handler on addr.
func NewListener(name, addr string, handler http.Handler, opts ...ListenerOption) *Listener {
	l := &Listener{
		name:    name,
		addr:    addr,
		handler: handler,
		logger:  observability.NopLogger(),
		timeouts: config.ServerConfig{
			ReadTimeout:       config.Duration(10 * time.Second),
			ReadHeaderTimeout: config.Duration(5 * time.Second),
			WriteTimeout:      config.Duration(10 * time.Second),
			IdleTimeout:       config.Duration(60 * time.Second),
		},
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Name returns the listener name.
func (l *Listener) Name() string {
	return l.name
}

// Addr returns the bound address once the listener is started, the
// configured address before that. With a ":0" configuration the bound
// address carries the assigned port.
func (l *Listener) Addr() string {
	if bound, ok := l.boundAddr.Load().(string); ok && bound != "" {
		return bound
	}
	return l.addr
}

// Start binds the address and begins serving in the background.
func (l *Listener) Start(ctx context.Context) error {
	if l.running.Load() {
		return fmt.Errorf("listener %s is already running", l.name)
	}

	l.server = &http.Server{
		Addr:              l.addr,
		Handler:           l.handler,
		ReadTimeout:       time.Duration(l.timeouts.ReadTimeout),
		ReadHeaderTimeout: time.Duration(l.timeouts.ReadHeaderTimeout),
		WriteTimeout:      time.Duration(l.timeouts.WriteTimeout),
		IdleTimeout:       time.Duration(l.timeouts.IdleTimeout),
		MaxHeaderBytes:    maxHeaderBytes,
	}

	var lc net.ListenConfig
	ln, err := lc.Listen(ctx, "tcp", l.addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", l.addr, err)
	}
	l.boundAddr.Store(ln.Addr().String())
	l.running.Store(true)

	l.logger.Info("listener started",
		observability.String("name", l.name),
		observability.String("address", ln.Addr().String()),
	)

	go l.serve(ln)

	return nil
}

// serve runs the server until shutdown.
func (l *Listener) serve(ln net.Listener) {
	if err := l.server.Serve(ln); err != nil && err != http.ErrServerClosed {
		l.logger.Error("listener error",
			observability.String("name", l.name),
			observability.Error(err),
		)
	}
	l.running.Store(false)
}

// Stop drains the listener gracefully. Stopping a stopped listener is
// a no-op.
func (l *Listener) Stop(ctx context.Context) error {
	if !l.running.Load() {
		return nil
	}

	l.logger.Info("stopping listener",
		observability.String("name", l.name),
	)

	if err := l.server.Shutdown(ctx); err != nil {
		if closeErr := l.server.Close(); closeErr != nil {
			return fmt.Errorf("failed to close listener: %w", closeErr)
		}
		return fmt.Errorf("failed to shutdown listener gracefully: %w", err)
	}

	l.running.Store(false)

	l.logger.Info("listener stopped",
		observability.String("name", l.name),
	)

	return nil
}

// IsRunning reports whether the listener is serving.
func (l *Listener) IsRunning() bool {
	return l.running.Load()
}
