package server

import (
	"errors"
	"net/http"

	"github.com/vberezan/multitier/internal/middleware"
	"github.com/vberezan/multitier/internal/observability"
	"github.com/vberezan/multitier/internal/routing"
	"github.com/vberezan/multitier/internal/util"
)

// Dispatcher is the terminal handler of the middleware chain. It
// resolves the request path for the active tenant and dispatches to
// the matched endpoint with the route name and captured parameters
// stamped into the context.
type Dispatcher struct {
	resolver *routing.Resolver
	logger   observability.Logger
}

// DispatcherOption configures a dispatcher.
type DispatcherOption func(*Dispatcher)

// WithDispatcherLogger sets the dispatcher's logger.
func WithDispatcherLogger(logger observability.Logger) DispatcherOption {
	return func(d *Dispatcher) {
		if logger != nil {
			d.logger = logger
		}
	}
}

// NewDispatcher wraps a resolver as an http.Handler.
func NewDispatcher(resolver *routing.Resolver, opts ...DispatcherOption) *Dispatcher {
	d := &Dispatcher{
		resolver: resolver,
		logger:   observability.NopLogger(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// ServeHTTP resolves and dispatches one request.
func (d *Dispatcher) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	match, err := d.resolver.ResolvePath(r.Context(), r.URL.Path)
	if err != nil {
		if !errors.Is(err, routing.ErrNoMatch) {
			d.logger.Error("path resolution failed",
				observability.String("path", r.URL.Path),
				observability.Error(err),
			)
		}
		d.notFound(w)
		return
	}

	ctx := util.ContextWithRouteName(r.Context(), match.ViewName())
	if len(match.Kwargs) > 0 {
		ctx = util.ContextWithPathParams(ctx, match.Kwargs)
	}
	match.Handler.ServeHTTP(w, r.WithContext(ctx))
}

// notFound writes the JSON not-found response. A path matching no
// pattern is a negative outcome, never a server fault.
func (d *Dispatcher) notFound(w http.ResponseWriter) {
	w.Header().Set(middleware.HeaderContentType, middleware.ContentTypeJSON)
	w.WriteHeader(http.StatusNotFound)
	_, _ = w.Write([]byte(middleware.ErrNotFound))
}
