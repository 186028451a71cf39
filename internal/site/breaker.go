package site

import (
	"context"
	"errors"
	"time"

	"github.com/sony/gobreaker"

	"github.com/vberezan/multitier/internal/config"
	"github.com/vberezan/multitier/internal/observability"
	"github.com/vberezan/multitier/internal/util"
)

// Defaults applied when the breaker configuration leaves fields unset.
const (
	defaultBreakerThreshold = 5
	defaultBreakerTimeout   = 30 * time.Second
)

// BreakerStateFunc is called when the circuit breaker changes state.
type BreakerStateFunc func(name string, state gobreaker.State)

// BreakerStore decorates a Store with a circuit breaker. Consecutive
// backend failures open the circuit; while it is open every call fails fast
// with an error satisfying errors.Is(err, util.ErrStoreUnavailable).
// Negative lookups do not count as failures.
type BreakerStore struct {
	inner         Store
	cb            *gobreaker.CircuitBreaker
	logger        observability.Logger
	stateCallback BreakerStateFunc
}

// BreakerOption is a functional option for configuring the breaker store.
type BreakerOption func(*BreakerStore)

// WithBreakerStateCallback sets a callback for breaker state changes.
func WithBreakerStateCallback(fn BreakerStateFunc) BreakerOption {
	return func(s *BreakerStore) {
		s.stateCallback = fn
	}
}

// NewBreakerStore wraps inner with a circuit breaker.
func NewBreakerStore(
	inner Store,
	cfg *config.BreakerConfig,
	logger observability.Logger,
	opts ...BreakerOption,
) *BreakerStore {
	if logger == nil {
		logger = observability.NopLogger()
	}

	s := &BreakerStore{
		inner:  inner,
		logger: logger,
	}
	for _, opt := range opts {
		opt(s)
	}

	threshold := uint32(defaultBreakerThreshold)
	timeout := defaultBreakerTimeout
	if cfg != nil {
		if cfg.Threshold > 0 {
			threshold = safeIntToUint32(cfg.Threshold)
		}
		if cfg.Timeout > 0 {
			timeout = cfg.Timeout.Duration()
		}
	}

	settings := gobreaker.Settings{
		Name:        inner.Name(),
		MaxRequests: 1,
		Interval:    timeout,
		Timeout:     timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
		IsSuccessful: func(err error) bool {
			// Missing records and bad input are negative outcomes, not
			// backend failures.
			return err == nil ||
				errors.Is(err, ErrSiteNotFound) ||
				errors.Is(err, util.ErrInvalidInput)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			s.logger.Info("site store circuit breaker state change",
				observability.String("store", name),
				observability.String("from", from.String()),
				observability.String("to", to.String()))
			if s.stateCallback != nil {
				s.stateCallback(name, to)
			}
		},
	}

	s.cb = gobreaker.NewCircuitBreaker(settings)
	return s
}

// safeIntToUint32 safely converts int to uint32.
func safeIntToUint32(n int) uint32 {
	if n < 0 {
		return 0
	}
	if n > int(^uint32(0)) {
		return ^uint32(0)
	}
	return uint32(n) //nolint:gosec // bounds checked above
}

// execute runs fn through the breaker, converting open-circuit rejections
// into store errors.
func (s *BreakerStore) execute(op string, fn func() (interface{}, error)) (interface{}, error) {
	out, err := s.cb.Execute(fn)
	if err != nil && (errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests)) {
		s.logger.Warn("site store circuit open",
			observability.String("store", s.inner.Name()),
			observability.String("op", op))
		return nil, util.NewStoreErrorWithCause(s.inner.Name(), op, "circuit breaker open", err)
	}
	return out, err
}

// Name implements Store.
func (s *BreakerStore) Name() string {
	return s.inner.Name()
}

// State returns the current breaker state.
func (s *BreakerStore) State() gobreaker.State {
	return s.cb.State()
}

// FindBySlug implements Store.
func (s *BreakerStore) FindBySlug(ctx context.Context, slug string) (*Site, error) {
	out, err := s.execute("get", func() (interface{}, error) {
		return s.inner.FindBySlug(ctx, slug)
	})
	if err != nil {
		return nil, err
	}
	return out.(*Site), nil
}

// ListBySubdomain implements Store.
func (s *BreakerStore) ListBySubdomain(ctx context.Context, subdomain string) ([]*Site, error) {
	out, err := s.execute("smembers", func() (interface{}, error) {
		return s.inner.ListBySubdomain(ctx, subdomain)
	})
	if err != nil {
		return nil, err
	}
	return out.([]*Site), nil
}

// List implements Store.
func (s *BreakerStore) List(ctx context.Context) ([]*Site, error) {
	out, err := s.execute("smembers", func() (interface{}, error) {
		return s.inner.List(ctx)
	})
	if err != nil {
		return nil, err
	}
	return out.([]*Site), nil
}

// Upsert implements Store.
func (s *BreakerStore) Upsert(ctx context.Context, site *Site) error {
	_, err := s.execute("set", func() (interface{}, error) {
		return nil, s.inner.Upsert(ctx, site)
	})
	return err
}

// Delete implements Store.
func (s *BreakerStore) Delete(ctx context.Context, slug string) error {
	_, err := s.execute("del", func() (interface{}, error) {
		return nil, s.inner.Delete(ctx, slug)
	})
	return err
}

// Close implements Store.
func (s *BreakerStore) Close() error {
	return s.inner.Close()
}
