package site

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vberezan/multitier/internal/config"
	"github.com/vberezan/multitier/internal/util"
)

// flakyStore counts calls and fails while failing is set.
type flakyStore struct {
	calls   int64
	failing atomic.Bool
	sites   map[string]*Site
}

func newFlakyStore() *flakyStore {
	return &flakyStore{sites: make(map[string]*Site)}
}

func (s *flakyStore) err(op string) error {
	if s.failing.Load() {
		return util.NewStoreError("flaky", op, "backend down")
	}
	return nil
}

func (s *flakyStore) Name() string { return "flaky" }

func (s *flakyStore) FindBySlug(_ context.Context, slug string) (*Site, error) {
	atomic.AddInt64(&s.calls, 1)
	if err := s.err("get"); err != nil {
		return nil, err
	}
	rec, ok := s.sites[slug]
	if !ok {
		return nil, ErrSiteNotFound
	}
	return rec.Clone(), nil
}

func (s *flakyStore) ListBySubdomain(_ context.Context, subdomain string) ([]*Site, error) {
	atomic.AddInt64(&s.calls, 1)
	if err := s.err("smembers"); err != nil {
		return nil, err
	}
	var matches []*Site
	for _, rec := range s.sites {
		if rec.Subdomain == subdomain {
			matches = append(matches, rec.Clone())
		}
	}
	return matches, nil
}

func (s *flakyStore) List(_ context.Context) ([]*Site, error) {
	atomic.AddInt64(&s.calls, 1)
	if err := s.err("smembers"); err != nil {
		return nil, err
	}
	var sites []*Site
	for _, rec := range s.sites {
		sites = append(sites, rec.Clone())
	}
	return sites, nil
}

func (s *flakyStore) Upsert(_ context.Context, site *Site) error {
	atomic.AddInt64(&s.calls, 1)
	if err := s.err("set"); err != nil {
		return err
	}
	s.sites[site.Slug] = site.Clone()
	return nil
}

func (s *flakyStore) Delete(_ context.Context, slug string) error {
	atomic.AddInt64(&s.calls, 1)
	if err := s.err("del"); err != nil {
		return err
	}
	delete(s.sites, slug)
	return nil
}

func (s *flakyStore) Close() error { return nil }

func breakerConfig(threshold int, timeout time.Duration) *config.BreakerConfig {
	return &config.BreakerConfig{
		Enabled:   true,
		Threshold: threshold,
		Timeout:   config.Duration(timeout),
	}
}

func TestBreakerStorePassthrough(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	inner := newFlakyStore()
	store := NewBreakerStore(inner, breakerConfig(3, time.Second), nil)

	require.NoError(t, store.Upsert(ctx, &Site{Slug: "acme", Subdomain: "acme"}))

	rec, err := store.FindBySlug(ctx, "acme")
	require.NoError(t, err)
	assert.Equal(t, "acme", rec.Slug)

	matches, err := store.ListBySubdomain(ctx, "acme")
	require.NoError(t, err)
	assert.Len(t, matches, 1)

	sites, err := store.List(ctx)
	require.NoError(t, err)
	assert.Len(t, sites, 1)

	require.NoError(t, store.Delete(ctx, "acme"))
	assert.Equal(t, "flaky", store.Name())
	assert.Equal(t, gobreaker.StateClosed, store.State())
}

func TestBreakerStoreOpensAfterConsecutiveFailures(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	inner := newFlakyStore()
	inner.failing.Store(true)
	store := NewBreakerStore(inner, breakerConfig(3, time.Minute), nil)

	for i := 0; i < 3; i++ {
		_, err := store.FindBySlug(ctx, "acme")
		require.Error(t, err)
	}
	assert.Equal(t, gobreaker.StateOpen, store.State())

	before := atomic.LoadInt64(&inner.calls)
	_, err := store.FindBySlug(ctx, "acme")
	require.Error(t, err)
	assert.ErrorIs(t, err, util.ErrStoreUnavailable)

	// The open circuit rejects without touching the backend.
	assert.Equal(t, before, atomic.LoadInt64(&inner.calls))
}

func TestBreakerStoreNotFoundDoesNotTrip(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	inner := newFlakyStore()
	store := NewBreakerStore(inner, breakerConfig(2, time.Minute), nil)

	for i := 0; i < 10; i++ {
		_, err := store.FindBySlug(ctx, "ghost")
		assert.ErrorIs(t, err, ErrSiteNotFound)
	}
	assert.Equal(t, gobreaker.StateClosed, store.State())
}

func TestBreakerStoreRecovers(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	inner := newFlakyStore()
	inner.failing.Store(true)
	store := NewBreakerStore(inner, breakerConfig(2, 50*time.Millisecond), nil)

	for i := 0; i < 2; i++ {
		_, _ = store.FindBySlug(ctx, "acme")
	}
	require.Equal(t, gobreaker.StateOpen, store.State())

	inner.failing.Store(false)
	time.Sleep(80 * time.Millisecond)

	// First call after the timeout runs half-open and closes the circuit.
	_, err := store.FindBySlug(ctx, "acme")
	assert.ErrorIs(t, err, ErrSiteNotFound)
	assert.Equal(t, gobreaker.StateClosed, store.State())
}

func TestBreakerStoreStateCallback(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	inner := newFlakyStore()
	inner.failing.Store(true)

	var transitions []gobreaker.State
	store := NewBreakerStore(inner, breakerConfig(2, time.Minute), nil,
		WithBreakerStateCallback(func(_ string, state gobreaker.State) {
			transitions = append(transitions, state)
		}))

	for i := 0; i < 2; i++ {
		_, _ = store.FindBySlug(ctx, "acme")
	}

	require.NotEmpty(t, transitions)
	assert.Equal(t, gobreaker.StateOpen, transitions[len(transitions)-1])
}
