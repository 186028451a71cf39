package site

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/vberezan/multitier/internal/observability"
	"github.com/vberezan/multitier/internal/util"
)

// MemoryStore keeps site records in a mutex-guarded snapshot. It backs
// single-node deployments seeded from the configuration file; Replace swaps
// the whole snapshot on hot reload.
type MemoryStore struct {
	logger observability.Logger

	mu    sync.RWMutex
	sites map[string]*Site
}

// NewMemoryStore creates an empty in-memory site store.
func NewMemoryStore(logger observability.Logger) *MemoryStore {
	if logger == nil {
		logger = observability.NopLogger()
	}
	return &MemoryStore{
		logger: logger,
		sites:  make(map[string]*Site),
	}
}

// Name implements Store.
func (s *MemoryStore) Name() string {
	return "memory"
}

// FindBySlug implements Store.
func (s *MemoryStore) FindBySlug(_ context.Context, slug string) (*Site, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.sites[slug]
	if !ok {
		return nil, ErrSiteNotFound
	}
	return rec.Clone(), nil
}

// ListBySubdomain implements Store.
func (s *MemoryStore) ListBySubdomain(_ context.Context, subdomain string) ([]*Site, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var matches []*Site
	for _, rec := range s.sites {
		if rec.Subdomain == subdomain {
			matches = append(matches, rec.Clone())
		}
	}
	return matches, nil
}

// List implements Store. Records are returned sorted by slug.
func (s *MemoryStore) List(_ context.Context) ([]*Site, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sites := make([]*Site, 0, len(s.sites))
	for _, rec := range s.sites {
		sites = append(sites, rec.Clone())
	}
	sort.Slice(sites, func(i, j int) bool {
		return sites[i].Slug < sites[j].Slug
	})
	return sites, nil
}

// Upsert implements Store.
func (s *MemoryStore) Upsert(_ context.Context, site *Site) error {
	if site == nil || site.Slug == "" {
		return fmt.Errorf("%w: site slug is required", util.ErrInvalidInput)
	}

	s.mu.Lock()
	s.sites[site.Slug] = site.Clone()
	s.mu.Unlock()

	s.logger.Debug("site stored",
		observability.String("slug", site.Slug),
		observability.String("subdomain", site.Subdomain))
	return nil
}

// Delete implements Store.
func (s *MemoryStore) Delete(_ context.Context, slug string) error {
	s.mu.Lock()
	delete(s.sites, slug)
	s.mu.Unlock()

	s.logger.Debug("site deleted",
		observability.String("slug", slug))
	return nil
}

// Replace swaps the entire snapshot. Used by configuration hot reload: the
// new record set becomes visible atomically.
func (s *MemoryStore) Replace(_ context.Context, sites []*Site) error {
	next := make(map[string]*Site, len(sites))
	for _, rec := range sites {
		if rec == nil || rec.Slug == "" {
			return fmt.Errorf("%w: site slug is required", util.ErrInvalidInput)
		}
		next[rec.Slug] = rec.Clone()
	}

	s.mu.Lock()
	s.sites = next
	s.mu.Unlock()

	s.logger.Info("site snapshot replaced",
		observability.Int("sites", len(next)))
	return nil
}

// Len returns the number of stored records.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sites)
}

// Close implements Store.
func (s *MemoryStore) Close() error {
	s.mu.Lock()
	s.sites = make(map[string]*Site)
	s.mu.Unlock()

	s.logger.Info("memory site store closed")
	return nil
}
