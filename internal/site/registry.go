package site

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/vberezan/multitier/internal/observability"
	"github.com/vberezan/multitier/internal/util"
)

// Registry is the tenant lookup facade over a Store. It owns the selection
// policy for subdomain lookups and validates records before they are
// written. Stores persist; the registry decides.
type Registry struct {
	store   Store
	logger  observability.Logger
	metrics *observability.Metrics
}

// NewRegistry creates a registry over the given store. The metrics value
// may be nil.
func NewRegistry(store Store, logger observability.Logger, metrics *observability.Metrics) *Registry {
	if logger == nil {
		logger = observability.NopLogger()
	}
	return &Registry{
		store:   store,
		logger:  logger,
		metrics: metrics,
	}
}

// FindBySubdomain returns the record served under subdomain. When several
// records share the subdomain, records carrying an explicit domain sort
// before bare-subdomain records and remaining ties go to the most recently
// created record. Returns ErrSiteNotFound when nothing matches.
func (r *Registry) FindBySubdomain(ctx context.Context, subdomain string) (*Site, error) {
	start := time.Now()
	matches, err := r.store.ListBySubdomain(ctx, subdomain)
	r.observe("listBySubdomain", start)
	if err != nil {
		r.recordLookup("error")
		r.logger.Error("site lookup failed",
			observability.String("subdomain", subdomain),
			observability.Error(err))
		return nil, err
	}
	if len(matches) == 0 {
		r.recordLookup("miss")
		return nil, ErrSiteNotFound
	}

	rec := selectSite(matches)
	r.recordLookup("hit")
	r.resolveBase(ctx, rec)

	r.logger.Debug("site resolved",
		observability.String("subdomain", subdomain),
		observability.String("slug", rec.Slug))
	return rec, nil
}

// FindBySlug returns the record stored under slug, with its base record
// attached when one is referenced.
func (r *Registry) FindBySlug(ctx context.Context, slug string) (*Site, error) {
	start := time.Now()
	rec, err := r.store.FindBySlug(ctx, slug)
	r.observe("get", start)
	if err != nil {
		if errors.Is(err, ErrSiteNotFound) {
			r.recordLookup("miss")
		} else {
			r.recordLookup("error")
		}
		return nil, err
	}

	r.recordLookup("hit")
	r.resolveBase(ctx, rec)
	return rec, nil
}

// List returns every record, sorted by slug.
func (r *Registry) List(ctx context.Context) ([]*Site, error) {
	start := time.Now()
	sites, err := r.store.List(ctx)
	r.observe("list", start)
	if err != nil {
		return nil, err
	}
	sort.Slice(sites, func(i, j int) bool {
		return sites[i].Slug < sites[j].Slug
	})
	return sites, nil
}

// Upsert validates the record and writes it. The stored copy gets a
// creation timestamp when the record carries none.
func (r *Registry) Upsert(ctx context.Context, rec *Site) error {
	if rec == nil {
		return util.WrapError(util.ErrInvalidInput, "site record is required")
	}

	rec = rec.Clone()
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	if err := rec.Validate(); err != nil {
		return err
	}

	start := time.Now()
	err := r.store.Upsert(ctx, rec)
	r.observe("set", start)
	if err != nil {
		return err
	}

	r.logger.Info("site stored",
		observability.String("slug", rec.Slug),
		observability.String("subdomain", rec.Subdomain),
		observability.String("domain", rec.Domain))
	return nil
}

// Delete removes the record stored under slug.
func (r *Registry) Delete(ctx context.Context, slug string) error {
	start := time.Now()
	err := r.store.Delete(ctx, slug)
	r.observe("del", start)
	if err != nil {
		return err
	}

	r.logger.Info("site deleted",
		observability.String("slug", slug))
	return nil
}

// Close closes the underlying store.
func (r *Registry) Close() error {
	return r.store.Close()
}

// selectSite orders candidates by domain descending, so records with an
// explicit domain come before records without one, then by creation time
// descending, then by slug for a stable result. Returns the winner.
func selectSite(matches []*Site) *Site {
	sort.SliceStable(matches, func(i, j int) bool {
		a, b := matches[i], matches[j]
		if a.Domain != b.Domain {
			return a.Domain > b.Domain
		}
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.After(b.CreatedAt)
		}
		return a.Slug > b.Slug
	})
	return matches[0]
}

// resolveBase attaches the parent record referenced by Base. A dangling
// reference leaves the site as its own base.
func (r *Registry) resolveBase(ctx context.Context, rec *Site) {
	if rec.Base == "" || rec.Base == rec.Slug {
		return
	}
	parent, err := r.store.FindBySlug(ctx, rec.Base)
	if err != nil {
		if !errors.Is(err, ErrSiteNotFound) {
			r.logger.Warn("base site lookup failed",
				observability.String("slug", rec.Slug),
				observability.String("base", rec.Base),
				observability.Error(err))
		}
		return
	}
	rec.base = parent
}

func (r *Registry) observe(op string, start time.Time) {
	if r.metrics == nil {
		return
	}
	r.metrics.ObserveStoreLatency(r.store.Name(), op, time.Since(start))
}

func (r *Registry) recordLookup(result string) {
	if r.metrics == nil {
		return
	}
	r.metrics.RecordSiteLookup(r.store.Name(), result)
}
