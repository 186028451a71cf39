package site

import (
	"context"
	"errors"

	"github.com/vberezan/multitier/internal/config"
	"github.com/vberezan/multitier/internal/observability"
)

// Common registry errors.
var (
	// ErrSiteNotFound indicates that no site matched the lookup.
	ErrSiteNotFound = errors.New("site not found")

	// ErrInvalidConfig indicates that the registry configuration is invalid.
	ErrInvalidConfig = errors.New("invalid registry configuration")
)

// Store persists site records. Implementations return copies: callers may
// mutate returned records without affecting stored state.
type Store interface {
	// Name identifies the backend for logs and metrics labels.
	Name() string

	// FindBySlug returns the record stored under slug.
	// Returns ErrSiteNotFound when absent.
	FindBySlug(ctx context.Context, slug string) (*Site, error)

	// ListBySubdomain returns every record whose Subdomain equals
	// subdomain, in no particular order. An empty result is not an error:
	// selection policy belongs to the Registry.
	ListBySubdomain(ctx context.Context, subdomain string) ([]*Site, error)

	// List returns every record in the store.
	List(ctx context.Context) ([]*Site, error)

	// Upsert creates or replaces the record stored under site.Slug.
	Upsert(ctx context.Context, site *Site) error

	// Delete removes the record stored under slug. Deleting an absent slug
	// is not an error.
	Delete(ctx context.Context, slug string) error

	// Close releases backend resources.
	Close() error
}

// New creates a site store from the registry configuration. Memory is the
// default backend. The redis backend is wrapped in a circuit breaker when
// one is configured.
func New(cfg *config.RegistryConfig, logger observability.Logger) (Store, error) {
	if cfg == nil {
		return nil, ErrInvalidConfig
	}
	if logger == nil {
		logger = observability.NopLogger()
	}

	switch cfg.Backend {
	case config.RegistryBackendMemory, "":
		return NewMemoryStore(logger), nil
	case config.RegistryBackendRedis:
		store, err := NewRedisStore(cfg.Redis, logger)
		if err != nil {
			return nil, err
		}
		if cfg.Breaker != nil && cfg.Breaker.Enabled {
			return NewBreakerStore(store, cfg.Breaker, logger), nil
		}
		return store, nil
	default:
		return nil, errors.New("unknown registry backend: " + cfg.Backend)
	}
}

// FromConfig converts configured site records into store records.
func FromConfig(cfgs []config.SiteConfig) []*Site {
	sites := make([]*Site, 0, len(cfgs))
	for _, c := range cfgs {
		sites = append(sites, &Site{
			Slug:         c.Slug,
			Subdomain:    c.Subdomain,
			Domain:       c.Domain,
			Theme:        c.Theme,
			Base:         c.Base,
			Account:      c.Account,
			DBName:       c.DBName,
			DBHost:       c.DBHost,
			DBPort:       c.DBPort,
			Tag:          c.Tag,
			IsActive:     c.IsActive,
			IsPathPrefix: c.IsPathPrefix,
			CreatedAt:    c.CreatedAt,
		})
	}
	return sites
}
