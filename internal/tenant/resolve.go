package tenant

import (
	"context"
	"errors"
	"net"
	"strings"

	"github.com/vberezan/multitier/internal/observability"
	"github.com/vberezan/multitier/internal/site"
)

const (
	// SiteHeader is the request header naming an explicit site slug.
	SiteHeader = "X-Multitier-Site"

	// MetadataKey is the gRPC metadata key naming an explicit site slug.
	MetadataKey = "x-multitier-site"
)

// Registry is the subset of the site registry the adapters need.
type Registry interface {
	FindBySlug(ctx context.Context, slug string) (*site.Site, error)
	FindBySubdomain(ctx context.Context, subdomain string) (*site.Site, error)
}

// Resolver resolves the tenant for incoming requests.
type Resolver struct {
	registry Registry
	logger   observability.Logger
}

// NewResolver creates a resolver over the given registry.
func NewResolver(registry Registry, logger observability.Logger) *Resolver {
	if logger == nil {
		logger = observability.NopLogger()
	}
	return &Resolver{
		registry: registry,
		logger:   logger,
	}
}

// Resolve picks the tenant for a request: an explicit slug override wins,
// then the host's first label matched as a subdomain, then the first path
// segment for sites routed by path prefix. Returns nil when nothing
// matches; registry trouble degrades to a tenant-less request rather than
// failing it.
func (r *Resolver) Resolve(ctx context.Context, slug, host, path string) *site.Site {
	if slug != "" {
		rec, err := r.registry.FindBySlug(ctx, slug)
		if err == nil {
			return rec
		}
		r.warn("slug", slug, err)
	}

	if label := hostLabel(host); label != "" {
		rec, err := r.registry.FindBySubdomain(ctx, label)
		if err == nil {
			return rec
		}
		r.warn("host", label, err)
	}

	if seg := firstPathSegment(path); seg != "" {
		rec, err := r.registry.FindBySubdomain(ctx, seg)
		if err == nil && rec.IsPathPrefix {
			return rec
		}
		r.warn("path", seg, err)
	}

	return nil
}

// warn logs registry failures. Plain misses stay silent: they are the
// normal fall-through between resolution sources.
func (r *Resolver) warn(source, key string, err error) {
	if err == nil || errors.Is(err, site.ErrSiteNotFound) {
		return
	}
	r.logger.Warn("tenant lookup failed",
		observability.String("source", source),
		observability.String("key", key),
		observability.Error(err))
}

// hostLabel extracts the first DNS label from a Host header value.
// IP literals carry no subdomain and yield the empty string.
func hostLabel(host string) string {
	if host == "" {
		return ""
	}
	if h, _, err := net.SplitHostPort(host); err == nil {
		host = h
	}
	host = strings.Trim(host, "[]")
	if net.ParseIP(host) != nil {
		return ""
	}
	label, _, _ := strings.Cut(host, ".")
	return label
}

// firstPathSegment returns the first non-empty URL path segment.
func firstPathSegment(path string) string {
	path = strings.TrimPrefix(path, "/")
	seg, _, _ := strings.Cut(path, "/")
	return seg
}
