package site

import (
	"path/filepath"
	"time"
)

// Site is a single tenant record.
type Site struct {
	// Slug uniquely identifies the site across all stores.
	Slug string `json:"slug" yaml:"slug"`

	// Subdomain is the routing key under the shared platform domain. It is
	// not required to be unique: several records may share a subdomain and
	// the registry selection policy picks one.
	Subdomain string `json:"subdomain,omitempty" yaml:"subdomain,omitempty"`

	// Domain is an optional fully qualified domain name at which the site
	// is available. Records with a domain outrank bare-subdomain records
	// during lookup.
	Domain string `json:"domain,omitempty" yaml:"domain,omitempty"`

	// Theme is an alternative search name for locating templates.
	Theme string `json:"theme,omitempty" yaml:"theme,omitempty"`

	// Base references the parent site's slug when this site derives from
	// another. Resolution follows at most one hop.
	Base string `json:"base,omitempty" yaml:"base,omitempty"`

	// Account references the owning account.
	Account string `json:"account,omitempty" yaml:"account,omitempty"`

	// DBName is the name of the database serving the site.
	DBName string `json:"dbName,omitempty" yaml:"dbName,omitempty"`

	// DBHost is the host to connect to to access the database.
	DBHost string `json:"dbHost,omitempty" yaml:"dbHost,omitempty"`

	// DBPort is the port to connect to to access the database.
	DBPort int `json:"dbPort,omitempty" yaml:"dbPort,omitempty"`

	// Tag is a free-form operator label.
	Tag string `json:"tag,omitempty" yaml:"tag,omitempty"`

	// IsActive gates whether the site serves traffic.
	IsActive bool `json:"isActive" yaml:"isActive"`

	// IsPathPrefix marks a site routed under a URL path segment instead of
	// a distinct host.
	IsPathPrefix bool `json:"isPathPrefix" yaml:"isPathPrefix"`

	// CreatedAt orders records for the registry selection policy.
	CreatedAt time.Time `json:"createdAt,omitempty" yaml:"createdAt,omitempty"`

	// base is the resolved parent record, attached by the registry.
	base *Site
}

// Clone returns a copy of the record. The resolved base pointer is shared,
// never deep-copied.
func (s *Site) Clone() *Site {
	c := *s
	return &c
}

// AsBase returns the parent site when one is attached, else the site
// itself. Resolution is one hop: a base's own Base reference is never
// followed.
func (s *Site) AsBase() *Site {
	if s.base != nil {
		return s.base
	}
	return s
}

// AsSubdomain returns the subdomain under which the site is served, falling
// back to the slug when no subdomain is set.
func (s *Site) AsSubdomain() string {
	if s.Subdomain != "" {
		return s.Subdomain
	}
	return s.Slug
}

// IsAlias reports whether the site is an alias for its base: it carries a
// base reference and its subdomain equals the base's slug.
func (s *Site) IsAlias() bool {
	return s.Base != "" && s.Subdomain == s.Base
}

// PrintableName returns the subdomain when set, else the slug.
func (s *Site) PrintableName() string {
	if s.Subdomain != "" {
		return s.Subdomain
	}
	return s.Slug
}

// PathPrefix returns the URL segment the site's routes live under, or the
// empty string for sites routed by host.
func (s *Site) PathPrefix() string {
	if !s.IsPathPrefix {
		return ""
	}
	return s.AsSubdomain()
}

// Templates returns candidate theme names in search order: the explicit
// theme (when set), then the slug, then the subdomain (when set).
func (s *Site) Templates() []string {
	var names []string
	if s.Theme != "" {
		names = []string{s.Theme, s.Slug}
	} else {
		names = []string{s.Slug}
	}
	if s.Subdomain != "" {
		names = append(names, s.Subdomain)
	}
	return names
}

// TemplateDirs returns candidate template search paths: for each theme root
// and each candidate theme name, <root>/<name>/templates, in order.
func (s *Site) TemplateDirs(roots []string) []string {
	names := s.Templates()
	dirs := make([]string, 0, len(roots)*len(names))
	for _, root := range roots {
		for _, name := range names {
			dirs = append(dirs, filepath.Join(root, name, "templates"))
		}
	}
	return dirs
}
