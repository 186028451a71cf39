// Package site manages tenant site records for the multitier routing layer.
//
// A Site describes one tenant: where it is reachable (subdomain, optional
// fully qualified domain, optional URL path prefix), how it is themed, and
// which database serves it. Records are provisioned administratively and
// read on every request, so the package favors read-mostly snapshots; every
// store returns copies that callers may mutate.
//
// # Stores
//
// The Store interface abstracts persistence. MemoryStore holds a
// mutex-guarded snapshot seeded from configuration and replaced wholesale on
// reload. RedisStore keeps JSON records with a subdomain index for shared
// deployments. BreakerStore decorates any Store with a circuit breaker so a
// failing backend degrades to fast util.ErrStoreUnavailable errors instead
// of piling up timeouts. New assembles the chain from configuration.
//
// # Registry
//
// Registry is the lookup facade used by request handling. FindBySubdomain
// applies the selection policy over every record sharing a subdomain:
// records carrying an explicit domain outrank bare-subdomain records, and
// remaining ties go to the most recently created record.
//
//	rec, err := registry.FindBySubdomain(ctx, "acme")
//	if errors.Is(err, site.ErrSiteNotFound) {
//		// serve the default tenant
//	}
//
// Registry.Upsert validates records before they reach a store; violations
// surface as *util.ValidationError, never as a resolution-time fault.
package site
