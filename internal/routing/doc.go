// Package routing implements tenant-aware URL resolution over an
// immutable pattern forest.
//
// The forest is built once at startup from NewRoute, NewGroup, and
// Routes. At request time the Resolver matches paths and reverses route
// names against per-tenant tables: every distinct tenant path prefix
// observed at runtime gets its own lazily-built reverse-lookup,
// namespace, and app table, with the prefix baked into every stored
// pattern. Tenant-less requests use the sentinel "_" prefix, which
// compiles to a no-op so the unprefixed forest resolves as-is.
//
// # Concurrency
//
// The forest is immutable after construction and shared by reference
// across all prefixes. Tables are built into local maps and published
// complete under a per-group lock, so concurrent first-time builds of
// the same prefix serialize and a partially-built table is never
// visible. A call-chain guard makes re-entrant population of a group a
// silent no-op instead of unbounded recursion.
//
// # Usage
//
// Build the forest, wrap it in a resolver, and resolve per request:
//
//	profile, _ := routing.NewRoute(`^user/(?P<id>\d+)/$`, handler, routing.Name("profile"))
//	root, _ := routing.Routes(profile)
//	resolver, _ := routing.NewResolver(root)
//
//	match, err := resolver.ResolvePath(ctx, r.URL.Path)
//	url, err := resolver.Reverse(ctx, "profile", map[string]string{"id": "42"})
//
// The active tenant rides the context (see package tenant); its path
// prefix selects the table set.
package routing
