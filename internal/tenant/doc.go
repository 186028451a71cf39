// Package tenant carries the current site through request contexts.
//
// Every transport stamps the resolved tenant into the request context with
// NewContext; downstream code reads it with FromContext. The value rides
// context.Context, so concurrent requests can never observe each other's
// tenant and no ambient globals are involved.
//
// Three adapters cover the supported transports, all applying the same
// resolution policy against the site registry:
//
//  1. an explicit X-Multitier-Site header naming a site slug,
//  2. the Host header's first label, matched as a subdomain,
//  3. the first URL path segment, matched as a subdomain, accepted only
//     for sites routed by path prefix.
//
// For gRPC the slug travels in x-multitier-site metadata. A request with no
// resolvable tenant proceeds tenant-less: absence is not an error.
package tenant
