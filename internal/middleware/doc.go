// Package middleware provides the HTTP middleware chain for the
// multitier daemon: request IDs, request logging, panic recovery, and
// per-tenant rate limiting. Tenant resolution itself lives in the
// tenant package; metrics collection in observability.
package middleware
