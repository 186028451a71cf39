package tenant

import (
	"net/http"

	"github.com/vberezan/multitier/internal/observability"
)

// Middleware resolves the tenant for each request and stamps it into the
// request context. Requests that match no site pass through unchanged.
func Middleware(registry Registry, logger observability.Logger) func(http.Handler) http.Handler {
	resolver := NewResolver(registry, logger)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			rec := resolver.Resolve(r.Context(), r.Header.Get(SiteHeader), r.Host, r.URL.Path)
			if rec != nil {
				r = r.WithContext(NewContext(r.Context(), rec))
			}
			next.ServeHTTP(w, r)
		})
	}
}
