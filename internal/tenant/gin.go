package tenant

import (
	"github.com/gin-gonic/gin"

	"github.com/vberezan/multitier/internal/observability"
	"github.com/vberezan/multitier/internal/site"
)

// GinKey is the gin context key under which the resolved site is stored.
const GinKey = "multitier.site"

// GinMiddleware resolves the tenant for gin handler chains. The site is
// stamped into both the request context and the gin context.
func GinMiddleware(registry Registry, logger observability.Logger) gin.HandlerFunc {
	resolver := NewResolver(registry, logger)
	return func(c *gin.Context) {
		rec := resolver.Resolve(c.Request.Context(), c.GetHeader(SiteHeader), c.Request.Host, c.Request.URL.Path)
		if rec != nil {
			c.Request = c.Request.WithContext(NewContext(c.Request.Context(), rec))
			c.Set(GinKey, rec)
		}
		c.Next()
	}
}

// FromGin returns the site resolved for a gin request, if any.
func FromGin(c *gin.Context) (*site.Site, bool) {
	if v, ok := c.Get(GinKey); ok {
		if rec, ok := v.(*site.Site); ok && rec != nil {
			return rec, true
		}
	}
	return FromContext(c.Request.Context())
}
