package tenant

import (
	"context"

	"github.com/vberezan/multitier/internal/site"
)

// Context keys.
type ctxKey string

const ctxKeySite ctxKey = "site"

// NewContext returns a context carrying the site record.
func NewContext(ctx context.Context, s *site.Site) context.Context {
	return context.WithValue(ctx, ctxKeySite, s)
}

// FromContext returns the site carried by ctx, if any.
func FromContext(ctx context.Context) (*site.Site, bool) {
	s, ok := ctx.Value(ctxKeySite).(*site.Site)
	if !ok || s == nil {
		return nil, false
	}
	return s, true
}
