package middleware

import (
	"net/http"

	"github.com/vberezan/multitier/internal/util"
)

// RouteRecording seeds a mutable route slot in the request context.
// The dispatch layer publishes the matched route through the slot, so
// middleware installed between RouteRecording and the dispatcher, such
// as Logging and the metrics middleware, can label by route after the
// handler returns.
func RouteRecording() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			next.ServeHTTP(w, r.WithContext(util.ContextWithRouteRecording(r.Context())))
		})
	}
}
