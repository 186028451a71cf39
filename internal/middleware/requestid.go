package middleware

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/vberezan/multitier/internal/observability"
)

// RequestID returns a middleware that assigns each request an ID,
// honoring one already present on the X-Request-ID header.
func RequestID() func(http.Handler) http.Handler {
	return RequestIDWithGenerator(func() string {
		return uuid.New().String()
	})
}

// RequestIDWithGenerator returns a request-ID middleware using a custom
// ID generator.
func RequestIDWithGenerator(generate func() string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := r.Header.Get(HeaderXRequestID)
			if id == "" {
				id = generate()
			}

			ctx := observability.ContextWithRequestID(r.Context(), id)
			r = r.WithContext(ctx)

			w.Header().Set(HeaderXRequestID, id)

			next.ServeHTTP(w, r)
		})
	}
}
