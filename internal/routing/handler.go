package routing

import "net/http"

// Handler is the endpoint a route dispatches to. The key identifies the
// handler in reverse lookups and configuration wiring and must be
// unique across the forest.
type Handler struct {
	key string
	fn  http.HandlerFunc
}

// NewHandler binds a key to a handler function.
func NewHandler(key string, fn http.HandlerFunc) *Handler {
	return &Handler{key: key, fn: fn}
}

// Key returns the handler's identity.
func (h *Handler) Key() string {
	return h.key
}

// ServeHTTP implements http.Handler.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if h.fn != nil {
		h.fn(w, r)
	}
}
