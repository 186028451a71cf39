package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/vberezan/multitier/internal/util"
)

func TestRouteRecordingPublishesUpward(t *testing.T) {
	t.Parallel()

	// observed plays the part of a middleware between RouteRecording
	// and the handler that stamps the route.
	var observed string
	observer := func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			next.ServeHTTP(w, r)
			observed = util.RouteNameFromContext(r.Context())
		})
	}

	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		util.ContextWithRouteName(r.Context(), "profile")
		w.WriteHeader(http.StatusOK)
	})

	chain := RouteRecording()(observer(handler))

	req := httptest.NewRequest(http.MethodGet, "/user/42/", nil)
	rec := httptest.NewRecorder()
	chain.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "profile", observed)
}

func TestRouteRecordingWithoutStampReadsEmpty(t *testing.T) {
	t.Parallel()

	var observed string
	chain := RouteRecording()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		observed = util.RouteNameFromContext(r.Context())
		w.WriteHeader(http.StatusNoContent)
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	chain.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Empty(t, observed)
}
