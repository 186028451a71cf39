package observability

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewTracer_Disabled(t *testing.T) {
	t.Parallel()

	tracer, err := NewTracer(TracerConfig{
		ServiceName: "test",
		Enabled:     false,
	})

	require.NoError(t, err)
	assert.NotNil(t, tracer)
	assert.NoError(t, tracer.Shutdown(context.Background()))
}

func TestNewTracer_EnabledWithoutEndpoint(t *testing.T) {
	t.Parallel()

	tracer, err := NewTracer(TracerConfig{
		ServiceName:  "test",
		Enabled:      true,
		SamplingRate: 1.0,
	})

	require.NoError(t, err)
	assert.NotNil(t, tracer)

	ctx, span := tracer.StartSpan(context.Background(), "test-span")
	assert.NotNil(t, span)
	assert.NotNil(t, SpanFromContext(ctx))
	span.End()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	assert.NoError(t, tracer.Shutdown(shutdownCtx))
}

func TestCreateSampler(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		rate float64
	}{
		{name: "always sample", rate: 1.0},
		{name: "never sample", rate: 0},
		{name: "ratio sample", rate: 0.5},
		{name: "above one", rate: 2.0},
		{name: "negative", rate: -1},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			sampler := createSampler(tt.rate)
			assert.NotNil(t, sampler)
		})
	}
}

func TestBuildRetryConfig(t *testing.T) {
	t.Parallel()

	defaults := buildRetryConfig(nil)
	assert.True(t, defaults.Enabled)
	assert.Equal(t, DefaultOTLPRetryInitialInterval, defaults.InitialInterval)
	assert.Equal(t, DefaultOTLPRetryMaxInterval, defaults.MaxInterval)
	assert.Equal(t, DefaultOTLPRetryMaxElapsedTime, defaults.MaxElapsedTime)

	custom := buildRetryConfig(&OTLPRetryConfig{
		Enabled:         true,
		InitialInterval: 2 * time.Second,
	})
	assert.Equal(t, 2*time.Second, custom.InitialInterval)
	assert.Equal(t, DefaultOTLPRetryMaxInterval, custom.MaxInterval)
}

func TestTracingMiddleware(t *testing.T) {
	t.Parallel()

	tracer, err := NewTracer(TracerConfig{
		ServiceName:  "test",
		Enabled:      true,
		SamplingRate: 1.0,
	})
	require.NoError(t, err)

	var handlerCalled bool
	handler := TracingMiddleware(tracer)(http.HandlerFunc(
		func(w http.ResponseWriter, r *http.Request) {
			handlerCalled = true
			span := SpanFromContext(r.Context())
			assert.NotNil(t, span)
			w.WriteHeader(http.StatusOK)
		},
	))

	req := httptest.NewRequest(http.MethodGet, "/acme/user/42/", nil)
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	assert.True(t, handlerCalled)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestTracingMiddleware_ErrorStatus(t *testing.T) {
	t.Parallel()

	tracer, err := NewTracer(TracerConfig{
		ServiceName:  "test",
		Enabled:      true,
		SamplingRate: 1.0,
	})
	require.NoError(t, err)

	handler := TracingMiddleware(tracer)(http.HandlerFunc(
		func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNotFound)
		},
	))

	req := httptest.NewRequest(http.MethodGet, "/missing", nil)
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}
