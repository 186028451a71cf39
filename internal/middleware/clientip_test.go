package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClientIPExtractorNoTrustedProxies(t *testing.T) {
	t.Parallel()

	e := NewClientIPExtractor(nil)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "203.0.113.7:4711"
	req.Header.Set(HeaderXForwardedFor, "198.51.100.1")

	// forwarding headers are ignored without trusted proxies
	assert.Equal(t, "203.0.113.7", e.Extract(req))
}

func TestClientIPExtractorTrustedProxy(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		trusted    []string
		remoteAddr string
		xff        string
		expected   string
	}{
		{
			name:       "walks XFF right to left",
			trusted:    []string{"10.0.0.0/8"},
			remoteAddr: "10.0.0.5:80",
			xff:        "198.51.100.1, 10.0.0.9",
			expected:   "198.51.100.1",
		},
		{
			name:       "single IP proxy entry",
			trusted:    []string{"10.0.0.5"},
			remoteAddr: "10.0.0.5:80",
			xff:        "198.51.100.1",
			expected:   "198.51.100.1",
		},
		{
			name:       "untrusted peer ignores XFF",
			trusted:    []string{"10.0.0.0/8"},
			remoteAddr: "203.0.113.7:80",
			xff:        "198.51.100.1",
			expected:   "203.0.113.7",
		},
		{
			name:       "all hops trusted falls back to peer",
			trusted:    []string{"10.0.0.0/8"},
			remoteAddr: "10.0.0.5:80",
			xff:        "10.0.0.1, 10.0.0.2",
			expected:   "10.0.0.5",
		},
		{
			name:       "empty XFF falls back to peer",
			trusted:    []string{"10.0.0.0/8"},
			remoteAddr: "10.0.0.5:80",
			xff:        "",
			expected:   "10.0.0.5",
		},
		{
			name:       "garbage trusted entries are skipped",
			trusted:    []string{"not-a-cidr", "10.0.0.0/8"},
			remoteAddr: "10.0.0.5:80",
			xff:        "198.51.100.1",
			expected:   "198.51.100.1",
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			e := NewClientIPExtractor(tt.trusted)

			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tt.remoteAddr
			if tt.xff != "" {
				req.Header.Set(HeaderXForwardedFor, tt.xff)
			}

			assert.Equal(t, tt.expected, e.Extract(req))
		})
	}
}

func TestStripPort(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "192.0.2.1", stripPort("192.0.2.1:8080"))
	assert.Equal(t, "::1", stripPort("[::1]:8080"))
	assert.Equal(t, "192.0.2.1", stripPort("192.0.2.1"))
}

func TestSetGlobalIPExtractor(t *testing.T) {
	// Not parallel: mutates the package-level extractor

	original := globalExtractor
	defer func() { globalExtractor = original }()

	e := NewClientIPExtractor([]string{"10.0.0.0/8"})
	SetGlobalIPExtractor(e)
	assert.Same(t, e, globalExtractor)

	// nil leaves the current extractor in place
	SetGlobalIPExtractor(nil)
	assert.Same(t, e, globalExtractor)
}
