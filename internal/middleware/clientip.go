package middleware

import (
	"net"
	"net/http"
	"strings"
)

// ClientIPExtractor extracts the originating client IP. With no trusted
// proxies configured it only ever reports RemoteAddr, so forged
// X-Forwarded-For headers cannot spoof an address.
type ClientIPExtractor struct {
	trusted []*net.IPNet
}

// NewClientIPExtractor builds an extractor trusting the given proxy
// addresses, each a CIDR or a single IP. Unparseable entries are skipped.
func NewClientIPExtractor(proxies []string) *ClientIPExtractor {
	nets := make([]*net.IPNet, 0, len(proxies))
	for _, p := range proxies {
		if _, cidr, err := net.ParseCIDR(p); err == nil {
			nets = append(nets, cidr)
			continue
		}
		if ip := net.ParseIP(p); ip != nil {
			bits := 32
			if ip.To4() == nil {
				bits = 128
			}
			nets = append(nets, &net.IPNet{IP: ip, Mask: net.CIDRMask(bits, bits)})
		}
	}
	return &ClientIPExtractor{trusted: nets}
}

// Extract returns the client IP for a request. When the direct peer is a
// trusted proxy it walks X-Forwarded-For right to left and returns the
// first untrusted hop; otherwise the peer address itself.
func (e *ClientIPExtractor) Extract(r *http.Request) string {
	peer := stripPort(r.RemoteAddr)
	if len(e.trusted) == 0 || !e.isTrusted(peer) {
		return peer
	}

	xff := r.Header.Get(HeaderXForwardedFor)
	if xff == "" {
		return peer
	}
	hops := strings.Split(xff, ",")
	for i := len(hops) - 1; i >= 0; i-- {
		hop := strings.TrimSpace(hops[i])
		if hop == "" {
			continue
		}
		if !e.isTrusted(hop) {
			return hop
		}
	}
	return peer
}

func (e *ClientIPExtractor) isTrusted(addr string) bool {
	ip := net.ParseIP(addr)
	if ip == nil {
		return false
	}
	for _, n := range e.trusted {
		if n.Contains(ip) {
			return true
		}
	}
	return false
}

// stripPort drops the port from host:port and [v6]:port addresses.
func stripPort(addr string) string {
	if host, _, err := net.SplitHostPort(addr); err == nil {
		return host
	}
	return addr
}

// globalExtractor backs getClientIP. It defaults to the no-trust
// extractor and is replaced once at startup.
//
//nolint:gochecknoglobals // set once before serving
var globalExtractor = NewClientIPExtractor(nil)

// SetGlobalIPExtractor installs the extractor used by the logging and
// rate-limit middleware. Call once during startup.
func SetGlobalIPExtractor(e *ClientIPExtractor) {
	if e != nil {
		globalExtractor = e
	}
}

func getClientIP(r *http.Request) string {
	return globalExtractor.Extract(r)
}
