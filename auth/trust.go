package auth

import (
	"net"
	"net/http"
	"strings"
)

// localAddrs are the loopback identifiers that mark a request as locally
// trusted. Exact string match only; no CIDR or subnet logic.
var localAddrs = map[string]bool{
	"127.0.0.1": true,
	"::1":       true,
	"localhost": true,
}

// ResolveClientAddr returns the effective client address for a request.
// The service sits behind a reverse proxy that sets X-Real-IP and
// X-Forwarded-For for every proxied client, so those headers take precedence
// over the raw connection address: X-Real-IP wins outright, then the first
// (leftmost) X-Forwarded-For hop, then the connection's remote address.
//
// The headers are trusted unconditionally. Deployment must ensure requests
// can only arrive through the proxy, otherwise a direct client can spoof
// these headers to claim locality.
func ResolveClientAddr(r *http.Request) string {
	if v := strings.TrimSpace(r.Header.Get("X-Real-IP")); v != "" {
		return v
	}
	if v := strings.TrimSpace(r.Header.Get("X-Forwarded-For")); v != "" {
		if i := strings.Index(v, ","); i >= 0 {
			v = v[:i]
		}
		return strings.TrimSpace(v)
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// IsLocalAddr reports whether addr is a loopback identifier.
func IsLocalAddr(addr string) bool {
	return localAddrs[addr]
}

// IsLocalRequest reports whether the request originates from a locally
// trusted source per ResolveClientAddr.
func IsLocalRequest(r *http.Request) bool {
	return IsLocalAddr(ResolveClientAddr(r))
}
