package clientip

import (
	"net"
	"net/http"
	"strings"
)

// RealClientIP returns the address used to key rate limits.
// The agent normally sits behind the local rendering layer, so the first
// X-Forwarded-For hop is trusted only when the direct peer is loopback.
func RealClientIP(r *http.Request) string {
	peer := hostOnly(r.RemoteAddr)
	if ip := net.ParseIP(peer); ip == nil || !ip.IsLoopback() {
		return peer
	}
	fwd := r.Header.Get("X-Forwarded-For")
	if fwd == "" {
		return peer
	}
	first, _, _ := strings.Cut(fwd, ",")
	if first = strings.TrimSpace(first); net.ParseIP(first) != nil {
		return first
	}
	return peer
}

func hostOnly(addr string) string {
	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		return strings.TrimSpace(addr)
	}
	return strings.TrimSpace(host)
}
