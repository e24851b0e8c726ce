package server

import (
	"net"
	"net/http"
	"strings"
)

const fallbackClientID = "127.0.0.1"

// ClientIdentity derives the rate-limit key for r. Proxy headers are trusted
// as sent, so the value is spoofable when the service is exposed directly.
func ClientIdentity(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		if first = strings.TrimSpace(first); first != "" {
			return first
		}
	}
	if real := strings.TrimSpace(r.Header.Get("X-Real-IP")); real != "" {
		return real
	}
	if r.RemoteAddr != "" {
		if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil && host != "" {
			return host
		}
		return r.RemoteAddr
	}
	return fallbackClientID
}
