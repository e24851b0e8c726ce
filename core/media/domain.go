package media

import (
	"net/url"
	"strings"
)

// DomainAllowed reports whether rawURL's host is in allowed. An empty list
// allows every domain. Hosts are compared case-insensitively without the port.
func DomainAllowed(rawURL string, allowed []string) bool {
	if len(allowed) == 0 {
		return true
	}
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return false
	}
	host := strings.ToLower(u.Hostname())
	if host == "" {
		return false
	}
	for _, d := range allowed {
		if d = strings.ToLower(strings.TrimSpace(d)); d != "" && d == host {
			return true
		}
	}
	return false
}

// HasHTTPScheme is the structural check performed before invoking the tool.
func HasHTTPScheme(rawURL string) bool {
	return strings.HasPrefix(rawURL, "http://") || strings.HasPrefix(rawURL, "https://")
}
