package harvest

import "strings"

// AllowedHost reports whether a host falls inside the crawl scope defined
// by the allowed domain list: an exact match or a subdomain of an entry.
// Matching is case-insensitive. An empty list allows every host. Callers
// should pass URL.Hostname() so ports never reach the comparison.
//
// Suffix matching requires a dot boundary, so "evil-example.com" does not
// match an allowed "example.com".
func AllowedHost(host string, allowed []string) bool {
	if len(allowed) == 0 {
		return true
	}
	host = strings.ToLower(host)
	for _, domain := range allowed {
		domain = strings.ToLower(domain)
		if host == domain || strings.HasSuffix(host, "."+domain) {
			return true
		}
	}
	return false
}
