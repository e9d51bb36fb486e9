package helpers

import (
	"net/url"
	"strings"
)

// ValidHTTPURL reports whether raw parses as an absolute http(s) URL with a
// host. Placeholder values emitted by upstream scrapers ("No URL", empty
// strings) fail this check.
func ValidHTTPURL(raw string) bool {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return false
	}
	parsed, err := url.Parse(raw)
	if err != nil {
		return false
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return false
	}
	return parsed.Host != ""
}
