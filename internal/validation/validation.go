package validation

import (
	"net"
	"net/url"
	"regexp"
	"strings"
)

// Slug rules:
// - Lowercase only.
// - Start with [a-z0-9].
// - Rest may include [a-z0-9-].
// - Length 2..63.
//
// Examples valid: acme, acme-prod, 42
// Examples invalid: Acme, -acme, a, acme_prod, "", 64+ chars.
var slugRe = regexp.MustCompile(`^[a-z0-9][a-z0-9-]{1,62}$`)

// ValidSlug returns true if name is usable as a tenant slug.
func ValidSlug(name string) bool {
	return slugRe.MatchString(name)
}

// ValidRedirectURI acepta URIs absolutas sin fragmento (RFC 6749 §3.1.2).
// http solo se admite contra loopback (apps nativas / CLI, RFC 8252 §7.3).
func ValidRedirectURI(raw string) bool {
	if raw == "" || strings.TrimSpace(raw) != raw {
		return false
	}
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" || u.Fragment != "" || u.User != nil {
		return false
	}
	switch u.Scheme {
	case "https":
		return true
	case "http":
		host := u.Hostname()
		if host == "localhost" {
			return true
		}
		ip := net.ParseIP(host)
		return ip != nil && ip.IsLoopback()
	default:
		return false
	}
}
