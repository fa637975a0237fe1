package helpers

import (
	"net"
	"net/http"
	"strings"
)

// HeaderAPIKey es el header por el que el tenant presenta su API key.
const HeaderAPIKey = "X-API-Key"

// APIKey prioriza el header; el body (apiKey) queda como alternativa.
func APIKey(r *http.Request, fromBody string) string {
	if k := strings.TrimSpace(r.Header.Get(HeaderAPIKey)); k != "" {
		return k
	}
	return strings.TrimSpace(fromBody)
}

// BearerToken extrae el token de "Authorization: Bearer ...".
func BearerToken(r *http.Request) string {
	h := strings.TrimSpace(r.Header.Get("Authorization"))
	if len(h) < 7 || !strings.EqualFold(h[:7], "bearer ") {
		return ""
	}
	return strings.TrimSpace(h[7:])
}

// ClientIP usa X-Forwarded-For / X-Real-IP si existen, si no RemoteAddr.
func ClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		if i := strings.IndexByte(xff, ','); i >= 0 {
			return strings.TrimSpace(xff[:i])
		}
		return strings.TrimSpace(xff)
	}
	if xr := strings.TrimSpace(r.Header.Get("X-Real-IP")); xr != "" {
		return xr
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
