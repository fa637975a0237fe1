package helpers

import (
	"net/http"
	"strings"
	"time"
)

// DefaultSessionCookie es el nombre de la cookie de sesión.
const DefaultSessionCookie = "tenantauth_session"

// CookieConfig describe la cookie de sesión del perfil "cookie".
type CookieConfig struct {
	Name     string
	Domain   string
	SameSite string
	Secure   bool
}

func (c CookieConfig) name() string {
	if strings.TrimSpace(c.Name) == "" {
		return DefaultSessionCookie
	}
	return c.Name
}

func ParseSameSite(s string) http.SameSite {
	switch strings.TrimSpace(strings.ToLower(s)) {
	case "strict":
		return http.SameSiteStrictMode
	case "none":
		return http.SameSiteNoneMode
	default:
		return http.SameSiteLaxMode
	}
}

// SessionCookie arma la cookie httpOnly que transporta el session token.
func (c CookieConfig) SessionCookie(value string, expiresAt time.Time, now time.Time) *http.Cookie {
	ck := &http.Cookie{
		Name:     c.name(),
		Value:    value,
		Path:     "/",
		HttpOnly: true,
		Secure:   c.Secure,
		SameSite: ParseSameSite(c.SameSite),
	}
	if d := strings.TrimSpace(c.Domain); d != "" {
		ck.Domain = d
	}
	if ttl := expiresAt.Sub(now); ttl > 0 {
		ck.Expires = expiresAt.UTC()
		ck.MaxAge = int(ttl.Seconds())
	}
	return ck
}

// DeletionCookie borra la cookie de sesión en el browser.
func (c CookieConfig) DeletionCookie() *http.Cookie {
	ck := &http.Cookie{
		Name:     c.name(),
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		Secure:   c.Secure,
		SameSite: ParseSameSite(c.SameSite),
		Expires:  time.Unix(0, 0).UTC(),
		MaxAge:   -1,
	}
	if d := strings.TrimSpace(c.Domain); d != "" {
		ck.Domain = d
	}
	return ck
}

// ReadCookie devuelve el valor de la cookie de sesión o "".
func (c CookieConfig) ReadCookie(r *http.Request) string {
	ck, err := r.Cookie(c.name())
	if err != nil {
		return ""
	}
	return strings.TrimSpace(ck.Value)
}
