package middlewares

import (
	"errors"
	"net/http"
	"strings"

	httperrors "github.com/dropDatabas3/tenantauth/internal/http/errors"
	"github.com/dropDatabas3/tenantauth/internal/http/helpers"
	"github.com/dropDatabas3/tenantauth/internal/jwt"
	"github.com/dropDatabas3/tenantauth/internal/observability/logger"
)

// Transportes de sesión soportados.
const (
	TransportBearer = "bearer"
	TransportCookie = "cookie"
)

// SessionVerifier lo implementa *jwt.SessionIssuer.
type SessionVerifier interface {
	Verify(raw string) (*jwt.SessionClaims, error)
}

// SessionTransport define de dónde se lee el session token.
type SessionTransport struct {
	Mode   string // bearer | cookie
	Cookie helpers.CookieConfig
}

// UsesCookie indica si el perfil de despliegue transporta la sesión en cookie.
func (t SessionTransport) UsesCookie() bool {
	return strings.EqualFold(strings.TrimSpace(t.Mode), TransportCookie)
}

// Token lee primero Authorization: Bearer; la cookie solo en modo cookie.
func (t SessionTransport) Token(r *http.Request) string {
	if tok := helpers.BearerToken(r); tok != "" {
		return tok
	}
	if t.UsesCookie() {
		return t.Cookie.ReadCookie(r)
	}
	return ""
}

// RequireSession verifica el session token y deja las claims en el contexto.
func RequireSession(v SessionVerifier, t SessionTransport) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := t.Token(r)
			if raw == "" {
				w.Header().Set("WWW-Authenticate", `Bearer realm="tenantauth"`)
				httperrors.WriteError(w, httperrors.ErrSessionMissing)
				return
			}

			claims, err := v.Verify(raw)
			if err != nil {
				logger.From(r.Context()).Debug("session rejected", logger.Op("RequireSession"), logger.Err(err))
				w.Header().Set("WWW-Authenticate", `Bearer realm="tenantauth", error="invalid_token"`)
				if errors.Is(err, jwt.ErrSessionExpired) {
					httperrors.WriteError(w, httperrors.ErrSessionExpired)
				} else {
					httperrors.WriteError(w, httperrors.ErrSessionInvalid)
				}
				return
			}

			ctx := WithSession(r.Context(), claims)
			ctx = logger.ToContext(ctx, logger.From(ctx).With(
				logger.UserID(claims.UserID),
				logger.TenantID(claims.TenantID),
			))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
