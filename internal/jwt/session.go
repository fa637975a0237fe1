// Package jwt emite y valida el session token propio del servicio (HS256).
package jwt

import (
	"errors"
	"fmt"
	"strings"
	"time"

	jwtv5 "github.com/golang-jwt/jwt/v5"
)

const (
	// DefaultSessionTTL: tokens de acceso de vida corta.
	DefaultSessionTTL = time.Hour
	// MinSecretLen: HS256 necesita al menos 256 bits de clave.
	MinSecretLen = 32

	signingAlg = "HS256"
)

var (
	ErrWeakSecret              = fmt.Errorf("session secret must be at least %d bytes", MinSecretLen)
	ErrSessionExpired          = errors.New("session expired")
	ErrSessionSignatureInvalid = errors.New("session signature invalid")
	ErrSessionMalformed        = errors.New("session malformed")
)

// SessionClaims es lo que el verificador expone a los handlers.
type SessionClaims struct {
	UserID    string
	TenantID  string
	Email     string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

type sessionClaims struct {
	Email    string `json:"email"`
	TenantID string `json:"tid,omitempty"`
	jwtv5.RegisteredClaims
}

// SessionIssuer firma y verifica sesiones con un secreto HMAC del servidor.
type SessionIssuer struct {
	iss    string
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewSessionIssuer valida el secreto y aplica defaults.
func NewSessionIssuer(issuer string, secret []byte, ttl time.Duration) (*SessionIssuer, error) {
	if len(secret) < MinSecretLen {
		return nil, ErrWeakSecret
	}
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	s := make([]byte, len(secret))
	copy(s, secret)
	return &SessionIssuer{
		iss:    strings.TrimSpace(issuer),
		secret: s,
		ttl:    ttl,
		now:    time.Now,
	}, nil
}

// WithClock reemplaza el reloj (tests).
func (s *SessionIssuer) WithClock(now func() time.Time) *SessionIssuer {
	cp := *s
	cp.now = now
	return &cp
}

// TTL devuelve la vida útil configurada.
func (s *SessionIssuer) TTL() time.Duration { return s.ttl }

// Issue firma un token para userID. tenantID puede ir vacío en deploys single-tenant.
func (s *SessionIssuer) Issue(userID, tenantID, email string) (string, time.Time, error) {
	if strings.TrimSpace(userID) == "" {
		return "", time.Time{}, errors.New("issue session: empty user id")
	}
	now := s.now().UTC()
	exp := now.Add(s.ttl)
	claims := sessionClaims{
		Email:    email,
		TenantID: tenantID,
		RegisteredClaims: jwtv5.RegisteredClaims{
			Issuer:    s.iss,
			Subject:   userID,
			IssuedAt:  jwtv5.NewNumericDate(now),
			NotBefore: jwtv5.NewNumericDate(now),
			ExpiresAt: jwtv5.NewNumericDate(exp),
		},
	}
	tk := jwtv5.NewWithClaims(jwtv5.SigningMethodHS256, claims)
	tk.Header["typ"] = "JWT"
	signed, err := tk.SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign session: %w", err)
	}
	return signed, exp, nil
}

// Verify valida firma (solo HS256), exp e iss. Cualquier otro alg, incluido "none", se rechaza.
func (s *SessionIssuer) Verify(raw string) (*SessionClaims, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, ErrSessionMalformed
	}

	opts := []jwtv5.ParserOption{
		jwtv5.WithValidMethods([]string{signingAlg}),
		jwtv5.WithTimeFunc(s.now),
		jwtv5.WithExpirationRequired(),
	}
	if s.iss != "" {
		opts = append(opts, jwtv5.WithIssuer(s.iss))
	}

	var claims sessionClaims
	tok, err := jwtv5.ParseWithClaims(raw, &claims, func(t *jwtv5.Token) (any, error) {
		return s.secret, nil
	}, opts...)
	if err != nil {
		return nil, mapParseError(err)
	}
	if !tok.Valid || claims.Subject == "" {
		return nil, ErrSessionMalformed
	}

	out := &SessionClaims{
		UserID:   claims.Subject,
		TenantID: claims.TenantID,
		Email:    claims.Email,
	}
	if claims.IssuedAt != nil {
		out.IssuedAt = claims.IssuedAt.Time
	}
	if claims.ExpiresAt != nil {
		out.ExpiresAt = claims.ExpiresAt.Time
	}
	return out, nil
}

func mapParseError(err error) error {
	switch {
	case errors.Is(err, jwtv5.ErrTokenMalformed):
		return fmt.Errorf("%w: %v", ErrSessionMalformed, err)
	case errors.Is(err, jwtv5.ErrTokenSignatureInvalid), errors.Is(err, jwtv5.ErrTokenUnverifiable):
		return fmt.Errorf("%w: %v", ErrSessionSignatureInvalid, err)
	case errors.Is(err, jwtv5.ErrTokenExpired):
		return ErrSessionExpired
	default:
		// iss, nbf y claims faltantes
		return fmt.Errorf("%w: %v", ErrSessionMalformed, err)
	}
}
