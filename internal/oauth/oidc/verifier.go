// Package oidc verifica ID tokens RS256 contra el JWKS del issuer e implementa
// los providers OIDC (Google, Microsoft, Apple).
package oidc

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/dropDatabas3/tenantauth/internal/oauth"
	jwtv5 "github.com/golang-jwt/jwt/v5"
)

var (
	ErrMalformedToken    = errors.New("malformed id token")
	ErrSignatureInvalid  = errors.New("id token signature invalid")
	ErrUnknownSigningKey = errors.New("unknown signing key")
	ErrIssuerMismatch    = errors.New("id token issuer mismatch")
	ErrAudienceMismatch  = errors.New("id token audience mismatch")
	ErrTokenExpired      = errors.New("id token expired")
	ErrNonceMismatch     = errors.New("id token nonce mismatch")
	ErrMissingSubject    = errors.New("id token without subject")
)

// VerificationError envuelve la causa concreta. errors.Is matchea tanto la causa
// como oauth.ErrIdentityVerificationFailed.
type VerificationError struct {
	Reason error
}

func (e *VerificationError) Error() string {
	return oauth.ErrIdentityVerificationFailed.Error() + ": " + e.Reason.Error()
}

func (e *VerificationError) Unwrap() error { return e.Reason }

func (e *VerificationError) Is(target error) bool {
	return target == oauth.ErrIdentityVerificationFailed
}

func verr(reason error) error { return &VerificationError{Reason: reason} }

// Claims de un ID token ya verificado.
type Claims struct {
	Issuer        string
	Subject       string
	Audience      []string
	Email         string
	EmailVerified bool
	Name          string
	Picture       string
	Nonce         string
	IssuedAt      time.Time
	ExpiresAt     time.Time
}

// Verifier valida firma, issuer, audiencia y expiración de ID tokens RS256.
type Verifier struct {
	keys    KeyProvider
	issuers []string
	leeway  time.Duration
	now     func() time.Time
}

// NewVerifier acepta cualquiera de issuers (Google publica dos formas).
func NewVerifier(keys KeyProvider, issuers ...string) *Verifier {
	return &Verifier{keys: keys, issuers: issuers, leeway: 30 * time.Second, now: time.Now}
}

// WithClock reemplaza el reloj (tests).
func (v *Verifier) WithClock(now func() time.Time) *Verifier {
	v.now = now
	return v
}

// WithLeeway ajusta la tolerancia de reloj sobre exp.
func (v *Verifier) WithLeeway(d time.Duration) *Verifier {
	v.leeway = d
	return v
}

// Verify chequea la firma antes de mirar cualquier claim.
// expectedNonce vacío desactiva el chequeo de nonce.
func (v *Verifier) Verify(ctx context.Context, raw, audience, expectedNonce string) (*Claims, error) {
	if strings.Count(raw, ".") != 2 {
		return nil, verr(ErrMalformedToken)
	}

	var keyErr error
	mc := jwtv5.MapClaims{}
	parser := jwtv5.NewParser(
		jwtv5.WithValidMethods([]string{jwtv5.SigningMethodRS256.Alg()}),
		jwtv5.WithoutClaimsValidation(),
	)
	_, err := parser.ParseWithClaims(raw, mc, func(t *jwtv5.Token) (any, error) {
		kid, _ := t.Header["kid"].(string)
		key, err := v.keys.Key(ctx, kid)
		if err != nil {
			keyErr = err
			return nil, err
		}
		return key, nil
	})
	if err != nil {
		switch {
		case keyErr != nil && errors.Is(keyErr, oauth.ErrProviderUnavailable):
			return nil, keyErr
		case keyErr != nil:
			return nil, verr(ErrUnknownSigningKey)
		case errors.Is(err, jwtv5.ErrTokenMalformed):
			return nil, verr(ErrMalformedToken)
		default:
			// firma inválida, alg none o alg distinto de RS256
			return nil, verr(ErrSignatureInvalid)
		}
	}

	iss, _ := mc.GetIssuer()
	if !slices.Contains(v.issuers, iss) {
		return nil, verr(fmt.Errorf("%w: %q", ErrIssuerMismatch, iss))
	}
	aud, _ := mc.GetAudience()
	if audience == "" || !slices.Contains([]string(aud), audience) {
		return nil, verr(ErrAudienceMismatch)
	}
	exp, _ := mc.GetExpirationTime()
	if exp == nil || !v.now().Before(exp.Time.Add(v.leeway)) {
		return nil, verr(ErrTokenExpired)
	}
	sub, _ := mc.GetSubject()
	if sub == "" {
		return nil, verr(ErrMissingSubject)
	}

	c := &Claims{
		Issuer:        iss,
		Subject:       sub,
		Audience:      aud,
		Email:         stringClaim(mc, "email"),
		EmailVerified: boolClaim(mc, "email_verified"),
		Name:          stringClaim(mc, "name"),
		Picture:       stringClaim(mc, "picture"),
		Nonce:         stringClaim(mc, "nonce"),
		ExpiresAt:     exp.Time,
	}
	if iat, _ := mc.GetIssuedAt(); iat != nil {
		c.IssuedAt = iat.Time
	}
	if expectedNonce != "" && c.Nonce != expectedNonce {
		return nil, verr(ErrNonceMismatch)
	}
	return c, nil
}

func stringClaim(mc jwtv5.MapClaims, name string) string {
	s, _ := mc[name].(string)
	return s
}

// Apple manda email_verified como "true".
func boolClaim(mc jwtv5.MapClaims, name string) bool {
	switch v := mc[name].(type) {
	case bool:
		return v
	case string:
		return strings.EqualFold(v, "true")
	}
	return false
}
