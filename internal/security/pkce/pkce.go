// Package pkce genera el material efímero del flujo authorization code + PKCE (RFC 7636):
// code verifier, code challenge S256 y el state anti-CSRF.
package pkce

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
)

const (
	// verifierBytes produce 43 chars base64url, el mínimo de RFC 7636.
	verifierBytes = 32
	stateBytes    = 32

	// MethodS256 es el único code_challenge_method soportado.
	MethodS256 = "S256"
)

// ErrEntropySourceUnavailable se devuelve si crypto/rand falla. No hay fallback.
var ErrEntropySourceUnavailable = errors.New("pkce: entropy source unavailable")

// randReader es reemplazable solo desde tests.
var randReader io.Reader = rand.Reader

func randomString(n int) (string, error) {
	b := make([]byte, n)
	if _, err := io.ReadFull(randReader, b); err != nil {
		return "", fmt.Errorf("%w: %v", ErrEntropySourceUnavailable, err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// GenerateVerifier devuelve un code verifier de alta entropía (base64url sin padding).
func GenerateVerifier() (string, error) {
	return randomString(verifierBytes)
}

// GenerateChallenge calcula base64url(sha256(verifier)) sin padding.
func GenerateChallenge(verifier string) string {
	sum := sha256.Sum256([]byte(verifier))
	return base64.RawURLEncoding.EncodeToString(sum[:])
}

// GenerateState devuelve un token anti-CSRF independiente del verifier.
func GenerateState() (string, error) {
	return randomString(stateBytes)
}

// VerifyChallenge re-deriva el challenge y compara en tiempo constante.
func VerifyChallenge(verifier, challenge string) bool {
	if verifier == "" || challenge == "" {
		return false
	}
	got := GenerateChallenge(verifier)
	return subtle.ConstantTimeCompare([]byte(got), []byte(challenge)) == 1
}

// Material agrupa lo que el cliente guarda antes del redirect.
type Material struct {
	Verifier  string
	Challenge string
	State     string
}

// New genera verifier, challenge y state. Con withPKCE=false solo genera state
// (providers sin PKCE, ej. GitHub OAuth apps clásicas).
func New(withPKCE bool) (Material, error) {
	var m Material
	st, err := GenerateState()
	if err != nil {
		return m, err
	}
	m.State = st
	if !withPKCE {
		return m, nil
	}
	v, err := GenerateVerifier()
	if err != nil {
		return Material{}, err
	}
	m.Verifier = v
	m.Challenge = GenerateChallenge(v)
	return m, nil
}
