// Package oidctest levanta un issuer OIDC falso (JWKS + token endpoint) para tests.
package oidctest

import (
	"crypto/rand"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"math/big"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/dropDatabas3/tenantauth/internal/oauth/oidc"
	"github.com/dropDatabas3/tenantauth/internal/security/pkce"
	jwtv5 "github.com/golang-jwt/jwt/v5"
)

// Grant es lo que el issuer devuelve al canjear un code.
type Grant struct {
	ClientID      string
	Challenge     string // vacío: no se exige code_verifier
	Subject       string
	Email         string
	EmailVerified bool
	Name          string
	RefreshToken  string
}

// Server es un issuer OIDC en memoria.
type Server struct {
	*httptest.Server
	Issuer string

	t         testing.TB
	mu        sync.Mutex
	key       *rsa.PrivateKey
	kid       string
	keyGen    int
	codes     map[string]Grant
	refresh   map[string]Grant
	failCode  int
	failBody  string
	jwksHits  atomic.Int32
	tokenHits atomic.Int32
}

// NewServer arranca el issuer. Se cierra con t.Cleanup.
func NewServer(t testing.TB) *Server {
	t.Helper()
	s := &Server{t: t, codes: map[string]Grant{}, refresh: map[string]Grant{}}
	s.RotateKey()

	mux := http.NewServeMux()
	mux.HandleFunc("/jwks", s.handleJWKS)
	mux.HandleFunc("/token", s.handleToken)
	s.Server = httptest.NewServer(mux)
	s.Issuer = s.URL
	t.Cleanup(s.Close)
	return s
}

// Endpoints para construir un oidc.Provider apuntando a este server.
func (s *Server) Endpoints() oidc.Endpoints {
	return oidc.Endpoints{
		AuthURL:  s.URL + "/authorize",
		TokenURL: s.URL + "/token",
		JWKSURL:  s.URL + "/jwks",
		Issuers:  []string{s.Issuer},
	}
}

// RotateKey genera una clave nueva con otro kid. La anterior deja de publicarse.
func (s *Server) RotateKey() {
	k, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		s.t.Fatalf("rsa key: %v", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.keyGen++
	s.key = k
	s.kid = fmt.Sprintf("key-%d", s.keyGen)
}

// Kid activo.
func (s *Server) Kid() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.kid
}

// AddCode registra un authorization code de un solo uso.
func (s *Server) AddCode(code string, g Grant) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.codes[code] = g
}

// AddRefreshToken registra un refresh token válido.
func (s *Server) AddRefreshToken(token string, g Grant) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.refresh[token] = g
}

// FailToken hace que el token endpoint responda status/body fijos. status 0 lo desactiva.
func (s *Server) FailToken(status int, body string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failCode, s.failBody = status, body
}

func (s *Server) JWKSHits() int  { return int(s.jwksHits.Load()) }
func (s *Server) TokenHits() int { return int(s.tokenHits.Load()) }

// Claims base válidas para audience.
func (s *Server) Claims(audience, subject string) jwtv5.MapClaims {
	now := time.Now()
	return jwtv5.MapClaims{
		"iss": s.Issuer,
		"aud": audience,
		"sub": subject,
		"iat": now.Unix(),
		"exp": now.Add(time.Hour).Unix(),
	}
}

// Sign firma claims RS256 con la clave activa.
func (s *Server) Sign(claims jwtv5.MapClaims) string {
	s.mu.Lock()
	key, kid := s.key, s.kid
	s.mu.Unlock()
	return SignWith(s.t, key, kid, claims)
}

// SignWith firma con una clave arbitraria (tests de firma inválida).
func SignWith(t testing.TB, key *rsa.PrivateKey, kid string, claims jwtv5.MapClaims) string {
	t.Helper()
	tok := jwtv5.NewWithClaims(jwtv5.SigningMethodRS256, claims)
	if kid != "" {
		tok.Header["kid"] = kid
	}
	raw, err := tok.SignedString(key)
	if err != nil {
		t.Fatalf("sign id token: %v", err)
	}
	return raw
}

func (s *Server) handleJWKS(w http.ResponseWriter, _ *http.Request) {
	s.jwksHits.Add(1)
	s.mu.Lock()
	pub, kid := s.key.PublicKey, s.kid
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, map[string]any{
		"keys": []map[string]string{{
			"kty": "RSA",
			"use": "sig",
			"alg": "RS256",
			"kid": kid,
			"n":   base64.RawURLEncoding.EncodeToString(pub.N.Bytes()),
			"e":   base64.RawURLEncoding.EncodeToString(big.NewInt(int64(pub.E)).Bytes()),
		}},
	})
}

func (s *Server) handleToken(w http.ResponseWriter, r *http.Request) {
	s.tokenHits.Add(1)
	if err := r.ParseForm(); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid_request"})
		return
	}
	s.mu.Lock()
	failCode, failBody := s.failCode, s.failBody
	s.mu.Unlock()
	if failCode != 0 {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(failCode)
		_, _ = w.Write([]byte(failBody))
		return
	}

	switch r.PostForm.Get("grant_type") {
	case "authorization_code":
		s.mu.Lock()
		g, ok := s.codes[r.PostForm.Get("code")]
		delete(s.codes, r.PostForm.Get("code"))
		s.mu.Unlock()
		if !ok || g.ClientID != r.PostForm.Get("client_id") {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid_grant", "error_description": "bad code"})
			return
		}
		if g.Challenge != "" && !pkce.VerifyChallenge(r.PostForm.Get("code_verifier"), g.Challenge) {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid_grant", "error_description": "pkce mismatch"})
			return
		}
		s.writeTokens(w, g, g.RefreshToken)
	case "refresh_token":
		s.mu.Lock()
		g, ok := s.refresh[r.PostForm.Get("refresh_token")]
		s.mu.Unlock()
		if !ok {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid_grant", "error_description": "token revoked"})
			return
		}
		s.writeTokens(w, g, "")
	default:
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "unsupported_grant_type"})
	}
}

func (s *Server) writeTokens(w http.ResponseWriter, g Grant, refresh string) {
	claims := s.Claims(g.ClientID, g.Subject)
	if g.Email != "" {
		claims["email"] = g.Email
		claims["email_verified"] = g.EmailVerified
	}
	if g.Name != "" {
		claims["name"] = g.Name
	}
	body := map[string]any{
		"access_token": "at-" + g.Subject,
		"id_token":     s.Sign(claims),
		"token_type":   "Bearer",
		"expires_in":   3600,
	}
	if refresh != "" {
		body["refresh_token"] = refresh
	}
	writeJSON(w, http.StatusOK, body)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
