// Package oauth define los tipos comunes del intercambio authorization code:
// el enum de providers, el contrato Provider y el Registry construido en el arranque.
//
// Las implementaciones concretas viven en oauth/oidc (Google, Microsoft, Apple) y oauth/github.
package oauth

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// ProviderType identifica un identity provider externo.
type ProviderType string

const (
	Google    ProviderType = "google"
	GitHub    ProviderType = "github"
	Microsoft ProviderType = "microsoft"
	Apple     ProviderType = "apple"
)

// AllProviders en orden estable (CLI, listados).
var AllProviders = []ProviderType{Google, GitHub, Microsoft, Apple}

// ParseProviderType normaliza y valida un nombre de provider.
func ParseProviderType(s string) (ProviderType, error) {
	p := ProviderType(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range AllProviders {
		if p == known {
			return p, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnsupportedProvider, s)
}

func (p ProviderType) String() string { return string(p) }

// SupportsPKCE: GitHub (OAuth apps clásicas) no usa code_verifier.
func (p ProviderType) SupportsPKCE() bool { return p != GitHub }

// Credentials son las de la app OAuth del tenant. Nunca defaults globales.
type Credentials struct {
	ClientID     string
	ClientSecret string
}

// AuthCodeRequest arma la URL de autorización.
type AuthCodeRequest struct {
	ClientID    string
	RedirectURI string
	State       string
	Challenge   string // vacío para providers sin PKCE
	Nonce       string
}

// ExchangeRequest es el canje del authorization code.
type ExchangeRequest struct {
	Credentials
	Code         string
	CodeVerifier string // omitido si el provider no soporta PKCE
	RedirectURI  string // debe coincidir exactamente con el usado al autorizar
}

// Tokens devueltos por el token endpoint del provider.
type Tokens struct {
	AccessToken  string
	IDToken      string
	RefreshToken string
	TokenType    string
	Scope        string
	ExpiresIn    int64
	Expiry       time.Time
}

// Identity es la identidad externa ya verificada.
type Identity struct {
	Provider      ProviderType
	Subject       string
	Email         string
	EmailVerified bool
	Name          string
	Picture       string
}

//go:generate go run go.uber.org/mock/mockgen -destination=oauthmock/mock_provider.go -package=oauthmock . Provider

// Provider implementa el intercambio y la verificación para un tipo de provider.
type Provider interface {
	Type() ProviderType
	AuthCodeURL(req AuthCodeRequest) string
	// Exchange canjea el code. No reintenta: el code es de un solo uso.
	Exchange(ctx context.Context, req ExchangeRequest) (*Tokens, error)
	// Identify verifica la aserción (id_token) o consulta el perfil (GitHub).
	// Ningún claim se lee antes de verificar la firma.
	Identify(ctx context.Context, creds Credentials, tok *Tokens) (*Identity, error)
	// Refresh usa grant_type=refresh_token.
	Refresh(ctx context.Context, creds Credentials, refreshToken string) (*Tokens, error)
}
