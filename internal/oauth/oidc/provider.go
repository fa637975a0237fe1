package oidc

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/dropDatabas3/tenantauth/internal/oauth"
)

// Endpoints de un issuer OIDC.
type Endpoints struct {
	AuthURL  string
	TokenURL string
	JWKSURL  string
	Issuers  []string
}

// Config de un provider OIDC genérico. Las credenciales llegan por request (por tenant).
type Config struct {
	Type            oauth.ProviderType
	Endpoints       Endpoints
	Scopes          []string
	ExtraAuthParams url.Values
	HTTPClient      *http.Client
	JWKSTTL         time.Duration
}

// Provider implementa oauth.Provider sobre un issuer OIDC con PKCE S256.
type Provider struct {
	cfg      Config
	client   *http.Client
	keys     *KeySet
	verifier *Verifier
}

var _ oauth.Provider = (*Provider)(nil)

// New arma el provider. El KeySet es compartido por todos los tenants: las claves son del issuer.
func New(cfg Config) *Provider {
	client := cfg.HTTPClient
	if client == nil {
		client = oauth.NewHTTPClient(0)
	}
	if len(cfg.Scopes) == 0 {
		cfg.Scopes = []string{"openid", "email", "profile"}
	}
	keys := NewKeySet(cfg.Endpoints.JWKSURL, client, cfg.JWKSTTL)
	return &Provider{
		cfg:      cfg,
		client:   client,
		keys:     keys,
		verifier: NewVerifier(keys, cfg.Endpoints.Issuers...),
	}
}

func (p *Provider) Type() oauth.ProviderType { return p.cfg.Type }

// Verifier expone el verificador (tests y reuso del cache de claves).
func (p *Provider) Verifier() *Verifier { return p.verifier }

// KeySet expone el cache JWKS.
func (p *Provider) KeySet() *KeySet { return p.keys }

func (p *Provider) AuthCodeURL(req oauth.AuthCodeRequest) string {
	q := url.Values{}
	q.Set("response_type", "code")
	q.Set("client_id", req.ClientID)
	q.Set("redirect_uri", req.RedirectURI)
	q.Set("scope", strings.Join(p.cfg.Scopes, " "))
	q.Set("state", req.State)
	if req.Challenge != "" {
		q.Set("code_challenge", req.Challenge)
		q.Set("code_challenge_method", "S256")
	}
	if req.Nonce != "" {
		q.Set("nonce", req.Nonce)
	}
	for k, vs := range p.cfg.ExtraAuthParams {
		for _, v := range vs {
			q.Add(k, v)
		}
	}
	sep := "?"
	if strings.Contains(p.cfg.Endpoints.AuthURL, "?") {
		sep = "&"
	}
	return p.cfg.Endpoints.AuthURL + sep + q.Encode()
}

func (p *Provider) Exchange(ctx context.Context, req oauth.ExchangeRequest) (*oauth.Tokens, error) {
	if err := oauth.ValidateExchange(p.cfg.Type, req); err != nil {
		return nil, err
	}
	tok, err := oauth.PostTokenForm(ctx, p.client, p.cfg.Type, p.cfg.Endpoints.TokenURL, oauth.AuthorizationCodeForm(req))
	if err != nil {
		return nil, err
	}
	if tok.IDToken == "" {
		return nil, &oauth.ExchangeError{Provider: p.cfg.Type, GrantType: "authorization_code", Reason: "token response without id_token"}
	}
	return tok, nil
}

// Identify verifica el id_token con audiencia = client_id del tenant.
func (p *Provider) Identify(ctx context.Context, creds oauth.Credentials, tok *oauth.Tokens) (*oauth.Identity, error) {
	if tok == nil || tok.IDToken == "" {
		return nil, verr(ErrMalformedToken)
	}
	c, err := p.verifier.Verify(ctx, tok.IDToken, creds.ClientID, "")
	if err != nil {
		return nil, err
	}
	return &oauth.Identity{
		Provider:      p.cfg.Type,
		Subject:       c.Subject,
		Email:         strings.ToLower(strings.TrimSpace(c.Email)),
		EmailVerified: c.EmailVerified,
		Name:          c.Name,
		Picture:       c.Picture,
	}, nil
}

func (p *Provider) Refresh(ctx context.Context, creds oauth.Credentials, refreshToken string) (*oauth.Tokens, error) {
	if refreshToken == "" {
		return nil, fmt.Errorf("%w: empty refresh token", oauth.ErrRefreshRevoked)
	}
	return oauth.PostTokenForm(ctx, p.client, p.cfg.Type, p.cfg.Endpoints.TokenURL, oauth.RefreshForm(creds, refreshToken))
}
