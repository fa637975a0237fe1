// Package github implementa el flujo OAuth clásico de GitHub (sin PKCE ni id_token):
// la identidad sale de la API REST con el access token.
package github

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/dropDatabas3/tenantauth/internal/oauth"
	"github.com/tidwall/gjson"
)

// Endpoints de GitHub. APIBaseURL sin barra final.
type Endpoints struct {
	AuthURL    string
	TokenURL   string
	APIBaseURL string
}

var DefaultEndpoints = Endpoints{
	AuthURL:    "https://github.com/login/oauth/authorize",
	TokenURL:   "https://github.com/login/oauth/access_token",
	APIBaseURL: "https://api.github.com",
}

var defaultScopes = []string{"read:user", "user:email"}

// Provider implementa oauth.Provider para GitHub.
type Provider struct {
	ep     Endpoints
	scopes []string
	client *http.Client
}

var _ oauth.Provider = (*Provider)(nil)

// New con endpoints por defecto si ep es nil.
func New(client *http.Client, ep *Endpoints) *Provider {
	if client == nil {
		client = oauth.NewHTTPClient(0)
	}
	e := DefaultEndpoints
	if ep != nil {
		e = *ep
	}
	e.APIBaseURL = strings.TrimRight(e.APIBaseURL, "/")
	return &Provider{ep: e, scopes: defaultScopes, client: client}
}

func (p *Provider) Type() oauth.ProviderType { return oauth.GitHub }

func (p *Provider) AuthCodeURL(req oauth.AuthCodeRequest) string {
	q := url.Values{}
	q.Set("client_id", req.ClientID)
	q.Set("redirect_uri", req.RedirectURI)
	q.Set("scope", strings.Join(p.scopes, " "))
	q.Set("state", req.State)
	q.Set("allow_signup", "true")
	return p.ep.AuthURL + "?" + q.Encode()
}

func (p *Provider) Exchange(ctx context.Context, req oauth.ExchangeRequest) (*oauth.Tokens, error) {
	if err := oauth.ValidateExchange(oauth.GitHub, req); err != nil {
		return nil, err
	}
	req.CodeVerifier = ""
	return oauth.PostTokenForm(ctx, p.client, oauth.GitHub, p.ep.TokenURL, oauth.AuthorizationCodeForm(req))
}

// Refresh solo aplica a GitHub Apps con tokens expirables.
func (p *Provider) Refresh(ctx context.Context, creds oauth.Credentials, refreshToken string) (*oauth.Tokens, error) {
	if refreshToken == "" {
		return nil, fmt.Errorf("%w: empty refresh token", oauth.ErrRefreshRevoked)
	}
	return oauth.PostTokenForm(ctx, p.client, oauth.GitHub, p.ep.TokenURL, oauth.RefreshForm(creds, refreshToken))
}

// Identify consulta /user y, si hace falta, /user/emails.
// Orden de email: primario verificado, cualquier verificado, el primero.
func (p *Provider) Identify(ctx context.Context, _ oauth.Credentials, tok *oauth.Tokens) (*oauth.Identity, error) {
	if tok == nil || tok.AccessToken == "" {
		return nil, fmt.Errorf("%w: missing access token", oauth.ErrIdentityVerificationFailed)
	}
	user, err := p.get(ctx, "/user", tok.AccessToken)
	if err != nil {
		return nil, err
	}
	id := user.Get("id")
	if !id.Exists() || id.Int() == 0 {
		return nil, fmt.Errorf("%w: github user without id", oauth.ErrIdentityVerificationFailed)
	}
	ident := &oauth.Identity{
		Provider: oauth.GitHub,
		Subject:  strconv.FormatInt(id.Int(), 10),
		Name:     user.Get("name").String(),
		Picture:  user.Get("avatar_url").String(),
	}
	if ident.Name == "" {
		ident.Name = user.Get("login").String()
	}

	emails, err := p.get(ctx, "/user/emails", tok.AccessToken)
	if err == nil {
		ident.Email, ident.EmailVerified = pickEmail(emails)
	}
	if ident.Email == "" {
		// sin scope user:email: el email público del perfil, no verificado
		ident.Email = user.Get("email").String()
		ident.EmailVerified = false
	}
	ident.Email = strings.ToLower(strings.TrimSpace(ident.Email))
	return ident, nil
}

func pickEmail(list gjson.Result) (string, bool) {
	var verified, first string
	var chosen string
	list.ForEach(func(_, e gjson.Result) bool {
		addr := e.Get("email").String()
		if addr == "" {
			return true
		}
		if first == "" {
			first = addr
		}
		if e.Get("verified").Bool() {
			if e.Get("primary").Bool() {
				chosen = addr
				return false
			}
			if verified == "" {
				verified = addr
			}
		}
		return true
	})
	switch {
	case chosen != "":
		return chosen, true
	case verified != "":
		return verified, true
	default:
		return first, false
	}
}

func (p *Provider) get(ctx context.Context, path, accessToken string) (gjson.Result, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.ep.APIBaseURL+path, nil)
	if err != nil {
		return gjson.Result{}, err
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Accept", "application/vnd.github+json")
	req.Header.Set("X-GitHub-Api-Version", "2022-11-28")

	resp, err := p.client.Do(req)
	if err != nil {
		return gjson.Result{}, fmt.Errorf("%w: github %s: %v", oauth.ErrProviderUnavailable, path, err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return gjson.Result{}, fmt.Errorf("%w: github %s: %v", oauth.ErrProviderUnavailable, path, err)
	}
	switch {
	case resp.StatusCode >= 500:
		return gjson.Result{}, fmt.Errorf("%w: github %s status %d", oauth.ErrProviderUnavailable, path, resp.StatusCode)
	case resp.StatusCode != http.StatusOK:
		return gjson.Result{}, fmt.Errorf("%w: github %s status %d", oauth.ErrIdentityVerificationFailed, path, resp.StatusCode)
	case !gjson.ValidBytes(body):
		return gjson.Result{}, fmt.Errorf("%w: github %s invalid json", oauth.ErrIdentityVerificationFailed, path)
	}
	return gjson.ParseBytes(body), nil
}
