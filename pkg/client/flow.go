package client

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/dropDatabas3/tenantauth/internal/security/pkce"
)

// FlowState del flujo de redirect.
type FlowState int

const (
	Idle FlowState = iota
	AwaitingRedirect
	AwaitingCallback
	Exchanging
	Authenticated
	Failed
)

func (s FlowState) String() string {
	switch s {
	case Idle:
		return "idle"
	case AwaitingRedirect:
		return "awaiting_redirect"
	case AwaitingCallback:
		return "awaiting_callback"
	case Exchanging:
		return "exchanging"
	case Authenticated:
		return "authenticated"
	case Failed:
		return "failed"
	default:
		return fmt.Sprintf("FlowState(%d)", int(s))
	}
}

// ProviderError el provider devolvió error= en el redirect (ej. access_denied).
type ProviderError struct {
	Code        string
	Description string
}

func (e *ProviderError) Error() string {
	if e.Description != "" {
		return "client: provider error: " + e.Code + ": " + e.Description
	}
	return "client: provider error: " + e.Code
}

type providerDefaults struct {
	authURL string
	scopes  []string
	extra   url.Values
	pkce    bool
}

var defaults = map[ProviderType]providerDefaults{
	Google: {
		authURL: "https://accounts.google.com/o/oauth2/v2/auth",
		scopes:  []string{"openid", "email", "profile"},
		extra: url.Values{
			"access_type":            {"offline"},
			"prompt":                 {"consent"},
			"include_granted_scopes": {"true"},
		},
		pkce: true,
	},
	GitHub: {
		authURL: "https://github.com/login/oauth/authorize",
		scopes:  []string{"read:user", "user:email"},
		extra:   url.Values{"allow_signup": {"true"}},
	},
	// mismo tenant "consumers" que canjea el backend; /common emite otro issuer
	Microsoft: {
		authURL: "https://login.microsoftonline.com/consumers/oauth2/v2.0/authorize",
		scopes:  []string{"openid", "email", "profile", "offline_access"},
		pkce:    true,
	},
	Apple: {
		authURL: "https://appleid.apple.com/auth/authorize",
		scopes:  []string{"openid", "email"},
		extra:   url.Values{"response_mode": {"form_post"}},
		pkce:    true,
	},
}

// State devuelve el estado actual del flujo.
func (c *Client) State() FlowState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *Client) setState(s FlowState) {
	c.mu.Lock()
	c.state = s
	c.mu.Unlock()
}

// AuthorizationURL arma la URL sin tocar el stash.
func (c *Client) AuthorizationURL(p ProviderType, m pkce.Material) (string, error) {
	settings, ok := c.cfg.Providers[p]
	if !ok || settings.ClientID == "" {
		return "", fmt.Errorf("%w: %s", ErrUnknownProvider, p)
	}
	d, ok := defaults[p]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrUnknownProvider, p)
	}
	base := d.authURL
	if settings.AuthURL != "" {
		base = settings.AuthURL
	}
	scopes := d.scopes
	if len(settings.Scopes) > 0 {
		scopes = settings.Scopes
	}

	q := url.Values{}
	q.Set("client_id", settings.ClientID)
	q.Set("redirect_uri", c.cfg.RedirectURI)
	q.Set("response_type", "code")
	q.Set("scope", strings.Join(scopes, " "))
	q.Set("state", m.State)
	for k, vs := range d.extra {
		for _, v := range vs {
			q.Add(k, v)
		}
	}
	if d.pkce && m.Challenge != "" {
		q.Set("code_challenge", m.Challenge)
		q.Set("code_challenge_method", pkce.MethodS256)
	}

	sep := "?"
	if strings.Contains(base, "?") {
		sep = "&"
	}
	return base + sep + q.Encode(), nil
}

// Initiate genera verifier/state, los guarda y navega al provider.
// Volver a llamarlo descarta cualquier flujo anterior.
func (c *Client) Initiate(ctx context.Context, p ProviderType) (string, error) {
	c.setState(Idle)
	d, ok := defaults[p]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrUnknownProvider, p)
	}

	m, err := pkce.New(d.pkce)
	if err != nil {
		return "", err
	}
	authURL, err := c.AuthorizationURL(p, m)
	if err != nil {
		return "", err
	}

	if err := c.stashFlow(ctx, p, m); err != nil {
		c.setState(Failed)
		return "", err
	}

	c.setState(AwaitingRedirect)
	if err := c.nav.Navigate(ctx, authURL); err != nil {
		c.setState(Failed)
		return "", fmt.Errorf("client: navigate: %w", err)
	}
	c.setState(AwaitingCallback)
	return authURL, nil
}

func (c *Client) stashFlow(ctx context.Context, p ProviderType, m pkce.Material) error {
	if err := c.stash.Set(ctx, keyState, m.State); err != nil {
		return fmt.Errorf("client: stash: %w", err)
	}
	if err := c.stash.Set(ctx, keyProvider, string(p)); err != nil {
		return fmt.Errorf("client: stash: %w", err)
	}
	if m.Verifier == "" {
		return c.stash.Delete(ctx, keyVerifier)
	}
	if err := c.stash.Set(ctx, keyVerifier, m.Verifier); err != nil {
		return fmt.Errorf("client: stash: %w", err)
	}
	return nil
}

// takeFlow lee y borra verifier, state y provider. Se consumen una sola vez.
func (c *Client) takeFlow(ctx context.Context) (state, provider, verifier string, err error) {
	var errs []error
	get := func(k string) string {
		v, _, err := c.stash.Get(ctx, k)
		if err != nil {
			errs = append(errs, err)
		}
		if err := c.stash.Delete(ctx, k); err != nil {
			errs = append(errs, err)
		}
		return v
	}
	state = get(keyState)
	provider = get(keyProvider)
	verifier = get(keyVerifier)
	if len(errs) > 0 {
		return "", "", "", fmt.Errorf("client: stash: %w", errors.Join(errs...))
	}
	return state, provider, verifier, nil
}

// HandleRedirect valida code/state del redirect y los cambia por una sesión.
func (c *Client) HandleRedirect(ctx context.Context, query url.Values) (*Session, error) {
	s, err := c.handleRedirect(ctx, query)
	if err != nil {
		c.setState(Failed)
		return nil, err
	}
	c.setState(Authenticated)
	return s, nil
}

func (c *Client) handleRedirect(ctx context.Context, query url.Values) (*Session, error) {
	savedState, provider, verifier, err := c.takeFlow(ctx)
	if err != nil {
		return nil, err
	}

	if e := query.Get("error"); e != "" {
		return nil, &ProviderError{Code: e, Description: query.Get("error_description")}
	}
	code, returned := query.Get("code"), query.Get("state")
	if code == "" || returned == "" || savedState == "" || provider == "" {
		return nil, ErrMissingOAuthParameters
	}
	p := ProviderType(provider)
	if defaults[p].pkce && verifier == "" {
		return nil, ErrMissingOAuthParameters
	}
	if subtle.ConstantTimeCompare([]byte(returned), []byte(savedState)) != 1 {
		return nil, ErrCsrfStateMismatch
	}

	c.setState(Exchanging)
	in := map[string]string{
		"code":        code,
		"redirectUri": c.cfg.RedirectURI,
	}
	if verifier != "" {
		in["codeVerifier"] = verifier
	}
	var s Session
	if err := c.do(ctx, "POST", "/auth/"+url.PathEscape(provider)+"/callback", "", in, &s); err != nil {
		return nil, err
	}
	if err := c.saveSession(ctx, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

func (c *Client) LoginWithGoogle(ctx context.Context) (string, error) {
	return c.Initiate(ctx, Google)
}

func (c *Client) LoginWithGitHub(ctx context.Context) (string, error) {
	return c.Initiate(ctx, GitHub)
}

// HandleGoogleRedirect exige que el flujo guardado sea de Google.
func (c *Client) HandleGoogleRedirect(ctx context.Context, query url.Values) (*Session, error) {
	return c.handleProviderRedirect(ctx, Google, query)
}

func (c *Client) HandleGitHubRedirect(ctx context.Context, query url.Values) (*Session, error) {
	return c.handleProviderRedirect(ctx, GitHub, query)
}

func (c *Client) handleProviderRedirect(ctx context.Context, p ProviderType, query url.Values) (*Session, error) {
	saved, ok, err := c.stash.Get(ctx, keyProvider)
	if err != nil {
		return nil, fmt.Errorf("client: stash: %w", err)
	}
	if ok && saved != string(p) {
		// consume igual el flujo guardado
		_, _, _, _ = c.takeFlow(ctx)
		c.setState(Failed)
		return nil, fmt.Errorf("%w: flow started for %s", ErrMissingOAuthParameters, saved)
	}
	return c.HandleRedirect(ctx, query)
}
