// Package client es el SDK para apps que autentican contra tenantauth.
//
// Maneja el flujo de redirect (PKCE + state), el intercambio del code contra
// el backend y guarda la sesión en un Stash. Cada Client es independiente:
// no hay estado global.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"
)

// ProviderType identifica el proveedor externo.
type ProviderType string

const (
	Google    ProviderType = "google"
	GitHub    ProviderType = "github"
	Microsoft ProviderType = "microsoft"
	Apple     ProviderType = "apple"
)

// HeaderAPIKey identifica al tenant ante el backend.
const HeaderAPIKey = "X-API-Key"

// ProviderSettings es lo público de la app OAuth del tenant (nunca el secret).
type ProviderSettings struct {
	ClientID string
	// AuthURL reemplaza el endpoint de autorización por defecto.
	AuthURL string
	// Scopes reemplaza los scopes por defecto.
	Scopes []string
}

// Config del cliente.
type Config struct {
	BaseURL     string
	APIKey      string
	RedirectURI string
	Providers   map[ProviderType]ProviderSettings
	HTTPClient  *http.Client
	// Stash por defecto: MemoryStash.
	Stash Stash
	// Navigator por defecto: imprime la URL en stdout.
	Navigator Navigator
}

// User tal como lo devuelve el backend.
type User struct {
	ID                string `json:"id"`
	Email             string `json:"email"`
	Name              string `json:"name,omitempty"`
	ProfilePictureURL string `json:"profilePictureUrl,omitempty"`
}

// Session resultado de un login.
type Session struct {
	SessionToken string    `json:"sessionToken"`
	ExpiresAt    time.Time `json:"expiresAt"`
	User         User      `json:"user"`
}

// Me es la respuesta de GET /auth/me.
type Me struct {
	ID            string   `json:"id"`
	TenantID      string   `json:"tenantId"`
	Email         string   `json:"email"`
	Username      string   `json:"username,omitempty"`
	Image         string   `json:"image,omitempty"`
	EmailVerified bool     `json:"emailVerified"`
	HasPassword   bool     `json:"hasPassword"`
	Providers     []string `json:"providers"`
}

// Client no es seguro para flujos concurrentes sobre el mismo Stash.
type Client struct {
	cfg   Config
	http  *http.Client
	stash Stash
	nav   Navigator

	mu    sync.Mutex
	state FlowState
}

// New valida la config y aplica defaults.
func New(cfg Config) (*Client, error) {
	cfg.BaseURL = strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if cfg.BaseURL == "" {
		return nil, errors.New("client: BaseURL is required")
	}
	c := &Client{cfg: cfg, http: cfg.HTTPClient, stash: cfg.Stash, nav: cfg.Navigator, state: Idle}
	if c.http == nil {
		c.http = &http.Client{Timeout: 30 * time.Second}
	}
	if c.stash == nil {
		c.stash = NewMemoryStash()
	}
	if c.nav == nil {
		c.nav = PrintNavigator{}
	}
	return c, nil
}

// do ejecuta la request y decodifica out si es 2xx. Con bearer vacío no manda Authorization.
func (c *Client) do(ctx context.Context, method, path, bearer string, in, out any) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("client: encode request: %w", err)
		}
		body = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.cfg.BaseURL+path, body)
	if err != nil {
		return fmt.Errorf("client: new request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.cfg.APIKey != "" {
		req.Header.Set(HeaderAPIKey, c.cfg.APIKey)
	}
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("client: %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("client: read response: %w", err)
	}
	if resp.StatusCode/100 != 2 {
		return backendError(resp.StatusCode, raw)
	}
	if out == nil || len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("client: decode response: %w", err)
	}
	return nil
}

const (
	keyVerifier = "tenantauth.pkce_verifier"
	keyState    = "tenantauth.oauth_state"
	keyProvider = "tenantauth.oauth_provider"
	keySession  = "tenantauth.session"
)

// CurrentSession devuelve la sesión guardada, si hay.
func (c *Client) CurrentSession(ctx context.Context) (*Session, error) {
	raw, ok, err := c.stash.Get(ctx, keySession)
	if err != nil {
		return nil, fmt.Errorf("client: stash: %w", err)
	}
	if !ok || raw == "" {
		return nil, ErrNoSession
	}
	var s Session
	if err := json.Unmarshal([]byte(raw), &s); err != nil {
		// sesión corrupta: se descarta
		_ = c.stash.Delete(ctx, keySession)
		return nil, ErrNoSession
	}
	return &s, nil
}

func (c *Client) saveSession(ctx context.Context, s *Session) error {
	b, err := json.Marshal(s)
	if err != nil {
		return err
	}
	if err := c.stash.Set(ctx, keySession, string(b)); err != nil {
		return fmt.Errorf("client: stash: %w", err)
	}
	return nil
}

func (c *Client) clearSession(ctx context.Context) error {
	return c.stash.Delete(ctx, keySession)
}
