// Package tenant resuelve API key → tenant → config de provider.
// No existe config global de provider: cada tenant trae sus propias credenciales.
package tenant

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/dropDatabas3/tenantauth/internal/cache"
	"github.com/dropDatabas3/tenantauth/internal/domain/repository"
	"github.com/dropDatabas3/tenantauth/internal/oauth"
	"github.com/dropDatabas3/tenantauth/internal/observability/logger"
	"github.com/dropDatabas3/tenantauth/internal/security/secretbox"
	tokens "github.com/dropDatabas3/tenantauth/internal/security/token"
)

var (
	ErrInvalidAPIKey         = errors.New("invalid api key")
	ErrProviderNotConfigured = errors.New("provider not configured for tenant")
	ErrProviderDisabled      = errors.New("provider disabled for tenant")
	ErrTenantNotFound        = errors.New("tenant not found")
	ErrRedirectNotAllowed    = errors.New("redirect uri not allowed for tenant")
)

const defaultKeyCacheTTL = time.Minute

// ProviderConfig ya descifrada, lista para el intercambio.
type ProviderConfig struct {
	Provider     oauth.ProviderType
	ClientID     string
	ClientSecret string
	Enabled      bool
	RedirectURIs []string
}

// Credentials para oauth.Provider.
func (c ProviderConfig) Credentials() oauth.Credentials {
	return oauth.Credentials{ClientID: c.ClientID, ClientSecret: c.ClientSecret}
}

// AllowsRedirect: lista vacía admite cualquier redirect_uri.
func (c ProviderConfig) AllowsRedirect(uri string) bool {
	return len(c.RedirectURIs) == 0 || slices.Contains(c.RedirectURIs, uri)
}

// Resolved es el resultado de ResolveProvider.
type Resolved struct {
	Tenant repository.Tenant
	Config ProviderConfig
}

// Static es el tenant único de despliegues single-tenant. Solo se consulta con API key vacía.
type Static struct {
	Tenant    repository.Tenant
	Providers map[oauth.ProviderType]ProviderConfig
}

// Resolver resuelve tenants y configs. Las API keys se cachean por hash.
type Resolver struct {
	tenants   repository.TenantRepository
	providers repository.ProviderConfigRepository
	box       *secretbox.Box
	cache     cache.Client
	cacheTTL  time.Duration
	static    *Static
}

// NewResolver. c puede ser nil (sin cache).
func NewResolver(store repository.Store, box *secretbox.Box, c cache.Client) *Resolver {
	return &Resolver{
		tenants:   store.Tenants(),
		providers: store.ProviderConfigs(),
		box:       box,
		cache:     c,
		cacheTTL:  defaultKeyCacheTTL,
	}
}

// WithStatic habilita el fallback single-tenant.
func (r *Resolver) WithStatic(s *Static) *Resolver {
	r.static = s
	return r
}

// WithCacheTTL ajusta cuánto vive el mapeo hash → tenant.
func (r *Resolver) WithCacheTTL(d time.Duration) *Resolver {
	r.cacheTTL = d
	return r
}

func apiKeyCacheKey(hash string) string { return "apikey:" + hash }

// ResolveTenant hashea la key y busca el tenant dueño.
func (r *Resolver) ResolveTenant(ctx context.Context, apiKey string) (*repository.Tenant, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		if r.static != nil {
			t := r.static.Tenant
			return &t, nil
		}
		return nil, ErrInvalidAPIKey
	}
	hash := tokens.SHA256Hex(apiKey)
	log := logger.From(ctx).With(logger.Layer("service"), logger.Op("tenant.ResolveTenant"))

	if r.cache != nil {
		if id, err := r.cache.Get(ctx, apiKeyCacheKey(hash)); err == nil {
			t, err := r.tenants.GetByID(ctx, id)
			if err == nil {
				return t, nil
			}
			_ = r.cache.Delete(ctx, apiKeyCacheKey(hash))
		} else if !cache.IsNotFound(err) {
			log.Warn("api key cache read failed", logger.Err(err))
		}
	}

	t, err := r.tenants.GetByAPIKeyHash(ctx, hash)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, ErrInvalidAPIKey
		}
		return nil, fmt.Errorf("resolve tenant: %w", err)
	}
	if r.cache != nil {
		if err := r.cache.Set(ctx, apiKeyCacheKey(hash), t.ID, r.cacheTTL); err != nil {
			log.Warn("api key cache write failed", logger.Err(err))
		}
	}
	return t, nil
}

// ResolveProvider resuelve tenant y config. Config inexistente → ErrProviderNotConfigured,
// deshabilitada → ErrProviderDisabled.
func (r *Resolver) ResolveProvider(ctx context.Context, apiKey string, p oauth.ProviderType) (*Resolved, error) {
	t, err := r.ResolveTenant(ctx, apiKey)
	if err != nil {
		return nil, err
	}
	if r.static != nil && t.ID == r.static.Tenant.ID && strings.TrimSpace(apiKey) == "" {
		cfg, ok := r.static.Providers[p]
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrProviderNotConfigured, p)
		}
		if !cfg.Enabled {
			return nil, fmt.Errorf("%w: %s", ErrProviderDisabled, p)
		}
		return &Resolved{Tenant: *t, Config: cfg}, nil
	}

	row, err := r.providers.Get(ctx, t.ID, string(p))
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, fmt.Errorf("%w: %s", ErrProviderNotConfigured, p)
		}
		return nil, fmt.Errorf("load provider config: %w", err)
	}
	if !row.Enabled {
		return nil, fmt.Errorf("%w: %s", ErrProviderDisabled, p)
	}
	secret, err := r.box.Open(row.ClientSecret)
	if err != nil {
		logger.From(ctx).Error("provider secret unreadable",
			logger.Layer("service"), logger.TenantID(t.ID), logger.Provider(string(p)), logger.Err(err))
		return nil, fmt.Errorf("open client secret: %w", err)
	}
	return &Resolved{
		Tenant: *t,
		Config: ProviderConfig{
			Provider:     p,
			ClientID:     row.ClientID,
			ClientSecret: secret,
			Enabled:      row.Enabled,
			RedirectURIs: row.RedirectURIs,
		},
	}, nil
}

// ProviderCredentials carga la config habilitada de un tenant ya resuelto (refresh de sesión).
func (r *Resolver) ProviderCredentials(ctx context.Context, tenantID string, p oauth.ProviderType) (oauth.Credentials, error) {
	if r.static != nil && tenantID == r.static.Tenant.ID {
		if cfg, ok := r.static.Providers[p]; ok && cfg.Enabled {
			return cfg.Credentials(), nil
		}
	}
	row, err := r.providers.Get(ctx, tenantID, string(p))
	if err != nil {
		if repository.IsNotFound(err) {
			return oauth.Credentials{}, fmt.Errorf("%w: %s", ErrProviderNotConfigured, p)
		}
		return oauth.Credentials{}, err
	}
	if !row.Enabled {
		return oauth.Credentials{}, fmt.Errorf("%w: %s", ErrProviderDisabled, p)
	}
	secret, err := r.box.Open(row.ClientSecret)
	if err != nil {
		return oauth.Credentials{}, fmt.Errorf("open client secret: %w", err)
	}
	return oauth.Credentials{ClientID: row.ClientID, ClientSecret: secret}, nil
}

func (r *Resolver) forgetKey(ctx context.Context, hash string) {
	if r.cache == nil {
		return
	}
	if err := r.cache.Delete(ctx, apiKeyCacheKey(hash)); err != nil {
		logger.From(ctx).Warn("api key cache invalidation failed", logger.Op("tenant.forgetKey"), logger.Err(err))
	}
}
