package tenant

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/dropDatabas3/tenantauth/internal/audit"
	"github.com/dropDatabas3/tenantauth/internal/domain/repository"
	"github.com/dropDatabas3/tenantauth/internal/oauth"
	"github.com/dropDatabas3/tenantauth/internal/observability/logger"
	tokens "github.com/dropDatabas3/tenantauth/internal/security/token"
	"github.com/dropDatabas3/tenantauth/internal/validation"
	"github.com/google/uuid"
)

// ErrInvalidSlug para slugs fuera de [a-z0-9-].
var ErrInvalidSlug = errors.New("invalid tenant slug")

// CreateTenant crea el tenant y su primera API key. La key plana solo se devuelve acá.
func (r *Resolver) CreateTenant(ctx context.Context, name, slug string) (*repository.Tenant, string, error) {
	slug = strings.ToLower(strings.TrimSpace(slug))
	if !validation.ValidSlug(slug) {
		return nil, "", fmt.Errorf("%w: %q", ErrInvalidSlug, slug)
	}
	if strings.TrimSpace(name) == "" {
		name = slug
	}
	t, err := r.tenants.Create(ctx, name, slug)
	if err != nil {
		return nil, "", fmt.Errorf("create tenant: %w", err)
	}
	key, err := r.IssueAPIKey(ctx, t.ID, "default")
	if err != nil {
		return nil, "", err
	}
	audit.Log(ctx, audit.TenantCreated, logger.TenantID(t.ID), logger.String("slug", t.Slug))
	return t, key, nil
}

// EnsureTenant devuelve el tenant por slug o lo crea (sin API key). Usado por single-tenant.
func (r *Resolver) EnsureTenant(ctx context.Context, name, slug string) (*repository.Tenant, error) {
	t, err := r.tenants.GetBySlug(ctx, slug)
	if err == nil {
		return t, nil
	}
	if !repository.IsNotFound(err) {
		return nil, err
	}
	t, err = r.tenants.Create(ctx, name, slug)
	if repository.IsConflict(err) {
		return r.tenants.GetBySlug(ctx, slug)
	}
	return t, err
}

// Lookup acepta id (uuid) o slug.
func (r *Resolver) Lookup(ctx context.Context, ref string) (*repository.Tenant, error) {
	var (
		t   *repository.Tenant
		err error
	)
	if _, perr := uuid.Parse(ref); perr == nil {
		t, err = r.tenants.GetByID(ctx, ref)
	} else {
		t, err = r.tenants.GetBySlug(ctx, strings.ToLower(ref))
	}
	if repository.IsNotFound(err) {
		return nil, fmt.Errorf("%w: %s", ErrTenantNotFound, ref)
	}
	return t, err
}

// List devuelve todos los tenants.
func (r *Resolver) List(ctx context.Context) ([]repository.Tenant, error) {
	return r.tenants.List(ctx)
}

// IssueAPIKey genera 32 bytes hex y guarda solo el sha256.
func (r *Resolver) IssueAPIKey(ctx context.Context, tenantID, label string) (string, error) {
	key, err := tokens.GenerateAPIKey()
	if err != nil {
		return "", err
	}
	if _, err := r.tenants.AddAPIKey(ctx, tenantID, tokens.SHA256Hex(key), label); err != nil {
		if repository.IsNotFound(err) {
			return "", fmt.Errorf("%w: %s", ErrTenantNotFound, tenantID)
		}
		return "", fmt.Errorf("add api key: %w", err)
	}
	audit.Log(ctx, audit.APIKeyIssued, logger.TenantID(tenantID), logger.String("label", label))
	return key, nil
}

// RevokeAPIKey revoca la key y la saca del cache.
func (r *Resolver) RevokeAPIKey(ctx context.Context, tenantID, apiKey string) error {
	hash := tokens.SHA256Hex(strings.TrimSpace(apiKey))
	if err := r.tenants.RevokeAPIKey(ctx, tenantID, hash); err != nil {
		if repository.IsNotFound(err) {
			return ErrInvalidAPIKey
		}
		return fmt.Errorf("revoke api key: %w", err)
	}
	r.forgetKey(ctx, hash)
	audit.Log(ctx, audit.APIKeyRevoked, logger.TenantID(tenantID))
	return nil
}

// RotateAPIKey emite una key nueva y revoca la anterior.
func (r *Resolver) RotateAPIKey(ctx context.Context, tenantID, oldKey string) (string, error) {
	key, err := r.IssueAPIKey(ctx, tenantID, "rotated")
	if err != nil {
		return "", err
	}
	if err := r.RevokeAPIKey(ctx, tenantID, oldKey); err != nil {
		return "", err
	}
	return key, nil
}

// SetProviderInput para SetProvider.
type SetProviderInput struct {
	TenantID     string
	Provider     oauth.ProviderType
	ClientID     string
	ClientSecret string
	RedirectURIs []string
	Enabled      bool
}

// SetProvider crea o reemplaza la config (tenant, provider). El secret se sella antes de persistir.
func (r *Resolver) SetProvider(ctx context.Context, in SetProviderInput) error {
	if _, err := oauth.ParseProviderType(string(in.Provider)); err != nil {
		return err
	}
	if strings.TrimSpace(in.ClientID) == "" {
		return fmt.Errorf("%w: client id required", repository.ErrInvalidInput)
	}
	for _, u := range in.RedirectURIs {
		if !validation.ValidRedirectURI(u) {
			return fmt.Errorf("%w: redirect uri %q", repository.ErrInvalidInput, u)
		}
	}
	sealed, err := r.box.Seal(in.ClientSecret)
	if err != nil {
		return fmt.Errorf("seal client secret: %w", err)
	}
	err = r.providers.Upsert(ctx, repository.ProviderConfig{
		TenantID:     in.TenantID,
		Provider:     string(in.Provider),
		ClientID:     strings.TrimSpace(in.ClientID),
		ClientSecret: sealed,
		Enabled:      in.Enabled,
		RedirectURIs: in.RedirectURIs,
	})
	if repository.IsNotFound(err) {
		return fmt.Errorf("%w: %s", ErrTenantNotFound, in.TenantID)
	}
	if err != nil {
		return err
	}
	audit.Log(ctx, audit.ProviderSet,
		logger.TenantID(in.TenantID), logger.Provider(string(in.Provider)), logger.Any("enabled", in.Enabled))
	return nil
}

// ToggleProvider cambia el flag enabled.
func (r *Resolver) ToggleProvider(ctx context.Context, tenantID string, p oauth.ProviderType, enabled bool) error {
	err := r.providers.SetEnabled(ctx, tenantID, string(p), enabled)
	if repository.IsNotFound(err) {
		return fmt.Errorf("%w: %s", ErrProviderNotConfigured, p)
	}
	if err != nil {
		return err
	}
	audit.Log(ctx, audit.ProviderToggled,
		logger.TenantID(tenantID), logger.Provider(string(p)), logger.Any("enabled", enabled))
	return nil
}

// ListProviders devuelve las configs con el secret ocultado.
func (r *Resolver) ListProviders(ctx context.Context, tenantID string) ([]ProviderConfig, error) {
	rows, err := r.providers.List(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	out := make([]ProviderConfig, 0, len(rows))
	for _, row := range rows {
		masked := ""
		if row.ClientSecret != "" {
			masked = "********"
		}
		out = append(out, ProviderConfig{
			Provider:     oauth.ProviderType(row.Provider),
			ClientID:     row.ClientID,
			ClientSecret: masked,
			Enabled:      row.Enabled,
			RedirectURIs: row.RedirectURIs,
		})
	}
	return out, nil
}
