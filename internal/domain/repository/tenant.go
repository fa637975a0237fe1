package repository

import (
	"context"
	"time"
)

// Tenant es un namespace aislado de un producto SaaS.
type Tenant struct {
	ID        string
	Slug      string
	Name      string
	CreatedAt time.Time
}

// APIKey guarda solo el hash sha256 de la key; el valor plano se muestra una vez.
type APIKey struct {
	ID        string
	TenantID  string
	KeyHash   string
	Label     string
	CreatedAt time.Time
	RevokedAt *time.Time
}

// ProviderConfig es la app OAuth registrada por un tenant para un provider.
// ClientSecret viaja sellado (secretbox) hacia y desde el storage.
type ProviderConfig struct {
	TenantID     string
	Provider     string
	ClientID     string
	ClientSecret string
	Enabled      bool
	RedirectURIs []string
	UpdatedAt    time.Time
}

// TenantRepository define operaciones sobre tenants y sus API keys.
type TenantRepository interface {
	// Create crea un tenant. ErrConflict si el slug ya existe.
	Create(ctx context.Context, name, slug string) (*Tenant, error)
	GetByID(ctx context.Context, id string) (*Tenant, error)
	GetBySlug(ctx context.Context, slug string) (*Tenant, error)
	List(ctx context.Context) ([]Tenant, error)

	// GetByAPIKeyHash resuelve el tenant dueño de la key. Keys revocadas → ErrNotFound.
	GetByAPIKeyHash(ctx context.Context, keyHash string) (*Tenant, error)
	// AddAPIKey registra una key nueva. ErrConflict si el hash ya existe.
	AddAPIKey(ctx context.Context, tenantID, keyHash, label string) (*APIKey, error)
	// RevokeAPIKey marca la key como revocada. ErrNotFound si no pertenece al tenant.
	RevokeAPIKey(ctx context.Context, tenantID, keyHash string) error
}

// ProviderConfigRepository define operaciones sobre las configs de provider por tenant.
type ProviderConfigRepository interface {
	// Get retorna ErrNotFound si el tenant no configuró el provider.
	Get(ctx context.Context, tenantID, provider string) (*ProviderConfig, error)
	// Upsert crea o reemplaza la config (tenant, provider).
	Upsert(ctx context.Context, cfg ProviderConfig) error
	// SetEnabled cambia el flag. ErrNotFound si no existe.
	SetEnabled(ctx context.Context, tenantID, provider string, enabled bool) error
	List(ctx context.Context, tenantID string) ([]ProviderConfig, error)
}
