package repository

import (
	"context"
	"time"
)

// ProviderRefreshToken es el refresh token de larga vida emitido por el provider externo.
// Token viaja sellado (secretbox) hacia y desde el storage.
type ProviderRefreshToken struct {
	UserID    string
	Provider  string
	Token     string
	ExpiresAt time.Time
	CreatedAt time.Time
}

// ProviderTokenRepository persiste un refresh token por (usuario, provider).
type ProviderTokenRepository interface {
	// Replace borra el token previo e inserta el nuevo de forma atómica.
	Replace(ctx context.Context, t ProviderRefreshToken) error
	// Get retorna ErrNotFound si no hay token.
	Get(ctx context.Context, userID, provider string) (*ProviderRefreshToken, error)
	// Delete es idempotente.
	Delete(ctx context.Context, userID, provider string) error
	// DeleteAllByUser retorna cuántos tokens borró.
	DeleteAllByUser(ctx context.Context, userID string) (int, error)
	// ListByUser ordena por CreatedAt descendente.
	ListByUser(ctx context.Context, userID string) ([]ProviderRefreshToken, error)
}

// Store agrupa los repositorios de un backend concreto.
type Store interface {
	Tenants() TenantRepository
	ProviderConfigs() ProviderConfigRepository
	Users() UserRepository
	Identities() IdentityRepository
	ProviderTokens() ProviderTokenRepository

	Ping(ctx context.Context) error
	Close() error
}
