package repository

import (
	"context"
	"time"
)

// User es una cuenta de usuario final, siempre dentro de un tenant.
type User struct {
	ID            string
	TenantID      string
	Email         string
	Username      string
	ImageURL      string
	PasswordHash  string
	EmailVerified bool
	OTPHash       string
	OTPExpiresAt  *time.Time
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// HasPassword indica si la cuenta admite login con password.
func (u *User) HasPassword() bool { return u != nil && u.PasswordHash != "" }

// Identity vincula un usuario con su id en un provider externo.
type Identity struct {
	ID         string
	UserID     string
	TenantID   string
	Provider   string
	ExternalID string
	Email      string
	CreatedAt  time.Time
}

// CreateUserInput contiene los datos para crear un usuario.
type CreateUserInput struct {
	TenantID      string
	Email         string
	Username      string
	ImageURL      string
	PasswordHash  string
	EmailVerified bool
}

// IdentityInput describe la identidad externa a crear junto con (o para) un usuario.
type IdentityInput struct {
	Provider   string
	ExternalID string
	Email      string
}

// UserRepository define operaciones sobre usuarios. Toda lectura va filtrada por tenant.
type UserRepository interface {
	GetByID(ctx context.Context, tenantID, userID string) (*User, error)
	GetByEmail(ctx context.Context, tenantID, email string) (*User, error)

	// Create inserta un usuario. ErrConflict si (tenant, email) ya existe.
	Create(ctx context.Context, in CreateUserInput) (*User, error)

	// UpdateProfile actualiza username e imagen. Email es inmutable.
	UpdateProfile(ctx context.Context, tenantID, userID, username, imageURL string) error
	SetPasswordHash(ctx context.Context, tenantID, userID, hash string) error

	SetOTP(ctx context.Context, tenantID, userID, hash string, expiresAt time.Time) error
	// ClearOTP borra el hash; si verified es true marca el email como verificado.
	ClearOTP(ctx context.Context, tenantID, userID string, verified bool) error
}

// IdentityRepository define operaciones sobre identidades externas.
type IdentityRepository interface {
	// GetByExternalID retorna ErrNotFound si la identidad no existe en el tenant.
	GetByExternalID(ctx context.Context, tenantID, provider, externalID string) (*Identity, error)

	// CreateWithUser crea usuario + identidad en una transacción.
	// ErrConflict si (tenant, provider, externalID) o (tenant, email) ya existen.
	CreateWithUser(ctx context.Context, user CreateUserInput, id IdentityInput) (*User, *Identity, error)

	// Link agrega una identidad a un usuario existente. ErrConflict si ya existe.
	Link(ctx context.Context, tenantID, userID string, id IdentityInput) (*Identity, error)

	ListByUser(ctx context.Context, tenantID, userID string) ([]Identity, error)
}
