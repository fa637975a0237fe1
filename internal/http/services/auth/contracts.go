// Package auth contiene los services de /auth: orquestan tenant, provider, identidad y sesión.
// No conocen HTTP; los controllers traducen sus errores a AppError.
package auth

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/dropDatabas3/tenantauth/internal/domain/repository"
	dto "github.com/dropDatabas3/tenantauth/internal/http/dto/auth"
	"github.com/dropDatabas3/tenantauth/internal/identity"
	"github.com/dropDatabas3/tenantauth/internal/jwt"
	"github.com/dropDatabas3/tenantauth/internal/metrics"
	"github.com/dropDatabas3/tenantauth/internal/oauth"
	"github.com/dropDatabas3/tenantauth/internal/tenant"
)

var (
	ErrMissingFields  = errors.New("missing required fields")
	ErrTenantMismatch = errors.New("user does not belong to tenant")
)

// MissingFieldsError lista los campos faltantes. errors.Is(err, ErrMissingFields).
type MissingFieldsError struct {
	Fields []string
}

func (e *MissingFieldsError) Error() string {
	return ErrMissingFields.Error() + ": " + strings.Join(e.Fields, ", ")
}

func (e *MissingFieldsError) Is(target error) bool { return target == ErrMissingFields }

// ─── Dependencias ───

// TenantResolver lo implementa *tenant.Resolver.
type TenantResolver interface {
	ResolveTenant(ctx context.Context, apiKey string) (*repository.Tenant, error)
	ResolveProvider(ctx context.Context, apiKey string, p oauth.ProviderType) (*tenant.Resolved, error)
}

// Users lo implementa *identity.Service.
type Users interface {
	ResolveOrCreateUser(ctx context.Context, in identity.ResolveInput) (*repository.User, error)
	RegisterPassword(ctx context.Context, tenantID, email, password, username string) (*repository.User, error)
	AttachPassword(ctx context.Context, tenantID, email, code, password string) (*repository.User, error)
	LoginPassword(ctx context.Context, tenantID, email, password string) (*repository.User, error)
	GetUser(ctx context.Context, tenantID, userID string) (*repository.User, error)
	ListIdentities(ctx context.Context, tenantID, userID string) ([]repository.Identity, error)
	IssueOTP(ctx context.Context, tenantID, email string) (string, error)
	VerifyOTP(ctx context.Context, tenantID, email, code string) (*repository.User, error)
}

// ProviderTokens lo implementa *providertoken.Store.
type ProviderTokens interface {
	StoreRefreshToken(ctx context.Context, userID string, p oauth.ProviderType, token string, expiresAt time.Time) error
	RevokeAll(ctx context.Context, userID string) (int, error)
}

// Refresher lo implementa *providertoken.Refresher.
type Refresher interface {
	Refresh(ctx context.Context, tenantID, userID string) (oauth.ProviderType, *oauth.Tokens, error)
}

// SessionIssuer lo implementa *jwt.SessionIssuer.
type SessionIssuer interface {
	Issue(userID, tenantID, email string) (string, time.Time, error)
}

// ─── Contratos ───

// CallbackService resuelve POST /auth/{provider}/callback.
type CallbackService interface {
	Callback(ctx context.Context, provider, apiKey string, in dto.CallbackRequest) (*dto.SessionResponse, error)
}

// PasswordService resuelve /auth/password/*.
type PasswordService interface {
	Register(ctx context.Context, apiKey string, in dto.RegisterRequest) (*dto.RegisterResponse, error)
	Login(ctx context.Context, apiKey string, in dto.LoginRequest) (*dto.SessionResponse, error)
}

// SessionService resuelve /auth/me y /auth/logout sobre una sesión ya verificada.
type SessionService interface {
	Me(ctx context.Context, s *jwt.SessionClaims) (*dto.MeResponse, error)
	Logout(ctx context.Context, s *jwt.SessionClaims, everywhere bool) (*dto.LogoutResponse, error)
}

// RefreshService resuelve POST /auth/token/refresh.
type RefreshService interface {
	Refresh(ctx context.Context, apiKey string, in dto.RefreshRequest) (*dto.RefreshResponse, error)
}

// OTPService resuelve /auth/otp/*.
type OTPService interface {
	Send(ctx context.Context, apiKey string, in dto.OTPSendRequest) error
	Verify(ctx context.Context, apiKey string, in dto.OTPVerifyRequest) (*dto.OTPVerifyResponse, error)
}

// Deps son las dependencias compartidas por los services de auth.
type Deps struct {
	Tenants   TenantResolver
	Registry  *oauth.Registry
	Users     Users
	Tokens    ProviderTokens
	Refresher Refresher
	Sessions  SessionIssuer
	Metrics   *metrics.Metrics
}

// Services agrupa los services del dominio auth.
type Services struct {
	Callback CallbackService
	Password PasswordService
	Session  SessionService
	Refresh  RefreshService
	OTP      OTPService
}

// NewServices arma todos los services desde Deps.
func NewServices(d Deps) Services {
	return Services{
		Callback: NewCallbackService(d),
		Password: NewPasswordService(d),
		Session:  NewSessionService(d),
		Refresh:  NewRefreshService(d),
		OTP:      NewOTPService(d),
	}
}

func userDTO(u *repository.User) dto.User {
	return dto.User{
		ID:                u.ID,
		Email:             u.Email,
		Name:              u.Username,
		ProfilePictureURL: u.ImageURL,
	}
}

// outcome clasifica un error para las métricas de auth.
func outcome(err error) string {
	switch {
	case err == nil:
		return metrics.OutcomeSuccess
	case errors.Is(err, oauth.ErrProviderUnavailable):
		return metrics.OutcomeUnavailable
	case errors.Is(err, oauth.ErrProviderExchangeFailed),
		errors.Is(err, oauth.ErrIdentityVerificationFailed),
		errors.Is(err, identity.ErrInvalidCredentials),
		errors.Is(err, identity.ErrUserNotFound),
		errors.Is(err, identity.ErrNoPasswordSet),
		errors.Is(err, identity.ErrOTPInvalid),
		errors.Is(err, identity.ErrOTPExpired),
		errors.Is(err, identity.ErrOTPRateLimited),
		errors.Is(err, tenant.ErrInvalidAPIKey),
		errors.Is(err, tenant.ErrProviderDisabled),
		errors.Is(err, tenant.ErrProviderNotConfigured),
		errors.Is(err, tenant.ErrRedirectNotAllowed),
		errors.Is(err, ErrMissingFields),
		errors.Is(err, ErrTenantMismatch):
		return metrics.OutcomeRejected
	default:
		return metrics.OutcomeError
	}
}
