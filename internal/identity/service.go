// Package identity resuelve usuarios tenant-scoped a partir de identidades externas,
// password u OTP por email.
package identity

import (
	"context"
	"errors"
	"net/mail"
	"strings"
	"time"

	"github.com/dropDatabas3/tenantauth/internal/domain/repository"
	"github.com/dropDatabas3/tenantauth/internal/email"
	"github.com/dropDatabas3/tenantauth/internal/observability/logger"
	"github.com/dropDatabas3/tenantauth/internal/rate"
	"github.com/dropDatabas3/tenantauth/internal/security/password"
	"go.uber.org/zap"
)

var (
	ErrInvalidInput            = errors.New("invalid input")
	ErrUserNotFound            = errors.New("user not found")
	ErrNoPasswordSet           = errors.New("account has no password; use its social provider")
	ErrInvalidCredentials      = errors.New("invalid credentials")
	ErrEmailAlreadyRegistered  = errors.New("email already registered")
	ErrEmailOwnershipRequired  = errors.New("email belongs to a social account; verify it with an otp code first")
	ErrUnverifiedEmailConflict = errors.New("email belongs to another account and the provider did not verify it")
	ErrOTPRateLimited          = errors.New("otp rate limited")
	ErrOTPInvalid              = errors.New("otp invalid")
	ErrOTPExpired              = errors.New("otp expired")
)

// InputError lista los motivos de validación. errors.Is(err, ErrInvalidInput).
type InputError struct {
	Reasons []string
}

func (e *InputError) Error() string {
	return ErrInvalidInput.Error() + ": " + strings.Join(e.Reasons, "; ")
}

func (e *InputError) Is(target error) bool { return target == ErrInvalidInput }

const (
	DefaultOTPTTL    = 5 * time.Minute
	DefaultOTPDigits = 6
	maxResolveTries  = 3
)

// Options de NewService. Los campos vacíos toman defaults.
type Options struct {
	PasswordParams password.Params
	Policy         password.Policy
	// SendLimiter acota envíos de OTP por (tenant, email).
	SendLimiter rate.Limiter
	// VerifyLimiter acota intentos de verificación por (tenant, email). Opcional.
	VerifyLimiter rate.Limiter
	Mailer        email.Sender
	OTPTTL        time.Duration
}

// Service implementa resolución de usuarios, password y OTP.
type Service struct {
	tenants    repository.TenantRepository
	users      repository.UserRepository
	identities repository.IdentityRepository

	params        password.Params
	policy        password.Policy
	sendLimiter   rate.Limiter
	verifyLimiter rate.Limiter
	mailer        email.Sender
	otpTTL        time.Duration
	now           func() time.Time
}

// NewService arma el servicio sobre un Store.
func NewService(store repository.Store, opts Options) *Service {
	s := &Service{
		tenants:       store.Tenants(),
		users:         store.Users(),
		identities:    store.Identities(),
		params:        opts.PasswordParams,
		policy:        opts.Policy,
		sendLimiter:   opts.SendLimiter,
		verifyLimiter: opts.VerifyLimiter,
		mailer:        opts.Mailer,
		otpTTL:        opts.OTPTTL,
		now:           time.Now,
	}
	if s.params == (password.Params{}) {
		s.params = password.Default
	}
	if s.policy == (password.Policy{}) {
		s.policy = password.DefaultPolicy
	}
	if s.mailer == nil {
		s.mailer = email.NopSender{}
	}
	if s.otpTTL <= 0 {
		s.otpTTL = DefaultOTPTTL
	}
	return s
}

// WithClock reemplaza el reloj (tests de expiración OTP).
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// NormalizeEmail valida el formato y devuelve la dirección en minúsculas.
func NormalizeEmail(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", &InputError{Reasons: []string{"email is required"}}
	}
	addr, err := mail.ParseAddress(raw)
	if err != nil || addr.Address != raw {
		return "", &InputError{Reasons: []string{"email is invalid"}}
	}
	return strings.ToLower(addr.Address), nil
}

// GetUser busca por id dentro del tenant.
func (s *Service) GetUser(ctx context.Context, tenantID, userID string) (*repository.User, error) {
	u, err := s.users.GetByID(ctx, tenantID, userID)
	if repository.IsNotFound(err) {
		return nil, ErrUserNotFound
	}
	return u, err
}

// ListIdentities devuelve las identidades externas del usuario.
func (s *Service) ListIdentities(ctx context.Context, tenantID, userID string) ([]repository.Identity, error) {
	return s.identities.ListByUser(ctx, tenantID, userID)
}

func (s *Service) log(ctx context.Context, op string) *zap.Logger {
	return logger.From(ctx).With(logger.Layer("service"), logger.Op(op))
}
