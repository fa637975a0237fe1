package identity

import (
	"context"
	"fmt"
	"strings"

	"github.com/dropDatabas3/tenantauth/internal/domain/repository"
	"github.com/dropDatabas3/tenantauth/internal/observability/logger"
	"github.com/dropDatabas3/tenantauth/internal/security/password"
)

func (s *Service) hashValid(plain string) (string, error) {
	if ok, reasons := s.policy.Validate(plain); !ok {
		return "", &InputError{Reasons: reasons}
	}
	hash, err := password.Hash(s.params, plain)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return hash, nil
}

// RegisterPassword crea la cuenta. Si el email ya es de una cuenta social devuelve
// ErrEmailOwnershipRequired: el password se agrega con AttachPassword + código OTP.
func (s *Service) RegisterPassword(ctx context.Context, tenantID, rawEmail, plain, username string) (*repository.User, error) {
	addr, err := NormalizeEmail(rawEmail)
	if err != nil {
		return nil, err
	}
	hash, err := s.hashValid(plain)
	if err != nil {
		return nil, err
	}
	username = strings.TrimSpace(username)
	if username == "" {
		username = addr[:strings.IndexByte(addr, '@')]
	}
	log := s.log(ctx, "identity.RegisterPassword").With(logger.TenantID(tenantID), logger.Email(addr))

	for attempt := 0; attempt < 2; attempt++ {
		existing, err := s.users.GetByEmail(ctx, tenantID, addr)
		switch {
		case err == nil:
			if existing.HasPassword() {
				return nil, ErrEmailAlreadyRegistered
			}
			return nil, ErrEmailOwnershipRequired
		case !repository.IsNotFound(err):
			return nil, err
		}

		u, err := s.users.Create(ctx, repository.CreateUserInput{
			TenantID:     tenantID,
			Email:        addr,
			Username:     username,
			PasswordHash: hash,
		})
		if repository.IsConflict(err) {
			continue
		}
		if repository.IsNotFound(err) {
			return nil, fmt.Errorf("%w: tenant", ErrUserNotFound)
		}
		if err != nil {
			return nil, fmt.Errorf("create user: %w", err)
		}
		log.Info("user registered", logger.UserID(u.ID))
		return u, nil
	}
	return nil, ErrEmailAlreadyRegistered
}

// AttachPassword agrega password a una cuenta social. El código OTP (IssueOTP) prueba
// que el caller controla el email; se consume aunque después falle el guardado.
func (s *Service) AttachPassword(ctx context.Context, tenantID, rawEmail, code, plain string) (*repository.User, error) {
	addr, err := NormalizeEmail(rawEmail)
	if err != nil {
		return nil, err
	}
	hash, err := s.hashValid(plain)
	if err != nil {
		return nil, err
	}
	existing, err := s.users.GetByEmail(ctx, tenantID, addr)
	if repository.IsNotFound(err) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	if existing.HasPassword() {
		return nil, ErrEmailAlreadyRegistered
	}
	u, err := s.VerifyOTP(ctx, tenantID, addr, code)
	if err != nil {
		return nil, err
	}
	if err := s.users.SetPasswordHash(ctx, tenantID, u.ID, hash); err != nil {
		return nil, fmt.Errorf("set password: %w", err)
	}
	u.PasswordHash = hash
	s.log(ctx, "identity.AttachPassword").Info("password attached to existing user",
		logger.TenantID(tenantID), logger.UserID(u.ID))
	return u, nil
}

// VerifyPassword compara en tiempo constante (argon2id, bcrypt legacy).
func VerifyPassword(plain, storedHash string) bool {
	return password.Verify(plain, storedHash)
}

// LoginPassword siempre busca dentro del tenant.
func (s *Service) LoginPassword(ctx context.Context, tenantID, rawEmail, plain string) (*repository.User, error) {
	addr, err := NormalizeEmail(rawEmail)
	if err != nil {
		return nil, err
	}
	if plain == "" {
		return nil, &InputError{Reasons: []string{"password is required"}}
	}
	u, err := s.users.GetByEmail(ctx, tenantID, addr)
	if repository.IsNotFound(err) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	if !u.HasPassword() {
		return nil, ErrNoPasswordSet
	}
	if !VerifyPassword(plain, u.PasswordHash) {
		s.log(ctx, "identity.LoginPassword").Info("password mismatch", logger.TenantID(tenantID), logger.UserID(u.ID))
		return nil, ErrInvalidCredentials
	}
	return u, nil
}
