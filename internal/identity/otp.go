package identity

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dropDatabas3/tenantauth/internal/domain/repository"
	"github.com/dropDatabas3/tenantauth/internal/email"
	"github.com/dropDatabas3/tenantauth/internal/observability/logger"
	tokens "github.com/dropDatabas3/tenantauth/internal/security/token"
)

// RateLimitedError indica cuándo reintentar. errors.Is(err, ErrOTPRateLimited).
type RateLimitedError struct {
	RetryAfter time.Duration
}

func (e *RateLimitedError) Error() string {
	return fmt.Sprintf("%s: retry after %s", ErrOTPRateLimited, e.RetryAfter.Round(time.Second))
}

func (e *RateLimitedError) Is(target error) bool { return target == ErrOTPRateLimited }

func otpKey(prefix, tenantID, addr string) string { return prefix + tenantID + ":" + addr }

// IssueOTP genera un código, guarda solo su sha256 y lo manda por email.
// Devuelve el código para callers internos; la API HTTP nunca lo expone.
func (s *Service) IssueOTP(ctx context.Context, tenantID, rawEmail string) (string, error) {
	addr, err := NormalizeEmail(rawEmail)
	if err != nil {
		return "", err
	}
	u, err := s.users.GetByEmail(ctx, tenantID, addr)
	if repository.IsNotFound(err) {
		return "", ErrUserNotFound
	}
	if err != nil {
		return "", err
	}
	if s.sendLimiter != nil {
		res, err := s.sendLimiter.Allow(ctx, otpKey("otp:send:", tenantID, addr))
		if err != nil {
			return "", fmt.Errorf("otp limiter: %w", err)
		}
		if !res.Allowed {
			return "", &RateLimitedError{RetryAfter: res.RetryAfter}
		}
	}

	code, err := tokens.GenerateNumericCode(DefaultOTPDigits)
	if err != nil {
		return "", err
	}
	exp := s.now().Add(s.otpTTL)
	if err := s.users.SetOTP(ctx, tenantID, u.ID, tokens.SHA256Hex(code), exp); err != nil {
		return "", fmt.Errorf("store otp: %w", err)
	}

	tenantName := tenantID
	if t, err := s.tenants.GetByID(ctx, tenantID); err == nil {
		tenantName = t.Name
	}
	msg, err := email.RenderOTP(addr, email.OTPVars{Tenant: tenantName, Code: code, ExpiresIn: s.otpTTL})
	if err != nil {
		return "", err
	}
	if err := s.mailer.Send(ctx, msg); err != nil {
		return "", fmt.Errorf("send otp: %w", err)
	}
	s.log(ctx, "identity.IssueOTP").Info("otp issued", logger.TenantID(tenantID), logger.UserID(u.ID))
	return code, nil
}

// VerifyOTP compara en tiempo constante. Un código correcto se consume y marca el email verificado.
func (s *Service) VerifyOTP(ctx context.Context, tenantID, rawEmail, code string) (*repository.User, error) {
	addr, err := NormalizeEmail(rawEmail)
	if err != nil {
		return nil, err
	}
	if s.verifyLimiter != nil {
		res, err := s.verifyLimiter.Allow(ctx, otpKey("otp:verify:", tenantID, addr))
		if err != nil {
			return nil, fmt.Errorf("otp limiter: %w", err)
		}
		if !res.Allowed {
			// el código vigente queda quemado: hay que pedir otro (y eso también está limitado)
			if u, err := s.users.GetByEmail(ctx, tenantID, addr); err == nil && u.OTPHash != "" {
				if err := s.users.ClearOTP(ctx, tenantID, u.ID, false); err != nil && !errors.Is(err, repository.ErrNotFound) {
					return nil, err
				}
			}
			s.log(ctx, "identity.VerifyOTP").Warn("otp verify attempts exhausted", logger.TenantID(tenantID), logger.Email(addr))
			return nil, &RateLimitedError{RetryAfter: res.RetryAfter}
		}
	}
	u, err := s.users.GetByEmail(ctx, tenantID, addr)
	if repository.IsNotFound(err) {
		return nil, ErrOTPInvalid
	}
	if err != nil {
		return nil, err
	}
	if u.OTPHash == "" || u.OTPExpiresAt == nil {
		return nil, ErrOTPInvalid
	}
	if !s.now().Before(*u.OTPExpiresAt) {
		if err := s.users.ClearOTP(ctx, tenantID, u.ID, false); err != nil && !errors.Is(err, repository.ErrNotFound) {
			return nil, err
		}
		return nil, ErrOTPExpired
	}
	if !tokens.EqualDigest(code, u.OTPHash) {
		return nil, ErrOTPInvalid
	}
	if err := s.users.ClearOTP(ctx, tenantID, u.ID, true); err != nil {
		return nil, fmt.Errorf("clear otp: %w", err)
	}
	u.OTPHash, u.OTPExpiresAt, u.EmailVerified = "", nil, true
	return u, nil
}
