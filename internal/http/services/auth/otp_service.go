package auth

import (
	"context"

	dto "github.com/dropDatabas3/tenantauth/internal/http/dto/auth"
	"github.com/dropDatabas3/tenantauth/internal/metrics"
)

const methodOTP = "otp"

type otpService struct {
	d Deps
}

func NewOTPService(d Deps) OTPService {
	return &otpService{d: d}
}

// Send nunca devuelve el código: solo viaja por email.
func (s *otpService) Send(ctx context.Context, apiKey string, in dto.OTPSendRequest) error {
	if missing := requireFields(map[string]string{"email": in.Email}); len(missing) > 0 {
		return &MissingFieldsError{Fields: missing}
	}
	t, err := s.d.Tenants.ResolveTenant(ctx, apiKey)
	if err != nil {
		return err
	}
	_, err = s.d.Users.IssueOTP(ctx, t.ID, in.Email)
	if err != nil {
		s.d.Metrics.OTPSent(outcome(err))
		return err
	}
	s.d.Metrics.OTPSent(metrics.OutcomeSuccess)
	return nil
}

func (s *otpService) Verify(ctx context.Context, apiKey string, in dto.OTPVerifyRequest) (out *dto.OTPVerifyResponse, err error) {
	defer func() { s.d.Metrics.Auth(methodOTP, outcome(err)) }()

	if missing := requireFields(map[string]string{"email": in.Email, "code": in.Code}); len(missing) > 0 {
		return nil, &MissingFieldsError{Fields: missing}
	}
	t, err := s.d.Tenants.ResolveTenant(ctx, apiKey)
	if err != nil {
		return nil, err
	}
	u, err := s.d.Users.VerifyOTP(ctx, t.ID, in.Email, in.Code)
	if err != nil {
		return nil, err
	}
	return &dto.OTPVerifyResponse{Verified: true, UserID: u.ID}, nil
}
