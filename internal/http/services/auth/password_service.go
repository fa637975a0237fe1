package auth

import (
	"context"
	"fmt"
	"strings"

	"github.com/dropDatabas3/tenantauth/internal/domain/repository"
	dto "github.com/dropDatabas3/tenantauth/internal/http/dto/auth"
	"github.com/dropDatabas3/tenantauth/internal/observability/logger"
)

const methodPassword = "password"

type passwordService struct {
	d Deps
}

func NewPasswordService(d Deps) PasswordService {
	return &passwordService{d: d}
}

func (s *passwordService) Register(ctx context.Context, apiKey string, in dto.RegisterRequest) (*dto.RegisterResponse, error) {
	if missing := requireFields(map[string]string{"email": in.Email, "password": in.Password}); len(missing) > 0 {
		return nil, &MissingFieldsError{Fields: missing}
	}

	t, err := s.d.Tenants.ResolveTenant(ctx, apiKey)
	if err != nil {
		return nil, err
	}
	var u *repository.User
	if strings.TrimSpace(in.Code) != "" {
		u, err = s.d.Users.AttachPassword(ctx, t.ID, in.Email, in.Code, in.Password)
	} else {
		u, err = s.d.Users.RegisterPassword(ctx, t.ID, in.Email, in.Password, in.Username)
	}
	if err != nil {
		return nil, err
	}
	logger.From(ctx).Info("password user registered",
		logger.Layer("service"), logger.Op("PasswordService.Register"),
		logger.TenantID(t.ID), logger.UserID(u.ID))
	return &dto.RegisterResponse{UserID: u.ID}, nil
}

func (s *passwordService) Login(ctx context.Context, apiKey string, in dto.LoginRequest) (out *dto.SessionResponse, err error) {
	defer func() { s.d.Metrics.Auth(methodPassword, outcome(err)) }()

	if missing := requireFields(map[string]string{"email": in.Email, "password": in.Password}); len(missing) > 0 {
		return nil, &MissingFieldsError{Fields: missing}
	}

	t, err := s.d.Tenants.ResolveTenant(ctx, apiKey)
	if err != nil {
		return nil, err
	}
	u, err := s.d.Users.LoginPassword(ctx, t.ID, in.Email, in.Password)
	if err != nil {
		return nil, err
	}
	session, exp, err := s.d.Sessions.Issue(u.ID, t.ID, u.Email)
	if err != nil {
		return nil, fmt.Errorf("issue session: %w", err)
	}
	return &dto.SessionResponse{SessionToken: session, ExpiresAt: exp, User: userDTO(u)}, nil
}

// requireFields devuelve los nombres vacíos en orden alfabético.
func requireFields(fields map[string]string) []string {
	var missing []string
	for _, name := range []string{"code", "email", "password", "userId"} {
		v, ok := fields[name]
		if ok && strings.TrimSpace(v) == "" {
			missing = append(missing, name)
		}
	}
	return missing
}
