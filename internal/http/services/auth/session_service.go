package auth

import (
	"context"
	"slices"

	dto "github.com/dropDatabas3/tenantauth/internal/http/dto/auth"
	"github.com/dropDatabas3/tenantauth/internal/jwt"
	"github.com/dropDatabas3/tenantauth/internal/observability/logger"
)

type sessionService struct {
	d Deps
}

func NewSessionService(d Deps) SessionService {
	return &sessionService{d: d}
}

func (s *sessionService) Me(ctx context.Context, c *jwt.SessionClaims) (*dto.MeResponse, error) {
	u, err := s.d.Users.GetUser(ctx, c.TenantID, c.UserID)
	if err != nil {
		return nil, err
	}
	ids, err := s.d.Users.ListIdentities(ctx, c.TenantID, c.UserID)
	if err != nil {
		return nil, err
	}
	providers := make([]string, 0, len(ids))
	for _, id := range ids {
		if !slices.Contains(providers, id.Provider) {
			providers = append(providers, id.Provider)
		}
	}
	slices.Sort(providers)

	return &dto.MeResponse{
		ID:            u.ID,
		TenantID:      u.TenantID,
		Email:         u.Email,
		Username:      u.Username,
		Image:         u.ImageURL,
		EmailVerified: u.EmailVerified,
		HasPassword:   u.HasPassword(),
		Providers:     providers,
	}, nil
}

// Logout es stateless para la sesión propia; everywhere borra además los refresh tokens
// de provider, así ningún refresh posterior puede emitir sesiones nuevas.
func (s *sessionService) Logout(ctx context.Context, c *jwt.SessionClaims, everywhere bool) (*dto.LogoutResponse, error) {
	if !everywhere || s.d.Tokens == nil {
		return &dto.LogoutResponse{OK: true}, nil
	}
	n, err := s.d.Tokens.RevokeAll(ctx, c.UserID)
	if err != nil {
		return nil, err
	}
	logger.From(ctx).Info("logout everywhere",
		logger.Layer("service"), logger.Op("SessionService.Logout"),
		logger.UserID(c.UserID), logger.Any("revoked", n))
	return &dto.LogoutResponse{OK: true, Revoked: n}, nil
}
