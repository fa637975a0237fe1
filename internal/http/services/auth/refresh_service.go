package auth

import (
	"context"
	"errors"
	"fmt"

	dto "github.com/dropDatabas3/tenantauth/internal/http/dto/auth"
	"github.com/dropDatabas3/tenantauth/internal/identity"
	"github.com/dropDatabas3/tenantauth/internal/metrics"
	"github.com/dropDatabas3/tenantauth/internal/oauth"
	"github.com/dropDatabas3/tenantauth/internal/observability/logger"
	"github.com/dropDatabas3/tenantauth/internal/providertoken"
)

type refreshService struct {
	d Deps
}

func NewRefreshService(d Deps) RefreshService {
	return &refreshService{d: d}
}

// Refresh valida con el provider que el usuario sigue autorizado y emite una sesión nueva.
// El usuario tiene que pertenecer al tenant de la API key.
func (s *refreshService) Refresh(ctx context.Context, apiKey string, in dto.RefreshRequest) (*dto.RefreshResponse, error) {
	if missing := requireFields(map[string]string{"userId": in.UserID}); len(missing) > 0 {
		return nil, &MissingFieldsError{Fields: missing}
	}

	t, err := s.d.Tenants.ResolveTenant(ctx, apiKey)
	if err != nil {
		return nil, err
	}
	u, err := s.d.Users.GetUser(ctx, t.ID, in.UserID)
	if err != nil {
		if errors.Is(err, identity.ErrUserNotFound) {
			return nil, ErrTenantMismatch
		}
		return nil, err
	}

	p, _, err := s.d.Refresher.Refresh(ctx, t.ID, u.ID)
	s.d.Metrics.Refresh(string(p), refreshOutcome(err))
	if err != nil {
		logger.From(ctx).Info("provider refresh rejected",
			logger.Layer("service"), logger.Op("RefreshService.Refresh"),
			logger.TenantID(t.ID), logger.UserID(u.ID), logger.Err(err))
		return nil, err
	}

	session, exp, err := s.d.Sessions.Issue(u.ID, t.ID, u.Email)
	if err != nil {
		return nil, fmt.Errorf("issue session: %w", err)
	}
	return &dto.RefreshResponse{SessionToken: session, ExpiresAt: exp, Provider: string(p)}, nil
}

func refreshOutcome(err error) string {
	switch {
	case err == nil:
		return metrics.OutcomeSuccess
	case errors.Is(err, providertoken.ErrNotFound), errors.Is(err, oauth.ErrRefreshRevoked):
		return metrics.OutcomeRejected
	default:
		return outcome(err)
	}
}
