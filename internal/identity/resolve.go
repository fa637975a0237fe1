package identity

import (
	"context"
	"fmt"
	"strings"

	"github.com/dropDatabas3/tenantauth/internal/domain/repository"
	"github.com/dropDatabas3/tenantauth/internal/observability/logger"
	"github.com/dropDatabas3/tenantauth/internal/oauth"
)

// ResolveInput es la identidad externa ya verificada.
type ResolveInput struct {
	TenantID      string
	Provider      oauth.ProviderType
	ExternalID    string
	Email         string
	EmailVerified bool
	DisplayName   string
	ImageURL      string
}

// ResolveOrCreateUser busca la identidad (tenant, provider, externalID) y si no existe crea
// usuario + identidad. Un conflicto de unicidad significa que otro request ganó la carrera:
// se relee la fila existente.
func (s *Service) ResolveOrCreateUser(ctx context.Context, in ResolveInput) (*repository.User, error) {
	if in.TenantID == "" || in.Provider == "" || strings.TrimSpace(in.ExternalID) == "" {
		return nil, &InputError{Reasons: []string{"tenant, provider and external id are required"}}
	}
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	log := s.log(ctx, "identity.ResolveOrCreateUser").With(
		logger.TenantID(in.TenantID), logger.Provider(string(in.Provider)))

	for attempt := 0; attempt < maxResolveTries; attempt++ {
		u, err := s.findByIdentity(ctx, in)
		if err == nil {
			return u, nil
		}
		if !repository.IsNotFound(err) {
			return nil, err
		}

		if in.Email != "" {
			existing, err := s.users.GetByEmail(ctx, in.TenantID, in.Email)
			switch {
			case err == nil:
				if !in.EmailVerified {
					return nil, ErrUnverifiedEmailConflict
				}
				_, err = s.identities.Link(ctx, in.TenantID, existing.ID, repository.IdentityInput{
					Provider:   string(in.Provider),
					ExternalID: in.ExternalID,
					Email:      in.Email,
				})
				if repository.IsConflict(err) {
					continue
				}
				if err != nil {
					return nil, fmt.Errorf("link identity: %w", err)
				}
				log.Info("identity linked to existing user", logger.UserID(existing.ID))
				return s.refreshProfile(ctx, existing, in)
			case !repository.IsNotFound(err):
				return nil, err
			}
		}

		u, _, err = s.identities.CreateWithUser(ctx, repository.CreateUserInput{
			TenantID:      in.TenantID,
			Email:         in.Email,
			Username:      displayName(in),
			ImageURL:      in.ImageURL,
			EmailVerified: in.EmailVerified,
		}, repository.IdentityInput{
			Provider:   string(in.Provider),
			ExternalID: in.ExternalID,
			Email:      in.Email,
		})
		if repository.IsConflict(err) {
			log.Debug("resolve-or-create lost race, refetching", logger.Reason("unique_violation"))
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("create user: %w", err)
		}
		log.Info("user created", logger.UserID(u.ID))
		return u, nil
	}
	return nil, fmt.Errorf("resolve user: %w", repository.ErrConflict)
}

func (s *Service) findByIdentity(ctx context.Context, in ResolveInput) (*repository.User, error) {
	ident, err := s.identities.GetByExternalID(ctx, in.TenantID, string(in.Provider), in.ExternalID)
	if err != nil {
		return nil, err
	}
	u, err := s.users.GetByID(ctx, in.TenantID, ident.UserID)
	if err != nil {
		return nil, err
	}
	return s.refreshProfile(ctx, u, in)
}

// refreshProfile actualiza nombre e imagen si cambiaron. Email e id externo no se tocan.
func (s *Service) refreshProfile(ctx context.Context, u *repository.User, in ResolveInput) (*repository.User, error) {
	name := in.DisplayName
	if name == "" {
		name = u.Username
	}
	img := in.ImageURL
	if img == "" {
		img = u.ImageURL
	}
	if name == u.Username && img == u.ImageURL {
		return u, nil
	}
	if err := s.users.UpdateProfile(ctx, u.TenantID, u.ID, name, img); err != nil {
		return nil, fmt.Errorf("update profile: %w", err)
	}
	u.Username, u.ImageURL = name, img
	return u, nil
}

func displayName(in ResolveInput) string {
	if in.DisplayName != "" {
		return in.DisplayName
	}
	if at := strings.IndexByte(in.Email, '@'); at > 0 {
		return in.Email[:at]
	}
	return string(in.Provider) + ":" + in.ExternalID
}
