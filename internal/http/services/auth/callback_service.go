package auth

import (
	"context"
	"fmt"
	"strings"
	"time"

	dto "github.com/dropDatabas3/tenantauth/internal/http/dto/auth"
	"github.com/dropDatabas3/tenantauth/internal/identity"
	"github.com/dropDatabas3/tenantauth/internal/oauth"
	"github.com/dropDatabas3/tenantauth/internal/observability/logger"
	"github.com/dropDatabas3/tenantauth/internal/tenant"
)

type callbackService struct {
	d Deps
}

// NewCallbackService crea el handler canónico de callback para todos los providers.
func NewCallbackService(d Deps) CallbackService {
	return &callbackService{d: d}
}

// Callback: tenant → redirect allow-list → exchange → identify → usuario → refresh token → sesión.
// El orden importa: nada se intercambia antes de resolver el tenant y nada se lee del
// id_token antes de verificarlo.
func (s *callbackService) Callback(ctx context.Context, provider, apiKey string, in dto.CallbackRequest) (out *dto.SessionResponse, err error) {
	log := logger.From(ctx).With(logger.Layer("service"), logger.Op("CallbackService.Callback"), logger.Provider(provider))

	p, err := oauth.ParseProviderType(provider)
	if err != nil {
		return nil, err
	}
	defer func() { s.d.Metrics.Auth(string(p), outcome(err)) }()

	in.Code = strings.TrimSpace(in.Code)
	in.RedirectURI = strings.TrimSpace(in.RedirectURI)
	in.CodeVerifier = strings.TrimSpace(in.CodeVerifier)
	var missing []string
	if in.Code == "" {
		missing = append(missing, "code")
	}
	if in.RedirectURI == "" {
		missing = append(missing, "redirectUri")
	}
	if p.SupportsPKCE() && in.CodeVerifier == "" {
		missing = append(missing, "codeVerifier")
	}
	if len(missing) > 0 {
		return nil, &MissingFieldsError{Fields: missing}
	}

	res, err := s.d.Tenants.ResolveProvider(ctx, apiKey, p)
	if err != nil {
		return nil, err
	}
	log = log.With(logger.TenantID(res.Tenant.ID))

	if !res.Config.AllowsRedirect(in.RedirectURI) {
		return nil, tenant.ErrRedirectNotAllowed
	}

	prov, err := s.d.Registry.Get(p)
	if err != nil {
		return nil, err
	}

	creds := res.Config.Credentials()
	tok, err := prov.Exchange(ctx, oauth.ExchangeRequest{
		Credentials:  creds,
		Code:         in.Code,
		CodeVerifier: in.CodeVerifier,
		RedirectURI:  in.RedirectURI,
	})
	if err != nil {
		log.Warn("code exchange failed", logger.Err(err))
		return nil, err
	}

	ident, err := prov.Identify(ctx, creds, tok)
	if err != nil {
		log.Warn("identity verification failed", logger.Err(err))
		return nil, err
	}

	user, err := s.d.Users.ResolveOrCreateUser(ctx, identity.ResolveInput{
		TenantID:      res.Tenant.ID,
		Provider:      p,
		ExternalID:    ident.Subject,
		Email:         ident.Email,
		EmailVerified: ident.EmailVerified,
		DisplayName:   ident.Name,
		ImageURL:      ident.Picture,
	})
	if err != nil {
		return nil, err
	}
	log = log.With(logger.UserID(user.ID))

	// El login ya es válido aunque falle el guardado; el próximo login lo reemplaza.
	if tok.RefreshToken != "" && s.d.Tokens != nil {
		if serr := s.d.Tokens.StoreRefreshToken(ctx, user.ID, p, tok.RefreshToken, time.Time{}); serr != nil {
			log.Error("store provider refresh token failed", logger.Err(serr))
		}
	}

	session, exp, err := s.d.Sessions.Issue(user.ID, res.Tenant.ID, user.Email)
	if err != nil {
		return nil, fmt.Errorf("issue session: %w", err)
	}

	log.Info("social login completed")
	return &dto.SessionResponse{SessionToken: session, ExpiresAt: exp, User: userDTO(user)}, nil
}
