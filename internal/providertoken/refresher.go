package providertoken

import (
	"context"
	"errors"
	"time"

	"github.com/dropDatabas3/tenantauth/internal/audit"
	"github.com/dropDatabas3/tenantauth/internal/oauth"
	"github.com/dropDatabas3/tenantauth/internal/observability/logger"
)

// CredentialsSource resuelve las credenciales del tenant para un provider.
type CredentialsSource interface {
	ProviderCredentials(ctx context.Context, tenantID string, p oauth.ProviderType) (oauth.Credentials, error)
}

// Refresher renueva contra el provider usando el refresh token guardado.
type Refresher struct {
	store    *Store
	registry *oauth.Registry
	creds    CredentialsSource
}

func NewRefresher(store *Store, registry *oauth.Registry, creds CredentialsSource) *Refresher {
	return &Refresher{store: store, registry: registry, creds: creds}
}

// Refresh usa el token más reciente. Si el provider lo revocó se borra la fila y se
// devuelve oauth.ErrRefreshRevoked. Si el provider rota el token, se guarda el nuevo.
func (r *Refresher) Refresh(ctx context.Context, tenantID, userID string) (oauth.ProviderType, *oauth.Tokens, error) {
	p, rt, err := r.store.Latest(ctx, userID)
	if err != nil {
		return "", nil, err
	}
	log := logger.From(ctx).With(logger.Layer("service"), logger.Op("providertoken.Refresh"),
		logger.TenantID(tenantID), logger.UserID(userID), logger.Provider(string(p)))

	prov, err := r.registry.Get(p)
	if err != nil {
		return p, nil, err
	}
	creds, err := r.creds.ProviderCredentials(ctx, tenantID, p)
	if err != nil {
		return p, nil, err
	}
	tok, err := prov.Refresh(ctx, creds, rt)
	if err != nil {
		if errors.Is(err, oauth.ErrRefreshRevoked) {
			if derr := r.store.Revoke(ctx, userID, p); derr != nil {
				log.Warn("revoked refresh token cleanup failed", logger.Err(derr))
			}
			audit.Log(ctx, audit.ProviderTokenRevoked,
				logger.TenantID(tenantID), logger.UserID(userID), logger.Provider(string(p)), logger.Reason("provider_rejected"))
			return p, nil, err
		}
		return p, nil, err
	}
	if tok.RefreshToken != "" && tok.RefreshToken != rt {
		if err := r.store.StoreRefreshToken(ctx, userID, p, tok.RefreshToken, time.Time{}); err != nil {
			return p, nil, err
		}
		log.Debug("provider refresh token rotated")
	}
	return p, tok, nil
}
