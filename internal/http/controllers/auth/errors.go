package auth

import (
	"errors"
	"math"
	"net/http"
	"strconv"

	httperrors "github.com/dropDatabas3/tenantauth/internal/http/errors"
	svc "github.com/dropDatabas3/tenantauth/internal/http/services/auth"
	"github.com/dropDatabas3/tenantauth/internal/identity"
	"github.com/dropDatabas3/tenantauth/internal/oauth"
	"github.com/dropDatabas3/tenantauth/internal/observability/logger"
	"github.com/dropDatabas3/tenantauth/internal/providertoken"
	"github.com/dropDatabas3/tenantauth/internal/tenant"
)

// mapError traduce errores de dominio a AppError. El orden importa: un ExchangeError
// temporal también matchea ErrProviderExchangeFailed y tiene que salir como 502.
func mapError(err error) *httperrors.AppError {
	var appErr *httperrors.AppError
	switch {
	case errors.As(err, &appErr):
		return appErr

	case errors.Is(err, svc.ErrMissingFields):
		return httperrors.ErrMissingFields.WithDetail(err.Error()).WithCause(err)
	case errors.Is(err, identity.ErrInvalidInput):
		return httperrors.ErrValidation.WithDetail(err.Error()).WithCause(err)

	case errors.Is(err, oauth.ErrUnsupportedProvider):
		return httperrors.ErrUnsupportedProvider.WithCause(err)
	case errors.Is(err, tenant.ErrInvalidAPIKey):
		return httperrors.ErrInvalidAPIKey.WithCause(err)
	case errors.Is(err, tenant.ErrProviderNotConfigured):
		return httperrors.ErrProviderNotConfigured.WithCause(err)
	case errors.Is(err, tenant.ErrProviderDisabled):
		return httperrors.ErrProviderDisabled.WithCause(err)
	case errors.Is(err, tenant.ErrRedirectNotAllowed):
		return httperrors.ErrRedirectNotAllowed.WithCause(err)
	case errors.Is(err, tenant.ErrTenantNotFound):
		return httperrors.ErrTenantNotFound.WithCause(err)

	case errors.Is(err, oauth.ErrProviderUnavailable):
		return httperrors.ErrProviderUnavailable.WithCause(err)
	case errors.Is(err, oauth.ErrRefreshRevoked):
		return httperrors.ErrRefreshUnavailable.WithDetail("el provider revocó el refresh token").WithCause(err)
	case errors.Is(err, providertoken.ErrNotFound):
		return httperrors.ErrRefreshUnavailable.WithCause(err)
	case errors.Is(err, oauth.ErrProviderExchangeFailed):
		return httperrors.ErrProviderExchangeFailed.WithCause(err)
	case errors.Is(err, oauth.ErrIdentityVerificationFailed):
		return httperrors.ErrIdentityVerificationFailed.WithCause(err)

	case errors.Is(err, svc.ErrTenantMismatch):
		return httperrors.ErrUnauthorized.WithCause(err)
	case errors.Is(err, identity.ErrUserNotFound):
		return httperrors.ErrUserNotFound.WithCause(err)
	case errors.Is(err, identity.ErrNoPasswordSet):
		return httperrors.ErrNoPasswordSet.WithCause(err)
	case errors.Is(err, identity.ErrInvalidCredentials):
		return httperrors.ErrInvalidCredentials.WithCause(err)
	case errors.Is(err, identity.ErrEmailAlreadyRegistered):
		return httperrors.ErrEmailAlreadyRegistered.WithCause(err)
	case errors.Is(err, identity.ErrEmailOwnershipRequired):
		return httperrors.ErrConflict.WithDetail("verificá el email con /auth/otp/send y reenviá el registro con code").WithCause(err)
	case errors.Is(err, identity.ErrUnverifiedEmailConflict):
		return httperrors.ErrConflict.WithDetail("el email pertenece a otra cuenta y el provider no lo verificó").WithCause(err)

	case errors.Is(err, identity.ErrOTPRateLimited):
		return httperrors.ErrRateLimited.WithCause(err)
	case errors.Is(err, identity.ErrOTPExpired):
		return httperrors.ErrOTPExpired.WithCause(err)
	case errors.Is(err, identity.ErrOTPInvalid):
		return httperrors.ErrOTPInvalid.WithCause(err)

	default:
		return httperrors.ErrInternal.WithCause(err)
	}
}

// writeError loguea los 5xx con la causa y escribe el body {code,message,detail}.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	appErr := mapError(err)

	var rl *identity.RateLimitedError
	if errors.As(err, &rl) && rl.RetryAfter > 0 {
		w.Header().Set("Retry-After", strconv.Itoa(int(math.Ceil(rl.RetryAfter.Seconds()))))
	}

	log := logger.From(r.Context())
	if appErr.HTTPStatus >= http.StatusInternalServerError {
		log.Error("request error", logger.Reason(appErr.Code), logger.Err(err))
	} else {
		log.Debug("request rejected", logger.Reason(appErr.Code), logger.Err(err))
	}
	httperrors.WriteError(w, appErr)
}
