package oauth

import (
	"errors"
	"fmt"
)

var (
	ErrUnsupportedProvider        = errors.New("unsupported provider")
	ErrProviderExchangeFailed     = errors.New("provider exchange failed")
	ErrProviderUnavailable        = errors.New("provider unavailable")
	ErrRefreshRevoked             = errors.New("provider refresh token revoked")
	ErrIdentityVerificationFailed = errors.New("identity verification failed")
)

// ExchangeError describe un fallo del token endpoint.
// Temporary marca 5xx o errores de red: el frontend muestra "provider no disponible".
type ExchangeError struct {
	Provider  ProviderType
	GrantType string
	Status    int
	Code      string // campo "error" del body (invalid_grant, ...)
	Reason    string // error_description, o Code si no vino
	Temporary bool
	Err       error
}

func (e *ExchangeError) Error() string {
	msg := fmt.Sprintf("%s token exchange failed", e.Provider)
	if e.Status != 0 {
		msg += fmt.Sprintf(" (status %d)", e.Status)
	}
	if e.Reason != "" {
		msg += ": " + e.Reason
	} else if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ExchangeError) Unwrap() error { return e.Err }

func (e *ExchangeError) Is(target error) bool {
	switch target {
	case ErrProviderExchangeFailed:
		return true
	case ErrProviderUnavailable:
		return e.Temporary
	case ErrRefreshRevoked:
		return e.GrantType == "refresh_token" && (e.Code == "invalid_grant" || e.Code == "unauthorized_client")
	}
	return false
}
