package client

import (
	"errors"
	"fmt"

	"github.com/tidwall/gjson"
)

var (
	// ErrMissingOAuthParameters: el redirect volvió sin code/state o no hay flujo guardado.
	ErrMissingOAuthParameters = errors.New("client: missing oauth parameters in redirect")
	// ErrCsrfStateMismatch: el state devuelto no coincide con el guardado.
	ErrCsrfStateMismatch = errors.New("client: oauth state mismatch")
	// ErrNoSession: no hay session token en el stash.
	ErrNoSession = errors.New("client: no session")
	// ErrUnknownProvider: el provider no está en Config.Providers.
	ErrUnknownProvider = errors.New("client: provider not configured")
)

// BackendAuthenticationFailedError es cualquier respuesta no-2xx del backend.
type BackendAuthenticationFailedError struct {
	Status  int
	Code    string
	Message string
}

func (e *BackendAuthenticationFailedError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("client: backend returned %d (%s): %s", e.Status, e.Code, e.Message)
	}
	return fmt.Sprintf("client: backend returned %d: %s", e.Status, e.Message)
}

// IsUnauthorized indica que hay que reiniciar el login.
func (e *BackendAuthenticationFailedError) IsUnauthorized() bool { return e.Status == 401 }

// backendError arma el error a partir del cuerpo {"code","message","detail"}.
func backendError(status int, body []byte) *BackendAuthenticationFailedError {
	e := &BackendAuthenticationFailedError{Status: status}
	if gjson.ValidBytes(body) {
		e.Code = gjson.GetBytes(body, "code").Str
		e.Message = gjson.GetBytes(body, "message").Str
	}
	if e.Message == "" {
		e.Message = string(body)
	}
	return e
}
