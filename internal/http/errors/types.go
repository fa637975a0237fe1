package errors

import "net/http"

// 400
var (
	ErrBadRequest = &AppError{
		Code:       "bad_request",
		Message:    "La solicitud contiene sintaxis inválida o parámetros faltantes.",
		HTTPStatus: http.StatusBadRequest,
	}
	ErrInvalidJSON = &AppError{
		Code:       "invalid_json",
		Message:    "El cuerpo de la solicitud no es un JSON válido.",
		HTTPStatus: http.StatusBadRequest,
	}
	ErrMissingFields = &AppError{
		Code:       "missing_fields",
		Message:    "Faltan campos requeridos en la solicitud.",
		HTTPStatus: http.StatusBadRequest,
	}
	ErrValidation = &AppError{
		Code:       "validation_failed",
		Message:    "Uno o más campos son inválidos.",
		HTTPStatus: http.StatusBadRequest,
	}
	ErrUnsupportedProvider = &AppError{
		Code:       "unsupported_provider",
		Message:    "El provider solicitado no está soportado.",
		HTTPStatus: http.StatusBadRequest,
	}
	ErrProviderNotConfigured = &AppError{
		Code:       "provider_not_configured",
		Message:    "El tenant no configuró este provider.",
		HTTPStatus: http.StatusBadRequest,
	}
	ErrProviderDisabled = &AppError{
		Code:       "provider_disabled",
		Message:    "El provider está deshabilitado para este tenant.",
		HTTPStatus: http.StatusBadRequest,
	}
	ErrRedirectNotAllowed = &AppError{
		Code:       "redirect_uri_not_allowed",
		Message:    "El redirect_uri no está permitido para este tenant.",
		HTTPStatus: http.StatusBadRequest,
	}
	ErrEmailAlreadyRegistered = &AppError{
		Code:       "email_already_registered",
		Message:    "El email ya está registrado.",
		HTTPStatus: http.StatusBadRequest,
	}
	ErrNoPasswordSet = &AppError{
		Code:       "no_password_set",
		Message:    "La cuenta no tiene password; usá el provider social con el que fue creada.",
		HTTPStatus: http.StatusBadRequest,
	}
	ErrBodyTooLarge = &AppError{
		Code:       "body_too_large",
		Message:    "El cuerpo de la solicitud excede el tamaño máximo permitido.",
		HTTPStatus: http.StatusRequestEntityTooLarge,
	}
)

// 401
var (
	ErrUnauthorized = &AppError{
		Code:       "unauthorized",
		Message:    "No autorizado. Se requiere autenticación.",
		HTTPStatus: http.StatusUnauthorized,
	}
	ErrInvalidAPIKey = &AppError{
		Code:       "invalid_api_key",
		Message:    "API key inválida o revocada.",
		HTTPStatus: http.StatusUnauthorized,
	}
	ErrInvalidCredentials = &AppError{
		Code:       "invalid_credentials",
		Message:    "Las credenciales proporcionadas son inválidas.",
		HTTPStatus: http.StatusUnauthorized,
	}
	ErrSessionMissing = &AppError{
		Code:       "session_missing",
		Message:    "No se proporcionó token de sesión.",
		HTTPStatus: http.StatusUnauthorized,
	}
	ErrSessionExpired = &AppError{
		Code:       "session_expired",
		Message:    "La sesión expiró, iniciá sesión nuevamente.",
		HTTPStatus: http.StatusUnauthorized,
	}
	ErrSessionInvalid = &AppError{
		Code:       "session_invalid",
		Message:    "El token de sesión es inválido.",
		HTTPStatus: http.StatusUnauthorized,
	}
	ErrProviderExchangeFailed = &AppError{
		Code:       "provider_exchange_failed",
		Message:    "El provider rechazó el authorization code.",
		HTTPStatus: http.StatusUnauthorized,
	}
	ErrIdentityVerificationFailed = &AppError{
		Code:       "identity_verification_failed",
		Message:    "No se pudo verificar la identidad devuelta por el provider.",
		HTTPStatus: http.StatusUnauthorized,
	}
	ErrRefreshUnavailable = &AppError{
		Code:       "refresh_unavailable",
		Message:    "No hay un refresh token válido del provider para este usuario.",
		HTTPStatus: http.StatusUnauthorized,
	}
	ErrOTPInvalid = &AppError{
		Code:       "otp_invalid",
		Message:    "El código es inválido.",
		HTTPStatus: http.StatusUnauthorized,
	}
	ErrOTPExpired = &AppError{
		Code:       "otp_expired",
		Message:    "El código expiró.",
		HTTPStatus: http.StatusUnauthorized,
	}
)

// 404
var (
	ErrNotFound = &AppError{
		Code:       "not_found",
		Message:    "El recurso solicitado no fue encontrado.",
		HTTPStatus: http.StatusNotFound,
	}
	ErrUserNotFound = &AppError{
		Code:       "user_not_found",
		Message:    "El usuario especificado no existe.",
		HTTPStatus: http.StatusNotFound,
	}
	ErrTenantNotFound = &AppError{
		Code:       "tenant_not_found",
		Message:    "El tenant especificado no existe.",
		HTTPStatus: http.StatusNotFound,
	}
	ErrMethodNotAllowed = &AppError{
		Code:       "method_not_allowed",
		Message:    "El método HTTP no está permitido para este recurso.",
		HTTPStatus: http.StatusMethodNotAllowed,
	}
)

// 409 / 429
var (
	ErrConflict = &AppError{
		Code:       "conflict",
		Message:    "La solicitud entra en conflicto con el estado actual.",
		HTTPStatus: http.StatusConflict,
	}
	ErrRateLimited = &AppError{
		Code:       "rate_limited",
		Message:    "Demasiadas solicitudes, probá más tarde.",
		HTTPStatus: http.StatusTooManyRequests,
	}
)

// 5xx
var (
	ErrInternal = &AppError{
		Code:       "internal_error",
		Message:    "Error interno del servidor.",
		HTTPStatus: http.StatusInternalServerError,
	}
	ErrProviderUnavailable = &AppError{
		Code:       "provider_unavailable",
		Message:    "El provider de identidad no está disponible.",
		HTTPStatus: http.StatusBadGateway,
	}
	ErrServiceUnavailable = &AppError{
		Code:       "service_unavailable",
		Message:    "El servicio no está listo.",
		HTTPStatus: http.StatusServiceUnavailable,
	}
)
