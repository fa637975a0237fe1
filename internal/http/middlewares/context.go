package middlewares

import (
	"context"

	"github.com/dropDatabas3/tenantauth/internal/jwt"
)

type ctxKey string

const (
	ctxRequestIDKey ctxKey = "request_id"
	ctxSessionKey   ctxKey = "session"
)

func setRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, ctxRequestIDKey, requestID)
}

// GetRequestID devuelve el request id o "".
func GetRequestID(ctx context.Context) string {
	v, _ := ctx.Value(ctxRequestIDKey).(string)
	return v
}

// WithSession inyecta las claims de sesión verificadas.
func WithSession(ctx context.Context, c *jwt.SessionClaims) context.Context {
	return context.WithValue(ctx, ctxSessionKey, c)
}

// GetSession devuelve las claims de sesión o nil si RequireSession no corrió.
func GetSession(ctx context.Context) *jwt.SessionClaims {
	c, _ := ctx.Value(ctxSessionKey).(*jwt.SessionClaims)
	return c
}
