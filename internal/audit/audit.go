// Package audit registra eventos administrativos (tenants, API keys, providers).
package audit

import (
	"context"

	"go.uber.org/zap"

	"github.com/dropDatabas3/tenantauth/internal/observability/logger"
)

// Eventos emitidos.
const (
	TenantCreated        = "tenant.created"
	APIKeyIssued         = "apikey.issued"
	APIKeyRevoked        = "apikey.revoked"
	ProviderSet          = "provider.set"
	ProviderToggled      = "provider.toggled"
	ProviderTokenRevoked = "provider_token.revoked"
)

// Log escribe el evento en el logger del contexto con component=audit.
// Nunca pasar secretos en fields.
func Log(ctx context.Context, event string, fields ...zap.Field) {
	l := logger.From(ctx).With(logger.Component("audit"), zap.String("event", event))
	l.Info("audit", fields...)
}
