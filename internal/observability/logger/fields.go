package logger

import (
	"strings"
	"time"

	"go.uber.org/zap"
)

// ---- HTTP ----

func RequestID(v string) zap.Field       { return zap.String("request_id", v) }
func Method(v string) zap.Field          { return zap.String("method", v) }
func Path(v string) zap.Field            { return zap.String("path", v) }
func Status(v int) zap.Field             { return zap.Int("status", v) }
func Bytes(v int) zap.Field              { return zap.Int("bytes", v) }
func ClientIP(v string) zap.Field        { return zap.String("client_ip", v) }
func Duration(v time.Duration) zap.Field { return zap.Duration("duration", v) }
func DurationMs(v int64) zap.Field       { return zap.Int64("duration_ms", v) }

// ---- dominio ----

func TenantID(v string) zap.Field { return zap.String("tenant_id", v) }
func Provider(v string) zap.Field { return zap.String("provider", v) }
func UserID(v string) zap.Field   { return zap.String("user_id", v) }

// Email loguea el email enmascarado (j***@domain.com). Nunca el valor completo.
func Email(v string) zap.Field { return zap.String("email", MaskEmail(v)) }

// ---- estructura ----

func Component(v string) zap.Field { return zap.String("component", v) }
func Op(v string) zap.Field        { return zap.String("op", v) }
func Layer(v string) zap.Field     { return zap.String("layer", v) }
func Reason(v string) zap.Field    { return zap.String("reason", v) }

// Err es un alias de zap.Error para uniformidad.
func Err(err error) zap.Field { return zap.Error(err) }

func Any(k string, v any) zap.Field { return zap.Any(k, v) }
func String(k, v string) zap.Field  { return zap.String(k, v) }
func Int(k string, v int) zap.Field { return zap.Int(k, v) }
func UserAgent(v string) zap.Field  { return zap.String("user_agent", v) }

// MaskEmail deja visible el primer caracter y el dominio.
func MaskEmail(email string) string {
	at := strings.LastIndex(email, "@")
	if at <= 0 {
		if email == "" {
			return ""
		}
		return "***"
	}
	return email[:1] + "***" + email[at:]
}
