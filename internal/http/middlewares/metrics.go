package middlewares

import (
	"net/http"
	"strconv"
	"time"

	"github.com/dropDatabas3/tenantauth/internal/metrics"
	"github.com/go-chi/chi/v5"
)

// WithMetrics instrumenta requests con el patrón de ruta de chi como label,
// así /auth/{provider}/callback no explota la cardinalidad.
func WithMetrics(m *metrics.Metrics) Middleware {
	return func(next http.Handler) http.Handler {
		if m == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			m.Inflight.WithLabelValues(r.Method).Inc()
			defer m.Inflight.WithLabelValues(r.Method).Dec()

			rec := newRecorder(w)
			next.ServeHTTP(rec, r)

			route := "unmatched"
			if rc := chi.RouteContext(r.Context()); rc != nil && rc.RoutePattern() != "" {
				route = rc.RoutePattern()
			}
			m.RequestDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
			m.RequestsTotal.WithLabelValues(r.Method, route, strconv.Itoa(rec.status)).Inc()
		})
	}
}
