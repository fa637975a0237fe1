// Package router arma el chi.Router con middlewares globales y las rutas del servicio.
package router

import (
	"net/http"

	authctrl "github.com/dropDatabas3/tenantauth/internal/http/controllers/auth"
	healthctrl "github.com/dropDatabas3/tenantauth/internal/http/controllers/health"
	httperrors "github.com/dropDatabas3/tenantauth/internal/http/errors"
	mw "github.com/dropDatabas3/tenantauth/internal/http/middlewares"
	"github.com/dropDatabas3/tenantauth/internal/metrics"
	"github.com/go-chi/chi/v5"
)

// Deps son los controllers y middlewares ya construidos.
type Deps struct {
	Auth        *authctrl.Controllers
	Health      *healthctrl.Controller
	Sessions    mw.SessionVerifier
	Transport   mw.SessionTransport
	Metrics     *metrics.Metrics
	CORSOrigins []string
}

// New devuelve el handler raíz.
func New(d Deps) http.Handler {
	r := chi.NewRouter()

	r.Use(
		mw.WithRequestID(),
		mw.WithLogging(),
		mw.WithRecover(),
		mw.WithMetrics(d.Metrics),
		mw.WithSecurityHeaders(),
		mw.WithCORS(d.CORSOrigins),
	)

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		httperrors.WriteError(w, httperrors.ErrNotFound)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		httperrors.WriteError(w, httperrors.ErrMethodNotAllowed)
	})

	if d.Health != nil {
		r.Get("/healthz", d.Health.Healthz)
		r.Get("/readyz", d.Health.Readyz)
	}
	if d.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", d.Metrics.Handler())
	}

	if d.Auth != nil {
		r.Route("/auth", func(r chi.Router) {
			r.Use(mw.WithNoStore())
			authRoutes(r, d)
		})
	}
	return r
}

func authRoutes(r chi.Router, d Deps) {
	a := d.Auth

	r.Post("/{provider}/callback", a.Callback.Callback)

	r.Post("/password/register", a.Password.Register)
	r.Post("/password/login", a.Password.Login)

	r.Post("/token/refresh", a.Refresh.Refresh)

	r.Post("/otp/send", a.OTP.Send)
	r.Post("/otp/verify", a.OTP.Verify)

	r.Group(func(r chi.Router) {
		r.Use(mw.RequireSession(d.Sessions, d.Transport))
		r.Get("/me", a.Session.Me)
		r.Post("/logout", a.Session.Logout)
	})
}
