// Package auth contiene los controllers HTTP de /auth.
package auth

import (
	"net/http"
	"time"

	"github.com/dropDatabas3/tenantauth/internal/http/middlewares"
	svc "github.com/dropDatabas3/tenantauth/internal/http/services/auth"
)

// Controllers agrupa los controllers del dominio auth.
type Controllers struct {
	Callback *CallbackController
	Password *PasswordController
	Session  *SessionController
	Refresh  *RefreshController
	OTP      *OTPController
}

// NewControllers crea el agregador. transport decide si el login además setea cookie.
func NewControllers(s svc.Services, transport middlewares.SessionTransport) *Controllers {
	sc := sessionCookies{transport: transport, now: time.Now}
	return &Controllers{
		Callback: &CallbackController{service: s.Callback, cookies: sc},
		Password: &PasswordController{service: s.Password, cookies: sc},
		Session:  &SessionController{service: s.Session, cookies: sc},
		Refresh:  &RefreshController{service: s.Refresh},
		OTP:      &OTPController{service: s.OTP},
	}
}

type sessionCookies struct {
	transport middlewares.SessionTransport
	now       func() time.Time
}

// set solo escribe la cookie en el perfil cookie.
func (c sessionCookies) set(w http.ResponseWriter, token string, exp time.Time) {
	if !c.transport.UsesCookie() {
		return
	}
	http.SetCookie(w, c.transport.Cookie.SessionCookie(token, exp, c.now()))
}

// clear siempre borra: el logout no depende del perfil.
func (c sessionCookies) clear(w http.ResponseWriter) {
	http.SetCookie(w, c.transport.Cookie.DeletionCookie())
}
