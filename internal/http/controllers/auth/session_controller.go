package auth

import (
	"net/http"

	dto "github.com/dropDatabas3/tenantauth/internal/http/dto/auth"
	httperrors "github.com/dropDatabas3/tenantauth/internal/http/errors"
	"github.com/dropDatabas3/tenantauth/internal/http/helpers"
	"github.com/dropDatabas3/tenantauth/internal/http/middlewares"
	svc "github.com/dropDatabas3/tenantauth/internal/http/services/auth"
)

// SessionController corre detrás de middlewares.RequireSession.
type SessionController struct {
	service svc.SessionService
	cookies sessionCookies
}

// Me maneja GET /auth/me.
func (c *SessionController) Me(w http.ResponseWriter, r *http.Request) {
	s := middlewares.GetSession(r.Context())
	if s == nil {
		writeError(w, r, httperrors.ErrSessionMissing)
		return
	}
	out, err := c.service.Me(r.Context(), s)
	if err != nil {
		writeError(w, r, err)
		return
	}
	helpers.WriteJSON(w, http.StatusOK, out)
}

// Logout maneja POST /auth/logout. La cookie se borra aunque falle la revocación.
func (c *SessionController) Logout(w http.ResponseWriter, r *http.Request) {
	s := middlewares.GetSession(r.Context())
	if s == nil {
		writeError(w, r, httperrors.ErrSessionMissing)
		return
	}
	var req dto.LogoutRequest
	if err := helpers.ReadJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	c.cookies.clear(w)
	out, err := c.service.Logout(r.Context(), s, req.Everywhere)
	if err != nil {
		writeError(w, r, err)
		return
	}
	helpers.WriteJSON(w, http.StatusOK, out)
}
