package auth

import (
	"net/http"

	dto "github.com/dropDatabas3/tenantauth/internal/http/dto/auth"
	"github.com/dropDatabas3/tenantauth/internal/http/helpers"
	svc "github.com/dropDatabas3/tenantauth/internal/http/services/auth"
	"github.com/go-chi/chi/v5"
)

// CallbackController es el único handler de callback; el provider viene en la URL.
type CallbackController struct {
	service svc.CallbackService
	cookies sessionCookies
}

// Callback maneja POST /auth/{provider}/callback.
func (c *CallbackController) Callback(w http.ResponseWriter, r *http.Request) {
	var req dto.CallbackRequest
	if err := helpers.ReadJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	out, err := c.service.Callback(r.Context(), chi.URLParam(r, "provider"), helpers.APIKey(r, req.APIKey), req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	c.cookies.set(w, out.SessionToken, out.ExpiresAt)
	helpers.WriteJSON(w, http.StatusOK, out)
}
