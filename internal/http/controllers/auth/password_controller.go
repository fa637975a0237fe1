package auth

import (
	"net/http"

	dto "github.com/dropDatabas3/tenantauth/internal/http/dto/auth"
	"github.com/dropDatabas3/tenantauth/internal/http/helpers"
	svc "github.com/dropDatabas3/tenantauth/internal/http/services/auth"
)

type PasswordController struct {
	service svc.PasswordService
	cookies sessionCookies
}

// Register maneja POST /auth/password/register.
func (c *PasswordController) Register(w http.ResponseWriter, r *http.Request) {
	var req dto.RegisterRequest
	if err := helpers.ReadJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	out, err := c.service.Register(r.Context(), helpers.APIKey(r, req.APIKey), req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	helpers.WriteJSON(w, http.StatusCreated, out)
}

// Login maneja POST /auth/password/login.
func (c *PasswordController) Login(w http.ResponseWriter, r *http.Request) {
	var req dto.LoginRequest
	if err := helpers.ReadJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	out, err := c.service.Login(r.Context(), helpers.APIKey(r, req.APIKey), req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	c.cookies.set(w, out.SessionToken, out.ExpiresAt)
	helpers.WriteJSON(w, http.StatusOK, out)
}
