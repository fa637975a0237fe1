package auth

import (
	"net/http"

	dto "github.com/dropDatabas3/tenantauth/internal/http/dto/auth"
	"github.com/dropDatabas3/tenantauth/internal/http/helpers"
	svc "github.com/dropDatabas3/tenantauth/internal/http/services/auth"
)

type RefreshController struct {
	service svc.RefreshService
}

// Refresh maneja POST /auth/token/refresh.
func (c *RefreshController) Refresh(w http.ResponseWriter, r *http.Request) {
	var req dto.RefreshRequest
	if err := helpers.ReadJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	out, err := c.service.Refresh(r.Context(), helpers.APIKey(r, req.APIKey), req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	helpers.WriteJSON(w, http.StatusOK, out)
}
