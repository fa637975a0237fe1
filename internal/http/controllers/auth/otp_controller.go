package auth

import (
	"net/http"

	dto "github.com/dropDatabas3/tenantauth/internal/http/dto/auth"
	"github.com/dropDatabas3/tenantauth/internal/http/helpers"
	svc "github.com/dropDatabas3/tenantauth/internal/http/services/auth"
)

type OTPController struct {
	service svc.OTPService
}

// Send maneja POST /auth/otp/send.
func (c *OTPController) Send(w http.ResponseWriter, r *http.Request) {
	var req dto.OTPSendRequest
	if err := helpers.ReadJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if err := c.service.Send(r.Context(), helpers.APIKey(r, req.APIKey), req); err != nil {
		writeError(w, r, err)
		return
	}
	helpers.WriteJSON(w, http.StatusAccepted, dto.OTPSendResponse{Sent: true})
}

// Verify maneja POST /auth/otp/verify.
func (c *OTPController) Verify(w http.ResponseWriter, r *http.Request) {
	var req dto.OTPVerifyRequest
	if err := helpers.ReadJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	out, err := c.service.Verify(r.Context(), helpers.APIKey(r, req.APIKey), req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	helpers.WriteJSON(w, http.StatusOK, out)
}
