// Package health expone /healthz y /readyz.
package health

import (
	"net/http"

	dto "github.com/dropDatabas3/tenantauth/internal/http/dto/health"
	"github.com/dropDatabas3/tenantauth/internal/http/helpers"
	svc "github.com/dropDatabas3/tenantauth/internal/http/services/health"
	"github.com/dropDatabas3/tenantauth/internal/observability/logger"
)

type Controller struct {
	service *svc.Service
}

func NewController(s *svc.Service) *Controller { return &Controller{service: s} }

// Healthz: liveness, no toca dependencias.
func (c *Controller) Healthz(w http.ResponseWriter, r *http.Request) {
	helpers.WriteJSON(w, http.StatusOK, dto.Response{Status: "ok", Version: c.service.Version})
}

// Readyz: 200 si todos los componentes responden, 503 si no.
func (c *Controller) Readyz(w http.ResponseWriter, r *http.Request) {
	res := c.service.Ready(r.Context())
	out := dto.Response{Status: "ready", Version: c.service.Version, Components: res.Components}
	status := http.StatusOK
	if !res.Ready {
		out.Status = "not_ready"
		status = http.StatusServiceUnavailable
		logger.From(r.Context()).Warn("readiness check failed", logger.Any("components", res.Components))
	}
	helpers.WriteJSON(w, status, out)
}
