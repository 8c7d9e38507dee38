package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/trujjo/neurotome/internal/http/response"
	"github.com/trujjo/neurotome/internal/platform/apierr"
	"github.com/trujjo/neurotome/internal/services"
)

type HealthHandler struct {
	svc     services.ExplorerService
	timeout time.Duration
}

func NewHealthHandler(svc services.ExplorerService) *HealthHandler {
	return &HealthHandler{svc: svc, timeout: 3 * time.Second}
}

func (h *HealthHandler) HealthCheck(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), h.timeout)
	defer cancel()
	if err := h.svc.Health(ctx); err != nil {
		response.RespondError(c, http.StatusServiceUnavailable, apierr.CodeConnection, err)
		return
	}
	response.RespondOK(c, gin.H{"status": "ok", "sessions": h.svc.ActiveSessions()})
}
