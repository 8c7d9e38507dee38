package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/trujjo/neurotome/internal/domain"
	"github.com/trujjo/neurotome/internal/http/response"
	"github.com/trujjo/neurotome/internal/services"
)

type FacetsHandler struct {
	svc services.ExplorerService
}

func NewFacetsHandler(svc services.ExplorerService) *FacetsHandler {
	return &FacetsHandler{svc: svc}
}

type facetsResponse struct {
	domain.FacetSnapshot
	Parents  map[string][]string `json:"parents"`
	Warnings []string            `json:"warnings,omitempty"`
}

// ListFacets answers with whatever the catalog could assemble. Facets that
// failed to load fall back to configured values and are reported as warnings.
func (h *FacetsHandler) ListFacets(c *gin.Context) {
	snap, err := h.svc.Facets(c.Request.Context(), c.Query("refresh") == "true")
	out := facetsResponse{FacetSnapshot: snap, Parents: snap.Parents()}
	if err != nil {
		_ = c.Error(err)
		out.Warnings = []string{err.Error()}
	}
	response.RespondOK(c, out)
}
