package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/trujjo/neurotome/internal/domain"
	"github.com/trujjo/neurotome/internal/http/response"
	"github.com/trujjo/neurotome/internal/modules/explorer/session"
	"github.com/trujjo/neurotome/internal/platform/apierr"
)

type dragRequest struct {
	Phase string  `json:"phase"`
	X     float64 `json:"x"`
	Y     float64 `json:"y"`
	// Screen marks x, y as viewport pixels rather than layout coordinates.
	Screen bool `json:"screen"`
}

func nodeID(c *gin.Context) domain.StableID { return domain.StableID(c.Param("nodeId")) }

func (h *SessionHandler) Drag(c *gin.Context) {
	sess, ok := h.session(c)
	if !ok {
		return
	}
	var req dragRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, apierr.CodeBadRequest, err)
		return
	}
	x, y := req.X, req.Y
	if req.Screen {
		x, y = sess.ScreenToWorld(x, y)
	}
	pos, err := sess.Drag(c.Request.Context(), nodeID(c), session.DragPhase(req.Phase), x, y)
	if err != nil {
		var pe *session.PhaseError
		if errors.As(err, &pe) {
			response.RespondError(c, http.StatusBadRequest, apierr.CodeBadRequest, err)
			return
		}
		response.RespondAPIError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"id": nodeID(c), "x": pos.X, "y": pos.Y, "pinned": pos.Pinned})
}

func (h *SessionHandler) Unpin(c *gin.Context) {
	sess, ok := h.session(c)
	if !ok {
		return
	}
	if err := sess.Unpin(c.Request.Context(), nodeID(c)); err != nil {
		response.RespondAPIError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *SessionHandler) Select(c *gin.Context) {
	sess, ok := h.session(c)
	if !ok {
		return
	}
	det, err := sess.Select(nodeID(c))
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}
	response.RespondOK(c, det)
}

func (h *SessionHandler) Deselect(c *gin.Context) {
	sess, ok := h.session(c)
	if !ok {
		return
	}
	sess.Deselect()
	c.Status(http.StatusNoContent)
}

// Explore narrows the filters to the node's location and refines the tier.
func (h *SessionHandler) Explore(c *gin.Context) {
	sess, ok := h.session(c)
	if !ok {
		return
	}
	res, err := sess.Explore(c.Request.Context(), nodeID(c), applyOptions(c))
	writeResult(c, sess, res, err)
}
