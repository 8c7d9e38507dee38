package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/trujjo/neurotome/internal/http/response"
	"github.com/trujjo/neurotome/internal/modules/explorer/viewport"
	"github.com/trujjo/neurotome/internal/platform/apierr"
)

type viewportRequest struct {
	Width     float64             `json:"width"`
	Height    float64             `json:"height"`
	Transform *viewport.Transform `json:"transform"`
}

type panRequest struct {
	DX float64 `json:"dx"`
	DY float64 `json:"dy"`
}

type zoomRequest struct {
	Factor float64 `json:"factor" binding:"required"`
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
}

func (h *SessionHandler) SetViewport(c *gin.Context) {
	sess, ok := h.session(c)
	if !ok {
		return
	}
	var req viewportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, apierr.CodeBadRequest, err)
		return
	}
	response.RespondOK(c, sess.SetViewport(req.Width, req.Height, req.Transform))
}

func (h *SessionHandler) Fit(c *gin.Context) {
	sess, ok := h.session(c)
	if !ok {
		return
	}
	response.RespondOK(c, sess.FitAll())
}

func (h *SessionHandler) ZoomToNode(c *gin.Context) {
	sess, ok := h.session(c)
	if !ok {
		return
	}
	scale := 0.0
	if raw := c.Query("scale"); raw != "" {
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			response.RespondError(c, http.StatusBadRequest, apierr.CodeBadRequest, err)
			return
		}
		scale = v
	}
	t, err := sess.ZoomToNode(nodeID(c), scale)
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}
	response.RespondOK(c, t)
}

func (h *SessionHandler) Pan(c *gin.Context) {
	sess, ok := h.session(c)
	if !ok {
		return
	}
	var req panRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, apierr.CodeBadRequest, err)
		return
	}
	response.RespondOK(c, sess.Pan(req.DX, req.DY))
}

func (h *SessionHandler) Zoom(c *gin.Context) {
	sess, ok := h.session(c)
	if !ok {
		return
	}
	var req zoomRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, apierr.CodeBadRequest, err)
		return
	}
	response.RespondOK(c, sess.ZoomAt(req.Factor, req.X, req.Y))
}
