package handlers

import (
	"bytes"
	"math"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/trujjo/neurotome/internal/http/response"
	"github.com/trujjo/neurotome/internal/platform/apierr"
	"github.com/trujjo/neurotome/internal/platform/render"
)

const maxSnapshotSide = 4096

// Snapshot renders the session's graph through its viewport as a PNG.
func (h *SessionHandler) Snapshot(c *gin.Context) {
	sess, ok := h.session(c)
	if !ok {
		return
	}
	vp := sess.Viewport()
	width, height := int(math.Round(vp.Width)), int(math.Round(vp.Height))
	if v, err := strconv.Atoi(c.DefaultQuery("width", "")); err == nil {
		width = v
	}
	if v, err := strconv.Atoi(c.DefaultQuery("height", "")); err == nil {
		height = v
	}
	if width <= 0 || height <= 0 || width > maxSnapshotSide || height > maxSnapshotSide {
		response.RespondError(c, http.StatusBadRequest, apierr.CodeBadRequest, errInvalidCanvas)
		return
	}
	var buf bytes.Buffer
	opts := render.Options{Width: width, Height: height, Labels: c.Query("labels") != "false"}
	if err := render.PNG(&buf, sess.Graph(), vp.Transform, opts); err != nil {
		response.RespondAPIError(c, err)
		return
	}
	c.Header("Content-Disposition", `inline; filename="graph.png"`)
	c.Data(http.StatusOK, "image/png", buf.Bytes())
}
