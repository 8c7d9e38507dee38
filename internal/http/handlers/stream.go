package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/trujjo/neurotome/internal/realtime"
)

// Stream serves layout frames and selection events for one session as SSE.
// The current frame is sent first so a late subscriber starts in sync.
func (h *SessionHandler) Stream(c *gin.Context) {
	sess, ok := h.session(c)
	if !ok {
		return
	}
	client := h.hub.NewSSEClient(sess.ID)
	h.hub.AddChannel(client, realtime.SessionChannel(sess.ID))
	defer h.hub.CloseClient(client)

	channel := realtime.SessionChannel(sess.ID)
	h.hub.Offer(client, realtime.SSEMessage{Channel: channel, Event: realtime.SSEEventFrame, Data: sess.Frame()})
	if det := sess.Detail(); det != nil {
		h.hub.Offer(client, realtime.SSEMessage{Channel: channel, Event: realtime.SSEEventDetail, Data: det})
	}
	h.hub.ServeHTTP(c.Writer, c.Request, client)
}
