package handlers

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/trujjo/neurotome/internal/domain"
	"github.com/trujjo/neurotome/internal/http/response"
	"github.com/trujjo/neurotome/internal/modules/explorer/normalize"
	"github.com/trujjo/neurotome/internal/modules/explorer/session"
	"github.com/trujjo/neurotome/internal/platform/apierr"
	"github.com/trujjo/neurotome/internal/platform/ctxutil"
	"github.com/trujjo/neurotome/internal/services"
)

const HeaderSessionID = "X-Session-Id"

type GraphHandler struct {
	svc services.ExplorerService
}

func NewGraphHandler(svc services.ExplorerService) *GraphHandler {
	return &GraphHandler{svc: svc}
}

type graphResponse struct {
	SessionID  string                `json:"sessionId"`
	Generation uint64                `json:"generation"`
	Shape      string                `json:"shape"`
	Nodes      []*domain.Node        `json:"nodes"`
	Edges      []domain.Relationship `json:"edges"`
	Stats      normalize.Stats       `json:"stats"`
	Filters    domain.FilterRequest  `json:"filters"`
}

type supersededResponse struct {
	SessionID  string `json:"sessionId"`
	Superseded bool   `json:"superseded"`
}

// Graph applies the posted filters on the session named by X-Session-Id, or a
// new one.
func (h *GraphHandler) Graph(c *gin.Context) {
	var req domain.FilterRequest
	if err := bindOptionalJSON(c, &req); err != nil {
		response.RespondError(c, http.StatusBadRequest, apierr.CodeBadRequest, err)
		return
	}
	id := strings.TrimSpace(c.GetHeader(HeaderSessionID))
	sess, res, err := h.svc.Graph(c.Request.Context(), id, req, applyOptions(c))
	if sess != nil {
		c.Header(HeaderSessionID, sess.ID)
	}
	writeResult(c, sess, res, err)
}

// Search runs a case-insensitive name search, GET /search?q=.
func (h *GraphHandler) Search(c *gin.Context) {
	id := strings.TrimSpace(c.GetHeader(HeaderSessionID))
	sess, res, err := h.svc.Search(c.Request.Context(), id, c.Query("q"), applyOptions(c))
	if sess != nil {
		c.Header(HeaderSessionID, sess.ID)
	}
	writeResult(c, sess, res, err)
}

// Random returns a random node sample, GET /nodes/random?count=.
func (h *GraphHandler) Random(c *gin.Context) {
	size, err := sampleSize(c.Query("count"))
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, apierr.CodeBadRequest, err)
		return
	}
	id := strings.TrimSpace(c.GetHeader(HeaderSessionID))
	sess, res, err := h.svc.Sample(c.Request.Context(), id, size, applyOptions(c))
	if sess != nil {
		c.Header(HeaderSessionID, sess.ID)
	}
	writeResult(c, sess, res, err)
}

// sampleSize parses an optional count. Zero means the configured default.
func sampleSize(raw string) (int, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("count must be a non-negative integer, got %q", raw)
	}
	return n, nil
}

func applyOptions(c *gin.Context) session.ApplyOptions {
	return session.ApplyOptions{Settle: c.Query("settle") == "true"}
}

// bindOptionalJSON treats an empty body as the zero value.
func bindOptionalJSON(c *gin.Context, dst any) error {
	if err := c.ShouldBindJSON(dst); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

func writeResult(c *gin.Context, sess *session.Session, res session.Result, err error) {
	var sid string
	if sess != nil {
		sid = sess.ID
		ctxutil.SetSessionID(c.Request.Context(), sid)
	}
	if errors.Is(err, domain.ErrStaleResponse) {
		c.JSON(http.StatusAccepted, supersededResponse{SessionID: sid, Superseded: true})
		return
	}
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}
	out := graphResponse{
		SessionID:  sid,
		Generation: res.Generation,
		Shape:      res.Shape,
		Nodes:      []*domain.Node{},
		Edges:      []domain.Relationship{},
		Stats:      res.Stats,
		Filters:    res.Filters,
	}
	if res.Model != nil {
		out.Nodes = res.Model.OrderedNodes()
		if res.Model.Edges != nil {
			out.Edges = res.Model.Edges
		}
	}
	response.RespondOK(c, out)
}
