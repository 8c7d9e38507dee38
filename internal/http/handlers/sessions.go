package handlers

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/trujjo/neurotome/internal/domain"
	"github.com/trujjo/neurotome/internal/http/response"
	"github.com/trujjo/neurotome/internal/modules/explorer/session"
	"github.com/trujjo/neurotome/internal/platform/apierr"
	"github.com/trujjo/neurotome/internal/platform/ctxutil"
	"github.com/trujjo/neurotome/internal/realtime"
	"github.com/trujjo/neurotome/internal/services"
)

type SessionHandler struct {
	svc services.ExplorerService
	hub *realtime.SSEHub
}

func NewSessionHandler(svc services.ExplorerService, hub *realtime.SSEHub) *SessionHandler {
	return &SessionHandler{svc: svc, hub: hub}
}

// session resolves :id or writes the error response.
func (h *SessionHandler) session(c *gin.Context) (*session.Session, bool) {
	id := c.Param("id")
	ctxutil.SetSessionID(c.Request.Context(), id)
	sess, err := h.svc.Session(id)
	if err != nil {
		response.RespondAPIError(c, err)
		return nil, false
	}
	return sess, true
}

type createSessionRequest struct {
	Workspace string `json:"workspace"`
}

func (h *SessionHandler) Create(c *gin.Context) {
	var req createSessionRequest
	if err := bindOptionalJSON(c, &req); err != nil {
		response.RespondError(c, http.StatusBadRequest, apierr.CodeBadRequest, err)
		return
	}
	sess, err := h.svc.CreateSession(c.Request.Context(), req.Workspace)
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}
	c.Header(HeaderSessionID, sess.ID)
	c.JSON(http.StatusCreated, sess.Status())
}

func (h *SessionHandler) Get(c *gin.Context) {
	sess, ok := h.session(c)
	if !ok {
		return
	}
	response.RespondOK(c, sess.Status())
}

func (h *SessionHandler) Delete(c *gin.Context) {
	id := c.Param("id")
	ctxutil.SetSessionID(c.Request.Context(), id)
	if err := h.svc.CloseSession(id); err != nil {
		response.RespondAPIError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// Graph returns the current positioned model without querying.
func (h *SessionHandler) Graph(c *gin.Context) {
	sess, ok := h.session(c)
	if !ok {
		return
	}
	st := sess.Status()
	writeResult(c, sess, session.Result{
		Generation: st.Applied,
		Shape:      st.Shape,
		Model:      sess.Graph(),
		Stats:      st.Stats,
		Filters:    st.Filters,
	}, nil)
}

type toggleRequest struct {
	Facet string `json:"facet" binding:"required"`
	Value string `json:"value" binding:"required"`
}

func (h *SessionHandler) Toggle(c *gin.Context) {
	sess, ok := h.session(c)
	if !ok {
		return
	}
	var req toggleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, apierr.CodeBadRequest, err)
		return
	}
	facet, err := domain.ParseFacet(req.Facet)
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}
	res, err := sess.Toggle(c.Request.Context(), facet, req.Value, applyOptions(c))
	writeResult(c, sess, res, err)
}

// Apply replaces the whole filter state.
func (h *SessionHandler) Apply(c *gin.Context) {
	sess, ok := h.session(c)
	if !ok {
		return
	}
	var req domain.FilterRequest
	if err := bindOptionalJSON(c, &req); err != nil {
		response.RespondError(c, http.StatusBadRequest, apierr.CodeBadRequest, err)
		return
	}
	f, err := req.ToState(sess.Tiers())
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}
	res, err := sess.Apply(c.Request.Context(), f, applyOptions(c))
	writeResult(c, sess, res, err)
}

func (h *SessionHandler) Clear(c *gin.Context) {
	sess, ok := h.session(c)
	if !ok {
		return
	}
	res, err := sess.Clear(c.Request.Context(), applyOptions(c))
	writeResult(c, sess, res, err)
}

func (h *SessionHandler) Refresh(c *gin.Context) {
	sess, ok := h.session(c)
	if !ok {
		return
	}
	res, err := sess.Refresh(c.Request.Context(), applyOptions(c))
	writeResult(c, sess, res, err)
}

type searchRequest struct {
	Term string `json:"term"`
}

// Search takes the term from the body or from ?q=.
func (h *SessionHandler) Search(c *gin.Context) {
	sess, ok := h.session(c)
	if !ok {
		return
	}
	var req searchRequest
	if err := bindOptionalJSON(c, &req); err != nil {
		response.RespondError(c, http.StatusBadRequest, apierr.CodeBadRequest, err)
		return
	}
	if req.Term == "" {
		req.Term = c.Query("q")
	}
	_, res, err := h.svc.Search(c.Request.Context(), sess.ID, req.Term, applyOptions(c))
	writeResult(c, sess, res, err)
}

type sampleRequest struct {
	Count int `json:"count"`
}

func (h *SessionHandler) Sample(c *gin.Context) {
	sess, ok := h.session(c)
	if !ok {
		return
	}
	var req sampleRequest
	if err := bindOptionalJSON(c, &req); err != nil {
		response.RespondError(c, http.StatusBadRequest, apierr.CodeBadRequest, err)
		return
	}
	if req.Count == 0 {
		n, err := sampleSize(c.Query("count"))
		if err != nil {
			response.RespondError(c, http.StatusBadRequest, apierr.CodeBadRequest, err)
			return
		}
		req.Count = n
	}
	if req.Count < 0 {
		response.RespondError(c, http.StatusBadRequest, apierr.CodeBadRequest, fmt.Errorf("count must be non-negative"))
		return
	}
	_, res, err := h.svc.Sample(c.Request.Context(), sess.ID, req.Count, applyOptions(c))
	writeResult(c, sess, res, err)
}
