package handler

import (
	"fmt"
	"net/http"
	"sharetrack/backend/internal/models"
	"sharetrack/backend/internal/sharing"
	"sharetrack/backend/internal/storage"
	"time"

	"github.com/gin-gonic/gin"
)

type createRequestBody struct {
	ToID   string `json:"toId" binding:"required"`
	ToName string `json:"toName"`
}

type respondBody struct {
	Approve *bool `json:"approve" binding:"required"`
}

type directBody struct {
	ToID       string `json:"toId" binding:"required"`
	ToName     string `json:"toName"`
	TTLMinutes int    `json:"ttlMinutes"`
}

func invalid(err error) error {
	return fmt.Errorf("%w: %v", sharing.ErrInvalidRequest, err)
}

// CreateShareRequest asks another identity for permission to share.
func (h *Handler) CreateShareRequest(c *gin.Context) {
	var body createRequestBody
	if err := c.ShouldBindJSON(&body); err != nil {
		h.respondError(c, invalid(err))
		return
	}
	req, err := h.Hub.Requests.Create(c.Request.Context(), identity(c), models.Identity{ID: body.ToID, DisplayName: body.ToName})
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, req)
}

// ListShareRequests lists the caller's requests, optionally filtered by
// direction (incoming/outgoing) and status.
func (h *Handler) ListShareRequests(c *gin.Context) {
	filter := storage.RequestFilter{
		Direction: c.Query("direction"),
		Status:    models.RequestStatus(c.Query("status")),
	}
	reqs, err := h.Hub.Requests.List(c.Request.Context(), identity(c).ID, filter)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"requests": reqs})
}

// RespondShareRequest approves or rejects a pending request.
func (h *Handler) RespondShareRequest(c *gin.Context) {
	var body respondBody
	if err := c.ShouldBindJSON(&body); err != nil {
		h.respondError(c, invalid(err))
		return
	}
	req, sess, err := h.Hub.Requests.Respond(c.Request.Context(), c.Param("id"), identity(c), *body.Approve)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"request": req, "session": sess})
}

// RevokeShareRequest withdraws the caller's pending request.
func (h *Handler) RevokeShareRequest(c *gin.Context) {
	req, err := h.Hub.Requests.Revoke(c.Request.Context(), c.Param("id"), identity(c))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, req)
}

// ListSessions returns the caller's live sessions.
func (h *Handler) ListSessions(c *gin.Context) {
	sessions, err := h.Hub.Sessions.ListActive(c.Request.Context(), identity(c).ID)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"sessions": sessions})
}

// StartDirectShare opens a session without an approval step.
func (h *Handler) StartDirectShare(c *gin.Context) {
	var body directBody
	if err := c.ShouldBindJSON(&body); err != nil {
		h.respondError(c, invalid(err))
		return
	}
	if body.TTLMinutes < 0 {
		h.respondError(c, invalid(fmt.Errorf("ttlMinutes must not be negative")))
		return
	}
	ttl := time.Duration(body.TTLMinutes) * time.Minute
	sess, err := h.Hub.Sessions.StartDirect(c.Request.Context(), identity(c), models.Identity{ID: body.ToID, DisplayName: body.ToName}, ttl)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, sess)
}

// RevokeSession ends a session the caller takes part in.
func (h *Handler) RevokeSession(c *gin.Context) {
	sess, err := h.Hub.Sessions.Revoke(c.Request.Context(), c.Param("id"), identity(c))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, sess)
}
