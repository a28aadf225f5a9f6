package handler

import (
	"fmt"
	"net/http"
	"sharetrack/backend/internal/models"
	"strconv"

	"github.com/gin-gonic/gin"
)

type messageBody struct {
	Body     string           `json:"body"`
	Location *models.Location `json:"location"`
}

// ListMessages returns the latest messages of a session, or of a room the
// caller is currently in.
func (h *Handler) ListMessages(c *gin.Context) {
	limit := 0
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			h.respondError(c, invalid(fmt.Errorf("bad limit %q", raw)))
			return
		}
		limit = n
	}

	channelID := c.Param("channelId")
	me := identity(c)
	var (
		msgs []models.ChatMessage
		err  error
	)
	if h.Hub.Rooms.Contains(channelID, me.ID) {
		msgs, err = h.Hub.Chat.Messages(c.Request.Context(), channelID, limit)
	} else {
		msgs, err = h.Hub.Chat.History(c.Request.Context(), channelID, me.ID, limit)
	}
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"messages": msgs})
}

// PostMessage sends a chat message into a live session.
func (h *Handler) PostMessage(c *gin.Context) {
	var body messageBody
	if err := c.ShouldBindJSON(&body); err != nil {
		h.respondError(c, invalid(err))
		return
	}
	msg, err := h.Hub.Chat.Send(c.Request.Context(), c.Param("channelId"), identity(c), body.Body, body.Location)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, msg)
}

// MarkRead records read receipts for the caller.
func (h *Handler) MarkRead(c *gin.Context) {
	ev, err := h.Hub.Chat.MarkRead(c.Request.Context(), c.Param("channelId"), identity(c).ID)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, ev)
}

// DeleteMessage hides the content of one of the caller's messages.
func (h *Handler) DeleteMessage(c *gin.Context) {
	msg, err := h.Hub.Chat.Delete(c.Request.Context(), c.Param("id"), identity(c))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, msg)
}
