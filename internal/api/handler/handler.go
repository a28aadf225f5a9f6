package handler

import (
	"log"
	"net/http"
	"sharetrack/backend/internal/auth"
	"sharetrack/backend/internal/models"
	"sharetrack/backend/internal/sharing"
	"sharetrack/backend/internal/storage"
	"sharetrack/backend/internal/trackhub"

	"github.com/gin-gonic/gin"
)

const identityKey = "identity"

// Handler holds the hub and the services behind the HTTP API.
type Handler struct {
	Hub      *trackhub.ManagerService
	Issuer   *auth.Issuer
	Storage  storage.Storage
	AuthMode string
}

func NewHandler(hub *trackhub.ManagerService, issuer *auth.Issuer, s storage.Storage, authMode string) *Handler {
	return &Handler{Hub: hub, Issuer: issuer, Storage: s, AuthMode: authMode}
}

var statusByCode = map[string]int{
	sharing.CodeAuthRequired:    http.StatusUnauthorized,
	sharing.CodeInvalidToken:    http.StatusUnauthorized,
	sharing.CodeForbidden:       http.StatusForbidden,
	sharing.CodeNotFound:        http.StatusNotFound,
	sharing.CodeAlreadyResolved: http.StatusConflict,
	sharing.CodeAlreadyPending:  http.StatusConflict,
	sharing.CodeAlreadyActive:   http.StatusConflict,
	sharing.CodeExpired:         http.StatusGone,
	sharing.CodeNotActive:       http.StatusGone,
	sharing.CodeSelfRequest:     http.StatusBadRequest,
	sharing.CodeEmptyMessage:    http.StatusBadRequest,
	sharing.CodeInvalidLocation: http.StatusBadRequest,
	sharing.CodeInvalidRequest:  http.StatusBadRequest,
}

// respondError writes {"error": code, "message": text} and aborts.
func (h *Handler) respondError(c *gin.Context, err error) {
	code := sharing.Code(err)
	status, ok := statusByCode[code]
	if !ok {
		status = http.StatusInternalServerError
		log.Printf("ERROR: %s %s failed: %v", c.Request.Method, c.FullPath(), err)
	}
	c.AbortWithStatusJSON(status, gin.H{
		"error":   code,
		"message": h.message(c, code),
	})
}

func (h *Handler) message(c *gin.Context, code string) string {
	loc := h.Hub.Localizer
	if loc == nil {
		return code
	}
	return loc.ErrorMessage(loc.Negotiate(c.GetHeader("Accept-Language"), h.Hub.Locale), code)
}

func identity(c *gin.Context) models.Identity {
	return c.MustGet(identityKey).(models.Identity)
}
