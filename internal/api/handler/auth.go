package handler

import (
	"net/http"
	"sharetrack/backend/internal/auth"
	"sharetrack/backend/internal/models"

	"github.com/gin-gonic/gin"
)

// GetAnonID creates a guest identity and returns its token.
func (h *Handler) GetAnonID(c *gin.Context) {
	guest, token, err := h.Issuer.IssueGuest()
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"token": token, "anon_id": guest.ID, "displayName": guest.DisplayName})
}

// requestToken reads the token from the Authorization header, falling back
// to the "token" query parameter for clients that cannot set headers.
func requestToken(c *gin.Context) string {
	if token := auth.BearerToken(c.GetHeader("Authorization")); token != "" {
		return token
	}
	return c.Query("token")
}

// RequireIdentity rejects requests without a valid identity token.
func (h *Handler) RequireIdentity(c *gin.Context) {
	id, err := h.Issuer.Verify(requestToken(c))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.Set(identityKey, models.Identity{ID: id.ID, DisplayName: id.DisplayName})
	c.Next()
}
