package handler

import (
	"errors"
	"log"
	"net/http"
	"sharetrack/backend/internal/auth"
	"sharetrack/backend/internal/config"
	"sharetrack/backend/internal/models"
	"sharetrack/backend/internal/trackhub"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Mobile clients send no Origin; browsers are not the primary client.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// ServeWebSocket upgrades the connection and registers it with the hub.
// In hard mode a valid token is required up front; in soft mode the
// connection may authenticate later with the auth command.
func (h *Handler) ServeWebSocket(c *gin.Context) {
	id, authErr := h.Issuer.Verify(requestToken(c))
	if authErr != nil && h.AuthMode == config.AuthModeHard {
		h.respondError(c, authErr)
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Printf("WARNING: Failed to upgrade connection: %v", err)
		return
	}

	client := trackhub.NewWebSocketClient(h.Hub, conn, id)
	if !h.Hub.Connect(client) {
		log.Printf("WARNING: Hub stopped, closing connection %s", client.GetConnID())
		conn.Close()
		return
	}
	if authErr != nil && !errors.Is(authErr, auth.ErrAuthRequired) {
		h.Hub.Reject(client, models.CmdAuth, authErr)
	}

	client.Run()
}
