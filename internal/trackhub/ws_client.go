package trackhub

import (
	"encoding/json"
	"log"
	"sharetrack/backend/internal/config"
	"sharetrack/backend/internal/models"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// WebSocketClient implements Client over a gorilla websocket connection.
type WebSocketClient struct {
	ID   string
	Conn *websocket.Conn
	Hub  *ManagerService
	Send chan models.Event

	mu       sync.Mutex
	identity *models.Identity
	closed   bool
}

// NewWebSocketClient wraps conn. identity may be nil for soft-mode
// connections that authenticate later.
func NewWebSocketClient(hub *ManagerService, conn *websocket.Conn, identity *models.Identity) *WebSocketClient {
	return &WebSocketClient{
		ID:       uuid.New().String(),
		Conn:     conn,
		Hub:      hub,
		Send:     make(chan models.Event, config.SendBufferSize),
		identity: identity,
	}
}

func (c *WebSocketClient) GetConnID() string { return c.ID }

func (c *WebSocketClient) GetIdentity() *models.Identity {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.identity == nil {
		return nil
	}
	id := *c.identity
	return &id
}

func (c *WebSocketClient) SetIdentity(id models.Identity) {
	c.mu.Lock()
	c.identity = &id
	c.mu.Unlock()
}

func (c *WebSocketClient) Deliver(ev models.Event) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return false
	}
	select {
	case c.Send <- ev:
		return true
	default:
		return false
	}
}

// Run starts the pumps.
func (c *WebSocketClient) Run() {
	go c.writePump()
	go c.readPump()
}

// Close closes the Send channel, which stops writePump and with it the
// connection; readPump then exits on its own.
func (c *WebSocketClient) Close() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return false
	}
	c.closed = true
	close(c.Send)
	return true
}

// readPump decodes commands and hands them to the hub one at a time.
func (c *WebSocketClient) readPump() {
	defer func() {
		c.Hub.Disconnect(c)
		c.Conn.Close()
	}()

	c.Conn.SetReadLimit(config.MaxMessageSize)
	c.Conn.SetReadDeadline(time.Now().Add(config.PongWait))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(config.PongWait))
		return nil
	})

	for {
		_, message, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("WARNING: Error reading from connection %s: %v", c.ID, err)
			}
			break
		}

		var cmd models.Command
		if err := json.Unmarshal(message, &cmd); err != nil {
			log.Printf("Error decoding JSON from connection %s: %v", c.ID, err)
			c.Hub.Reject(c, "", errMalformed)
			continue
		}

		c.Hub.HandleCommand(c, cmd)
	}
}

// writePump writes queued events to the socket and keeps it alive with pings.
func (c *WebSocketClient) writePump() {
	ticker := time.NewTicker(config.PingPeriod)

	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()

	for {
		select {
		case ev, ok := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(config.WriteWait))
			if !ok {
				// The hub closed the channel.
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.Conn.WriteJSON(ev); err != nil {
				log.Printf("WARNING: Write to connection %s failed: %v", c.ID, err)
				return
			}

		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(config.WriteWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
