package trackhub

import "sharetrack/backend/internal/models"

// Client is the interface for any type of connection.
// It abstracts the underlying communication mechanism, allowing the hub to manage
// different client types uniformly.
type Client interface {
	// GetConnID returns the unique identifier of this connection.
	GetConnID() string
	// GetIdentity returns the authenticated identity, or nil for an
	// anonymous connection.
	GetIdentity() *models.Identity
	// SetIdentity attaches an identity after a successful auth command.
	SetIdentity(models.Identity)

	// Deliver queues ev for the client without blocking. It returns false
	// when the queue is full or the client is closed.
	Deliver(ev models.Event) bool

	// Run starts the client's read and write pumps, which handle incoming and
	// outgoing messages.
	Run()
	// Close gracefully shuts down the client's connection and associated channels.
	// It is safe to call more than once; only the call that actually closed
	// the client returns true.
	Close() bool
}

// userID returns the identity id of c, or "" when anonymous.
func userID(c Client) string {
	if id := c.GetIdentity(); id != nil {
		return id.ID
	}
	return ""
}
