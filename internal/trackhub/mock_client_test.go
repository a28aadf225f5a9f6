package trackhub_test

import (
	"sharetrack/backend/internal/models"
	"sync"
)

type MockClient struct {
	connID string

	mu       sync.Mutex
	identity *models.Identity
	events   []models.Event
	closed   bool
	// full makes every delivery fail, like a client that stopped reading.
	full bool
}

func newMockClient(connID string, identity *models.Identity) *MockClient {
	return &MockClient{connID: connID, identity: identity}
}

func (c *MockClient) GetConnID() string { return c.connID }

func (c *MockClient) GetIdentity() *models.Identity {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.identity == nil {
		return nil
	}
	id := *c.identity
	return &id
}

func (c *MockClient) SetIdentity(id models.Identity) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.identity = &id
}

func (c *MockClient) Deliver(ev models.Event) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed || c.full {
		return false
	}
	c.events = append(c.events, ev)
	return true
}

func (c *MockClient) Run() {
	// Not needed for testing
}

func (c *MockClient) Close() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return false
	}
	c.closed = true
	return true
}

func (c *MockClient) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

func (c *MockClient) types() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, 0, len(c.events))
	for _, ev := range c.events {
		out = append(out, ev.Type)
	}
	return out
}

func (c *MockClient) ofType(typ string) []models.Event {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []models.Event
	for _, ev := range c.events {
		if ev.Type == typ {
			out = append(out, ev)
		}
	}
	return out
}

func (c *MockClient) reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = nil
}
