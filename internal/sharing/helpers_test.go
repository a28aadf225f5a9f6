package sharing_test

import (
	"context"
	"errors"
	"sharetrack/backend/internal/models"
	"sharetrack/backend/internal/sharing"
	"sharetrack/backend/internal/storage"
	"sync"
	"testing"
	"time"
)

var (
	alice = models.Identity{ID: "alice", DisplayName: "Alice"}
	bob   = models.Identity{ID: "bob", DisplayName: "Bob"}
	carol = models.Identity{ID: "carol", DisplayName: "Carol"}
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type sessionEvent struct {
	SessionID string
	Event     models.Event
}

// recorder is a Notifier that remembers everything it was asked to send.
type recorder struct {
	mu       sync.Mutex
	users    map[string][]models.Event
	sessions []sessionEvent
	rooms    map[string][]models.Event
	closed   []string
}

func newRecorder() *recorder {
	return &recorder{users: map[string][]models.Event{}, rooms: map[string][]models.Event{}}
}

func (r *recorder) NotifyUser(userID string, ev models.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.users[userID] = append(r.users[userID], ev)
}

func (r *recorder) NotifySession(sess *models.SharedSession, ev models.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions = append(r.sessions, sessionEvent{SessionID: sess.ID, Event: ev})
}

func (r *recorder) NotifyRoom(roomID string, ev models.Event) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rooms[roomID] = append(r.rooms[roomID], ev)
	return true
}

func (r *recorder) CloseSession(sessionID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = append(r.closed, sessionID)
}

func (r *recorder) userTypes(userID string) []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []string
	for _, ev := range r.users[userID] {
		out = append(out, ev.Type)
	}
	return out
}

func (r *recorder) sessionTypes(sessionID string) []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []string
	for _, se := range r.sessions {
		if se.SessionID == sessionID {
			out = append(out, se.Event.Type)
		}
	}
	return out
}

func (r *recorder) count(typ string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, se := range r.sessions {
		if se.Event.Type == typ {
			n++
		}
	}
	return n
}

type fixture struct {
	store    *storage.Memory
	clock    *fakeClock
	rec      *recorder
	sessions *sharing.SessionManager
	requests *sharing.RequestService
	chat     *sharing.ChatService
	ctx      context.Context
}

const sessionTTL = 30 * time.Minute

func newFixture(t *testing.T) *fixture {
	t.Helper()
	return newFixtureWith(t, storage.NewMemory())
}

func newFixtureWith(t *testing.T, store storage.Storage) *fixture {
	t.Helper()
	clock := &fakeClock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
	rec := newRecorder()
	sessions := sharing.NewSessionManager(store, rec, sessionTTL)
	sessions.SetClock(clock.Now)
	f := &fixture{
		clock:    clock,
		rec:      rec,
		sessions: sessions,
		requests: sharing.NewRequestService(store, sessions, rec),
		chat:     sharing.NewChatService(store, sessions, rec),
		ctx:      context.Background(),
	}
	if mem, ok := store.(*storage.Memory); ok {
		f.store = mem
	}
	return f
}

// approvedSession runs the request/approve flow between from and to.
func (f *fixture) approvedSession(t *testing.T, from, to models.Identity) *models.SharedSession {
	t.Helper()
	req, err := f.requests.Create(f.ctx, from, to)
	if err != nil {
		t.Fatalf("create request: %v", err)
	}
	_, sess, err := f.requests.Respond(f.ctx, req.ID, to, true)
	if err != nil {
		t.Fatalf("approve request: %v", err)
	}
	return sess
}

var errStoreDown = errors.New("connection refused")

// brokenStore fails every pending-request lookup.
type brokenStore struct {
	*storage.Memory
}

func (brokenStore) FindPendingRequest(context.Context, string) (*models.ShareRequest, error) {
	return nil, errStoreDown
}
