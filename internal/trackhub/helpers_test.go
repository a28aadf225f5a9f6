package trackhub_test

import (
	"context"
	"sharetrack/backend/internal/auth"
	"sharetrack/backend/internal/localization"
	"sharetrack/backend/internal/models"
	"sharetrack/backend/internal/ratelimit"
	"sharetrack/backend/internal/sharing"
	"sharetrack/backend/internal/storage"
	"sharetrack/backend/internal/trackhub"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

var (
	alice = models.Identity{ID: "alice", DisplayName: "Alice"}
	bob   = models.Identity{ID: "bob", DisplayName: "Bob"}
	carol = models.Identity{ID: "carol", DisplayName: "Carol"}
)

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type hubFixture struct {
	hub      *trackhub.ManagerService
	store    *storage.Memory
	clock    *clock
	issuer   *auth.Issuer
	sessions *sharing.SessionManager
	requests *sharing.RequestService
	chat     *sharing.ChatService
	ctx      context.Context
}

func newHubFixture(t *testing.T) *hubFixture {
	t.Helper()
	loc, err := localization.Bundled()
	require.NoError(t, err)

	store := storage.NewMemory()
	clk := &clock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
	hub := trackhub.NewManagerService(ratelimit.NewLimiter(time.Second), loc, "en")
	sessions := sharing.NewSessionManager(store, hub, 30*time.Minute)
	sessions.SetClock(clk.Now)
	requests := sharing.NewRequestService(store, sessions, hub)
	chat := sharing.NewChatService(store, sessions, hub)
	hub.SetServices(requests, sessions, chat)
	issuer := auth.NewIssuer("test-secret", "sharetrack", time.Hour)
	hub.SetVerifier(issuer)

	return &hubFixture{
		hub:      hub,
		store:    store,
		clock:    clk,
		issuer:   issuer,
		sessions: sessions,
		requests: requests,
		chat:     chat,
		ctx:      context.Background(),
	}
}

// connect registers an authenticated mock connection for id.
func (f *hubFixture) connect(connID string, id models.Identity) *MockClient {
	c := newMockClient(connID, &id)
	f.hub.Register(c)
	return c
}

func (f *hubFixture) session(t *testing.T, from, to models.Identity) *models.SharedSession {
	t.Helper()
	req, err := f.requests.Create(f.ctx, from, to)
	require.NoError(t, err)
	_, sess, err := f.requests.Respond(f.ctx, req.ID, to, true)
	require.NoError(t, err)
	return sess
}

func (f *hubFixture) token(t *testing.T, id models.Identity) string {
	t.Helper()
	tok, _, err := f.issuer.Issue(id)
	require.NoError(t, err)
	return tok
}

func errorCode(t *testing.T, ev models.Event) string {
	t.Helper()
	payload, ok := ev.Data.(models.ErrorPayload)
	require.True(t, ok, "unexpected payload %T", ev.Data)
	return payload.Code
}

func ptr(v float64) *float64 { return &v }
