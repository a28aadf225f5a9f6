// Package trackhub is the realtime connection hub: it tracks websocket
// clients, their identities and channel subscriptions, runs the ad-hoc
// room registry and relays locations and chat to the right peers.
package trackhub

import (
	"context"
	"log"
	"sharetrack/backend/internal/localization"
	"sharetrack/backend/internal/metrics"
	"sharetrack/backend/internal/models"
	"sharetrack/backend/internal/ratelimit"
	"sharetrack/backend/internal/sharing"
	"sync"
)

// TokenVerifier turns an identity token into an identity.
type TokenVerifier interface {
	Verify(token string) (*models.Identity, error)
}

// ManagerService is the hub. Client registration goes through RegisterCh
// and UnregisterCh, consumed by Run; everything else is a direct,
// mutex-guarded method call from the client's read pump.
type ManagerService struct {
	RegisterCh   chan Client
	UnregisterCh chan Client

	Rooms     *RoomRegistry
	Limiter   *ratelimit.Limiter
	Localizer *localization.Localizer
	Locale    string

	Requests *sharing.RequestService
	Sessions *sharing.SessionManager
	Chat     *sharing.ChatService
	Verifier TokenVerifier

	mu       sync.RWMutex
	clients  map[string]Client
	personal map[string]map[string]Client
	channels map[string]map[string]Client

	done chan struct{}
}

// NewManagerService creates a hub. The sharing services and the token
// verifier are attached afterwards with SetServices and SetVerifier, since
// the services take the hub as their Notifier.
func NewManagerService(limiter *ratelimit.Limiter, localizer *localization.Localizer, locale string) *ManagerService {
	if locale == "" {
		locale = localization.DefaultLanguage
	}
	return &ManagerService{
		RegisterCh:   make(chan Client),
		UnregisterCh: make(chan Client),
		Rooms:        NewRoomRegistry(),
		Limiter:      limiter,
		Localizer:    localizer,
		Locale:       locale,
		clients:      make(map[string]Client),
		personal:     make(map[string]map[string]Client),
		channels:     make(map[string]map[string]Client),
		done:         make(chan struct{}),
	}
}

func (m *ManagerService) SetServices(requests *sharing.RequestService, sessions *sharing.SessionManager, chat *sharing.ChatService) {
	m.Requests = requests
	m.Sessions = sessions
	m.Chat = chat
}

func (m *ManagerService) SetVerifier(v TokenVerifier) {
	m.Verifier = v
}

// Run processes registrations until ctx is cancelled.
func (m *ManagerService) Run(ctx context.Context) {
	log.Println("Hub started.")
	defer close(m.done)
	for {
		select {
		case <-ctx.Done():
			log.Println("Hub stopped.")
			return
		case c := <-m.RegisterCh:
			m.Register(c)
		case c := <-m.UnregisterCh:
			m.Unregister(c)
		}
	}
}

// Disconnect hands c to Run for unregistration, or unregisters it directly
// once the hub has stopped.
func (m *ManagerService) Disconnect(c Client) {
	select {
	case m.UnregisterCh <- c:
	case <-m.done:
		m.Unregister(c)
	}
}

// Connect hands c to Run for registration. It returns false if the hub
// has stopped.
func (m *ManagerService) Connect(c Client) bool {
	select {
	case m.RegisterCh <- c:
		return true
	case <-m.done:
		return false
	}
}

// Register adds c to the hub. An authenticated client joins its personal
// channel and receives the requests still waiting on it.
func (m *ManagerService) Register(c Client) {
	m.mu.Lock()
	m.clients[c.GetConnID()] = c
	m.mu.Unlock()
	metrics.Connections.Inc()

	if id := c.GetIdentity(); id != nil {
		m.attach(c, *id)
	}
	log.Printf("INFO: Connection %s registered (user %q)", c.GetConnID(), userID(c))
}

// Unregister removes c from every room, channel and index, tells the
// peers it left and closes it. Unknown clients are ignored.
func (m *ManagerService) Unregister(c Client) {
	connID := c.GetConnID()
	uid := userID(c)

	m.mu.Lock()
	if _, ok := m.clients[connID]; !ok {
		m.mu.Unlock()
		return
	}
	delete(m.clients, connID)
	if uid != "" {
		m.unindexLocked(uid, connID)
	}
	var left []string
	for sessionID, subs := range m.channels {
		if _, ok := subs[connID]; !ok {
			continue
		}
		delete(subs, connID)
		if len(subs) == 0 {
			delete(m.channels, sessionID)
		}
		if !m.userInSessionLocked(sessionID, uid) {
			left = append(left, sessionID)
		}
	}
	m.mu.Unlock()

	for _, d := range m.Rooms.LeaveClient(c) {
		m.broadcastRoomLeft(d)
	}
	if uid != "" && m.Sessions != nil {
		for _, sessionID := range left {
			m.notifyPeerLeft(sessionID, uid)
		}
	}
	if m.Limiter != nil {
		m.Limiter.Forget(connID)
	}
	c.Close()
	metrics.Connections.Dec()
	log.Printf("INFO: Connection %s unregistered", connID)
}

func (m *ManagerService) notifyPeerLeft(sessionID, uid string) {
	sess, err := m.Sessions.Get(context.Background(), sessionID)
	if err != nil || !sess.IsActive {
		return
	}
	m.NotifyUser(sess.Peer(uid), models.NewEvent(models.EvSharePeerLeft, models.SessionEvent{
		SessionID: sessionID,
		UserID:    uid,
	}))
}

// attach binds identity to c, subscribes it to the personal channel and
// pushes the pending incoming requests once.
func (m *ManagerService) attach(c Client, id models.Identity) {
	connID := c.GetConnID()
	prev := userID(c)
	c.SetIdentity(id)

	m.mu.Lock()
	if prev != "" && prev != id.ID {
		m.unindexLocked(prev, connID)
	}
	if _, ok := m.clients[connID]; ok {
		conns, ok := m.personal[id.ID]
		if !ok {
			conns = make(map[string]Client)
			m.personal[id.ID] = conns
		}
		conns[connID] = c
	}
	m.mu.Unlock()

	if m.Requests == nil {
		return
	}
	pending, err := m.Requests.PendingFor(context.Background(), id.ID)
	if err != nil {
		log.Printf("ERROR: Failed to load pending requests for %s: %v", id.ID, err)
		return
	}
	for i := range pending {
		m.deliver(c, models.NewEvent(models.EvShareRequest, &pending[i]))
	}
}

func (m *ManagerService) unindexLocked(uid, connID string) {
	conns := m.personal[uid]
	delete(conns, connID)
	if len(conns) == 0 {
		delete(m.personal, uid)
	}
}

func (m *ManagerService) userInSessionLocked(sessionID, uid string) bool {
	if uid == "" {
		return false
	}
	for _, c := range m.channels[sessionID] {
		if userID(c) == uid {
			return true
		}
	}
	return false
}

// subscribe adds c to the session channel.
func (m *ManagerService) subscribe(c Client, sessionID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	subs, ok := m.channels[sessionID]
	if !ok {
		subs = make(map[string]Client)
		m.channels[sessionID] = subs
	}
	subs[c.GetConnID()] = c
}

// Subscribed reports whether c joined the session channel.
func (m *ManagerService) Subscribed(c Client, sessionID string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.channels[sessionID][c.GetConnID()]
	return ok
}

// ClientCount returns the number of registered connections.
func (m *ManagerService) ClientCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.clients)
}

// deliver queues ev for c. A client that cannot keep up is closed; its
// read pump then unregisters it.
func (m *ManagerService) deliver(c Client, ev models.Event) {
	if c.Deliver(ev) {
		return
	}
	if c.Close() {
		log.Printf("WARNING: Dropping connection %s: send queue full", c.GetConnID())
		metrics.DroppedClients.Inc()
	}
}

func (m *ManagerService) userConns(uid string) []Client {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Client, 0, len(m.personal[uid]))
	for _, c := range m.personal[uid] {
		out = append(out, c)
	}
	return out
}

// NotifyUser sends ev to every connection authenticated as userID.
func (m *ManagerService) NotifyUser(userID string, ev models.Event) {
	if userID == "" {
		return
	}
	for _, c := range m.userConns(userID) {
		m.deliver(c, ev)
	}
}

// NotifySession sends ev once to each connection subscribed to the session
// or belonging to a participant.
func (m *ManagerService) NotifySession(sess *models.SharedSession, ev models.Event) {
	m.mu.RLock()
	targets := make(map[string]Client)
	for id, c := range m.channels[sess.ID] {
		targets[id] = c
	}
	for _, uid := range sess.Participants {
		for id, c := range m.personal[uid] {
			targets[id] = c
		}
	}
	m.mu.RUnlock()

	for _, c := range targets {
		m.deliver(c, ev)
	}
}

// NotifyRoom sends ev to every member of the room.
func (m *ManagerService) NotifyRoom(roomID string, ev models.Event) bool {
	if !m.Rooms.Has(roomID) {
		return false
	}
	for _, member := range m.Rooms.Participants(roomID, "") {
		m.deliver(member.Client, ev)
	}
	return true
}

// CloseSession drops every subscription to the session channel.
func (m *ManagerService) CloseSession(sessionID string) {
	m.mu.Lock()
	delete(m.channels, sessionID)
	m.mu.Unlock()
}

var _ sharing.Notifier = (*ManagerService)(nil)
