package storage

import (
	"context"
	"sort"
	"sync"
	"time"

	"sharetrack/backend/internal/models"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

type cachedLocation struct {
	loc     models.Location
	expires time.Time
}

// Memory is an in-process Storage used for local development
// (DATABASE_DSN=memory) and tests. It enforces the same uniqueness and
// conditional-update rules as the PostgreSQL schema.
type Memory struct {
	mu        sync.Mutex
	requests  map[string]models.ShareRequest
	sessions  map[string]models.SharedSession
	messages  map[string]models.ChatMessage
	receipts  map[string]map[string]time.Time // message id -> reader -> readAt
	locations map[string]cachedLocation
	now       func() time.Time
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		requests:  make(map[string]models.ShareRequest),
		sessions:  make(map[string]models.SharedSession),
		messages:  make(map[string]models.ChatMessage),
		receipts:  make(map[string]map[string]time.Time),
		locations: make(map[string]cachedLocation),
		now:       time.Now,
	}
}

func copySession(s models.SharedSession) models.SharedSession {
	s.Participants = append(pq.StringArray(nil), s.Participants...)
	s.ParticipantNames = append(pq.StringArray(nil), s.ParticipantNames...)
	return s
}

func (m *Memory) CreateShareRequest(_ context.Context, req *models.ShareRequest) error {
	if err := req.BeforeCreate(nil); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.requests[req.ID]; ok {
		return ErrDuplicate
	}
	if req.Status == models.RequestPending {
		for _, r := range m.requests {
			if r.PairKey == req.PairKey && r.Status == models.RequestPending {
				return ErrDuplicate
			}
		}
	}
	m.requests[req.ID] = *req
	return nil
}

func (m *Memory) GetShareRequest(_ context.Context, id string) (*models.ShareRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.requests[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &r, nil
}

func (m *Memory) FindPendingRequest(_ context.Context, pairKey string) (*models.ShareRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.requests {
		if r.PairKey == pairKey && r.Status == models.RequestPending {
			return &r, nil
		}
	}
	return nil, nil
}

func (m *Memory) ListShareRequests(_ context.Context, userID string, f RequestFilter) ([]models.ShareRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.ShareRequest
	for _, r := range m.requests {
		switch f.Direction {
		case DirectionIncoming:
			if r.ToID != userID {
				continue
			}
		case DirectionOutgoing:
			if r.FromID != userID {
				continue
			}
		default:
			if !r.Involves(userID) {
				continue
			}
		}
		if f.Status != "" && r.Status != f.Status {
			continue
		}
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].RequestedAt.After(out[j].RequestedAt) })
	return out, nil
}

// resolveLocked applies a pending -> next transition. Caller holds m.mu.
func (m *Memory) resolveLocked(id string, next models.RequestStatus, actorID string, at time.Time) (models.ShareRequest, error) {
	r, ok := m.requests[id]
	if !ok {
		return r, ErrNotFound
	}
	if r.Status != models.RequestPending {
		return r, ErrConflict
	}
	r.Status = next
	if next == models.RequestRevoked {
		actor := actorID
		r.RevokedBy = &actor
		r.RevokedAt = &at
	} else {
		r.RespondedAt = &at
	}
	return r, nil
}

func (m *Memory) ResolveShareRequest(_ context.Context, id string, next models.RequestStatus, actorID string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, err := m.resolveLocked(id, next, actorID, at)
	if err != nil {
		return err
	}
	m.requests[id] = r
	return nil
}

func (m *Memory) ApproveShareRequest(_ context.Context, id string, session *models.SharedSession, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, err := m.resolveLocked(id, models.RequestApproved, "", at)
	if err != nil {
		return err
	}
	if err := m.insertSessionLocked(session); err != nil {
		return err
	}
	sid := session.ID
	r.SessionID = &sid
	m.requests[id] = r
	return nil
}

func (m *Memory) insertSessionLocked(s *models.SharedSession) error {
	if err := s.BeforeCreate(nil); err != nil {
		return err
	}
	if _, ok := m.sessions[s.ID]; ok {
		return ErrDuplicate
	}
	if s.IsActive {
		for _, existing := range m.sessions {
			if existing.PairKey == s.PairKey && existing.IsActive {
				return ErrDuplicate
			}
		}
	}
	if s.CreatedAt.IsZero() {
		s.CreatedAt = m.now()
	}
	m.sessions[s.ID] = copySession(*s)
	return nil
}

func (m *Memory) CreateSession(_ context.Context, s *models.SharedSession) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.insertSessionLocked(s)
}

func (m *Memory) GetSession(_ context.Context, id string) (*models.SharedSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok {
		return nil, ErrNotFound
	}
	s = copySession(s)
	return &s, nil
}

func (m *Memory) FindActiveSession(_ context.Context, pairKey string) (*models.SharedSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.sessions {
		if s.PairKey == pairKey && s.IsActive {
			s = copySession(s)
			return &s, nil
		}
	}
	return nil, nil
}

func (m *Memory) ListActiveSessions(_ context.Context, userID string, now time.Time) ([]models.SharedSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.SharedSession
	for _, s := range m.sessions {
		if s.Live(now) && s.HasParticipant(userID) {
			out = append(out, copySession(s))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (m *Memory) ListExpiredSessions(_ context.Context, now time.Time, limit int) ([]models.SharedSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.SharedSession
	for _, s := range m.sessions {
		if s.IsActive && s.Expired(now) {
			out = append(out, copySession(s))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ExpiresAt.Before(out[j].ExpiresAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *Memory) EndSession(_ context.Context, id string, reason models.SessionEndReason, actorID string, at time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok {
		return false, ErrNotFound
	}
	if !s.IsActive {
		return false, nil
	}
	s.IsActive = false
	s.EndReason = reason
	s.EndedAt = &at
	if reason == models.EndRevoked {
		actor := actorID
		s.RevokedBy = &actor
		s.RevokedAt = &at
	}
	m.sessions[id] = s
	return true, nil
}

func (m *Memory) PurgeEnded(_ context.Context, cutoff time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for id, r := range m.requests {
		if r.Status == models.RequestPending {
			continue
		}
		stamp := r.RequestedAt
		if r.RespondedAt != nil {
			stamp = *r.RespondedAt
		}
		if r.RevokedAt != nil {
			stamp = *r.RevokedAt
		}
		if stamp.Before(cutoff) {
			delete(m.requests, id)
			n++
		}
	}
	for id, s := range m.sessions {
		if !s.IsActive && s.EndedAt != nil && s.EndedAt.Before(cutoff) {
			delete(m.sessions, id)
			n++
		}
	}
	return n, nil
}

func (m *Memory) SaveMessage(_ context.Context, msg *models.ChatMessage) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if msg.ID == "" {
		msg.ID = uuid.New().String()
	}
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = m.now()
	}
	stored := *msg
	stored.ReadBy = nil
	m.messages[msg.ID] = stored
	return nil
}

func (m *Memory) withReceiptsLocked(msg models.ChatMessage) models.ChatMessage {
	msg.ReadBy = nil
	for reader, at := range m.receipts[msg.ID] {
		msg.ReadBy = append(msg.ReadBy, models.ReadReceipt{MessageID: msg.ID, ReaderID: reader, ReadAt: at})
	}
	sort.Slice(msg.ReadBy, func(i, j int) bool { return msg.ReadBy[i].ReaderID < msg.ReadBy[j].ReaderID })
	return msg
}

func (m *Memory) GetMessage(_ context.Context, id string) (*models.ChatMessage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	msg, ok := m.messages[id]
	if !ok {
		return nil, ErrNotFound
	}
	msg = m.withReceiptsLocked(msg)
	return &msg, nil
}

func (m *Memory) ListMessages(_ context.Context, channelID string, limit int) ([]models.ChatMessage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.ChatMessage
	for _, msg := range m.messages {
		if msg.ChannelID == channelID {
			out = append(out, m.withReceiptsLocked(msg))
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[len(out)-limit:]
	}
	return out, nil
}

func (m *Memory) MarkMessageDeleted(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	msg, ok := m.messages[id]
	if !ok {
		return ErrNotFound
	}
	msg.Deleted = true
	m.messages[id] = msg
	return nil
}

func (m *Memory) MarkChannelRead(_ context.Context, channelID, readerID string, at time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for id, msg := range m.messages {
		if msg.ChannelID != channelID || msg.SenderID == readerID || msg.Deleted {
			continue
		}
		readers := m.receipts[id]
		if readers == nil {
			readers = make(map[string]time.Time)
			m.receipts[id] = readers
		}
		if _, seen := readers[readerID]; seen {
			continue
		}
		readers[readerID] = at
		n++
	}
	return n, nil
}

func (m *Memory) SaveLastLocation(_ context.Context, sessionID, userID string, loc models.Location, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.locations[locationKey(sessionID, userID)] = cachedLocation{loc: loc, expires: m.now().Add(ttl)}
	return nil
}

func (m *Memory) LastLocation(_ context.Context, sessionID, userID string) (*models.Location, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := locationKey(sessionID, userID)
	c, ok := m.locations[key]
	if !ok {
		return nil, nil
	}
	if !m.now().Before(c.expires) {
		delete(m.locations, key)
		return nil, nil
	}
	loc := c.loc
	return &loc, nil
}

func (m *Memory) Ping(context.Context) error { return nil }

var (
	_ Storage = (*Memory)(nil)
	_ Storage = (*Service)(nil)
)
