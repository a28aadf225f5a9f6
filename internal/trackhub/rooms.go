package trackhub

import (
	"sharetrack/backend/internal/metrics"
	"sharetrack/backend/internal/models"
	"sort"
	"sync"
	"time"
)

// Member is a room participant together with the connection that joined.
type Member struct {
	models.RoomParticipant
	Client Client
}

// Departure describes a participant removed from a room.
type Departure struct {
	RoomID      string
	Participant models.RoomParticipant
	// Remaining are the members still in the room.
	Remaining []Member
}

// RoomRegistry tracks ad-hoc rooms keyed by room id. Knowing a room id is
// the only admission check. Empty rooms are removed.
type RoomRegistry struct {
	mu    sync.RWMutex
	rooms map[string]map[string]*Member
	now   func() time.Time
}

func NewRoomRegistry() *RoomRegistry {
	return &RoomRegistry{
		rooms: make(map[string]map[string]*Member),
		now:   time.Now,
	}
}

// Join adds or replaces a participant and returns the other members.
// Re-joining with the same participant id replaces the entry, including
// its client handle, so a participant is never listed twice.
func (r *RoomRegistry) Join(roomID, participantID, displayName string, loc *models.Location, c Client) []Member {
	others, _ := r.TryJoin(roomID, participantID, displayName, loc, c, nil)
	return others
}

// TryJoin is Join with a guard: when participantID is held by another
// client, the entry is only replaced if mayReplace(holder) is true. A nil
// mayReplace always replaces. ok is false if the join was refused.
func (r *RoomRegistry) TryJoin(roomID, participantID, displayName string, loc *models.Location, c Client, mayReplace func(holder Client) bool) ([]Member, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	room, ok := r.rooms[roomID]
	joinedAt := r.now()
	if prev, held := room[participantID]; held {
		if prev.Client != c && mayReplace != nil && !mayReplace(prev.Client) {
			return nil, false
		}
		joinedAt = prev.JoinedAt
	}
	if !ok {
		room = make(map[string]*Member)
		r.rooms[roomID] = room
	}
	room[participantID] = &Member{
		RoomParticipant: models.RoomParticipant{
			ID:          participantID,
			DisplayName: displayName,
			Location:    copyLocation(loc),
			JoinedAt:    joinedAt,
		},
		Client: c,
	}
	metrics.Rooms.Set(float64(len(r.rooms)))
	return snapshot(room, participantID), true
}

// Leave removes a participant. ok is false if it was not in the room.
func (r *RoomRegistry) Leave(roomID, participantID string) (Departure, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.leaveLocked(roomID, participantID)
}

func (r *RoomRegistry) leaveLocked(roomID, participantID string) (Departure, bool) {
	room, ok := r.rooms[roomID]
	if !ok {
		return Departure{}, false
	}
	m, ok := room[participantID]
	if !ok {
		return Departure{}, false
	}
	delete(room, participantID)
	if len(room) == 0 {
		delete(r.rooms, roomID)
	}
	metrics.Rooms.Set(float64(len(r.rooms)))
	return Departure{RoomID: roomID, Participant: m.RoomParticipant, Remaining: snapshot(room, "")}, true
}

// LeaveClient removes every entry held by c, for connection drops.
func (r *RoomRegistry) LeaveClient(c Client) []Departure {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []Departure
	for roomID, room := range r.rooms {
		for pid, m := range room {
			if m.Client != c {
				continue
			}
			if d, ok := r.leaveLocked(roomID, pid); ok {
				out = append(out, d)
			}
		}
	}
	return out
}

// UpdateLocation stores the participant's latest position.
func (r *RoomRegistry) UpdateLocation(roomID, participantID string, loc models.Location) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.rooms[roomID][participantID]
	if !ok {
		return false
	}
	m.Location = copyLocation(&loc)
	return true
}

// Participants lists the room's members except excluding, oldest first.
func (r *RoomRegistry) Participants(roomID, excluding string) []Member {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return snapshot(r.rooms[roomID], excluding)
}

// MemberOf returns the participant entry that c holds in the room.
func (r *RoomRegistry) MemberOf(roomID string, c Client) (models.RoomParticipant, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, m := range r.rooms[roomID] {
		if m.Client == c {
			return m.RoomParticipant, true
		}
	}
	return models.RoomParticipant{}, false
}

// Has reports whether the room exists.
func (r *RoomRegistry) Has(roomID string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.rooms[roomID]
	return ok
}

// Count returns the number of non-empty rooms.
func (r *RoomRegistry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.rooms)
}

func snapshot(room map[string]*Member, excluding string) []Member {
	out := make([]Member, 0, len(room))
	for pid, m := range room {
		if pid == excluding {
			continue
		}
		cp := *m
		cp.Location = copyLocation(m.Location)
		out = append(out, cp)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].JoinedAt.Equal(out[j].JoinedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].JoinedAt.Before(out[j].JoinedAt)
	})
	return out
}

func copyLocation(loc *models.Location) *models.Location {
	if loc == nil {
		return nil
	}
	cp := *loc
	return &cp
}

func participants(members []Member) []models.RoomParticipant {
	out := make([]models.RoomParticipant, len(members))
	for i, m := range members {
		out[i] = m.RoomParticipant
	}
	return out
}

// Contains reports whether participantID is in the room.
func (r *RoomRegistry) Contains(roomID, participantID string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.rooms[roomID][participantID]
	return ok
}
