package models

import "time"

// Client -> server command types.
const (
	CmdAuth               = "auth"
	CmdRoomJoin           = "room.join"
	CmdRoomLeave          = "room.leave"
	CmdRoomLocationUpdate = "room.locationUpdate"
	CmdShareJoin          = "share.join"
	CmdLocationUpdate     = "location.update"
	CmdShareEnd           = "share.end"
	CmdChatSend           = "chat.send"
	CmdChatMarkRead       = "chat.markRead"
)

// Server -> client event types.
const (
	EvAuthOK           = "auth.ok"
	EvRoomUserJoined   = "room.userJoined"
	EvRoomUserLeft     = "room.userLeft"
	EvRoomRoster       = "room.roster"
	EvLocationUpdate   = "location.update"
	EvLocationPeer     = "location.peerUpdate"
	EvShareRequest     = "share.request"
	EvShareApproved    = "share.approved"
	EvShareRejected    = "share.rejected"
	EvShareReqRevoked  = "share.requestRevoked"
	EvShareDirect      = "share.direct"
	EvShareJoined      = "share.joined"
	EvSharePeerJoined  = "share.peerJoined"
	EvSharePeerLeft    = "share.peerLeft"
	EvShareEnd         = "share.end"
	EvShareExpired     = "share.expired"
	EvShareError       = "share.error"
	EvShareRateLimited = "share.rateLimited"
	EvChatNewMessage   = "chat.newMessage"
	EvChatRead         = "chat.read"
	EvChatDeleted      = "chat.deleted"
)

// Location is a single position fix.
type Location struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
	// Timestamp is the client's fix time in unix milliseconds.
	Timestamp int64 `json:"timestamp,omitempty"`
}

// Valid reports whether the coordinates are inside WGS84 bounds.
func (l Location) Valid() bool {
	return l.Lat >= -90 && l.Lat <= 90 && l.Lng >= -180 && l.Lng <= 180
}

// Command is an inbound frame from a client. Only the fields relevant to
// Type are populated.
type Command struct {
	Type  string `json:"type"`
	Token string `json:"token,omitempty"`

	RoomID          string `json:"roomId,omitempty"`
	SessionID       string `json:"sessionId,omitempty"`
	SessionOrRoomID string `json:"sessionOrRoomId,omitempty"`

	// AnonID and DisplayName identify an unauthenticated room participant.
	AnonID      string `json:"anonId,omitempty"`
	DisplayName string `json:"displayName,omitempty"`

	Location  *Location `json:"location,omitempty"`
	Lat       *float64  `json:"lat,omitempty"`
	Lng       *float64  `json:"lng,omitempty"`
	Timestamp int64     `json:"timestamp,omitempty"`

	Body string `json:"body,omitempty"`
}

// Point returns the location carried by the command, either as the nested
// location object or as flat lat/lng fields.
func (c Command) Point() *Location {
	if c.Location != nil {
		return c.Location
	}
	if c.Lat != nil && c.Lng != nil {
		return &Location{Lat: *c.Lat, Lng: *c.Lng, Timestamp: c.Timestamp}
	}
	return nil
}

// Event is an outbound frame to a client.
type Event struct {
	Type string      `json:"type"`
	Data interface{} `json:"data,omitempty"`
	At   time.Time   `json:"at"`
}

// NewEvent stamps an event with the current time.
func NewEvent(typ string, data interface{}) Event {
	return Event{Type: typ, Data: data, At: time.Now().UTC()}
}

// ErrorPayload is the body of share.error.
type ErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	// Command echoes the command type that failed.
	Command string `json:"command,omitempty"`
}

// RoomParticipant is the public view of a room member.
type RoomParticipant struct {
	ID          string    `json:"id"`
	DisplayName string    `json:"displayName,omitempty"`
	Location    *Location `json:"location,omitempty"`
	JoinedAt    time.Time `json:"joinedAt"`
}

// PeerLocation is the payload of location.update and location.peerUpdate.
type PeerLocation struct {
	SessionID string   `json:"sessionId,omitempty"`
	RoomID    string   `json:"roomId,omitempty"`
	UserID    string   `json:"userId"`
	Location  Location `json:"location"`
}

// SessionEvent is the payload of share.* lifecycle events.
type SessionEvent struct {
	SessionID string         `json:"sessionId"`
	Session   *SharedSession `json:"session,omitempty"`
	Request   *ShareRequest  `json:"request,omitempty"`
	UserID    string         `json:"userId,omitempty"`
	Reason    string         `json:"reason,omitempty"`
}

// ReadEvent is the payload of chat.read.
type ReadEvent struct {
	SessionOrRoomID string    `json:"sessionOrRoomId"`
	ReaderID        string    `json:"readerId"`
	ReadAt          time.Time `json:"readAt"`
	Count           int64     `json:"count"`
}

// RoomEvent is the payload of room.roster, room.userJoined and
// room.userLeft. Participants is set on the roster only.
type RoomEvent struct {
	RoomID       string            `json:"roomId"`
	Participant  *RoomParticipant  `json:"participant,omitempty"`
	Participants []RoomParticipant `json:"participants,omitempty"`
}
