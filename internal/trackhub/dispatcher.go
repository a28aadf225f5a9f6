package trackhub

import (
	"context"
	"fmt"
	"log"
	"sharetrack/backend/internal/auth"
	"sharetrack/backend/internal/models"
	"sharetrack/backend/internal/sharing"
)

var errMalformed = fmt.Errorf("%w: malformed command", sharing.ErrInvalidRequest)

// HandleCommand runs one client command. It is called from the client's
// read pump, so commands of one connection never run concurrently.
// Failures are reported to the sender only, as share.error.
func (m *ManagerService) HandleCommand(c Client, cmd models.Command) {
	ctx := context.Background()

	if cmd.Type == models.CmdAuth || cmd.Token != "" {
		if err := m.authenticate(c, cmd.Token, cmd.Type == models.CmdAuth); err != nil {
			m.Reject(c, cmd.Type, err)
			return
		}
		if cmd.Type == models.CmdAuth {
			return
		}
	}

	var err error
	switch cmd.Type {
	case models.CmdRoomJoin:
		err = m.joinRoom(c, cmd)
	case models.CmdRoomLeave:
		err = m.leaveRoom(c, cmd.RoomID)
	case models.CmdRoomLocationUpdate:
		err = m.SubmitRoomLocation(c, cmd.RoomID, cmd.Point())
	case models.CmdShareJoin:
		err = m.joinSession(ctx, c, cmd.SessionID)
	case models.CmdLocationUpdate:
		err = m.SubmitSessionLocation(ctx, c, cmd.SessionID, cmd.Point())
	case models.CmdShareEnd:
		err = m.endSession(ctx, c, cmd.SessionID)
	case models.CmdChatSend:
		err = m.SubmitChat(ctx, c, cmd.SessionOrRoomID, cmd.Body, cmd.Point())
	case models.CmdChatMarkRead:
		err = m.MarkRead(ctx, c, cmd.SessionOrRoomID)
	default:
		err = fmt.Errorf("%w: unknown command %q", sharing.ErrInvalidRequest, cmd.Type)
	}
	if err != nil {
		m.Reject(c, cmd.Type, err)
	}
}

// Reject sends share.error to c.
func (m *ManagerService) Reject(c Client, command string, err error) {
	code := sharing.Code(err)
	if code == sharing.CodeInternal {
		log.Printf("ERROR: Command %q from connection %s failed: %v", command, c.GetConnID(), err)
	}
	m.deliver(c, models.NewEvent(models.EvShareError, models.ErrorPayload{
		Code:    code,
		Message: m.Localizer.ErrorMessage(m.Locale, code),
		Command: command,
	}))
}

// authenticate verifies token and binds the identity to c. explicit is
// true for the auth command, which is always acknowledged.
func (m *ManagerService) authenticate(c Client, token string, explicit bool) error {
	if m.Verifier == nil {
		return auth.ErrInvalidToken
	}
	id, err := m.Verifier.Verify(token)
	if err != nil {
		return err
	}
	if current := c.GetIdentity(); current == nil || current.ID != id.ID {
		m.attach(c, *id)
	} else if !explicit {
		return nil
	}
	m.deliver(c, models.NewEvent(models.EvAuthOK, id))
	return nil
}

func requireIdentity(c Client) (models.Identity, error) {
	id := c.GetIdentity()
	if id == nil {
		return models.Identity{}, auth.ErrAuthRequired
	}
	return *id, nil
}

// anonPrefix keeps participant ids chosen by unauthenticated clients apart
// from identity ids.
const anonPrefix = "anon:"

// roomParticipant picks the participant id and name c uses in a room: the
// authenticated identity, else "anon:" plus the anonId it sent or its
// connection id.
func roomParticipant(c Client, cmd models.Command) (string, string) {
	name := cmd.DisplayName
	if id := c.GetIdentity(); id != nil {
		if name == "" {
			name = id.DisplayName
		}
		return id.ID, name
	}
	if cmd.AnonID != "" {
		return anonPrefix + cmd.AnonID, name
	}
	return anonPrefix + c.GetConnID(), name
}

// mayTakeOver reports whether c may replace holder's entry for pid: only
// another connection of the same authenticated identity can.
func mayTakeOver(c Client, pid string) func(holder Client) bool {
	return func(holder Client) bool {
		mine, theirs := c.GetIdentity(), holder.GetIdentity()
		return mine != nil && theirs != nil && mine.ID == pid && theirs.ID == pid
	}
}

func (m *ManagerService) joinRoom(c Client, cmd models.Command) error {
	if cmd.RoomID == "" {
		return fmt.Errorf("%w: roomId is required", sharing.ErrInvalidRequest)
	}
	loc := cmd.Point()
	if loc != nil && !loc.Valid() {
		return sharing.ErrInvalidLocation
	}
	pid, name := roomParticipant(c, cmd)

	if prev, ok := m.Rooms.MemberOf(cmd.RoomID, c); ok && prev.ID != pid {
		if d, ok := m.Rooms.Leave(cmd.RoomID, prev.ID); ok {
			m.broadcastRoomLeft(d)
		}
	}

	others, ok := m.Rooms.TryJoin(cmd.RoomID, pid, name, loc, c, mayTakeOver(c, pid))
	if !ok {
		return fmt.Errorf("%w: participant %s is already in room %s", sharing.ErrForbidden, pid, cmd.RoomID)
	}
	self, _ := m.Rooms.MemberOf(cmd.RoomID, c)

	m.deliver(c, models.NewEvent(models.EvRoomRoster, models.RoomEvent{
		RoomID:       cmd.RoomID,
		Participant:  &self,
		Participants: participants(others),
	}))
	joined := models.NewEvent(models.EvRoomUserJoined, models.RoomEvent{RoomID: cmd.RoomID, Participant: &self})
	for _, o := range others {
		m.deliver(o.Client, joined)
	}
	log.Printf("INFO: %s joined room %s (%d present)", pid, cmd.RoomID, len(others)+1)
	return nil
}

func (m *ManagerService) leaveRoom(c Client, roomID string) error {
	p, ok := m.Rooms.MemberOf(roomID, c)
	if !ok {
		return sharing.ErrNotFound
	}
	if d, ok := m.Rooms.Leave(roomID, p.ID); ok {
		m.broadcastRoomLeft(d)
	}
	return nil
}

func (m *ManagerService) broadcastRoomLeft(d Departure) {
	p := d.Participant
	ev := models.NewEvent(models.EvRoomUserLeft, models.RoomEvent{RoomID: d.RoomID, Participant: &p})
	for _, o := range d.Remaining {
		m.deliver(o.Client, ev)
	}
}

// joinSession subscribes c to the session channel, confirms with
// share.joined and replays the peer's last known location.
func (m *ManagerService) joinSession(ctx context.Context, c Client, sessionID string) error {
	who, err := requireIdentity(c)
	if err != nil {
		return err
	}
	sess, err := m.Sessions.Join(ctx, sessionID, who, func(s *models.SharedSession) {
		m.subscribe(c, s.ID)
	})
	if err != nil {
		return err
	}
	m.deliver(c, models.NewEvent(models.EvShareJoined, models.SessionEvent{SessionID: sess.ID, Session: sess}))
	if loc := m.Sessions.PeerLocation(ctx, sess, who.ID); loc != nil {
		m.deliver(c, models.NewEvent(models.EvLocationPeer, models.PeerLocation{
			SessionID: sess.ID,
			UserID:    sess.Peer(who.ID),
			Location:  *loc,
		}))
	}
	return nil
}

func (m *ManagerService) endSession(ctx context.Context, c Client, sessionID string) error {
	who, err := requireIdentity(c)
	if err != nil {
		return err
	}
	_, err = m.Sessions.Revoke(ctx, sessionID, who)
	return err
}
