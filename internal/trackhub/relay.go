package trackhub

import (
	"context"
	"fmt"
	"sharetrack/backend/internal/metrics"
	"sharetrack/backend/internal/models"
	"sharetrack/backend/internal/sharing"
)

// allow applies the per-connection location limiter. A rejected update is
// answered with share.rateLimited to the sender and goes nowhere else.
func (m *ManagerService) allow(c Client, mode, command string) bool {
	if m.Limiter == nil || m.Limiter.Allow(c.GetConnID()) {
		return true
	}
	metrics.LocationUpdates.WithLabelValues(mode, "rate_limited").Inc()
	m.deliver(c, models.NewEvent(models.EvShareRateLimited, models.ErrorPayload{
		Code:    sharing.CodeRateLimited,
		Message: m.Localizer.ErrorMessage(m.Locale, sharing.CodeRateLimited),
		Command: command,
	}))
	return false
}

// SubmitRoomLocation relays c's position to the other room members.
func (m *ManagerService) SubmitRoomLocation(c Client, roomID string, loc *models.Location) error {
	p, ok := m.Rooms.MemberOf(roomID, c)
	if !ok {
		if !m.Rooms.Has(roomID) {
			return sharing.ErrNotFound
		}
		return sharing.ErrForbidden
	}
	if loc == nil || !loc.Valid() {
		metrics.LocationUpdates.WithLabelValues("room", "rejected").Inc()
		return sharing.ErrInvalidLocation
	}
	if !m.allow(c, "room", models.CmdRoomLocationUpdate) {
		return nil
	}

	m.Rooms.UpdateLocation(roomID, p.ID, *loc)
	ev := models.NewEvent(models.EvLocationUpdate, models.PeerLocation{RoomID: roomID, UserID: p.ID, Location: *loc})
	for _, o := range m.Rooms.Participants(roomID, p.ID) {
		m.deliver(o.Client, ev)
	}
	metrics.LocationUpdates.WithLabelValues("room", "accepted").Inc()
	return nil
}

// SubmitSessionLocation relays c's position to the other participant of a
// live session. It is never echoed back to the sender.
func (m *ManagerService) SubmitSessionLocation(ctx context.Context, c Client, sessionID string, loc *models.Location) error {
	who, err := requireIdentity(c)
	if err != nil {
		return err
	}
	sess, err := m.Sessions.Authorize(ctx, sessionID, who.ID)
	if err != nil {
		return err
	}
	if loc == nil || !loc.Valid() {
		metrics.LocationUpdates.WithLabelValues("session", "rejected").Inc()
		return sharing.ErrInvalidLocation
	}
	if !m.allow(c, "session", models.CmdLocationUpdate) {
		return nil
	}

	m.Sessions.RememberLocation(ctx, sess, who.ID, *loc)
	m.NotifyUser(sess.Peer(who.ID), models.NewEvent(models.EvLocationPeer, models.PeerLocation{
		SessionID: sess.ID,
		UserID:    who.ID,
		Location:  *loc,
	}))
	metrics.LocationUpdates.WithLabelValues("session", "accepted").Inc()
	return nil
}

// SubmitChat posts a message to a room c is in, or else to a session.
// Every member receives chat.newMessage, the sender included.
func (m *ManagerService) SubmitChat(ctx context.Context, c Client, channelID, body string, loc *models.Location) error {
	if channelID == "" {
		return fmt.Errorf("%w: sessionOrRoomId is required", sharing.ErrInvalidRequest)
	}
	if p, ok := m.Rooms.MemberOf(channelID, c); ok {
		msg, err := m.Chat.Record(ctx, channelID, models.Identity{ID: p.ID, DisplayName: p.DisplayName}, body, loc)
		if err != nil {
			return err
		}
		metrics.ChatMessages.WithLabelValues("room").Inc()
		m.NotifyRoom(channelID, models.NewEvent(models.EvChatNewMessage, msg))
		return nil
	}

	who, err := requireIdentity(c)
	if err != nil {
		return err
	}
	_, err = m.Chat.Send(ctx, channelID, who, body, loc)
	return err
}

// MarkRead records read receipts for c in a room or session and
// broadcasts chat.read when anything was newly read.
func (m *ManagerService) MarkRead(ctx context.Context, c Client, channelID string) error {
	if channelID == "" {
		return fmt.Errorf("%w: sessionOrRoomId is required", sharing.ErrInvalidRequest)
	}
	if p, ok := m.Rooms.MemberOf(channelID, c); ok {
		ev, err := m.Chat.MarkChannelRead(ctx, channelID, p.ID)
		if err != nil {
			return err
		}
		if ev.Count > 0 {
			m.NotifyRoom(channelID, models.NewEvent(models.EvChatRead, ev))
		}
		return nil
	}

	who, err := requireIdentity(c)
	if err != nil {
		return err
	}
	_, err = m.Chat.MarkRead(ctx, channelID, who.ID)
	return err
}
