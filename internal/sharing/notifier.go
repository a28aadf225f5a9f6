// Package sharing implements the share request state machine, the shared
// session lifecycle, session chat and the expiry sweeper.
package sharing

import "sharetrack/backend/internal/models"

// Notifier pushes events to connected clients. The websocket hub
// implements it; delivery is best effort and never blocks.
type Notifier interface {
	// NotifyUser sends ev to every connection authenticated as userID.
	NotifyUser(userID string, ev models.Event)
	// NotifySession sends ev once to every connection that joined the
	// session room or belongs to one of its participants.
	NotifySession(sess *models.SharedSession, ev models.Event)
	// NotifyRoom sends ev to every participant of an ad-hoc room and
	// reports whether the room exists.
	NotifyRoom(roomID string, ev models.Event) bool
	// CloseSession removes every connection from the session room.
	CloseSession(sessionID string)
}

// NopNotifier drops every event. Services built with a nil Notifier use it.
type NopNotifier struct{}

func (NopNotifier) NotifyUser(string, models.Event)                   {}
func (NopNotifier) NotifySession(*models.SharedSession, models.Event) {}
func (NopNotifier) NotifyRoom(string, models.Event) bool              { return false }
func (NopNotifier) CloseSession(string)                               {}
