package sharing

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"
	"unicode/utf8"

	"sharetrack/backend/internal/config"
	"sharetrack/backend/internal/metrics"
	"sharetrack/backend/internal/models"
	"sharetrack/backend/internal/storage"
)

// ChatService stores chat messages and read receipts for sessions and
// rooms. Session membership is checked here; room membership is checked
// by the hub, which owns the room registry.
type ChatService struct {
	Storage  storage.Storage
	Sessions *SessionManager
	Notifier Notifier
}

// NewChatService creates a ChatService.
func NewChatService(s storage.Storage, sessions *SessionManager, n Notifier) *ChatService {
	if n == nil {
		n = NopNotifier{}
	}
	return &ChatService{Storage: s, Sessions: sessions, Notifier: n}
}

// NewMessage validates a chat payload and builds the message to store.
func NewMessage(channelID string, sender models.Identity, body string, loc *models.Location, now time.Time) (*models.ChatMessage, error) {
	body = strings.TrimSpace(body)
	if body == "" && loc == nil {
		return nil, ErrEmptyMessage
	}
	if utf8.RuneCountInString(body) > config.MaxChatBodyLength {
		return nil, fmt.Errorf("%w: message longer than %d characters", ErrInvalidRequest, config.MaxChatBodyLength)
	}
	msg := &models.ChatMessage{
		ChannelID:  channelID,
		SenderID:   sender.ID,
		SenderName: sender.DisplayName,
		Body:       body,
		Kind:       models.KindText,
		CreatedAt:  now,
	}
	if loc != nil {
		if !loc.Valid() {
			return nil, ErrInvalidLocation
		}
		lat, lng := loc.Lat, loc.Lng
		msg.Latitude, msg.Longitude = &lat, &lng
		msg.Kind = models.KindLocation
	}
	return msg, nil
}

// Record validates and stores a message without any membership check.
// The hub uses it for room chat after checking the registry.
func (c *ChatService) Record(ctx context.Context, channelID string, sender models.Identity, body string, loc *models.Location) (*models.ChatMessage, error) {
	msg, err := NewMessage(channelID, sender, body, loc, c.Sessions.now())
	if err != nil {
		return nil, err
	}
	if err := c.Storage.SaveMessage(ctx, msg); err != nil {
		return nil, fmt.Errorf("save message: %w", err)
	}
	return msg, nil
}

// Send posts a message to a live session and broadcasts it to both
// participants, the sender included.
func (c *ChatService) Send(ctx context.Context, sessionID string, sender models.Identity, body string, loc *models.Location) (*models.ChatMessage, error) {
	sess, err := c.Sessions.Authorize(ctx, sessionID, sender.ID)
	if err != nil {
		return nil, err
	}
	msg, err := c.Record(ctx, sess.ID, sender, body, loc)
	if err != nil {
		return nil, err
	}
	metrics.ChatMessages.WithLabelValues("session").Inc()
	c.Notifier.NotifySession(sess, models.NewEvent(models.EvChatNewMessage, msg))
	return msg, nil
}

// History returns the latest messages of a session to one of its
// participants. Deleted messages come back without content.
func (c *ChatService) History(ctx context.Context, sessionID, readerID string, limit int) ([]models.ChatMessage, error) {
	if _, err := c.Sessions.Member(ctx, sessionID, readerID); err != nil {
		return nil, err
	}
	return c.Messages(ctx, sessionID, limit)
}

// Messages lists a channel's latest messages, redacted.
func (c *ChatService) Messages(ctx context.Context, channelID string, limit int) ([]models.ChatMessage, error) {
	if limit <= 0 {
		limit = config.DefaultHistoryLimit
	}
	if limit > config.MaxHistoryLimit {
		limit = config.MaxHistoryLimit
	}
	msgs, err := c.Storage.ListMessages(ctx, channelID, limit)
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	for i := range msgs {
		msgs[i] = msgs[i].Redacted()
	}
	return msgs, nil
}

// MarkRead records that readerID has seen the session's messages and
// broadcasts chat.read when anything changed.
func (c *ChatService) MarkRead(ctx context.Context, sessionID, readerID string) (*models.ReadEvent, error) {
	sess, err := c.Sessions.Member(ctx, sessionID, readerID)
	if err != nil {
		return nil, err
	}
	ev, err := c.MarkChannelRead(ctx, sess.ID, readerID)
	if err != nil {
		return nil, err
	}
	if ev.Count > 0 {
		c.Notifier.NotifySession(sess, models.NewEvent(models.EvChatRead, ev))
	}
	return ev, nil
}

// MarkChannelRead stores receipts without a membership check.
func (c *ChatService) MarkChannelRead(ctx context.Context, channelID, readerID string) (*models.ReadEvent, error) {
	now := c.Sessions.now()
	n, err := c.Storage.MarkChannelRead(ctx, channelID, readerID, now)
	if err != nil {
		return nil, fmt.Errorf("mark read: %w", err)
	}
	return &models.ReadEvent{SessionOrRoomID: channelID, ReaderID: readerID, ReadAt: now, Count: n}, nil
}

// Delete hides a message's content. Only its sender may delete it; the
// row itself is kept.
func (c *ChatService) Delete(ctx context.Context, messageID string, requester models.Identity) (*models.ChatMessage, error) {
	msg, err := c.Storage.GetMessage(ctx, messageID)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get message: %w", err)
	}
	if msg.SenderID != requester.ID {
		return nil, ErrForbidden
	}
	if msg.Deleted {
		red := msg.Redacted()
		return &red, nil
	}
	if err := c.Storage.MarkMessageDeleted(ctx, msg.ID); err != nil {
		return nil, fmt.Errorf("delete message: %w", err)
	}
	msg.Deleted = true
	red := msg.Redacted()

	ev := models.NewEvent(models.EvChatDeleted, red)
	if sess, err := c.Storage.GetSession(ctx, msg.ChannelID); err == nil {
		c.Notifier.NotifySession(sess, ev)
	} else if !c.Notifier.NotifyRoom(msg.ChannelID, ev) {
		log.Printf("INFO: Deleted message %s belongs to no live channel", msg.ID)
	}
	return &red, nil
}
