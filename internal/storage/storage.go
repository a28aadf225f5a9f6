// Package storage persists share requests, shared sessions and chat
// messages, and caches last known session locations.
package storage

import (
	"context"
	"errors"
	"time"

	"sharetrack/backend/internal/models"
)

var (
	// ErrNotFound is returned when a record does not exist.
	ErrNotFound = errors.New("record not found")
	// ErrConflict is returned when a conditional update lost its race:
	// the row was no longer in the expected state.
	ErrConflict = errors.New("record state changed")
	// ErrDuplicate is returned when a uniqueness constraint rejected a write.
	ErrDuplicate = errors.New("duplicate record")
)

// Request list directions.
const (
	DirectionIncoming = "incoming"
	DirectionOutgoing = "outgoing"
)

// RequestFilter narrows ListShareRequests. Zero values match everything.
type RequestFilter struct {
	Direction string
	Status    models.RequestStatus
}

// Storage is everything the sharing services need from persistence.
type Storage interface {
	CreateShareRequest(ctx context.Context, req *models.ShareRequest) error
	GetShareRequest(ctx context.Context, id string) (*models.ShareRequest, error)
	// FindPendingRequest returns nil, nil when the pair has no pending request.
	FindPendingRequest(ctx context.Context, pairKey string) (*models.ShareRequest, error)
	ListShareRequests(ctx context.Context, userID string, f RequestFilter) ([]models.ShareRequest, error)
	// ResolveShareRequest moves a pending request to next. It returns
	// ErrConflict if the request is no longer pending.
	ResolveShareRequest(ctx context.Context, id string, next models.RequestStatus, actorID string, at time.Time) error
	// ApproveShareRequest marks a pending request approved and inserts the
	// session atomically.
	ApproveShareRequest(ctx context.Context, id string, session *models.SharedSession, at time.Time) error

	CreateSession(ctx context.Context, s *models.SharedSession) error
	GetSession(ctx context.Context, id string) (*models.SharedSession, error)
	// FindActiveSession returns nil, nil when the pair has no active session.
	FindActiveSession(ctx context.Context, pairKey string) (*models.SharedSession, error)
	ListActiveSessions(ctx context.Context, userID string, now time.Time) ([]models.SharedSession, error)
	ListExpiredSessions(ctx context.Context, now time.Time, limit int) ([]models.SharedSession, error)
	// EndSession flips an active session to inactive. It reports false if the
	// session was already inactive, so exactly one caller wins.
	EndSession(ctx context.Context, id string, reason models.SessionEndReason, actorID string, at time.Time) (bool, error)
	// PurgeEnded deletes resolved requests and ended sessions older than cutoff.
	PurgeEnded(ctx context.Context, cutoff time.Time) (int64, error)

	SaveMessage(ctx context.Context, msg *models.ChatMessage) error
	GetMessage(ctx context.Context, id string) (*models.ChatMessage, error)
	// ListMessages returns the newest limit messages of a channel, oldest first.
	ListMessages(ctx context.Context, channelID string, limit int) ([]models.ChatMessage, error)
	MarkMessageDeleted(ctx context.Context, id string) error
	// MarkChannelRead records receipts for every message in the channel not
	// sent by readerID and returns how many were new.
	MarkChannelRead(ctx context.Context, channelID, readerID string, at time.Time) (int64, error)

	SaveLastLocation(ctx context.Context, sessionID, userID string, loc models.Location, ttl time.Duration) error
	// LastLocation returns nil, nil when nothing is cached.
	LastLocation(ctx context.Context, sessionID, userID string) (*models.Location, error)

	Ping(ctx context.Context) error
}
