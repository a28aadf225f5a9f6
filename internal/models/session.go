package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"gorm.io/gorm"
)

// SessionEndReason records which writer turned a session inactive.
type SessionEndReason string

const (
	EndNone    SessionEndReason = ""
	EndRevoked SessionEndReason = "revoked"
	EndExpired SessionEndReason = "expired"
)

// SharedSession is a time-bounded pairing between exactly two identities.
type SharedSession struct {
	// ID is the session identifier (UUID).
	ID string `gorm:"primaryKey" json:"id"`
	// Participants always holds exactly two identity ids.
	Participants pq.StringArray `gorm:"type:text[];not null" json:"participants"`
	// ParticipantNames mirrors Participants with display names at creation time.
	ParticipantNames pq.StringArray `gorm:"type:text[]" json:"participantNames"`
	// PairKey carries a partial unique index: one active session per pair.
	PairKey string `gorm:"not null;index:idx_shared_sessions_active_pair,unique,where:is_active" json:"-"`
	// RequestID is empty for direct (no-approval) shares.
	RequestID *string `gorm:"index" json:"requestId,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
	ExpiresAt time.Time `gorm:"not null;index" json:"expiresAt"`
	IsActive  bool      `gorm:"not null;index" json:"isActive"`

	EndReason SessionEndReason `gorm:"type:text" json:"endReason,omitempty"`
	RevokedBy *string          `json:"revokedBy,omitempty"`
	RevokedAt *time.Time       `json:"revokedAt,omitempty"`
	EndedAt   *time.Time       `json:"endedAt,omitempty"`
}

// NewSharedSession builds an active session for a and b lasting ttl from now.
func NewSharedSession(a, b Identity, requestID *string, now time.Time, ttl time.Duration) *SharedSession {
	return &SharedSession{
		ID:               uuid.New().String(),
		Participants:     pq.StringArray{a.ID, b.ID},
		ParticipantNames: pq.StringArray{a.DisplayName, b.DisplayName},
		PairKey:          PairKey(a.ID, b.ID),
		RequestID:        requestID,
		CreatedAt:        now,
		ExpiresAt:        now.Add(ttl),
		IsActive:         true,
	}
}

// BeforeCreate fills the id and pair key if the caller did not.
func (s *SharedSession) BeforeCreate(tx *gorm.DB) (err error) {
	if s.ID == "" {
		s.ID = uuid.New().String()
	}
	if s.PairKey == "" && len(s.Participants) == 2 {
		s.PairKey = PairKey(s.Participants[0], s.Participants[1])
	}
	return
}

// HasParticipant reports whether userID belongs to the session.
func (s *SharedSession) HasParticipant(userID string) bool {
	for _, p := range s.Participants {
		if p == userID {
			return true
		}
	}
	return false
}

// Peer returns the other participant's id, or "" if userID is not a participant.
func (s *SharedSession) Peer(userID string) string {
	if len(s.Participants) != 2 {
		return ""
	}
	switch userID {
	case s.Participants[0]:
		return s.Participants[1]
	case s.Participants[1]:
		return s.Participants[0]
	}
	return ""
}

// DisplayName returns the recorded display name of participant userID.
func (s *SharedSession) DisplayName(userID string) string {
	for i, p := range s.Participants {
		if p == userID && i < len(s.ParticipantNames) {
			return s.ParticipantNames[i]
		}
	}
	return ""
}

// Expired reports whether the deadline has passed at now.
func (s *SharedSession) Expired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}

// Live reports whether the session is active and inside its window.
func (s *SharedSession) Live(now time.Time) bool {
	return s.IsActive && !s.Expired(now)
}
