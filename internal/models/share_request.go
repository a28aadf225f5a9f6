package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// RequestStatus is the state of a ShareRequest.
type RequestStatus string

const (
	RequestPending  RequestStatus = "pending"
	RequestApproved RequestStatus = "approved"
	RequestRejected RequestStatus = "rejected"
	RequestRevoked  RequestStatus = "revoked"
)

// requestTransitions lists every legal status change. Anything not listed
// here, including any move out of a terminal status, is rejected.
var requestTransitions = map[RequestStatus][]RequestStatus{
	RequestPending: {RequestApproved, RequestRejected, RequestRevoked},
}

// Valid reports whether s is one of the known statuses.
func (s RequestStatus) Valid() bool {
	switch s {
	case RequestPending, RequestApproved, RequestRejected, RequestRevoked:
		return true
	}
	return false
}

// Terminal reports whether no further transition is possible from s.
func (s RequestStatus) Terminal() bool {
	return s.Valid() && len(requestTransitions[s]) == 0
}

// CanTransitionTo reports whether the transition table allows s -> next.
func (s RequestStatus) CanTransitionTo(next RequestStatus) bool {
	for _, allowed := range requestTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// ShareRequest is an invitation from one identity to another to share
// live location. Rows are kept after resolution as an audit trail.
type ShareRequest struct {
	ID       string `gorm:"primaryKey" json:"id"`
	FromID   string `gorm:"not null;index" json:"fromId"`
	FromName string `json:"fromName"`
	ToID     string `gorm:"not null;index" json:"toId"`
	ToName   string `json:"toName"`
	// PairKey is PairKey(FromID, ToID); a partial unique index keeps one
	// pending request per pair.
	PairKey string        `gorm:"not null;index:idx_share_requests_pending_pair,unique,where:status = 'pending'" json:"-"`
	Status  RequestStatus `gorm:"type:text;not null;index" json:"status"`

	RequestedAt time.Time  `gorm:"not null" json:"requestedAt"`
	RespondedAt *time.Time `json:"respondedAt,omitempty"`
	RevokedBy   *string    `json:"revokedBy,omitempty"`
	RevokedAt   *time.Time `json:"revokedAt,omitempty"`
	// SessionID is set when the request was approved.
	SessionID *string `json:"sessionId,omitempty"`
}

// BeforeCreate fills the id and pair key if the caller did not.
func (r *ShareRequest) BeforeCreate(tx *gorm.DB) (err error) {
	if r.ID == "" {
		r.ID = uuid.New().String()
	}
	if r.PairKey == "" {
		r.PairKey = PairKey(r.FromID, r.ToID)
	}
	return
}

// From returns the requester identity.
func (r *ShareRequest) From() Identity { return Identity{ID: r.FromID, DisplayName: r.FromName} }

// To returns the recipient identity.
func (r *ShareRequest) To() Identity { return Identity{ID: r.ToID, DisplayName: r.ToName} }

// Involves reports whether userID is either party of the request.
func (r *ShareRequest) Involves(userID string) bool {
	return r.FromID == userID || r.ToID == userID
}
