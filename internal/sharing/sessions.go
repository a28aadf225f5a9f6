package sharing

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"sharetrack/backend/internal/config"
	"sharetrack/backend/internal/metrics"
	"sharetrack/backend/internal/models"
	"sharetrack/backend/internal/storage"
)

// SessionManager creates, authorizes and ends shared sessions.
//
// Ending a session, by revoke or by expiry, goes through a single
// conditional update in storage; only the caller that flips isActive
// broadcasts the termination event.
type SessionManager struct {
	Storage  storage.Storage
	Notifier Notifier
	// TTL is the default session lifetime.
	TTL time.Duration

	locks *pairLocks
	now   func() time.Time
}

// NewSessionManager creates a SessionManager.
func NewSessionManager(s storage.Storage, n Notifier, ttl time.Duration) *SessionManager {
	if n == nil {
		n = NopNotifier{}
	}
	return &SessionManager{
		Storage:  s,
		Notifier: n,
		TTL:      ttl,
		locks:    newPairLocks(),
		now:      time.Now,
	}
}

// Now returns the manager's clock reading.
func (m *SessionManager) Now() time.Time { return m.now() }

// SetClock replaces the time source. It is meant for tests and tooling.
func (m *SessionManager) SetClock(now func() time.Time) { m.now = now }

// lockPair serialises session and request creation for one pair.
func (m *SessionManager) lockPair(a, b string) func() {
	return m.locks.lock(models.PairKey(a, b))
}

// ensureNoActive fails with ErrAlreadyActive if the pair has a live
// session. A session still flagged active but past its deadline is expired
// on the spot so it does not block the pair. Caller holds the pair lock.
func (m *SessionManager) ensureNoActive(ctx context.Context, a, b string) error {
	active, err := m.Storage.FindActiveSession(ctx, models.PairKey(a, b))
	if err != nil {
		return fmt.Errorf("find active session: %w", err)
	}
	if active == nil {
		return nil
	}
	if active.Expired(m.now()) {
		if _, err := m.Expire(ctx, active); err != nil {
			return err
		}
		return nil
	}
	return ErrAlreadyActive
}

// Create starts a session between a and b lasting ttl (the default TTL if
// zero). requestID is nil for direct shares. It fails with
// ErrAlreadyActive if the pair already has a live session.
func (m *SessionManager) Create(ctx context.Context, a, b models.Identity, requestID *string, ttl time.Duration) (*models.SharedSession, error) {
	if a.ID == "" || b.ID == "" {
		return nil, fmt.Errorf("%w: both participants are required", ErrInvalidRequest)
	}
	if a.ID == b.ID {
		return nil, ErrSelfRequest
	}
	if ttl <= 0 {
		ttl = m.TTL
	}

	unlock := m.lockPair(a.ID, b.ID)
	defer unlock()

	if err := m.ensureNoActive(ctx, a.ID, b.ID); err != nil {
		return nil, err
	}
	sess := models.NewSharedSession(a, b, requestID, m.now(), ttl)
	if err := m.Storage.CreateSession(ctx, sess); err != nil {
		if errors.Is(err, storage.ErrDuplicate) {
			return nil, ErrAlreadyActive
		}
		return nil, fmt.Errorf("create session: %w", err)
	}
	metrics.SessionTransitions.WithLabelValues("created").Inc()
	log.Printf("INFO: Session %s created for %s and %s until %s", sess.ID, a.ID, b.ID, sess.ExpiresAt.Format(time.RFC3339))
	return sess, nil
}

// StartDirect creates a session without an approval step and tells both
// parties. The one-active-session-per-pair rule still applies.
func (m *SessionManager) StartDirect(ctx context.Context, from, to models.Identity, ttl time.Duration) (*models.SharedSession, error) {
	if ttl != 0 && (ttl < config.MinDirectTTL || ttl > config.MaxDirectTTL) {
		return nil, fmt.Errorf("%w: duration must be between %s and %s", ErrInvalidRequest, config.MinDirectTTL, config.MaxDirectTTL)
	}
	sess, err := m.Create(ctx, from, to, nil, ttl)
	if err != nil {
		return nil, err
	}
	ev := models.NewEvent(models.EvShareDirect, models.SessionEvent{SessionID: sess.ID, Session: sess, UserID: from.ID})
	m.Notifier.NotifyUser(from.ID, ev)
	m.Notifier.NotifyUser(to.ID, ev)
	return sess, nil
}

// Get loads a session.
func (m *SessionManager) Get(ctx context.Context, id string) (*models.SharedSession, error) {
	sess, err := m.Storage.GetSession(ctx, id)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}
	return sess, nil
}

// Member loads a session and checks that userID is a participant,
// regardless of whether the session is still active.
func (m *SessionManager) Member(ctx context.Context, sessionID, userID string) (*models.SharedSession, error) {
	sess, err := m.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if !sess.HasParticipant(userID) {
		return nil, ErrForbidden
	}
	return sess, nil
}

// Authorize checks that userID may relay into the session right now.
// A session found past its deadline is expired as a side effect.
func (m *SessionManager) Authorize(ctx context.Context, sessionID, userID string) (*models.SharedSession, error) {
	sess, err := m.Member(ctx, sessionID, userID)
	if err != nil {
		return nil, err
	}
	if !sess.IsActive {
		return nil, ErrNotActive
	}
	if sess.Expired(m.now()) {
		if _, err := m.Expire(ctx, sess); err != nil {
			return nil, err
		}
		return nil, ErrExpired
	}
	return sess, nil
}

// Join authorizes who for the session, calls attach (which subscribes the
// connection to the session room) and tells the other participant.
func (m *SessionManager) Join(ctx context.Context, sessionID string, who models.Identity, attach func(*models.SharedSession)) (*models.SharedSession, error) {
	sess, err := m.Authorize(ctx, sessionID, who.ID)
	if err != nil {
		return nil, err
	}
	if attach != nil {
		attach(sess)
	}
	m.Notifier.NotifyUser(sess.Peer(who.ID), models.NewEvent(models.EvSharePeerJoined, models.SessionEvent{
		SessionID: sess.ID,
		UserID:    who.ID,
	}))
	return sess, nil
}

// Revoke ends the session on behalf of requester. Revoking a session that
// already ended is a no-op.
func (m *SessionManager) Revoke(ctx context.Context, sessionID string, requester models.Identity) (*models.SharedSession, error) {
	sess, err := m.Member(ctx, sessionID, requester.ID)
	if err != nil {
		return nil, err
	}
	if !sess.IsActive {
		return sess, nil
	}
	if _, err := m.end(ctx, sess, models.EndRevoked, requester.ID); err != nil {
		return nil, err
	}
	return sess, nil
}

// Expire ends sess because its deadline passed. It reports whether this
// call performed the transition.
func (m *SessionManager) Expire(ctx context.Context, sess *models.SharedSession) (bool, error) {
	return m.end(ctx, sess, models.EndExpired, "")
}

// end is the single "transition to inactive" chokepoint.
func (m *SessionManager) end(ctx context.Context, sess *models.SharedSession, reason models.SessionEndReason, actorID string) (bool, error) {
	at := m.now()
	won, err := m.Storage.EndSession(ctx, sess.ID, reason, actorID, at)
	if err != nil {
		return false, fmt.Errorf("end session %s: %w", sess.ID, err)
	}
	if !won {
		return false, nil
	}

	sess.IsActive = false
	sess.EndReason = reason
	sess.EndedAt = &at
	evType := models.EvShareExpired
	if reason == models.EndRevoked {
		actor := actorID
		sess.RevokedBy = &actor
		sess.RevokedAt = &at
		evType = models.EvShareEnd
	}

	m.Notifier.NotifySession(sess, models.NewEvent(evType, models.SessionEvent{
		SessionID: sess.ID,
		UserID:    actorID,
		Reason:    string(reason),
	}))
	m.Notifier.CloseSession(sess.ID)

	metrics.SessionTransitions.WithLabelValues(string(reason)).Inc()
	log.Printf("INFO: Session %s ended (%s)", sess.ID, reason)
	return true, nil
}

// ListActive returns userID's live sessions.
func (m *SessionManager) ListActive(ctx context.Context, userID string) ([]models.SharedSession, error) {
	return m.Storage.ListActiveSessions(ctx, userID, m.now())
}

// RememberLocation caches loc as userID's last known position for the
// rest of the session's lifetime.
func (m *SessionManager) RememberLocation(ctx context.Context, sess *models.SharedSession, userID string, loc models.Location) {
	ttl := sess.ExpiresAt.Sub(m.now())
	if err := m.Storage.SaveLastLocation(ctx, sess.ID, userID, loc, ttl); err != nil {
		log.Printf("WARNING: Failed to cache location for session %s: %v", sess.ID, err)
	}
}

// PeerLocation returns the cached last location of userID's peer, if any.
func (m *SessionManager) PeerLocation(ctx context.Context, sess *models.SharedSession, userID string) *models.Location {
	peer := sess.Peer(userID)
	if peer == "" {
		return nil
	}
	loc, err := m.Storage.LastLocation(ctx, sess.ID, peer)
	if err != nil {
		log.Printf("WARNING: Failed to read cached location for session %s: %v", sess.ID, err)
		return nil
	}
	return loc
}
