package sharing

import (
	"context"
	"errors"
	"fmt"
	"log"

	"sharetrack/backend/internal/metrics"
	"sharetrack/backend/internal/models"
	"sharetrack/backend/internal/storage"
)

// RequestService drives ShareRequest through its state machine. Every
// status change is checked against models.RequestStatus.CanTransitionTo
// and applied with a conditional update, so a request resolves once.
type RequestService struct {
	Storage  storage.Storage
	Sessions *SessionManager
	Notifier Notifier
}

// NewRequestService creates a RequestService sharing the session
// manager's pair locks and clock.
func NewRequestService(s storage.Storage, sessions *SessionManager, n Notifier) *RequestService {
	if n == nil {
		n = NopNotifier{}
	}
	return &RequestService{Storage: s, Sessions: sessions, Notifier: n}
}

func (r *RequestService) load(ctx context.Context, id string) (*models.ShareRequest, error) {
	req, err := r.Storage.GetShareRequest(ctx, id)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get share request: %w", err)
	}
	return req, nil
}

// guard checks the transition table for req -> next.
func guard(req *models.ShareRequest, next models.RequestStatus) error {
	if !req.Status.CanTransitionTo(next) {
		return ErrAlreadyResolved
	}
	return nil
}

// Create records a pending request from -> to and pushes it to the
// recipient's personal channel.
func (r *RequestService) Create(ctx context.Context, from, to models.Identity) (*models.ShareRequest, error) {
	if to.ID == "" {
		return nil, fmt.Errorf("%w: recipient is required", ErrInvalidRequest)
	}
	if from.ID == to.ID {
		return nil, ErrSelfRequest
	}

	unlock := r.Sessions.lockPair(from.ID, to.ID)
	defer unlock()

	existing, err := r.Storage.FindPendingRequest(ctx, models.PairKey(from.ID, to.ID))
	if err != nil {
		return nil, fmt.Errorf("find pending request: %w", err)
	}
	if existing != nil {
		return nil, ErrAlreadyPending
	}
	if err := r.Sessions.ensureNoActive(ctx, from.ID, to.ID); err != nil {
		return nil, err
	}

	req := &models.ShareRequest{
		FromID:      from.ID,
		FromName:    from.DisplayName,
		ToID:        to.ID,
		ToName:      to.DisplayName,
		Status:      models.RequestPending,
		RequestedAt: r.Sessions.now(),
	}
	if err := r.Storage.CreateShareRequest(ctx, req); err != nil {
		if errors.Is(err, storage.ErrDuplicate) {
			return nil, ErrAlreadyPending
		}
		return nil, fmt.Errorf("create share request: %w", err)
	}

	metrics.RequestTransitions.WithLabelValues(string(models.RequestPending)).Inc()
	r.Notifier.NotifyUser(to.ID, models.NewEvent(models.EvShareRequest, req))
	return req, nil
}

// Respond lets the recipient approve or reject a pending request. On
// approval the session is returned as well.
func (r *RequestService) Respond(ctx context.Context, id string, responder models.Identity, approve bool) (*models.ShareRequest, *models.SharedSession, error) {
	req, err := r.load(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	if req.ToID != responder.ID {
		return nil, nil, ErrForbidden
	}
	if !approve {
		return r.reject(ctx, req)
	}
	if err := guard(req, models.RequestApproved); err != nil {
		return nil, nil, err
	}

	unlock := r.Sessions.lockPair(req.FromID, req.ToID)
	defer unlock()

	if err := r.Sessions.ensureNoActive(ctx, req.FromID, req.ToID); err != nil {
		return nil, nil, err
	}

	to := req.To()
	if responder.DisplayName != "" {
		to.DisplayName = responder.DisplayName
	}
	now := r.Sessions.now()
	sess := models.NewSharedSession(req.From(), to, &req.ID, now, r.Sessions.TTL)
	switch err := r.Storage.ApproveShareRequest(ctx, req.ID, sess, now); {
	case errors.Is(err, storage.ErrConflict):
		return nil, nil, ErrAlreadyResolved
	case errors.Is(err, storage.ErrDuplicate):
		return nil, nil, ErrAlreadyActive
	case err != nil:
		return nil, nil, fmt.Errorf("approve share request: %w", err)
	}

	req.Status = models.RequestApproved
	req.RespondedAt = &now
	req.SessionID = &sess.ID

	metrics.RequestTransitions.WithLabelValues(string(models.RequestApproved)).Inc()
	metrics.SessionTransitions.WithLabelValues("created").Inc()
	log.Printf("INFO: Request %s approved, session %s created", req.ID, sess.ID)

	ev := models.NewEvent(models.EvShareApproved, models.SessionEvent{SessionID: sess.ID, Session: sess, Request: req})
	r.Notifier.NotifyUser(req.FromID, ev)
	r.Notifier.NotifyUser(req.ToID, ev)
	return req, sess, nil
}

func (r *RequestService) reject(ctx context.Context, req *models.ShareRequest) (*models.ShareRequest, *models.SharedSession, error) {
	if err := r.transition(ctx, req, models.RequestRejected, req.ToID); err != nil {
		return nil, nil, err
	}
	r.Notifier.NotifyUser(req.FromID, models.NewEvent(models.EvShareRejected, req))
	return req, nil, nil
}

// Revoke lets the requester withdraw a request that is still pending.
func (r *RequestService) Revoke(ctx context.Context, id string, requester models.Identity) (*models.ShareRequest, error) {
	req, err := r.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if req.FromID != requester.ID {
		return nil, ErrForbidden
	}
	if err := r.transition(ctx, req, models.RequestRevoked, requester.ID); err != nil {
		return nil, err
	}
	r.Notifier.NotifyUser(req.ToID, models.NewEvent(models.EvShareReqRevoked, req))
	return req, nil
}

// transition applies a pending -> next move that creates no session.
func (r *RequestService) transition(ctx context.Context, req *models.ShareRequest, next models.RequestStatus, actorID string) error {
	if err := guard(req, next); err != nil {
		return err
	}
	now := r.Sessions.now()
	if err := r.Storage.ResolveShareRequest(ctx, req.ID, next, actorID, now); err != nil {
		if errors.Is(err, storage.ErrConflict) {
			return ErrAlreadyResolved
		}
		return fmt.Errorf("resolve share request: %w", err)
	}

	req.Status = next
	if next == models.RequestRevoked {
		actor := actorID
		req.RevokedBy = &actor
		req.RevokedAt = &now
	} else {
		req.RespondedAt = &now
	}
	metrics.RequestTransitions.WithLabelValues(string(next)).Inc()
	return nil
}

// List returns requests involving userID.
func (r *RequestService) List(ctx context.Context, userID string, f storage.RequestFilter) ([]models.ShareRequest, error) {
	if f.Status != "" && !f.Status.Valid() {
		return nil, fmt.Errorf("%w: unknown status %q", ErrInvalidRequest, f.Status)
	}
	switch f.Direction {
	case "", storage.DirectionIncoming, storage.DirectionOutgoing:
	default:
		return nil, fmt.Errorf("%w: unknown direction %q", ErrInvalidRequest, f.Direction)
	}
	return r.Storage.ListShareRequests(ctx, userID, f)
}

// PendingFor returns the requests waiting on userID's answer.
func (r *RequestService) PendingFor(ctx context.Context, userID string) ([]models.ShareRequest, error) {
	return r.Storage.ListShareRequests(ctx, userID, storage.RequestFilter{
		Direction: storage.DirectionIncoming,
		Status:    models.RequestPending,
	})
}
