package sharing_test

import (
	"context"
	"sharetrack/backend/internal/models"
	"sharetrack/backend/internal/storage"
	"time"

	"github.com/stretchr/testify/mock"
)

type MockStorage struct {
	mock.Mock
}

func (m *MockStorage) CreateShareRequest(ctx context.Context, req *models.ShareRequest) error {
	args := m.Called(req)
	return args.Error(0)
}

func (m *MockStorage) GetShareRequest(ctx context.Context, id string) (*models.ShareRequest, error) {
	args := m.Called(id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.ShareRequest), args.Error(1)
}

func (m *MockStorage) FindPendingRequest(ctx context.Context, pairKey string) (*models.ShareRequest, error) {
	args := m.Called(pairKey)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.ShareRequest), args.Error(1)
}

func (m *MockStorage) ListShareRequests(ctx context.Context, userID string, f storage.RequestFilter) ([]models.ShareRequest, error) {
	args := m.Called(userID, f)
	return args.Get(0).([]models.ShareRequest), args.Error(1)
}

func (m *MockStorage) ResolveShareRequest(ctx context.Context, id string, next models.RequestStatus, actorID string, at time.Time) error {
	args := m.Called(id, next, actorID)
	return args.Error(0)
}

func (m *MockStorage) ApproveShareRequest(ctx context.Context, id string, session *models.SharedSession, at time.Time) error {
	args := m.Called(id, session)
	return args.Error(0)
}

func (m *MockStorage) CreateSession(ctx context.Context, s *models.SharedSession) error {
	args := m.Called(s)
	return args.Error(0)
}

func (m *MockStorage) GetSession(ctx context.Context, id string) (*models.SharedSession, error) {
	args := m.Called(id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.SharedSession), args.Error(1)
}

func (m *MockStorage) FindActiveSession(ctx context.Context, pairKey string) (*models.SharedSession, error) {
	args := m.Called(pairKey)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.SharedSession), args.Error(1)
}

func (m *MockStorage) ListActiveSessions(ctx context.Context, userID string, now time.Time) ([]models.SharedSession, error) {
	args := m.Called(userID)
	return args.Get(0).([]models.SharedSession), args.Error(1)
}

func (m *MockStorage) ListExpiredSessions(ctx context.Context, now time.Time, limit int) ([]models.SharedSession, error) {
	args := m.Called(limit)
	return args.Get(0).([]models.SharedSession), args.Error(1)
}

func (m *MockStorage) EndSession(ctx context.Context, id string, reason models.SessionEndReason, actorID string, at time.Time) (bool, error) {
	args := m.Called(id, reason, actorID)
	return args.Bool(0), args.Error(1)
}

func (m *MockStorage) PurgeEnded(ctx context.Context, cutoff time.Time) (int64, error) {
	args := m.Called(cutoff)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockStorage) SaveMessage(ctx context.Context, msg *models.ChatMessage) error {
	args := m.Called(msg)
	return args.Error(0)
}

func (m *MockStorage) GetMessage(ctx context.Context, id string) (*models.ChatMessage, error) {
	args := m.Called(id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.ChatMessage), args.Error(1)
}

func (m *MockStorage) ListMessages(ctx context.Context, channelID string, limit int) ([]models.ChatMessage, error) {
	args := m.Called(channelID, limit)
	return args.Get(0).([]models.ChatMessage), args.Error(1)
}

func (m *MockStorage) MarkMessageDeleted(ctx context.Context, id string) error {
	args := m.Called(id)
	return args.Error(0)
}

func (m *MockStorage) MarkChannelRead(ctx context.Context, channelID, readerID string, at time.Time) (int64, error) {
	args := m.Called(channelID, readerID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockStorage) SaveLastLocation(ctx context.Context, sessionID, userID string, loc models.Location, ttl time.Duration) error {
	args := m.Called(sessionID, userID, loc)
	return args.Error(0)
}

func (m *MockStorage) LastLocation(ctx context.Context, sessionID, userID string) (*models.Location, error) {
	args := m.Called(sessionID, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Location), args.Error(1)
}

func (m *MockStorage) Ping(ctx context.Context) error {
	args := m.Called()
	return args.Error(0)
}
