package sharing_test

import (
	"errors"
	"sharetrack/backend/internal/models"
	"sharetrack/backend/internal/sharing"
	"sharetrack/backend/internal/storage"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func activeSession(id string, expires time.Time) models.SharedSession {
	return models.SharedSession{
		ID:           id,
		Participants: []string{alice.ID, bob.ID},
		PairKey:      models.PairKey(alice.ID, bob.ID),
		IsActive:     true,
		ExpiresAt:    expires,
	}
}

func TestSweep_ContinuesPastFailures(t *testing.T) {
	storageMock := new(MockStorage)
	f := newFixtureWith(t, storageMock)
	past := f.clock.Now().Add(-time.Minute)
	batch := []models.SharedSession{activeSession("s1", past), activeSession("s2", past)}

	storageMock.On("ListExpiredSessions", mock.AnythingOfType("int")).Return(batch, nil)
	storageMock.On("EndSession", "s1", models.EndExpired, "").Return(false, errors.New("deadlock detected"))
	storageMock.On("EndSession", "s2", models.EndExpired, "").Return(true, nil)

	n, err := sharing.NewSweeper(f.sessions, time.Minute, 0).Sweep(f.ctx)

	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, []string{models.EvShareExpired}, f.rec.sessionTypes("s2"))
	assert.Empty(t, f.rec.sessionTypes("s1"))
	storageMock.AssertNotCalled(t, "PurgeEnded", mock.Anything)
}

func TestSweep_ListFailureIsReturned(t *testing.T) {
	storageMock := new(MockStorage)
	f := newFixtureWith(t, storageMock)
	storageMock.On("ListExpiredSessions", mock.AnythingOfType("int")).Return([]models.SharedSession(nil), errStoreDown)

	_, err := sharing.NewSweeper(f.sessions, time.Minute, 0).Sweep(f.ctx)

	assert.ErrorIs(t, err, errStoreDown)
}

func TestRevoke_LostRaceSendsNothing(t *testing.T) {
	storageMock := new(MockStorage)
	f := newFixtureWith(t, storageMock)
	sess := activeSession("s1", f.clock.Now().Add(time.Hour))
	storageMock.On("GetSession", "s1").Return(&sess, nil)
	storageMock.On("EndSession", "s1", models.EndRevoked, alice.ID).Return(false, nil)

	_, err := f.sessions.Revoke(f.ctx, "s1", alice)

	require.NoError(t, err)
	assert.Empty(t, f.rec.sessionTypes("s1"))
	assert.Empty(t, f.rec.closed)
}

func TestRevoke_StorageFailureIsInternal(t *testing.T) {
	storageMock := new(MockStorage)
	f := newFixtureWith(t, storageMock)
	sess := activeSession("s1", f.clock.Now().Add(time.Hour))
	storageMock.On("GetSession", "s1").Return(&sess, nil)
	storageMock.On("EndSession", "s1", models.EndRevoked, bob.ID).Return(false, errStoreDown)

	_, err := f.sessions.Revoke(f.ctx, "s1", bob)

	assert.ErrorIs(t, err, errStoreDown)
	assert.Equal(t, sharing.CodeInternal, sharing.Code(err))
}

func TestRespond_ApproveLosesRace(t *testing.T) {
	cases := []struct {
		name     string
		storeErr error
		want     error
	}{
		{"request resolved concurrently", storage.ErrConflict, sharing.ErrAlreadyResolved},
		{"session created concurrently", storage.ErrDuplicate, sharing.ErrAlreadyActive},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			storageMock := new(MockStorage)
			f := newFixtureWith(t, storageMock)
			req := &models.ShareRequest{ID: "r1", FromID: alice.ID, ToID: bob.ID, Status: models.RequestPending}
			storageMock.On("GetShareRequest", "r1").Return(req, nil)
			storageMock.On("FindActiveSession", models.PairKey(alice.ID, bob.ID)).Return(nil, nil)
			storageMock.On("ApproveShareRequest", "r1", mock.AnythingOfType("*models.SharedSession")).Return(tc.storeErr)

			_, sess, err := f.requests.Respond(f.ctx, "r1", bob, true)

			assert.ErrorIs(t, err, tc.want)
			assert.Nil(t, sess)
			assert.Empty(t, f.rec.userTypes(alice.ID))
			storageMock.AssertExpectations(t)
		})
	}
}
