package models_test

import (
	"sharetrack/backend/internal/models"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestRequestStatus_Transitions(t *testing.T) {
	cases := []struct {
		from, to models.RequestStatus
		allowed  bool
	}{
		{models.RequestPending, models.RequestApproved, true},
		{models.RequestPending, models.RequestRejected, true},
		{models.RequestPending, models.RequestRevoked, true},
		{models.RequestPending, models.RequestPending, false},
		{models.RequestApproved, models.RequestRevoked, false},
		{models.RequestApproved, models.RequestPending, false},
		{models.RequestRejected, models.RequestApproved, false},
		{models.RequestRevoked, models.RequestApproved, false},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.allowed, tc.from.CanTransitionTo(tc.to), "%s -> %s", tc.from, tc.to)
	}
}

func TestRequestStatus_Terminal(t *testing.T) {
	assert.False(t, models.RequestPending.Terminal())
	assert.True(t, models.RequestApproved.Terminal())
	assert.True(t, models.RequestRejected.Terminal())
	assert.True(t, models.RequestRevoked.Terminal())
	assert.False(t, models.RequestStatus("bogus").Terminal())
}

func TestPairKey_OrderIndependent(t *testing.T) {
	assert.Equal(t, models.PairKey("alice", "bob"), models.PairKey("bob", "alice"))
	assert.NotEqual(t, models.PairKey("alice", "bob"), models.PairKey("alice", "carol"))
}

func TestShareRequestBeforeCreate_FillsIDAndPair(t *testing.T) {
	req := &models.ShareRequest{FromID: "b", ToID: "a"}

	err := req.BeforeCreate(nil)

	assert.NoError(t, err)
	_, parseErr := uuid.Parse(req.ID)
	assert.NoError(t, parseErr)
	assert.Equal(t, "a|b", req.PairKey)
}

func TestSharedSession_Helpers(t *testing.T) {
	now := time.Now()
	a := models.Identity{ID: "a", DisplayName: "Ann"}
	b := models.Identity{ID: "b", DisplayName: "Ben"}
	s := models.NewSharedSession(a, b, nil, now, 30*time.Minute)

	assert.Len(t, s.Participants, 2)
	assert.True(t, s.HasParticipant("a"))
	assert.False(t, s.HasParticipant("c"))
	assert.Equal(t, "b", s.Peer("a"))
	assert.Equal(t, "", s.Peer("c"))
	assert.Equal(t, "Ben", s.DisplayName("b"))
	assert.True(t, s.Live(now.Add(29*time.Minute)))
	assert.False(t, s.Live(now.Add(30*time.Minute)), "deadline itself counts as expired")
	assert.True(t, s.Expired(now.Add(31*time.Minute)))
}

func TestChatMessage_RedactedHidesDeletedContent(t *testing.T) {
	lat, lng := 12.9, 77.5
	msg := models.ChatMessage{Body: "hi", Latitude: &lat, Longitude: &lng}

	assert.Equal(t, "hi", msg.Redacted().Body)
	assert.NotNil(t, msg.Redacted().Location())

	msg.Deleted = true
	red := msg.Redacted()
	assert.Empty(t, red.Body)
	assert.Nil(t, red.Location())
	assert.Equal(t, "hi", msg.Body, "original row is retained")
}

func TestCommand_Point(t *testing.T) {
	lat, lng := 1.5, 2.5
	flat := models.Command{Lat: &lat, Lng: &lng, Timestamp: 42}
	assert.Equal(t, &models.Location{Lat: 1.5, Lng: 2.5, Timestamp: 42}, flat.Point())

	nested := models.Command{Location: &models.Location{Lat: 3, Lng: 4}}
	assert.Equal(t, 3.0, nested.Point().Lat)

	assert.Nil(t, models.Command{}.Point())
	assert.False(t, models.Location{Lat: 91}.Valid())
	assert.True(t, models.Location{Lat: 12.9, Lng: 77.5}.Valid())
}
