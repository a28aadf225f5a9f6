package trackhub_test

import (
	"sharetrack/backend/internal/models"
	"sharetrack/backend/internal/trackhub"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRoomRegistry_JoinLeave(t *testing.T) {
	r := trackhub.NewRoomRegistry()
	c1 := newMockClient("c1", nil)
	c2 := newMockClient("c2", nil)

	others := r.Join("r", "p1", "One", nil, c1)
	assert.Empty(t, others)
	others = r.Join("r", "p2", "Two", &models.Location{Lat: 1, Lng: 2}, c2)
	require.Len(t, others, 1)
	assert.Equal(t, "p1", others[0].ID)
	assert.Equal(t, 1, r.Count())

	assert.Len(t, r.Participants("r", "p1"), 1)
	assert.Len(t, r.Participants("r", ""), 2)

	d, ok := r.Leave("r", "p1")
	require.True(t, ok)
	assert.Equal(t, "p1", d.Participant.ID)
	require.Len(t, d.Remaining, 1)
	assert.Equal(t, "p2", d.Remaining[0].ID)

	_, ok = r.Leave("r", "p1")
	assert.False(t, ok)

	_, ok = r.Leave("r", "p2")
	assert.True(t, ok)
	assert.False(t, r.Has("r"))
	assert.Zero(t, r.Count())
}

func TestRoomRegistry_RejoinIsIdempotent(t *testing.T) {
	r := trackhub.NewRoomRegistry()
	old := newMockClient("old", nil)
	fresh := newMockClient("fresh", nil)

	r.Join("r", "p1", "One", nil, old)
	r.Join("r", "p1", "One again", nil, fresh)

	members := r.Participants("r", "")
	require.Len(t, members, 1)
	assert.Equal(t, "One again", members[0].DisplayName)
	assert.Same(t, fresh, members[0].Client)
	_, ok := r.MemberOf("r", old)
	assert.False(t, ok, "the old handle is replaced")
}

func TestRoomRegistry_LeaveClient(t *testing.T) {
	r := trackhub.NewRoomRegistry()
	c := newMockClient("c", nil)
	other := newMockClient("other", nil)
	r.Join("a", "p", "", nil, c)
	r.Join("b", "p", "", nil, c)
	r.Join("b", "q", "", nil, other)

	departures := r.LeaveClient(c)

	assert.Len(t, departures, 2)
	assert.False(t, r.Has("a"))
	assert.True(t, r.Has("b"))
	assert.Len(t, r.Participants("b", ""), 1)
}

func TestRoomRegistry_UpdateLocation(t *testing.T) {
	r := trackhub.NewRoomRegistry()
	c := newMockClient("c", nil)
	r.Join("r", "p", "", nil, c)

	assert.True(t, r.UpdateLocation("r", "p", models.Location{Lat: 3, Lng: 4}))
	assert.False(t, r.UpdateLocation("r", "ghost", models.Location{}))

	p, ok := r.MemberOf("r", c)
	require.True(t, ok)
	require.NotNil(t, p.Location)
	assert.Equal(t, 3.0, p.Location.Lat)
}

func TestRoomRegistry_TryJoinRefusesHeldEntry(t *testing.T) {
	r := trackhub.NewRoomRegistry()
	c1 := newMockClient("c1", nil)
	c2 := newMockClient("c2", nil)
	never := func(trackhub.Client) bool { return false }

	_, ok := r.TryJoin("r", "p1", "One", nil, c1, never)
	require.True(t, ok)
	_, ok = r.TryJoin("r", "p1", "Impostor", nil, c2, never)
	assert.False(t, ok)
	_, ok = r.TryJoin("r", "p1", "Again", nil, c1, never)
	assert.True(t, ok, "the holder itself may always re-join")

	members := r.Participants("r", "")
	require.Len(t, members, 1)
	assert.Equal(t, "Again", members[0].DisplayName)
	assert.Equal(t, c1, members[0].Client)
}
