package sharing_test

import (
	"sharetrack/backend/internal/models"
	"sharetrack/backend/internal/sharing"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewMessage_Validation(t *testing.T) {
	now := time.Now()

	_, err := sharing.NewMessage("c", alice, "   ", nil, now)
	assert.ErrorIs(t, err, sharing.ErrEmptyMessage)

	_, err = sharing.NewMessage("c", alice, strings.Repeat("a", 2001), nil, now)
	assert.ErrorIs(t, err, sharing.ErrInvalidRequest)

	_, err = sharing.NewMessage("c", alice, "", &models.Location{Lat: 91}, now)
	assert.ErrorIs(t, err, sharing.ErrInvalidLocation)

	msg, err := sharing.NewMessage("c", alice, " hi ", nil, now)
	require.NoError(t, err)
	assert.Equal(t, "hi", msg.Body)
	assert.Equal(t, models.KindText, msg.Kind)

	msg, err = sharing.NewMessage("c", alice, "", &models.Location{Lat: 10, Lng: 20}, now)
	require.NoError(t, err)
	assert.Equal(t, models.KindLocation, msg.Kind)
	require.NotNil(t, msg.Latitude)
	assert.Equal(t, 10.0, *msg.Latitude)
}

func TestSend_BroadcastsToSession(t *testing.T) {
	f := newFixture(t)
	sess := f.approvedSession(t, alice, bob)

	msg, err := f.chat.Send(f.ctx, sess.ID, alice, "on my way", nil)

	require.NoError(t, err)
	assert.Equal(t, sess.ID, msg.ChannelID)
	assert.Equal(t, "Alice", msg.SenderName)
	assert.Equal(t, []string{models.EvChatNewMessage}, f.rec.sessionTypes(sess.ID))

	_, err = f.chat.Send(f.ctx, sess.ID, carol, "hi", nil)
	assert.ErrorIs(t, err, sharing.ErrForbidden)
}

func TestSend_RejectedAfterSessionEnds(t *testing.T) {
	f := newFixture(t)
	sess := f.approvedSession(t, alice, bob)
	_, err := f.sessions.Revoke(f.ctx, sess.ID, bob)
	require.NoError(t, err)

	_, err = f.chat.Send(f.ctx, sess.ID, alice, "still there?", nil)

	assert.ErrorIs(t, err, sharing.ErrNotActive)
}

func TestHistory_MembersOnlyAndOrdered(t *testing.T) {
	f := newFixture(t)
	sess := f.approvedSession(t, alice, bob)
	for _, body := range []string{"one", "two", "three"} {
		_, err := f.chat.Send(f.ctx, sess.ID, alice, body, nil)
		require.NoError(t, err)
		f.clock.Advance(time.Second)
	}

	msgs, err := f.chat.History(f.ctx, sess.ID, bob.ID, 2)
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, "two", msgs[0].Body)
	assert.Equal(t, "three", msgs[1].Body)

	_, err = f.chat.History(f.ctx, sess.ID, carol.ID, 10)
	assert.ErrorIs(t, err, sharing.ErrForbidden)

	_, err = f.sessions.Revoke(f.ctx, sess.ID, alice)
	require.NoError(t, err)
	msgs, err = f.chat.History(f.ctx, sess.ID, bob.ID, 0)
	require.NoError(t, err)
	assert.Len(t, msgs, 3, "history stays readable after the session ends")
}

func TestMarkRead(t *testing.T) {
	f := newFixture(t)
	sess := f.approvedSession(t, alice, bob)
	_, err := f.chat.Send(f.ctx, sess.ID, alice, "a", nil)
	require.NoError(t, err)
	_, err = f.chat.Send(f.ctx, sess.ID, alice, "b", nil)
	require.NoError(t, err)

	ev, err := f.chat.MarkRead(f.ctx, sess.ID, bob.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), ev.Count)
	assert.Equal(t, bob.ID, ev.ReaderID)

	ev, err = f.chat.MarkRead(f.ctx, sess.ID, bob.ID)
	require.NoError(t, err)
	assert.Zero(t, ev.Count)
	assert.Equal(t, 1, f.rec.count(models.EvChatRead))

	_, err = f.chat.MarkRead(f.ctx, sess.ID, carol.ID)
	assert.ErrorIs(t, err, sharing.ErrForbidden)
}

func TestDelete_SenderOnly(t *testing.T) {
	f := newFixture(t)
	sess := f.approvedSession(t, alice, bob)
	msg, err := f.chat.Send(f.ctx, sess.ID, alice, "oops", nil)
	require.NoError(t, err)

	_, err = f.chat.Delete(f.ctx, msg.ID, bob)
	assert.ErrorIs(t, err, sharing.ErrForbidden)

	got, err := f.chat.Delete(f.ctx, msg.ID, alice)
	require.NoError(t, err)
	assert.True(t, got.Deleted)
	assert.Empty(t, got.Body)
	assert.Contains(t, f.rec.sessionTypes(sess.ID), models.EvChatDeleted)

	msgs, err := f.chat.History(f.ctx, sess.ID, bob.ID, 10)
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Empty(t, msgs[0].Body)

	_, err = f.chat.Delete(f.ctx, "missing", alice)
	assert.ErrorIs(t, err, sharing.ErrNotFound)
}

func TestDelete_RoomMessageNotifiesRoom(t *testing.T) {
	f := newFixture(t)
	msg, err := f.chat.Record(f.ctx, "xyz123", alice, "hello room", nil)
	require.NoError(t, err)

	_, err = f.chat.Delete(f.ctx, msg.ID, alice)

	require.NoError(t, err)
	f.rec.mu.Lock()
	defer f.rec.mu.Unlock()
	require.Len(t, f.rec.rooms["xyz123"], 1)
	assert.Equal(t, models.EvChatDeleted, f.rec.rooms["xyz123"][0].Type)
}
