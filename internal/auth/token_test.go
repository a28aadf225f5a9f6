package auth_test

import (
	"sharetrack/backend/internal/auth"
	"sharetrack/backend/internal/models"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIssueAndVerify_RoundTripsIdentity(t *testing.T) {
	issuer := auth.NewIssuer("secret", "sharetrack", time.Hour)

	token, expires, err := issuer.Issue(models.Identity{ID: "user-1", DisplayName: "Ann"})
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(time.Hour), expires, 5*time.Second)

	id, err := issuer.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, "user-1", id.ID)
	assert.Equal(t, "Ann", id.DisplayName)
}

func TestVerify_RejectsForeignSignature(t *testing.T) {
	good := auth.NewIssuer("secret", "sharetrack", time.Hour)
	evil := auth.NewIssuer("other", "sharetrack", time.Hour)
	token, _, err := evil.Issue(models.Identity{ID: "user-1"})
	require.NoError(t, err)

	_, err = good.Verify(token)

	assert.ErrorIs(t, err, auth.ErrInvalidToken)
}

func TestVerify_RejectsExpiredToken(t *testing.T) {
	issuer := auth.NewIssuer("secret", "sharetrack", time.Minute)
	token, _, err := issuer.Issue(models.Identity{ID: "user-1"})
	require.NoError(t, err)

	issuer.SetClock(func() time.Time { return time.Now().Add(2 * time.Minute) })
	_, err = issuer.Verify(token)

	assert.ErrorIs(t, err, auth.ErrInvalidToken)
}

func TestVerify_RejectsWrongIssuer(t *testing.T) {
	other := auth.NewIssuer("secret", "someone-else", time.Hour)
	token, _, err := other.Issue(models.Identity{ID: "user-1"})
	require.NoError(t, err)

	_, err = auth.NewIssuer("secret", "sharetrack", time.Hour).Verify(token)

	assert.ErrorIs(t, err, auth.ErrInvalidToken)
}

func TestVerify_EmptyTokenNeedsAuth(t *testing.T) {
	_, err := auth.NewIssuer("secret", "sharetrack", time.Hour).Verify("")
	assert.ErrorIs(t, err, auth.ErrAuthRequired)
}

func TestIssueGuest(t *testing.T) {
	issuer := auth.NewIssuer("secret", "sharetrack", time.Hour)

	guest, token, err := issuer.IssueGuest()
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(guest.DisplayName, "Guest-"))

	id, err := issuer.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, guest.ID, id.ID)
}

func TestBearerToken(t *testing.T) {
	assert.Equal(t, "abc", auth.BearerToken("Bearer abc"))
	assert.Equal(t, "abc", auth.BearerToken("bearer abc"))
	assert.Equal(t, "", auth.BearerToken("Bearer "))
	assert.Equal(t, "", auth.BearerToken("Basic abc"))
	assert.Equal(t, "", auth.BearerToken(""))
}
