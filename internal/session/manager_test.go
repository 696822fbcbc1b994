package session

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestManagerCreateAndGet(t *testing.T) {
	m := NewManager(time.Hour)

	sess := m.Create()
	require.NotEmpty(t, sess.ID)
	require.Equal(t, StateAnonymous, sess.State)
	require.False(t, sess.Authenticated)

	got := m.Get(sess.ID)
	require.Same(t, sess, got)

	require.Nil(t, m.Get("no-such-session"))
}

func TestManagerDelete(t *testing.T) {
	m := NewManager(time.Hour)

	sess := m.Create()
	m.Delete(sess.ID)
	require.Nil(t, m.Get(sess.ID))

	// Deleting twice is harmless.
	m.Delete(sess.ID)
}

func TestManagerExpiry(t *testing.T) {
	m := NewManager(time.Nanosecond)

	sess := m.Create()
	time.Sleep(10 * time.Millisecond)
	require.Nil(t, m.Get(sess.ID))
}

func TestManagerZeroTTLNeverExpires(t *testing.T) {
	m := NewManager(0)

	sess := m.Create()
	require.True(t, sess.ExpiresAt.IsZero())
	require.NotNil(t, m.Get(sess.ID))
}

func TestSessionReset(t *testing.T) {
	sess := &Session{
		ID:            "s",
		State:         StateAuthenticated,
		Username:      "alice",
		Authenticated: true,
		ActiveCA:      "vpn-root",
	}

	sess.Lock()
	sess.Reset()
	sess.Unlock()

	require.Equal(t, StateAnonymous, sess.State)
	require.Empty(t, sess.Username)
	require.False(t, sess.Authenticated)
	require.Empty(t, sess.ActiveCA)
}

func TestStateString(t *testing.T) {
	require.Equal(t, "anonymous", StateAnonymous.String())
	require.Equal(t, "primary_ok", StatePrimaryOK.String())
	require.Equal(t, "enrolling_mfa", StateEnrolling.String())
	require.Equal(t, "authenticated", StateAuthenticated.String())
	require.Equal(t, "unknown", State(99).String())
}
