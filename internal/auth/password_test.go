package auth

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestHashAndVerifyPassword(t *testing.T) {
	hash, err := HashPassword("hunter2")
	require.NoError(t, err)
	require.NotEqual(t, "hunter2", hash)

	require.True(t, VerifyPassword("hunter2", hash))
	require.False(t, VerifyPassword("Hunter2", hash))
	require.False(t, VerifyPassword("", hash))
	require.False(t, VerifyPassword("hunter2", "not-a-hash"))
}

func TestLocalVerifier(t *testing.T) {
	hash, err := HashPassword("hunter2")
	require.NoError(t, err)

	v := &LocalVerifier{Username: "alice", PasswordHash: hash}
	require.True(t, v.Verify("alice", "hunter2"))
	require.False(t, v.Verify("alice", "wrong"))
	require.False(t, v.Verify("bob", "hunter2"))
	require.False(t, v.Verify("", ""))
}
