package jwtutil

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateAndParse(t *testing.T) {
	token, err := GenerateToken("secret", time.Hour, "user-1", "alice")
	require.NoError(t, err)

	claims, err := ParseToken("secret", token)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.Subject)
	assert.Equal(t, "alice", claims.Username)

	_, err = ParseToken("other-secret", token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestParseToken_Expired(t *testing.T) {
	token, err := GenerateToken("secret", -time.Minute, "user-1", "alice")
	require.NoError(t, err)

	_, err = ParseToken("secret", token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestExpiredAt(t *testing.T) {
	now := time.Now()

	live, err := GenerateToken("secret", time.Hour, "u", "alice")
	require.NoError(t, err)
	stale, err := GenerateToken("secret", -time.Hour, "u", "alice")
	require.NoError(t, err)

	assert.False(t, ExpiredAt(live, now))
	assert.True(t, ExpiredAt(stale, now))
	assert.False(t, ExpiredAt("opaque-token", now), "non-JWT tokens are left alone")
}
