package media

import (
	"testing"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIssueToken(t *testing.T) {
	issuer := NewTokenIssuer("devkey", "devsecret")

	tokenString, err := issuer.IssueToken("123456", "alice")
	require.NoError(t, err)
	require.NotEmpty(t, tokenString)

	claims := &mediaClaims{}
	parsed, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		return []byte("devsecret"), nil
	})
	require.NoError(t, err)
	require.True(t, parsed.Valid)

	assert.Equal(t, "123456", claims.Video.Room)
	assert.True(t, claims.Video.RoomJoin)
	assert.Equal(t, "alice", claims.Name)
	assert.Equal(t, "devkey", claims.Issuer)
}

func TestIssueTokenRejectsEmptyArgs(t *testing.T) {
	issuer := NewTokenIssuer("devkey", "devsecret")

	_, err := issuer.IssueToken("", "alice")
	assert.Error(t, err)

	_, err = issuer.IssueToken("123456", "")
	assert.Error(t, err)
}
