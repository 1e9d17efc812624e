package crypto

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateAndParseToken(t *testing.T) {
	token, err := GenerateToken("secret", "curator", ScopeUpload, time.Hour)
	require.NoError(t, err)

	claims, err := ParseToken("secret", token, ScopeUpload)
	require.NoError(t, err)
	assert.Equal(t, "curator", claims.Sub)
	assert.NotEmpty(t, claims.ID)
}

func TestParseToken_Rejects(t *testing.T) {
	token, err := GenerateToken("secret", "curator", "read", time.Hour)
	require.NoError(t, err)

	_, err = ParseToken("secret", token, ScopeUpload)
	assert.ErrorIs(t, err, ErrScope)

	_, err = ParseToken("other", token, "")
	assert.ErrorIs(t, err, jwt.ErrSignatureInvalid)

	expired, err := GenerateToken("secret", "curator", ScopeUpload, -time.Minute)
	require.NoError(t, err)
	_, err = ParseToken("secret", expired, ScopeUpload)
	assert.ErrorIs(t, err, jwt.ErrTokenExpired)
}
