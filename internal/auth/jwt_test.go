package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestManager() *JWTManager {
	return NewJWTManager(
		"access-secret-for-tests-0123456789ab",
		"refresh-secret-for-tests-0123456789",
		15*time.Minute,
		7*24*time.Hour,
	)
}

func TestGenerateAndValidateTokenPair(t *testing.T) {
	m := newTestManager()

	pair, tokenID, err := m.GenerateTokenPair("user-1", "a@example.com", false)
	require.NoError(t, err)
	require.NotEmpty(t, pair.AccessToken)
	require.NotEmpty(t, pair.RefreshToken)
	require.NotEmpty(t, tokenID)
	assert.Equal(t, int64((15 * time.Minute).Seconds()), pair.ExpiresIn)

	claims, err := m.ValidateAccessToken(pair.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.UserID)
	assert.Equal(t, "a@example.com", claims.Email)
	assert.False(t, claims.IsAdmin)
	assert.Equal(t, "adforge", claims.Issuer)

	refreshClaims, err := m.ValidateRefreshToken(pair.RefreshToken)
	require.NoError(t, err)
	assert.Equal(t, "user-1", refreshClaims.UserID)
	assert.Equal(t, tokenID, refreshClaims.TokenID)
}

func TestRefreshClaimsCarryIdentity(t *testing.T) {
	m := newTestManager()

	pair, _, err := m.GenerateTokenPair("admin-1", "root@example.com", true)
	require.NoError(t, err)

	claims, err := m.ValidateRefreshToken(pair.RefreshToken)
	require.NoError(t, err)
	assert.Equal(t, "root@example.com", claims.Email)
	assert.True(t, claims.IsAdmin)
}

func TestValidateAccessToken_WrongSecret(t *testing.T) {
	m := newTestManager()
	other := NewJWTManager(
		"a-completely-different-access-secret",
		"a-completely-different-refresh-key!",
		15*time.Minute,
		7*24*time.Hour,
	)

	pair, _, err := m.GenerateTokenPair("user-1", "a@example.com", false)
	require.NoError(t, err)

	_, err = other.ValidateAccessToken(pair.AccessToken)
	assert.Error(t, err)
}

func TestValidateAccessToken_RefreshTokenRejected(t *testing.T) {
	m := newTestManager()

	pair, _, err := m.GenerateTokenPair("user-1", "a@example.com", false)
	require.NoError(t, err)

	// Tokens are signed with different secrets; one must not pass as the other.
	_, err = m.ValidateAccessToken(pair.RefreshToken)
	assert.Error(t, err)
}

func TestValidateAccessToken_Expired(t *testing.T) {
	m := NewJWTManager(
		"access-secret-for-tests-0123456789ab",
		"refresh-secret-for-tests-0123456789",
		-1*time.Minute,
		7*24*time.Hour,
	)

	pair, _, err := m.GenerateTokenPair("user-1", "a@example.com", false)
	require.NoError(t, err)

	_, err = m.ValidateAccessToken(pair.AccessToken)
	assert.Error(t, err)
}

func TestValidateAccessToken_Garbage(t *testing.T) {
	m := newTestManager()
	_, err := m.ValidateAccessToken("not.a.token")
	assert.Error(t, err)
}
