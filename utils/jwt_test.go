package utils

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenRoundTrip(t *testing.T) {
	SetJWTSecret("unit-secret")

	token, err := GenerateToken("device-1", RoleAdmin, time.Minute)
	require.NoError(t, err)

	claims, err := ParseToken(token)
	require.NoError(t, err)
	assert.Equal(t, "device-1", claims.DeviceID)
	assert.Equal(t, RoleAdmin, claims.Role)
	assert.NotEmpty(t, claims.ID)
}

func TestParseTokenRejects(t *testing.T) {
	SetJWTSecret("unit-secret")

	expired, err := GenerateToken("device-1", RoleAdmin, -time.Minute)
	require.NoError(t, err)
	_, err = ParseToken(expired)
	assert.Error(t, err)

	SetJWTSecret("other-secret")
	foreign, err := GenerateToken("device-1", RoleAdmin, time.Minute)
	require.NoError(t, err)
	SetJWTSecret("unit-secret")
	_, err = ParseToken(foreign)
	assert.Error(t, err)

	none := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{"role": RoleAdmin})
	unsigned, err := none.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)
	_, err = ParseToken(unsigned)
	assert.Error(t, err)
}

func TestBlacklistedTokenIsRejected(t *testing.T) {
	SetJWTSecret("unit-secret")
	token, err := GenerateToken("device-1", RoleAdmin, time.Minute)
	require.NoError(t, err)

	BlacklistToken(token, time.Now().Add(time.Minute))
	assert.True(t, IsTokenBlacklisted(token))
	_, err = ParseToken(token)
	assert.Error(t, err)
}

func TestGenerateTokenNeedsSecret(t *testing.T) {
	SetJWTSecret("")
	defer SetJWTSecret("unit-secret")
	_, err := GenerateToken("device-1", RoleAdmin, time.Minute)
	assert.Error(t, err)
}
