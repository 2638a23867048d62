package jwttoken

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "certitrack/pkg/domain-errors"
)

func TestTokenRoundTrip(t *testing.T) {
	svc := NewJWTService("test-signing-key", "certitrack")
	userID := uuid.New()
	tenantID := uuid.New()

	token, err := svc.GenerateAccessToken(userID, tenantID, "Dana Inspector", time.Hour)
	require.NoError(t, err)

	claims, err := svc.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, userID.String(), claims.UserID)
	assert.Equal(t, tenantID.String(), claims.TenantID)
	assert.Equal(t, "Dana Inspector", claims.Name)
}

func TestValidateTokenRejections(t *testing.T) {
	svc := NewJWTService("test-signing-key", "certitrack")

	t.Run("expired token", func(t *testing.T) {
		token, err := svc.GenerateAccessToken(uuid.New(), uuid.New(), "x", -time.Minute)
		require.NoError(t, err)

		_, err = svc.ValidateToken(token)
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))
		assert.Equal(t, "token has expired", dErrors.MessageOf(err))
	})

	t.Run("wrong signing key", func(t *testing.T) {
		token, err := NewJWTService("other-key", "certitrack").
			GenerateAccessToken(uuid.New(), uuid.New(), "x", time.Hour)
		require.NoError(t, err)

		_, err = svc.ValidateToken(token)
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))
	})

	t.Run("garbage", func(t *testing.T) {
		_, err := svc.ValidateToken("not.a.token")
		require.Error(t, err)
	})
}

func TestNameDerivedFromEmail(t *testing.T) {
	svc := NewJWTService("test-signing-key", "certitrack")

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		UserID:   uuid.NewString(),
		TenantID: uuid.NewString(),
		Email:    "jane.doe@example.com",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}).SignedString([]byte("test-signing-key"))
	require.NoError(t, err)

	claims, err := svc.ValidateToken(signed)
	require.NoError(t, err)
	assert.Equal(t, "Jane Doe", claims.Name)
}
