package jwt

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJWTMaker_GenerateAndParseToken_ValidCases(t *testing.T) {
	secretKey := "test_secret_key_1234567890"
	tokenTTL := 15 * time.Minute
	maker := NewJWTMaker(secretKey, tokenTTL)

	tests := []struct {
		name    string
		payload Payload
	}{
		{
			name: "access payload",
			payload: Payload{
				UserID:   "65f1c0ffee0000000000abcd",
				Username: "john",
				Email:    "john@example.com",
				FullName: "John Doe",
			},
		},
		{
			name:    "refresh payload with id only",
			payload: Payload{UserID: "65f1c0ffee0000000000abcd"},
		},
		{
			name:    "uuid identifier",
			payload: Payload{UserID: "550e8400-e29b-41d4-a716-446655440000", Username: "user123"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			token, err := maker.GenerateToken(tt.payload)
			require.NoError(t, err)
			assert.NotEmpty(t, token)

			claims, err := maker.ParseToken(token)
			require.NoError(t, err)

			assert.Equal(t, tt.payload.UserID, claims.UserID)
			assert.Equal(t, tt.payload.UserID, claims.Subject)
			assert.Equal(t, tt.payload.Username, claims.Username)
			assert.Equal(t, tt.payload.Email, claims.Email)
			assert.Equal(t, tt.payload.FullName, claims.FullName)
			assert.NotEmpty(t, claims.ID)
			assert.WithinDuration(t, time.Now(), claims.IssuedAt.Time, time.Second)
			assert.WithinDuration(t, time.Now().Add(tokenTTL), claims.ExpiresAt.Time, time.Second)
		})
	}
}

func TestJWTMaker_GenerateToken_EmptyUserID(t *testing.T) {
	maker := NewJWTMaker("secret", time.Minute)

	token, err := maker.GenerateToken(Payload{Username: "john"})
	assert.Error(t, err)
	assert.Empty(t, token)
}

func TestJWTMaker_TokensAreUnique(t *testing.T) {
	maker := NewJWTMaker("secret", time.Minute)
	payload := Payload{UserID: "user-1"}

	first, err := maker.GenerateToken(payload)
	require.NoError(t, err)
	second, err := maker.GenerateToken(payload)
	require.NoError(t, err)

	assert.NotEqual(t, first, second)
}

func TestJWTMaker_ParseToken_InvalidTokens(t *testing.T) {
	secretKey := "test_secret_key_1234567890"
	maker := NewJWTMaker(secretKey, 15*time.Minute)

	validToken, err := maker.GenerateToken(Payload{UserID: "user-1"})
	require.NoError(t, err)

	tests := []struct {
		name       string
		token      string
		wantReason string
	}{
		{
			name:       "empty token",
			token:      "",
			wantReason: "jwt malformed",
		},
		{
			name:       "malformed token",
			token:      "invalid.token.here",
			wantReason: "jwt malformed",
		},
		{
			name:       "expired token",
			token:      createExpiredToken(t, secretKey),
			wantReason: "jwt expired",
		},
		{
			name:       "wrong secret key",
			token:      createTokenWithWrongSecret(t),
			wantReason: "invalid signature",
		},
		{
			name:       "tampered token",
			token:      validToken + "tampered",
			wantReason: "invalid signature",
		},
		{
			name:       "token without user id",
			token:      createTokenWithoutUserID(t, secretKey),
			wantReason: "invalid token",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			claims, err := maker.ParseToken(tt.token)

			assert.Error(t, err)
			assert.Nil(t, claims)
			assert.Equal(t, tt.wantReason, Reason(err))
		})
	}
}

func TestJWTMaker_DifferentSecretKeys(t *testing.T) {
	access := NewJWTMaker("access_secret", 15*time.Minute)
	refresh := NewJWTMaker("refresh_secret", 24*time.Hour)

	token, err := access.GenerateToken(Payload{UserID: "user-1"})
	require.NoError(t, err)

	claims, err := refresh.ParseToken(token)
	assert.Error(t, err)
	assert.Nil(t, claims)

	claims, err = access.ParseToken(token)
	assert.NoError(t, err)
	assert.NotNil(t, claims)
}

func TestReason_Nil(t *testing.T) {
	assert.Equal(t, "", Reason(nil))
}

func createExpiredToken(t *testing.T, secretKey string) string {
	maker := NewJWTMaker(secretKey, -time.Hour)
	token, err := maker.GenerateToken(Payload{UserID: "user-1"})
	require.NoError(t, err)
	return token
}

func createTokenWithWrongSecret(t *testing.T) string {
	wrongMaker := NewJWTMaker("wrong_secret_key", 15*time.Minute)
	token, err := wrongMaker.GenerateToken(Payload{UserID: "user-1"})
	require.NoError(t, err)
	return token
}

func createTokenWithoutUserID(t *testing.T, secretKey string) string {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Minute)),
	})
	signed, err := token.SignedString([]byte(secretKey))
	require.NoError(t, err)
	return signed
}
