package auth

import (
	"testing"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateAndParseToken(t *testing.T) {
	tm := NewTokenManager("unit-secret", 30)

	token, expiresAt, err := tm.GenerateToken("alice@example.com", "Alice")
	require.NoError(t, err)
	assert.NotEmpty(t, token)
	assert.WithinDuration(t, time.Now().Add(30*time.Minute), expiresAt, time.Minute)

	claims, err := tm.ParseToken(token)
	require.NoError(t, err)
	assert.Equal(t, "alice@example.com", claims.Email)
	assert.Equal(t, "Alice", claims.Name)
}

func TestParseTokenWrongSecret(t *testing.T) {
	tm := NewTokenManager("unit-secret", 30)
	other := NewTokenManager("other-secret", 30)

	token, _, err := other.GenerateToken("alice@example.com", "Alice")
	require.NoError(t, err)

	_, err = tm.ParseToken(token)
	assert.Error(t, err)
}

func TestParseTokenMissingEmail(t *testing.T) {
	tm := NewTokenManager("unit-secret", 30)

	anon := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "no-email",
		"exp": time.Now().Add(time.Hour).Unix(),
	})
	signed, err := anon.SignedString([]byte("unit-secret"))
	require.NoError(t, err)

	_, err = tm.ParseToken(signed)
	assert.Error(t, err)
}

func TestParseTokenExpired(t *testing.T) {
	tm := NewTokenManager("unit-secret", 30)

	expired := jwt.NewWithClaims(jwt.SigningMethodHS256, &Claims{
		Email: "alice@example.com",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Hour)),
		},
	})
	signed, err := expired.SignedString([]byte("unit-secret"))
	require.NoError(t, err)

	_, err = tm.ParseToken(signed)
	assert.Error(t, err)
}

func TestPasswordHashRoundTrip(t *testing.T) {
	hash, err := HashPassword("correct horse", 4)
	require.NoError(t, err)
	assert.NoError(t, ComparePassword(hash, "correct horse"))
	assert.Error(t, ComparePassword(hash, "battery staple"))
}
