package utils

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJWTRoundTrip(t *testing.T) {
	tok, err := GenerateJWT(4242, "secret", time.Hour)
	require.NoError(t, err)

	claims, err := ParseJWT(tok, "secret")
	require.NoError(t, err)
	assert.Equal(t, int64(4242), claims.TelegramID)
}

func TestJWTRejectsWrongSecretAndExpiry(t *testing.T) {
	tok, err := GenerateJWT(1, "secret", time.Hour)
	require.NoError(t, err)
	_, err = ParseJWT(tok, "other")
	assert.Error(t, err)

	expired, err := GenerateJWT(1, "secret", -time.Minute)
	require.NoError(t, err)
	_, err = ParseJWT(expired, "secret")
	assert.ErrorIs(t, err, jwt.ErrTokenExpired)
}

func TestJWTRefusesEmptySecret(t *testing.T) {
	_, err := GenerateJWT(1, "", time.Hour)
	assert.ErrorIs(t, err, ErrNoSecret)

	forged := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		TelegramID: 900,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
			Issuer:    "tournament_bot",
		},
	})
	tok, err := forged.SignedString([]byte(""))
	require.NoError(t, err)
	_, err = ParseJWT(tok, "")
	assert.ErrorIs(t, err, ErrNoSecret)
}
