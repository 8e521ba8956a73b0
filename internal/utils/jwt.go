package utils

import (
	"errors" // Sentinel errors
	"time"   // Time for token expiration

	"github.com/golang-jwt/jwt/v5" // JWT library
)

var (
	// ErrInvalidToken is returned for tokens that fail validation
	ErrInvalidToken = errors.New("invalid token")
	// ErrNoSecret is returned when no signing key is configured
	ErrNoSecret = errors.New("jwt secret is empty")
)

// Claims identifies the Telegram account an admin API token was issued to
type Claims struct {
	TelegramID           int64 `json:"tg_id"` // Telegram user id of the holder
	jwt.RegisteredClaims       // Standard JWT claims
}

// GenerateJWT creates a JWT token for a Telegram user, valid for ttl
func GenerateJWT(telegramID int64, secret string, ttl time.Duration) (string, error) {
	if secret == "" {
		return "", ErrNoSecret
	}
	now := time.Now()
	// Set token claims
	claims := Claims{
		TelegramID: telegramID, // Custom claim for the Telegram user
		// Standard claims
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)), // Token expiry
			IssuedAt:  jwt.NewNumericDate(now),          // Issued at current time
			Issuer:    "tournament_bot",                 // Issuer check on parse
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims) // Create token with claims
	return token.SignedString([]byte(secret))                  // Sign the token with the secret
}

// ParseJWT parses and validates a JWT token string
func ParseJWT(tokenStr, secret string) (*Claims, error) {
	if secret == "" {
		return nil, ErrNoSecret // Never accept tokens signed with an empty key
	}
	token, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(token *jwt.Token) (any, error) {
		return []byte(secret), nil // Return the secret key for validation
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), // Reject alg switching
		jwt.WithIssuer("tournament_bot"),                            // Only our own tokens
	)
	// Check for parsing errors
	if err != nil {
		return nil, err // Return error if parsing fails
	}
	// Validate token and extract claims
	if claims, ok := token.Claims.(*Claims); ok && token.Valid && claims.TelegramID != 0 {
		return claims, nil // Return claims if valid
	}
	return nil, ErrInvalidToken
}
