package middleware

import (
	"net/http" // HTTP status codes
	"strings"  // String manipulation

	"tournament_bot/internal/utils" // JWT utility functions

	"github.com/gin-gonic/gin" // Gin web framework
)

// TelegramIDKey is the context key holding the authenticated Telegram id
const TelegramIDKey = "telegramID"

// JWTAuthMiddleware validates JWT tokens and extracts the Telegram id
func JWTAuthMiddleware(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization") // Get Authorization header
		// Check if the Authorization header is present and properly formatted
		if authHeader == "" || !strings.HasPrefix(authHeader, "Bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Missing or invalid Authorization header"})
			return
		}
		claims, err := utils.ParseJWT(strings.TrimPrefix(authHeader, "Bearer "), secret) // Parse the JWT token
		if err != nil || claims.TelegramID == 0 {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired token"})
			return
		}
		c.Set(TelegramIDKey, claims.TelegramID) // Store the Telegram id in context
		c.Next()
	}
}

// TelegramID returns the id set by JWTAuthMiddleware
func TelegramID(c *gin.Context) (int64, bool) {
	v, ok := c.Get(TelegramIDKey)
	if !ok {
		return 0, false
	}
	id, ok := v.(int64)
	return id, ok
}
