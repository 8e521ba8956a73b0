package middleware

import (
	"context"  // Request context for the store lookup
	"net/http" // HTTP status codes
	"slices"   // Configured admin lookup

	"github.com/gin-gonic/gin"   // Gin web framework
	"github.com/sirupsen/logrus" // Logging library
)

// AdminLookup reports whether a Telegram account is an admin in the store
type AdminLookup interface {
	IsAdmin(ctx context.Context, telegramID int64) (bool, error)
}

// AdminOnlyMiddleware admits configured admins and users flagged as admin,
// checking the store on each request so revocation is immediate
func AdminOnlyMiddleware(store AdminLookup, configured []int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := TelegramID(c) // Set by JWTAuthMiddleware
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}
		if slices.Contains(configured, id) {
			c.Next()
			return
		}
		isAdmin, err := store.IsAdmin(c.Request.Context(), id)
		if err != nil {
			Logger(c).WithFields(logrus.Fields{"telegram_id": id, "error": err.Error()}).Error("Admin lookup failed")
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Internal error"})
			return
		}
		if !isAdmin {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Admin access required"})
			return
		}
		c.Next()
	}
}
