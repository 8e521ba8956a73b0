package api

import (
	"time" // Request latency

	"tournament_bot/internal/middleware" // Request logger

	"github.com/gin-gonic/gin"   // Gin web framework
	"github.com/sirupsen/logrus" // Logging library
)

// requestLogger logs each request through the entry set by middleware.WithLogger
func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		entry := middleware.Logger(c).WithFields(logrus.Fields{
			"method":  c.Request.Method,
			"path":    c.FullPath(),
			"status":  c.Writer.Status(),
			"latency": time.Since(start).String(),
			"ip":      c.ClientIP(),
		})
		if c.Writer.Status() >= 500 {
			entry.Error("Request served")
			return
		}
		entry.Info("Request served")
	}
}
