package middleware

import (
	"github.com/gin-gonic/gin"   // Gin web framework
	"github.com/sirupsen/logrus" // Logging library
)

const loggerKey = "logger" // Context key for the request's log entry

// WithLogger makes log available to later handlers through Logger
func WithLogger(log *logrus.Logger) gin.HandlerFunc {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return func(c *gin.Context) {
		c.Set(loggerKey, log.WithField("request_ip", c.ClientIP()))
		c.Next()
	}
}

// Logger returns the entry set by WithLogger, or the standard logger on routes without it
func Logger(c *gin.Context) *logrus.Entry {
	if v, ok := c.Get(loggerKey); ok {
		if entry, ok := v.(*logrus.Entry); ok {
			return entry
		}
	}
	return logrus.NewEntry(logrus.StandardLogger())
}
