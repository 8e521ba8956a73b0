package api

import (
	"errors"   // Error classification
	"net/http" // HTTP status codes

	"tournament_bot/internal/domain"     // Domain errors
	"tournament_bot/internal/middleware" // Request logger

	"github.com/gin-gonic/gin"   // Gin web framework
	"github.com/sirupsen/logrus" // Logging library
)

// writeError maps domain errors to HTTP responses and logs anything unexpected
func writeError(c *gin.Context, err error) {
	var verr *domain.ValidationError
	var ext *domain.ExternalError
	switch {
	case errors.As(err, &verr):
		c.JSON(http.StatusBadRequest, gin.H{"error": verr.Error()})
	case errors.Is(err, domain.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Not found"})
	case errors.Is(err, domain.ErrInvalidState), errors.Is(err, domain.ErrDuplicate), errors.Is(err, domain.ErrTournamentFull):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, domain.ErrInsufficientBalance):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "Insufficient balance"})
	case errors.As(err, &ext):
		middleware.Logger(c).WithFields(logrus.Fields{"path": c.FullPath(), "service": ext.Service, "error": err.Error()}).Error("Upstream failure")
		c.JSON(http.StatusBadGateway, gin.H{"error": "Upstream service failed"})
	default:
		middleware.Logger(c).WithFields(logrus.Fields{"path": c.FullPath(), "error": err.Error()}).Error("Request failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal error"})
	}
}
