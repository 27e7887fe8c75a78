package http

import (
	"errors"
	"net/http"

	"conexbot/internal/entities"
	"conexbot/internal/usecases"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// respondError maps a usecase error to a status code and JSON body. Unknown
// errors are logged and answered with a generic 500.
func respondError(c *gin.Context, err error) {
	var verr *entities.ValidationError
	var cerr *usecases.ContactsError

	switch {
	case errors.As(err, &cerr):
		c.JSON(http.StatusBadRequest, gin.H{"error": cerr.Error(), "rows": cerr.Rows})
	case errors.As(err, &verr):
		c.JSON(http.StatusBadRequest, gin.H{"error": verr.Error(), "errors": verr.Fields})
	case errors.Is(err, usecases.ErrInvalidCredentials):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid credentials"})
	case errors.Is(err, entities.ErrEmailTaken),
		errors.Is(err, entities.ErrClientIDTaken),
		usecases.IsPolicyError(err),
		errors.Is(err, usecases.ErrNothingToSend),
		errors.Is(err, usecases.ErrNotConnected):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, usecases.ErrForbidden):
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
	case errors.Is(err, entities.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Not found"})
	case errors.Is(err, usecases.ErrBroadcastRunning):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, usecases.ErrBroadcastBusy):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
	case errors.Is(err, usecases.ErrRemoteMedia):
		zap.L().Warn("media storage error", zap.Error(err), zap.String("path", c.FullPath()))
		c.JSON(http.StatusBadGateway, gin.H{"error": "Media storage is unavailable, nothing was changed"})
	default:
		zap.L().Error("request failed",
			zap.Error(err), zap.String("path", c.FullPath()), zap.String("request_id", c.GetString(requestIDKey)))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
	}
}

func badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, gin.H{"error": msg})
}
