package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/ErlanBelekov/user-auth/internal/domain"
	"github.com/gin-gonic/gin"
)

const errInternalServer = "Internal Server Error"

var kindStatus = map[domain.Kind]int{
	domain.KindValidation:      http.StatusBadRequest,
	domain.KindNotFound:        http.StatusNotFound,
	domain.KindExpired:         http.StatusBadRequest,
	domain.KindUnauthorized:    http.StatusUnauthorized,
	domain.KindForbidden:       http.StatusForbidden,
	domain.KindConflict:        http.StatusBadRequest,
	domain.KindTooManyRequests: http.StatusTooManyRequests,
}

type errorBody struct {
	Kind    domain.Kind `json:"kind"`
	Message string      `json:"message"`
}

// StatusFor maps an error to its HTTP status. Anything that is not a *domain.Error is a 500.
func StatusFor(err error) int {
	var de *domain.Error
	if errors.As(err, &de) {
		if status, ok := kindStatus[de.Kind]; ok {
			return status
		}
	}
	return http.StatusInternalServerError
}

// writeError renders err as {"error":{"kind","message"}}. Dependency failures are logged
// and replaced with a generic message.
func writeError(c *gin.Context, logger *slog.Logger, op string, err error) {
	var de *domain.Error
	if !errors.As(err, &de) {
		logger.ErrorContext(c.Request.Context(), op, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": errorBody{Kind: domain.KindDependency, Message: errInternalServer}})
		return
	}
	c.JSON(StatusFor(de), gin.H{"error": errorBody{Kind: de.Kind, Message: de.Message}})
}

// writeBindError reports a request that failed binding or validation.
func writeBindError(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, gin.H{"error": errorBody{Kind: domain.KindValidation, Message: err.Error()}})
}
