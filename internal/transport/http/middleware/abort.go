package middleware

import (
	"github.com/ErlanBelekov/user-auth/internal/domain"
	"github.com/gin-gonic/gin"
)

// abort stops the chain with the same error body the handlers write.
func abort(c *gin.Context, status int, e *domain.Error) {
	c.AbortWithStatusJSON(status, gin.H{"error": gin.H{"kind": e.Kind, "message": e.Message}})
}
