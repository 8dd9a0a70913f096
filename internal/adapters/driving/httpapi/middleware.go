package httpapi

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/custodia-labs/docquery/internal/logger"
)

// RequestLogger logs one line per request with method, path, status
// and duration.
func RequestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Info("%s %s -> %d (%s)",
			c.Request.Method, c.Request.URL.Path, c.Writer.Status(), time.Since(start))
	}
}

// Recovery converts panics into a JSON 500 instead of gin's default
// plain-text response.
func Recovery() gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, recovered any) {
		logger.Error("panic handling %s %s: %v", c.Request.Method, c.Request.URL.Path, recovered)
		c.AbortWithStatusJSON(http.StatusInternalServerError, errorResponse{Error: errorBody{
			Code:    "PROCESSING_ERROR",
			Message: "internal processing error",
		}})
	})
}

// BearerAuth requires "Authorization: Bearer <token>" on every
// request. The three failure modes get distinct codes so clients can
// tell a missing header from a stale token.
func BearerAuth(token string) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, errorResponse{Error: errorBody{
				Code:    codeAuthRequired,
				Message: "authorization header is required",
			}})
			return
		}

		const prefix = "Bearer "
		if !strings.HasPrefix(header, prefix) {
			c.AbortWithStatusJSON(http.StatusUnauthorized, errorResponse{Error: errorBody{
				Code:    codeInvalidAuthFormat,
				Message: "authorization header must use the Bearer scheme",
			}})
			return
		}

		if strings.TrimPrefix(header, prefix) != token {
			c.AbortWithStatusJSON(http.StatusUnauthorized, errorResponse{Error: errorBody{
				Code:    codeInvalidToken,
				Message: "invalid bearer token",
			}})
			return
		}

		c.Next()
	}
}
