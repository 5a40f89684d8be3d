package server

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"strategy-lab/internal/auth"
	"strategy-lab/internal/observability"
)

// identityKey is the gin context key holding the verified caller
// identity (the token subject).
const identityKey = "identity"

// Auth validates the Bearer token and stores the caller identity in
// the request context.
func Auth(verifier *auth.Verifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || token == "" {
			unauthorized(c, "missing bearer token")
			return
		}

		claims, err := verifier.Verify(token)
		if err != nil {
			if errors.Is(err, auth.ErrExpiredToken) {
				unauthorized(c, "token expired")
				return
			}
			unauthorized(c, "invalid token")
			return
		}

		c.Set(identityKey, claims.Subject)
		c.Next()
	}
}

func unauthorized(c *gin.Context, message string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, ErrorResponse{
		Error: ErrorDetail{Code: "UNAUTHORIZED", Message: message},
	})
}

// callerIdentity returns the identity set by Auth, empty when absent.
func callerIdentity(c *gin.Context) string {
	return c.GetString(identityKey)
}

// Instrument records request latency per route. A nil Metrics records
// nothing.
func Instrument(metrics *observability.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		metrics.ObserveHTTPRequest(c.Request.Method, route, c.Writer.Status(), time.Since(start))
	}
}

// Recovery converts panics into the uniform error envelope.
func Recovery() gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, _ interface{}) {
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error: ErrorDetail{Code: "INTERNAL", Message: "An unexpected error occurred"},
		})
		c.Abort()
	})
}
