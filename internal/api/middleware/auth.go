package middleware

import (
	"crypto/subtle"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/YSAI1021/psychiatry-ai-agent-sub000/internal/api/apierror"
	"github.com/YSAI1021/psychiatry-ai-agent-sub000/internal/domain"
)

// Auth returns the clinician API key middleware. An empty key disables the
// check, which is only meant for local development.
func Auth(apiKey string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if apiKey == "" {
			c.Next()
			return
		}

		key := c.GetHeader("X-API-Key")
		if key == "" {
			if auth := c.GetHeader("Authorization"); strings.HasPrefix(auth, "Bearer ") {
				key = strings.TrimPrefix(auth, "Bearer ")
			}
		}

		if subtle.ConstantTimeCompare([]byte(key), []byte(apiKey)) != 1 {
			apierror.Write(c, domain.ErrUnauthorized)
			return
		}

		c.Next()
	}
}
