package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/polkiloo/pixstore/internal/server/http/dto"
)

// AdminKeyHeader carries the operator key.
const AdminKeyHeader = "X-Admin-Key"

// KeyChecker validates operator keys.
type KeyChecker interface {
	Check(key string) error
}

// AdminRequired rejects requests without a valid operator key.
func AdminRequired(guard KeyChecker) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := extractKey(c)
		if key == "" || guard.Check(key) != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, dto.ErrorResponse{Error: "unauthorized"})
			return
		}
		c.Next()
	}
}

func extractKey(c *gin.Context) string {
	if key := strings.TrimSpace(c.GetHeader(AdminKeyHeader)); key != "" {
		return key
	}
	authHeader := c.GetHeader("Authorization")
	if strings.HasPrefix(strings.ToLower(authHeader), "bearer ") {
		return strings.TrimSpace(authHeader[7:])
	}
	return ""
}
