package middleware

import (
	"net/http"
	"strings"

	"shop_backoffice/internal/service"

	"github.com/gin-gonic/gin"
)

const userIDKey = "user_id"

// JWT guards a route group with a bearer token issued by service.GenerateJWT.
func JWT() gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || token == "" {
			AuthRejected.Inc()
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing bearer token"})
			return
		}

		userID, err := service.ParseJWT(token)
		if err != nil {
			AuthRejected.Inc()
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}

		c.Set(userIDKey, userID)
		c.Next()
	}
}

// UserID reads the principal id set by JWT.
func UserID(c *gin.Context) int64 {
	v, _ := c.Get(userIDKey)
	id, _ := v.(int64)
	return id
}
