package middleware

import (
	"net/http"
	"strings"

	"lms-companion-api/internal/admin"

	"github.com/gin-gonic/gin"
)

// AdminAuthMiddleware guards admin-scoped routes. The presented bearer
// token must match the live in-memory elevation token; once the token
// expires or is dropped, every admin route goes back to 401.
func AdminAuthMiddleware(tokens *admin.TokenService) gin.HandlerFunc {
	return func(c *gin.Context) {
		// Get Authorization header
		authHeader := c.GetHeader("Authorization")
		tokenString := ""
		if authHeader != "" {
			// Extract token from "Bearer <token>"
			parts := strings.Split(authHeader, " ")
			if len(parts) == 2 && parts[0] == "Bearer" {
				tokenString = parts[1]
			}
		}
		// Fallback for WebSocket/browser where custom headers cannot be set: allow token in query param
		if tokenString == "" {
			tokenString = c.Query("token")
		}
		if tokenString == "" {
			c.JSON(http.StatusUnauthorized, gin.H{
				"error": "Authorization token is required",
			})
			c.Abort()
			return
		}

		current, ok := tokens.Token()
		if !ok || tokenString != current {
			c.JSON(http.StatusUnauthorized, gin.H{
				"error": "Admin elevation required",
			})
			c.Abort()
			return
		}

		c.Next()
	}
}
