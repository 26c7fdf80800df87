package handlers

import (
	"net/http"
	"strings"

	"sommelier-backend/service"

	"github.com/gin-gonic/gin"
)

// emailKey is the gin context key holding the authenticated email
const emailKey = "email"

// Identity resolves an optional bearer token into the request context.
// Missing or invalid tokens are not an error here; endpoints that need an
// identity chain RequireAuth after this.
func Identity(auth *service.AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			c.Next()
			return
		}

		token := strings.TrimPrefix(header, "Bearer ")
		if token == header {
			c.Next()
			return
		}

		email, err := auth.VerifyToken(token)
		if err == nil {
			c.Set(emailKey, email)
		}
		c.Next()
	}
}

// RequireAuth aborts with 401 unless Identity resolved an email
func RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := c.Get(emailKey); !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"success": false,
				"error": gin.H{
					"code":    "UNAUTHENTICATED",
					"message": "Not authenticated",
				},
			})
			return
		}
		c.Next()
	}
}

// MethodNotAllowed replies to requests whose method has no route on an
// existing path. Registered as the router's NoMethod handler so the body is
// JSON like every other error response.
func MethodNotAllowed() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusMethodNotAllowed, gin.H{"error": "Method not allowed"})
	}
}

// sessionEmail returns the authenticated email, empty for anonymous callers
func sessionEmail(c *gin.Context) string {
	if v, ok := c.Get(emailKey); ok {
		if email, ok := v.(string); ok {
			return email
		}
	}
	return ""
}
