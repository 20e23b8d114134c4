package auth

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

const (
	// CookieName is the cookie the web client stores the token in.
	CookieName = "auth_token"

	userContextKey  = "auth_user"
	tokenContextKey = "auth_token"
)

// Middleware resolves the bearer token or auth cookie and stores the user
// in the gin context.
func (s *Service) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := extractToken(c)
		if token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "authorization required"})
			return
		}
		user, err := s.Current(c.Request.Context(), token)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "session expired, please log in again"})
			return
		}
		c.Set(userContextKey, user)
		c.Set(tokenContextKey, token)
		c.Next()
	}
}

// UserFromContext returns the user stored by Middleware.
func UserFromContext(c *gin.Context) (User, bool) {
	val, ok := c.Get(userContextKey)
	if !ok {
		return User{}, false
	}
	u, ok := val.(User)
	return u, ok
}

// TokenFromContext returns the token stored by Middleware.
func TokenFromContext(c *gin.Context) (string, bool) {
	val, ok := c.Get(tokenContextKey)
	if !ok {
		return "", false
	}
	token, ok := val.(string)
	return token, ok
}

func extractToken(c *gin.Context) string {
	header := c.GetHeader("Authorization")
	if strings.HasPrefix(strings.ToLower(header), "bearer ") {
		return strings.TrimSpace(header[7:])
	}
	if token, err := c.Cookie(CookieName); err == nil && token != "" {
		return token
	}
	return ""
}
