package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"tawk-service/internal/auth"
	"tawk-service/internal/repositories"
)

// Auth validates the Bearer token (Authorization header or jwt cookie),
// checks the user still exists and that the password was not rotated after
// the token was issued, then stores the user id in the gin context.
func Auth(tokens *auth.TokenManager, users repositories.UserRepository) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := bearerToken(c)
		if token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing authorization"})
			return
		}

		userID, issuedAt, err := tokens.Parse(token)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}

		user, err := users.GetByID(c.Request.Context(), userID)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "user no longer exists"})
			return
		}
		if user.PasswordChangedAfter(issuedAt) {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "password changed, please log in again"})
			return
		}

		c.Set("userID", user.ID)
		c.Next()
	}
}

func bearerToken(c *gin.Context) string {
	header := c.GetHeader("Authorization")
	if header != "" {
		parts := strings.SplitN(header, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "bearer") {
			return parts[1]
		}
		return ""
	}

	if cookie, err := c.Cookie("jwt"); err == nil {
		return cookie
	}
	return ""
}
