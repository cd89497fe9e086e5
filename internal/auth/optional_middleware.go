package auth

import (
	"strings"

	"hasker/backend/internal/service"
	"hasker/backend/pkg/jwt"

	"github.com/gin-gonic/gin"
)

// OptionalAuthMiddleware inspects for a token and sets the userID if present and valid,
// but does not fail if the token is missing or invalid. Tokens for users that
// no longer exist are ignored.
func OptionalAuthMiddleware(secret string, users *service.UserService) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader != "" {
			parts := strings.Split(authHeader, " ")
			if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
				if userID, err := jwt.ParseToken(parts[1], secret); err == nil {
					if user, err := users.Get(userID); err == nil {
						c.Set(UserIDKey, user.ID)
					}
				}
			}
		}
		c.Next()
	}
}
