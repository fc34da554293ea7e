package middleware

import (
	"strings"

	"roboka-backend/internal/auth"
	"roboka-backend/internal/config"
	"roboka-backend/utils"

	"github.com/gin-gonic/gin"
)

const SessionCookie = "session_token"

type AuthMiddleware struct {
	config *config.Config
}

func NewAuthMiddleware(cfg *config.Config) *AuthMiddleware {
	return &AuthMiddleware{config: cfg}
}

// RequireSession gates the dashboard API behind the session token issued
// at the OAuth callback.
func (a *AuthMiddleware) RequireSession() gin.HandlerFunc {
	return func(c *gin.Context) {
		var tokenString string

		if authHeader := c.GetHeader("Authorization"); authHeader != "" {
			tokenString = strings.TrimPrefix(authHeader, "Bearer ")
		}

		// Fall back to the cookie set at the OAuth callback
		if tokenString == "" {
			if cookie, err := c.Cookie(SessionCookie); err == nil {
				tokenString = cookie
			}
		}

		if tokenString == "" {
			utils.RespondWithUnauthorized(c, "Session token is required")
			c.Abort()
			return
		}

		claims, err := auth.ValidateSessionToken(a.config.SessionSecret, tokenString)
		if err != nil {
			utils.RespondWithUnauthorized(c, "Invalid or expired session")
			c.Abort()
			return
		}

		c.Set("instagram_account_id", claims.InstagramAccountID)
		c.Next()
	}
}
