package routes

import (
	"net/http"

	"roboka-backend/internal/config"
	"roboka-backend/internal/instagram"
	"roboka-backend/internal/logger"
	"roboka-backend/middleware"
	"roboka-backend/services"
	"roboka-backend/utils"

	"github.com/gin-gonic/gin"
)

func SetupPostRoutes(router *gin.Engine, cfg *config.Config, accounts *services.AccountStore, graph *instagram.Client, authMiddleware *middleware.AuthMiddleware) {
	posts := router.Group("/api/posts")
	posts.Use(authMiddleware.RequireSession())

	// Posts of the connected account, for campaign targeting in the dashboard
	posts.GET("", func(c *gin.Context) {
		cred, err := accounts.Current(c.Request.Context())
		if err != nil {
			utils.RespondWithInternalError(c, "Failed to load account", nil)
			return
		}
		if cred == nil {
			utils.RespondWithUnauthorized(c, "No account connected")
			return
		}

		media, err := graph.GetUserMedia(c.Request.Context(), cred.AccessToken, cred.InstagramAccountID)
		if err != nil {
			logger.Error("Failed to fetch posts", "error", err)
			utils.RespondWithInternalError(c, "Failed to fetch posts", nil)
			return
		}
		c.JSON(http.StatusOK, media)
	})
}
