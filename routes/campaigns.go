package routes

import (
	"errors"
	"net/http"

	"roboka-backend/internal/config"
	"roboka-backend/middleware"
	"roboka-backend/models"
	"roboka-backend/services"
	"roboka-backend/utils"

	"github.com/gin-gonic/gin"
)

func SetupCampaignRoutes(router *gin.Engine, cfg *config.Config, store *services.CampaignStore, authMiddleware *middleware.AuthMiddleware) {
	campaigns := router.Group("/api/campaigns")
	campaigns.Use(authMiddleware.RequireSession())

	campaigns.GET("", func(c *gin.Context) {
		list, err := store.List(c.Request.Context())
		if err != nil {
			utils.RespondWithInternalError(c, "Failed to list campaigns", nil)
			return
		}
		c.JSON(http.StatusOK, list)
	})

	campaigns.POST("", func(c *gin.Context) {
		var req models.CreateCampaignRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			utils.RespondWithBadRequest(c, "Invalid campaign data", gin.H{"error": err.Error()})
			return
		}

		campaign, err := store.Create(c.Request.Context(), req)
		if err != nil {
			utils.RespondWithInternalError(c, "Failed to create campaign", nil)
			return
		}
		c.JSON(http.StatusCreated, campaign)
	})

	campaigns.PUT("/:id", func(c *gin.Context) {
		var req models.UpdateCampaignRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			utils.RespondWithBadRequest(c, "Invalid campaign data", gin.H{"error": err.Error()})
			return
		}

		campaign, err := store.Update(c.Request.Context(), c.Param("id"), req)
		if err != nil {
			if errors.Is(err, services.ErrCampaignNotFound) {
				utils.RespondWithNotFound(c, "Campaign not found")
				return
			}
			utils.RespondWithInternalError(c, "Failed to update campaign", nil)
			return
		}
		c.JSON(http.StatusOK, campaign)
	})

	campaigns.DELETE("/:id", func(c *gin.Context) {
		if err := store.Delete(c.Request.Context(), c.Param("id")); err != nil {
			if errors.Is(err, services.ErrCampaignNotFound) {
				utils.RespondWithNotFound(c, "Campaign not found")
				return
			}
			utils.RespondWithInternalError(c, "Failed to delete campaign", nil)
			return
		}
		c.Status(http.StatusNoContent)
	})
}
