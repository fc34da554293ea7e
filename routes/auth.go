package routes

import (
	"net/http"
	"time"

	"roboka-backend/internal/auth"
	"roboka-backend/internal/config"
	"roboka-backend/internal/instagram"
	"roboka-backend/internal/logger"
	"roboka-backend/middleware"
	"roboka-backend/services"
	"roboka-backend/utils"

	"github.com/gin-gonic/gin"
)

func SetupAuthRoutes(router *gin.Engine, cfg *config.Config, accounts *services.AccountStore, graph *instagram.Client, authMiddleware *middleware.AuthMiddleware) {
	// Redirect the operator to the Facebook OAuth dialog
	router.GET("/auth/facebook", func(c *gin.Context) {
		c.Redirect(http.StatusFound, graph.LoginURL())
	})

	router.GET("/auth/facebook/callback", func(c *gin.Context) {
		code := c.Query("code")
		if code == "" {
			utils.RespondWithBadRequest(c, "Authorization code is missing", nil)
			return
		}

		ctx := c.Request.Context()

		shortToken, err := graph.ExchangeCodeForToken(ctx, code)
		if err != nil {
			logger.Error("OAuth code exchange failed", "error", err)
			utils.RespondWithInternalError(c, "Failed to authenticate with Facebook", nil)
			return
		}

		// Upgrade immediately so the stored credential survives ~60 days
		// instead of an hour.
		longToken, ttl, err := graph.ExchangeForLongLivedToken(ctx, shortToken)
		if err != nil {
			logger.Warn("Long-lived token exchange failed, keeping short-lived token", "error", err)
			longToken, ttl = shortToken, 0
		}

		instagramAccountID, err := graph.GetInstagramAccountID(ctx, longToken)
		if err != nil {
			logger.Error("Instagram account resolution failed", "error", err)
			utils.RespondWithInternalError(c, "Failed to resolve Instagram business account", nil)
			return
		}

		expiresAt := time.Time{}
		if ttl > 0 {
			expiresAt = time.Now().Add(ttl)
		}
		if _, err := accounts.Replace(ctx, longToken, instagramAccountID, expiresAt); err != nil {
			logger.Error("Failed to store account credential", "error", err)
			utils.RespondWithInternalError(c, "Failed to store account credential", nil)
			return
		}

		sessionToken, exp, err := auth.IssueSessionToken(cfg.SessionSecret, instagramAccountID)
		if err != nil {
			logger.Error("Failed to issue session token", "error", err)
			utils.RespondWithInternalError(c, "Failed to create session", nil)
			return
		}

		secure := cfg.GinMode == "release"
		c.SetSameSite(http.SameSiteLaxMode)
		c.SetCookie(middleware.SessionCookie, sessionToken, int(time.Until(exp).Seconds()), "/", "", secure, true)

		logger.Info("Account connected", "instagram_account_id", instagramAccountID)
		c.Redirect(http.StatusFound, "/")
	})

	// Session status for the dashboard
	router.GET("/auth/session", func(c *gin.Context) {
		cred, err := accounts.Current(c.Request.Context())
		if err != nil {
			utils.RespondWithInternalError(c, "Failed to load account", nil)
			return
		}
		if cred == nil {
			c.JSON(http.StatusOK, gin.H{"connected": false})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"connected":            true,
			"instagram_account_id": cred.InstagramAccountID,
			"connected_at":         cred.ConnectedAt,
		})
	})

	// Explicit disconnect clears the credential; reconnecting replaces it
	router.POST("/auth/disconnect", authMiddleware.RequireSession(), func(c *gin.Context) {
		if err := accounts.Disconnect(c.Request.Context()); err != nil {
			logger.Error("Failed to disconnect account", "error", err)
			utils.RespondWithInternalError(c, "Failed to disconnect account", nil)
			return
		}
		c.SetCookie(middleware.SessionCookie, "", -1, "/", "", cfg.GinMode == "release", true)
		c.Status(http.StatusNoContent)
	})
}
