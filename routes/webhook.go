package routes

import (
	"context"
	"net/http"

	"roboka-backend/internal/config"
	"roboka-backend/internal/logger"
	"roboka-backend/models"
	"roboka-backend/services"
	"roboka-backend/utils"

	"github.com/gin-gonic/gin"
)

// AccountSession supplies the currently connected credential, or nil when
// no account is connected.
type AccountSession interface {
	Current(ctx context.Context) (*models.AccountCredential, error)
}

// NotificationProcessor runs the engagement pipeline for one delivery.
type NotificationProcessor interface {
	ProcessNotification(ctx context.Context, cred models.AccountCredential, notification *models.WebhookNotification) services.ProcessSummary
}

func SetupWebhookRoutes(router *gin.Engine, cfg *config.Config, accounts AccountSession, processor NotificationProcessor) {
	// Meta subscription verification handshake
	router.GET("/webhook", func(c *gin.Context) {
		mode := c.Query("hub.mode")
		token := c.Query("hub.verify_token")
		challenge := c.Query("hub.challenge")

		if mode == "subscribe" && token == cfg.WebhookVerifyToken {
			c.String(http.StatusOK, challenge)
			return
		}
		c.Status(http.StatusForbidden)
	})

	router.POST("/webhook", func(c *gin.Context) {
		var notification models.WebhookNotification
		if err := c.ShouldBindJSON(&notification); err != nil {
			utils.RespondWithBadRequest(c, "Malformed webhook payload", gin.H{"error": err.Error()})
			return
		}

		// Notifications for other object types are not ours to handle.
		if notification.Object != models.WebhookObjectInstagram {
			c.Status(http.StatusNotFound)
			return
		}

		cred, err := accounts.Current(c.Request.Context())
		if err != nil {
			logger.Error("Account lookup failed during webhook", "error", err)
			utils.RespondWithInternalError(c, "Failed to load connected account", nil)
			return
		}
		if cred == nil {
			// Operator-fixable precondition: nothing downstream can succeed
			// without a credential, so this one surfaces loudly.
			logger.Error("Cannot process webhook, no connected account")
			utils.RespondWithInternalError(c, "No account connected", nil)
			return
		}

		summary := processor.ProcessNotification(c.Request.Context(), *cred, &notification)
		if summary.Failed > 0 {
			logger.Warn("Webhook batch completed with failures",
				"events", summary.Events, "dispatched", summary.Dispatched, "failed", summary.Failed)
		}

		// Always acknowledge business-logic outcomes, success or partial
		// failure; Meta retry-storms on anything else.
		c.String(http.StatusOK, "EVENT_RECEIVED")
	})
}
