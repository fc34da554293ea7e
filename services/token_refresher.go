package services

import (
	"context"
	"time"

	"github.com/go-co-op/gocron"

	"roboka-backend/internal/instagram"
	"roboka-backend/internal/logger"
)

// Long-lived Graph API tokens expire after roughly 60 days. Refresh once
// the remaining lifetime drops below this window.
const refreshWindow = 15 * 24 * time.Hour

// TokenRefresher keeps the stored credential's long-lived token fresh with
// a daily exchange job.
type TokenRefresher struct {
	scheduler *gocron.Scheduler
	accounts  *AccountStore
	graph     *instagram.Client
}

func NewTokenRefresher(accounts *AccountStore, graph *instagram.Client) *TokenRefresher {
	s := gocron.NewScheduler(time.UTC)
	s.TagsUnique()

	return &TokenRefresher{
		scheduler: s,
		accounts:  accounts,
		graph:     graph,
	}
}

// Start schedules the daily refresh check.
func (t *TokenRefresher) Start() error {
	_, err := t.scheduler.Every(24 * time.Hour).Tag("token-refresh").Do(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := t.RefreshIfNeeded(ctx); err != nil {
			logger.Error("Token refresh failed", "error", err)
		}
	})
	if err != nil {
		return err
	}

	t.scheduler.StartAsync()
	return nil
}

func (t *TokenRefresher) Stop() {
	t.scheduler.Stop()
}

// RefreshIfNeeded exchanges the current token for a fresh long-lived one
// when it is close to expiry. A missing account or a comfortable expiry is
// a no-op.
func (t *TokenRefresher) RefreshIfNeeded(ctx context.Context) error {
	cred, err := t.accounts.Current(ctx)
	if err != nil {
		return err
	}
	if cred == nil {
		return nil
	}
	if !cred.TokenExpiresAt.IsZero() && time.Until(cred.TokenExpiresAt) > refreshWindow {
		return nil
	}

	token, ttl, err := t.graph.ExchangeForLongLivedToken(ctx, cred.AccessToken)
	if err != nil {
		return err
	}

	expiresAt := time.Time{}
	if ttl > 0 {
		expiresAt = time.Now().Add(ttl)
	}
	if err := t.accounts.UpdateToken(ctx, token, expiresAt); err != nil {
		return err
	}

	logger.Info("Access token refreshed", "instagram_account_id", cred.InstagramAccountID, "expires_at", expiresAt)
	return nil
}
