package instagram

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"roboka-backend/internal/config"
)

// OAuth scopes the connect flow requests from Facebook.
var oauthScopes = []string{
	"instagram_basic",
	"instagram_manage_comments",
	"pages_show_list",
	"pages_read_engagement",
}

// Client talks to the Facebook Graph API for the connected Instagram
// business account: media listing, caption fetch, comment replies and the
// OAuth token exchange.
type Client struct {
	BaseURL     string
	AppID       string
	AppSecret   string
	RedirectURI string
	HTTPClient  *http.Client
}

func NewClient(cfg *config.Config) *Client {
	return &Client{
		BaseURL:     cfg.GraphAPIBaseURL,
		AppID:       cfg.FacebookAppID,
		AppSecret:   cfg.FacebookAppSecret,
		RedirectURI: cfg.FacebookRedirectURI,
		HTTPClient: &http.Client{
			Timeout: time.Duration(cfg.GraphTimeout) * time.Second,
		},
	}
}

// LoginURL builds the Facebook OAuth dialog URL the operator is redirected
// to when connecting an account.
func (c *Client) LoginURL() string {
	params := url.Values{}
	params.Set("client_id", c.AppID)
	params.Set("redirect_uri", c.RedirectURI)
	params.Set("scope", strings.Join(oauthScopes, ","))
	params.Set("response_type", "code")
	return "https://www.facebook.com/v19.0/dialog/oauth?" + params.Encode()
}

// ExchangeCodeForToken trades an OAuth authorization code for a short-lived
// user access token.
func (c *Client) ExchangeCodeForToken(ctx context.Context, code string) (string, error) {
	params := url.Values{}
	params.Set("client_id", c.AppID)
	params.Set("client_secret", c.AppSecret)
	params.Set("redirect_uri", c.RedirectURI)
	params.Set("code", code)

	var resp tokenResponse
	if err := c.get(ctx, "/oauth/access_token", params, &resp); err != nil {
		return "", fmt.Errorf("failed to exchange code for token: %w", err)
	}
	if resp.AccessToken == "" {
		return "", fmt.Errorf("token exchange returned no access token")
	}
	return resp.AccessToken, nil
}

// ExchangeForLongLivedToken upgrades a short-lived token to a long-lived
// one (~60 days). Also used by the refresh job to extend a token before it
// expires.
func (c *Client) ExchangeForLongLivedToken(ctx context.Context, accessToken string) (string, time.Duration, error) {
	params := url.Values{}
	params.Set("grant_type", "fb_exchange_token")
	params.Set("client_id", c.AppID)
	params.Set("client_secret", c.AppSecret)
	params.Set("fb_exchange_token", accessToken)

	var resp tokenResponse
	if err := c.get(ctx, "/oauth/access_token", params, &resp); err != nil {
		return "", 0, fmt.Errorf("failed to exchange for long-lived token: %w", err)
	}
	if resp.AccessToken == "" {
		return "", 0, fmt.Errorf("long-lived token exchange returned no access token")
	}
	return resp.AccessToken, time.Duration(resp.ExpiresIn) * time.Second, nil
}

// GetInstagramAccountID resolves the Instagram business account behind the
// user's first Facebook page.
func (c *Client) GetInstagramAccountID(ctx context.Context, accessToken string) (string, error) {
	params := url.Values{}
	params.Set("access_token", accessToken)

	var pages pagesResponse
	if err := c.get(ctx, "/me/accounts", params, &pages); err != nil {
		return "", fmt.Errorf("failed to fetch Facebook pages: %w", err)
	}
	if len(pages.Data) == 0 {
		return "", fmt.Errorf("no Facebook pages found for this user")
	}
	pageID := pages.Data[0].ID // Use the first page

	params = url.Values{}
	params.Set("fields", "instagram_business_account")
	params.Set("access_token", accessToken)

	var account businessAccountResponse
	if err := c.get(ctx, "/"+pageID, params, &account); err != nil {
		return "", fmt.Errorf("failed to fetch Instagram account: %w", err)
	}
	if account.InstagramBusinessAccount == nil || account.InstagramBusinessAccount.ID == "" {
		return "", fmt.Errorf("no Instagram business account linked to the Facebook page")
	}
	return account.InstagramBusinessAccount.ID, nil
}

// GetUserMedia lists the connected account's posts, keeping only media
// types a campaign can reasonably target.
func (c *Client) GetUserMedia(ctx context.Context, accessToken, instagramAccountID string) ([]Media, error) {
	params := url.Values{}
	params.Set("fields", "id,caption,media_type,media_url,thumbnail_url,permalink,timestamp,username")
	params.Set("access_token", accessToken)

	var resp mediaListResponse
	if err := c.get(ctx, "/"+instagramAccountID+"/media", params, &resp); err != nil {
		return nil, fmt.Errorf("failed to fetch Instagram posts: %w", err)
	}

	suitable := make([]Media, 0, len(resp.Data))
	for _, item := range resp.Data {
		switch item.MediaType {
		case "IMAGE", "VIDEO", "CAROUSEL_ALBUM":
			suitable = append(suitable, item)
		}
	}
	return suitable, nil
}

// GetPostCaption fetches the caption of a single media item. A post without
// a caption yields an empty string, not an error.
func (c *Client) GetPostCaption(ctx context.Context, accessToken, mediaID string) (string, error) {
	params := url.Values{}
	params.Set("fields", "caption")
	params.Set("access_token", accessToken)

	var resp captionResponse
	if err := c.get(ctx, "/"+mediaID, params, &resp); err != nil {
		return "", fmt.Errorf("failed to fetch caption for media %s: %w", mediaID, err)
	}
	return resp.Caption, nil
}

// ReplyToComment publishes text as a public reply to the given comment and
// returns the id of the created reply.
func (c *Client) ReplyToComment(ctx context.Context, accessToken, commentID, message string) (string, error) {
	params := url.Values{}
	params.Set("message", message)
	params.Set("access_token", accessToken)

	var resp replyResponse
	if err := c.post(ctx, "/"+commentID+"/replies", params, &resp); err != nil {
		return "", fmt.Errorf("failed to reply to comment %s: %w", commentID, err)
	}
	return resp.ID, nil
}

func (c *Client) get(ctx context.Context, path string, params url.Values, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+path+"?"+params.Encode(), nil)
	if err != nil {
		return err
	}
	return c.do(req, out)
}

func (c *Client) post(ctx context.Context, path string, params url.Values, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+path+"?"+params.Encode(), nil)
	if err != nil {
		return err
	}
	return c.do(req, out)
}

func (c *Client) do(req *http.Request, out interface{}) error {
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %v", err)
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("failed to unmarshal response (status %d): %v", resp.StatusCode, err)
	}

	// The Graph API reports failures in the body; surface them with context.
	if apiErr := extractError(out); apiErr != nil {
		return fmt.Errorf("graph API error: %s (type: %s, code: %d)", apiErr.Message, apiErr.Type, apiErr.Code)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("graph API returned status %d", resp.StatusCode)
	}
	return nil
}

func extractError(out interface{}) *apiError {
	switch v := out.(type) {
	case *mediaListResponse:
		return v.Error
	case *captionResponse:
		return v.Error
	case *replyResponse:
		return v.Error
	case *tokenResponse:
		return v.Error
	case *pagesResponse:
		return v.Error
	case *businessAccountResponse:
		return v.Error
	}
	return nil
}
