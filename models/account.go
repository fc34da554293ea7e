package models

import (
	"time"
)

// Account connection states. The credential lifecycle is explicit:
// connecting during the OAuth exchange, connected once the Instagram
// business account id is resolved, disconnected after an operator logout.
const (
	AccountConnected    = "connected"
	AccountDisconnected = "disconnected"
)

// AccountCredential is the singleton credential for the one connected
// business account. Replaced wholesale on reconnect, read-only everywhere
// else. Multi-account operation is intentionally unsupported.
type AccountCredential struct {
	ID                 string    `bson:"_id" json:"id"`
	AccessToken        string    `bson:"access_token" json:"-"`
	InstagramAccountID string    `bson:"instagram_account_id" json:"instagram_account_id"`
	Status             string    `bson:"status" json:"status"`
	TokenExpiresAt     time.Time `bson:"token_expires_at,omitempty" json:"token_expires_at,omitempty"`
	ConnectedAt        time.Time `bson:"connected_at" json:"connected_at"`
	UpdatedAt          time.Time `bson:"updated_at" json:"updated_at"`
}

// Connected reports whether the credential can authenticate Graph API calls.
func (a *AccountCredential) Connected() bool {
	return a != nil && a.Status == AccountConnected && a.AccessToken != ""
}
