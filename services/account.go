package services

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"roboka-backend/models"
)

// The system operates as exactly one business account, so the credential
// lives in a single well-known document. Reconnect replaces it, disconnect
// clears the token and flips the status.
const singletonAccountID = "singleton_account"

type AccountStore struct {
	col *mongo.Collection
}

func NewAccountStore(db *mongo.Database) *AccountStore {
	return &AccountStore{col: db.Collection("accounts")}
}

// Current returns the connected credential, or nil when no account is
// connected. A disconnected credential is reported as absent.
func (s *AccountStore) Current(ctx context.Context) (*models.AccountCredential, error) {
	var cred models.AccountCredential
	err := s.col.FindOne(ctx, bson.M{"_id": singletonAccountID}).Decode(&cred)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, err
	}
	if !cred.Connected() {
		return nil, nil
	}
	return &cred, nil
}

// Replace stores a freshly connected credential, overwriting whatever was
// there before.
func (s *AccountStore) Replace(ctx context.Context, accessToken, instagramAccountID string, tokenExpiresAt time.Time) (*models.AccountCredential, error) {
	now := time.Now()
	cred := models.AccountCredential{
		ID:                 singletonAccountID,
		AccessToken:        accessToken,
		InstagramAccountID: instagramAccountID,
		Status:             models.AccountConnected,
		TokenExpiresAt:     tokenExpiresAt,
		ConnectedAt:        now,
		UpdatedAt:          now,
	}

	opts := options.Replace().SetUpsert(true)
	if _, err := s.col.ReplaceOne(ctx, bson.M{"_id": singletonAccountID}, cred, opts); err != nil {
		return nil, err
	}
	return &cred, nil
}

// UpdateToken swaps in a refreshed access token without touching the rest
// of the credential.
func (s *AccountStore) UpdateToken(ctx context.Context, accessToken string, tokenExpiresAt time.Time) error {
	update := bson.M{"$set": bson.M{
		"access_token":     accessToken,
		"token_expires_at": tokenExpiresAt,
		"updated_at":       time.Now(),
	}}
	_, err := s.col.UpdateOne(ctx, bson.M{"_id": singletonAccountID}, update)
	return err
}

// Disconnect clears the stored token and marks the account disconnected.
func (s *AccountStore) Disconnect(ctx context.Context) error {
	update := bson.M{"$set": bson.M{
		"access_token": "",
		"status":       models.AccountDisconnected,
		"updated_at":   time.Now(),
	}}
	_, err := s.col.UpdateOne(ctx, bson.M{"_id": singletonAccountID}, update)
	return err
}
