package config

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

func ConnectMongoDB(cfg *Config) (*mongo.Client, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.MongoURI))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %v", err)
	}

	// Test connection
	err = client.Ping(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to ping MongoDB: %v", err)
	}

	// Create indexes
	err = createIndexes(client, cfg.DBName)
	if err != nil {
		return nil, fmt.Errorf("failed to create indexes: %v", err)
	}

	return client, nil
}

func createIndexes(client *mongo.Client, dbName string) error {
	db := client.Database(dbName)

	// Campaigns: the matcher queries by post + status and relies on
	// created_at for deterministic first-active ordering.
	campaignsCollection := db.Collection("campaigns")
	campaignIndexes := []mongo.IndexModel{
		{
			Keys: bson.D{{Key: "post_id", Value: 1}, {Key: "status", Value: 1}, {Key: "created_at", Value: 1}},
		},
		{
			Keys: bson.D{{Key: "status", Value: 1}},
		},
	}
	_, err := campaignsCollection.Indexes().CreateMany(context.Background(), campaignIndexes)
	if err != nil {
		return err
	}

	// Accounts collection holds a single credential document; index status
	// so the session lookup stays cheap even if history accumulates.
	accountsCollection := db.Collection("accounts")
	accountIndexes := []mongo.IndexModel{
		{
			Keys: bson.D{{Key: "status", Value: 1}},
		},
		{
			Keys: bson.D{{Key: "updated_at", Value: -1}},
		},
	}
	_, err = accountsCollection.Indexes().CreateMany(context.Background(), accountIndexes)
	if err != nil {
		return err
	}

	return nil
}
