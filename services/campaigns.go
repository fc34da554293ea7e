package services

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"roboka-backend/models"
)

var ErrCampaignNotFound = errors.New("campaign not found")

type CampaignStore struct {
	col *mongo.Collection
}

func NewCampaignStore(db *mongo.Database) *CampaignStore {
	return &CampaignStore{col: db.Collection("campaigns")}
}

// ListActiveByPost returns the active campaigns targeting a post, oldest
// first. The matcher depends on this ordering to pick deterministically
// when several campaigns share a post.
func (s *CampaignStore) ListActiveByPost(ctx context.Context, postID string) ([]models.Campaign, error) {
	filter := bson.M{"post_id": postID, "status": models.CampaignActive}
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}})

	cursor, err := s.col.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var campaigns []models.Campaign
	if err := cursor.All(ctx, &campaigns); err != nil {
		return nil, err
	}
	return campaigns, nil
}

// List returns every campaign, newest first, for the dashboard.
func (s *CampaignStore) List(ctx context.Context) ([]models.Campaign, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})

	cursor, err := s.col.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var campaigns []models.Campaign
	if err := cursor.All(ctx, &campaigns); err != nil {
		return nil, err
	}
	return campaigns, nil
}

func (s *CampaignStore) Create(ctx context.Context, req models.CreateCampaignRequest) (*models.Campaign, error) {
	now := time.Now()
	status := req.Status
	if status == "" {
		status = models.CampaignActive
	}

	campaign := models.Campaign{
		ID:           uuid.NewString(),
		PostID:       req.PostID,
		Keyword:      req.Keyword,
		Tone:         req.Tone,
		Status:       status,
		RepliesCount: 0,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if _, err := s.col.InsertOne(ctx, campaign); err != nil {
		return nil, err
	}
	return &campaign, nil
}

func (s *CampaignStore) Update(ctx context.Context, id string, req models.UpdateCampaignRequest) (*models.Campaign, error) {
	set := bson.M{"updated_at": time.Now()}
	if req.Keyword != nil {
		set["keyword"] = *req.Keyword
	}
	if req.Tone != nil {
		set["tone"] = *req.Tone
	}
	if req.Status != nil {
		set["status"] = *req.Status
	}

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var campaign models.Campaign
	err := s.col.FindOneAndUpdate(ctx, bson.M{"_id": id}, bson.M{"$set": set}, opts).Decode(&campaign)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrCampaignNotFound
		}
		return nil, err
	}
	return &campaign, nil
}

func (s *CampaignStore) Delete(ctx context.Context, id string) error {
	res, err := s.col.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return ErrCampaignNotFound
	}
	return nil
}

// IncrementReplies bumps the dispatch counter of exactly the campaign that
// matched. Atomic so concurrent deliveries cannot lose counts.
func (s *CampaignStore) IncrementReplies(ctx context.Context, id string) error {
	update := bson.M{
		"$inc": bson.M{"replies_count": 1},
		"$set": bson.M{"updated_at": time.Now()},
	}
	res, err := s.col.UpdateOne(ctx, bson.M{"_id": id}, update)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrCampaignNotFound
	}
	return nil
}
