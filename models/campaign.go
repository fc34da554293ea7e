package models

import (
	"time"
)

// Campaign tones. Tone only changes the register of the generated text,
// never its shape.
const (
	ToneFriendly     = "friendly"
	ToneProfessional = "professional"
	ToneFunny        = "funny"
)

// Campaign statuses.
const (
	CampaignActive = "active"
	CampaignPaused = "paused"
)

// Campaign binds one post, one trigger keyword, a reply tone and an
// active/paused status. Several campaigns may target the same post; the
// matcher picks the first active one in insertion order.
type Campaign struct {
	ID           string    `bson:"_id" json:"id"`
	PostID       string    `bson:"post_id" json:"postId"`
	Keyword      string    `bson:"keyword" json:"keyword"`
	Tone         string    `bson:"tone" json:"tone"`
	Status       string    `bson:"status" json:"status"`
	RepliesCount int       `bson:"replies_count" json:"repliesCount"`
	CreatedAt    time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt    time.Time `bson:"updated_at" json:"updated_at"`
}

type CreateCampaignRequest struct {
	PostID  string `json:"postId" binding:"required"`
	Keyword string `json:"keyword" binding:"required,min=1,max=200"`
	Tone    string `json:"tone" binding:"required,oneof=friendly professional funny"`
	Status  string `json:"status" binding:"omitempty,oneof=active paused"`
}

type UpdateCampaignRequest struct {
	Keyword *string `json:"keyword,omitempty" binding:"omitempty,min=1,max=200"`
	Tone    *string `json:"tone,omitempty" binding:"omitempty,oneof=friendly professional funny"`
	Status  *string `json:"status,omitempty" binding:"omitempty,oneof=active paused"`
}
