package services

import (
	"context"
	"strings"

	"roboka-backend/models"
)

// ActiveCampaignLister is the slice of the campaign store the matcher
// needs: active campaigns for one post, in insertion order.
type ActiveCampaignLister interface {
	ListActiveByPost(ctx context.Context, postID string) ([]models.Campaign, error)
}

// CampaignMatcher decides which campaign, if any, reacts to a comment.
type CampaignMatcher struct {
	store ActiveCampaignLister
}

func NewCampaignMatcher(store ActiveCampaignLister) *CampaignMatcher {
	return &CampaignMatcher{store: store}
}

// Match returns the first active campaign on the post whose keyword occurs
// in the comment text. Matching is a literal case-sensitive substring
// check; partial-word hits count. A nil campaign with a nil error means
// nothing to do, not a failure.
func (m *CampaignMatcher) Match(ctx context.Context, mediaID, commentText string) (*models.Campaign, error) {
	campaigns, err := m.store.ListActiveByPost(ctx, mediaID)
	if err != nil {
		return nil, err
	}

	for i := range campaigns {
		if strings.Contains(commentText, campaigns[i].Keyword) {
			return &campaigns[i], nil
		}
	}
	return nil, nil
}
