package services

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"roboka-backend/internal/ai"
	"roboka-backend/internal/logger"
	"roboka-backend/internal/telemetry"
	"roboka-backend/models"
)

// ReplyGenerator produces a validated reply pair and never fails; a
// fallback pair is substituted internally when the model does.
type ReplyGenerator interface {
	Generate(ctx context.Context, req ai.GenerationRequest) models.GenerateResult
}

// PlatformClient is the slice of the Graph API the pipeline touches:
// caption fetch for generation context and the public reply dispatch.
type PlatformClient interface {
	GetPostCaption(ctx context.Context, accessToken, mediaID string) (string, error)
	ReplyToComment(ctx context.Context, accessToken, commentID, message string) (string, error)
}

// ReplyCounter records a successful dispatch against the campaign that
// caused it.
type ReplyCounter interface {
	IncrementReplies(ctx context.Context, campaignID string) error
}

// ProcessSummary reports what one webhook delivery did. Failures per event
// are absorbed; the summary is the only signal besides logs.
type ProcessSummary struct {
	Events     int
	Duplicates int
	Matched    int
	Dispatched int
	Fallbacks  int
	Failed     int
}

// EngagementService drives match → caption → generate → dispatch for each
// comment event of a webhook delivery. Events are processed sequentially
// and in isolation: one event failing never stops the rest of the batch.
type EngagementService struct {
	matcher      *CampaignMatcher
	generator    ReplyGenerator
	platform     PlatformClient
	counter      ReplyCounter
	deduper      CommentDeduper
	metrics      *telemetry.Metrics
	graphTimeout time.Duration
}

func NewEngagementService(
	matcher *CampaignMatcher,
	generator ReplyGenerator,
	platform PlatformClient,
	counter ReplyCounter,
	deduper CommentDeduper,
	metrics *telemetry.Metrics,
	graphTimeout time.Duration,
) *EngagementService {
	if graphTimeout <= 0 {
		graphTimeout = 10 * time.Second
	}
	return &EngagementService{
		matcher:      matcher,
		generator:    generator,
		platform:     platform,
		counter:      counter,
		deduper:      deduper,
		metrics:      metrics,
		graphTimeout: graphTimeout,
	}
}

// ProcessNotification runs the pipeline for every comment event in the
// notification using the given credential. The caller has already verified
// the object type and that a credential exists.
func (s *EngagementService) ProcessNotification(ctx context.Context, cred models.AccountCredential, notification *models.WebhookNotification) ProcessSummary {
	tracer := otel.Tracer("engagement")
	ctx, span := tracer.Start(ctx, "webhook.process_notification")
	defer span.End()

	var summary ProcessSummary
	for _, event := range notification.CommentEvents() {
		summary.Events++
		s.processEvent(ctx, cred, event, &summary)
	}

	span.SetAttributes(
		attribute.Int("webhook.events", summary.Events),
		attribute.Int("webhook.matched", summary.Matched),
		attribute.Int("webhook.dispatched", summary.Dispatched),
	)
	return summary
}

func (s *EngagementService) processEvent(ctx context.Context, cred models.AccountCredential, event models.CommentEvent, summary *ProcessSummary) {
	if s.metrics != nil {
		s.metrics.RecordCommentEvent(event.MediaID)
	}

	logger.Debug("New comment event", "comment_id", event.CommentID, "media_id", event.MediaID)

	if s.deduper != nil {
		first, err := s.deduper.MarkSeen(ctx, event.CommentID)
		if err != nil {
			// Fail open: a Redis outage must not stall engagement.
			logger.Warn("Comment dedupe unavailable", "error", err, "comment_id", event.CommentID)
		} else if !first {
			logger.Info("Skipping duplicate comment delivery", "comment_id", event.CommentID)
			summary.Duplicates++
			return
		}
	}

	campaign, err := s.matcher.Match(ctx, event.MediaID, event.Text)
	if err != nil {
		logger.Error("Campaign lookup failed", "error", err, "media_id", event.MediaID)
		summary.Failed++
		return
	}
	if campaign == nil {
		// Not an error, simply nothing to do for this comment.
		return
	}

	summary.Matched++
	if s.metrics != nil {
		s.metrics.RecordMatch(campaign.ID, campaign.Tone)
	}
	logger.Info("Keyword matched, generating reply",
		"campaign_id", campaign.ID, "keyword", campaign.Keyword, "comment_id", event.CommentID)

	captionCtx, cancel := context.WithTimeout(ctx, s.graphTimeout)
	caption, err := s.platform.GetPostCaption(captionCtx, cred.AccessToken, event.MediaID)
	cancel()
	if err != nil {
		// No caption means no safe generation context; skip this event only.
		logger.Error("Caption fetch failed, skipping event", "error", err, "media_id", event.MediaID)
		summary.Failed++
		return
	}

	result := s.generator.Generate(ctx, ai.GenerationRequest{
		CommentText: event.Text,
		Keyword:     campaign.Keyword,
		PostCaption: caption,
		Tone:        campaign.Tone,
	})
	if result.Fallback {
		summary.Fallbacks++
		if s.metrics != nil {
			s.metrics.RecordFallback(campaign.Tone)
		}
	}

	s.dispatch(ctx, cred, event, campaign, result.Reply, summary)
}

func (s *EngagementService) dispatch(ctx context.Context, cred models.AccountCredential, event models.CommentEvent, campaign *models.Campaign, reply models.GeneratedReply, summary *ProcessSummary) {
	// A reply, once initiated, should complete or fail on its own terms:
	// detach from the inbound request so a client disconnect cannot leave
	// the dispatch ambiguous.
	dispatchCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.graphTimeout)
	defer cancel()

	start := time.Now()
	replyID, err := s.platform.ReplyToComment(dispatchCtx, cred.AccessToken, event.CommentID, reply.PublicReply)
	duration := time.Since(start).Seconds()

	if s.metrics != nil {
		s.metrics.RecordDispatch(err == nil, duration)
	}

	if err != nil {
		// Fatal for this event only; the batch moves on. No retry: the
		// comment is already marked seen, so a redelivery will not re-fire.
		logger.Error("Reply dispatch failed", "error", err, "comment_id", event.CommentID, "campaign_id", campaign.ID)
		summary.Failed++
		return
	}

	summary.Dispatched++
	logger.Info("Reply dispatched", "comment_id", event.CommentID, "reply_id", replyID, "campaign_id", campaign.ID)

	if s.counter != nil {
		if err := s.counter.IncrementReplies(dispatchCtx, campaign.ID); err != nil {
			logger.Warn("Failed to increment replies count", "error", err, "campaign_id", campaign.ID)
		}
	}
}
