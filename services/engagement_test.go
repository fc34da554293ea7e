package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"roboka-backend/internal/ai"
	"roboka-backend/models"
)

type fakePlatform struct {
	caption    string
	captionErr error
	replyErr   error

	captionCalls int
	replies      []dispatchedReply
}

type dispatchedReply struct {
	commentID string
	message   string
}

func (f *fakePlatform) GetPostCaption(ctx context.Context, accessToken, mediaID string) (string, error) {
	f.captionCalls++
	if f.captionErr != nil {
		return "", f.captionErr
	}
	return f.caption, nil
}

func (f *fakePlatform) ReplyToComment(ctx context.Context, accessToken, commentID, message string) (string, error) {
	if f.replyErr != nil {
		return "", f.replyErr
	}
	f.replies = append(f.replies, dispatchedReply{commentID: commentID, message: message})
	return "reply_" + commentID, nil
}

type fakeGenerator struct {
	fallback bool
	lastReq  ai.GenerationRequest
}

func (f *fakeGenerator) Generate(ctx context.Context, req ai.GenerationRequest) models.GenerateResult {
	f.lastReq = req
	if f.fallback {
		return models.GenerateResult{
			Reply: models.GeneratedReply{
				PublicReply:   "سلام عزیزم! خوشحالم که نظرت رو گفتی. برات دایرکت فرستادم، چک کن. ❤️",
				DirectMessage: "سلام! این هم اطلاعاتی که برای این پست خواسته بودید. اگر سوالی بود در خدمتم.",
			},
			Fallback: true,
		}
	}
	return models.GenerateResult{
		Reply: models.GeneratedReply{PublicReply: "پاسخ عمومی", DirectMessage: "پیام خصوصی"},
	}
}

type fakeCounter struct {
	increments []string
	err        error
}

func (f *fakeCounter) IncrementReplies(ctx context.Context, campaignID string) error {
	if f.err != nil {
		return f.err
	}
	f.increments = append(f.increments, campaignID)
	return nil
}

type fakeDeduper struct {
	seen map[string]bool
	err  error
}

func (f *fakeDeduper) MarkSeen(ctx context.Context, commentID string) (bool, error) {
	if f.err != nil {
		return false, f.err
	}
	if f.seen == nil {
		f.seen = map[string]bool{}
	}
	if f.seen[commentID] {
		return false, nil
	}
	f.seen[commentID] = true
	return true, nil
}

func notificationFor(events ...models.CommentEvent) *models.WebhookNotification {
	n := &models.WebhookNotification{Object: models.WebhookObjectInstagram}
	for _, ev := range events {
		n.Entry = append(n.Entry, models.WebhookEntry{
			Changes: []models.WebhookChange{{
				Field: models.WebhookFieldComments,
				Value: models.WebhookChangeValue{
					ID:    ev.CommentID,
					Media: models.WebhookMedia{ID: ev.MediaID},
					Text:  ev.Text,
				},
			}},
		})
	}
	return n
}

func testCredential() models.AccountCredential {
	return models.AccountCredential{
		ID:                 "singleton_account",
		AccessToken:        "token",
		InstagramAccountID: "ig_1",
		Status:             models.AccountConnected,
	}
}

func newTestService(store *fakeCampaignLister, gen ReplyGenerator, platform PlatformClient, counter ReplyCounter, deduper CommentDeduper) *EngagementService {
	return NewEngagementService(NewCampaignMatcher(store), gen, platform, counter, deduper, nil, time.Second)
}

func TestProcessNotificationMatchDispatches(t *testing.T) {
	store := &fakeCampaignLister{campaigns: []models.Campaign{
		{ID: "c1", PostID: "m1", Keyword: "قیمت", Tone: models.ToneFriendly, Status: models.CampaignActive},
	}}
	platform := &fakePlatform{caption: "کفش چرم دست‌دوز"}
	gen := &fakeGenerator{}
	counter := &fakeCounter{}

	svc := newTestService(store, gen, platform, counter, nil)
	summary := svc.ProcessNotification(context.Background(), testCredential(),
		notificationFor(models.CommentEvent{CommentID: "cm1", MediaID: "m1", Text: "قیمت چنده؟"}))

	if summary.Matched != 1 || summary.Dispatched != 1 {
		t.Fatalf("unexpected summary: %+v", summary)
	}
	if len(platform.replies) != 1 {
		t.Fatalf("expected exactly one dispatch, got %d", len(platform.replies))
	}
	if platform.replies[0].commentID != "cm1" {
		t.Fatalf("dispatch addressed to %s, want cm1", platform.replies[0].commentID)
	}
	if platform.replies[0].message == "" {
		t.Fatal("dispatched reply must be non-empty")
	}
	if gen.lastReq.PostCaption != "کفش چرم دست‌دوز" {
		t.Fatalf("generator did not receive the fetched caption: %q", gen.lastReq.PostCaption)
	}
	if len(counter.increments) != 1 || counter.increments[0] != "c1" {
		t.Fatalf("replies count increment misattributed: %v", counter.increments)
	}
}

func TestProcessNotificationPausedCampaign(t *testing.T) {
	store := &fakeCampaignLister{campaigns: []models.Campaign{
		{ID: "c1", PostID: "m1", Keyword: "قیمت", Tone: models.ToneFriendly, Status: models.CampaignPaused},
	}}
	platform := &fakePlatform{caption: "caption"}

	svc := newTestService(store, &fakeGenerator{}, platform, &fakeCounter{}, nil)
	summary := svc.ProcessNotification(context.Background(), testCredential(),
		notificationFor(models.CommentEvent{CommentID: "cm1", MediaID: "m1", Text: "قیمت چنده؟"}))

	if summary.Matched != 0 || summary.Dispatched != 0 {
		t.Fatalf("paused campaign must not trigger: %+v", summary)
	}
	if len(platform.replies) != 0 {
		t.Fatalf("expected zero dispatches, got %d", len(platform.replies))
	}
}

func TestProcessNotificationNoKeywordMatch(t *testing.T) {
	store := &fakeCampaignLister{campaigns: []models.Campaign{
		{ID: "c1", PostID: "m1", Keyword: "قیمت", Status: models.CampaignActive},
	}}
	platform := &fakePlatform{caption: "caption"}

	svc := newTestService(store, &fakeGenerator{}, platform, &fakeCounter{}, nil)
	summary := svc.ProcessNotification(context.Background(), testCredential(),
		notificationFor(models.CommentEvent{CommentID: "cm1", MediaID: "m1", Text: "چه پست قشنگی"}))

	if summary.Dispatched != 0 || len(platform.replies) != 0 {
		t.Fatalf("no-match comment must not dispatch: %+v", summary)
	}
	if summary.Failed != 0 {
		t.Fatal("no match is not a failure")
	}
}

func TestProcessNotificationGeneratorFallbackStillDispatches(t *testing.T) {
	store := &fakeCampaignLister{campaigns: []models.Campaign{
		{ID: "c1", PostID: "m1", Keyword: "قیمت", Status: models.CampaignActive},
	}}
	platform := &fakePlatform{caption: "caption"}

	svc := newTestService(store, &fakeGenerator{fallback: true}, platform, &fakeCounter{}, nil)
	summary := svc.ProcessNotification(context.Background(), testCredential(),
		notificationFor(models.CommentEvent{CommentID: "cm1", MediaID: "m1", Text: "قیمت چنده؟"}))

	if summary.Fallbacks != 1 || summary.Dispatched != 1 {
		t.Fatalf("fallback reply must still be dispatched: %+v", summary)
	}
	if len(platform.replies) != 1 || platform.replies[0].message == "" {
		t.Fatal("dispatched fallback text must be non-empty")
	}
}

func TestProcessNotificationCaptionFailureSkipsEventOnly(t *testing.T) {
	store := &fakeCampaignLister{campaigns: []models.Campaign{
		{ID: "c1", PostID: "m1", Keyword: "قیمت", Status: models.CampaignActive},
	}}
	platform := &fakePlatform{captionErr: errors.New("graph timeout")}

	svc := newTestService(store, &fakeGenerator{}, platform, &fakeCounter{}, nil)
	summary := svc.ProcessNotification(context.Background(), testCredential(),
		notificationFor(
			models.CommentEvent{CommentID: "cm1", MediaID: "m1", Text: "قیمت چنده؟"},
			models.CommentEvent{CommentID: "cm2", MediaID: "m1", Text: "قیمت لطفا"},
		))

	// Both events fail at the caption fetch, but both are attempted.
	if platform.captionCalls != 2 {
		t.Fatalf("expected both events to reach caption fetch, got %d", platform.captionCalls)
	}
	if summary.Failed != 2 || summary.Dispatched != 0 {
		t.Fatalf("unexpected summary: %+v", summary)
	}
}

func TestProcessNotificationDispatchFailureContinuesBatch(t *testing.T) {
	store := &fakeCampaignLister{campaigns: []models.Campaign{
		{ID: "c1", PostID: "m1", Keyword: "قیمت", Status: models.CampaignActive},
	}}
	platform := &fakePlatform{caption: "caption", replyErr: errors.New("rate limited")}
	counter := &fakeCounter{}

	svc := newTestService(store, &fakeGenerator{}, platform, counter, nil)
	summary := svc.ProcessNotification(context.Background(), testCredential(),
		notificationFor(
			models.CommentEvent{CommentID: "cm1", MediaID: "m1", Text: "قیمت چنده؟"},
			models.CommentEvent{CommentID: "cm2", MediaID: "m1", Text: "قیمت لطفا"},
		))

	if summary.Matched != 2 {
		t.Fatalf("both events should match: %+v", summary)
	}
	if summary.Failed != 2 || summary.Dispatched != 0 {
		t.Fatalf("dispatch failures must be absorbed per event: %+v", summary)
	}
	if len(counter.increments) != 0 {
		t.Fatal("failed dispatches must not increment replies count")
	}
}

func TestProcessNotificationDuplicateDelivery(t *testing.T) {
	store := &fakeCampaignLister{campaigns: []models.Campaign{
		{ID: "c1", PostID: "m1", Keyword: "قیمت", Status: models.CampaignActive},
	}}
	platform := &fakePlatform{caption: "caption"}
	deduper := &fakeDeduper{}

	svc := newTestService(store, &fakeGenerator{}, platform, &fakeCounter{}, deduper)
	notification := notificationFor(models.CommentEvent{CommentID: "cm1", MediaID: "m1", Text: "قیمت چنده؟"})

	first := svc.ProcessNotification(context.Background(), testCredential(), notification)
	second := svc.ProcessNotification(context.Background(), testCredential(), notification)

	if first.Dispatched != 1 {
		t.Fatalf("first delivery should dispatch: %+v", first)
	}
	if second.Duplicates != 1 || second.Dispatched != 0 {
		t.Fatalf("redelivery must be skipped: %+v", second)
	}
	if len(platform.replies) != 1 {
		t.Fatalf("expected a single reply across deliveries, got %d", len(platform.replies))
	}
}

func TestProcessNotificationDeduperFailsOpen(t *testing.T) {
	store := &fakeCampaignLister{campaigns: []models.Campaign{
		{ID: "c1", PostID: "m1", Keyword: "قیمت", Status: models.CampaignActive},
	}}
	platform := &fakePlatform{caption: "caption"}
	deduper := &fakeDeduper{err: errors.New("redis down")}

	svc := newTestService(store, &fakeGenerator{}, platform, &fakeCounter{}, deduper)
	summary := svc.ProcessNotification(context.Background(), testCredential(),
		notificationFor(models.CommentEvent{CommentID: "cm1", MediaID: "m1", Text: "قیمت چنده؟"}))

	if summary.Dispatched != 1 {
		t.Fatalf("dedupe outage must not block engagement: %+v", summary)
	}
}

func TestProcessNotificationIgnoresNonCommentChanges(t *testing.T) {
	store := &fakeCampaignLister{campaigns: []models.Campaign{
		{ID: "c1", PostID: "m1", Keyword: "قیمت", Status: models.CampaignActive},
	}}
	platform := &fakePlatform{caption: "caption"}

	svc := newTestService(store, &fakeGenerator{}, platform, &fakeCounter{}, nil)
	notification := &models.WebhookNotification{
		Object: models.WebhookObjectInstagram,
		Entry: []models.WebhookEntry{{
			Changes: []models.WebhookChange{
				{Field: "mentions", Value: models.WebhookChangeValue{ID: "x1", Media: models.WebhookMedia{ID: "m1"}, Text: "قیمت"}},
				{Field: models.WebhookFieldComments, Value: models.WebhookChangeValue{ID: "cm1", Media: models.WebhookMedia{ID: "m1"}, Text: "قیمت چنده؟"}},
			},
		}},
	}

	summary := svc.ProcessNotification(context.Background(), testCredential(), notification)
	if summary.Events != 1 || summary.Dispatched != 1 {
		t.Fatalf("only comment changes should enter the pipeline: %+v", summary)
	}
}
