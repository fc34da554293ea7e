package routes

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"roboka-backend/internal/config"
	"roboka-backend/models"
	"roboka-backend/services"

	"github.com/gin-gonic/gin"
)

type fakeSession struct {
	cred  *models.AccountCredential
	err   error
	calls int
}

func (f *fakeSession) Current(ctx context.Context) (*models.AccountCredential, error) {
	f.calls++
	return f.cred, f.err
}

type fakeProcessor struct {
	calls         int
	notifications []*models.WebhookNotification
	summary       services.ProcessSummary
}

func (f *fakeProcessor) ProcessNotification(ctx context.Context, cred models.AccountCredential, n *models.WebhookNotification) services.ProcessSummary {
	f.calls++
	f.notifications = append(f.notifications, n)
	return f.summary
}

func newWebhookRouter(session *fakeSession, processor *fakeProcessor) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	cfg := &config.Config{WebhookVerifyToken: "verify-secret"}
	SetupWebhookRoutes(router, cfg, session, processor)
	return router
}

func postWebhook(router *gin.Engine, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/webhook", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

const commentNotification = `{
  "object": "instagram",
  "entry": [{"changes": [{
    "field": "comments",
    "value": {"id": "cm1", "media": {"id": "m1"}, "text": "قیمت چنده؟"}
  }]}]
}`

func TestWebhookWrongObjectType(t *testing.T) {
	session := &fakeSession{}
	processor := &fakeProcessor{}
	router := newWebhookRouter(session, processor)

	w := postWebhook(router, `{"object": "page", "entry": []}`)

	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", w.Code)
	}
	if session.calls != 0 {
		t.Fatal("object mismatch must not read the account store")
	}
	if processor.calls != 0 {
		t.Fatal("object mismatch must not enter the pipeline")
	}
}

func TestWebhookNoConnectedAccount(t *testing.T) {
	session := &fakeSession{cred: nil}
	processor := &fakeProcessor{}
	router := newWebhookRouter(session, processor)

	w := postWebhook(router, commentNotification)

	if w.Code != http.StatusInternalServerError {
		t.Fatalf("missing credential is a configuration failure, expected 500, got %d", w.Code)
	}
	if processor.calls != 0 {
		t.Fatal("pipeline must not run without a credential")
	}
}

func TestWebhookAccountLookupError(t *testing.T) {
	session := &fakeSession{err: errors.New("mongo down")}
	router := newWebhookRouter(session, &fakeProcessor{})

	w := postWebhook(router, commentNotification)
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", w.Code)
	}
}

func TestWebhookAcknowledgesDelivery(t *testing.T) {
	session := &fakeSession{cred: &models.AccountCredential{
		ID:          "singleton_account",
		AccessToken: "token",
		Status:      models.AccountConnected,
	}}
	processor := &fakeProcessor{}
	router := newWebhookRouter(session, processor)

	w := postWebhook(router, commentNotification)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if w.Body.String() != "EVENT_RECEIVED" {
		t.Fatalf("expected EVENT_RECEIVED ack, got %q", w.Body.String())
	}
	if processor.calls != 1 {
		t.Fatalf("expected one pipeline run, got %d", processor.calls)
	}

	events := processor.notifications[0].CommentEvents()
	if len(events) != 1 {
		t.Fatalf("expected one comment event, got %d", len(events))
	}
	if events[0].CommentID != "cm1" || events[0].MediaID != "m1" || events[0].Text != "قیمت چنده؟" {
		t.Fatalf("unexpected event: %+v", events[0])
	}
}

func TestWebhookAcknowledgesPartialFailure(t *testing.T) {
	// Business-logic failures inside the batch still get a 200; only the
	// missing-credential case is surfaced as an error.
	session := &fakeSession{cred: &models.AccountCredential{AccessToken: "token", Status: models.AccountConnected}}
	processor := &fakeProcessor{summary: services.ProcessSummary{Events: 2, Failed: 2}}
	router := newWebhookRouter(session, processor)

	w := postWebhook(router, commentNotification)
	if w.Code != http.StatusOK || w.Body.String() != "EVENT_RECEIVED" {
		t.Fatalf("partial failure must still ack: %d %q", w.Code, w.Body.String())
	}
}

func TestWebhookMalformedBody(t *testing.T) {
	router := newWebhookRouter(&fakeSession{}, &fakeProcessor{})

	w := postWebhook(router, `{"object": `)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
}

func TestWebhookVerification(t *testing.T) {
	router := newWebhookRouter(&fakeSession{}, &fakeProcessor{})

	tests := []struct {
		name     string
		query    string
		wantCode int
		wantBody string
	}{
		{"valid handshake", "hub.mode=subscribe&hub.verify_token=verify-secret&hub.challenge=12345", http.StatusOK, "12345"},
		{"wrong token", "hub.mode=subscribe&hub.verify_token=nope&hub.challenge=12345", http.StatusForbidden, ""},
		{"wrong mode", "hub.mode=unsubscribe&hub.verify_token=verify-secret&hub.challenge=12345", http.StatusForbidden, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/webhook?"+tt.query, nil)
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			if w.Code != tt.wantCode {
				t.Fatalf("expected %d, got %d", tt.wantCode, w.Code)
			}
			if tt.wantBody != "" && w.Body.String() != tt.wantBody {
				t.Fatalf("expected body %q, got %q", tt.wantBody, w.Body.String())
			}
		})
	}
}
