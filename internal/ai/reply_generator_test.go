package ai

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
)

type fakeBackend struct {
	response string
	err      error
	calls    int
}

func (f *fakeBackend) generateJSON(ctx context.Context, req GenerationRequest) (string, error) {
	f.calls++
	return f.response, f.err
}

func newTestGenerator(backend textBackend) *Generator {
	return newGeneratorWithBackend(backend, "tier2", 5*time.Second)
}

func TestGenerateValidResponse(t *testing.T) {
	backend := &fakeBackend{response: `{"publicReply": "سلام! ممنون از نظرت.", "directMessage": "سلام! لینک خرید رو برات فرستادم."}`}
	gen := newTestGenerator(backend)

	result := gen.Generate(context.Background(), GenerationRequest{
		CommentText: "قیمت چنده؟",
		Keyword:     "قیمت",
		PostCaption: "کفش جدید",
		Tone:        "friendly",
	})

	if result.Fallback {
		t.Fatal("valid backend response should not be marked as fallback")
	}
	if result.Reply.PublicReply != "سلام! ممنون از نظرت." {
		t.Fatalf("unexpected public reply: %q", result.Reply.PublicReply)
	}
	if result.Reply.DirectMessage == "" {
		t.Fatal("direct message should be populated")
	}
}

func TestGenerateFallbackGuarantee(t *testing.T) {
	// Whatever the backend does, the result must carry two non-empty
	// strings.
	tests := []struct {
		name    string
		backend *fakeBackend
	}{
		{"backend error", &fakeBackend{err: errors.New("upstream unavailable")}},
		{"malformed json", &fakeBackend{response: "not json at all"}},
		{"empty object", &fakeBackend{response: "{}"}},
		{"missing directMessage", &fakeBackend{response: `{"publicReply": "hi"}`}},
		{"empty publicReply", &fakeBackend{response: `{"publicReply": "", "directMessage": "hi"}`}},
		{"whitespace-only field", &fakeBackend{response: `{"publicReply": "  ", "directMessage": "hi"}`}},
		{"json array", &fakeBackend{response: `["hi"]`}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gen := newTestGenerator(tt.backend)
			result := gen.Generate(context.Background(), GenerationRequest{
				CommentText: "قیمت؟",
				Keyword:     "قیمت",
				Tone:        "professional",
			})

			if !result.Fallback {
				t.Fatal("expected fallback result")
			}
			if strings.TrimSpace(result.Reply.PublicReply) == "" {
				t.Fatal("fallback publicReply must be non-empty")
			}
			if strings.TrimSpace(result.Reply.DirectMessage) == "" {
				t.Fatal("fallback directMessage must be non-empty")
			}
		})
	}
}

func TestGenerateFallbackIsFixed(t *testing.T) {
	gen := newTestGenerator(&fakeBackend{err: errors.New("boom")})

	first := gen.Generate(context.Background(), GenerationRequest{CommentText: "a", Keyword: "a"})
	second := gen.Generate(context.Background(), GenerationRequest{CommentText: "b", Keyword: "b"})

	if first.Reply != second.Reply {
		t.Fatal("fallback reply must be deterministic")
	}
}

func TestGenerateExpiredContext(t *testing.T) {
	backend := &fakeBackend{response: `{"publicReply": "x", "directMessage": "y"}`}
	gen := newTestGenerator(backend)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result := gen.Generate(ctx, GenerationRequest{CommentText: "قیمت", Keyword: "قیمت"})
	if !result.Fallback {
		t.Fatal("cancelled context should produce the fallback, not an error")
	}
}

func TestDecodeReply(t *testing.T) {
	reply, err := decodeReply(` {"publicReply": "a", "directMessage": "b"} `)
	if err != nil {
		t.Fatalf("decodeReply returned error: %v", err)
	}
	if reply.PublicReply != "a" || reply.DirectMessage != "b" {
		t.Fatalf("unexpected decode result: %+v", reply)
	}

	if _, err := decodeReply(`{"publicReply": "a"}`); err == nil {
		t.Fatal("expected error for missing directMessage")
	}
}
