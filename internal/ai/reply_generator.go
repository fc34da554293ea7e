package ai

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/sony/gobreaker"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/time/rate"

	"roboka-backend/internal/config"
	"roboka-backend/internal/logger"
	"roboka-backend/models"
)

// GenerationRequest carries everything the model needs to write a reply:
// the comment that triggered the campaign, the keyword that matched, the
// post caption for context and the campaign tone.
type GenerationRequest struct {
	CommentText string
	Keyword     string
	PostCaption string
	Tone        string
}

// textBackend is the raw model call. Swapped for a fake in tests.
type textBackend interface {
	generateJSON(ctx context.Context, req GenerationRequest) (string, error)
}

// Generator synthesizes {publicReply, directMessage} pairs. Generate never
// returns an error: any backend failure, timeout or schema violation yields
// the fixed fallback pair instead, so callers can always trust the shape of
// the result.
type Generator struct {
	backend     textBackend
	breaker     *gobreaker.CircuitBreaker
	rateLimiter *rate.Limiter
	timeout     time.Duration
}

type RateLimits struct {
	RPM int // Requests per minute
	TPM int // Tokens per minute
	RPD int // Requests per day
}

func NewGenerator(cfg *config.Config) (*Generator, error) {
	backend, err := newGeminiBackend(cfg)
	if err != nil {
		return nil, err
	}
	return newGeneratorWithBackend(backend, cfg.GeminiTier, time.Duration(cfg.GenerateTimeout)*time.Second), nil
}

func newGeneratorWithBackend(backend textBackend, tier string, timeout time.Duration) *Generator {
	limits := getRateLimits(tier)

	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "GeminiAPI",
		MaxRequests: 5,
		Interval:    10 * time.Second,
		Timeout:     60 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= 3 && failureRatio >= 0.6
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.Warn("Circuit breaker state change", "breaker", name, "from", from.String(), "to", to.String())
		},
	})

	// RPM limit with some buffer
	rateLimiter := rate.NewLimiter(rate.Limit(float64(limits.RPM)*0.9/60.0), limits.RPM/10+1)

	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &Generator{
		backend:     backend,
		breaker:     breaker,
		rateLimiter: rateLimiter,
		timeout:     timeout,
	}
}

func getRateLimits(tier string) RateLimits {
	switch tier {
	case "free":
		return RateLimits{RPM: 10, TPM: 250000, RPD: 250}
	case "tier1":
		return RateLimits{RPM: 1000, TPM: 1000000, RPD: 10000}
	case "tier2":
		return RateLimits{RPM: 2000, TPM: 4000000, RPD: 50000}
	default:
		return RateLimits{RPM: 10, TPM: 250000, RPD: 250}
	}
}

// Generate produces a validated reply pair for the given request. The
// returned result is always schema-valid; Fallback marks replies that did
// not come from the model.
func (g *Generator) Generate(ctx context.Context, req GenerationRequest) models.GenerateResult {
	tracer := otel.Tracer("reply-generator")
	ctx, span := tracer.Start(ctx, "gemini.generate_reply")
	defer span.End()

	span.SetAttributes(
		attribute.String("campaign.tone", req.Tone),
		attribute.String("campaign.keyword", req.Keyword),
	)

	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	reply, err := g.tryGenerate(ctx, req)
	if err != nil {
		span.SetAttributes(
			attribute.Bool("gemini.fallback", true),
			attribute.String("gemini.error_message", err.Error()),
		)
		logger.Warn("Reply generation failed, using fallback", "error", err, "tone", req.Tone)
		return models.GenerateResult{Reply: fallbackReply(), Fallback: true}
	}

	span.SetAttributes(attribute.Bool("gemini.fallback", false))
	return models.GenerateResult{Reply: reply, Fallback: false}
}

func (g *Generator) tryGenerate(ctx context.Context, req GenerationRequest) (models.GeneratedReply, error) {
	if err := g.rateLimiter.Wait(ctx); err != nil {
		return models.GeneratedReply{}, err
	}

	raw, err := g.breaker.Execute(func() (interface{}, error) {
		return g.backend.generateJSON(ctx, req)
	})
	if err != nil {
		return models.GeneratedReply{}, err
	}

	return decodeReply(raw.(string))
}

// decodeReply validates the model output against the required shape: valid
// JSON with both fields present and non-empty.
func decodeReply(raw string) (models.GeneratedReply, error) {
	var reply models.GeneratedReply
	if err := json.Unmarshal([]byte(strings.TrimSpace(raw)), &reply); err != nil {
		return models.GeneratedReply{}, err
	}
	if strings.TrimSpace(reply.PublicReply) == "" {
		return models.GeneratedReply{}, errors.New("model response missing publicReply")
	}
	if strings.TrimSpace(reply.DirectMessage) == "" {
		return models.GeneratedReply{}, errors.New("model response missing directMessage")
	}
	return reply, nil
}

// Close releases the underlying model client, if any.
func (g *Generator) Close() error {
	if closer, ok := g.backend.(interface{ Close() error }); ok {
		return closer.Close()
	}
	return nil
}

// fallbackReply is the fixed pair substituted whenever generation fails.
func fallbackReply() models.GeneratedReply {
	return models.GeneratedReply{
		PublicReply:   "سلام عزیزم! خوشحالم که نظرت رو گفتی. برات دایرکت فرستادم، چک کن. ❤️",
		DirectMessage: "سلام! این هم اطلاعاتی که برای این پست خواسته بودید. اگر سوالی بود در خدمتم.",
	}
}
