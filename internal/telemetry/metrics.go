package telemetry

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metrics holds the engagement pipeline metrics
type Metrics struct {
	WebhookEvents     metric.Int64Counter
	CampaignMatches   metric.Int64Counter
	RepliesDispatched metric.Int64Counter
	GeneratorFallback metric.Int64Counter
	DispatchDuration  metric.Float64Histogram
}

// InitMetrics initializes all application metrics
func InitMetrics() (*Metrics, error) {
	meter := otel.Meter("roboka-backend")

	webhookEvents, err := meter.Int64Counter(
		"webhook.comment_events.total",
		metric.WithDescription("Comment events extracted from webhook deliveries"),
	)
	if err != nil {
		return nil, err
	}

	campaignMatches, err := meter.Int64Counter(
		"campaign.matches.total",
		metric.WithDescription("Comment events matched to an active campaign"),
	)
	if err != nil {
		return nil, err
	}

	repliesDispatched, err := meter.Int64Counter(
		"replies.dispatched.total",
		metric.WithDescription("Public replies published to the platform"),
	)
	if err != nil {
		return nil, err
	}

	generatorFallback, err := meter.Int64Counter(
		"generator.fallbacks.total",
		metric.WithDescription("Reply generations that fell back to the fixed pair"),
	)
	if err != nil {
		return nil, err
	}

	dispatchDuration, err := meter.Float64Histogram(
		"replies.dispatch.duration",
		metric.WithDescription("Reply dispatch duration in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	return &Metrics{
		WebhookEvents:     webhookEvents,
		CampaignMatches:   campaignMatches,
		RepliesDispatched: repliesDispatched,
		GeneratorFallback: generatorFallback,
		DispatchDuration:  dispatchDuration,
	}, nil
}

// RecordCommentEvent records one comment event entering the pipeline
func (m *Metrics) RecordCommentEvent(mediaID string) {
	m.WebhookEvents.Add(context.Background(), 1, metric.WithAttributes(
		attribute.String("media.id", mediaID),
	))
}

// RecordMatch records a campaign match
func (m *Metrics) RecordMatch(campaignID, tone string) {
	m.CampaignMatches.Add(context.Background(), 1, metric.WithAttributes(
		attribute.String("campaign.id", campaignID),
		attribute.String("campaign.tone", tone),
	))
}

// RecordDispatch records a dispatch attempt and its duration
func (m *Metrics) RecordDispatch(success bool, duration float64) {
	attrs := []attribute.KeyValue{attribute.Bool("dispatch.success", success)}
	m.RepliesDispatched.Add(context.Background(), 1, metric.WithAttributes(attrs...))
	m.DispatchDuration.Record(context.Background(), duration, metric.WithAttributes(attrs...))
}

// RecordFallback records a generation that used the fixed fallback pair
func (m *Metrics) RecordFallback(tone string) {
	m.GeneratorFallback.Add(context.Background(), 1, metric.WithAttributes(
		attribute.String("campaign.tone", tone),
	))
}
