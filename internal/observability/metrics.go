package observability

import (
	"context"
	"fmt"
	"time"

	"resumatch/internal/config"
	"resumatch/internal/types"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metrics holds all custom metrics for resumatch. A zero Metrics records
// nothing, so callers never need to check for nil instruments.
type Metrics struct {
	settings config.CustomMetricsConfig

	// Scoring metrics
	ScoringDuration    metric.Float64Histogram
	ScoringRequests    metric.Int64Counter
	OverallScore       metric.Float64Histogram
	EmbeddingFallbacks metric.Int64Counter

	// Enrichment metrics
	AIProcessingTime metric.Float64Histogram
	AIRequestCount   metric.Int64Counter
	AIErrorCount     metric.Int64Counter
	AITokenUsage     metric.Int64Histogram

	// Rate limiting metrics
	RateLimitHits metric.Int64Counter
}

// NewMetrics creates every instrument on meter
func NewMetrics(meter metric.Meter, settings config.CustomMetricsConfig) (*Metrics, error) {
	m := &Metrics{settings: settings}
	var err error

	if m.ScoringDuration, err = meter.Float64Histogram(
		"resumatch_scoring_duration_seconds",
		metric.WithDescription("Time spent producing a scoring result"),
		metric.WithUnit("s"),
	); err != nil {
		return nil, fmt.Errorf("failed to create scoring duration metric: %w", err)
	}

	if m.ScoringRequests, err = meter.Int64Counter(
		"resumatch_scoring_requests_total",
		metric.WithDescription("Total number of scoring requests"),
	); err != nil {
		return nil, fmt.Errorf("failed to create scoring request metric: %w", err)
	}

	if m.OverallScore, err = meter.Float64Histogram(
		"resumatch_overall_score",
		metric.WithDescription("Distribution of overall scores"),
		metric.WithExplicitBucketBoundaries(20, 40, 60, 80, 100),
	); err != nil {
		return nil, fmt.Errorf("failed to create overall score metric: %w", err)
	}

	if m.EmbeddingFallbacks, err = meter.Int64Counter(
		"resumatch_embedding_fallbacks_total",
		metric.WithDescription("Semantic similarity computations that fell back to the neutral value"),
	); err != nil {
		return nil, fmt.Errorf("failed to create embedding fallback metric: %w", err)
	}

	if m.AIProcessingTime, err = meter.Float64Histogram(
		"resumatch_ai_processing_duration_seconds",
		metric.WithDescription("Time spent processing AI requests"),
		metric.WithUnit("s"),
	); err != nil {
		return nil, fmt.Errorf("failed to create AI processing time metric: %w", err)
	}

	if m.AIRequestCount, err = meter.Int64Counter(
		"resumatch_ai_requests_total",
		metric.WithDescription("Total number of AI requests"),
	); err != nil {
		return nil, fmt.Errorf("failed to create AI request count metric: %w", err)
	}

	if m.AIErrorCount, err = meter.Int64Counter(
		"resumatch_ai_errors_total",
		metric.WithDescription("Total number of AI request errors"),
	); err != nil {
		return nil, fmt.Errorf("failed to create AI error count metric: %w", err)
	}

	if m.AITokenUsage, err = meter.Int64Histogram(
		"resumatch_ai_token_usage_total",
		metric.WithDescription("Token usage for AI requests (input, output, total)"),
		metric.WithUnit("tokens"),
	); err != nil {
		return nil, fmt.Errorf("failed to create AI token usage metric: %w", err)
	}

	if m.RateLimitHits, err = meter.Int64Counter(
		"resumatch_rate_limit_hits_total",
		metric.WithDescription("Total number of rate limit hits"),
	); err != nil {
		return nil, fmt.Errorf("failed to create rate limit hits metric: %w", err)
	}

	return m, nil
}

// RecordScoring records one finished scoring request
func (m *Metrics) RecordScoring(ctx context.Context, policy types.CompositionPolicy, source types.ProbabilitySource, score float64, duration time.Duration, success bool) {
	if m == nil || m.ScoringRequests == nil || !m.settings.Scoring.Enabled {
		return
	}

	attrs := metric.WithAttributes(
		attribute.String("policy", string(policy)),
		attribute.String("probability_source", string(source)),
		attribute.Bool("success", success),
	)
	m.ScoringRequests.Add(ctx, 1, attrs)
	if m.settings.Scoring.TrackDuration {
		m.ScoringDuration.Record(ctx, duration.Seconds(), attrs)
	}
	if success && m.settings.Scoring.TrackScores {
		m.OverallScore.Record(ctx, score, metric.WithAttributes(attribute.String("policy", string(policy))))
	}
}

// RecordEmbeddingFallback counts a neutral similarity substitution
func (m *Metrics) RecordEmbeddingFallback(ctx context.Context, embedder string) {
	if m == nil || m.EmbeddingFallbacks == nil || !m.settings.Scoring.Enabled || !m.settings.Scoring.TrackEmbeddingFails {
		return
	}
	m.EmbeddingFallbacks.Add(ctx, 1, metric.WithAttributes(attribute.String("embedder", embedder)))
}

// RecordRateLimitHit counts a rejected request
func (m *Metrics) RecordRateLimitHit(ctx context.Context, attributes ...attribute.KeyValue) {
	if m == nil || m.RateLimitHits == nil || !m.settings.Infrastructure.Enabled || !m.settings.Infrastructure.TrackRateLimits {
		return
	}
	m.RateLimitHits.Add(ctx, 1, metric.WithAttributes(attributes...))
}

// AIOperationResult holds the result of an AI operation including token usage
type AIOperationResult struct {
	Error      error
	TokenUsage *types.TokenUsage
}

// TrackAIOperationWithTokens instruments an AI operation with tracing, metrics, and token usage
func (m *Metrics) TrackAIOperationWithTokens(ctx context.Context, operation string, fn func(context.Context) *AIOperationResult) error {
	tracer := otel.Tracer("resumatch.ai")
	ctx, span := tracer.Start(ctx, "ai."+operation)
	defer span.End()

	start := time.Now()
	result := fn(ctx)
	duration := time.Since(start).Seconds()

	var err error
	if result != nil {
		err = result.Error
	}

	attrs := []attribute.KeyValue{
		attribute.String("operation", operation),
		attribute.Bool("success", err == nil),
	}
	span.SetAttributes(attrs...)

	if result != nil && result.TokenUsage != nil {
		span.SetAttributes(
			attribute.Int("ai.tokens.input", result.TokenUsage.InputTokens),
			attribute.Int("ai.tokens.output", result.TokenUsage.OutputTokens),
			attribute.Int("ai.tokens.total", result.TokenUsage.TotalTokens),
		)
	}

	if m != nil && m.AIRequestCount != nil && m.settings.AIOperations.Enabled {
		m.recordAIMetrics(ctx, attrs, err, duration, result)
	}

	if err != nil {
		span.RecordError(err)
		span.SetAttributes(attribute.Bool("error", true))
	}
	return err
}

func (m *Metrics) recordAIMetrics(ctx context.Context, attrs []attribute.KeyValue, err error, duration float64, result *AIOperationResult) {
	opts := metric.WithAttributes(attrs...)
	m.AIRequestCount.Add(ctx, 1, opts)
	if m.settings.AIOperations.TrackDuration {
		m.AIProcessingTime.Record(ctx, duration, opts)
	}
	if err != nil {
		m.AIErrorCount.Add(ctx, 1, opts)
	}

	if result == nil || result.TokenUsage == nil || !m.settings.AIOperations.TrackTokenUsage {
		return
	}
	usage := []struct {
		tokenType string
		value     int
	}{
		{"input", result.TokenUsage.InputTokens},
		{"output", result.TokenUsage.OutputTokens},
		{"total", result.TokenUsage.TotalTokens},
	}
	for _, u := range usage {
		tokenAttrs := append(append([]attribute.KeyValue{}, attrs...), attribute.String("token_type", u.tokenType))
		m.AITokenUsage.Record(ctx, int64(u.value), metric.WithAttributes(tokenAttrs...))
	}
}
