package ai

import (
	"context"
	"fmt"
	"time"

	appErrors "resumatch/internal/errors"
	"resumatch/internal/observability"
	"resumatch/internal/types"
)

// DefaultTimeout bounds one enrichment call when none is configured
const DefaultTimeout = 20 * time.Second

// Outcome is the result of an enrichment attempt: Enriched or NotEnriched
type Outcome interface {
	isOutcome()
}

// Enriched carries a successful analysis
type Enriched struct {
	Output     types.EnrichmentOutput
	TokenUsage *types.TokenUsage
	Model      string
}

// NotEnriched says why no analysis is available
type NotEnriched struct {
	Reason string
}

func (Enriched) isOutcome()    {}
func (NotEnriched) isOutcome() {}

// Adapter wraps an Enricher so that scoring never fails because of it
type Adapter struct {
	enricher Enricher
	timeout  time.Duration
	metrics  *observability.Metrics
	logger   *appErrors.Logger
}

// NewAdapter wraps enricher. A nil enricher yields an adapter that always
// reports ReasonDisabled.
func NewAdapter(enricher Enricher, timeout time.Duration, metrics *observability.Metrics, logger *appErrors.Logger) *Adapter {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Adapter{
		enricher: enricher,
		timeout:  timeout,
		metrics:  metrics,
		logger:   logger,
	}
}

// Available reports whether enrichment can be attempted at all
func (a *Adapter) Available() bool {
	return a != nil && a.enricher != nil
}

// Model returns the wrapped enricher's model, or "" when unavailable
func (a *Adapter) Model() string {
	if !a.Available() {
		return ""
	}
	return a.enricher.Model()
}

// Health returns model and breaker details when the enricher exposes them
func (a *Adapter) Health(ctx context.Context) map[string]any {
	status := map[string]any{"available": a.Available()}
	if !a.Available() {
		return status
	}
	status["model"] = a.enricher.Model()
	if reporter, ok := a.enricher.(HealthReporter); ok {
		status["model_info"] = reporter.GetModelInfo(ctx)
		status["circuit_breaker"] = reporter.GetCircuitBreakerStats()
	}
	return status
}

// Enrich runs one bounded enrichment call. It never returns an error and
// recovers from panics in the enricher.
func (a *Adapter) Enrich(ctx context.Context, req EnrichmentRequest) Outcome {
	if !a.Available() {
		return NotEnriched{Reason: ReasonDisabled}
	}

	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	var (
		output types.EnrichmentOutput
		usage  *types.TokenUsage
	)
	err := a.metrics.TrackAIOperationWithTokens(ctx, enrichOperation, func(ctx context.Context) *observability.AIOperationResult {
		var callErr error
		output, usage, callErr = a.call(ctx, req)
		return &observability.AIOperationResult{Error: callErr, TokenUsage: usage}
	})
	if err != nil {
		reason := ClassifyError(err)
		a.logger.Warn("Enrichment failed, using base score",
			"model", a.enricher.Model(),
			"reason", reason,
			"error", err.Error())
		return NotEnriched{Reason: reason}
	}

	return Enriched{Output: output, TokenUsage: usage, Model: a.enricher.Model()}
}

func (a *Adapter) call(ctx context.Context, req EnrichmentRequest) (output types.EnrichmentOutput, usage *types.TokenUsage, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = appErrors.NewInternalError(appErrors.ErrCodeAIServiceFailed,
				"Enrichment panicked", fmt.Errorf("%v", r))
		}
	}()

	output, usage, err = a.enricher.Enrich(ctx, req)
	if err == nil && ctx.Err() != nil {
		err = appErrors.NewAIError(appErrors.ErrCodeAITimeout, "Enrichment timed out", ctx.Err())
	}
	return output, usage, err
}
