package ai

import (
	"context"

	"resumatch/internal/types"
)

// EnrichmentRequest carries everything the enrichment prompt needs
type EnrichmentRequest struct {
	ResumeText     string
	JobDescription string
	MLScore        float64
	Breakdown      types.ScoreComponents
}

// Enricher produces an advisory analysis of a scored pair
type Enricher interface {
	Enrich(ctx context.Context, req EnrichmentRequest) (types.EnrichmentOutput, *types.TokenUsage, error)
	Model() string
}

// HealthReporter is implemented by enrichers that can report on their
// upstream model and breaker
type HealthReporter interface {
	GetModelInfo(ctx context.Context) *ModelInfo
	GetCircuitBreakerStats() map[string]any
}
