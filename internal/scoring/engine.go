package scoring

import (
	"context"
	stdErrors "errors"
	"fmt"
	"math"
	"time"

	"resumatch/internal/ai"
	"resumatch/internal/embedding"
	"resumatch/internal/errors"
	"resumatch/internal/observability"
	"resumatch/internal/probability"
	"resumatch/internal/types"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"
)

const (
	mlWeight         = 0.6
	enrichmentWeight = 0.4
	tracerName       = "resumatch.scoring"
)

// Models supplies the shared scoring models
type Models interface {
	Embedder(ctx context.Context) (*embedding.Provider, error)
	Probability() probability.Capability
}

// Enrichment is the advisory analysis step; *ai.Adapter implements it
type Enrichment interface {
	Available() bool
	Enrich(ctx context.Context, req ai.EnrichmentRequest) ai.Outcome
}

// Options configures an Engine. Zero Weights means DefaultWeights and an
// empty Policy means auto.
type Options struct {
	Policy     string
	Weights    Weights
	Enrichment Enrichment
	Metrics    *observability.Metrics
}

// Engine scores résumé/job description pairs. It is safe for concurrent use.
type Engine struct {
	models     Models
	policy     string
	weights    Weights
	enrichment Enrichment
	metrics    *observability.Metrics
	logger     *errors.Logger
}

// NewEngine validates opts and builds an engine
func NewEngine(models Models, opts Options, logger *errors.Logger) (*Engine, error) {
	weights := opts.Weights
	if weights == (Weights{}) {
		weights = DefaultWeights()
	}
	if err := weights.Validate(); err != nil {
		return nil, errors.NewConfigError(errors.ErrCodeInvalidConfig, "Invalid scoring weights", err)
	}

	return &Engine{
		models:     models,
		policy:     opts.Policy,
		weights:    weights,
		enrichment: opts.Enrichment,
		metrics:    opts.Metrics,
		logger:     logger,
	}, nil
}

// EnrichmentAvailable reports whether requests can be enriched
func (e *Engine) EnrichmentAvailable() bool {
	return e.enrichment != nil && e.enrichment.Available()
}

// Score produces the full result for one pair
func (e *Engine) Score(ctx context.Context, in types.ScoringInput) (*types.ScoringResult, error) {
	start := time.Now()
	ctx, span := otel.Tracer(tracerName).Start(ctx, "scoring.score")
	defer span.End()

	result, err := e.score(ctx, in)
	if err != nil {
		span.RecordError(err)
		span.SetAttributes(attribute.Bool("success", false))
		e.metrics.RecordScoring(ctx, "", "", 0, time.Since(start), false)
		return nil, err
	}

	span.SetAttributes(
		attribute.Bool("success", true),
		attribute.String("scoring.policy", string(result.Policy)),
		attribute.String("scoring.probability_source", string(result.ProbabilitySource)),
		attribute.Float64("scoring.overall", result.OverallScore),
		attribute.Bool("scoring.enriched", result.AIAnalysis != nil),
	)
	e.metrics.RecordScoring(ctx, result.Policy, result.ProbabilitySource, result.OverallScore, time.Since(start), true)

	e.logger.Debug("Scored pair",
		"id", result.ID,
		"overall_score", result.OverallScore,
		"ml_score", result.MLScore,
		"policy", result.Policy,
		"duration", time.Since(start))
	return result, nil
}

func (e *Engine) score(ctx context.Context, in types.ScoringInput) (*types.ScoringResult, error) {
	if err := validateInput(in); err != nil {
		return nil, err
	}

	provider, err := e.embedder(ctx)
	if err != nil {
		return nil, err
	}

	components, sim := e.components(ctx, provider, in)
	features := BuildFeatures(sim.Cosine, in)

	capability := e.models.Probability()
	p, source, version := predict(capability, features)
	policy := SelectPolicy(e.policy, capability)

	var mlScore float64
	switch policy {
	case types.PolicyProbability:
		mlScore = ComposeProbability(p, features)
	default:
		mlScore = ComposeWeighted(components, e.weights)
	}

	result := &types.ScoringResult{
		ID:                uuid.NewString(),
		CreatedAt:         time.Now().UTC(),
		OverallScore:      mlScore,
		MLScore:           mlScore,
		Probability:       math.Round(p*10000) / 10000,
		ProbabilitySource: source,
		ModelVersion:      version,
		Policy:            policy,
		ScoreBreakdown:    roundComponents(components),
		Features:          features,
		Recommendations:   Recommendations(components),
		MissingKeywords:   MissingKeywords(in.ResumeText, in.JobDescription),
		MissingSkillAreas: MissingSkillAreas(in.ResumeText, in.JobDescription),
		SemanticFallback:  sim.Fallback,
	}
	if result.MissingKeywords == nil {
		result.MissingKeywords = []string{}
	}

	switch {
	case in.SkipEnrichment:
		e.logger.Debug("Enrichment not applied", "id", result.ID, "reason", ai.ReasonSkipped)
	case e.EnrichmentAvailable():
		e.merge(ctx, in, result)
	}
	result.MatchLevel = MatchLevelFor(result.OverallScore)
	return result, nil
}

// Features returns the probability model input for a pair
func (e *Engine) Features(ctx context.Context, in types.ScoringInput) (types.FeatureVector, error) {
	ctx, span := otel.Tracer(tracerName).Start(ctx, "scoring.features")
	defer span.End()

	if err := validateInput(in); err != nil {
		span.RecordError(err)
		return types.FeatureVector{}, err
	}
	provider, err := e.embedder(ctx)
	if err != nil {
		span.RecordError(err)
		return types.FeatureVector{}, err
	}

	sim := provider.Similarity(ctx, in.ResumeText, in.JobDescription)
	if sim.Fallback {
		e.metrics.RecordEmbeddingFallback(ctx, provider.Name())
	}
	return BuildFeatures(sim.Cosine, in), nil
}

func (e *Engine) embedder(ctx context.Context) (*embedding.Provider, error) {
	provider, err := e.models.Embedder(ctx)
	if err != nil {
		e.logger.LogError(err, "Embedding provider could not be constructed")
		return nil, errors.NewUnavailableError(errors.ErrCodeEmbeddingUnavailable,
			"Semantic similarity provider is unavailable", err)
	}
	return provider, nil
}

// components computes the six component scores concurrently
func (e *Engine) components(ctx context.Context, provider *embedding.Provider, in types.ScoringInput) (types.ScoreComponents, embedding.Similarity) {
	var (
		c   types.ScoreComponents
		sim embedding.Similarity
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		c.KeywordMatch = KeywordMatch(in.ResumeText, in.JobDescription)
		return nil
	})
	g.Go(func() error {
		sim = provider.Similarity(gctx, in.ResumeText, in.JobDescription)
		c.SemanticSimilarity = sim.Score
		return nil
	})
	g.Go(func() error {
		c.SkillsMatch = SkillsMatch(in.ResumeSkills, in.JobSkills, in.ResumeText, in.JobDescription)
		return nil
	})
	g.Go(func() error {
		c.ExperienceMatch = ExperienceMatch(in.ResumeYears, in.JobYears, in.ResumeText, in.JobDescription)
		return nil
	})
	g.Go(func() error {
		c.ATSFormatting = ATSFormatting(in.ResumeText)
		return nil
	})
	g.Go(func() error {
		c.SectionCompleteness = SectionCompleteness(in.ResumeText)
		return nil
	})
	_ = g.Wait()

	if sim.Fallback {
		e.metrics.RecordEmbeddingFallback(ctx, provider.Name())
	}
	return c, sim
}

// predict returns the match probability, where it came from and the model
// version
func predict(capability probability.Capability, f types.FeatureVector) (float64, types.ProbabilitySource, string) {
	switch c := capability.(type) {
	case probability.Available:
		return c.Predictor.Predict(f), types.SourceModel, c.Predictor.Version()
	default:
		s := probability.Surrogate{}
		return s.Predict(f), types.SourceSurrogate, s.Version()
	}
}

// merge applies an enrichment outcome to result. Failures leave the
// result untouched.
func (e *Engine) merge(ctx context.Context, in types.ScoringInput, result *types.ScoringResult) {
	outcome := e.enrichment.Enrich(ctx, ai.EnrichmentRequest{
		ResumeText:     in.ResumeText,
		JobDescription: in.JobDescription,
		MLScore:        result.MLScore,
		Breakdown:      result.ScoreBreakdown,
	})

	switch o := outcome.(type) {
	case ai.Enriched:
		overall := result.MLScore
		if o.Output.Score != nil {
			overall = Round2(mlWeight*result.MLScore + enrichmentWeight*(*o.Output.Score))
		}
		result.OverallScore = overall
		result.Recommendations = MergeSuggestions(result.Recommendations, o.Output.Suggestions)
		result.AIAnalysis = &types.AIAnalysis{
			Enabled:          true,
			GeminiScore:      o.Output.Score,
			CombinedScore:    &overall,
			DetailedFeedback: o.Output.DetailedFeedback,
			Strengths:        o.Output.Strengths,
			Weaknesses:       o.Output.Weaknesses,
			ImprovementAreas: o.Output.ImprovementAreas,
			Model:            o.Model,
			TokenUsage:       o.TokenUsage,
		}
	case ai.NotEnriched:
		e.logger.Debug("Enrichment not applied", "id", result.ID, "reason", o.Reason)
	}
}

// validateInput maps validator failures to application errors
func validateInput(in types.ScoringInput) error {
	err := in.Validate()
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !stdErrors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return errors.NewValidationError(errors.ErrCodeInvalidRequest, "Invalid scoring request", err)
	}

	fe := fieldErrs[0]
	switch fe.StructField() {
	case "ResumeText":
		return errors.NewValidationError(errors.ErrCodeInputTooShort, "Resume text is too short or empty", err)
	case "JobDescription":
		return errors.NewValidationError(errors.ErrCodeInputTooShort, "Job description is too short or empty", err)
	default:
		return errors.NewValidationError(errors.ErrCodeInvalidRequest,
			fmt.Sprintf("Invalid value for %s", fe.Field()), err)
	}
}
