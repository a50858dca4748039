package scoring

import (
	"bytes"
	"context"
	stdErrors "errors"
	"io"
	"log/slog"
	"math"
	"slices"
	"strings"
	"sync"
	"testing"
	"time"

	"resumatch/internal/ai"
	"resumatch/internal/config"
	"resumatch/internal/embedding"
	"resumatch/internal/errors"
	"resumatch/internal/probability"
	"resumatch/internal/types"
)

var testLogger = errors.NewLoggerWithWriter(io.Discard, 0)

type testModels struct {
	provider   *embedding.Provider
	err        error
	capability probability.Capability
}

func (m testModels) Embedder(context.Context) (*embedding.Provider, error) {
	return m.provider, m.err
}

func (m testModels) Probability() probability.Capability {
	if m.capability == nil {
		return probability.Unavailable{Reason: "not loaded"}
	}
	return m.capability
}

func localModels() testModels {
	return testModels{provider: embedding.NewProvider(embedding.NewLocalEmbedder(0), 0, testLogger)}
}

type stubEnrichment struct {
	outcome ai.Outcome
	mu      sync.Mutex
	calls   int
	lastReq ai.EnrichmentRequest
}

func (s *stubEnrichment) Available() bool { return true }

func (s *stubEnrichment) Enrich(_ context.Context, req ai.EnrichmentRequest) ai.Outcome {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	s.lastReq = req
	return s.outcome
}

type slowEnricher struct{}

func (slowEnricher) Enrich(ctx context.Context, _ ai.EnrichmentRequest) (types.EnrichmentOutput, *types.TokenUsage, error) {
	<-ctx.Done()
	return types.EnrichmentOutput{}, nil, ctx.Err()
}

func (slowEnricher) Model() string { return "slow" }

type failingEmbedder struct{}

func (failingEmbedder) Embed(context.Context, []string) ([][]float64, error) {
	return nil, stdErrors.New("model offline")
}

func (failingEmbedder) Name() string { return "failing" }

const (
	exampleResume = "Data engineer with 5 years experience building pipelines in Python, SQL, AWS.\n\n" +
		"Education: BS Computer Science\n\nSkills: Python, SQL"
	exampleJD = "Required: 5 years experience, Python, SQL, AWS, Docker"
)

func newTestEngine(t *testing.T, models Models, opts Options) *Engine {
	t.Helper()
	engine, err := NewEngine(models, opts, testLogger)
	if err != nil {
		t.Fatalf("NewEngine failed: %v", err)
	}
	return engine
}

func assertInRange(t *testing.T, name string, v float64) {
	t.Helper()
	if v < 0 || v > 100 || math.IsNaN(v) {
		t.Errorf("%s = %v out of [0,100]", name, v)
	}
}

func TestEngineScoreExample(t *testing.T) {
	engine := newTestEngine(t, localModels(), Options{})

	result, err := engine.Score(context.Background(), types.ScoringInput{ResumeText: exampleResume, JobDescription: exampleJD})
	if err != nil {
		t.Fatalf("Score failed: %v", err)
	}

	if result.ScoreBreakdown.SkillsMatch != 75 {
		t.Errorf("expected skills_match 75, got %v", result.ScoreBreakdown.SkillsMatch)
	}
	if result.ScoreBreakdown.ExperienceMatch != 100 {
		t.Errorf("expected experience_match 100, got %v", result.ScoreBreakdown.ExperienceMatch)
	}
	if result.Policy != types.PolicyWeightedSum {
		t.Errorf("expected weighted sum without a trained model, got %q", result.Policy)
	}
	if result.ProbabilitySource != types.SourceSurrogate {
		t.Errorf("expected surrogate probability, got %q", result.ProbabilitySource)
	}
	if result.OverallScore != result.MLScore {
		t.Errorf("overall %v should equal ml score %v without enrichment", result.OverallScore, result.MLScore)
	}
	if result.AIAnalysis != nil {
		t.Error("expected no AI analysis")
	}
	if result.MatchLevel != MatchLevelFor(result.OverallScore) {
		t.Errorf("match level %q does not fit score %v", result.MatchLevel, result.OverallScore)
	}
	if result.ID == "" || result.CreatedAt.IsZero() {
		t.Error("expected id and timestamp")
	}
	if len(result.Recommendations) == 0 || len(result.Recommendations) > maxRecommendations {
		t.Errorf("unexpected recommendation count %d", len(result.Recommendations))
	}
	if result.Features.Sim < -1 || result.Features.Sim > 1 {
		t.Errorf("feature sim %v is not a cosine", result.Features.Sim)
	}

	assertInRange(t, "overall", result.OverallScore)
	c := result.ScoreBreakdown
	for name, v := range map[string]float64{
		"keyword": c.KeywordMatch, "semantic": c.SemanticSimilarity, "skills": c.SkillsMatch,
		"experience": c.ExperienceMatch, "ats": c.ATSFormatting, "sections": c.SectionCompleteness,
	} {
		assertInRange(t, name, v)
	}
}

func TestEngineScoreDeterministic(t *testing.T) {
	engine := newTestEngine(t, localModels(), Options{})
	in := types.ScoringInput{
		ResumeText:     wellFormattedResume(),
		JobDescription: exampleJD,
		ResumeSkills:   "python, sql, aws",
		JobSkills:      "python, sql, aws, docker",
		ResumeYears:    6,
		JobYears:       5,
	}

	first, err := engine.Score(context.Background(), in)
	if err != nil {
		t.Fatalf("Score failed: %v", err)
	}
	second, err := engine.Score(context.Background(), in)
	if err != nil {
		t.Fatalf("Score failed: %v", err)
	}

	if first.ScoreBreakdown != second.ScoreBreakdown {
		t.Errorf("breakdown changed between runs: %+v vs %+v", first.ScoreBreakdown, second.ScoreBreakdown)
	}
	if first.OverallScore != second.OverallScore || first.Features != second.Features {
		t.Error("overall score or features changed between runs")
	}
	if first.ID == second.ID {
		t.Error("expected distinct result ids")
	}
}

func TestEngineProbabilityPolicy(t *testing.T) {
	models := localModels()
	models.capability = probability.Available{Predictor: probability.Surrogate{}}
	engine := newTestEngine(t, models, Options{Policy: config.PolicyAuto})

	result, err := engine.Score(context.Background(), types.ScoringInput{ResumeText: exampleResume, JobDescription: exampleJD})
	if err != nil {
		t.Fatalf("Score failed: %v", err)
	}
	if result.Policy != types.PolicyProbability {
		t.Errorf("expected probability policy, got %q", result.Policy)
	}
	if result.ProbabilitySource != types.SourceModel {
		t.Errorf("expected model source, got %q", result.ProbabilitySource)
	}
	if want := ComposeProbability(result.Probability, result.Features); math.Abs(result.MLScore-want) > 0.05 {
		t.Errorf("ml score %v does not follow probability composition (%v)", result.MLScore, want)
	}
}

func TestEngineValidation(t *testing.T) {
	engine := newTestEngine(t, localModels(), Options{})

	tests := []struct {
		name    string
		in      types.ScoringInput
		code    string
		message string
	}{
		{"short resume", types.ScoringInput{ResumeText: "too short", JobDescription: exampleJD}, errors.ErrCodeInputTooShort, "Resume text is too short or empty"},
		{"padded resume", types.ScoringInput{ResumeText: "   short   " + strings.Repeat(" ", 60), JobDescription: exampleJD}, errors.ErrCodeInputTooShort, "Resume text is too short or empty"},
		{"short jd", types.ScoringInput{ResumeText: exampleResume, JobDescription: "Go dev"}, errors.ErrCodeInputTooShort, "Job description is too short or empty"},
		{"negative years", types.ScoringInput{ResumeText: exampleResume, JobDescription: exampleJD, JobYears: -1}, errors.ErrCodeInvalidRequest, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := engine.Score(context.Background(), tt.in)
			appErr, ok := errors.AsAppError(err)
			if !ok {
				t.Fatalf("expected AppError, got %v", err)
			}
			if appErr.Type != errors.ErrorTypeValidation || appErr.Code != tt.code {
				t.Errorf("expected validation/%s, got %s/%s", tt.code, appErr.Type, appErr.Code)
			}
			if tt.message != "" && appErr.Message != tt.message {
				t.Errorf("expected message %q, got %q", tt.message, appErr.Message)
			}
		})
	}
}

func TestEngineEmbedderUnavailable(t *testing.T) {
	engine := newTestEngine(t, testModels{err: stdErrors.New("no credentials")}, Options{})

	_, err := engine.Score(context.Background(), types.ScoringInput{ResumeText: exampleResume, JobDescription: exampleJD})
	if !errors.IsType(err, errors.ErrorTypeUnavailable) {
		t.Fatalf("expected unavailable error, got %v", err)
	}
	appErr, _ := errors.AsAppError(err)
	if appErr.Code != errors.ErrCodeEmbeddingUnavailable {
		t.Errorf("expected %s, got %s", errors.ErrCodeEmbeddingUnavailable, appErr.Code)
	}

	if _, err := engine.Features(context.Background(), types.ScoringInput{ResumeText: exampleResume, JobDescription: exampleJD}); err == nil {
		t.Error("expected Features to fail as well")
	}
}

func TestEngineSemanticFallback(t *testing.T) {
	models := testModels{provider: embedding.NewProvider(failingEmbedder{}, 0, testLogger)}
	engine := newTestEngine(t, models, Options{})

	result, err := engine.Score(context.Background(), types.ScoringInput{ResumeText: exampleResume, JobDescription: exampleJD})
	if err != nil {
		t.Fatalf("embedding failures must not fail scoring: %v", err)
	}
	if !result.SemanticFallback {
		t.Error("expected semantic fallback flag")
	}
	if result.ScoreBreakdown.SemanticSimilarity != embedding.FallbackScore {
		t.Errorf("expected fallback score %v, got %v", embedding.FallbackScore, result.ScoreBreakdown.SemanticSimilarity)
	}
	if result.Features.Sim != embedding.FallbackCosine {
		t.Errorf("expected fallback cosine %v, got %v", embedding.FallbackCosine, result.Features.Sim)
	}
}

func TestEngineEnrichmentMerge(t *testing.T) {
	aiScore := 90.0
	stub := &stubEnrichment{outcome: ai.Enriched{
		Output: types.EnrichmentOutput{
			Score:            &aiScore,
			Suggestions:      []string{"Mention Docker experience", RecommendKeywords},
			DetailedFeedback: "Good fit overall.",
			Strengths:        []string{"Python"},
		},
		TokenUsage: &types.TokenUsage{TotalTokens: 42},
		Model:      "stub-model",
	}}
	engine := newTestEngine(t, localModels(), Options{Enrichment: stub})

	result, err := engine.Score(context.Background(), types.ScoringInput{ResumeText: exampleResume, JobDescription: exampleJD})
	if err != nil {
		t.Fatalf("Score failed: %v", err)
	}

	want := Round2(0.6*result.MLScore + 0.4*aiScore)
	if result.OverallScore != want {
		t.Errorf("expected blended score %v, got %v", want, result.OverallScore)
	}
	if result.AIAnalysis == nil || !result.AIAnalysis.Enabled {
		t.Fatal("expected AI analysis")
	}
	if *result.AIAnalysis.CombinedScore != want || *result.AIAnalysis.GeminiScore != aiScore {
		t.Errorf("unexpected analysis scores: %+v", result.AIAnalysis)
	}
	if result.AIAnalysis.Model != "stub-model" || result.AIAnalysis.TokenUsage.TotalTokens != 42 {
		t.Errorf("unexpected analysis metadata: %+v", result.AIAnalysis)
	}
	if !strings.Contains(strings.Join(result.Recommendations, "|"), "Mention Docker experience") {
		t.Errorf("AI suggestion not merged: %v", result.Recommendations)
	}
	count := 0
	for _, r := range result.Recommendations {
		if strings.EqualFold(r, RecommendKeywords) {
			count++
		}
	}
	if count > 1 {
		t.Error("duplicate recommendation after merge")
	}
	if result.MatchLevel != MatchLevelFor(result.OverallScore) {
		t.Errorf("match level should follow the blended score")
	}
	if stub.lastReq.MLScore != result.MLScore || stub.lastReq.Breakdown != result.ScoreBreakdown {
		t.Errorf("enrichment request does not carry the base score: %+v", stub.lastReq)
	}
}

func TestEngineEnrichmentWithoutScore(t *testing.T) {
	stub := &stubEnrichment{outcome: ai.Enriched{Output: types.EnrichmentOutput{Suggestions: []string{"Add a portfolio link to your contact details"}}}}
	engine := newTestEngine(t, localModels(), Options{Enrichment: stub})

	result, err := engine.Score(context.Background(), types.ScoringInput{ResumeText: exampleResume, JobDescription: exampleJD})
	if err != nil {
		t.Fatalf("Score failed: %v", err)
	}
	if result.OverallScore != result.MLScore {
		t.Errorf("missing AI score must keep the base score, got %v vs %v", result.OverallScore, result.MLScore)
	}
	if result.AIAnalysis == nil || result.AIAnalysis.GeminiScore != nil {
		t.Errorf("expected analysis without an AI score, got %+v", result.AIAnalysis)
	}
}

func TestEngineEnrichmentFailureKeepsBaseScore(t *testing.T) {
	adapter := ai.NewAdapter(slowEnricher{}, 20*time.Millisecond, nil, testLogger)
	engine := newTestEngine(t, localModels(), Options{Enrichment: adapter})
	baseline := newTestEngine(t, localModels(), Options{})
	in := types.ScoringInput{ResumeText: exampleResume, JobDescription: exampleJD}

	result, err := engine.Score(context.Background(), in)
	if err != nil {
		t.Fatalf("enrichment failure must not fail scoring: %v", err)
	}
	base, err := baseline.Score(context.Background(), in)
	if err != nil {
		t.Fatalf("Score failed: %v", err)
	}

	if result.OverallScore != base.OverallScore || result.OverallScore != result.MLScore {
		t.Errorf("expected base score %v, got %v", base.OverallScore, result.OverallScore)
	}
	if result.AIAnalysis != nil {
		t.Error("expected no AI analysis after a timeout")
	}
}

func TestEngineSkipEnrichment(t *testing.T) {
	stub := &stubEnrichment{outcome: ai.NotEnriched{Reason: "unused"}}
	var logs bytes.Buffer
	engine, err := NewEngine(localModels(), Options{Enrichment: stub}, errors.NewLoggerWithWriter(&logs, slog.LevelDebug))
	if err != nil {
		t.Fatalf("NewEngine failed: %v", err)
	}

	_, err = engine.Score(context.Background(), types.ScoringInput{ResumeText: exampleResume, JobDescription: exampleJD, SkipEnrichment: true})
	if err != nil {
		t.Fatalf("Score failed: %v", err)
	}
	if stub.calls != 0 {
		t.Errorf("expected enrichment to be skipped, got %d calls", stub.calls)
	}
	if !strings.Contains(logs.String(), ai.ReasonSkipped) {
		t.Errorf("expected the skip reason in the logs:\n%s", logs.String())
	}
}

func TestEngineRecommendationsUseUnroundedComponents(t *testing.T) {
	engine := newTestEngine(t, localModels(), Options{})

	// 5.9997 of 10 years is 59.997, which the breakdown shows as 60.
	result, err := engine.Score(context.Background(), types.ScoringInput{
		ResumeText: exampleResume, JobDescription: exampleJD,
		ResumeYears: 5.9997, JobYears: 10,
	})
	if err != nil {
		t.Fatalf("Score failed: %v", err)
	}
	if result.ScoreBreakdown.ExperienceMatch != 60 {
		t.Fatalf("expected a displayed experience_match of 60, got %v", result.ScoreBreakdown.ExperienceMatch)
	}
	if !slices.Contains(result.Recommendations, RecommendExperience) {
		t.Errorf("expected the experience note for a score below 60, got %v", result.Recommendations)
	}
}

func TestEngineMissingSkillAreas(t *testing.T) {
	engine := newTestEngine(t, localModels(), Options{})

	result, err := engine.Score(context.Background(), types.ScoringInput{
		ResumeText:     exampleResume,
		JobDescription: exampleJD + ", Kubernetes, PyTorch",
	})
	if err != nil {
		t.Fatalf("Score failed: %v", err)
	}
	if !slices.Equal(result.MissingSkillAreas, []string{"ml"}) {
		t.Errorf("expected [ml], got %v", result.MissingSkillAreas)
	}
}

func TestEngineFeatures(t *testing.T) {
	engine := newTestEngine(t, localModels(), Options{})
	in := types.ScoringInput{
		ResumeText:     wellFormattedResume(),
		JobDescription: exampleJD,
		ResumeSkills:   "python, sql, aws",
		JobSkills:      "python, sql, aws, docker",
		ResumeYears:    3,
		JobYears:       5,
	}

	f, err := engine.Features(context.Background(), in)
	if err != nil {
		t.Fatalf("Features failed: %v", err)
	}
	if f.Overlap != 3 || f.Coverage != 0.75 || f.YearsDiff != 2 {
		t.Errorf("unexpected skill/years features: %+v", f)
	}
	if f.Bullets != 6 {
		t.Errorf("expected 6 bullets, got %v", f.Bullets)
	}
	if f.Headers != 4 {
		t.Errorf("expected 4 headers, got %v", f.Headers)
	}
	if len(f.Values()) != len(types.FeatureNames) {
		t.Error("feature vector length mismatch")
	}
}

func TestNewEngineRejectsBadWeights(t *testing.T) {
	_, err := NewEngine(localModels(), Options{Weights: Weights{Keyword: 0.5}}, testLogger)
	if !errors.IsType(err, errors.ErrorTypeConfig) {
		t.Errorf("expected config error, got %v", err)
	}
}

func BenchmarkEngineScore(b *testing.B) {
	engine, err := NewEngine(localModels(), Options{}, testLogger)
	if err != nil {
		b.Fatal(err)
	}
	in := types.ScoringInput{ResumeText: wellFormattedResume(), JobDescription: exampleJD}
	for b.Loop() {
		if _, err := engine.Score(context.Background(), in); err != nil {
			b.Fatal(err)
		}
	}
}
