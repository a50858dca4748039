package types

import (
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

// ScoringInput is one résumé/job description pair to be scored.
// Text length rules apply to the trimmed values.
type ScoringInput struct {
	ResumeText     string  `json:"resume_text" validate:"required,min=50"`
	JobDescription string  `json:"job_description" validate:"required,min=20"`
	ResumeSkills   string  `json:"resume_skills,omitempty"`
	JobSkills      string  `json:"job_skills,omitempty"`
	ResumeYears    float64 `json:"resume_years,omitempty" validate:"gte=0"`
	JobYears       float64 `json:"job_years,omitempty" validate:"gte=0"`
	SkipEnrichment bool    `json:"skip_enrichment,omitempty"`
}

// ScoreComponents holds the six component scores, each in [0,100].
type ScoreComponents struct {
	KeywordMatch        float64 `json:"keyword_match"`
	SemanticSimilarity  float64 `json:"semantic_similarity"`
	SkillsMatch         float64 `json:"skills_match"`
	ExperienceMatch     float64 `json:"experience_match"`
	ATSFormatting       float64 `json:"ats_formatting"`
	SectionCompleteness float64 `json:"section_completeness"`
}

// FeatureNames is the fixed order of FeatureVector values.
var FeatureNames = []string{
	"sim",
	"overlap",
	"coverage",
	"years_diff",
	"resume_len",
	"jd_len",
	"bullets",
	"headers",
}

// FeatureVector is the input of the probability model.
type FeatureVector struct {
	Sim       float64 `json:"sim"`
	Overlap   float64 `json:"overlap"`
	Coverage  float64 `json:"coverage"`
	YearsDiff float64 `json:"years_diff"`
	ResumeLen float64 `json:"resume_len"`
	JDLen     float64 `json:"jd_len"`
	Bullets   float64 `json:"bullets"`
	Headers   float64 `json:"headers"`
}

// Values returns the vector in FeatureNames order.
func (f FeatureVector) Values() []float64 {
	return []float64{
		f.Sim,
		f.Overlap,
		f.Coverage,
		f.YearsDiff,
		f.ResumeLen,
		f.JDLen,
		f.Bullets,
		f.Headers,
	}
}

// MatchLevel is the banded label of an overall score.
type MatchLevel string

const (
	MatchNeedsImprovement MatchLevel = "Needs Improvement"
	MatchFair             MatchLevel = "Fair Match"
	MatchGood             MatchLevel = "Good Match"
	MatchExcellent        MatchLevel = "Excellent Match"
)

// CompositionPolicy names the rule that produced the ML score.
type CompositionPolicy string

const (
	PolicyProbability CompositionPolicy = "probability"
	PolicyWeightedSum CompositionPolicy = "weighted_sum"
)

// ProbabilitySource says whether the probability came from a trained
// artifact or the built-in surrogate.
type ProbabilitySource string

const (
	SourceModel     ProbabilitySource = "model"
	SourceSurrogate ProbabilitySource = "surrogate"
)

// ScoringResult is the immutable outcome of one scoring request.
type ScoringResult struct {
	ID                string            `json:"id"`
	CreatedAt         time.Time         `json:"created_at"`
	OverallScore      float64           `json:"overall_score"`
	MLScore           float64           `json:"ml_score"`
	Probability       float64           `json:"probability"`
	ProbabilitySource ProbabilitySource `json:"probability_source"`
	ModelVersion      string            `json:"model_version,omitempty"`
	Policy            CompositionPolicy `json:"composition_policy"`
	ScoreBreakdown    ScoreComponents   `json:"score_breakdown"`
	Features          FeatureVector     `json:"features"`
	MatchLevel        MatchLevel        `json:"match_level"`
	Recommendations   []string          `json:"recommendations"`
	MissingKeywords   []string          `json:"missing_keywords"`
	MissingSkillAreas []string          `json:"missing_skill_areas"`
	SemanticFallback  bool              `json:"semantic_fallback,omitempty"`
	AIAnalysis        *AIAnalysis       `json:"ai_analysis"`
}

// ImprovementArea is one prioritized suggestion from enrichment.
type ImprovementArea struct {
	Area       string `json:"area"`
	Priority   string `json:"priority"`
	Suggestion string `json:"suggestion"`
}

// TokenUsage tracks token consumption of a generative call.
type TokenUsage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
	TotalTokens  int `json:"total_tokens"`
}

// EnrichmentOutput is the parsed advisory response.
type EnrichmentOutput struct {
	Score            *float64          `json:"gemini_score,omitempty"`
	Suggestions      []string          `json:"suggestions"`
	DetailedFeedback string            `json:"detailed_feedback"`
	Strengths        []string          `json:"strengths"`
	Weaknesses       []string          `json:"weaknesses"`
	ImprovementAreas []ImprovementArea `json:"improvement_areas"`
}

// AIAnalysis is attached to a result when enrichment succeeded.
type AIAnalysis struct {
	Enabled          bool              `json:"enabled"`
	GeminiScore      *float64          `json:"gemini_score"`
	CombinedScore    *float64          `json:"combined_score"`
	DetailedFeedback string            `json:"detailed_feedback"`
	Strengths        []string          `json:"strengths"`
	Weaknesses       []string          `json:"weaknesses"`
	ImprovementAreas []ImprovementArea `json:"improvement_areas"`
	Model            string            `json:"model,omitempty"`
	TokenUsage       *TokenUsage       `json:"token_usage,omitempty"`
}

var validate = validator.New()

// Validate checks the trimmed texts against the length rules.
func (in ScoringInput) Validate() error {
	trimmed := in
	trimmed.ResumeText = strings.TrimSpace(in.ResumeText)
	trimmed.JobDescription = strings.TrimSpace(in.JobDescription)
	return validate.Struct(trimmed)
}
