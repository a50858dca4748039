package scoring

import (
	"fmt"
	"math"

	"resumatch/internal/config"
	"resumatch/internal/probability"
	"resumatch/internal/types"
)

// Weights are the weighted-sum coefficients of the six components
type Weights struct {
	Keyword    float64
	Semantic   float64
	Skills     float64
	Experience float64
	ATS        float64
	Sections   float64
}

// DefaultWeights returns the standard component weights
func DefaultWeights() Weights {
	return Weights{
		Keyword:    0.25,
		Semantic:   0.20,
		Skills:     0.25,
		Experience: 0.10,
		ATS:        0.10,
		Sections:   0.10,
	}
}

// WeightsFromConfig converts the configured weights
func WeightsFromConfig(w config.WeightsConfig) Weights {
	return Weights{
		Keyword:    w.Keyword,
		Semantic:   w.Semantic,
		Skills:     w.Skills,
		Experience: w.Experience,
		ATS:        w.ATS,
		Sections:   w.Sections,
	}
}

// Validate requires non-negative weights summing to 1 within 0.01
func (w Weights) Validate() error {
	values := []float64{w.Keyword, w.Semantic, w.Skills, w.Experience, w.ATS, w.Sections}
	sum := 0.0
	for _, v := range values {
		if v < 0 {
			return fmt.Errorf("weights must be non-negative")
		}
		sum += v
	}
	if math.Abs(sum-1) > 0.01 {
		return fmt.Errorf("weights must sum to 1.0, got %.3f", sum)
	}
	return nil
}

// ComposeWeighted returns Σ component × weight, rounded to 2 decimals
func ComposeWeighted(c types.ScoreComponents, w Weights) float64 {
	total := c.KeywordMatch*w.Keyword +
		c.SemanticSimilarity*w.Semantic +
		c.SkillsMatch*w.Skills +
		c.ExperienceMatch*w.Experience +
		c.ATSFormatting*w.ATS +
		c.SectionCompleteness*w.Sections
	return Round2(clamp(total, 0, 100))
}

// ComposeProbability turns a match probability into a 0-100 score with
// coverage and formatting bonuses and a penalty for large experience gaps
func ComposeProbability(p float64, f types.FeatureVector) float64 {
	score := p * 100
	score += math.Min(15, 0.15*f.Coverage*100)
	score += math.Min(8, f.Bullets*0.7+f.Headers)
	if f.YearsDiff > 4 {
		score -= math.Min(10, (f.YearsDiff-4)*2)
	}
	return Round2(clamp(score, 0, 100))
}

// Round2 rounds half away from zero to 2 decimals
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// MatchLevelFor bands an overall score; lower bounds are inclusive
func MatchLevelFor(score float64) types.MatchLevel {
	switch {
	case score >= 80:
		return types.MatchExcellent
	case score >= 60:
		return types.MatchGood
	case score >= 40:
		return types.MatchFair
	default:
		return types.MatchNeedsImprovement
	}
}

// SelectPolicy resolves the configured policy against what is loaded
func SelectPolicy(setting string, capability probability.Capability) types.CompositionPolicy {
	switch setting {
	case config.PolicyProbability:
		return types.PolicyProbability
	case config.PolicyWeightedSum:
		return types.PolicyWeightedSum
	}

	switch capability.(type) {
	case probability.Available:
		return types.PolicyProbability
	default:
		return types.PolicyWeightedSum
	}
}

// roundComponents rounds every component to 2 decimals for output
func roundComponents(c types.ScoreComponents) types.ScoreComponents {
	return types.ScoreComponents{
		KeywordMatch:        Round2(c.KeywordMatch),
		SemanticSimilarity:  Round2(c.SemanticSimilarity),
		SkillsMatch:         Round2(c.SkillsMatch),
		ExperienceMatch:     Round2(c.ExperienceMatch),
		ATSFormatting:       Round2(c.ATSFormatting),
		SectionCompleteness: Round2(c.SectionCompleteness),
	}
}
