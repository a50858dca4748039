package scoring

import (
	"math"
	"strings"
	"unicode/utf8"

	"resumatch/internal/types"
)

// BuildFeatures assembles the probability model input. sim is the raw
// cosine similarity; skills and years use the explicit values only.
func BuildFeatures(sim float64, in types.ScoringInput) types.FeatureVector {
	resumeSkills := ParseSkills(in.ResumeSkills)
	jdSkills := ParseSkills(in.JobSkills)
	overlap := len(resumeSkills.Intersect(jdSkills))

	return types.FeatureVector{
		Sim:       sim,
		Overlap:   float64(overlap),
		Coverage:  float64(overlap) / float64(max(len(jdSkills), 1)),
		YearsDiff: math.Abs(in.ResumeYears - in.JobYears),
		ResumeLen: float64(utf8.RuneCountInString(in.ResumeText)),
		JDLen:     float64(utf8.RuneCountInString(in.JobDescription)),
		Bullets:   float64(strings.Count(in.ResumeText, "\n-") + strings.Count(in.ResumeText, "\n•")),
		Headers:   float64(countPresent(strings.ToLower(in.ResumeText), featureHeaders)),
	}
}
