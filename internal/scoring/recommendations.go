package scoring

import (
	"slices"
	"sort"
	"strings"

	"resumatch/internal/types"
)

const (
	maxRecommendations   = 5
	maxMissingKeywords   = 10
	maxMergedSuggestions = 15
)

// Recommendation texts, one per rule
const (
	RecommendKeywords   = "Add more relevant keywords from the job description. Focus on technical skills and job requirements mentioned."
	RecommendSkills     = "Highlight more skills that match the job requirements. Add a dedicated 'Skills' section if missing."
	RecommendATS        = "Improve ATS compatibility: Use standard section headers, include contact information, and use bullet points."
	RecommendSections   = "Add missing sections: Consider including Experience, Education, Skills, and a Summary/Objective."
	RecommendExperience = "Emphasize your years of experience more clearly. Include dates in your work history."
	RecommendPositive   = "Great job! Your resume is well-matched to this position. Consider customizing your summary for even better results."
)

var recommendationRules = []struct {
	fires func(types.ScoreComponents) bool
	text  string
}{
	{func(c types.ScoreComponents) bool { return c.KeywordMatch < 60 }, RecommendKeywords},
	{func(c types.ScoreComponents) bool { return c.SkillsMatch < 50 }, RecommendSkills},
	{func(c types.ScoreComponents) bool { return c.ATSFormatting < 70 }, RecommendATS},
	{func(c types.ScoreComponents) bool { return c.SectionCompleteness < 70 }, RecommendSections},
	{func(c types.ScoreComponents) bool { return c.ExperienceMatch < 60 }, RecommendExperience},
}

// Recommendations applies each rule in order; a clean sheet gets one
// positive note
func Recommendations(c types.ScoreComponents) []string {
	var out []string
	for _, rule := range recommendationRules {
		if rule.fires(c) {
			out = append(out, rule.text)
		}
	}
	if len(out) == 0 {
		return []string{RecommendPositive}
	}
	if len(out) > maxRecommendations {
		out = out[:maxRecommendations]
	}
	return out
}

// MissingKeywords lists JD keywords the résumé does not repeat, most
// frequent in the JD first
func MissingKeywords(resume, jd string) []string {
	resumeKeywords := make(map[string]struct{})
	for _, kw := range ExtractKeywords(resume) {
		resumeKeywords[kw] = struct{}{}
	}

	jdLower := strings.ToLower(jd)
	type ranked struct {
		keyword string
		count   int
	}
	var missing []ranked
	for _, kw := range ExtractKeywords(jd) {
		if _, ok := resumeKeywords[kw]; ok {
			continue
		}
		missing = append(missing, ranked{kw, strings.Count(jdLower, kw)})
	}

	sort.Slice(missing, func(i, j int) bool {
		if missing[i].count != missing[j].count {
			return missing[i].count > missing[j].count
		}
		return missing[i].keyword < missing[j].keyword
	})

	if len(missing) > maxMissingKeywords {
		missing = missing[:maxMissingKeywords]
	}
	out := make([]string, len(missing))
	for i, m := range missing {
		out[i] = m.keyword
	}
	return out
}

// MissingSkillAreas lists skill categories the JD touches that the résumé
// does not, in taxonomy order
func MissingSkillAreas(resume, jd string) []string {
	have := SkillCategories(resume)
	out := []string{}
	for _, cat := range SkillCategories(jd) {
		if !slices.Contains(have, cat) {
			out = append(out, cat)
		}
	}
	return out
}

// MergeSuggestions appends extra after local, dropping case-insensitive
// duplicates and blanks
func MergeSuggestions(local, extra []string) []string {
	seen := make(map[string]struct{}, len(local)+len(extra))
	out := make([]string, 0, len(local)+len(extra))
	for _, list := range [][]string{local, extra} {
		for _, s := range list {
			s = strings.TrimSpace(s)
			key := strings.ToLower(s)
			if s == "" {
				continue
			}
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}
			out = append(out, s)
			if len(out) == maxMergedSuggestions {
				return out
			}
		}
	}
	return out
}
