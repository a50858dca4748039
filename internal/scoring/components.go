package scoring

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

// Neutral values returned when there is nothing to compare against.
const (
	NeutralKeywordScore    = 50.0
	NeutralSemanticScore   = 50.0
	NeutralSkillsScore     = 70.0
	NeutralExperienceScore = 75.0
)

var (
	emailPattern = regexp.MustCompile(`\b[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Z|a-z]{2,}\b`)
	phonePattern = regexp.MustCompile(`\b\d{3}[-.]?\d{3}[-.]?\d{4}\b`)
	yearPattern  = regexp.MustCompile(`\b(19|20)\d{2}\b`)
)

// KeywordMatch scores how many recurring job description keywords appear in
// the résumé, plus a bonus of up to 10 points for capitalized or quoted
// phrases found verbatim.
func KeywordMatch(resume, jd string) float64 {
	keywords := ExtractKeywords(jd)
	if len(keywords) == 0 {
		return NeutralKeywordScore
	}

	resumeLower := strings.ToLower(resume)
	matches := 0
	for _, kw := range keywords {
		if strings.Contains(resumeLower, kw) {
			matches++
		}
	}
	rate := float64(matches) / float64(len(keywords)) * 100

	phrases := ExtractPhrases(jd)
	if len(phrases) > 0 {
		exact := 0
		for _, p := range phrases {
			if strings.Contains(resumeLower, strings.ToLower(p)) {
				exact++
			}
		}
		rate = min(100, rate+float64(exact)/float64(len(phrases))*10)
	}
	return rate
}

// SkillsMatch scores the share of required skills the résumé covers.
// Explicit lists are merged with skills found in the texts. Résumés naming
// fewer than three skills take a 30% penalty.
func SkillsMatch(resumeSkills, jdSkills, resume, jd string) float64 {
	resumeAll := ParseSkills(resumeSkills).Union(ExtractSkills(resume))
	jdAll := ParseSkills(jdSkills).Union(ExtractSkills(jd))
	if len(jdAll) == 0 {
		return NeutralSkillsScore
	}

	rate := float64(len(resumeAll.Intersect(jdAll))) / float64(len(jdAll)) * 100
	if len(resumeAll) < 3 {
		rate *= 0.7
	}
	return min(100, rate)
}

// ExperienceMatch compares years of experience. A zero explicit value is
// replaced by the figure found in the corresponding text.
func ExperienceMatch(resumeYears, jdYears float64, resume, jd string) float64 {
	if resumeYears == 0 {
		resumeYears = ExtractYears(resume)
	}
	if jdYears == 0 {
		jdYears = ExtractYears(jd)
	}
	if jdYears == 0 {
		return NeutralExperienceScore
	}

	if resumeYears >= jdYears {
		if resumeYears <= jdYears*1.5 {
			return 100
		}
		return 90
	}
	return max(30, resumeYears/jdYears*100)
}

// ATSFormatting scores how well an applicant tracking system could parse the
// résumé. Each missing element costs 15 points; heavy use of non-ASCII
// characters and missing paragraph breaks cost 10 each.
func ATSFormatting(resume string) float64 {
	length := utf8.RuneCountInString(resume)
	lower := strings.ToLower(resume)

	checks := []bool{
		emailPattern.MatchString(resume),
		phonePattern.MatchString(resume),
		strings.ContainsAny(resume, "•-*"),
		yearPattern.MatchString(resume),
		length >= 500 && length <= 5000,
		containsAny(lower, atsSectionWords),
	}

	score := 100.0
	for _, passed := range checks {
		if !passed {
			score -= 15
		}
	}
	if nonASCIICount(resume) > 20 {
		score -= 10
	}
	if strings.Count(resume, "\n\n") < 3 {
		score -= 10
	}
	return clamp(score, 0, 100)
}

// SectionCompleteness weights essential sections at 70 points and optional
// ones at 30.
func SectionCompleteness(resume string) float64 {
	lower := strings.ToLower(resume)
	essential := countPresent(lower, essentialSections)
	optional := countPresent(lower, optionalSections)
	return float64(essential)/float64(len(essentialSections))*70 +
		float64(optional)/float64(len(optionalSections))*30
}

func containsAny(s string, subs []string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

func countPresent(s string, subs []string) int {
	n := 0
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			n++
		}
	}
	return n
}

func nonASCIICount(s string) int {
	n := 0
	for _, r := range s {
		if r > 0x7F {
			n++
		}
	}
	return n
}

func clamp(v, lo, hi float64) float64 {
	return max(lo, min(hi, v))
}
