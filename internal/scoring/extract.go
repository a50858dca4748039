package scoring

import (
	"regexp"
	"slices"
	"sort"
	"strconv"
	"strings"
	"unicode/utf8"
)

var (
	wordPattern   = regexp.MustCompile(`[\p{L}\p{N}_]+`)
	phrasePattern = regexp.MustCompile(`\b[A-Z][a-z]+(?:\s+[A-Z][a-z]+)*\b`)
	quotedPattern = regexp.MustCompile(`"([^"]+)"`)

	yearsPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(\d+)\+?\s*years?`),
		regexp.MustCompile(`(\d+)\s*-\s*\d+\s*years?`),
		regexp.MustCompile(`experience:\s*(\d+)`),
	}
)

// Tokenize lowercases text and returns its word tokens with stop words removed.
func Tokenize(text string) []string {
	words := wordPattern.FindAllString(strings.ToLower(text), -1)
	tokens := words[:0]
	for _, w := range words {
		if _, stop := stopWords[w]; stop {
			continue
		}
		tokens = append(tokens, w)
	}
	return tokens
}

// KeywordFrequencies counts tokens long enough to be keywords.
// The returned order slice holds each token at its first occurrence.
func KeywordFrequencies(text string) (map[string]int, []string) {
	freq := make(map[string]int)
	var order []string
	for _, tok := range Tokenize(text) {
		if utf8.RuneCountInString(tok) < minKeywordLength {
			continue
		}
		if freq[tok] == 0 {
			order = append(order, tok)
		}
		freq[tok]++
	}
	return freq, order
}

// ExtractKeywords returns tokens of at least four runes that occur at
// least twice, in first-occurrence order.
func ExtractKeywords(text string) []string {
	freq, order := KeywordFrequencies(text)
	keywords := make([]string, 0, len(order))
	for _, kw := range order {
		if freq[kw] >= minKeywordFrequency {
			keywords = append(keywords, kw)
		}
	}
	return keywords
}

// ExtractPhrases returns capitalized word runs and quoted strings from the
// original-case text, unique and capped at 20.
func ExtractPhrases(text string) []string {
	candidates := phrasePattern.FindAllString(text, -1)
	for _, m := range quotedPattern.FindAllStringSubmatch(text, -1) {
		candidates = append(candidates, m[1])
	}

	seen := make(map[string]struct{}, len(candidates))
	phrases := make([]string, 0, min(len(candidates), maxPhrases))
	for _, p := range candidates {
		if _, dup := seen[p]; dup {
			continue
		}
		seen[p] = struct{}{}
		phrases = append(phrases, p)
		if len(phrases) == maxPhrases {
			break
		}
	}
	return phrases
}

// SkillSet is a set of canonical lowercase skill names.
type SkillSet map[string]struct{}

// Union returns a new set with the members of both sets.
func (s SkillSet) Union(other SkillSet) SkillSet {
	out := make(SkillSet, len(s)+len(other))
	for k := range s {
		out[k] = struct{}{}
	}
	for k := range other {
		out[k] = struct{}{}
	}
	return out
}

// Intersect returns a new set with the members present in both sets.
func (s SkillSet) Intersect(other SkillSet) SkillSet {
	out := make(SkillSet)
	for k := range s {
		if _, ok := other[k]; ok {
			out[k] = struct{}{}
		}
	}
	return out
}

// Sorted returns the members in lexical order.
func (s SkillSet) Sorted() []string {
	out := make([]string, 0, len(s))
	for k := range s {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// ExtractSkills returns every taxonomy skill that occurs in text.
func ExtractSkills(text string) SkillSet {
	lower := strings.ToLower(text)
	found := make(SkillSet)
	for _, cat := range Taxonomy {
		for _, skill := range cat.Skills {
			if strings.Contains(lower, skill) {
				found[skill] = struct{}{}
			}
		}
	}
	return found
}

// SkillCategories returns the taxonomy categories with at least one skill in text.
func SkillCategories(text string) []string {
	lower := strings.ToLower(text)
	var cats []string
	for _, cat := range Taxonomy {
		if slices.ContainsFunc(cat.Skills, func(s string) bool { return strings.Contains(lower, s) }) {
			cats = append(cats, cat.Name)
		}
	}
	return cats
}

// ParseSkills splits a comma-separated list into a lowercase set.
func ParseSkills(list string) SkillSet {
	set := make(SkillSet)
	for _, part := range strings.Split(list, ",") {
		skill := strings.ToLower(strings.TrimSpace(part))
		if skill != "" {
			set[skill] = struct{}{}
		}
	}
	return set
}

// ExtractYears returns the largest years-of-experience figure mentioned in
// text, or 0 when none is found.
func ExtractYears(text string) float64 {
	lower := strings.ToLower(text)
	var maxYears float64
	for _, re := range yearsPatterns {
		for _, m := range re.FindAllStringSubmatch(lower, -1) {
			years, err := strconv.ParseFloat(m[1], 64)
			if err != nil {
				continue
			}
			maxYears = max(maxYears, years)
		}
	}
	return maxYears
}
