package ai

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"

	appErrors "resumatch/internal/errors"
	"resumatch/internal/types"
)

const (
	maxSuggestions      = 10
	maxStrengths        = 5
	maxWeaknesses       = 5
	maxImprovementAreas = 8
	maxFeedbackRunes    = 1000
	minFallbackLineLen  = 20
)

// rawEnrichment mirrors the requested JSON shape. The score is decoded
// separately because models return it as a number or a string.
type rawEnrichment struct {
	Score            json.RawMessage         `json:"gemini_score"`
	Suggestions      []string                `json:"suggestions"`
	DetailedFeedback string                  `json:"detailed_feedback"`
	Strengths        []string                `json:"strengths"`
	Weaknesses       []string                `json:"weaknesses"`
	ImprovementAreas []types.ImprovementArea `json:"improvement_areas"`
}

// ParseEnrichment turns a raw model reply into an EnrichmentOutput. Replies
// that are not JSON degrade to bullet-line suggestions with the raw text
// as feedback and no score. A blank reply, or one that carries no score
// and no advice, is an error.
func ParseEnrichment(text string) (types.EnrichmentOutput, error) {
	if strings.TrimSpace(text) == "" {
		return types.EnrichmentOutput{}, appErrors.NewAIError(appErrors.ErrCodeAIResponseParseFailed,
			"Enrichment reply is empty", nil)
	}

	var raw rawEnrichment
	if err := json.Unmarshal([]byte(stripCodeFence(text)), &raw); err != nil {
		return fallbackEnrichment(text), nil
	}

	out := types.EnrichmentOutput{
		Score:            coerceScore(raw.Score),
		Suggestions:      capStrings(raw.Suggestions, maxSuggestions),
		DetailedFeedback: strings.TrimSpace(raw.DetailedFeedback),
		Strengths:        capStrings(raw.Strengths, maxStrengths),
		Weaknesses:       capStrings(raw.Weaknesses, maxWeaknesses),
		ImprovementAreas: capAreas(raw.ImprovementAreas, maxImprovementAreas),
	}
	if isEmptyEnrichment(out) {
		return types.EnrichmentOutput{}, appErrors.NewAIError(appErrors.ErrCodeAIResponseParseFailed,
			"Enrichment reply has no score and no advice", nil)
	}
	return out, nil
}

func isEmptyEnrichment(out types.EnrichmentOutput) bool {
	return out.Score == nil &&
		len(out.Suggestions) == 0 &&
		out.DetailedFeedback == "" &&
		len(out.Strengths) == 0 &&
		len(out.Weaknesses) == 0 &&
		len(out.ImprovementAreas) == 0
}

func stripCodeFence(text string) string {
	text = strings.TrimSpace(text)
	switch {
	case strings.HasPrefix(text, "```json"):
		text = text[len("```json"):]
	case strings.HasPrefix(text, "```"):
		text = text[len("```"):]
	}
	text = strings.TrimSuffix(text, "```")
	return strings.TrimSpace(text)
}

// coerceScore accepts 72, 72.5 or "72.5" and clamps to [0,100]
func coerceScore(raw json.RawMessage) *float64 {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil
	}

	var score float64
	if err := json.Unmarshal(raw, &score); err != nil {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return nil
		}
		parsed, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
		if err != nil {
			return nil
		}
		score = parsed
	}

	score = min(max(score, 0), 100)
	return &score
}

func fallbackEnrichment(text string) types.EnrichmentOutput {
	return types.EnrichmentOutput{
		Suggestions:      bulletSuggestions(text),
		DetailedFeedback: truncateRunes(text, maxFeedbackRunes),
		Strengths:        []string{},
		Weaknesses:       []string{},
		ImprovementAreas: []types.ImprovementArea{},
	}
}

// bulletSuggestions collects "-", "•" and "*" lines that carry enough text
func bulletSuggestions(text string) []string {
	out := []string{}
	for line := range strings.SplitSeq(text, "\n") {
		line = strings.TrimSpace(line)
		if !strings.HasPrefix(line, "-") && !strings.HasPrefix(line, "•") && !strings.HasPrefix(line, "*") {
			continue
		}
		suggestion := strings.TrimSpace(strings.TrimLeft(line, "-•* "))
		if len([]rune(suggestion)) <= minFallbackLineLen {
			continue
		}
		out = append(out, suggestion)
		if len(out) == maxSuggestions {
			break
		}
	}
	return out
}

func capStrings(in []string, n int) []string {
	if in == nil {
		return []string{}
	}
	if len(in) > n {
		return in[:n]
	}
	return in
}

func capAreas(in []types.ImprovementArea, n int) []types.ImprovementArea {
	if in == nil {
		return []types.ImprovementArea{}
	}
	if len(in) > n {
		return in[:n]
	}
	return in
}
