package formatters

import (
	"encoding/json"
	"fmt"
	"slices"
	"strings"

	"resumatch/internal/types"
)

// Formatter interface for different output formats
type Formatter interface {
	Format(data any) (string, error)
	SupportedType() string
}

// FormatterRegistry manages all available formatters
type FormatterRegistry struct {
	formatters map[string]map[string]Formatter // format -> type -> formatter
}

// NewFormatterRegistry creates a new formatter registry with default formatters
func NewFormatterRegistry() *FormatterRegistry {
	registry := &FormatterRegistry{
		formatters: make(map[string]map[string]Formatter),
	}

	registry.RegisterFormatter("json", "any", &JSONFormatter{})
	registry.RegisterFormatter("text", "ScoringResult", &ScoreTextFormatter{})
	registry.RegisterFormatter("markdown", "ScoringResult", &ScoreMarkdownFormatter{})
	registry.RegisterFormatter("text", "FeatureVector", &FeaturesTextFormatter{})
	registry.RegisterFormatter("markdown", "FeatureVector", &FeaturesMarkdownFormatter{})

	return registry
}

// RegisterFormatter registers a new formatter for a specific format and data type
func (fr *FormatterRegistry) RegisterFormatter(format, dataType string, formatter Formatter) {
	if fr.formatters[format] == nil {
		fr.formatters[format] = make(map[string]Formatter)
	}
	fr.formatters[format][dataType] = formatter
}

// Format formats data using the appropriate formatter
func (fr *FormatterRegistry) Format(data any, format string) (string, error) {
	if result, ok := data.(*types.ScoringResult); ok && result != nil {
		data = *result
	}
	dataType := getDataType(data)

	if formatters, exists := fr.formatters[format]; exists {
		if formatter, exists := formatters[dataType]; exists {
			return formatter.Format(data)
		}
		if formatter, exists := formatters["any"]; exists {
			return formatter.Format(data)
		}
	}

	return "", fmt.Errorf("no formatter found for format '%s' and type '%s'", format, dataType)
}

// GetSupportedFormats returns all supported formats, sorted
func (fr *FormatterRegistry) GetSupportedFormats() []string {
	formats := make([]string, 0, len(fr.formatters))
	for format := range fr.formatters {
		formats = append(formats, format)
	}
	slices.Sort(formats)
	return formats
}

func getDataType(data any) string {
	switch data.(type) {
	case types.ScoringResult:
		return "ScoringResult"
	case types.FeatureVector:
		return "FeatureVector"
	default:
		return "any"
	}
}

// JSONFormatter handles JSON formatting for any data type
type JSONFormatter struct{}

func (jf *JSONFormatter) Format(data any) (string, error) {
	jsonData, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return "", err
	}
	return string(jsonData) + "\n", nil
}

func (jf *JSONFormatter) SupportedType() string {
	return "any"
}

// componentRows pairs component labels with their values in display order
func componentRows(c types.ScoreComponents) [][2]any {
	return [][2]any{
		{"Keyword match", c.KeywordMatch},
		{"Semantic similarity", c.SemanticSimilarity},
		{"Skills match", c.SkillsMatch},
		{"Experience match", c.ExperienceMatch},
		{"ATS formatting", c.ATSFormatting},
		{"Section completeness", c.SectionCompleteness},
	}
}

// ScoreTextFormatter handles text formatting for scoring results
type ScoreTextFormatter struct{}

func (stf *ScoreTextFormatter) Format(data any) (string, error) {
	result, ok := data.(types.ScoringResult)
	if !ok {
		return "", fmt.Errorf("expected ScoringResult, got %T", data)
	}

	var output strings.Builder

	output.WriteString("=== MATCH SCORE ===\n\n")
	fmt.Fprintf(&output, "Overall: %.2f/100 (%s)\n", result.OverallScore, result.MatchLevel)
	fmt.Fprintf(&output, "ML score: %.2f (%s, probability %.4f from %s)\n",
		result.MLScore, result.Policy, result.Probability, result.ProbabilitySource)
	if result.SemanticFallback {
		output.WriteString("Note: semantic similarity used the neutral fallback value\n")
	}
	output.WriteString("\n")

	output.WriteString("=== SCORE BREAKDOWN ===\n")
	for _, row := range componentRows(result.ScoreBreakdown) {
		fmt.Fprintf(&output, "%-22s %6.2f\n", row[0].(string)+":", row[1])
	}
	output.WriteString("\n")

	if len(result.Recommendations) > 0 {
		output.WriteString("=== RECOMMENDATIONS ===\n")
		for i, rec := range result.Recommendations {
			fmt.Fprintf(&output, "%d. %s\n", i+1, rec)
		}
		output.WriteString("\n")
	}

	if len(result.MissingKeywords) > 0 {
		output.WriteString("=== MISSING KEYWORDS ===\n")
		output.WriteString(strings.Join(result.MissingKeywords, ", "))
		output.WriteString("\n\n")
	}

	if len(result.MissingSkillAreas) > 0 {
		output.WriteString("=== MISSING SKILL AREAS ===\n")
		output.WriteString(strings.Join(result.MissingSkillAreas, ", "))
		output.WriteString("\n\n")
	}

	if ai := result.AIAnalysis; ai != nil {
		output.WriteString("=== AI ANALYSIS ===\n")
		if ai.GeminiScore != nil {
			fmt.Fprintf(&output, "AI score: %.2f\n", *ai.GeminiScore)
		}
		if ai.CombinedScore != nil {
			fmt.Fprintf(&output, "Combined score: %.2f\n", *ai.CombinedScore)
		}
		if ai.DetailedFeedback != "" {
			output.WriteString("\nFeedback:\n")
			output.WriteString(ai.DetailedFeedback)
			output.WriteString("\n")
		}
		writeTextList(&output, "Strengths", ai.Strengths)
		writeTextList(&output, "Weaknesses", ai.Weaknesses)
		if len(ai.ImprovementAreas) > 0 {
			output.WriteString("\nImprovement areas:\n")
			for _, area := range ai.ImprovementAreas {
				fmt.Fprintf(&output, "- [%s] %s: %s\n", area.Priority, area.Area, area.Suggestion)
			}
		}
	}

	return output.String(), nil
}

func (stf *ScoreTextFormatter) SupportedType() string {
	return "ScoringResult"
}

func writeTextList(b *strings.Builder, title string, items []string) {
	if len(items) == 0 {
		return
	}
	fmt.Fprintf(b, "\n%s:\n", title)
	for _, item := range items {
		fmt.Fprintf(b, "- %s\n", item)
	}
}

// ScoreMarkdownFormatter handles markdown formatting for scoring results
type ScoreMarkdownFormatter struct{}

func (smf *ScoreMarkdownFormatter) Format(data any) (string, error) {
	result, ok := data.(types.ScoringResult)
	if !ok {
		return "", fmt.Errorf("expected ScoringResult, got %T", data)
	}

	var output strings.Builder

	output.WriteString("# Resume Match Report\n\n")
	fmt.Fprintf(&output, "**Overall score:** %.2f/100 (%s)\n\n", result.OverallScore, result.MatchLevel)
	fmt.Fprintf(&output, "**ML score:** %.2f, policy `%s`, probability %.4f (%s)\n\n",
		result.MLScore, result.Policy, result.Probability, result.ProbabilitySource)

	output.WriteString("## Score Breakdown\n\n")
	output.WriteString("| Component | Score |\n|---|---|\n")
	for _, row := range componentRows(result.ScoreBreakdown) {
		fmt.Fprintf(&output, "| %s | %.2f |\n", row[0], row[1])
	}
	output.WriteString("\n")

	if len(result.Recommendations) > 0 {
		output.WriteString("## Recommendations\n\n")
		for i, rec := range result.Recommendations {
			fmt.Fprintf(&output, "%d. %s\n", i+1, rec)
		}
		output.WriteString("\n")
	}

	if len(result.MissingKeywords) > 0 {
		output.WriteString("## Missing Keywords\n\n")
		for _, kw := range result.MissingKeywords {
			fmt.Fprintf(&output, "- `%s`\n", kw)
		}
		output.WriteString("\n")
	}

	if len(result.MissingSkillAreas) > 0 {
		output.WriteString("## Missing Skill Areas\n\n")
		for _, area := range result.MissingSkillAreas {
			fmt.Fprintf(&output, "- %s\n", area)
		}
		output.WriteString("\n")
	}

	if ai := result.AIAnalysis; ai != nil {
		output.WriteString("## AI Analysis\n\n")
		if ai.CombinedScore != nil {
			fmt.Fprintf(&output, "**Combined score:** %.2f\n\n", *ai.CombinedScore)
		}
		if ai.DetailedFeedback != "" {
			output.WriteString(ai.DetailedFeedback)
			output.WriteString("\n\n")
		}
		writeMarkdownList(&output, "Strengths", ai.Strengths)
		writeMarkdownList(&output, "Weaknesses", ai.Weaknesses)
		if len(ai.ImprovementAreas) > 0 {
			output.WriteString("### Improvement Areas\n\n")
			for _, area := range ai.ImprovementAreas {
				fmt.Fprintf(&output, "- **%s** (%s): %s\n", area.Area, area.Priority, area.Suggestion)
			}
			output.WriteString("\n")
		}
	}

	return output.String(), nil
}

func (smf *ScoreMarkdownFormatter) SupportedType() string {
	return "ScoringResult"
}

func writeMarkdownList(b *strings.Builder, title string, items []string) {
	if len(items) == 0 {
		return
	}
	fmt.Fprintf(b, "### %s\n\n", title)
	for _, item := range items {
		fmt.Fprintf(b, "- %s\n", item)
	}
	b.WriteString("\n")
}

// FeaturesTextFormatter prints one name=value pair per line
type FeaturesTextFormatter struct{}

func (ftf *FeaturesTextFormatter) Format(data any) (string, error) {
	features, ok := data.(types.FeatureVector)
	if !ok {
		return "", fmt.Errorf("expected FeatureVector, got %T", data)
	}

	var output strings.Builder
	output.WriteString("=== FEATURE VECTOR ===\n")
	for i, v := range features.Values() {
		fmt.Fprintf(&output, "%-11s %g\n", types.FeatureNames[i], v)
	}
	return output.String(), nil
}

func (ftf *FeaturesTextFormatter) SupportedType() string {
	return "FeatureVector"
}

// FeaturesMarkdownFormatter renders the vector as a table
type FeaturesMarkdownFormatter struct{}

func (fmf *FeaturesMarkdownFormatter) Format(data any) (string, error) {
	features, ok := data.(types.FeatureVector)
	if !ok {
		return "", fmt.Errorf("expected FeatureVector, got %T", data)
	}

	var output strings.Builder
	output.WriteString("# Feature Vector\n\n| Feature | Value |\n|---|---|\n")
	for i, v := range features.Values() {
		fmt.Fprintf(&output, "| %s | %g |\n", types.FeatureNames[i], v)
	}
	return output.String(), nil
}

func (fmf *FeaturesMarkdownFormatter) SupportedType() string {
	return "FeatureVector"
}

// Global formatter registry
var GlobalRegistry = NewFormatterRegistry()
