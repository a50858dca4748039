package ai

import (
	"fmt"
	"strings"
)

const (
	maxPromptResumeRunes = 3000
	maxPromptJDRunes     = 2000
)

// DefaultSystemPrompt is the built-in system instruction for enrichment
const DefaultSystemPrompt = `You are an expert resume reviewer and career advisor. You compare a resume against a job description and give honest, specific and actionable feedback.

- Judge only what is written in the resume; never assume skills or experience that are not stated
- Prefer concrete suggestions the candidate can apply directly
- Keep ATS (Applicant Tracking System) compatibility in mind`

// DefaultUserPrompt is the built-in user prompt. Custom templates take the
// same nine format verbs: resume, job description, machine score, then the
// component scores in ScoreComponents field order.
const DefaultUserPrompt = `Analyze this resume against the job description and provide detailed feedback.

RESUME (first 3000 chars):
%s

JOB DESCRIPTION (first 2000 chars):
%s

MACHINE LEARNING SCORE: %.1f/100
Score Breakdown:
- Keyword Match: %.1f%%
- Semantic Similarity: %.1f%%
- Skills Match: %.1f%%
- Experience Match: %.1f%%
- ATS Formatting: %.1f%%
- Section Completeness: %.1f%%

Respond with a JSON object of this shape:
{
    "gemini_score": <your score 0-100>,
    "suggestions": ["<specific actionable suggestion>", ...],
    "detailed_feedback": "<2-3 paragraph detailed analysis>",
    "strengths": ["<key strength>", ...],
    "weaknesses": ["<key weakness>", ...],
    "improvement_areas": [
        {"area": "<area name>", "priority": "<high/medium/low>", "suggestion": "<specific improvement>"}
    ]
}

Focus on:
1. How well the resume matches the job requirements
2. Specific improvements needed
3. Missing keywords or skills
4. Formatting and ATS compatibility issues
5. Experience level alignment
6. Overall presentation quality

Return ONLY valid JSON, no additional text.`

// BuildUserPrompt fills template with the truncated texts and scores
func BuildUserPrompt(template string, req EnrichmentRequest) string {
	b := req.Breakdown
	return fmt.Sprintf(template,
		truncateRunes(req.ResumeText, maxPromptResumeRunes),
		truncateRunes(req.JobDescription, maxPromptJDRunes),
		req.MLScore,
		b.KeywordMatch,
		b.SemanticSimilarity,
		b.SkillsMatch,
		b.ExperienceMatch,
		b.ATSFormatting,
		b.SectionCompleteness,
	)
}

// truncateRunes keeps the first n runes of s
func truncateRunes(s string, n int) string {
	count := 0
	for i := range s {
		if count == n {
			return s[:i]
		}
		count++
	}
	return s
}

// resolvePrompt picks a prompt loaded from a file, then one set in
// configuration, then the default
func resolvePrompt(loadedFromFile, fromConfig, fromDefault string) string {
	if s := strings.TrimSpace(loadedFromFile); s != "" {
		return s
	}
	if s := strings.TrimSpace(fromConfig); s != "" {
		return s
	}
	return fromDefault
}
