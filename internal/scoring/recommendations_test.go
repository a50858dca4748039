package scoring

import (
	"fmt"
	"slices"
	"strings"
	"testing"

	"resumatch/internal/types"
)

func TestRecommendations(t *testing.T) {
	t.Run("strong resume gets one positive note", func(t *testing.T) {
		got := Recommendations(types.ScoreComponents{
			KeywordMatch: 60, SemanticSimilarity: 10, SkillsMatch: 50,
			ExperienceMatch: 60, ATSFormatting: 70, SectionCompleteness: 70,
		})
		if !slices.Equal(got, []string{RecommendPositive}) {
			t.Errorf("expected only the positive note, got %v", got)
		}
	})

	t.Run("every rule fires in order", func(t *testing.T) {
		got := Recommendations(types.ScoreComponents{})
		want := []string{RecommendKeywords, RecommendSkills, RecommendATS, RecommendSections, RecommendExperience}
		if !slices.Equal(got, want) {
			t.Errorf("expected %v, got %v", want, got)
		}
		if len(got) > maxRecommendations {
			t.Errorf("expected at most %d entries, got %d", maxRecommendations, len(got))
		}
	})

	t.Run("single weakness", func(t *testing.T) {
		got := Recommendations(types.ScoreComponents{
			KeywordMatch: 90, SkillsMatch: 90, ExperienceMatch: 20, ATSFormatting: 90, SectionCompleteness: 90,
		})
		if !slices.Equal(got, []string{RecommendExperience}) {
			t.Errorf("expected only the experience note, got %v", got)
		}
	})
}

func TestRecommendationThresholdsAreStrict(t *testing.T) {
	healthy := types.ScoreComponents{
		KeywordMatch: 90, SkillsMatch: 90, ExperienceMatch: 90, ATSFormatting: 90, SectionCompleteness: 90,
	}

	almost := healthy
	almost.KeywordMatch = 59.996
	if got := Recommendations(almost); !slices.Equal(got, []string{RecommendKeywords}) {
		t.Errorf("59.996 is below 60, expected the keyword note, got %v", got)
	}

	almost.KeywordMatch = Round2(59.996)
	if got := Recommendations(almost); !slices.Equal(got, []string{RecommendPositive}) {
		t.Errorf("expected the positive note at exactly 60, got %v", got)
	}
}

func TestMissingSkillAreas(t *testing.T) {
	got := MissingSkillAreas("python developer with sql", "python, kubernetes, pytorch")
	if !slices.Equal(got, []string{"ml", "cloud"}) {
		t.Errorf("expected [ml cloud], got %v", got)
	}
	if got := MissingSkillAreas("python", "python"); got == nil || len(got) != 0 {
		t.Errorf("expected an empty list, got %#v", got)
	}
}

func TestMissingKeywords(t *testing.T) {
	resume := "python developer who writes python daily"
	jd := "kubernetes terraform python ansible kubernetes terraform python ansible kubernetes"

	got := MissingKeywords(resume, jd)
	want := []string{"kubernetes", "ansible", "terraform"}
	if !slices.Equal(got, want) {
		t.Errorf("expected %v, got %v", want, got)
	}
}

func TestMissingKeywordsCap(t *testing.T) {
	var words []string
	for i := range 14 {
		w := fmt.Sprintf("keyword%c", 'a'+i)
		words = append(words, w, w)
	}

	got := MissingKeywords("nothing relevant here", strings.Join(words, " "))
	if len(got) != maxMissingKeywords {
		t.Fatalf("expected %d keywords, got %d", maxMissingKeywords, len(got))
	}
	if got[0] != "keyworda" {
		t.Errorf("expected alphabetical tie-break, got %v", got)
	}
}

func TestMergeSuggestions(t *testing.T) {
	local := []string{"Add a skills section", "Quantify impact"}
	extra := []string{"add a SKILLS section", "  ", "Mention Kubernetes", "Quantify impact "}

	got := MergeSuggestions(local, extra)
	want := []string{"Add a skills section", "Quantify impact", "Mention Kubernetes"}
	if !slices.Equal(got, want) {
		t.Errorf("expected %v, got %v", want, got)
	}

	var many []string
	for i := range 20 {
		many = append(many, fmt.Sprintf("suggestion %d", i))
	}
	if got := MergeSuggestions(local, many); len(got) != maxMergedSuggestions {
		t.Errorf("expected cap of %d, got %d", maxMergedSuggestions, len(got))
	}
}
