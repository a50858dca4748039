package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"resumatch/internal/config"
	"resumatch/internal/errors"
	"resumatch/internal/types"
)

const (
	testResume = `Jane Doe
Summary
Backend engineer with 6 years of experience building Go and Python services.

Experience
- Built REST APIs in Go on Kubernetes
- Ran PostgreSQL and Redis in production

Skills
Go, Python, Docker, Kubernetes, PostgreSQL

Education
BSc Computer Science`

	testJD = `We are hiring a backend engineer with 5+ years of experience in Go,
Kubernetes and PostgreSQL. Terraform is a plus.`
)

func testConfig() *config.Config {
	return &config.Config{
		Scoring:   config.ScoringConfig{Policy: config.PolicyAuto},
		Embedding: config.EmbeddingConfig{Provider: config.EmbeddingLocal},
		App: config.AppConfig{
			DefaultFormat:    "json",
			SupportedFormats: []string{"json", "text", "markdown"},
			MaxFileSize:      1 << 20,
		},
	}
}

func writeInputs(t *testing.T) (string, string, string) {
	t.Helper()
	dir := t.TempDir()
	resume := filepath.Join(dir, "resume.txt")
	jd := filepath.Join(dir, "jd.txt")
	if err := os.WriteFile(resume, []byte(testResume), 0600); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(jd, []byte(testJD), 0600); err != nil {
		t.Fatal(err)
	}
	return dir, resume, jd
}

func execute(t *testing.T, cfg *config.Config, args ...string) error {
	t.Helper()
	scoreFlags = pairFlags{}
	featuresFlags = pairFlags{}
	// Subcommands keep the context of their first run otherwise.
	var unset context.Context
	for _, sub := range rootCmd.Commands() {
		sub.SetContext(unset)
	}
	rootCmd.SetArgs(args)
	rootCmd.SetOut(io.Discard)
	rootCmd.SetErr(io.Discard)
	t.Cleanup(func() { rootCmd.SetArgs(nil) })
	return Execute(context.Background(), cfg, errors.NewLoggerWithWriter(io.Discard, 0))
}

func TestScoreCommand(t *testing.T) {
	dir, resume, jd := writeInputs(t)
	out := filepath.Join(dir, "report.json")

	err := execute(t, testConfig(), "score", resume, jd,
		"--jd-skills", "go,kubernetes", "--jd-skills", "postgresql",
		"--no-enrich", "-o", out)
	if err != nil {
		t.Fatalf("score failed: %v", err)
	}

	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatalf("report not written: %v", err)
	}
	var result types.ScoringResult
	if err := json.Unmarshal(data, &result); err != nil {
		t.Fatalf("invalid JSON report: %v", err)
	}
	if result.OverallScore < 0 || result.OverallScore > 100 {
		t.Errorf("overall score out of range: %v", result.OverallScore)
	}
	if result.Policy != types.PolicyWeightedSum {
		t.Errorf("expected weighted_sum without a model artifact, got %s", result.Policy)
	}
	if result.AIAnalysis != nil {
		t.Error("expected no AI analysis with --no-enrich")
	}
}

func TestFeaturesCommand(t *testing.T) {
	dir, resume, jd := writeInputs(t)
	out := filepath.Join(dir, "features.md")

	if err := execute(t, testConfig(), "features", resume, jd, "--format", "markdown", "-o", out); err != nil {
		t.Fatalf("features failed: %v", err)
	}

	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatalf("report not written: %v", err)
	}
	for _, name := range types.FeatureNames {
		if !strings.Contains(string(data), "| "+name+" |") {
			t.Errorf("missing feature %s:\n%s", name, data)
		}
	}
}

func TestPairCommandsRejectBadInput(t *testing.T) {
	_, resume, jd := writeInputs(t)

	t.Run("unsupported format", func(t *testing.T) {
		err := execute(t, testConfig(), "features", resume, jd, "--format", "xml")
		if err == nil || !strings.Contains(err.Error(), "unsupported output format") {
			t.Errorf("expected format error, got %v", err)
		}
	})

	t.Run("wrong argument count", func(t *testing.T) {
		if err := execute(t, testConfig(), "features", resume); err == nil {
			t.Error("expected an argument error")
		}
	})

	t.Run("embedding provider unavailable", func(t *testing.T) {
		cfg := testConfig()
		cfg.Embedding.Provider = "unknown"
		err := execute(t, cfg, "features", resume, jd)
		if !errors.IsType(err, errors.ErrorTypeUnavailable) {
			t.Errorf("expected unavailable error, got %v", err)
		}
	})
}

func TestVersionCommand(t *testing.T) {
	var out bytes.Buffer
	rootCmd.SetArgs([]string{"version"})
	rootCmd.SetOut(&out)
	t.Cleanup(func() {
		rootCmd.SetArgs(nil)
		rootCmd.SetOut(nil)
	})

	if err := Execute(context.Background(), testConfig(), errors.NewLoggerWithWriter(io.Discard, 0)); err != nil {
		t.Fatalf("version failed: %v", err)
	}
	if !strings.HasPrefix(out.String(), "resumatch version dev") {
		t.Errorf("unexpected output %q", out.String())
	}
}
