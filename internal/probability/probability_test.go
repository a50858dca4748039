package probability

import (
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"resumatch/internal/errors"
	"resumatch/internal/types"
)

var testLogger = errors.NewLogger(slog.LevelDebug)

const validArtifact = `{
  "version": "2024.06-logreg",
  "feature_order": ["sim", "overlap", "coverage", "years_diff", "resume_len", "jd_len", "bullets", "headers"],
  "scaler": {
    "mean": [0, 0, 0, 0, 0, 0, 0, 0],
    "scale": [1, 1, 1, 1, 1, 1, 1, 0]
  },
  "classifier": {
    "type": "logistic",
    "coefficients": [0, 0, 0, 0, 0, 0, 0, 0],
    "intercept": 0
  }
}`

func TestParseArtifact(t *testing.T) {
	tests := []struct {
		name        string
		mutate      func(string) string
		expectError string
	}{
		{
			name:   "valid artifact",
			mutate: func(s string) string { return s },
		},
		{
			name: "wrong feature order",
			mutate: func(s string) string {
				return strings.Replace(s, `"sim", "overlap"`, `"overlap", "sim"`, 1)
			},
			expectError: "feature order mismatch",
		},
		{
			name: "missing classifier",
			mutate: func(s string) string {
				i := strings.Index(s, `"classifier"`)
				return s[:i-4] + "\n}"
			},
			expectError: "schema validation",
		},
		{
			name: "unsupported classifier type",
			mutate: func(s string) string {
				return strings.Replace(s, `"logistic"`, `"xgboost"`, 1)
			},
			expectError: "schema validation",
		},
		{
			name:        "not json",
			mutate:      func(string) string { return "{not json" },
			expectError: "MODEL_ARTIFACT_INVALID",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a, err := ParseArtifact([]byte(tt.mutate(validArtifact)))
			if tt.expectError == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				if a.Version != "2024.06-logreg" {
					t.Errorf("version = %q", a.Version)
				}
				return
			}
			if err == nil {
				t.Fatal("expected error, got nil")
			}
			if !strings.Contains(err.Error(), tt.expectError) {
				t.Errorf("error %q does not contain %q", err.Error(), tt.expectError)
			}
		})
	}
}

func TestParseArtifactIsotonicThresholds(t *testing.T) {
	data := strings.Replace(validArtifact, `"classifier"`,
		`"calibration": {"method": "isotonic", "x_thresholds": [0.5, 0.2], "y_thresholds": [0.1, 0.9]},
  "classifier"`, 1)
	if _, err := ParseArtifact([]byte(data)); err == nil {
		t.Fatal("expected error for unsorted thresholds")
	}
}

func TestModelPredict(t *testing.T) {
	a, err := ParseArtifact([]byte(validArtifact))
	if err != nil {
		t.Fatalf("ParseArtifact: %v", err)
	}

	t.Run("zero weights give one half", func(t *testing.T) {
		p := NewModel(a).Predict(types.FeatureVector{Sim: 0.8, Headers: 3})
		if math.Abs(p-0.5) > 1e-12 {
			t.Errorf("p = %v, want 0.5", p)
		}
	})

	t.Run("zero scale treated as one", func(t *testing.T) {
		b := *a
		b.Classifier.Coefficients = []float64{0, 0, 0, 0, 0, 0, 0, 1}
		p := NewModel(&b).Predict(types.FeatureVector{Headers: 2})
		want := 1 / (1 + math.Exp(-2))
		if math.Abs(p-want) > 1e-12 {
			t.Errorf("p = %v, want %v", p, want)
		}
	})

	t.Run("platt calibration", func(t *testing.T) {
		b := *a
		b.Calibration = &Calibration{Method: CalibrationPlatt, A: 2, B: -1}
		p := NewModel(&b).Predict(types.FeatureVector{})
		// raw 0.5 -> sigmoid(2*0.5 - 1) = 0.5
		if math.Abs(p-0.5) > 1e-12 {
			t.Errorf("p = %v, want 0.5", p)
		}
	})

	t.Run("isotonic calibration", func(t *testing.T) {
		b := *a
		b.Calibration = &Calibration{
			Method:      CalibrationIsotonic,
			XThresholds: []float64{0, 0.4, 0.6, 1},
			YThresholds: []float64{0, 0.2, 0.8, 1},
		}
		p := NewModel(&b).Predict(types.FeatureVector{})
		if math.Abs(p-0.5) > 1e-12 {
			t.Errorf("p = %v, want 0.5", p)
		}
	})
}

func TestInterpolate(t *testing.T) {
	xs := []float64{0.2, 0.4, 0.8}
	ys := []float64{0.1, 0.3, 0.9}
	tests := []struct {
		x, want float64
	}{
		{0, 0.1},
		{0.2, 0.1},
		{0.3, 0.2},
		{0.4, 0.3},
		{0.6, 0.6},
		{1, 0.9},
	}
	for _, tt := range tests {
		if got := interpolate(xs, ys, tt.x); math.Abs(got-tt.want) > 1e-9 {
			t.Errorf("interpolate(%v) = %v, want %v", tt.x, got, tt.want)
		}
	}
}

func TestSurrogate(t *testing.T) {
	tests := []struct {
		name string
		f    types.FeatureVector
		want float64
	}{
		{"empty", types.FeatureVector{}, 0},
		{"negative similarity clamps", types.FeatureVector{Sim: -0.4}, 0},
		{"full", types.FeatureVector{Sim: 1, Coverage: 1, Bullets: 10, Headers: 6}, 1},
		{"mixed", types.FeatureVector{Sim: 0.6, Coverage: 0.5, Bullets: 0, Headers: 4}, 0.3 + 0.15 + 0.1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := (Surrogate{}).Predict(tt.f); math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("Predict() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestLoad(t *testing.T) {
	t.Run("empty path", func(t *testing.T) {
		c := Load("", testLogger)
		if _, ok := c.(Unavailable); !ok {
			t.Fatalf("expected Unavailable, got %T", c)
		}
	})

	t.Run("missing file", func(t *testing.T) {
		c := Load(filepath.Join(t.TempDir(), "missing.json"), testLogger)
		u, ok := c.(Unavailable)
		if !ok {
			t.Fatalf("expected Unavailable, got %T", c)
		}
		if u.Reason == "" {
			t.Error("expected a reason")
		}
	})

	t.Run("valid file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "model.json")
		if err := os.WriteFile(path, []byte(validArtifact), 0o644); err != nil {
			t.Fatal(err)
		}
		c := Load(path, testLogger)
		a, ok := c.(Available)
		if !ok {
			t.Fatalf("expected Available, got %T", c)
		}
		status, detail := Describe(a)
		if status != "available" || detail != "2024.06-logreg" {
			t.Errorf("Describe() = %q, %q", status, detail)
		}
	})
}
