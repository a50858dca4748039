package probability

import (
	"encoding/json"
	"fmt"
	"os"
	"slices"
	"strings"

	"github.com/xeipuuv/gojsonschema"

	"resumatch/internal/errors"
	"resumatch/internal/types"
)

// Calibration methods supported by an artifact.
const (
	CalibrationPlatt    = "platt"
	CalibrationIsotonic = "isotonic"
)

// Artifact is the serialized form of a trained probability model: a
// standard scaler, a logistic classifier and an optional calibrator.
type Artifact struct {
	Version      string       `json:"version"`
	FeatureOrder []string     `json:"feature_order"`
	Scaler       Scaler       `json:"scaler"`
	Classifier   Classifier   `json:"classifier"`
	Calibration  *Calibration `json:"calibration,omitempty"`
}

type Scaler struct {
	Mean  []float64 `json:"mean"`
	Scale []float64 `json:"scale"`
}

type Classifier struct {
	Type         string    `json:"type"`
	Coefficients []float64 `json:"coefficients"`
	Intercept    float64   `json:"intercept"`
}

// Calibration maps raw classifier output to a calibrated probability.
// Platt uses A and B; isotonic uses the threshold pairs.
type Calibration struct {
	Method      string    `json:"method"`
	A           float64   `json:"a,omitempty"`
	B           float64   `json:"b,omitempty"`
	XThresholds []float64 `json:"x_thresholds,omitempty"`
	YThresholds []float64 `json:"y_thresholds,omitempty"`
}

const artifactSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "required": ["version", "feature_order", "scaler", "classifier"],
  "properties": {
    "version": {"type": "string", "minLength": 1},
    "feature_order": {
      "type": "array",
      "items": {"type": "string"},
      "minItems": 8,
      "maxItems": 8
    },
    "scaler": {
      "type": "object",
      "required": ["mean", "scale"],
      "properties": {
        "mean": {"type": "array", "items": {"type": "number"}, "minItems": 8, "maxItems": 8},
        "scale": {"type": "array", "items": {"type": "number"}, "minItems": 8, "maxItems": 8}
      }
    },
    "classifier": {
      "type": "object",
      "required": ["type", "coefficients", "intercept"],
      "properties": {
        "type": {"enum": ["logistic"]},
        "coefficients": {"type": "array", "items": {"type": "number"}, "minItems": 8, "maxItems": 8},
        "intercept": {"type": "number"}
      }
    },
    "calibration": {
      "type": "object",
      "required": ["method"],
      "properties": {
        "method": {"enum": ["platt", "isotonic"]},
        "a": {"type": "number"},
        "b": {"type": "number"},
        "x_thresholds": {"type": "array", "items": {"type": "number"}, "minItems": 2},
        "y_thresholds": {"type": "array", "items": {"type": "number"}, "minItems": 2}
      }
    }
  }
}`

var schemaLoader = gojsonschema.NewStringLoader(artifactSchema)

// LoadArtifact reads and validates an artifact file.
func LoadArtifact(path string) (*Artifact, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.NewIOError(errors.ErrCodeFileNotReadable, "failed to read model artifact", err).
			WithContext("path", path)
	}
	return ParseArtifact(data)
}

// ParseArtifact validates data against the artifact schema, decodes it and
// checks that its feature order matches the engine's FeatureVector.
func ParseArtifact(data []byte) (*Artifact, error) {
	result, err := gojsonschema.Validate(schemaLoader, gojsonschema.NewBytesLoader(data))
	if err != nil {
		return nil, errors.NewValidationError(errors.ErrCodeModelArtifactInvalid, "model artifact is not valid JSON", err)
	}
	if !result.Valid() {
		msgs := make([]string, 0, len(result.Errors()))
		for _, desc := range result.Errors() {
			field := desc.Field()
			if field == "" {
				field = "(root)"
			}
			msgs = append(msgs, fmt.Sprintf("%s: %s", field, desc.Description()))
		}
		return nil, errors.NewValidationError(errors.ErrCodeModelArtifactInvalid,
			"model artifact failed schema validation: "+strings.Join(msgs, "; "), nil)
	}

	var a Artifact
	if err := json.Unmarshal(data, &a); err != nil {
		return nil, errors.NewValidationError(errors.ErrCodeModelArtifactInvalid, "failed to decode model artifact", err)
	}
	if err := a.check(); err != nil {
		return nil, err
	}
	return &a, nil
}

func (a *Artifact) check() error {
	if !slices.Equal(a.FeatureOrder, types.FeatureNames) {
		return errors.NewValidationError(errors.ErrCodeModelArtifactInvalid,
			fmt.Sprintf("feature order mismatch: artifact has %v, engine expects %v", a.FeatureOrder, types.FeatureNames), nil)
	}
	if a.Calibration == nil {
		return nil
	}
	if a.Calibration.Method == CalibrationIsotonic {
		x, y := a.Calibration.XThresholds, a.Calibration.YThresholds
		if len(x) < 2 || len(x) != len(y) {
			return errors.NewValidationError(errors.ErrCodeModelArtifactInvalid,
				"isotonic calibration needs matching x_thresholds and y_thresholds", nil)
		}
		if !slices.IsSorted(x) {
			return errors.NewValidationError(errors.ErrCodeModelArtifactInvalid,
				"isotonic x_thresholds must be ascending", nil)
		}
	}
	return nil
}
