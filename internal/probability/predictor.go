package probability

import (
	"math"
	"sort"

	"resumatch/internal/types"
)

// Predictor maps a feature vector to a match probability in [0,1].
type Predictor interface {
	Predict(f types.FeatureVector) float64
	Version() string
}

// Model is a Predictor backed by a trained artifact.
type Model struct {
	artifact *Artifact
}

// NewModel wraps a validated artifact.
func NewModel(a *Artifact) *Model {
	return &Model{artifact: a}
}

func (m *Model) Version() string {
	return m.artifact.Version
}

func (m *Model) Predict(f types.FeatureVector) float64 {
	a := m.artifact
	z := a.Classifier.Intercept
	for i, x := range f.Values() {
		scale := a.Scaler.Scale[i]
		if scale == 0 {
			scale = 1
		}
		z += a.Classifier.Coefficients[i] * (x - a.Scaler.Mean[i]) / scale
	}
	p := sigmoid(z)

	if c := a.Calibration; c != nil {
		switch c.Method {
		case CalibrationPlatt:
			p = sigmoid(c.A*p + c.B)
		case CalibrationIsotonic:
			p = interpolate(c.XThresholds, c.YThresholds, p)
		}
	}
	return clamp01(p)
}

// Surrogate approximates the trained model from the same features when no
// artifact is available.
type Surrogate struct{}

func (Surrogate) Version() string {
	return "surrogate-v1"
}

func (Surrogate) Predict(f types.FeatureVector) float64 {
	format := min(1, (f.Bullets*0.7+f.Headers)/8)
	return clamp01(0.5*clamp01(f.Sim) + 0.3*clamp01(f.Coverage) + 0.2*format)
}

func sigmoid(z float64) float64 {
	return 1 / (1 + math.Exp(-z))
}

// interpolate evaluates the piecewise-linear isotonic fit, clamping to the
// end values outside the fitted range.
func interpolate(xs, ys []float64, x float64) float64 {
	n := len(xs)
	if x <= xs[0] {
		return ys[0]
	}
	if x >= xs[n-1] {
		return ys[n-1]
	}
	i := sort.SearchFloat64s(xs, x)
	if xs[i] == x {
		return ys[i]
	}
	x0, x1 := xs[i-1], xs[i]
	y0, y1 := ys[i-1], ys[i]
	if x1 == x0 {
		return y1
	}
	return y0 + (y1-y0)*(x-x0)/(x1-x0)
}

func clamp01(v float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	return max(0, min(1, v))
}
