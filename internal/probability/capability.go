package probability

import (
	"resumatch/internal/errors"
)

// Capability reports whether a trained probability model is loaded.
// It is either Available or Unavailable.
type Capability interface {
	isCapability()
}

// Available carries a loaded trained model.
type Available struct {
	Predictor Predictor
}

// Unavailable records why no trained model could be used.
type Unavailable struct {
	Reason string
}

func (Available) isCapability()   {}
func (Unavailable) isCapability() {}

// Load resolves the capability for an artifact path. An empty path or any
// load failure yields Unavailable; failures are logged.
func Load(path string, logger *errors.Logger) Capability {
	if path == "" {
		return Unavailable{Reason: "no model artifact configured"}
	}
	artifact, err := LoadArtifact(path)
	if err != nil {
		logger.LogError(err, "Probability model unavailable, using surrogate", "path", path)
		return Unavailable{Reason: err.Error()}
	}
	logger.Info("Loaded probability model", "path", path, "version", artifact.Version)
	return Available{Predictor: NewModel(artifact)}
}

// Describe returns a short status line for health reporting.
func Describe(c Capability) (status, detail string) {
	switch c := c.(type) {
	case Available:
		return "available", c.Predictor.Version()
	case Unavailable:
		return "unavailable", c.Reason
	default:
		return "unknown", ""
	}
}
