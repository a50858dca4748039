// Package embedding turns text into vectors and compares them.
package embedding

import (
	"context"
	"fmt"
	"math"
	"time"

	"resumatch/internal/errors"
)

// Fallback values reported when similarity cannot be computed
const (
	FallbackCosine = 0.5
	FallbackScore  = 50.0
)

// Embedder encodes texts into fixed-size vectors. Implementations must be
// safe for concurrent use.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float64, error)
	Name() string
}

// Sized is implemented by embedders with a configurable vector size. Zero
// means the model's native size.
type Sized interface {
	Dimensions() int
}

// Similarity is the outcome of comparing two texts
type Similarity struct {
	Cosine   float64 // raw cosine in [-1,1]
	Score    float64 // cosine rescaled to [0,100]
	Fallback bool    // true when the neutral value was substituted
	Err      error   // why the fallback was taken
}

// Provider computes semantic similarity on top of an Embedder
type Provider struct {
	embedder Embedder
	timeout  time.Duration
	logger   *errors.Logger
}

// NewProvider wraps an embedder. A zero timeout leaves the caller's deadline in charge.
func NewProvider(embedder Embedder, timeout time.Duration, logger *errors.Logger) *Provider {
	return &Provider{embedder: embedder, timeout: timeout, logger: logger}
}

// Name returns the underlying embedder name
func (p *Provider) Name() string {
	return p.embedder.Name()
}

// Similarity compares a and b. It never fails: any encoding problem yields
// the neutral fallback with Fallback set.
func (p *Provider) Similarity(ctx context.Context, a, b string) Similarity {
	if p.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}

	cos, err := p.cosine(ctx, a, b)
	if err != nil {
		p.logger.Warn("Semantic similarity fell back to neutral value",
			"embedder", p.embedder.Name(),
			"error", err.Error())
		return Similarity{Cosine: FallbackCosine, Score: FallbackScore, Fallback: true, Err: err}
	}

	return Similarity{Cosine: cos, Score: math.Max(0, math.Min(100, cos*100))}
}

func (p *Provider) cosine(ctx context.Context, a, b string) (float64, error) {
	vectors, err := p.embedder.Embed(ctx, []string{a, b})
	if err != nil {
		return 0, err
	}
	if len(vectors) != 2 {
		return 0, fmt.Errorf("expected 2 embeddings, got %d", len(vectors))
	}
	return Cosine(vectors[0], vectors[1])
}

// Cosine returns the cosine similarity of two equal-length, non-zero vectors
func Cosine(a, b []float64) (float64, error) {
	if len(a) != len(b) {
		return 0, fmt.Errorf("embedding dimensions differ: %d vs %d", len(a), len(b))
	}
	if len(a) == 0 {
		return 0, fmt.Errorf("empty embedding")
	}

	var dot, normA, normB float64
	for i := range a {
		dot += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}
	if normA == 0 || normB == 0 {
		return 0, fmt.Errorf("zero-length embedding vector")
	}

	cos := dot / (math.Sqrt(normA) * math.Sqrt(normB))
	if math.IsNaN(cos) {
		return 0, fmt.Errorf("cosine is not a number")
	}
	// Rounding can push the value just outside [-1,1].
	return math.Max(-1, math.Min(1, cos)), nil
}
