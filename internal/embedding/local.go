package embedding

import (
	"context"
	"hash/fnv"
	"regexp"
	"strings"
)

// DefaultLocalDimensions is the vector size of the local embedder
const DefaultLocalDimensions = 512

var localTokenPattern = regexp.MustCompile(`[\p{L}\p{N}+#]+`)

// LocalEmbedder is a deterministic hashed bag-of-words embedder. Unigrams and
// bigrams are hashed into a fixed number of buckets, so related texts that
// share vocabulary land close together without any model download.
type LocalEmbedder struct {
	dimensions int
}

var _ Embedder = (*LocalEmbedder)(nil)

// NewLocalEmbedder creates a local embedder; dimensions <= 0 selects the default
func NewLocalEmbedder(dimensions int) *LocalEmbedder {
	if dimensions <= 0 {
		dimensions = DefaultLocalDimensions
	}
	return &LocalEmbedder{dimensions: dimensions}
}

func (l *LocalEmbedder) Name() string { return "local" }

func (l *LocalEmbedder) Dimensions() int { return l.dimensions }

// Embed hashes each text independently
func (l *LocalEmbedder) Embed(ctx context.Context, texts []string) ([][]float64, error) {
	out := make([][]float64, len(texts))
	for i, text := range texts {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		out[i] = l.vector(text)
	}
	return out, nil
}

func (l *LocalEmbedder) vector(text string) []float64 {
	vec := make([]float64, l.dimensions)
	tokens := localTokenPattern.FindAllString(strings.ToLower(text), -1)
	for i, tok := range tokens {
		vec[l.bucket(tok)]++
		if i > 0 {
			// Bigrams weigh half as much as single words.
			vec[l.bucket(tokens[i-1]+" "+tok)] += 0.5
		}
	}
	return vec
}

func (l *LocalEmbedder) bucket(token string) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(token))
	return int(h.Sum32() % uint32(l.dimensions))
}
