package embedding

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	appErrors "resumatch/internal/errors"

	"github.com/redis/go-redis/v9"
)

const cacheKeyPrefix = "resumatch:emb:"

// CachedEmbedder stores vectors from another embedder in Redis. Cache
// failures are logged and the inner embedder is used directly.
type CachedEmbedder struct {
	inner  Embedder
	client *redis.Client
	ttl    time.Duration
	logger *appErrors.Logger
}

var _ Embedder = (*CachedEmbedder)(nil)

// NewCachedEmbedder wraps inner with a Redis cache and checks connectivity
func NewCachedEmbedder(ctx context.Context, inner Embedder, client *redis.Client, ttl time.Duration, logger *appErrors.Logger) (*CachedEmbedder, error) {
	if client == nil {
		return nil, fmt.Errorf("redis client cannot be nil")
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}

	return &CachedEmbedder{inner: inner, client: client, ttl: ttl, logger: logger}, nil
}

func (c *CachedEmbedder) Name() string { return c.inner.Name() }

// key scopes entries by embedder, model and vector size so a config change
// never serves vectors of another shape
func (c *CachedEmbedder) key(text string) string {
	dims := 0
	if sized, ok := c.inner.(Sized); ok {
		dims = sized.Dimensions()
	}
	sum := sha256.Sum256([]byte(text))
	return fmt.Sprintf("%s%s:d%d:%s", cacheKeyPrefix, c.inner.Name(), dims, hex.EncodeToString(sum[:]))
}

// Embed serves cached vectors and embeds only the misses
func (c *CachedEmbedder) Embed(ctx context.Context, texts []string) ([][]float64, error) {
	if len(texts) == 0 {
		return [][]float64{}, nil
	}

	keys := make([]string, len(texts))
	for i, text := range texts {
		keys[i] = c.key(text)
	}

	out := make([][]float64, len(texts))
	var missIdx []int

	cached, err := c.client.MGet(ctx, keys...).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		c.logger.Warn("Embedding cache read failed, bypassing cache", "error", err.Error())
		return c.inner.Embed(ctx, texts)
	}

	for i := range texts {
		if i < len(cached) {
			if raw, ok := cached[i].(string); ok {
				var vec []float64
				if err := json.Unmarshal([]byte(raw), &vec); err == nil && len(vec) > 0 {
					out[i] = vec
					continue
				}
				c.logger.Warn("Discarding corrupt embedding cache entry", "key", keys[i])
			}
		}
		missIdx = append(missIdx, i)
	}

	if len(missIdx) == 0 {
		c.logger.Debug("Embedding cache hit", "count", len(texts))
		return out, nil
	}

	missTexts := make([]string, len(missIdx))
	for j, i := range missIdx {
		missTexts[j] = texts[i]
	}
	fresh, err := c.inner.Embed(ctx, missTexts)
	if err != nil {
		return nil, err
	}
	if len(fresh) != len(missTexts) {
		return nil, fmt.Errorf("embedder returned %d vectors for %d inputs", len(fresh), len(missTexts))
	}

	pipe := c.client.Pipeline()
	for j, i := range missIdx {
		out[i] = fresh[j]
		data, err := json.Marshal(fresh[j])
		if err != nil {
			continue
		}
		pipe.Set(ctx, keys[i], data, c.ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		c.logger.Warn("Embedding cache write failed", "error", err.Error())
	}

	c.logger.Debug("Embedding cache updated",
		"hits", len(texts)-len(missIdx),
		"misses", len(missIdx))
	return out, nil
}
