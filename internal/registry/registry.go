// Package registry builds the shared scoring models once and hands them to
// every caller.
package registry

import (
	"context"
	"fmt"
	"sync"

	"resumatch/internal/config"
	"resumatch/internal/embedding"
	"resumatch/internal/errors"
	"resumatch/internal/probability"

	"github.com/redis/go-redis/extra/redisotel/v9"
	"github.com/redis/go-redis/v9"
)

// Registry lazily constructs the embedding provider and the probability
// capability. Each is built at most once; a construction failure is
// remembered and returned to every later caller.
type Registry struct {
	embeddingCfg config.EmbeddingConfig
	artifactPath string
	logger       *errors.Logger

	embedOnce sync.Once
	provider  *embedding.Provider
	embedErr  error
	redis     *redis.Client

	probOnce   sync.Once
	capability probability.Capability
}

// New creates a registry; nothing is loaded until first use
func New(cfg *config.Config, logger *errors.Logger) *Registry {
	return &Registry{
		embeddingCfg: cfg.Embedding,
		artifactPath: cfg.Scoring.ModelArtifact,
		logger:       logger,
	}
}

// Embedder returns the shared semantic similarity provider
func (r *Registry) Embedder(ctx context.Context) (*embedding.Provider, error) {
	r.embedOnce.Do(func() {
		// The first request's cancellation must not poison the shared instance.
		r.provider, r.embedErr = r.buildProvider(context.WithoutCancel(ctx))
		if r.embedErr != nil {
			r.logger.LogError(r.embedErr, "Failed to construct embedding provider",
				"provider", r.embeddingCfg.Provider)
			return
		}
		r.logger.Info("Embedding provider ready", "embedder", r.provider.Name())
		if !r.semantic() {
			r.logger.Warn("Local hashing embedder in use: semantic_similarity measures shared vocabulary, not meaning. "+
				"Set embedding.provider to gemini or openai for semantic scores",
				"provider", config.EmbeddingLocal)
		}
	})
	return r.provider, r.embedErr
}

// Probability returns the shared probability capability
func (r *Registry) Probability() probability.Capability {
	r.probOnce.Do(func() {
		r.capability = probability.Load(r.artifactPath, r.logger)
	})
	return r.capability
}

// Status summarizes both models for health reporting
func (r *Registry) Status(ctx context.Context) map[string]any {
	status := map[string]any{}

	provider, err := r.Embedder(ctx)
	embed := map[string]any{"provider": r.embeddingCfg.Provider, "available": err == nil}
	if err != nil {
		embed["error"] = err.Error()
	} else {
		embed["embedder"] = provider.Name()
		embed["cache"] = r.redis != nil
		embed["semantic"] = r.semantic()
	}
	status["embedding"] = embed

	state, detail := probability.Describe(r.Probability())
	status["probability"] = map[string]any{"status": state, "detail": detail}
	return status
}

// semantic reports whether the configured embedder captures meaning rather
// than token overlap
func (r *Registry) semantic() bool {
	switch r.embeddingCfg.Provider {
	case config.EmbeddingLocal, "":
		return false
	}
	return true
}

// Close releases the cache connection, if any
func (r *Registry) Close() error {
	if r.redis != nil {
		return r.redis.Close()
	}
	return nil
}

func (r *Registry) buildProvider(ctx context.Context) (*embedding.Provider, error) {
	cfg := r.embeddingCfg

	var (
		embedder embedding.Embedder
		err      error
	)
	switch cfg.Provider {
	case config.EmbeddingLocal, "":
		embedder = embedding.NewLocalEmbedder(cfg.Dimensions)
	case config.EmbeddingGemini:
		embedder, err = embedding.NewGeminiEmbedder(ctx, cfg.APIKey, cfg.Model, cfg.Dimensions)
	case config.EmbeddingOpenAI:
		embedder, err = embedding.NewOpenAIEmbedder(cfg.APIKey, cfg.Model, cfg.BaseURL, cfg.Dimensions, cfg.Timeout)
	default:
		err = fmt.Errorf("unknown embedding provider %q", cfg.Provider)
	}
	if err != nil {
		return nil, err
	}

	if cfg.Cache.Enabled {
		embedder = r.withCache(ctx, embedder)
	}
	return embedding.NewProvider(embedder, cfg.Timeout, r.logger), nil
}

// withCache wraps embedder with Redis. An unreachable cache is logged and
// skipped.
func (r *Registry) withCache(ctx context.Context, embedder embedding.Embedder) embedding.Embedder {
	cacheCfg := r.embeddingCfg.Cache
	client := redis.NewClient(&redis.Options{
		Addr:     cacheCfg.Address,
		Password: cacheCfg.Password,
		DB:       cacheCfg.DB,
	})
	if err := redisotel.InstrumentTracing(client); err != nil {
		r.logger.Warn("Failed to instrument embedding cache tracing", "error", err.Error())
	}

	cached, err := embedding.NewCachedEmbedder(ctx, embedder, client, cacheCfg.TTL, r.logger)
	if err != nil {
		r.logger.Warn("Embedding cache unavailable, continuing without it",
			"address", cacheCfg.Address,
			"error", err.Error())
		_ = client.Close()
		return embedder
	}

	r.redis = client
	r.logger.Info("Embedding cache enabled", "address", cacheCfg.Address, "ttl", cacheCfg.TTL)
	return cached
}
