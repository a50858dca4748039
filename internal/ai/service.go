package ai

import (
	"context"
	"fmt"

	"resumatch/internal/config"
	appErrors "resumatch/internal/errors"
	"resumatch/internal/observability"
)

// NewEnricher creates the provider named by cfg.Provider
func NewEnricher(ctx context.Context, cfg config.OperationAIConfig, logger *appErrors.Logger) (Enricher, error) {
	logger.Debug("Initializing enrichment provider",
		"provider", cfg.Provider,
		"model", cfg.Model)

	switch cfg.Provider {
	case "gemini":
		return NewGeminiProvider(ctx, cfg, logger)
	default:
		return nil, appErrors.NewConfigError(appErrors.ErrCodeInvalidConfig,
			fmt.Sprintf("Unsupported AI provider: %s", cfg.Provider), nil)
	}
}

// NewAdapterFromConfig builds the enrichment adapter. Enrichment that is
// disabled, has no key, or cannot be initialized yields an adapter that
// always returns NotEnriched.
func NewAdapterFromConfig(ctx context.Context, cfg *config.Config, metrics *observability.Metrics, logger *appErrors.Logger) *Adapter {
	enrichCfg := cfg.GetEnrichConfig()
	timeout := DefaultTimeout
	if enrichCfg.Timeout != nil {
		timeout = *enrichCfg.Timeout
	}

	if !cfg.EnrichmentEnabled() {
		logger.Info("Enrichment disabled",
			"ai_enabled", cfg.AI.Enabled,
			"has_api_key", enrichCfg.APIKey != "")
		return NewAdapter(nil, timeout, metrics, logger)
	}

	enricher, err := NewEnricher(ctx, enrichCfg, logger)
	if err != nil {
		logger.LogError(err, "Failed to initialize enrichment, continuing without it")
		return NewAdapter(nil, timeout, metrics, logger)
	}

	logger.Info("Enrichment enabled",
		"provider", enrichCfg.Provider,
		"model", enrichCfg.Model,
		"timeout", timeout)
	return NewAdapter(enricher, timeout, metrics, logger)
}
