package ai

import (
	"context"
	"crypto/rand"
	"fmt"
	"math"
	"math/big"
	"time"

	"resumatch/internal/config"
	appErrors "resumatch/internal/errors"
	"resumatch/internal/types"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"google.golang.org/genai"
)

const (
	enrichOperation     = "enrich"
	modelCheckTimeout   = 10 * time.Second
	maxRetryBackoff     = 30 * time.Second
	retryJitterFraction = 0.1
	geminiTracerName    = "resumatch.ai.gemini"
	jsonMIMEType        = "application/json"
)

// GeminiProvider implements Enricher for Google Gemini
type GeminiProvider struct {
	client         *genai.Client
	config         config.OperationAIConfig
	circuitBreaker *CircuitBreaker[*genai.GenerateContentResponse]
	modelBreaker   *CircuitBreaker[*genai.Model]
	logger         *appErrors.Logger
}

var (
	_ Enricher       = (*GeminiProvider)(nil)
	_ HealthReporter = (*GeminiProvider)(nil)
)

// NewGeminiProvider creates a Gemini client for enrichment. cfg must have
// had operation defaults applied.
func NewGeminiProvider(ctx context.Context, cfg config.OperationAIConfig, logger *appErrors.Logger) (*GeminiProvider, error) {
	if cfg.APIKey == "" {
		return nil, appErrors.NewConfigError(appErrors.ErrCodeMissingAPIKey,
			"Gemini API key is required for enrichment", nil)
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, appErrors.NewAIError(appErrors.ErrCodeAIServiceFailed,
			"Failed to create Gemini client", err)
	}

	return &GeminiProvider{
		client:         client,
		config:         cfg,
		circuitBreaker: NewGenerateBreaker("Enrich", &cfg, logger),
		modelBreaker:   NewModelBreaker("Enrich", &cfg, logger),
		logger:         logger,
	}, nil
}

// Model returns the configured model name
func (g *GeminiProvider) Model() string {
	return g.config.Model
}

// ModelInfo represents information about the AI model
type ModelInfo struct {
	Name        string `json:"name"`
	DisplayName string `json:"displayName,omitempty"`
	Version     string `json:"version,omitempty"`
	Available   bool   `json:"available"`
	Error       string `json:"error,omitempty"`
}

// GetModelInfo checks the readiness and availability of the configured model
func (g *GeminiProvider) GetModelInfo(ctx context.Context) *ModelInfo {
	info := &ModelInfo{Name: g.config.Model}

	checkCtx, cancel := context.WithTimeout(ctx, modelCheckTimeout)
	defer cancel()

	model, err := g.modelBreaker.Execute(func() (*genai.Model, error) {
		return g.client.Models.Get(checkCtx, g.config.Model, &genai.GetModelConfig{})
	})
	if err != nil {
		info.Error = ClassifyError(err)
		g.logger.Warn("Model availability check failed",
			"model", g.config.Model,
			"provider", g.config.Provider,
			"error", err.Error())
		return info
	}

	info.Available = true
	info.DisplayName = model.DisplayName
	info.Version = model.Version

	g.logger.Debug("Model availability check successful",
		"model", g.config.Model,
		"display_name", info.DisplayName,
		"version", info.Version)
	return info
}

// GetCircuitBreakerStats reports the generation breaker state
func (g *GeminiProvider) GetCircuitBreakerStats() map[string]any {
	return g.circuitBreaker.Stats()
}

// Enrich asks Gemini for an advisory analysis of the pair
func (g *GeminiProvider) Enrich(ctx context.Context, req EnrichmentRequest) (types.EnrichmentOutput, *types.TokenUsage, error) {
	tracer := otel.Tracer(geminiTracerName)
	ctx, span := tracer.Start(ctx, "gemini."+enrichOperation)
	defer span.End()

	span.SetAttributes(
		attribute.String("ai.provider", "gemini"),
		attribute.String("ai.model", g.config.Model),
		attribute.Float64("ai.temperature", float64(g.temperature())),
		attribute.Int("input.resume_length", len(req.ResumeText)),
		attribute.Int("input.job_length", len(req.JobDescription)),
		attribute.Float64("input.ml_score", req.MLScore),
	)

	systemPrompt, userPrompt := g.prompts(req)
	genaiConfig := g.buildEnrichConfig()
	if g.useSystemPrompts() && systemPrompt != "" {
		genaiConfig.SystemInstruction = genai.NewContentFromText(systemPrompt, genai.RoleUser)
	}

	result, err := g.circuitBreaker.Execute(func() (*genai.GenerateContentResponse, error) {
		return g.executeWithRetry(ctx, enrichOperation, func() (*genai.GenerateContentResponse, error) {
			return g.client.Models.GenerateContent(ctx, g.config.Model, genai.Text(userPrompt), genaiConfig)
		})
	})
	if err != nil {
		span.RecordError(err)
		span.SetAttributes(attribute.Bool("success", false))
		return types.EnrichmentOutput{}, nil, appErrors.NewAIError(appErrors.ErrCodeAIServiceFailed,
			"Failed to generate enrichment", err)
	}

	output, err := parseReply(result)
	if err != nil {
		span.RecordError(err)
		span.SetAttributes(attribute.Bool("success", false))
		return types.EnrichmentOutput{}, nil, err
	}
	usage := extractTokenUsage(result)
	if usage != nil {
		span.SetAttributes(
			attribute.Int("ai.tokens.input", usage.InputTokens),
			attribute.Int("ai.tokens.output", usage.OutputTokens),
			attribute.Int("ai.tokens.total", usage.TotalTokens),
		)
	}
	span.SetAttributes(
		attribute.Bool("success", true),
		attribute.Bool("output.has_score", output.Score != nil),
		attribute.Int("output.suggestions", len(output.Suggestions)),
	)
	return output, usage, nil
}

// parseReply reads the enrichment out of a response. Blocked or truncated
// replies carry no text, so the block or finish reason goes into the error.
func parseReply(result *genai.GenerateContentResponse) (types.EnrichmentOutput, error) {
	if result == nil {
		return types.EnrichmentOutput{}, appErrors.NewAIError(appErrors.ErrCodeAIResponseParseFailed,
			"Gemini returned no response", nil)
	}

	output, err := ParseEnrichment(result.Text())
	if err != nil {
		if reason := stopReason(result); reason != "" {
			if appErr, ok := appErrors.AsAppError(err); ok {
				appErr.WithContext("stop_reason", reason)
				appErr.Message = fmt.Sprintf("%s (stop reason %s)", appErr.Message, reason)
			}
		}
		return types.EnrichmentOutput{}, err
	}
	return output, nil
}

// stopReason reports why Gemini stopped: a prompt block wins over the
// first candidate's finish reason. A normal STOP is not reported.
func stopReason(result *genai.GenerateContentResponse) string {
	if fb := result.PromptFeedback; fb != nil && fb.BlockReason != "" {
		return string(fb.BlockReason)
	}
	if len(result.Candidates) > 0 && result.Candidates[0] != nil {
		if r := result.Candidates[0].FinishReason; r != "" && r != genai.FinishReasonStop {
			return string(r)
		}
	}
	return ""
}

// executeWithRetry retries transient failures with exponential backoff
func (g *GeminiProvider) executeWithRetry(ctx context.Context, operation string, fn func() (*genai.GenerateContentResponse, error)) (*genai.GenerateContentResponse, error) {
	maxRetries := g.maxRetries()
	var lastErr error

	for attempt := 0; attempt <= maxRetries; attempt++ {
		if attempt > 0 {
			g.logger.Warn("Retrying AI operation",
				"operation", operation,
				"attempt", attempt,
				"max_retries", maxRetries,
				"error", lastErr.Error())

			select {
			case <-time.After(retryBackoff(attempt)):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}

		result, err := fn()
		if err == nil {
			if attempt > 0 {
				g.logger.Info("AI operation succeeded after retry",
					"operation", operation,
					"total_attempts", attempt+1)
			}
			return result, nil
		}

		lastErr = err
		if !isRetryableError(err) {
			g.logger.Debug("Error is not retryable, stopping retry attempts",
				"operation", operation,
				"error", err.Error())
			break
		}
	}

	g.logger.LogError(lastErr, "AI operation failed",
		"operation", operation,
		"max_retries", maxRetries)
	return nil, fmt.Errorf("operation '%s' failed: %w", operation, lastErr)
}

// retryBackoff is 2^(attempt-1) seconds plus up to 10% jitter, capped
func retryBackoff(attempt int) time.Duration {
	base := time.Duration(math.Pow(2, float64(attempt-1))) * time.Second
	var jitter time.Duration
	if n, err := rand.Int(rand.Reader, big.NewInt(int64(float64(base)*retryJitterFraction))); err == nil {
		jitter = time.Duration(n.Int64())
	}
	return min(base+jitter, maxRetryBackoff)
}

// buildEnrichConfig requests JSON matching the enrichment shape
func (g *GeminiProvider) buildEnrichConfig() *genai.GenerateContentConfig {
	stringList := &genai.Schema{Type: genai.TypeArray, Items: &genai.Schema{Type: genai.TypeString}}

	cfg := &genai.GenerateContentConfig{
		ResponseMIMEType: jsonMIMEType,
		ResponseSchema: &genai.Schema{
			Type: genai.TypeObject,
			Properties: map[string]*genai.Schema{
				"gemini_score":      {Type: genai.TypeNumber},
				"suggestions":       stringList,
				"detailed_feedback": {Type: genai.TypeString},
				"strengths":         stringList,
				"weaknesses":        stringList,
				"improvement_areas": {
					Type: genai.TypeArray,
					Items: &genai.Schema{
						Type: genai.TypeObject,
						Properties: map[string]*genai.Schema{
							"area":       {Type: genai.TypeString},
							"priority":   {Type: genai.TypeString, Enum: []string{"high", "medium", "low"}},
							"suggestion": {Type: genai.TypeString},
						},
						Required: []string{"area", "priority", "suggestion"},
					},
				},
			},
			Required: []string{"gemini_score", "suggestions", "detailed_feedback", "strengths", "weaknesses", "improvement_areas"},
		},
	}

	if t := g.temperature(); t > 0 {
		cfg.Temperature = &t
	}
	return cfg
}

// prompts resolves the system and user prompts: file, then config, then default
func (g *GeminiProvider) prompts(req EnrichmentRequest) (system, user string) {
	loaded := config.GetLoadedEnrichPrompts()
	custom := g.config.CustomPrompts

	system = resolvePrompt(loaded.System, custom.SystemPrompts.Enrich, DefaultSystemPrompt)
	template := resolvePrompt(loaded.User, custom.UserPrompts.Enrich, DefaultUserPrompt)
	return system, BuildUserPrompt(template, req)
}

func (g *GeminiProvider) temperature() float32 {
	if g.config.Temperature == nil {
		return 0
	}
	return *g.config.Temperature
}

func (g *GeminiProvider) maxRetries() int {
	if g.config.MaxRetries == nil || *g.config.MaxRetries < 0 {
		return 0
	}
	return *g.config.MaxRetries
}

func (g *GeminiProvider) useSystemPrompts() bool {
	return g.config.UseSystemPrompts == nil || *g.config.UseSystemPrompts
}

// extractTokenUsage extracts token usage information from a Gemini response
func extractTokenUsage(result *genai.GenerateContentResponse) *types.TokenUsage {
	if result == nil || result.UsageMetadata == nil {
		return nil
	}
	usage := result.UsageMetadata
	return &types.TokenUsage{
		InputTokens:  int(usage.PromptTokenCount),
		OutputTokens: int(usage.CandidatesTokenCount),
		TotalTokens:  int(usage.TotalTokenCount),
	}
}
