package server

import (
	"context"
	"time"

	"resumatch/internal/config"
	appErrors "resumatch/internal/errors"
	"resumatch/internal/types"
)

// ScoreRequest is the body accepted by /score and /features
type ScoreRequest struct {
	ResumeText     string  `json:"resume_text"`
	JobDescription string  `json:"job_description"`
	ResumeSkills   string  `json:"resume_skills"`
	JobSkills      string  `json:"job_skills"`
	ResumeYears    float64 `json:"resume_years"`
	JobYears       float64 `json:"job_years"`
	SkipEnrichment bool    `json:"skip_enrichment"`
}

func (r ScoreRequest) input() types.ScoringInput {
	return types.ScoringInput{
		ResumeText:     r.ResumeText,
		JobDescription: r.JobDescription,
		ResumeSkills:   r.ResumeSkills,
		JobSkills:      r.JobSkills,
		ResumeYears:    r.ResumeYears,
		JobYears:       r.JobYears,
		SkipEnrichment: r.SkipEnrichment,
	}
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

// Scorer is the scoring engine as seen by the handlers
type Scorer interface {
	Score(ctx context.Context, in types.ScoringInput) (*types.ScoringResult, error)
	Features(ctx context.Context, in types.ScoringInput) (types.FeatureVector, error)
}

// ModelStatus reports the embedding provider and probability model
type ModelStatus interface {
	Status(ctx context.Context) map[string]any
}

// EnrichmentStatus reports the enrichment service
type EnrichmentStatus interface {
	Health(ctx context.Context) map[string]any
}

// Backend groups everything the handlers call into
type Backend struct {
	Scorer     Scorer
	Models     ModelStatus
	Enrichment EnrichmentStatus

	// close releases backend resources on shutdown
	close func() error
}

// Server holds configuration for the HTTP server
type Server struct {
	Host    string
	Port    string
	Version string

	// Full application configuration
	AppConfig *config.Config

	TLSConfig config.TLSConfig

	// API Authentication
	APIKeys map[string]bool

	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration

	MaxRequestSize int64

	RateLimit   *config.RateLimitConfig
	RateLimiter *RateLimiter

	// Backend is built by Start when nil
	Backend *Backend

	Logger *appErrors.Logger
}

// ServerConfig holds configuration for creating a Server instance
type ServerConfig struct {
	Host           string
	Port           string
	Version        string
	TLSConfig      config.TLSConfig
	APIKeys        []string
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	IdleTimeout    time.Duration
	MaxRequestSize int64
	RateLimit      *config.RateLimitConfig
}

// NewServerConfig derives server settings from the application config
func NewServerConfig(cfg *config.Config, version string) ServerConfig {
	return ServerConfig{
		Host:           cfg.Server.Host,
		Port:           cfg.Server.Port,
		Version:        version,
		TLSConfig:      cfg.Server.TLS,
		APIKeys:        cfg.Server.APIKeys,
		ReadTimeout:    cfg.Server.ReadTimeout,
		WriteTimeout:   cfg.Server.WriteTimeout,
		IdleTimeout:    cfg.Server.IdleTimeout,
		MaxRequestSize: cfg.Server.MaxRequestSize,
		RateLimit:      &cfg.Server.RateLimit,
	}
}

// NewServer creates a new Server instance from a ServerConfig struct
func NewServer(appCfg *config.Config, cfg ServerConfig, logger *appErrors.Logger) *Server {
	apiKeyMap := make(map[string]bool)
	for _, key := range cfg.APIKeys {
		if key != "" {
			apiKeyMap[key] = true
		}
	}

	var rateLimiter *RateLimiter
	if cfg.RateLimit != nil && cfg.RateLimit.Enabled {
		rateLimiter = NewRateLimiter(cfg.RateLimit.RequestsPerMin, cfg.RateLimit.BurstCapacity, cfg.RateLimit.Window, logger)
	}

	return &Server{
		Host:           cfg.Host,
		Port:           cfg.Port,
		Version:        cfg.Version,
		AppConfig:      appCfg,
		TLSConfig:      cfg.TLSConfig,
		APIKeys:        apiKeyMap,
		ReadTimeout:    cfg.ReadTimeout,
		WriteTimeout:   cfg.WriteTimeout,
		IdleTimeout:    cfg.IdleTimeout,
		MaxRequestSize: cfg.MaxRequestSize,
		RateLimit:      cfg.RateLimit,
		RateLimiter:    rateLimiter,
		Logger:         logger,
	}
}
