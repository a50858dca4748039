package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearConfigEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{"GEMINI_API_KEY", "RESUMATCH_AI_APIKEY", "RESUMATCH_SERVER_APIKEYS", "RESUMATCH_EMBEDDING_APIKEY"} {
		t.Setenv(key, "")
	}
}

func loadTestConfig(t *testing.T, yaml string) (*Config, error) {
	t.Helper()
	v := viper.New()
	if yaml != "" {
		path := filepath.Join(t.TempDir(), "config.yaml")
		require.NoError(t, os.WriteFile(path, []byte(yaml), 0600))
		v.SetConfigFile(path)
	}
	return loadConfig(v, false)
}

func TestLoadConfigDefaults(t *testing.T) {
	clearConfigEnv(t)

	cfg, err := loadTestConfig(t, "")
	require.NoError(t, err)

	assert.Equal(t, PolicyAuto, cfg.Scoring.Policy)
	assert.InDelta(t, 1.0, cfg.Scoring.Weights.Sum(), 1e-9)
	assert.Equal(t, 0.25, cfg.Scoring.Weights.Keyword)
	assert.Equal(t, 0.20, cfg.Scoring.Weights.Semantic)
	assert.Equal(t, EmbeddingLocal, cfg.Embedding.Provider)
	assert.Equal(t, 20*time.Second, cfg.AI.Timeout)
	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, "disabled", cfg.Server.TLS.Mode)
	assert.False(t, cfg.EnrichmentEnabled(), "no API key means no enrichment")
}

func TestLoadConfigFromFileAndEnv(t *testing.T) {
	clearConfigEnv(t)
	t.Setenv("RESUMATCH_SCORING_POLICY", "weighted_sum")
	t.Setenv("RESUMATCH_SERVER_APIKEYS", "k1, k2")
	t.Setenv("GEMINI_API_KEY", "legacy-key")

	cfg, err := loadTestConfig(t, `
scoring:
  policy: probability
embedding:
  provider: gemini
server:
  port: "9999"
ai:
  enrich:
    model: gemini-2.5-pro
`)
	require.NoError(t, err)

	assert.Equal(t, PolicyWeightedSum, cfg.Scoring.Policy, "environment overrides the file")
	assert.Equal(t, "9999", cfg.Server.Port)
	assert.Equal(t, []string{"k1", "k2"}, cfg.Server.APIKeys)
	assert.Equal(t, "legacy-key", cfg.AI.APIKey)
	assert.Equal(t, "legacy-key", cfg.Embedding.APIKey, "gemini embeddings reuse the AI key")
	assert.True(t, cfg.EnrichmentEnabled())

	enrich := cfg.GetEnrichConfig()
	assert.Equal(t, "gemini-2.5-pro", enrich.Model)
	assert.Equal(t, "legacy-key", enrich.APIKey)
	require.NotNil(t, enrich.Timeout)
	assert.Equal(t, 20*time.Second, *enrich.Timeout)
}

func TestLoadConfigRejectsInvalid(t *testing.T) {
	clearConfigEnv(t)

	_, err := loadTestConfig(t, `
scoring:
  weights:
    keyword: 0.9
`)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "weights must sum")
}

func validConfig() *Config {
	return &Config{
		Scoring: ScoringConfig{
			Policy:  PolicyAuto,
			Weights: WeightsConfig{Keyword: .25, Semantic: .20, Skills: .25, Experience: .10, ATS: .10, Sections: .10},
		},
		Embedding: EmbeddingConfig{Provider: EmbeddingLocal},
		AI:        AIConfig{Timeout: time.Second},
		Server:    ServerConfig{Port: "8080", TLS: TLSConfig{Mode: "disabled"}},
		App:       AppConfig{DefaultFormat: "json", SupportedFormats: []string{"json", "text"}},
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name        string
		mutate      func(*Config)
		expectError string
	}{
		{name: "valid", mutate: func(*Config) {}},
		{name: "bad policy", mutate: func(c *Config) { c.Scoring.Policy = "max" }, expectError: "invalid scoring policy"},
		{name: "weights off", mutate: func(c *Config) { c.Scoring.Weights.ATS = 0.5 }, expectError: "weights must sum"},
		{name: "weights within tolerance", mutate: func(c *Config) { c.Scoring.Weights.ATS = 0.105 }},
		{name: "bad provider", mutate: func(c *Config) { c.Embedding.Provider = "bert" }, expectError: "invalid embedding provider"},
		{name: "openai without key", mutate: func(c *Config) { c.Embedding.Provider = EmbeddingOpenAI }, expectError: "embedding API key"},
		{
			name: "openai with key",
			mutate: func(c *Config) {
				c.Embedding.Provider = EmbeddingOpenAI
				c.Embedding.APIKey = "sk"
			},
		},
		{
			name: "cache without address",
			mutate: func(c *Config) {
				c.Embedding.Cache.Enabled = true
			},
			expectError: "cache address",
		},
		{name: "zero AI timeout", mutate: func(c *Config) { c.AI.Timeout = 0 }, expectError: "AI timeout"},
		{name: "no port", mutate: func(c *Config) { c.Server.Port = "" }, expectError: "port"},
		{name: "unsupported format", mutate: func(c *Config) { c.App.DefaultFormat = "xml" }, expectError: "default format"},
		{name: "bad tls", mutate: func(c *Config) { c.Server.TLS.Mode = "server" }, expectError: "TLS configuration error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.expectError != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.expectError)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestGetEnrichConfigPromptFallback(t *testing.T) {
	cfg := &Config{
		AI: AIConfig{
			Model:       "gemini-2.0-flash",
			Temperature: 0.7,
			CustomPrompts: PromptConfig{
				SystemPrompts: SystemPrompts{Enrich: "global system"},
				UserPrompts:   UserPrompts{Enrich: "global user"},
			},
			Enrich: OperationAIConfig{
				CustomPrompts: PromptConfig{SystemPrompts: SystemPrompts{Enrich: "enrich system"}},
			},
		},
	}

	enrich := cfg.GetEnrichConfig()
	assert.Equal(t, "enrich system", enrich.CustomPrompts.SystemPrompts.Enrich)
	assert.Equal(t, "global user", enrich.CustomPrompts.UserPrompts.Enrich)
	assert.Equal(t, "gemini-2.0-flash", enrich.Model)
	require.NotNil(t, enrich.Temperature)
	assert.Equal(t, float32(0.7), *enrich.Temperature)
}

func TestSplitAndTrim(t *testing.T) {
	assert.Equal(t, []string{"a", "b"}, splitAndTrim(" a, ,b ,"))
	assert.Nil(t, splitAndTrim(""))
}
