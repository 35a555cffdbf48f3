package llm

import (
	"context"

	"github.com/nkoval/tradefeed/internal/model"
)

// Provider defines the generative-model boundary. The pipeline depends
// on nothing model-specific beyond "accepts a prompt (and optionally
// page images) and returns text that should contain JSON".
type Provider interface {
	// Name returns the provider name
	Name() string

	// Generate runs one model call and returns the raw response text
	Generate(ctx context.Context, req GenerateRequest) (*GenerateResponse, error)

	// IsAvailable checks if the provider is properly configured and accessible
	IsAvailable(ctx context.Context) bool
}

// GenerateRequest contains the input for one model call.
type GenerateRequest struct {
	// Prompt is the full extraction prompt, schema included
	Prompt string

	// Images holds rasterized PDF pages (PNG bytes) for multimodal
	// calls; empty for text-only sources
	Images [][]byte

	// Model overrides the configured model for this call (optional)
	Model string

	// MaxTokens limits the response length
	MaxTokens int
}

// GenerateResponse contains the model's raw output.
type GenerateResponse struct {
	// Text is the raw response text; the transformer recovers JSON from it
	Text string

	// Model is the model that generated the response
	Model string

	// TokensUsed tracks token consumption
	TokensUsed int
}

// Config holds LLM provider configuration.
type Config struct {
	// Provider name: "openai", "ollama", ""
	Provider string

	// Model name (provider-specific)
	Model string

	// APIKey for hosted providers
	APIKey string

	// BaseURL for custom endpoints (e.g., Ollama, proxies)
	BaseURL string

	// Timeout for API requests, in seconds
	Timeout int

	// MaxTokens for response generation
	MaxTokens int
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		Provider:  "",
		Model:     "",
		Timeout:   120,
		MaxTokens: 4096,
	}
}

// ConfigFromModel converts model.LLMConfig to llm.Config.
func ConfigFromModel(mc model.LLMConfig) Config {
	return Config{
		Provider:  mc.Provider,
		Model:     mc.Model,
		APIKey:    mc.APIKey,
		BaseURL:   mc.BaseURL,
		Timeout:   mc.Timeout,
		MaxTokens: mc.MaxTokens,
	}
}
