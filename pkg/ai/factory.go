package ai

import (
	"context"
	"fmt"
	"strings"
)

// Config selects and configures a provider.
type Config struct {
	Provider        string
	Model           string
	OpenAIAPIKey    string
	AnthropicAPIKey string
	GeminiAPIKey    string
	RetryAttempts   int
}

// New returns the configured generator wrapped with retries. It returns a nil generator and
// no error when the provider is "none" so callers fall back to deterministic behaviour.
func New(ctx context.Context, cfg Config) (TextGenerator, error) {
	var (
		generator TextGenerator
		err       error
	)

	switch strings.ToLower(strings.TrimSpace(cfg.Provider)) {
	case "", "none", "disabled":
		return nil, nil
	case "openai":
		generator, err = NewOpenAIGenerator(OpenAIConfig{APIKey: cfg.OpenAIAPIKey, Model: cfg.Model})
	case "anthropic":
		generator, err = NewAnthropicGenerator(AnthropicConfig{APIKey: cfg.AnthropicAPIKey, Model: cfg.Model})
	case "gemini":
		generator, err = NewGeminiGenerator(ctx, GeminiConfig{APIKey: cfg.GeminiAPIKey, Model: cfg.Model})
	default:
		return nil, fmt.Errorf("unknown ai provider %q", cfg.Provider)
	}
	if err != nil {
		return nil, err
	}

	return WithRetry(generator, DefaultRetryConfig(cfg.RetryAttempts+1)), nil
}
