package ai

import (
	"context"
	"errors"
	"fmt"

	"google.golang.org/genai"
)

// GeminiConfig configures the Gemini generator.
type GeminiConfig struct {
	APIKey string
	Model  string
}

// GeminiGenerator implements TextGenerator with the Gemini API.
type GeminiGenerator struct {
	client *genai.Client
	model  string
}

// NewGeminiGenerator creates the client eagerly so configuration errors surface at startup.
func NewGeminiGenerator(ctx context.Context, cfg GeminiConfig) (*GeminiGenerator, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("gemini api key is required")
	}
	if cfg.Model == "" {
		cfg.Model = "gemini-2.0-flash"
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}

	return &GeminiGenerator{client: client, model: cfg.Model}, nil
}

// Provider implements TextGenerator.
func (g *GeminiGenerator) Provider() string { return "gemini" }

// Generate sends the prompt as a single user turn.
func (g *GeminiGenerator) Generate(ctx context.Context, req GenerationRequest) (GenerationResult, error) {
	return observe(ctx, g.Provider(), g.model, func(ctx context.Context) (GenerationResult, error) {
		config := &genai.GenerateContentConfig{
			MaxOutputTokens: int32(req.MaxTokens),
		}
		if req.Temperature > 0 {
			temp := float32(req.Temperature)
			config.Temperature = &temp
		}
		if req.System != "" {
			config.SystemInstruction = &genai.Content{Parts: []*genai.Part{{Text: req.System}}}
		}
		if req.JSON {
			config.ResponseMIMEType = "application/json"
		}

		contents := []*genai.Content{{Role: "user", Parts: []*genai.Part{{Text: req.Prompt}}}}
		result, err := g.client.Models.GenerateContent(ctx, g.model, contents, config)
		if err != nil {
			return GenerationResult{}, mapGeminiError(err)
		}

		return GenerationResult{Text: result.Text(), Model: g.model}, nil
	})
}

func mapGeminiError(err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return classifyStatus(apiErr.Code, err)
	}
	var apiErrPtr *genai.APIError
	if errors.As(err, &apiErrPtr) {
		return classifyStatus(apiErrPtr.Code, err)
	}
	return &ErrProviderUnavailable{Err: err}
}
