package ai

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

// AnthropicConfig configures the Anthropic generator.
type AnthropicConfig struct {
	APIKey string
	Model  string
}

// AnthropicGenerator implements TextGenerator with the Messages API.
type AnthropicGenerator struct {
	client *anthropic.Client
	model  string
}

// NewAnthropicGenerator constructs a generator.
func NewAnthropicGenerator(cfg AnthropicConfig) (*AnthropicGenerator, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("anthropic api key is required")
	}
	if cfg.Model == "" {
		cfg.Model = "claude-haiku-4-5-20251001"
	}

	client := anthropic.NewClient(option.WithAPIKey(cfg.APIKey))
	return &AnthropicGenerator{client: &client, model: cfg.Model}, nil
}

// Provider implements TextGenerator.
func (g *AnthropicGenerator) Provider() string { return "anthropic" }

// Generate sends one user message with the system instruction.
func (g *AnthropicGenerator) Generate(ctx context.Context, req GenerationRequest) (GenerationResult, error) {
	return observe(ctx, g.Provider(), g.model, func(ctx context.Context) (GenerationResult, error) {
		params := anthropic.MessageNewParams{
			Model:     anthropic.Model(g.model),
			MaxTokens: int64(req.MaxTokens),
			Messages: []anthropic.MessageParam{{
				Role:    anthropic.MessageParamRoleUser,
				Content: []anthropic.ContentBlockParamUnion{anthropic.NewTextBlock(req.Prompt)},
			}},
		}
		if req.System != "" {
			params.System = []anthropic.TextBlockParam{{Text: req.System}}
		}
		if req.Temperature > 0 {
			params.Temperature = anthropic.Float(req.Temperature)
		}

		msg, err := g.client.Messages.New(ctx, params)
		if err != nil {
			return GenerationResult{}, mapAnthropicError(err)
		}

		var text strings.Builder
		for _, block := range msg.Content {
			if block.Type == "text" {
				text.WriteString(block.Text)
			}
		}
		return GenerationResult{Text: text.String(), Model: string(msg.Model)}, nil
	})
}

func mapAnthropicError(err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	var apiErr *anthropic.Error
	if errors.As(err, &apiErr) {
		return classifyStatus(apiErr.StatusCode, err)
	}
	return &ErrProviderUnavailable{Err: err}
}
