package ai

import (
	"context"
	"errors"
	"fmt"

	openai "github.com/sashabaranov/go-openai"
)

// OpenAIConfig defines configuration options for the OpenAI generator.
type OpenAIConfig struct {
	APIKey  string
	Model   string
	BaseURL string
}

// OpenAIGenerator implements TextGenerator against the chat completion API.
type OpenAIGenerator struct {
	client *openai.Client
	model  string
}

// NewOpenAIGenerator builds a generator using the provided configuration.
func NewOpenAIGenerator(cfg OpenAIConfig) (*OpenAIGenerator, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("openai api key is required")
	}
	if cfg.Model == "" {
		cfg.Model = "gpt-4o-mini"
	}

	config := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		config.BaseURL = cfg.BaseURL
	}

	return &OpenAIGenerator{
		client: openai.NewClientWithConfig(config),
		model:  cfg.Model,
	}, nil
}

// Provider implements TextGenerator.
func (g *OpenAIGenerator) Provider() string { return "openai" }

// Generate sends the system instruction and prompt as a two-message chat.
func (g *OpenAIGenerator) Generate(ctx context.Context, req GenerationRequest) (GenerationResult, error) {
	return observe(ctx, g.Provider(), g.model, func(ctx context.Context) (GenerationResult, error) {
		request := openai.ChatCompletionRequest{
			Model:       g.model,
			MaxTokens:   req.MaxTokens,
			Temperature: float32(req.Temperature),
			Messages: []openai.ChatCompletionMessage{
				{Role: openai.ChatMessageRoleSystem, Content: req.System},
				{Role: openai.ChatMessageRoleUser, Content: req.Prompt},
			},
		}
		if req.JSON {
			request.ResponseFormat = &openai.ChatCompletionResponseFormat{Type: openai.ChatCompletionResponseFormatTypeJSONObject}
		}

		resp, err := g.client.CreateChatCompletion(ctx, request)
		if err != nil {
			return GenerationResult{}, mapOpenAIError(err)
		}
		if len(resp.Choices) == 0 {
			return GenerationResult{}, ErrEmptyResponse
		}

		return GenerationResult{Text: resp.Choices[0].Message.Content, Model: resp.Model}, nil
	})
}

func mapOpenAIError(err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return classifyStatus(apiErr.HTTPStatusCode, err)
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return classifyStatus(reqErr.HTTPStatusCode, err)
	}
	return &ErrProviderUnavailable{Err: err}
}
