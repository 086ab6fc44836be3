package ai

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// GenerationRequest is a bounded prompt plus the system instruction framing it.
type GenerationRequest struct {
	System      string
	Prompt      string
	MaxTokens   int
	Temperature float64
	// JSON asks providers that support it to return a JSON object.
	JSON bool
}

// GenerationResult carries the text produced by a provider.
type GenerationResult struct {
	Text  string
	Model string
}

// TextGenerator produces free text for a prompt. Implementations must honour ctx cancellation.
type TextGenerator interface {
	Generate(ctx context.Context, req GenerationRequest) (GenerationResult, error)
	Provider() string
}

// ErrEmptyResponse indicates the provider answered without any text.
var ErrEmptyResponse = errors.New("ai: empty response")

// ErrRateLimit indicates the provider throttled the request.
type ErrRateLimit struct {
	RetryAfter time.Duration
	Err        error
}

func (e *ErrRateLimit) Error() string {
	return fmt.Sprintf("ai: rate limited (retry after %s): %v", e.RetryAfter, e.Err)
}

func (e *ErrRateLimit) Unwrap() error { return e.Err }

// ErrProviderUnavailable indicates the provider is down or unreachable.
type ErrProviderUnavailable struct {
	Err error
}

func (e *ErrProviderUnavailable) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("ai: provider unavailable: %v", e.Err)
	}
	return "ai: provider unavailable"
}

func (e *ErrProviderUnavailable) Unwrap() error { return e.Err }

// ErrRequestRejected marks a 4xx the provider will keep rejecting.
type ErrRequestRejected struct {
	StatusCode int
	Err        error
}

func (e *ErrRequestRejected) Error() string {
	return fmt.Sprintf("ai: request rejected with status %d: %v", e.StatusCode, e.Err)
}

func (e *ErrRequestRejected) Unwrap() error { return e.Err }

func classifyStatus(status int, err error) error {
	switch {
	case status == 429:
		return &ErrRateLimit{Err: err}
	case status >= 500 || status == 0:
		return &ErrProviderUnavailable{Err: err}
	default:
		return &ErrRequestRejected{StatusCode: status, Err: err}
	}
}
