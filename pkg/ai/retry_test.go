package ai

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type scriptedGenerator struct {
	results []GenerationResult
	errs    []error
	calls   int
}

func (s *scriptedGenerator) Provider() string { return "scripted" }

func (s *scriptedGenerator) Generate(context.Context, GenerationRequest) (GenerationResult, error) {
	i := s.calls
	s.calls++
	if i < len(s.errs) && s.errs[i] != nil {
		return GenerationResult{}, s.errs[i]
	}
	if i < len(s.results) {
		return s.results[i], nil
	}
	return GenerationResult{}, errors.New("script exhausted")
}

func noSleep(context.Context, time.Duration) error { return nil }

func TestWithRetryRecoversFromTransientFailure(t *testing.T) {
	inner := &scriptedGenerator{
		errs:    []error{&ErrProviderUnavailable{}, nil},
		results: []GenerationResult{{}, {Text: "ok"}},
	}
	gen := WithRetry(inner, DefaultRetryConfig(3)).(*retryGenerator)
	gen.sleep = noSleep

	result, err := gen.Generate(context.Background(), GenerationRequest{Prompt: "hi"})
	require.NoError(t, err)
	require.Equal(t, "ok", result.Text)
	require.Equal(t, 2, inner.calls)
}

func TestWithRetryStopsOnRejectedRequest(t *testing.T) {
	inner := &scriptedGenerator{errs: []error{&ErrRequestRejected{StatusCode: 400, Err: errors.New("bad")}}}
	gen := WithRetry(inner, DefaultRetryConfig(3)).(*retryGenerator)
	gen.sleep = noSleep

	_, err := gen.Generate(context.Background(), GenerationRequest{})
	var rejected *ErrRequestRejected
	require.ErrorAs(t, err, &rejected)
	require.Equal(t, 1, inner.calls)
}

func TestWithRetryDoesNotRetryDeadline(t *testing.T) {
	inner := &scriptedGenerator{errs: []error{context.DeadlineExceeded}}
	gen := WithRetry(inner, DefaultRetryConfig(3)).(*retryGenerator)
	gen.sleep = noSleep

	_, err := gen.Generate(context.Background(), GenerationRequest{})
	require.ErrorIs(t, err, context.DeadlineExceeded)
	require.Equal(t, 1, inner.calls)
}

func TestWithRetryHonoursRateLimitHint(t *testing.T) {
	gen := &retryGenerator{config: DefaultRetryConfig(2)}
	wait := gen.backoff(0, &ErrRateLimit{RetryAfter: 2 * time.Second})
	require.Equal(t, 2*time.Second, wait)
}

func TestObserveTreatsBlankTextAsEmpty(t *testing.T) {
	_, err := observe(context.Background(), "test", "model", func(context.Context) (GenerationResult, error) {
		return GenerationResult{Text: "   "}, nil
	})
	require.ErrorIs(t, err, ErrEmptyResponse)
}

func TestNewReturnsNilForDisabledProvider(t *testing.T) {
	gen, err := New(context.Background(), Config{Provider: "none"})
	require.NoError(t, err)
	require.Nil(t, gen)

	_, err = New(context.Background(), Config{Provider: "openai"})
	require.Error(t, err)

	_, err = New(context.Background(), Config{Provider: "mystery"})
	require.Error(t, err)
}
