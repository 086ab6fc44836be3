package ai

import (
	"context"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var (
	generationDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "edutrack",
		Subsystem: "ai",
		Name:      "generation_duration_seconds",
		Help:      "Duration of text generation requests",
	}, []string{"provider", "model"})

	generationFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "edutrack",
		Subsystem: "ai",
		Name:      "generation_failures_total",
		Help:      "Number of failed text generation requests",
	}, []string{"provider", "model"})

	tracer = otel.Tracer("github.com/noah-isme/edutrack-api/pkg/ai")
)

// observe wraps one provider call with a span, latency histogram and failure counter.
func observe(parent context.Context, provider, model string, call func(ctx context.Context) (GenerationResult, error)) (GenerationResult, error) {
	ctx, span := tracer.Start(parent, provider+".generate", trace.WithAttributes(
		attribute.String("ai.provider", provider),
		attribute.String("ai.model", model),
	))
	defer span.End()

	start := time.Now()
	result, err := call(ctx)
	generationDuration.WithLabelValues(provider, model).Observe(time.Since(start).Seconds())

	if err == nil && strings.TrimSpace(result.Text) == "" {
		err = ErrEmptyResponse
	}
	if err != nil {
		generationFailures.WithLabelValues(provider, model).Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return GenerationResult{}, err
	}

	result.Text = strings.TrimSpace(result.Text)
	if result.Model == "" {
		result.Model = model
	}
	return result, nil
}
