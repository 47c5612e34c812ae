package observability

import (
	"context"
	stderrors "errors"
	"fmt"
	"strconv"
	"time"

	"careerkit/internal/config"
	"careerkit/internal/poller"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metrics holds all custom metrics for careerkit
type Metrics struct {
	cfg config.CustomMetricsConfig

	// AI operation metrics
	AIProcessingTime metric.Float64Histogram
	AIRequestCount   metric.Int64Counter
	AIErrorCount     metric.Int64Counter
	AITokenUsage     metric.Int64Histogram

	// Backend request metrics
	APIRequestDuration metric.Float64Histogram
	APIRequestCount    metric.Int64Counter
	APIErrorCount      metric.Int64Counter
	RateLimitWaits     metric.Int64Counter
	RateLimitWaitTime  metric.Float64Histogram

	// Server-side job metrics
	JobsFinished metric.Int64Counter
	JobDuration  metric.Float64Histogram
}

func newMetrics(meter metric.Meter, cfg config.CustomMetricsConfig) (*Metrics, error) {
	m := &Metrics{cfg: cfg}
	var err error

	if m.AIProcessingTime, err = meter.Float64Histogram("careerkit_ai_processing_duration_seconds",
		metric.WithDescription("Time spent processing AI requests"), metric.WithUnit("s")); err != nil {
		return nil, fmt.Errorf("failed to create AI processing time metric: %w", err)
	}
	if m.AIRequestCount, err = meter.Int64Counter("careerkit_ai_requests_total",
		metric.WithDescription("Total number of AI requests")); err != nil {
		return nil, fmt.Errorf("failed to create AI request count metric: %w", err)
	}
	if m.AIErrorCount, err = meter.Int64Counter("careerkit_ai_errors_total",
		metric.WithDescription("Total number of AI request errors")); err != nil {
		return nil, fmt.Errorf("failed to create AI error count metric: %w", err)
	}
	if m.AITokenUsage, err = meter.Int64Histogram("careerkit_ai_token_usage",
		metric.WithDescription("Token usage for AI requests (input, output, total)"), metric.WithUnit("tokens")); err != nil {
		return nil, fmt.Errorf("failed to create AI token usage metric: %w", err)
	}

	if m.APIRequestDuration, err = meter.Float64Histogram("careerkit_api_request_duration_seconds",
		metric.WithDescription("Backend request latency"), metric.WithUnit("s")); err != nil {
		return nil, fmt.Errorf("failed to create API duration metric: %w", err)
	}
	if m.APIRequestCount, err = meter.Int64Counter("careerkit_api_requests_total",
		metric.WithDescription("Total number of backend requests")); err != nil {
		return nil, fmt.Errorf("failed to create API request count metric: %w", err)
	}
	if m.APIErrorCount, err = meter.Int64Counter("careerkit_api_errors_total",
		metric.WithDescription("Backend requests that failed or returned a non-2xx status")); err != nil {
		return nil, fmt.Errorf("failed to create API error count metric: %w", err)
	}
	if m.RateLimitWaits, err = meter.Int64Counter("careerkit_rate_limit_waits_total",
		metric.WithDescription("Requests delayed by the client-side rate limiter")); err != nil {
		return nil, fmt.Errorf("failed to create rate limit wait metric: %w", err)
	}
	if m.RateLimitWaitTime, err = meter.Float64Histogram("careerkit_rate_limit_wait_seconds",
		metric.WithDescription("Time spent waiting on the rate limiter"), metric.WithUnit("s")); err != nil {
		return nil, fmt.Errorf("failed to create rate limit wait time metric: %w", err)
	}

	if m.JobsFinished, err = meter.Int64Counter("careerkit_jobs_total",
		metric.WithDescription("Polled server-side jobs by outcome")); err != nil {
		return nil, fmt.Errorf("failed to create jobs metric: %w", err)
	}
	if m.JobDuration, err = meter.Float64Histogram("careerkit_job_duration_seconds",
		metric.WithDescription("Wall time from job start to terminal status"), metric.WithUnit("s")); err != nil {
		return nil, fmt.Errorf("failed to create job duration metric: %w", err)
	}

	return m, nil
}

// RecordAPIRequest records one backend round trip
func (m *Metrics) RecordAPIRequest(ctx context.Context, endpoint, method string, statusCode int, duration time.Duration, err error) {
	if m == nil || !m.cfg.APIRequests.Enabled {
		return
	}

	attrs := metric.WithAttributes(
		attribute.String("endpoint", endpoint),
		attribute.String("method", method),
		attribute.String("status", statusLabel(statusCode)),
	)
	m.APIRequestCount.Add(ctx, 1, attrs)
	if m.cfg.APIRequests.TrackDuration {
		m.APIRequestDuration.Record(ctx, duration.Seconds(), attrs)
	}
	if err != nil {
		m.APIErrorCount.Add(ctx, 1, attrs)
	}
}

// RecordRateLimitWait records a request held back by the limiter
func (m *Metrics) RecordRateLimitWait(ctx context.Context, endpoint string, wait time.Duration) {
	if m == nil || !m.cfg.APIRequests.Enabled || !m.cfg.APIRequests.TrackRateLimits {
		return
	}
	attrs := metric.WithAttributes(attribute.String("endpoint", endpoint))
	m.RateLimitWaits.Add(ctx, 1, attrs)
	m.RateLimitWaitTime.Record(ctx, wait.Seconds(), attrs)
}

// RecordJob records the end of a polled job such as a save-files task or a
// resume generation
func (m *Metrics) RecordJob(ctx context.Context, kind string, duration time.Duration, err error) {
	if m == nil || !m.cfg.Jobs.Enabled {
		return
	}
	attrs := metric.WithAttributes(
		attribute.String("kind", kind),
		attribute.String("outcome", JobOutcome(err)),
	)
	m.JobsFinished.Add(ctx, 1, attrs)
	m.JobDuration.Record(ctx, duration.Seconds(), attrs)
}

// JobOutcome labels the error returned by a polling loop
func JobOutcome(err error) string {
	switch {
	case err == nil:
		return "completed"
	case stderrors.Is(err, poller.ErrFailed):
		return "failed"
	case stderrors.Is(err, poller.ErrSkipped):
		return "skipped"
	case stderrors.Is(err, poller.ErrNotFound):
		return "not_found"
	case stderrors.Is(err, poller.ErrTimeout):
		return "timeout"
	case stderrors.Is(err, context.Canceled):
		return "cancelled"
	default:
		return "error"
	}
}

func statusLabel(code int) string {
	if code == 0 {
		return "none"
	}
	return strconv.Itoa(code)
}

// AIOperationResult holds the result of an AI operation including token usage
type AIOperationResult struct {
	Error      error
	TokenUsage *TokenUsage
}

// TokenUsage represents token usage information from AI responses
type TokenUsage struct {
	InputTokens  int64
	OutputTokens int64
	TotalTokens  int64
}

// TrackAIOperationWithTokens instruments an AI operation with tracing, metrics, and token usage
func (m *Metrics) TrackAIOperationWithTokens(ctx context.Context, operation string, fn func(context.Context) *AIOperationResult) error {
	ctx, span := otel.Tracer("careerkit.ai").Start(ctx, "ai."+operation)
	defer span.End()

	start := time.Now()
	result := fn(ctx)
	duration := time.Since(start).Seconds()

	var err error
	if result != nil {
		err = result.Error
	}

	if m != nil && m.cfg.AIOperations.Enabled {
		attrs := []attribute.KeyValue{
			attribute.String("operation", operation),
			attribute.Bool("success", err == nil),
		}
		if m.cfg.AIOperations.TrackDuration {
			m.AIProcessingTime.Record(ctx, duration, metric.WithAttributes(attrs...))
		}
		m.AIRequestCount.Add(ctx, 1, metric.WithAttributes(attrs...))
		if err != nil {
			m.AIErrorCount.Add(ctx, 1, metric.WithAttributes(attrs...))
		}
		if result != nil && result.TokenUsage != nil && m.cfg.AIOperations.TrackTokenUsage {
			m.recordTokenMetrics(ctx, result.TokenUsage, operation)
		}
		span.SetAttributes(attrs...)
	}

	if result != nil && result.TokenUsage != nil {
		span.SetAttributes(
			attribute.Int64("ai.tokens.input", result.TokenUsage.InputTokens),
			attribute.Int64("ai.tokens.output", result.TokenUsage.OutputTokens),
			attribute.Int64("ai.tokens.total", result.TokenUsage.TotalTokens),
		)
	}
	if err != nil {
		span.RecordError(err)
		span.SetAttributes(attribute.Bool("error", true))
	}

	return err
}

// recordTokenMetrics records individual token usage metrics
func (m *Metrics) recordTokenMetrics(ctx context.Context, usage *TokenUsage, operation string) {
	tokenTypes := []struct {
		tokenType string
		value     int64
	}{
		{"input", usage.InputTokens},
		{"output", usage.OutputTokens},
		{"total", usage.TotalTokens},
	}

	for _, tt := range tokenTypes {
		m.AITokenUsage.Record(ctx, tt.value, metric.WithAttributes(
			attribute.String("operation", operation),
			attribute.String("token_type", tt.tokenType),
		))
	}
}
