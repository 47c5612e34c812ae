package ai

import (
	"fmt"

	"careerkit/internal/config"
	"careerkit/internal/errors"

	"github.com/sony/gobreaker/v2"
	"google.golang.org/genai"
)

// Breaker wraps one kind of Gemini call with the circuit breaker pattern
type Breaker[T any] struct {
	cb *gobreaker.CircuitBreaker[T]
}

// NewBreaker creates a breaker, or nil when the breaker is disabled.
// readyToTrip overrides the configured trip rule when non-nil.
func NewBreaker[T any](name string, cfg *config.CircuitBreakerConfig, readyToTrip func(gobreaker.Counts) bool, logger *errors.Logger) *Breaker[T] {
	if !cfg.Enabled {
		return nil
	}
	if logger == nil {
		logger = errors.Discard()
	}
	if readyToTrip == nil {
		readyToTrip = func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= cfg.MinRequests &&
				failureRatio >= cfg.FailureThreshold
		}
	}

	settings := gobreaker.Settings{
		Name:        name,
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: readyToTrip,
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.Info("Circuit breaker state changed",
				"name", name,
				"from", from.String(),
				"to", to.String(),
				"max_requests", cfg.MaxRequests,
				"failure_threshold", cfg.FailureThreshold)
		},
	}
	return &Breaker[T]{cb: gobreaker.NewCircuitBreaker[T](settings)}
}

// NewAICircuitBreaker guards content generation for an operation
func NewAICircuitBreaker(operationType string, cfg *config.OperationAIConfig, logger *errors.Logger) *Breaker[*genai.GenerateContentResponse] {
	return NewBreaker[*genai.GenerateContentResponse](fmt.Sprintf("AI-%s", operationType), &cfg.CircuitBreaker, nil, logger)
}

// NewModelCircuitBreaker guards model lookups. Model info is less critical,
// so it trips later than generation does.
func NewModelCircuitBreaker(operationType string, cfg *config.OperationAIConfig, logger *errors.Logger) *Breaker[*genai.Model] {
	return NewBreaker[*genai.Model](fmt.Sprintf("AI-Model-%s", operationType), &cfg.CircuitBreaker,
		func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= 5 && failureRatio >= 0.8
		}, logger)
}

// Execute runs fn under the breaker; a nil breaker runs it directly
func (b *Breaker[T]) Execute(fn func() (T, error)) (T, error) {
	if b == nil || b.cb == nil {
		return fn()
	}
	return b.cb.Execute(fn)
}

// GetStats returns circuit breaker statistics
func (b *Breaker[T]) GetStats() map[string]any {
	if b == nil || b.cb == nil {
		return map[string]any{
			"enabled": false,
		}
	}

	return map[string]any{
		"name":    b.cb.Name(),
		"state":   b.cb.State().String(),
		"counts":  b.cb.Counts(),
		"enabled": true,
	}
}

// IsHealthy returns true if the circuit breaker is in closed state
func (b *Breaker[T]) IsHealthy() bool {
	if b == nil || b.cb == nil {
		return true
	}
	return b.cb.State() == gobreaker.StateClosed
}
