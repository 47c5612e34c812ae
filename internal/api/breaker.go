package api

import (
	stderrors "errors"
	"fmt"
	"net/http"

	"careerkit/internal/config"
	"careerkit/internal/errors"

	"github.com/sony/gobreaker/v2"
)

// errServerStatus marks a 5xx reply so the breaker counts it as a failure.
// 4xx replies are the caller's problem and leave the breaker alone.
var errServerStatus = stderrors.New("server error status")

// reply is a fully read response
type reply struct {
	status int
	header http.Header
	body   []byte
}

// CircuitBreaker wraps backend round trips with the circuit breaker pattern
type CircuitBreaker struct {
	cb *gobreaker.CircuitBreaker[*reply]
}

// NewCircuitBreaker returns nil when the breaker is disabled
func NewCircuitBreaker(name string, cfg *config.CircuitBreakerConfig, logger *errors.Logger) *CircuitBreaker {
	if !cfg.Enabled {
		return nil
	}

	settings := gobreaker.Settings{
		Name:        fmt.Sprintf("API-%s", name),
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= cfg.MinRequests &&
				failureRatio >= cfg.FailureThreshold
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.Info("Circuit breaker state changed",
				"name", name,
				"from", from.String(),
				"to", to.String(),
				"failure_threshold", cfg.FailureThreshold)
		},
	}

	return &CircuitBreaker{
		cb: gobreaker.NewCircuitBreaker[*reply](settings),
	}
}

// Execute runs fn under the breaker; a nil breaker runs it directly
func (cb *CircuitBreaker) Execute(fn func() (*reply, error)) (*reply, error) {
	if cb == nil || cb.cb == nil {
		return fn()
	}
	return cb.cb.Execute(fn)
}

// GetStats returns circuit breaker statistics
func (cb *CircuitBreaker) GetStats() map[string]any {
	if cb == nil || cb.cb == nil {
		return map[string]any{
			"enabled": false,
		}
	}

	return map[string]any{
		"name":    cb.cb.Name(),
		"state":   cb.cb.State().String(),
		"counts":  cb.cb.Counts(),
		"enabled": true,
	}
}

// IsHealthy returns true if the circuit breaker is in closed state
func (cb *CircuitBreaker) IsHealthy() bool {
	if cb == nil || cb.cb == nil {
		return true
	}
	return cb.cb.State() == gobreaker.StateClosed
}

func isBreakerRejection(err error) bool {
	return stderrors.Is(err, gobreaker.ErrOpenState) || stderrors.Is(err, gobreaker.ErrTooManyRequests)
}
