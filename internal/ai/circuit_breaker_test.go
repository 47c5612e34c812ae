package ai

import (
	stderrors "errors"
	"testing"
	"time"

	"careerkit/internal/config"

	"google.golang.org/genai"
)

func breakerConfig() *config.OperationAIConfig {
	return &config.OperationAIConfig{
		Provider: "gemini",
		Model:    "gemini-2.0-flash",
		CircuitBreaker: config.CircuitBreakerConfig{
			Enabled:          true,
			MaxRequests:      1,
			Interval:         60 * time.Second,
			Timeout:          60 * time.Second,
			MinRequests:      3,
			FailureThreshold: 0.6,
		},
	}
}

func TestCircuitBreakerNaming(t *testing.T) {
	cfg := breakerConfig()

	tests := []struct {
		name     string
		stats    map[string]any
		expected string
	}{
		{"generation", NewAICircuitBreaker("Extract", cfg, nil).GetStats(), "AI-Extract"},
		{"model", NewModelCircuitBreaker("Extract", cfg, nil).GetStats(), "AI-Model-Extract"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.stats["name"]; got != tt.expected {
				t.Errorf("Expected circuit breaker name '%s', got '%v'", tt.expected, got)
			}
			if got := tt.stats["state"]; got != "closed" {
				t.Errorf("Expected initial state 'closed', got '%v'", got)
			}
			if enabled, _ := tt.stats["enabled"].(bool); !enabled {
				t.Error("Circuit breaker should be enabled")
			}
		})
	}
}

func TestDisabledCircuitBreakerPassesThrough(t *testing.T) {
	cfg := breakerConfig()
	cfg.CircuitBreaker.Enabled = false

	cb := NewAICircuitBreaker("Extract", cfg, nil)
	if cb != nil {
		t.Fatal("Expected nil breaker when disabled")
	}

	calls := 0
	for range 10 {
		_, _ = cb.Execute(func() (*genai.GenerateContentResponse, error) {
			calls++
			return nil, stderrors.New("boom")
		})
	}
	if calls != 10 {
		t.Errorf("Expected every call to run, got %d", calls)
	}
	if !cb.IsHealthy() {
		t.Error("A disabled breaker is always healthy")
	}
	if enabled := cb.GetStats()["enabled"]; enabled != false {
		t.Errorf("Expected enabled=false, got %v", enabled)
	}
}

func TestCircuitBreakerTrips(t *testing.T) {
	cb := NewAICircuitBreaker("Extract", breakerConfig(), nil)

	calls := 0
	for range 5 {
		_, _ = cb.Execute(func() (*genai.GenerateContentResponse, error) {
			calls++
			return nil, stderrors.New("unavailable")
		})
	}

	if calls != 3 {
		t.Errorf("Expected breaker to open after 3 failures, got %d calls", calls)
	}
	if cb.IsHealthy() {
		t.Error("Expected breaker to be open")
	}
}

func TestModelBreakerIsMoreLenient(t *testing.T) {
	cb := NewModelCircuitBreaker("Extract", breakerConfig(), nil)

	for range 4 {
		_, _ = cb.Execute(func() (*genai.Model, error) { return nil, stderrors.New("unavailable") })
	}
	if !cb.IsHealthy() {
		t.Error("Model breaker should need 5 requests before tripping")
	}
}
