package ai

import (
	"context"

	"careerkit/internal/types"
)

// AIProvider turns a pasted job posting into a structured record.
// Token usage is returned alongside; callers may ignore it.
type AIProvider interface {
	ExtractJobDescription(ctx context.Context, input types.ExtractJobInput) (types.JobDescription, *TokenUsage, error)
	GetModelInfo(ctx context.Context) *ModelInfo
	Close() error
}

// BreakerReporter is implemented by providers that guard their calls with
// circuit breakers
type BreakerReporter interface {
	GetCircuitBreakerStats() map[string]any
}
