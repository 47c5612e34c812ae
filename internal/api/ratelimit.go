package api

import (
	"context"
	"sync"
	"time"

	"careerkit/internal/config"

	"golang.org/x/time/rate"
)

// LimiterManager paces outgoing requests with one token bucket per endpoint
// family, so a burst of status polls cannot starve document calls.
type LimiterManager struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	rate     rate.Limit
	burst    int
}

// NewLimiterManager returns nil when rate limiting is disabled
func NewLimiterManager(cfg *config.RateLimitConfig) *LimiterManager {
	if !cfg.Enabled {
		return nil
	}
	burst := cfg.Burst
	if burst < 1 {
		burst = 1
	}
	return &LimiterManager{
		limiters: make(map[string]*rate.Limiter),
		rate:     rate.Limit(cfg.RequestsPerSecond),
		burst:    burst,
	}
}

// GetLimiter retrieves or creates the limiter for key
func (m *LimiterManager) GetLimiter(key string) *rate.Limiter {
	m.mu.Lock()
	defer m.mu.Unlock()

	limiter, exists := m.limiters[key]
	if !exists {
		limiter = rate.NewLimiter(m.rate, m.burst)
		m.limiters[key] = limiter
	}
	return limiter
}

// Wait blocks until key may send a request and reports how long it waited
func (m *LimiterManager) Wait(ctx context.Context, key string) (time.Duration, error) {
	if m == nil {
		return 0, nil
	}
	start := time.Now()
	err := m.GetLimiter(key).Wait(ctx)
	return time.Since(start), err
}

// GetStats returns current rate limiter statistics
func (m *LimiterManager) GetStats() map[string]any {
	if m == nil {
		return map[string]any{"enabled": false}
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	return map[string]any{
		"enabled":         true,
		"active_limiters": len(m.limiters),
		"rate_per_second": float64(m.rate),
		"burst_capacity":  m.burst,
	}
}
