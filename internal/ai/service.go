package ai

import (
	"context"
	"fmt"
	"strings"

	"careerkit/internal/config"
	"careerkit/internal/errors"
	"careerkit/internal/types"
)

// Service runs AI operations for one configured operation
type Service struct {
	Provider AIProvider
	config   *config.OperationAIConfig
	logger   *errors.Logger
}

// NewService creates the provider named in cfg
func NewService(cfg *config.OperationAIConfig, operationType string, logger *errors.Logger) (*Service, error) {
	if logger == nil {
		logger = errors.Discard()
	}
	logger.Debug("Initializing AI service",
		"provider", cfg.Provider,
		"operation_type", operationType,
		"model", cfg.Model,
		"temperature", *cfg.Temperature,
		"timeout", *cfg.Timeout,
		"max_retries", *cfg.MaxRetries,
		"use_system_prompts", *cfg.UseSystemPrompts)

	var provider AIProvider
	var err error
	switch cfg.Provider {
	case "gemini":
		provider, err = NewGeminiProvider(cfg, operationType, logger)
	default:
		return nil, errors.NewConfigError(errors.ErrCodeInvalidConfig,
			fmt.Sprintf("Unsupported AI provider: %s", cfg.Provider), nil)
	}
	if err != nil {
		return nil, err
	}

	return NewServiceWithProvider(provider, cfg, logger), nil
}

// NewServiceWithProvider wraps an existing provider
func NewServiceWithProvider(provider AIProvider, cfg *config.OperationAIConfig, logger *errors.Logger) *Service {
	if logger == nil {
		logger = errors.Discard()
	}
	return &Service{Provider: provider, config: cfg, logger: logger}
}

// ExtractJobDescription validates the posting and extracts a record from it.
// The source URL, when known, is carried over untouched.
func (s *Service) ExtractJobDescription(ctx context.Context, posting, sourceURL string) (types.JobDescription, *TokenUsage, error) {
	posting = strings.TrimSpace(posting)
	if posting == "" {
		return types.JobDescription{}, nil, errors.NewValidationError(errors.ErrCodeInvalidRequest,
			"job posting is empty", nil)
	}

	s.logger.Info("Extracting job description", "posting_chars", len(posting))
	jd, usage, err := s.Provider.ExtractJobDescription(ctx, types.ExtractJobInput{Posting: posting})
	if err != nil {
		return types.JobDescription{}, nil, err
	}
	if jd.URL == "" {
		jd.URL = sourceURL
	}
	jd.Title = strings.TrimSpace(jd.Title)
	jd.Company = strings.TrimSpace(jd.Company)
	return jd, usage, nil
}

// BreakerStats reports the provider's circuit breaker state, or nil when
// the provider keeps none
func (s *Service) BreakerStats() map[string]any {
	if br, ok := s.Provider.(BreakerReporter); ok {
		return br.GetCircuitBreakerStats()
	}
	return nil
}

// GetModelInfo returns information about the AI model
func (s *Service) GetModelInfo(ctx context.Context) *ModelInfo {
	return s.Provider.GetModelInfo(ctx)
}

// Close releases the provider
func (s *Service) Close() error {
	return s.Provider.Close()
}
