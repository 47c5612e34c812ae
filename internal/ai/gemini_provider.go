package ai

import (
	"context"
	"crypto/rand"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"math"
	"math/big"
	"net"
	"net/http"
	"strings"
	"time"

	"careerkit/internal/config"
	"careerkit/internal/errors"
	"careerkit/internal/types"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"google.golang.org/api/googleapi"
	"google.golang.org/genai"
)

const modelCheckTimeout = 10 * time.Second

// GeminiProvider implements AIProvider for Google Gemini
type GeminiProvider struct {
	client         *genai.Client
	config         *config.OperationAIConfig
	circuitBreaker *Breaker[*genai.GenerateContentResponse]
	modelBreaker   *Breaker[*genai.Model]
	logger         *errors.Logger
}

var _ AIProvider = (*GeminiProvider)(nil)

// NewGeminiProvider creates a Gemini provider for one operation
func NewGeminiProvider(cfg *config.OperationAIConfig, operationType string, logger *errors.Logger) (*GeminiProvider, error) {
	if logger == nil {
		logger = errors.Discard()
	}
	if cfg.APIKey == "" {
		return nil, errors.NewConfigError(errors.ErrCodeMissingAPIKey,
			"Gemini API key is not set (ai.apiKey or CAREERKIT_AI_APIKEY)", nil)
	}

	client, err := genai.NewClient(context.Background(), &genai.ClientConfig{
		APIKey:     cfg.APIKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: &http.Client{Timeout: *cfg.Timeout},
	})
	if err != nil {
		return nil, errors.NewAIError(errors.ErrCodeAIServiceFailed,
			"Failed to create Gemini client", err)
	}

	return &GeminiProvider{
		client:         client,
		config:         cfg,
		circuitBreaker: NewAICircuitBreaker(operationType, cfg, logger),
		modelBreaker:   NewModelCircuitBreaker(operationType, cfg, logger),
		logger:         logger,
	}, nil
}

// ModelInfo represents information about the AI model
type ModelInfo struct {
	Name        string `json:"name"`
	DisplayName string `json:"displayName,omitempty"`
	Version     string `json:"version,omitempty"`
	Available   bool   `json:"available"`
	Error       string `json:"error,omitempty"`
}

// GetModelInfo checks the availability of the configured model
func (g *GeminiProvider) GetModelInfo(ctx context.Context) *ModelInfo {
	modelInfo := &ModelInfo{Name: g.config.Model}

	checkCtx, cancel := context.WithTimeout(ctx, modelCheckTimeout)
	defer cancel()

	model, err := g.modelBreaker.Execute(func() (*genai.Model, error) {
		return g.client.Models.Get(checkCtx, g.config.Model, &genai.GetModelConfig{})
	})
	if err != nil {
		modelInfo.Error = fmt.Sprintf("Failed to get model info: %v", err)
		g.logger.Warn("Model availability check failed",
			"model", g.config.Model,
			"error", err.Error())
		return modelInfo
	}

	modelInfo.Available = true
	modelInfo.DisplayName = model.DisplayName
	modelInfo.Version = model.Version
	return modelInfo
}

// executeWithRetry retries retryable failures with exponential backoff and jitter
func (g *GeminiProvider) executeWithRetry(ctx context.Context, operation string, fn func() (*genai.GenerateContentResponse, error)) (*genai.GenerateContentResponse, error) {
	var lastErr error
	maxRetries := *g.config.MaxRetries

	for attempt := 0; attempt <= maxRetries; attempt++ {
		if attempt > 0 {
			g.logger.Warn("Retrying AI operation",
				"operation", operation,
				"attempt", attempt,
				"max_retries", maxRetries,
				"error", lastErr.Error())

			select {
			case <-time.After(backoff(attempt)):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}

		result, err := fn()
		if err == nil {
			if attempt > 0 {
				g.logger.Info("AI operation succeeded after retry",
					"operation", operation,
					"total_attempts", attempt+1)
			}
			return result, nil
		}

		lastErr = err
		if !isRetryableError(err) {
			g.logger.Debug("Error is not retryable, stopping retry attempts",
				"operation", operation,
				"error", err.Error())
			break
		}
	}

	g.logger.LogError(lastErr, "AI operation failed after all retry attempts",
		"operation", operation,
		"total_attempts", maxRetries+1)

	return nil, fmt.Errorf("operation '%s' failed after %d retries: %w", operation, maxRetries, lastErr)
}

// backoff doubles from one second, adds up to 10% jitter, and caps at 30s
func backoff(attempt int) time.Duration {
	baseDelay := time.Duration(math.Pow(2, float64(attempt-1))) * time.Second
	var jitter time.Duration
	if jitterMax := int64(float64(baseDelay) * 0.1); jitterMax > 0 {
		if n, err := rand.Int(rand.Reader, big.NewInt(jitterMax)); err == nil {
			jitter = time.Duration(n.Int64())
		}
	}
	return min(baseDelay+jitter, 30*time.Second)
}

// isRetryableError reports network failures and throttling or server-side
// Google API errors
func isRetryableError(err error) bool {
	if err == nil {
		return false
	}

	var netErr net.Error
	if stderrors.As(err, &netErr) {
		return true
	}

	var apiErr *googleapi.Error
	if stderrors.As(err, &apiErr) {
		switch apiErr.Code {
		case http.StatusTooManyRequests,
			http.StatusInternalServerError,
			http.StatusBadGateway,
			http.StatusServiceUnavailable,
			http.StatusGatewayTimeout:
			return true
		}
	}

	return false
}

// executeAIOperation runs one structured generation with tracing, the
// breaker, retries, and JSON decoding of the reply
func executeAIOperation[Out any](
	g *GeminiProvider,
	ctx context.Context,
	operationName string,
	userPrompt string,
	systemPrompt string,
	genaiConfig *genai.GenerateContentConfig,
	spanAttributes ...attribute.KeyValue,
) (Out, *TokenUsage, error) {
	var output Out
	tracer := otel.Tracer("careerkit.ai.gemini")
	ctx, span := tracer.Start(ctx, "gemini."+operationName)
	defer span.End()

	span.SetAttributes(
		attribute.String("ai.provider", "gemini"),
		attribute.String("ai.model", g.config.Model),
		attribute.Float64("ai.temperature", float64(*g.config.Temperature)),
	)
	span.SetAttributes(spanAttributes...)

	if *g.config.UseSystemPrompts && systemPrompt != "" {
		genaiConfig.SystemInstruction = genai.NewContentFromText(systemPrompt, genai.RoleUser)
	}

	result, err := g.circuitBreaker.Execute(func() (*genai.GenerateContentResponse, error) {
		return g.executeWithRetry(ctx, operationName, func() (*genai.GenerateContentResponse, error) {
			return g.client.Models.GenerateContent(ctx, g.config.Model, genai.Text(userPrompt), genaiConfig)
		})
	})
	if err != nil {
		span.RecordError(err)
		span.SetAttributes(attribute.Bool("success", false))
		return output, nil, errors.NewAIError(errors.ErrCodeAIServiceFailed, "Failed to generate content for "+operationName, err)
	}

	if err := json.Unmarshal([]byte(result.Text()), &output); err != nil {
		span.RecordError(err)
		span.SetAttributes(attribute.Bool("success", false))
		return output, nil, errors.NewAIError(errors.ErrCodeAIResponseParse, "Failed to parse AI response for "+operationName, err)
	}

	tokenUsage := extractTokenUsage(result)
	if tokenUsage != nil {
		span.SetAttributes(
			attribute.Int64("ai.tokens.input", tokenUsage.InputTokens),
			attribute.Int64("ai.tokens.output", tokenUsage.OutputTokens),
			attribute.Int64("ai.tokens.total", tokenUsage.TotalTokens),
		)
	}

	span.SetAttributes(attribute.Bool("success", true))
	return output, tokenUsage, nil
}

// ExtractJobDescription implements AIProvider
func (g *GeminiProvider) ExtractJobDescription(ctx context.Context, input types.ExtractJobInput) (types.JobDescription, *TokenUsage, error) {
	systemPrompt, userPrompt := g.extractPrompts(input.Posting)

	output, tokenUsage, err := executeAIOperation[types.JobDescription](
		g,
		ctx,
		"extract_job",
		userPrompt,
		systemPrompt,
		g.buildExtractSchema(),
		attribute.Int("input.posting_length", len(input.Posting)),
	)
	if err != nil {
		return types.JobDescription{}, nil, err
	}

	if span := trace.SpanFromContext(ctx); span.IsRecording() {
		span.SetAttributes(
			attribute.Int("output.requirements", len(output.Requirements)),
			attribute.Int("output.skills", len(output.Skills)),
		)
	}
	return output, tokenUsage, nil
}

// GetCircuitBreakerStats implements BreakerReporter
func (g *GeminiProvider) GetCircuitBreakerStats() map[string]any {
	return map[string]any{
		"ai_operations":    g.circuitBreaker.GetStats(),
		"model_operations": g.modelBreaker.GetStats(),
		"overall_healthy":  g.circuitBreaker.IsHealthy() && g.modelBreaker.IsHealthy(),
	}
}

// Close implements AIProvider; the single-shot client holds no resources
func (g *GeminiProvider) Close() error {
	return nil
}

// extractPrompts resolves the configured or default prompts. A custom user
// prompt without a %s placeholder gets the posting appended.
func (g *GeminiProvider) extractPrompts(posting string) (string, string) {
	systemPrompt := resolvePrompt(g.config.CustomPrompts.SystemPrompt, DefaultExtractSystemPrompt)
	userPrompt := resolvePrompt(g.config.CustomPrompts.UserPrompt, DefaultExtractUserPrompt)

	if strings.Contains(userPrompt, "%s") {
		return systemPrompt, fmt.Sprintf(userPrompt, posting)
	}
	return systemPrompt, userPrompt + "\n\n" + posting
}

func (g *GeminiProvider) buildExtractSchema() *genai.GenerateContentConfig {
	stringList := &genai.Schema{Type: genai.TypeArray, Items: &genai.Schema{Type: genai.TypeString}}
	cfg := &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
		ResponseSchema: &genai.Schema{
			Type: genai.TypeObject,
			Properties: map[string]*genai.Schema{
				"title":            {Type: genai.TypeString},
				"company":          {Type: genai.TypeString},
				"location":         {Type: genai.TypeString},
				"description":      {Type: genai.TypeString},
				"responsibilities": stringList,
				"requirements":     stringList,
				"skills":           stringList,
			},
			Required: []string{"title", "company", "description", "requirements", "skills"},
		},
	}

	if *g.config.Temperature > 0 {
		cfg.Temperature = g.config.Temperature
	}
	return cfg
}

// TokenUsage represents token usage information from AI responses
type TokenUsage struct {
	InputTokens  int64
	OutputTokens int64
	TotalTokens  int64
}

func extractTokenUsage(result *genai.GenerateContentResponse) *TokenUsage {
	if result == nil || result.UsageMetadata == nil {
		return nil
	}

	usage := result.UsageMetadata
	return &TokenUsage{
		InputTokens:  int64(usage.PromptTokenCount),
		OutputTokens: int64(usage.CandidatesTokenCount),
		TotalTokens:  int64(usage.TotalTokenCount),
	}
}
