package ai

import (
	"context"
	stderrors "errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"testing"
	"time"

	"careerkit/internal/config"
	"careerkit/internal/errors"
	"careerkit/internal/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/googleapi"
	"google.golang.org/genai"
)

func float32Ptr(f float32) *float32 { return &f }
func boolPtr(b bool) *bool          { return &b }

func TestIsRetryableError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"plain", stderrors.New("bad input"), false},
		{"network", &net.OpError{Op: "dial", Err: stderrors.New("refused")}, true},
		{"rate limited", &googleapi.Error{Code: http.StatusTooManyRequests}, true},
		{"unavailable", fmt.Errorf("wrapped: %w", &googleapi.Error{Code: http.StatusServiceUnavailable}), true},
		{"bad request", &googleapi.Error{Code: http.StatusBadRequest}, false},
		{"unauthorized", &googleapi.Error{Code: http.StatusUnauthorized}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := isRetryableError(tt.err); got != tt.want {
				t.Errorf("isRetryableError(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}

func TestBackoffIsCapped(t *testing.T) {
	assert.GreaterOrEqual(t, backoff(1), time.Second)
	assert.Less(t, backoff(1), 1100*time.Millisecond+time.Millisecond)
	assert.Equal(t, 30*time.Second, backoff(10))
}

func TestExtractPrompts(t *testing.T) {
	tests := []struct {
		name        string
		prompts     config.PromptConfig
		wantSystem  string
		wantContain []string
	}{
		{
			name:        "defaults",
			wantSystem:  DefaultExtractSystemPrompt,
			wantContain: []string{"Extract a structured job description", "POSTING-BODY"},
		},
		{
			name:        "custom template",
			prompts:     config.PromptConfig{SystemPrompt: "be terse", UserPrompt: "Parse this: %s"},
			wantSystem:  "be terse",
			wantContain: []string{"Parse this: POSTING-BODY"},
		},
		{
			name:        "custom prompt without placeholder",
			prompts:     config.PromptConfig{UserPrompt: "Parse the posting."},
			wantSystem:  DefaultExtractSystemPrompt,
			wantContain: []string{"Parse the posting.\n\nPOSTING-BODY"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := &GeminiProvider{config: &config.OperationAIConfig{CustomPrompts: tt.prompts}}
			system, user := g.extractPrompts("POSTING-BODY")
			assert.Equal(t, tt.wantSystem, system)
			for _, want := range tt.wantContain {
				assert.Contains(t, user, want)
			}
			assert.NotContains(t, user, "%!")
		})
	}
}

func TestBuildExtractSchema(t *testing.T) {
	g := &GeminiProvider{config: &config.OperationAIConfig{Temperature: float32Ptr(0.1)}}

	cfg := g.buildExtractSchema()

	assert.Equal(t, "application/json", cfg.ResponseMIMEType)
	require.NotNil(t, cfg.Temperature)
	assert.InDelta(t, 0.1, *cfg.Temperature, 1e-6)
	for _, field := range []string{"title", "company", "requirements", "skills"} {
		assert.Contains(t, cfg.ResponseSchema.Properties, field)
	}
	assert.Equal(t, genai.TypeArray, cfg.ResponseSchema.Properties["skills"].Type)

	g.config.Temperature = float32Ptr(0)
	assert.Nil(t, g.buildExtractSchema().Temperature)
}

func TestExtractTokenUsage(t *testing.T) {
	assert.Nil(t, extractTokenUsage(nil))
	assert.Nil(t, extractTokenUsage(&genai.GenerateContentResponse{}))

	usage := extractTokenUsage(&genai.GenerateContentResponse{
		UsageMetadata: &genai.GenerateContentResponseUsageMetadata{
			PromptTokenCount:     120,
			CandidatesTokenCount: 80,
			TotalTokenCount:      200,
		},
	})
	require.NotNil(t, usage)
	assert.Equal(t, int64(200), usage.TotalTokens)
}

// stubProvider records the posting it was given
type stubProvider struct {
	posting string
	out     types.JobDescription
	err     error
}

func (s *stubProvider) ExtractJobDescription(_ context.Context, in types.ExtractJobInput) (types.JobDescription, *TokenUsage, error) {
	s.posting = in.Posting
	return s.out, &TokenUsage{TotalTokens: 42}, s.err
}

func (s *stubProvider) GetModelInfo(context.Context) *ModelInfo { return &ModelInfo{Available: true} }
func (s *stubProvider) Close() error                           { return nil }

func TestServiceExtractJobDescription(t *testing.T) {
	stub := &stubProvider{out: types.JobDescription{Title: "  Go Engineer ", Company: "Acme"}}
	svc := NewServiceWithProvider(stub, &config.OperationAIConfig{UseSystemPrompts: boolPtr(true)}, nil)

	jd, usage, err := svc.ExtractJobDescription(context.Background(), "\n We are hiring a Go engineer \n", "https://jobs.example.com/7")

	require.NoError(t, err)
	assert.Equal(t, "Go Engineer", jd.Title)
	assert.Equal(t, "https://jobs.example.com/7", jd.URL)
	assert.Equal(t, int64(42), usage.TotalTokens)
	assert.Equal(t, "We are hiring a Go engineer", stub.posting)
}

func TestServiceRejectsEmptyPosting(t *testing.T) {
	stub := &stubProvider{}
	svc := NewServiceWithProvider(stub, &config.OperationAIConfig{}, nil)

	_, _, err := svc.ExtractJobDescription(context.Background(), "   ", "")

	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.ErrCodeInvalidRequest))
	assert.Empty(t, stub.posting)
}

func TestNewServiceRejectsUnknownProvider(t *testing.T) {
	timeout := time.Second
	retries := 0
	cfg := &config.OperationAIConfig{
		Provider:         "openai",
		Timeout:          &timeout,
		MaxRetries:       &retries,
		Temperature:      float32Ptr(0),
		UseSystemPrompts: boolPtr(true),
	}

	_, err := NewService(cfg, "extract", nil)

	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "Unsupported AI provider"))
}

func TestNewGeminiProviderRequiresKey(t *testing.T) {
	timeout := time.Second
	_, err := NewGeminiProvider(&config.OperationAIConfig{Timeout: &timeout}, "extract", nil)

	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.ErrCodeMissingAPIKey))
}

func TestServiceBreakerStats(t *testing.T) {
	cfg := breakerConfig()
	g := &GeminiProvider{
		config:         cfg,
		circuitBreaker: NewAICircuitBreaker("extract", cfg, nil),
		modelBreaker:   NewModelCircuitBreaker("extract", cfg, nil),
	}

	stats := NewServiceWithProvider(g, cfg, nil).BreakerStats()
	require.NotNil(t, stats)
	assert.Equal(t, true, stats["overall_healthy"])
	assert.Contains(t, stats, "ai_operations")

	assert.Nil(t, NewServiceWithProvider(&stubProvider{}, cfg, nil).BreakerStats())
}
