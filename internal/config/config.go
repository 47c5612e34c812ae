package config

import (
	"fmt"
	"log"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration
// Session token precedence order:
// 1. Vault (if configured) - Highest priority
// 2. Config File values
// 3. Environment Variables (CAREERKIT_SESSION_TOKEN, etc.)
// 4. Session token file (session.tokenFile)
type Config struct {
	API           APIConfig           `mapstructure:"api"`
	Session       SessionConfig       `mapstructure:"session"`
	Polling       PollingConfig       `mapstructure:"polling"`
	GitHub        GitHubConfig        `mapstructure:"github"`
	Store         StoreConfig         `mapstructure:"store"`
	AI            AIConfig            `mapstructure:"ai"`
	App           AppConfig           `mapstructure:"app"`
	Vault         VaultConfig         `mapstructure:"vault"`
	Observability ObservabilityConfig `mapstructure:"observability"`
}

// APIConfig holds the backend client configuration
type APIConfig struct {
	BaseURL        string               `mapstructure:"baseURL"`
	Timeout        time.Duration        `mapstructure:"timeout"`
	UserAgent      string               `mapstructure:"userAgent"`
	RateLimit      RateLimitConfig      `mapstructure:"rateLimit"`
	CircuitBreaker CircuitBreakerConfig `mapstructure:"circuitBreaker"`
}

// RateLimitConfig paces outgoing requests with a token bucket
type RateLimitConfig struct {
	Enabled           bool    `mapstructure:"enabled"`
	RequestsPerSecond float64 `mapstructure:"requestsPerSecond"`
	Burst             int     `mapstructure:"burst"`
}

// CircuitBreakerConfig represents circuit breaker configuration
type CircuitBreakerConfig struct {
	Enabled          bool          `mapstructure:"enabled"`          // Whether circuit breaker is enabled
	MaxRequests      uint32        `mapstructure:"maxRequests"`      // Max requests allowed when half-open
	Interval         time.Duration `mapstructure:"interval"`         // Interval to clear counts
	Timeout          time.Duration `mapstructure:"timeout"`          // Timeout for half-open to open
	MinRequests      uint32        `mapstructure:"minRequests"`      // Minimum requests before tripping
	FailureThreshold float64       `mapstructure:"failureThreshold"` // Failure ratio threshold (0.0-1.0)
}

// SessionConfig identifies the workspace, the user, and the credential
// presented to the backend. An empty token means a guest session.
type SessionConfig struct {
	SpaceID        string        `mapstructure:"spaceId"`
	UserID         string        `mapstructure:"userId"`
	CookieName     string        `mapstructure:"cookieName"`
	Token          string        `mapstructure:"token"`
	TokenFile      string        `mapstructure:"tokenFile"`
	WatchTokenFile bool          `mapstructure:"watchTokenFile"`
	DebounceDelay  time.Duration `mapstructure:"debounceDelay"`
}

// PollingConfig controls status polling of server-side jobs
type PollingConfig struct {
	Interval             time.Duration `mapstructure:"interval"`
	MaxConsecutiveErrors int           `mapstructure:"maxConsecutiveErrors"`
	Timeout              time.Duration `mapstructure:"timeout"` // zero disables the overall deadline
}

// GitHubConfig holds defaults for repository ingestion
type GitHubConfig struct {
	DefaultBranch string `mapstructure:"defaultBranch"`
}

// StoreConfig holds the local selection store location
type StoreConfig struct {
	Path string `mapstructure:"path"`
}

// AIConfig holds AI service configuration
type AIConfig struct {
	// Global/fallback configuration
	Provider         string        `mapstructure:"provider"`
	Model            string        `mapstructure:"model"`
	Timeout          time.Duration `mapstructure:"timeout"`
	APIKey           string        `mapstructure:"apiKey"`
	MaxRetries       int           `mapstructure:"maxRetries"`
	Temperature      float32       `mapstructure:"temperature"`
	UseSystemPrompts bool          `mapstructure:"useSystemPrompts"`

	// Job description extraction
	Extract OperationAIConfig `mapstructure:"extract"`
}

// OperationAIConfig holds AI configuration for specific operations
type OperationAIConfig struct {
	Provider         string               `mapstructure:"provider"`
	Model            string               `mapstructure:"model"`
	Timeout          *time.Duration       `mapstructure:"timeout"`
	APIKey           string               `mapstructure:"apiKey"`
	MaxRetries       *int                 `mapstructure:"maxRetries"`
	Temperature      *float32             `mapstructure:"temperature"`
	UseSystemPrompts *bool                `mapstructure:"useSystemPrompts"`
	CustomPrompts    PromptConfig         `mapstructure:"customPrompts"`
	CircuitBreaker   CircuitBreakerConfig `mapstructure:"circuitBreaker"`
}

// PromptConfig holds inline prompts or the files they are read from
type PromptConfig struct {
	SystemPrompt     string `mapstructure:"systemPrompt"`
	SystemPromptFile string `mapstructure:"systemPromptFile"`
	UserPrompt       string `mapstructure:"userPrompt"`
	UserPromptFile   string `mapstructure:"userPromptFile"`
}

// AppConfig holds general application configuration
type AppConfig struct {
	LogLevel         string   `mapstructure:"logLevel"`
	DefaultFormat    string   `mapstructure:"defaultFormat"`
	SupportedFormats []string `mapstructure:"supportedFormats"`
	MaxFileSize      int64    `mapstructure:"maxFileSize"`
}

// ObservabilityConfig holds observability configuration
type ObservabilityConfig struct {
	Enabled         bool                `mapstructure:"enabled"`
	ServiceName     string              `mapstructure:"serviceName"`
	ServiceVersion  string              `mapstructure:"serviceVersion"`
	ServiceInstance string              `mapstructure:"serviceInstance"`
	ConsoleOutput   bool                `mapstructure:"consoleOutput"`
	SampleRate      float64             `mapstructure:"sampleRate"`
	Metrics         MetricsConfig       `mapstructure:"metrics"`
	CustomMetrics   CustomMetricsConfig `mapstructure:"customMetrics"`
	Console         ConsoleConfig       `mapstructure:"console"`
	Prometheus      PrometheusConfig    `mapstructure:"prometheus"`
	OTLP            OTLPConfig          `mapstructure:"otlp"`
}

// MetricsConfig holds metrics configuration
type MetricsConfig struct {
	Enabled            bool          `mapstructure:"enabled"`
	CollectionInterval time.Duration `mapstructure:"collectionInterval"`
}

// ConsoleConfig holds console output configuration
type ConsoleConfig struct {
	Enabled     bool `mapstructure:"enabled"`
	PrettyPrint bool `mapstructure:"prettyPrint"`
}

// CustomMetricsConfig holds fine-grained custom metrics configuration
type CustomMetricsConfig struct {
	AIOperations AIOperationsMetricsConfig `mapstructure:"aiOperations"`
	APIRequests  APIRequestsMetricsConfig  `mapstructure:"apiRequests"`
	Jobs         JobsMetricsConfig         `mapstructure:"jobs"`
}

// AIOperationsMetricsConfig holds AI operation metrics configuration
type AIOperationsMetricsConfig struct {
	Enabled         bool `mapstructure:"enabled"`
	TrackDuration   bool `mapstructure:"trackDuration"`
	TrackTokenUsage bool `mapstructure:"trackTokenUsage"`
}

// APIRequestsMetricsConfig holds backend request metrics configuration
type APIRequestsMetricsConfig struct {
	Enabled         bool `mapstructure:"enabled"`
	TrackDuration   bool `mapstructure:"trackDuration"`
	TrackRateLimits bool `mapstructure:"trackRateLimits"`
}

// JobsMetricsConfig holds server-side job metrics configuration
type JobsMetricsConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

// PrometheusConfig holds Prometheus configuration
type PrometheusConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Endpoint string `mapstructure:"endpoint"`
	Port     string `mapstructure:"port"`
}

// OTLPConfig holds OTLP exporter configuration
type OTLPConfig struct {
	Enabled  bool              `mapstructure:"enabled"`
	Endpoint string            `mapstructure:"endpoint"`
	Insecure bool              `mapstructure:"insecure"`
	Headers  map[string]string `mapstructure:"headers"`
}

// configFileEnv points at an explicit config file, bypassing the search paths
const configFileEnv = "CAREERKIT_CONFIG_FILE"

// LoadConfig loads configuration from environment variables and a config file
func LoadConfig() (*Config, error) {
	log.Println("[CONFIG] Starting configuration loading process")

	v := viper.New()

	// Set default values
	setDefaults(v)
	log.Println("[CONFIG] Applied default configuration values")

	// Set up environment variable handling
	v.SetEnvPrefix("CAREERKIT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	log.Println("[CONFIG] Configured environment variable handling with prefix 'CAREERKIT'")

	// Set up config file handling
	if explicit := os.Getenv(configFileEnv); explicit != "" {
		v.SetConfigFile(explicit)
		log.Printf("[CONFIG] Using config file from %s: %s", configFileEnv, explicit)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("/etc/careerkit/")
		v.AddConfigPath("$HOME/.careerkit")
		v.AddConfigPath(".")
		log.Println("[CONFIG] Configured config file search paths: /etc/careerkit/, $HOME/.careerkit, .")
	}

	// Read the config file
	configFileUsed := ""
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		log.Println("[CONFIG] No config file found, using defaults and environment variables")
	} else {
		configFileUsed = v.ConfigFileUsed()
		log.Printf("[CONFIG] Successfully loaded config file: %s", configFileUsed)
	}

	// Unmarshal the configuration into the Config struct
	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	log.Println("[CONFIG] Successfully unmarshaled configuration")

	if err := config.applyFallbacks(); err != nil {
		return nil, fmt.Errorf("failed to apply configuration fallbacks: %w", err)
	}
	log.Println("[CONFIG] Applied configuration fallbacks")

	// Log configuration sources summary
	config.logConfigurationSources(configFileUsed)

	if err := config.loadPromptsFromFiles(); err != nil {
		return nil, fmt.Errorf("failed to load custom prompts from files: %w", err)
	}

	// Validate the configuration
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	log.Println("[CONFIG] Configuration loading completed successfully")
	return &config, nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.API.BaseURL == "" {
		return fmt.Errorf("API base URL is required (set CAREERKIT_API_BASEURL environment variable)")
	}
	u, err := url.Parse(c.API.BaseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("invalid API base URL: %q", c.API.BaseURL)
	}

	if c.API.Timeout <= 0 {
		return fmt.Errorf("API timeout must be positive")
	}

	if c.API.RateLimit.Enabled && c.API.RateLimit.RequestsPerSecond <= 0 {
		return fmt.Errorf("API rate limit must be positive when enabled")
	}

	if c.Polling.Interval <= 0 {
		return fmt.Errorf("polling interval must be positive")
	}

	if c.Polling.MaxConsecutiveErrors < 1 {
		return fmt.Errorf("polling maxConsecutiveErrors must be at least 1")
	}

	if c.Session.CookieName == "" {
		return fmt.Errorf("session cookie name is required")
	}

	validFormats := make(map[string]bool)
	for _, format := range c.App.SupportedFormats {
		validFormats[format] = true
	}
	if !validFormats[c.App.DefaultFormat] {
		return fmt.Errorf("invalid default format: %s", c.App.DefaultFormat)
	}

	return nil
}
