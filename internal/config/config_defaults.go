package config

import (
	"time"

	"github.com/spf13/viper"
)

// setDefaults sets the default configuration values
func setDefaults(v *viper.Viper) {
	// Backend API
	v.SetDefault("api.baseURL", "http://localhost:8080")
	v.SetDefault("api.timeout", 30*time.Second)
	v.SetDefault("api.userAgent", "careerkit")
	v.SetDefault("api.rateLimit.enabled", true)
	v.SetDefault("api.rateLimit.requestsPerSecond", 5.0)
	v.SetDefault("api.rateLimit.burst", 10)
	v.SetDefault("api.circuitBreaker.enabled", true)
	v.SetDefault("api.circuitBreaker.maxRequests", 1)
	v.SetDefault("api.circuitBreaker.interval", 60*time.Second)
	v.SetDefault("api.circuitBreaker.timeout", 30*time.Second)
	v.SetDefault("api.circuitBreaker.minRequests", 5)
	v.SetDefault("api.circuitBreaker.failureThreshold", 0.6)

	// Session
	v.SetDefault("session.spaceId", "")
	v.SetDefault("session.userId", "")
	v.SetDefault("session.cookieName", "session")
	v.SetDefault("session.token", "")
	v.SetDefault("session.tokenFile", "")
	v.SetDefault("session.watchTokenFile", false)
	v.SetDefault("session.debounceDelay", 500*time.Millisecond)

	// Status polling
	v.SetDefault("polling.interval", 2*time.Second)
	v.SetDefault("polling.maxConsecutiveErrors", 3)
	v.SetDefault("polling.timeout", 30*time.Minute)

	// GitHub ingestion
	v.SetDefault("github.defaultBranch", "main")

	// Local store (empty resolves to $HOME/.careerkit/selections.db)
	v.SetDefault("store.path", "")

	// AI Configuration - Global defaults
	v.SetDefault("ai.provider", "gemini")
	v.SetDefault("ai.model", "gemini-2.0-flash")
	v.SetDefault("ai.timeout", 60*time.Second)
	v.SetDefault("ai.apiKey", "")
	v.SetDefault("ai.maxRetries", 3)
	v.SetDefault("ai.temperature", 0.7)
	v.SetDefault("ai.useSystemPrompts", true)

	// AI Configuration - Extract operation defaults
	v.SetDefault("ai.extract.provider", "gemini")
	v.SetDefault("ai.extract.model", "")
	v.SetDefault("ai.extract.timeout", 45*time.Second)
	v.SetDefault("ai.extract.apiKey", "")
	v.SetDefault("ai.extract.maxRetries", 2)
	v.SetDefault("ai.extract.temperature", 0.1) // extraction wants literal answers
	v.SetDefault("ai.extract.useSystemPrompts", true)
	v.SetDefault("ai.extract.circuitBreaker.enabled", true)
	v.SetDefault("ai.extract.circuitBreaker.maxRequests", 3)
	v.SetDefault("ai.extract.circuitBreaker.interval", 60*time.Second)
	v.SetDefault("ai.extract.circuitBreaker.timeout", 60*time.Second)
	v.SetDefault("ai.extract.circuitBreaker.minRequests", 3)
	v.SetDefault("ai.extract.circuitBreaker.failureThreshold", 0.6)

	// App Configuration
	v.SetDefault("app.logLevel", "warn")
	v.SetDefault("app.defaultFormat", "text")
	v.SetDefault("app.supportedFormats", []string{"json", "yaml", "text", "markdown"})
	v.SetDefault("app.maxFileSize", 1024*1024) // 1MB

	// Vault Configuration
	v.SetDefault("vault.enabled", false)
	v.SetDefault("vault.address", "")
	v.SetDefault("vault.token", "")
	v.SetDefault("vault.tokenFile", "")
	v.SetDefault("vault.namespace", "")
	v.SetDefault("vault.refreshInterval", 0)
	v.SetDefault("vault.secrets.sessionToken", "")
	v.SetDefault("vault.secrets.geminiKey", "")

	// Observability Configuration
	v.SetDefault("observability.enabled", false)
	v.SetDefault("observability.serviceName", "careerkit")
	v.SetDefault("observability.serviceVersion", "")  // Will use app version if empty
	v.SetDefault("observability.serviceInstance", "") // Will be auto-generated if empty
	v.SetDefault("observability.consoleOutput", false)
	v.SetDefault("observability.sampleRate", 1.0)

	v.SetDefault("observability.metrics.enabled", true)
	v.SetDefault("observability.metrics.collectionInterval", 15*time.Second)

	v.SetDefault("observability.customMetrics.aiOperations.enabled", true)
	v.SetDefault("observability.customMetrics.aiOperations.trackDuration", true)
	v.SetDefault("observability.customMetrics.aiOperations.trackTokenUsage", true)
	v.SetDefault("observability.customMetrics.apiRequests.enabled", true)
	v.SetDefault("observability.customMetrics.apiRequests.trackDuration", true)
	v.SetDefault("observability.customMetrics.apiRequests.trackRateLimits", true)
	v.SetDefault("observability.customMetrics.jobs.enabled", true)

	v.SetDefault("observability.console.enabled", false)
	v.SetDefault("observability.console.prettyPrint", true)

	v.SetDefault("observability.prometheus.enabled", false)
	v.SetDefault("observability.prometheus.endpoint", "/metrics")
	v.SetDefault("observability.prometheus.port", "9090")

	v.SetDefault("observability.otlp.enabled", false)
	v.SetDefault("observability.otlp.endpoint", "http://localhost:4318")
	v.SetDefault("observability.otlp.insecure", true)
	v.SetDefault("observability.otlp.headers", map[string]string{})
}
