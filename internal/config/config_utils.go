package config

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
)

// applyFallbacks fills in values derived from the environment
func (c *Config) applyFallbacks() error {
	c.API.BaseURL = strings.TrimRight(c.API.BaseURL, "/")

	if err := c.applySessionTokenFile(); err != nil {
		return err
	}
	if err := c.applyStoreDefaults(); err != nil {
		return err
	}
	c.applyObservabilityDefaults()
	return nil
}

// applySessionTokenFile reads the session token from session.tokenFile when
// no token was configured directly
func (c *Config) applySessionTokenFile() error {
	if c.Session.Token != "" || c.Session.TokenFile == "" {
		return nil
	}
	token, err := ReadTokenFile(c.Session.TokenFile)
	if err != nil {
		return err
	}
	c.Session.Token = token
	return nil
}

// ReadTokenFile reads a credential file, trimming surrounding whitespace
func ReadTokenFile(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read session token file: %w", err)
	}
	return strings.TrimSpace(string(data)), nil
}

// applyStoreDefaults resolves the selection store location
func (c *Config) applyStoreDefaults() error {
	if c.Store.Path != "" {
		return nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return fmt.Errorf("failed to resolve home directory for store path: %w", err)
	}
	c.Store.Path = filepath.Join(home, ".careerkit", "selections.db")
	return nil
}

// applyObservabilityDefaults applies default observability configuration values
func (c *Config) applyObservabilityDefaults() {
	if c.Observability.ServiceInstance == "" {
		c.Observability.ServiceInstance = generateServiceInstanceID(c.Observability.ServiceName)
	}

	// Set console output based on log level if not explicitly configured
	if c.App.LogLevel == "debug" && !c.Observability.ConsoleOutput {
		c.Observability.ConsoleOutput = true
	}
}

// generateServiceInstanceID generates a unique service instance ID
func generateServiceInstanceID(serviceName string) string {
	// Try to get hostname, fallback to default
	if hostname, err := os.Hostname(); err == nil {
		return fmt.Sprintf("%s-%s", serviceName, hostname)
	}
	return fmt.Sprintf("%s-1", serviceName)
}

// logConfigurationSources logs a summary of configuration sources being used
func (c *Config) logConfigurationSources(configFileUsed string) {
	log.Println("[CONFIG] === Configuration Sources Summary ===")

	if configFileUsed != "" {
		log.Printf("[CONFIG] Config file: %s", configFileUsed)
	} else {
		log.Println("[CONFIG] Config file: None (using defaults)")
	}

	envVars := []string{
		"CAREERKIT_API_BASEURL",
		"CAREERKIT_SESSION_SPACEID",
		"CAREERKIT_SESSION_USERID",
		"CAREERKIT_SESSION_TOKEN",
		"CAREERKIT_AI_APIKEY",
		"CAREERKIT_APP_LOGLEVEL",
		"CAREERKIT_VAULT_ENABLED",
		configFileEnv,
	}

	log.Println("[CONFIG] Environment variables:")
	hasEnvVars := false
	for _, envVar := range envVars {
		if value := os.Getenv(envVar); value != "" {
			if isSensitiveEnv(envVar) {
				log.Printf("[CONFIG]   %s=***MASKED***", envVar)
			} else {
				log.Printf("[CONFIG]   %s=%s", envVar, value)
			}
			hasEnvVars = true
		}
	}
	if !hasEnvVars {
		log.Println("[CONFIG]   None set")
	}

	log.Println("[CONFIG] === Key Configuration Values ===")
	log.Printf("[CONFIG] API Base URL: %s", c.API.BaseURL)
	log.Printf("[CONFIG] Space: %s, User: %s", c.Session.SpaceID, c.Session.UserID)
	if c.Session.Token != "" {
		log.Println("[CONFIG] Session Token: ***CONFIGURED***")
	} else {
		log.Println("[CONFIG] Session Token: ***NOT SET*** (guest)")
	}
	log.Printf("[CONFIG] Polling Interval: %s", c.Polling.Interval)
	log.Printf("[CONFIG] Store Path: %s", c.Store.Path)
	log.Printf("[CONFIG] Log Level: %s", c.App.LogLevel)
	log.Printf("[CONFIG] Vault Enabled: %t", c.Vault.Enabled)
	log.Printf("[CONFIG] Observability Enabled: %t", c.Observability.Enabled)
	log.Println("[CONFIG] =====================================")
}

func isSensitiveEnv(name string) bool {
	lower := strings.ToLower(name)
	return strings.Contains(lower, "key") || strings.Contains(lower, "token")
}
