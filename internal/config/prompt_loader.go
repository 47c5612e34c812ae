package config

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
)

// loadPromptsFromFiles resolves file-backed prompts into their inline fields.
// A prompt may be given inline or as a file, not both.
func (c *Config) loadPromptsFromFiles() error {
	prompts := &c.AI.Extract.CustomPrompts

	if err := c.resolvePrompt(&prompts.SystemPrompt, prompts.SystemPromptFile, "system", "extract"); err != nil {
		return err
	}
	return c.resolvePrompt(&prompts.UserPrompt, prompts.UserPromptFile, "user", "extract")
}

func (c *Config) resolvePrompt(target *string, filePath, promptType, operation string) error {
	if filePath == "" {
		return nil
	}
	if *target != "" {
		return fmt.Errorf("%s %s prompt is set both inline and from file '%s'", promptType, operation, filePath)
	}
	content, err := c.loadPromptFromFile(filePath, promptType, operation)
	if err != nil {
		return err
	}
	*target = content
	return nil
}

// loadPromptFromFile loads a prompt from a file with proper error handling and logging
func (c *Config) loadPromptFromFile(filePath, promptType, operation string) (string, error) {
	absPath, err := filepath.Abs(filePath)
	if err != nil {
		return "", fmt.Errorf("failed to resolve absolute path for %s %s prompt file '%s': %w", promptType, operation, filePath, err)
	}

	content, err := os.ReadFile(absPath)
	if err != nil {
		if os.IsNotExist(err) {
			return "", fmt.Errorf("%s %s prompt file not found: %s", promptType, operation, absPath)
		}
		return "", fmt.Errorf("failed to read %s %s prompt file '%s': %w", promptType, operation, absPath, err)
	}

	trimmedContent := strings.TrimSpace(string(content))
	if trimmedContent == "" {
		return "", fmt.Errorf("%s %s prompt file '%s' is empty", promptType, operation, absPath)
	}

	log.Printf("[CONFIG] Successfully loaded %s %s prompt from file: %s (%d characters)",
		promptType, operation, absPath, len(trimmedContent))

	return trimmedContent, nil
}
