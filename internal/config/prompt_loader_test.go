package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadPromptsFromFiles(t *testing.T) {
	tempDir := t.TempDir()

	systemPromptContent := "Extract the job posting fields"
	userPromptContent := "Posting:\n%s"

	systemPromptFile := filepath.Join(tempDir, "system.extract.md")
	userPromptFile := filepath.Join(tempDir, "user.extract.md")

	if err := os.WriteFile(systemPromptFile, []byte(systemPromptContent+"\n"), 0600); err != nil {
		t.Fatalf("Failed to create test system prompt file: %v", err)
	}
	if err := os.WriteFile(userPromptFile, []byte(userPromptContent), 0600); err != nil {
		t.Fatalf("Failed to create test user prompt file: %v", err)
	}

	config := &Config{
		AI: AIConfig{
			Extract: OperationAIConfig{
				CustomPrompts: PromptConfig{
					SystemPromptFile: systemPromptFile,
					UserPromptFile:   userPromptFile,
				},
			},
		},
	}

	if err := config.loadPromptsFromFiles(); err != nil {
		t.Fatalf("Failed to load prompts from files: %v", err)
	}

	prompts := config.AI.Extract.CustomPrompts
	if prompts.SystemPrompt != systemPromptContent {
		t.Errorf("Expected system prompt '%s', got '%s'", systemPromptContent, prompts.SystemPrompt)
	}
	if prompts.UserPrompt != userPromptContent {
		t.Errorf("Expected user prompt '%s', got '%s'", userPromptContent, prompts.UserPrompt)
	}
	if prompts.SystemPromptFile != systemPromptFile {
		t.Error("Expected system prompt file path to be preserved")
	}
}

func TestLoadPromptsFromFilesRejectsInlineAndFile(t *testing.T) {
	tempDir := t.TempDir()
	file := filepath.Join(tempDir, "system.md")
	if err := os.WriteFile(file, []byte("from file"), 0600); err != nil {
		t.Fatalf("Failed to create test file: %v", err)
	}

	config := &Config{
		AI: AIConfig{
			Extract: OperationAIConfig{
				CustomPrompts: PromptConfig{
					SystemPrompt:     "inline",
					SystemPromptFile: file,
				},
			},
		},
	}

	if err := config.loadPromptsFromFiles(); err == nil {
		t.Error("Expected error when a prompt is set both inline and from file")
	}
}

func TestLoadPromptFromFile(t *testing.T) {
	tempDir := t.TempDir()

	content := "Test prompt content"
	testFile := filepath.Join(tempDir, "test.md")
	if err := os.WriteFile(testFile, []byte(content), 0600); err != nil {
		t.Fatalf("Failed to create test file: %v", err)
	}

	config := &Config{}
	loadedContent, err := config.loadPromptFromFile(testFile, "system", "extract")
	if err != nil {
		t.Fatalf("Failed to load prompt from file: %v", err)
	}
	if loadedContent != content {
		t.Errorf("Expected content '%s', got '%s'", content, loadedContent)
	}

	emptyFile := filepath.Join(tempDir, "empty.md")
	if err := os.WriteFile(emptyFile, []byte("  \n"), 0600); err != nil {
		t.Fatalf("Failed to create empty test file: %v", err)
	}
	if _, err := config.loadPromptFromFile(emptyFile, "system", "extract"); err == nil {
		t.Error("Expected error for empty file")
	}

	if _, err := config.loadPromptFromFile(filepath.Join(tempDir, "nonexistent.md"), "system", "extract"); err == nil {
		t.Error("Expected error for non-existent file")
	}
}
