package common

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"careerkit/internal/errors"
	"careerkit/internal/utils"

	"gopkg.in/yaml.v3"
)

// FileProcessor handles common file operations
type FileProcessor struct {
	logger *errors.Logger
}

// NewFileProcessor creates a new file processor instance
func NewFileProcessor(logger *errors.Logger) *FileProcessor {
	if logger == nil {
		logger = errors.Discard()
	}
	return &FileProcessor{logger: logger}
}

// ReadFile reads a file, or stdin for "-", no larger than maxSize bytes
func (fp *FileProcessor) ReadFile(filename string, maxSize int64) (string, error) {
	if filename != "-" {
		if _, err := os.Stat(filename); os.IsNotExist(err) {
			return "", errors.NewIOError(errors.ErrCodeFileNotFound,
				fmt.Sprintf("File not found: %s", filename), err)
		}
	}

	content, err := utils.ReadInputFile(filename, maxSize)
	if err != nil {
		return "", errors.NewIOError(errors.ErrCodeFileNotReadable,
			fmt.Sprintf("Cannot read file: %s", filename), err)
	}
	return string(content), nil
}

// WriteFile writes content to a file with directory creation
func (fp *FileProcessor) WriteFile(filename, content string) error {
	dir := filepath.Dir(filename)
	if dir != "." {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return errors.NewIOError("DIRECTORY_CREATE_FAILED",
				fmt.Sprintf("Cannot create directory: %s", dir), err)
		}
	}

	if err := os.WriteFile(filename, []byte(content), 0600); err != nil {
		return errors.NewIOError("FILE_WRITE_FAILED",
			fmt.Sprintf("Cannot write file: %s", filename), err)
	}

	return nil
}

// ValidateAndReadFiles validates and reads multiple input files
func (fp *FileProcessor) ValidateAndReadFiles(maxSize int64, filenames ...string) ([]string, error) {
	contents := make([]string, len(filenames))

	for i, filename := range filenames {
		if filename != "-" {
			if err := utils.ValidateInputFile(filename, maxSize); err != nil {
				return nil, errors.NewValidationError("INVALID_INPUT_FILE",
					fmt.Sprintf("Invalid file %s", filename), err)
			}
			if !utils.IsTextFile(filename) {
				fp.logger.Warn("File may not be a text file", "filename", filename)
			}
		}

		content, err := fp.ReadFile(filename, maxSize)
		if err != nil {
			return nil, err
		}
		contents[i] = content
	}

	return contents, nil
}

// ValidateOutputFile validates output file path
func (fp *FileProcessor) ValidateOutputFile(filename string) error {
	if filename == "" {
		return nil
	}

	if err := utils.ValidateOutputFile(filename); err != nil {
		return errors.NewValidationError("INVALID_OUTPUT_FILE",
			fmt.Sprintf("Invalid output file: %s", filename), err)
	}

	return nil
}

// ReadDocument decodes a JSON or YAML file into a backend document. YAML
// keys use the same names as the JSON contract. Stdin is read as JSON.
func ReadDocument[T any](fp *FileProcessor, filename string, maxSize int64) (T, error) {
	var doc T

	if filename != "-" && !utils.IsDocumentFile(filename) {
		return doc, errors.NewValidationError(errors.ErrCodeInvalidFormat,
			fmt.Sprintf("Unsupported document file %s: use .json, .yaml or .yml", filename), nil)
	}

	content, err := fp.ReadFile(filename, maxSize)
	if err != nil {
		return doc, err
	}

	data := []byte(content)
	if ext := utils.GetFileExtension(filename); ext == ".yaml" || ext == ".yml" {
		var generic any
		if err := yaml.Unmarshal(data, &generic); err != nil {
			return doc, errors.NewValidationError(errors.ErrCodeInvalidFormat,
				fmt.Sprintf("Invalid YAML in %s", filename), err)
		}
		if data, err = json.Marshal(generic); err != nil {
			return doc, errors.NewValidationError(errors.ErrCodeInvalidFormat,
				fmt.Sprintf("Unsupported YAML values in %s", filename), err)
		}
	}

	if err := json.Unmarshal(data, &doc); err != nil {
		return doc, errors.NewValidationError(errors.ErrCodeInvalidFormat,
			fmt.Sprintf("Invalid document in %s", filename), err)
	}
	return doc, nil
}
