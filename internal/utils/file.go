package utils

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"
)

// ValidateInputFile checks that a file exists, is a regular readable file
// and, when maxSize is positive, is no larger than maxSize bytes
func ValidateInputFile(filename string, maxSize int64) error {
	if filename == "" {
		return fmt.Errorf("filename cannot be empty")
	}

	info, err := os.Stat(filename)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("file does not exist: %s", filename)
		}
		return fmt.Errorf("cannot access file %s: %w", filename, err)
	}

	if info.IsDir() {
		return fmt.Errorf("path is a directory, not a file: %s", filename)
	}
	if maxSize > 0 && info.Size() > maxSize {
		return fmt.Errorf("file %s is %s, larger than the %s limit",
			filename, FormatFileSize(info.Size()), FormatFileSize(maxSize))
	}

	file, err := os.Open(filename)
	if err != nil {
		return fmt.Errorf("cannot read file %s: %w", filename, err)
	}
	if err := file.Close(); err != nil {
		return fmt.Errorf("failed to close file %s: %w", filename, err)
	}

	return nil
}

// ReadInputFile validates and reads a file, or stdin when filename is "-"
func ReadInputFile(filename string, maxSize int64) ([]byte, error) {
	if filename == "-" {
		r := io.Reader(os.Stdin)
		if maxSize > 0 {
			r = io.LimitReader(os.Stdin, maxSize+1)
		}
		data, err := io.ReadAll(r)
		if err != nil {
			return nil, fmt.Errorf("cannot read stdin: %w", err)
		}
		if maxSize > 0 && int64(len(data)) > maxSize {
			return nil, fmt.Errorf("stdin input is larger than the %s limit", FormatFileSize(maxSize))
		}
		return data, nil
	}

	if err := ValidateInputFile(filename, maxSize); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(filename) // #nosec G304 -- path supplied by the CLI user
	if err != nil {
		return nil, fmt.Errorf("cannot read file %s: %w", filename, err)
	}
	return data, nil
}

// ValidateOutputFile checks if the output file path is valid
func ValidateOutputFile(filename string) error {
	if filename == "" {
		return nil // stdout
	}

	dir := filepath.Dir(filename)
	if dir != "." {
		if _, err := os.Stat(dir); os.IsNotExist(err) {
			if err := os.MkdirAll(dir, 0750); err != nil {
				return fmt.Errorf("cannot create directory %s: %w", dir, err)
			}
		}
	}

	return nil
}

// GetFileExtension returns the file extension in lowercase
func GetFileExtension(filename string) string {
	return strings.ToLower(filepath.Ext(filename))
}

// IsTextFile reports whether a posting can be read from the file as plain text
func IsTextFile(filename string) bool {
	return slices.Contains([]string{".txt", ".md", ".markdown", ".text", ".html", ".htm"}, GetFileExtension(filename))
}

// IsDocumentFile reports whether the file holds a structured document
func IsDocumentFile(filename string) bool {
	return slices.Contains([]string{".json", ".yaml", ".yml"}, GetFileExtension(filename))
}

// FormatFileSize returns a human-readable file size
func FormatFileSize(size int64) string {
	const unit = 1024
	if size < unit {
		return fmt.Sprintf("%d B", size)
	}
	div, exp := int64(unit), 0
	for n := size / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(size)/float64(div), "KMGTPE"[exp])
}
